// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"

	"z-novel-api/internal/application/authz"

	"github.com/gin-gonic/gin"
)

// Permission 权限类型
type Permission string

// 权限常量定义
const (
	PermNovelRead      Permission = "novel:read"
	PermNovelWrite     Permission = "novel:write"
	PermCategoryManage Permission = "category:manage"
	PermAdminAccess    Permission = "admin:access"
)

// rolePermissions 角色-权限映射表
var rolePermissions = map[authz.Role][]Permission{
	authz.RoleAdmin:  {PermNovelRead, PermNovelWrite, PermCategoryManage, PermAdminAccess},
	authz.RoleAuthor: {PermNovelRead, PermNovelWrite},
	authz.RoleReader: {PermNovelRead},
}

// HasPermission 检查角色是否具有指定权限
func HasPermission(role authz.Role, perm Permission) bool {
	permissions, ok := rolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// RequirePermission 权限检查中间件
// 检查当前用户是否具有指定权限，否则返回 403
// 资源级授权（作者本人/管理员）由应用层守卫完成，这里只做角色粗筛
func RequirePermission(perm Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleStr := c.GetString("role")
		if roleStr == "" {
			abortForbidden(c, "missing role in context")
			return
		}

		role := authz.Role(roleStr)
		if !HasPermission(role, perm) {
			abortForbidden(c, "permission denied")
			return
		}

		c.Next()
	}
}

// RequireRole 角色检查中间件
// 检查当前用户是否为指定角色之一，否则返回 403
func RequireRole(roles ...authz.Role) gin.HandlerFunc {
	roleSet := make(map[authz.Role]bool)
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		roleStr := c.GetString("role")
		if roleStr == "" {
			abortForbidden(c, "missing role in context")
			return
		}

		role := authz.Role(roleStr)
		if !roleSet[role] {
			abortForbidden(c, "role not allowed")
			return
		}

		c.Next()
	}
}

// RequireAdmin 管理员权限检查中间件（便捷方法）
func RequireAdmin() gin.HandlerFunc {
	return RequirePermission(PermAdminAccess)
}

// abortForbidden 终止请求并返回 403
func abortForbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"code":     403,
		"message":  msg,
		"trace_id": c.GetString("trace_id"),
	})
}
