// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"z-novel-api/internal/application/authz"
	"z-novel-api/internal/domain/repository"
	"z-novel-api/internal/interfaces/http/dto"
	"z-novel-api/pkg/errors"
	"z-novel-api/pkg/logger"
)

// actorFrom 从认证中间件注入的上下文还原参与者
// 未认证请求（认证关闭或跳过路径）视作匿名读者
func actorFrom(c *gin.Context) authz.Actor {
	actor := authz.Actor{Role: authz.RoleReader}
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint64); ok {
			actor.UserID = id
		}
	}
	if role := c.GetString("role"); role != "" {
		actor.Role = authz.Role(role)
	}
	return actor
}

// respondError 统一错误出口
// 业务错误按错误码映射 HTTP 状态码，其余记录日志后以 500 兜底
func respondError(c *gin.Context, err error, fallback string) {
	if appErr := errors.AsAppError(err); appErr != nil {
		dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
			ErrorCode: string(appErr.Code),
			Details:   appErr.Detail,
		})
		return
	}
	logger.Error(c.Request.Context(), fallback, err)
	dto.InternalError(c, fallback)
}

// parseQueryUint64 解析查询参数里的正整数
func parseQueryUint64(c *gin.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Query(name), 10, 64)
}

// sortOrder 解析排序方向，缺省降序
func sortOrder(c *gin.Context) repository.SortOrder {
	if c.Query("order") == "asc" {
		return repository.SortOrderAsc
	}
	return repository.SortOrderDesc
}
