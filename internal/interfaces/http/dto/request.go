// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// PageRequest 分页请求参数
type PageRequest struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"page_size" json:"page_size"`
}

// Normalize 规范化分页参数
func (r *PageRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = 20
	}
	if r.PageSize > 100 {
		r.PageSize = 100
	}
}

// BindPage 从 Gin Context 绑定分页参数
func BindPage(c *gin.Context) PageRequest {
	req := PageRequest{
		Page:     parseIntWithDefault(c.Query("page"), 1),
		PageSize: parseIntWithDefault(c.Query("page_size"), 20),
	}
	req.Normalize()
	return req
}

// parseIntWithDefault 解析整数，失败时返回默认值
func parseIntWithDefault(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// bindUint64Param 从 URI 解析正整数 ID，非法或缺失返回 false
func bindUint64Param(c *gin.Context, name string) (uint64, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}

// BindNovelID 从 URI 绑定小说 ID
func BindNovelID(c *gin.Context) (uint64, bool) {
	return bindUint64Param(c, "nid")
}

// BindChapterID 从 URI 绑定章节 ID
func BindChapterID(c *gin.Context) (uint64, bool) {
	return bindUint64Param(c, "cid")
}

// BindCategoryID 从 URI 绑定分类 ID
func BindCategoryID(c *gin.Context) (uint64, bool) {
	return bindUint64Param(c, "id")
}

// BindChapterNumber 从 URI 绑定章节号
func BindChapterNumber(c *gin.Context) (int, bool) {
	v, err := strconv.Atoi(c.Param("num"))
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
