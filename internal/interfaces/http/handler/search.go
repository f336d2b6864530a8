package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"z-novel-api/internal/application/search"
	"z-novel-api/internal/interfaces/http/dto"
)

// SearchHandler 搜索处理器
type SearchHandler struct {
	searchSvc *search.Service
}

// NewSearchHandler 创建搜索处理器
func NewSearchHandler(searchSvc *search.Service) *SearchHandler {
	return &SearchHandler{searchSvc: searchSvc}
}

// Search 搜索
// @Summary 搜索
// @Description 带 q 参数走全文查询，否则按结构化条件过滤；索引禁用时自动走关系型回退
// @Tags Search
// @Produce json
// @Param q query string false "全文查询"
// @Param kind query string false "文档类型 novel/chapter"
// @Param category_id query int false "分类 ID"
// @Param author_id query int false "作者 ID"
// @Param is_completed query bool false "是否完结"
// @Param page query int false "页码（零起始）" default(0)
// @Param page_size query int false "每页条数" default(20)
// @Param sort query string false "排序字段"
// @Param desc query bool false "是否降序"
// @Success 200 {object} dto.Response[dto.SearchResultResponse]
// @Router /v1/search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		dto.BadRequest(c, "invalid query parameters: "+err.Error())
		return
	}

	var result *search.Result
	var err error
	if text := strings.TrimSpace(req.Q); text != "" {
		result, err = h.searchSvc.QueryByText(c.Request.Context(), text, req.ToPage())
	} else {
		result, err = h.searchSvc.QueryByFilter(c.Request.Context(), req.ToFilter(), req.ToPage())
	}
	if err != nil {
		respondError(c, err, "search query failed")
		return
	}
	dto.Success(c, dto.ToSearchResultResponse(result))
}
