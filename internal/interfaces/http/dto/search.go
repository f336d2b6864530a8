package dto

import (
	"time"

	"z-novel-api/internal/application/search"
)

// SearchRequest 搜索请求
// page 为零起始页码；sort 仅接受白名单字段，非法值退回默认排序
type SearchRequest struct {
	Q           string `form:"q"`
	Kind        string `form:"kind"`
	CategoryID  uint64 `form:"category_id"`
	AuthorID    uint64 `form:"author_id"`
	IsCompleted *bool  `form:"is_completed"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
	Sort        string `form:"sort"`
	Desc        bool   `form:"desc"`
}

// ToFilter 转换为结构化过滤条件
func (r *SearchRequest) ToFilter() search.Filter {
	return search.Filter{
		Kind:        r.Kind,
		CategoryID:  r.CategoryID,
		AuthorID:    r.AuthorID,
		IsCompleted: r.IsCompleted,
	}
}

// ToPage 转换为分页契约
func (r *SearchRequest) ToPage() search.Page {
	return search.Page{
		Index:     r.Page,
		Size:      r.PageSize,
		SortField: r.Sort,
		Desc:      r.Desc,
	}
}

// SearchDocumentResponse 搜索文档响应
type SearchDocumentResponse struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Title     string            `json:"title"`
	Fields    map[string]string `json:"fields,omitempty"`
	UpdatedAt string            `json:"updated_at"`
}

// SearchResultResponse 搜索结果响应
type SearchResultResponse struct {
	Documents []*SearchDocumentResponse `json:"documents"`
	Total     int64                     `json:"total"`
}

// ToSearchResultResponse 从查询结果构建响应，正文不随搜索结果返回
func ToSearchResultResponse(result *search.Result) SearchResultResponse {
	docs := make([]*SearchDocumentResponse, 0, len(result.Documents))
	for i := range result.Documents {
		doc := result.Documents[i]
		docs = append(docs, &SearchDocumentResponse{
			ID:        doc.ID,
			Kind:      doc.Kind,
			Title:     doc.Title,
			Fields:    doc.Fields,
			UpdatedAt: doc.UpdatedAt.Format(time.RFC3339),
		})
	}
	return SearchResultResponse{Documents: docs, Total: result.Total}
}
