// Package search 实现搜索投影同步和查询
package search

import (
	"context"

	"z-novel-api/internal/domain/entity"
	"z-novel-api/internal/domain/repository"
)

// Fallback 关系型回退查询
// 暴露与索引相同的分页契约；过滤表达能力有意收窄：
// 全文匹配降级为标题模糊匹配，且仅支持结构化过滤字段。这是文档化的限制。
type Fallback struct {
	novelRepo repository.NovelRepository
}

// NewFallback 创建关系型回退
func NewFallback(novelRepo repository.NovelRepository) *Fallback {
	return &Fallback{novelRepo: novelRepo}
}

// QueryByFilter 结构化过滤查询
func (f *Fallback) QueryByFilter(ctx context.Context, filter Filter, page Page) (*Result, error) {
	return f.query(ctx, &repository.NovelFilter{
		AuthorID:    filter.AuthorID,
		CategoryID:  filter.CategoryID,
		Status:      entity.NovelStatusPublished,
		IsCompleted: filter.IsCompleted,
	}, page)
}

// QueryByText 文本查询（降级为标题模糊匹配）
func (f *Fallback) QueryByText(ctx context.Context, text string, page Page) (*Result, error) {
	return f.query(ctx, &repository.NovelFilter{
		Status:    entity.NovelStatusPublished,
		TitleLike: text,
	}, page)
}

func (f *Fallback) query(ctx context.Context, filter *repository.NovelFilter, page Page) (*Result, error) {
	page = page.Normalize()

	sort := repository.Sort{Field: page.SortField, Order: repository.SortOrderAsc}
	if page.Desc {
		sort.Order = repository.SortOrderDesc
	}

	// 零起始页码转换为仓储的一起始分页
	paged, err := f.novelRepo.List(ctx, filter, sort, repository.NewPagination(page.Index+1, page.Size))
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(paged.Items))
	for _, novel := range paged.Items {
		docs = append(docs, NovelDocument(novel))
	}
	return &Result{Documents: docs, Total: paged.Total}, nil
}
