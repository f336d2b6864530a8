// Package search 实现搜索投影同步和查询
package search

import (
	"context"
	"time"

	"z-novel-api/pkg/metrics"
)

// Service 查询服务
// 启用索引时走索引，禁用时走关系型回退，两条路径返回相同的结果形状
type Service struct {
	index    Index
	fallback *Fallback
	enabled  bool
}

// NewService 创建查询服务
func NewService(index Index, fallback *Fallback, enabled bool) *Service {
	return &Service{
		index:    index,
		fallback: fallback,
		enabled:  enabled,
	}
}

// QueryByFilter 结构化过滤查询
func (s *Service) QueryByFilter(ctx context.Context, filter Filter, page Page) (*Result, error) {
	backend, start := s.backendLabel(), time.Now()
	defer func() {
		metrics.SearchQueryDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	}()

	if s.enabled {
		return s.index.QueryByFilter(ctx, filter, page.Normalize())
	}
	return s.fallback.QueryByFilter(ctx, filter, page)
}

// QueryByText 全文查询
func (s *Service) QueryByText(ctx context.Context, text string, page Page) (*Result, error) {
	backend, start := s.backendLabel(), time.Now()
	defer func() {
		metrics.SearchQueryDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	}()

	if s.enabled {
		return s.index.QueryByText(ctx, text, page.Normalize())
	}
	return s.fallback.QueryByText(ctx, text, page)
}

func (s *Service) backendLabel() string {
	if s.enabled {
		return "index"
	}
	return "fallback"
}
