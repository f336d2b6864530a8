// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-novel-api/internal/domain/entity"
)

// NovelFilter 小说查询过滤条件
type NovelFilter struct {
	AuthorID    uint64
	CategoryID  uint64
	Status      entity.NovelStatus
	IsCompleted *bool
	// TitleLike 标题模糊匹配（关系型回退的降级文本过滤）
	TitleLike string
}

// NovelStats 章节聚合统计（由统计聚合器回写）
type NovelStats struct {
	ChapterCnt int64
	WordCnt    int64
}

// NovelRepository 小说仓储接口
type NovelRepository interface {
	// Create 创建小说
	Create(ctx context.Context, novel *entity.Novel) error

	// GetByID 根据 ID 获取小说
	GetByID(ctx context.Context, id uint64) (*entity.Novel, error)

	// GetByUUID 根据 UUID 获取小说
	GetByUUID(ctx context.Context, uuid string) (*entity.Novel, error)

	// Update 全量更新小说
	Update(ctx context.Context, novel *entity.Novel) error

	// UpdateSelective 选择性更新指定列
	UpdateSelective(ctx context.Context, id uint64, fields map[string]any) error

	// List 按过滤条件分页查询
	List(ctx context.Context, filter *NovelFilter, sort Sort, pagination Pagination) (*PagedResult[*entity.Novel], error)

	// CountByCategory 统计引用指定分类的小说数量
	CountByCategory(ctx context.Context, categoryID uint64) (int64, error)

	// CountActiveByCategory 统计引用指定分类且未归档的小说数量
	CountActiveByCategory(ctx context.Context, categoryID uint64) (int64, error)

	// IncrementViewCount 持久化浏览量增量
	IncrementViewCount(ctx context.Context, id uint64, delta int64) error
}
