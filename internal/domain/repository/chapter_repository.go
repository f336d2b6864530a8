// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"z-novel-api/internal/domain/entity"
)

// ChapterFilter 章节查询过滤条件
type ChapterFilter struct {
	IsPremium *bool
	IsValid   *bool
	// VisibleOnly 为 true 时仅返回可见章节（is_valid 且 publish_time <= now）
	VisibleOnly bool
}

// ChapterRepository 章节仓储接口
type ChapterRepository interface {
	// Create 创建章节
	Create(ctx context.Context, chapter *entity.Chapter) error

	// CreateBatch 批量创建章节（调用方保证在同一事务内）
	CreateBatch(ctx context.Context, chapters []*entity.Chapter) error

	// GetByID 根据 ID 获取章节
	GetByID(ctx context.Context, id uint64) (*entity.Chapter, error)

	// GetByUUID 根据 UUID 获取章节
	GetByUUID(ctx context.Context, uuid string) (*entity.Chapter, error)

	// GetByNovelAndNumber 根据小说和章节号获取章节
	GetByNovelAndNumber(ctx context.Context, novelID uint64, number int) (*entity.Chapter, error)

	// UpdateSelective 选择性更新指定列
	UpdateSelective(ctx context.Context, id uint64, fields map[string]any) error

	// ExistsByNovelAndNumber 检查章节号在小说的未删除章节中是否已占用
	ExistsByNovelAndNumber(ctx context.Context, novelID uint64, number int) (bool, error)

	// ListByNovel 获取小说章节列表（按章节号排序）
	ListByNovel(ctx context.Context, novelID uint64, filter *ChapterFilter, pagination Pagination) (*PagedResult[*entity.Chapter], error)

	// ListAllByNovel 获取小说全部章节（统计报表用，不分页）
	ListAllByNovel(ctx context.Context, novelID uint64) ([]*entity.Chapter, error)

	// CountPublished 统计可见章节数
	CountPublished(ctx context.Context, novelID uint64, now time.Time) (int64, error)

	// SumPublishedWordCount 统计可见章节字数之和
	SumPublishedWordCount(ctx context.Context, novelID uint64, now time.Time) (int64, error)

	// Next 获取同一小说内章节号严格大于 number 的最小章节，不存在返回 nil
	Next(ctx context.Context, novelID uint64, number int) (*entity.Chapter, error)

	// Previous 获取同一小说内章节号严格小于 number 的最大章节，不存在返回 nil
	Previous(ctx context.Context, novelID uint64, number int) (*entity.Chapter, error)

	// SoftDelete 软删除单个章节（is_valid=false）
	SoftDelete(ctx context.Context, id uint64) error

	// SoftDeleteByNovel 软删除小说的全部章节
	SoftDeleteByNovel(ctx context.Context, novelID uint64) error

	// SetValidByNovel 批量设置小说全部章节的 is_valid
	SetValidByNovel(ctx context.Context, novelID uint64, valid bool) error

	// IncrementViewCount 持久化章节浏览量增量
	IncrementViewCount(ctx context.Context, id uint64, delta int64) error
}
