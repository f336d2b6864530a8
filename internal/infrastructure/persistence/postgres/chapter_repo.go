// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"z-novel-api/internal/domain/entity"
	"z-novel-api/internal/domain/repository"
)

// ChapterRepository 章节仓储实现
type ChapterRepository struct {
	client *Client
}

// NewChapterRepository 创建章节仓储
func NewChapterRepository(client *Client) *ChapterRepository {
	return &ChapterRepository{client: client}
}

// Create 创建章节
func (r *ChapterRepository) Create(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(chapter).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create chapter: %w", err)
	}
	return nil
}

// CreateBatch 批量创建章节
func (r *ChapterRepository) CreateBatch(ctx context.Context, chapters []*entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.CreateBatch")
	defer span.End()

	if len(chapters) == 0 {
		return nil
	}

	db := getDB(ctx, r.client.db)
	if err := db.Create(chapters).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create chapters: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取章节
func (r *ChapterRepository) GetByID(ctx context.Context, id uint64) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.First(&chapter, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return &chapter, nil
}

// GetByUUID 根据 UUID 获取章节
func (r *ChapterRepository) GetByUUID(ctx context.Context, uuid string) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetByUUID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.First(&chapter, "uuid = ?", uuid).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter by uuid: %w", err)
	}
	return &chapter, nil
}

// GetByNovelAndNumber 根据小说和章节号获取章节
func (r *ChapterRepository) GetByNovelAndNumber(ctx context.Context, novelID uint64, number int) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetByNovelAndNumber")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.Where("novel_id = ? AND chapter_number = ? AND is_valid = ?", novelID, number, true).
		First(&chapter).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter by novel and number: %w", err)
	}
	return &chapter, nil
}

// UpdateSelective 选择性更新指定列
func (r *ChapterRepository) UpdateSelective(ctx context.Context, id uint64, fields map[string]any) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.UpdateSelective")
	defer span.End()

	if len(fields) == 0 {
		return nil
	}

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Chapter{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update chapter fields: %w", err)
	}
	return nil
}

// ExistsByNovelAndNumber 检查章节号在未删除章节中是否已占用
func (r *ChapterRepository) ExistsByNovelAndNumber(ctx context.Context, novelID uint64, number int) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ExistsByNovelAndNumber")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Chapter{}).
		Where("novel_id = ? AND chapter_number = ? AND is_valid = ?", novelID, number, true).
		Count(&count).Error; err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check chapter number: %w", err)
	}
	return count > 0, nil
}

// ListByNovel 获取小说章节列表（按章节号排序）
func (r *ChapterRepository) ListByNovel(ctx context.Context, novelID uint64, filter *repository.ChapterFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Chapter], error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListByNovel")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Chapter{}).Where("novel_id = ?", novelID)

	// 应用过滤条件
	if filter != nil {
		if filter.IsPremium != nil {
			query = query.Where("is_premium = ?", *filter.IsPremium)
		}
		if filter.IsValid != nil {
			query = query.Where("is_valid = ?", *filter.IsValid)
		}
		if filter.VisibleOnly {
			query = query.Where("is_valid = ? AND publish_time <= ?", true, time.Now())
		}
	}

	// 获取总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count chapters: %w", err)
	}

	// 获取列表
	var chapters []*entity.Chapter
	if err := query.Order("chapter_number ASC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}

	return repository.NewPagedResult(chapters, total, pagination), nil
}

// ListAllByNovel 获取小说全部章节
func (r *ChapterRepository) ListAllByNovel(ctx context.Context, novelID uint64) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListAllByNovel")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapters []*entity.Chapter
	if err := db.Where("novel_id = ?", novelID).
		Order("chapter_number ASC").
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list all chapters: %w", err)
	}
	return chapters, nil
}

// CountPublished 统计可见章节数
func (r *ChapterRepository) CountPublished(ctx context.Context, novelID uint64, now time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.CountPublished")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Chapter{}).
		Where("novel_id = ? AND is_valid = ? AND publish_time <= ?", novelID, true, now).
		Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count published chapters: %w", err)
	}
	return count, nil
}

// SumPublishedWordCount 统计可见章节字数之和
func (r *ChapterRepository) SumPublishedWordCount(ctx context.Context, novelID uint64, now time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.SumPublishedWordCount")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var sum *int64
	if err := db.Model(&entity.Chapter{}).
		Where("novel_id = ? AND is_valid = ? AND publish_time <= ?", novelID, true, now).
		Select("SUM(word_cnt)").Scan(&sum).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to sum published word count: %w", err)
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

// Next 获取章节号严格大于 number 的最小章节
func (r *ChapterRepository) Next(ctx context.Context, novelID uint64, number int) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Next")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.Where("novel_id = ? AND chapter_number > ? AND is_valid = ?", novelID, number, true).
		Order("chapter_number ASC").
		First(&chapter).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get next chapter: %w", err)
	}
	return &chapter, nil
}

// Previous 获取章节号严格小于 number 的最大章节
func (r *ChapterRepository) Previous(ctx context.Context, novelID uint64, number int) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Previous")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.Where("novel_id = ? AND chapter_number < ? AND is_valid = ?", novelID, number, true).
		Order("chapter_number DESC").
		First(&chapter).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get previous chapter: %w", err)
	}
	return &chapter, nil
}

// SoftDelete 软删除单个章节
func (r *ChapterRepository) SoftDelete(ctx context.Context, id uint64) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.SoftDelete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Chapter{}).Where("id = ?", id).
		Update("is_valid", false).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to soft delete chapter: %w", err)
	}
	return nil
}

// SoftDeleteByNovel 软删除小说的全部章节
func (r *ChapterRepository) SoftDeleteByNovel(ctx context.Context, novelID uint64) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.SoftDeleteByNovel")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Chapter{}).Where("novel_id = ?", novelID).
		Update("is_valid", false).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to soft delete chapters: %w", err)
	}
	return nil
}

// SetValidByNovel 批量设置小说全部章节的 is_valid
func (r *ChapterRepository) SetValidByNovel(ctx context.Context, novelID uint64, valid bool) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.SetValidByNovel")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Chapter{}).Where("novel_id = ?", novelID).
		Update("is_valid", valid).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set chapters valid flag: %w", err)
	}
	return nil
}

// IncrementViewCount 持久化章节浏览量增量
func (r *ChapterRepository) IncrementViewCount(ctx context.Context, id uint64, delta int64) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.IncrementViewCount")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Chapter{}).Where("id = ?", id).
		Update("view_cnt", gorm.Expr("view_cnt + ?", delta)).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to increment chapter view count: %w", err)
	}
	return nil
}
