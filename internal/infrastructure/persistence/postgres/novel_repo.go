// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"z-novel-api/internal/domain/entity"
	"z-novel-api/internal/domain/repository"
)

// NovelRepository 小说仓储实现
type NovelRepository struct {
	client *Client
}

// NewNovelRepository 创建小说仓储
func NewNovelRepository(client *Client) *NovelRepository {
	return &NovelRepository{client: client}
}

// Create 创建小说
func (r *NovelRepository) Create(ctx context.Context, novel *entity.Novel) error {
	ctx, span := tracer.Start(ctx, "postgres.NovelRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(novel).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create novel: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取小说
func (r *NovelRepository) GetByID(ctx context.Context, id uint64) (*entity.Novel, error) {
	ctx, span := tracer.Start(ctx, "postgres.NovelRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var novel entity.Novel
	if err := db.First(&novel, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get novel: %w", err)
	}
	return &novel, nil
}

// GetByUUID 根据 UUID 获取小说
func (r *NovelRepository) GetByUUID(ctx context.Context, uuid string) (*entity.Novel, error) {
	ctx, span := tracer.Start(ctx, "postgres.NovelRepository.GetByUUID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var novel entity.Novel
	if err := db.First(&novel, "uuid = ?", uuid).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get novel by uuid: %w", err)
	}
	return &novel, nil
}

// Update 全量更新小说
func (r *NovelRepository) Update(ctx context.Context, novel *entity.Novel) error {
	ctx, span := tracer.Start(ctx, "postgres.NovelRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(novel).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update novel: %w", err)
	}
	return nil
}

// UpdateSelective 选择性更新指定列
func (r *NovelRepository) UpdateSelective(ctx context.Context, id uint64, fields map[string]any) error {
	ctx, span := tracer.Start(ctx, "postgres.NovelRepository.UpdateSelective")
	defer span.End()

	if len(fields) == 0 {
		return nil
	}

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Novel{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update novel fields: %w", err)
	}
	return nil
}

// List 按过滤条件分页查询
func (r *NovelRepository) List(ctx context.Context, filter *repository.NovelFilter, sort repository.Sort, pagination repository.Pagination) (*repository.PagedResult[*entity.Novel], error) {
	ctx, span := tracer.Start(ctx, "postgres.NovelRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Novel{})

	// 应用过滤条件
	if filter != nil {
		if filter.AuthorID > 0 {
			query = query.Where("author_id = ?", filter.AuthorID)
		}
		if filter.CategoryID > 0 {
			query = query.Where("category_id = ?", filter.CategoryID)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.IsCompleted != nil {
			query = query.Where("is_completed = ?", *filter.IsCompleted)
		}
		if filter.TitleLike != "" {
			query = query.Where("title ILIKE ?", "%"+filter.TitleLike+"%")
		}
	}

	// 获取总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count novels: %w", err)
	}

	// 获取列表
	order := "id DESC"
	if sort.Field != "" {
		order = fmt.Sprintf("%s %s", sort.Field, sort.Order)
	}
	var novels []*entity.Novel
	if err := query.Order(order).
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&novels).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list novels: %w", err)
	}

	return repository.NewPagedResult(novels, total, pagination), nil
}

// CountByCategory 统计引用指定分类的小说数量
func (r *NovelRepository) CountByCategory(ctx context.Context, categoryID uint64) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.NovelRepository.CountByCategory")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Novel{}).Where("category_id = ?", categoryID).Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count novels by category: %w", err)
	}
	return count, nil
}

// CountActiveByCategory 统计引用指定分类且未归档的小说数量
func (r *NovelRepository) CountActiveByCategory(ctx context.Context, categoryID uint64) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.NovelRepository.CountActiveByCategory")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Novel{}).
		Where("category_id = ? AND status <> ?", categoryID, entity.NovelStatusArchived).
		Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count active novels by category: %w", err)
	}
	return count, nil
}

// IncrementViewCount 持久化浏览量增量
func (r *NovelRepository) IncrementViewCount(ctx context.Context, id uint64, delta int64) error {
	ctx, span := tracer.Start(ctx, "postgres.NovelRepository.IncrementViewCount")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Novel{}).Where("id = ?", id).
		Update("view_cnt", gorm.Expr("view_cnt + ?", delta)).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to increment novel view count: %w", err)
	}
	return nil
}
