// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"z-novel-api/internal/domain/entity"
)

// CategoryRepository 分类仓储实现
type CategoryRepository struct {
	client *Client
}

// NewCategoryRepository 创建分类仓储
func NewCategoryRepository(client *Client) *CategoryRepository {
	return &CategoryRepository{client: client}
}

// Create 创建分类
func (r *CategoryRepository) Create(ctx context.Context, category *entity.Category) error {
	ctx, span := tracer.Start(ctx, "postgres.CategoryRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(category).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取分类
func (r *CategoryRepository) GetByID(ctx context.Context, id uint64) (*entity.Category, error) {
	ctx, span := tracer.Start(ctx, "postgres.CategoryRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var category entity.Category
	if err := db.First(&category, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &category, nil
}

// GetBySlug 根据 slug 获取分类
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*entity.Category, error) {
	ctx, span := tracer.Start(ctx, "postgres.CategoryRepository.GetBySlug")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var category entity.Category
	if err := db.First(&category, "slug = ?", slug).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get category by slug: %w", err)
	}
	return &category, nil
}

// GetByNameInsensitive 大小写不敏感地按名称获取分类
func (r *CategoryRepository) GetByNameInsensitive(ctx context.Context, name string) (*entity.Category, error) {
	ctx, span := tracer.Start(ctx, "postgres.CategoryRepository.GetByNameInsensitive")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var category entity.Category
	if err := db.Where("LOWER(name) = LOWER(?)", name).First(&category).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get category by name: %w", err)
	}
	return &category, nil
}

// Update 更新分类
func (r *CategoryRepository) Update(ctx context.Context, category *entity.Category) error {
	ctx, span := tracer.Start(ctx, "postgres.CategoryRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(category).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update category: %w", err)
	}
	return nil
}

// List 获取分类列表
func (r *CategoryRepository) List(ctx context.Context, onlyActive bool) ([]*entity.Category, error) {
	ctx, span := tracer.Start(ctx, "postgres.CategoryRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Category{})
	if onlyActive {
		query = query.Where("is_active = ?", true)
	}

	var categories []*entity.Category
	if err := query.Order("id ASC").Find(&categories).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Delete 物理删除分类
func (r *CategoryRepository) Delete(ctx context.Context, id uint64) error {
	ctx, span := tracer.Start(ctx, "postgres.CategoryRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Category{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}
