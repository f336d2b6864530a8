// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-novel-api/internal/domain/entity"
)

// CategoryRepository 分类仓储接口
type CategoryRepository interface {
	// Create 创建分类
	Create(ctx context.Context, category *entity.Category) error

	// GetByID 根据 ID 获取分类
	GetByID(ctx context.Context, id uint64) (*entity.Category, error)

	// GetBySlug 根据 slug 获取分类
	GetBySlug(ctx context.Context, slug string) (*entity.Category, error)

	// GetByNameInsensitive 大小写不敏感地按名称获取分类
	GetByNameInsensitive(ctx context.Context, name string) (*entity.Category, error)

	// Update 更新分类
	Update(ctx context.Context, category *entity.Category) error

	// List 获取分类列表
	List(ctx context.Context, onlyActive bool) ([]*entity.Category, error)

	// Delete 物理删除分类（调用方先确认无小说引用）
	Delete(ctx context.Context, id uint64) error
}
