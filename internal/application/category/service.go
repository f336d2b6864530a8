// Package category 实现分类管理
package category

import (
	"context"
	"strings"

	"z-novel-api/internal/application/authz"
	appcache "z-novel-api/internal/application/cache"
	"z-novel-api/internal/application/event"
	"z-novel-api/internal/application/sideeffect"
	"z-novel-api/internal/domain/entity"
	"z-novel-api/internal/domain/repository"
	"z-novel-api/pkg/errors"
)

// Service 分类应用服务
// 分类仅管理员可变更；名称大小写不敏感唯一，slug 由名称派生
type Service struct {
	categoryRepo repository.CategoryRepository
	novelRepo    repository.NovelRepository
	tx           repository.Transactor
	cache        *appcache.Controller
	emitter      *event.Emitter
}

// NewService 创建分类服务
func NewService(
	categoryRepo repository.CategoryRepository,
	novelRepo repository.NovelRepository,
	tx repository.Transactor,
	cacheCtl *appcache.Controller,
	emitter *event.Emitter,
) *Service {
	return &Service{
		categoryRepo: categoryRepo,
		novelRepo:    novelRepo,
		tx:           tx,
		cache:        cacheCtl,
		emitter:      emitter,
	}
}

// CreateInput 创建分类入参
type CreateInput struct {
	Name        string
	Description string
}

// Create 创建分类
// 名称大小写不敏感唯一；slug 由名称派生并同样要求唯一
func (s *Service) Create(ctx context.Context, actor authz.Actor, input CreateInput) (*entity.Category, error) {
	if !actor.IsAdmin() {
		return nil, errors.ErrForbidden.WithDetail("only admin can manage categories")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.ErrValidationFailed.WithDetail("name is required")
	}
	slug := entity.DeriveSlug(name)
	if slug == "" {
		return nil, errors.ErrValidationFailed.WithDetail("name yields empty slug")
	}

	category := &entity.Category{
		Name:        name,
		Slug:        slug,
		Description: input.Description,
		IsActive:    true,
	}

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.categoryRepo.GetByNameInsensitive(txCtx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			return errors.ErrCategoryNameTaken
		}
		bySlug, err := s.categoryRepo.GetBySlug(txCtx, slug)
		if err != nil {
			return err
		}
		if bySlug != nil {
			return errors.ErrCategoryNameTaken.WithDetail("derived slug already used")
		}
		return s.categoryRepo.Create(txCtx, category)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actor, category, event.TypeCategoryCreated)
	return category, nil
}

// UpdateInput 更新分类入参，nil 字段不修改
type UpdateInput struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// Update 更新分类，改名会重派生 slug
func (s *Service) Update(ctx context.Context, actor authz.Actor, id uint64, input UpdateInput) (*entity.Category, error) {
	if !actor.IsAdmin() {
		return nil, errors.ErrForbidden.WithDetail("only admin can manage categories")
	}

	var category *entity.Category
	var changed bool
	var staleSlugs []string

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		category, err = s.categoryRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if category == nil {
			return errors.ErrCategoryNotFound
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name != "" && name != category.Name {
				existing, err := s.categoryRepo.GetByNameInsensitive(txCtx, name)
				if err != nil {
					return err
				}
				if existing != nil && existing.ID != id {
					return errors.ErrCategoryNameTaken
				}
				slug := entity.DeriveSlug(name)
				bySlug, err := s.categoryRepo.GetBySlug(txCtx, slug)
				if err != nil {
					return err
				}
				if bySlug != nil && bySlug.ID != id {
					return errors.ErrCategoryNameTaken.WithDetail("derived slug already used")
				}
				// 旧 slug 的缓存键同样可能反映旧值，一并失效
				if slug != category.Slug {
					staleSlugs = append(staleSlugs, category.Slug)
				}
				category.Name = name
				category.Slug = slug
				changed = true
			}
		}
		if input.Description != nil && *input.Description != category.Description {
			category.Description = *input.Description
			changed = true
		}
		if input.IsActive != nil && *input.IsActive != category.IsActive {
			// 停用前要求没有未归档小说引用
			if !*input.IsActive {
				count, err := s.novelRepo.CountActiveByCategory(txCtx, id)
				if err != nil {
					return err
				}
				if count > 0 {
					return errors.ErrCategoryReferenced.WithDetail("active novels still reference this category")
				}
			}
			category.IsActive = *input.IsActive
			changed = true
		}

		if !changed {
			return nil
		}
		return s.categoryRepo.Update(txCtx, category)
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		return category, nil
	}
	s.afterCommit(ctx, actor, category, event.TypeCategoryUpdated, staleSlugs...)
	return category, nil
}

// Delete 物理删除分类，任何小说引用（含归档）都会阻止删除
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id uint64) error {
	if !actor.IsAdmin() {
		return errors.ErrForbidden.WithDetail("only admin can manage categories")
	}

	var category *entity.Category
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		category, err = s.categoryRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if category == nil {
			return errors.ErrCategoryNotFound
		}

		count, err := s.novelRepo.CountByCategory(txCtx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return errors.ErrCategoryReferenced
		}
		return s.categoryRepo.Delete(txCtx, id)
	})
	if err != nil {
		return err
	}

	s.afterCommit(ctx, actor, category, event.TypeCategoryDeleted)
	return nil
}

// Get 获取分类
func (s *Service) Get(ctx context.Context, id uint64) (*entity.Category, error) {
	category, err := appcache.GetOrLoadJSON(ctx, s.cache, "category", appcache.CategoryByID(id), s.cache.TTL(), func() (*entity.Category, error) {
		return s.categoryRepo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, errors.ErrCategoryNotFound
	}
	return category, nil
}

// GetBySlug 按 slug 获取分类
func (s *Service) GetBySlug(ctx context.Context, slug string) (*entity.Category, error) {
	category, err := appcache.GetOrLoadJSON(ctx, s.cache, "category", appcache.CategoryBySlug(slug), s.cache.TTL(), func() (*entity.Category, error) {
		return s.categoryRepo.GetBySlug(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, errors.ErrCategoryNotFound
	}
	return category, nil
}

// List 分类列表；普通调用方只看启用的分类
func (s *Service) List(ctx context.Context, actor authz.Actor) ([]*entity.Category, error) {
	onlyActive := !actor.IsAdmin()
	if onlyActive {
		return appcache.GetOrLoadJSON(ctx, s.cache, "category_list", appcache.CategoryList(), s.cache.TTL(), func() ([]*entity.Category, error) {
			return s.categoryRepo.List(ctx, true)
		})
	}
	return s.categoryRepo.List(ctx, false)
}

// afterCommit 提交后的副作用：缓存失效与事件发布
func (s *Service) afterCommit(ctx context.Context, actor authz.Actor, category *entity.Category, evType event.Type, staleSlugs ...string) {
	sideeffect.Run(ctx, "cache", func(cctx context.Context) error {
		return s.cache.InvalidateCategory(cctx, category, staleSlugs...)
	})
	s.emitter.EmitNew(ctx, event.TopicCategory, "category:"+category.Slug, evType, actor.UserID, map[string]any{
		"category_id": category.ID,
		"name":        category.Name,
		"slug":        category.Slug,
		"is_active":   category.IsActive,
	})
}
