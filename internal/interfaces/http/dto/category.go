package dto

import (
	"time"

	"z-novel-api/internal/application/category"
	"z-novel-api/internal/domain/entity"
)

// CreateCategoryRequest 创建分类请求
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description,omitempty"`
}

// ToInput 转换为应用层入参
func (r *CreateCategoryRequest) ToInput() category.CreateInput {
	return category.CreateInput{
		Name:        r.Name,
		Description: r.Description,
	}
}

// UpdateCategoryRequest 更新分类请求，缺省字段不修改
type UpdateCategoryRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// ToInput 转换为应用层入参
func (r *UpdateCategoryRequest) ToInput() category.UpdateInput {
	return category.UpdateInput{
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
	}
}

// CategoryResponse 分类响应
type CategoryResponse struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// ToCategoryResponse 从实体构建响应
func ToCategoryResponse(cat *entity.Category) *CategoryResponse {
	return &CategoryResponse{
		ID:          cat.ID,
		Name:        cat.Name,
		Slug:        cat.Slug,
		Description: cat.Description,
		IsActive:    cat.IsActive,
		CreatedAt:   cat.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   cat.UpdatedAt.Format(time.RFC3339),
	}
}

// CategoryListResponse 分类列表响应
type CategoryListResponse struct {
	Categories []*CategoryResponse `json:"categories"`
}

// ToCategoryListResponse 从实体列表构建响应
func ToCategoryListResponse(items []*entity.Category) CategoryListResponse {
	categories := make([]*CategoryResponse, 0, len(items))
	for _, cat := range items {
		categories = append(categories, ToCategoryResponse(cat))
	}
	return CategoryListResponse{Categories: categories}
}
