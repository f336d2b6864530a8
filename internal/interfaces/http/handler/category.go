package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-api/internal/application/category"
	"z-novel-api/internal/interfaces/http/dto"
)

// CategoryHandler 分类处理器
type CategoryHandler struct {
	categorySvc *category.Service
}

// NewCategoryHandler 创建分类处理器
func NewCategoryHandler(categorySvc *category.Service) *CategoryHandler {
	return &CategoryHandler{categorySvc: categorySvc}
}

// ListCategories 分类列表
// @Summary 分类列表
// @Description 普通调用方只看到启用的分类，管理员看到全部
// @Tags Categories
// @Produce json
// @Success 200 {object} dto.Response[dto.CategoryListResponse]
// @Router /v1/categories [get]
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	items, err := h.categorySvc.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err, "failed to list categories")
		return
	}
	dto.Success(c, dto.ToCategoryListResponse(items))
}

// CreateCategory 创建分类
// @Summary 创建分类
// @Description 仅管理员；名称大小写不敏感唯一，slug 由名称派生
// @Tags Categories
// @Accept json
// @Produce json
// @Param body body dto.CreateCategoryRequest true "分类信息"
// @Success 201 {object} dto.Response[dto.CategoryResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.categorySvc.Create(c.Request.Context(), actorFrom(c), req.ToInput())
	if err != nil {
		respondError(c, err, "failed to create category")
		return
	}
	dto.Created(c, dto.ToCategoryResponse(result))
}

// GetCategory 获取分类
// @Summary 获取分类
// @Tags Categories
// @Produce json
// @Param id path int true "分类 ID"
// @Success 200 {object} dto.Response[dto.CategoryResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/categories/{id} [get]
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, ok := dto.BindCategoryID(c)
	if !ok {
		dto.BadRequest(c, "invalid category id")
		return
	}

	result, err := h.categorySvc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to get category")
		return
	}
	dto.Success(c, dto.ToCategoryResponse(result))
}

// GetCategoryBySlug 按 slug 获取分类
// @Summary 按 slug 获取分类
// @Tags Categories
// @Produce json
// @Param slug path string true "分类 slug"
// @Success 200 {object} dto.Response[dto.CategoryResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/categories/slug/{slug} [get]
func (h *CategoryHandler) GetCategoryBySlug(c *gin.Context) {
	slug := c.Param("slug")
	if slug == "" {
		dto.BadRequest(c, "invalid category slug")
		return
	}

	result, err := h.categorySvc.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		respondError(c, err, "failed to get category")
		return
	}
	dto.Success(c, dto.ToCategoryResponse(result))
}

// UpdateCategory 更新分类
// @Summary 更新分类
// @Description 仅管理员；改名会重派生 slug，停用要求没有未归档小说引用
// @Tags Categories
// @Accept json
// @Produce json
// @Param id path int true "分类 ID"
// @Param body body dto.UpdateCategoryRequest true "更新字段"
// @Success 200 {object} dto.Response[dto.CategoryResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := dto.BindCategoryID(c)
	if !ok {
		dto.BadRequest(c, "invalid category id")
		return
	}

	var req dto.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.categorySvc.Update(c.Request.Context(), actorFrom(c), id, req.ToInput())
	if err != nil {
		respondError(c, err, "failed to update category")
		return
	}
	dto.Success(c, dto.ToCategoryResponse(result))
}

// DeleteCategory 删除分类
// @Summary 删除分类
// @Description 仅管理员；任何小说引用（含归档）都会阻止删除
// @Tags Categories
// @Produce json
// @Param id path int true "分类 ID"
// @Success 204
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := dto.BindCategoryID(c)
	if !ok {
		dto.BadRequest(c, "invalid category id")
		return
	}

	if err := h.categorySvc.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err, "failed to delete category")
		return
	}
	dto.NoContent(c)
}
