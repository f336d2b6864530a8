package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"z-novel-api/internal/application/authz"
	"z-novel-api/internal/application/novel"
	"z-novel-api/internal/domain/entity"
	"z-novel-api/internal/domain/repository"
	"z-novel-api/internal/interfaces/http/dto"
)

// NovelHandler 小说处理器
type NovelHandler struct {
	novelSvc *novel.Service
}

// NewNovelHandler 创建小说处理器
func NewNovelHandler(novelSvc *novel.Service) *NovelHandler {
	return &NovelHandler{novelSvc: novelSvc}
}

// CreateNovel 创建小说
// @Summary 创建小说
// @Description 创建新小说，初始状态为 DRAFT
// @Tags Novels
// @Accept json
// @Produce json
// @Param body body dto.CreateNovelRequest true "小说信息"
// @Success 201 {object} dto.Response[dto.NovelResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/novels [post]
func (h *NovelHandler) CreateNovel(c *gin.Context) {
	var req dto.CreateNovelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.novelSvc.Create(c.Request.Context(), actorFrom(c), req.ToInput())
	if err != nil {
		respondError(c, err, "failed to create novel")
		return
	}
	dto.Created(c, dto.ToNovelResponse(result))
}

// GetNovel 获取小说详情
// @Summary 获取小说详情
// @Tags Novels
// @Produce json
// @Param nid path int true "小说 ID"
// @Success 200 {object} dto.Response[dto.NovelResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/novels/{nid} [get]
func (h *NovelHandler) GetNovel(c *gin.Context) {
	id, ok := dto.BindNovelID(c)
	if !ok {
		dto.BadRequest(c, "invalid novel id")
		return
	}

	result, err := h.novelSvc.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err, "failed to get novel")
		return
	}
	dto.Success(c, dto.ToNovelResponse(result))
}

// GetNovelByUUID 按 UUID 获取小说详情
// @Summary 按 UUID 获取小说详情
// @Tags Novels
// @Produce json
// @Param uuid path string true "小说 UUID"
// @Success 200 {object} dto.Response[dto.NovelResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/novels/uuid/{uuid} [get]
func (h *NovelHandler) GetNovelByUUID(c *gin.Context) {
	novelUUID := c.Param("uuid")
	if novelUUID == "" {
		dto.BadRequest(c, "invalid novel uuid")
		return
	}

	result, err := h.novelSvc.GetByUUID(c.Request.Context(), actorFrom(c), novelUUID)
	if err != nil {
		respondError(c, err, "failed to get novel")
		return
	}
	dto.Success(c, dto.ToNovelResponse(result))
}

// ListNovels 小说列表
// @Summary 小说列表
// @Description 按过滤条件分页查询小说
// @Tags Novels
// @Produce json
// @Param author_id query int false "作者 ID"
// @Param category_id query int false "分类 ID"
// @Param status query string false "状态"
// @Param is_completed query bool false "是否完结"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.NovelListResponse]
// @Router /v1/novels [get]
func (h *NovelHandler) ListNovels(c *gin.Context) {
	ctx := c.Request.Context()
	pageReq := dto.BindPage(c)

	filter := &repository.NovelFilter{
		Status:    entity.NovelStatus(c.Query("status")),
		TitleLike: c.Query("title"),
	}
	if v, err := parseQueryUint64(c, "author_id"); err == nil {
		filter.AuthorID = v
	}
	if v, err := parseQueryUint64(c, "category_id"); err == nil {
		filter.CategoryID = v
	}
	if raw := c.Query("is_completed"); raw != "" {
		completed := raw == "true"
		filter.IsCompleted = &completed
	}

	sort := repository.NewSort(c.DefaultQuery("sort", "updated_at"), sortOrder(c))
	result, err := h.novelSvc.List(ctx, filter, sort, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		respondError(c, err, "failed to list novels")
		return
	}

	resp := dto.ToNovelListResponse(result.Items)
	dto.SuccessWithPage(c, resp, dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total)))
}

// PopularNovels 热门小说榜单
// @Summary 热门小说榜单
// @Tags Novels
// @Produce json
// @Param limit query int false "数量" default(10)
// @Success 200 {object} dto.Response[dto.NovelListResponse]
// @Router /v1/novels/popular [get]
func (h *NovelHandler) PopularNovels(c *gin.Context) {
	limit := 10
	if v, err := parseQueryUint64(c, "limit"); err == nil && v > 0 {
		limit = int(v)
	}

	items, err := h.novelSvc.Popular(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "failed to list popular novels")
		return
	}
	dto.Success(c, dto.ToNovelListResponse(items))
}

// UpdateNovel 更新小说
// @Summary 更新小说
// @Description 编辑小说内容；已发布小说修改完结标记以外的字段会降级回审核状态
// @Tags Novels
// @Accept json
// @Produce json
// @Param nid path int true "小说 ID"
// @Param body body dto.UpdateNovelRequest true "更新字段"
// @Success 200 {object} dto.Response[dto.NovelResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/novels/{nid} [put]
func (h *NovelHandler) UpdateNovel(c *gin.Context) {
	id, ok := dto.BindNovelID(c)
	if !ok {
		dto.BadRequest(c, "invalid novel id")
		return
	}

	var req dto.UpdateNovelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.novelSvc.Update(c.Request.Context(), actorFrom(c), id, req.ToInput())
	if err != nil {
		respondError(c, err, "failed to update novel")
		return
	}
	dto.Success(c, dto.ToNovelResponse(result))
}

// SubmitNovel 提交审核
// @Summary 提交审核
// @Tags Novels
// @Produce json
// @Param nid path int true "小说 ID"
// @Success 200 {object} dto.Response[dto.NovelResponse]
// @Router /v1/novels/{nid}/submit [post]
func (h *NovelHandler) SubmitNovel(c *gin.Context) {
	h.transition(c, h.novelSvc.SubmitForReview)
}

// ApproveNovel 审核通过
// @Summary 审核通过
// @Tags Novels
// @Produce json
// @Param nid path int true "小说 ID"
// @Success 200 {object} dto.Response[dto.NovelResponse]
// @Router /v1/novels/{nid}/approve [post]
func (h *NovelHandler) ApproveNovel(c *gin.Context) {
	h.transition(c, h.novelSvc.Approve)
}

// RejectNovel 审核驳回
// @Summary 审核驳回
// @Tags Novels
// @Produce json
// @Param nid path int true "小说 ID"
// @Success 200 {object} dto.Response[dto.NovelResponse]
// @Router /v1/novels/{nid}/reject [post]
func (h *NovelHandler) RejectNovel(c *gin.Context) {
	h.transition(c, h.novelSvc.Reject)
}

// HideNovel 下架小说
// @Summary 下架小说
// @Tags Novels
// @Produce json
// @Param nid path int true "小说 ID"
// @Success 200 {object} dto.Response[dto.NovelResponse]
// @Router /v1/novels/{nid}/hide [post]
func (h *NovelHandler) HideNovel(c *gin.Context) {
	h.transition(c, h.novelSvc.Hide)
}

// UnhideNovel 重新上架小说
// @Summary 重新上架小说
// @Tags Novels
// @Produce json
// @Param nid path int true "小说 ID"
// @Success 200 {object} dto.Response[dto.NovelResponse]
// @Router /v1/novels/{nid}/unhide [post]
func (h *NovelHandler) UnhideNovel(c *gin.Context) {
	h.transition(c, h.novelSvc.Unhide)
}

// ArchiveNovel 归档小说
// @Summary 归档小说
// @Description 归档为终态，归档后小说不可编辑、不可再转换状态
// @Tags Novels
// @Produce json
// @Param nid path int true "小说 ID"
// @Success 200 {object} dto.Response[dto.NovelResponse]
// @Router /v1/novels/{nid}/archive [post]
func (h *NovelHandler) ArchiveNovel(c *gin.Context) {
	h.transition(c, h.novelSvc.Archive)
}

// transition 状态转换处理的公共路径
func (h *NovelHandler) transition(c *gin.Context, fn func(ctx context.Context, actor authz.Actor, id uint64) (*entity.Novel, error)) {
	id, ok := dto.BindNovelID(c)
	if !ok {
		dto.BadRequest(c, "invalid novel id")
		return
	}

	result, err := fn(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err, "failed to transition novel")
		return
	}
	dto.Success(c, dto.ToNovelResponse(result))
}

// IncrementNovelView 小说浏览量自增
// @Summary 小说浏览量自增
// @Tags Novels
// @Produce json
// @Param nid path int true "小说 ID"
// @Success 204
// @Router /v1/novels/{nid}/view [post]
func (h *NovelHandler) IncrementNovelView(c *gin.Context) {
	id, ok := dto.BindNovelID(c)
	if !ok {
		dto.BadRequest(c, "invalid novel id")
		return
	}

	if err := h.novelSvc.IncrementView(c.Request.Context(), id); err != nil {
		respondError(c, err, "failed to increment view count")
		return
	}
	dto.NoContent(c)
}

// NovelStats 小说统计报表
// @Summary 小说统计报表
// @Tags Novels
// @Produce json
// @Param nid path int true "小说 ID"
// @Success 200 {object} dto.Response[dto.NovelStatsResponse]
// @Router /v1/novels/{nid}/stats [get]
func (h *NovelHandler) NovelStats(c *gin.Context) {
	id, ok := dto.BindNovelID(c)
	if !ok {
		dto.BadRequest(c, "invalid novel id")
		return
	}

	report, err := h.novelSvc.Stats(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err, "failed to build novel stats")
		return
	}
	dto.Success(c, dto.ToNovelStatsResponse(report))
}
