package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-api/internal/application/chapter"
	"z-novel-api/internal/domain/repository"
	"z-novel-api/internal/interfaces/http/dto"
)

// ChapterHandler 章节处理器
type ChapterHandler struct {
	chapterSvc *chapter.Service
}

// NewChapterHandler 创建章节处理器
func NewChapterHandler(chapterSvc *chapter.Service) *ChapterHandler {
	return &ChapterHandler{chapterSvc: chapterSvc}
}

// ListChapters 获取章节列表
// @Summary 获取章节列表
// @Description 获取指定小说的章节列表，非特权调用方只看到可见章节
// @Tags Chapters
// @Produce json
// @Param nid path int true "小说 ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.ChapterListResponse]
// @Router /v1/novels/{nid}/chapters [get]
func (h *ChapterHandler) ListChapters(c *gin.Context) {
	novelID, ok := dto.BindNovelID(c)
	if !ok {
		dto.BadRequest(c, "invalid novel id")
		return
	}
	pageReq := dto.BindPage(c)

	result, err := h.chapterSvc.List(c.Request.Context(), actorFrom(c), novelID,
		repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		respondError(c, err, "failed to list chapters")
		return
	}

	resp := dto.ToChapterListResponse(result.Items)
	dto.SuccessWithPage(c, resp, dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total)))
}

// CreateChapter 创建章节
// @Summary 创建章节
// @Description 创建新章节，章节号在小说内唯一
// @Tags Chapters
// @Accept json
// @Produce json
// @Param nid path int true "小说 ID"
// @Param body body dto.CreateChapterRequest true "章节信息"
// @Success 201 {object} dto.Response[dto.ChapterResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/novels/{nid}/chapters [post]
func (h *ChapterHandler) CreateChapter(c *gin.Context) {
	novelID, ok := dto.BindNovelID(c)
	if !ok {
		dto.BadRequest(c, "invalid novel id")
		return
	}

	var req dto.CreateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.chapterSvc.Create(c.Request.Context(), actorFrom(c), req.ToInput(novelID))
	if err != nil {
		respondError(c, err, "failed to create chapter")
		return
	}
	dto.Created(c, dto.ToChapterResponse(result))
}

// BatchCreateChapters 批量创建章节
// @Summary 批量创建章节
// @Description 原子批量创建，任一章节校验失败则整批拒绝
// @Tags Chapters
// @Accept json
// @Produce json
// @Param nid path int true "小说 ID"
// @Param body body dto.BatchCreateChapterRequest true "章节列表"
// @Success 201 {object} dto.Response[dto.ChapterListResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/novels/{nid}/chapters/batch [post]
func (h *ChapterHandler) BatchCreateChapters(c *gin.Context) {
	novelID, ok := dto.BindNovelID(c)
	if !ok {
		dto.BadRequest(c, "invalid novel id")
		return
	}

	var req dto.BatchCreateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	results, err := h.chapterSvc.BatchCreate(c.Request.Context(), actorFrom(c), novelID, req.ToInputs(novelID))
	if err != nil {
		respondError(c, err, "failed to batch create chapters")
		return
	}
	dto.Created(c, dto.ToChapterListResponse(results))
}

// GetChapter 获取章节详情
// @Summary 获取章节详情
// @Tags Chapters
// @Produce json
// @Param cid path int true "章节 ID"
// @Success 200 {object} dto.Response[dto.ChapterResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/chapters/{cid} [get]
func (h *ChapterHandler) GetChapter(c *gin.Context) {
	id, ok := dto.BindChapterID(c)
	if !ok {
		dto.BadRequest(c, "invalid chapter id")
		return
	}

	result, err := h.chapterSvc.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err, "failed to get chapter")
		return
	}
	dto.Success(c, dto.ToChapterResponse(result))
}

// GetChapterByUUID 按 UUID 获取章节详情
// @Summary 按 UUID 获取章节详情
// @Tags Chapters
// @Produce json
// @Param uuid path string true "章节 UUID"
// @Success 200 {object} dto.Response[dto.ChapterResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/chapters/uuid/{uuid} [get]
func (h *ChapterHandler) GetChapterByUUID(c *gin.Context) {
	chapterUUID := c.Param("uuid")
	if chapterUUID == "" {
		dto.BadRequest(c, "invalid chapter uuid")
		return
	}

	result, err := h.chapterSvc.GetByUUID(c.Request.Context(), actorFrom(c), chapterUUID)
	if err != nil {
		respondError(c, err, "failed to get chapter")
		return
	}
	dto.Success(c, dto.ToChapterResponse(result))
}

// GetChapterByNumber 按章节号获取章节
// @Summary 按章节号获取章节
// @Tags Chapters
// @Produce json
// @Param nid path int true "小说 ID"
// @Param num path int true "章节号"
// @Success 200 {object} dto.Response[dto.ChapterResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/novels/{nid}/chapters/number/{num} [get]
func (h *ChapterHandler) GetChapterByNumber(c *gin.Context) {
	novelID, ok := dto.BindNovelID(c)
	if !ok {
		dto.BadRequest(c, "invalid novel id")
		return
	}
	number, ok := dto.BindChapterNumber(c)
	if !ok {
		dto.BadRequest(c, "invalid chapter number")
		return
	}

	result, err := h.chapterSvc.GetByNumber(c.Request.Context(), actorFrom(c), novelID, number)
	if err != nil {
		respondError(c, err, "failed to get chapter")
		return
	}
	dto.Success(c, dto.ToChapterResponse(result))
}

// ChapterNavigation 章节导航
// @Summary 章节导航
// @Description 返回指定章节号的上一章/下一章摘要，边界处为 null
// @Tags Chapters
// @Produce json
// @Param nid path int true "小说 ID"
// @Param num path int true "章节号"
// @Success 200 {object} dto.Response[dto.ChapterNavigationResponse]
// @Router /v1/novels/{nid}/chapters/number/{num}/navigation [get]
func (h *ChapterHandler) ChapterNavigation(c *gin.Context) {
	novelID, ok := dto.BindNovelID(c)
	if !ok {
		dto.BadRequest(c, "invalid novel id")
		return
	}
	number, ok := dto.BindChapterNumber(c)
	if !ok {
		dto.BadRequest(c, "invalid chapter number")
		return
	}

	ctx := c.Request.Context()
	prev, err := h.chapterSvc.Previous(ctx, novelID, number)
	if err != nil {
		respondError(c, err, "failed to resolve previous chapter")
		return
	}
	next, err := h.chapterSvc.Next(ctx, novelID, number)
	if err != nil {
		respondError(c, err, "failed to resolve next chapter")
		return
	}

	resp := dto.ChapterNavigationResponse{}
	if prev != nil {
		resp.Previous = dto.ToChapterSummaryResponse(prev)
	}
	if next != nil {
		resp.Next = dto.ToChapterSummaryResponse(next)
	}
	dto.Success(c, resp)
}

// UpdateChapter 更新章节
// @Summary 更新章节
// @Description 编辑章节内容；正文变化且未显式给出字数时重新派生字数
// @Tags Chapters
// @Accept json
// @Produce json
// @Param cid path int true "章节 ID"
// @Param body body dto.UpdateChapterRequest true "更新字段"
// @Success 200 {object} dto.Response[dto.ChapterResponse]
// @Router /v1/chapters/{cid} [put]
func (h *ChapterHandler) UpdateChapter(c *gin.Context) {
	id, ok := dto.BindChapterID(c)
	if !ok {
		dto.BadRequest(c, "invalid chapter id")
		return
	}

	var req dto.UpdateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.chapterSvc.Update(c.Request.Context(), actorFrom(c), id, req.ToInput())
	if err != nil {
		respondError(c, err, "failed to update chapter")
		return
	}
	dto.Success(c, dto.ToChapterResponse(result))
}

// PublishChapter 发布章节
// @Summary 发布章节
// @Description 发布章节并设置发布时间，未来时间表示定时发布；可恢复已软删章节
// @Tags Chapters
// @Accept json
// @Produce json
// @Param cid path int true "章节 ID"
// @Param body body dto.PublishChapterRequest false "发布时间"
// @Success 200 {object} dto.Response[dto.ChapterResponse]
// @Router /v1/chapters/{cid}/publish [post]
func (h *ChapterHandler) PublishChapter(c *gin.Context) {
	id, ok := dto.BindChapterID(c)
	if !ok {
		dto.BadRequest(c, "invalid chapter id")
		return
	}

	var req dto.PublishChapterRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	result, err := h.chapterSvc.Publish(c.Request.Context(), actorFrom(c), id, req.PublishTime)
	if err != nil {
		respondError(c, err, "failed to publish chapter")
		return
	}
	dto.Success(c, dto.ToChapterResponse(result))
}

// UnpublishChapter 取消发布章节
// @Summary 取消发布章节
// @Description 清空发布时间，章节回到未发布状态
// @Tags Chapters
// @Produce json
// @Param cid path int true "章节 ID"
// @Success 200 {object} dto.Response[dto.ChapterResponse]
// @Router /v1/chapters/{cid}/unpublish [post]
func (h *ChapterHandler) UnpublishChapter(c *gin.Context) {
	id, ok := dto.BindChapterID(c)
	if !ok {
		dto.BadRequest(c, "invalid chapter id")
		return
	}

	result, err := h.chapterSvc.Unpublish(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err, "failed to unpublish chapter")
		return
	}
	dto.Success(c, dto.ToChapterResponse(result))
}

// DeleteChapter 删除章节
// @Summary 删除章节
// @Description 软删除章节，管理员走管理删除路径
// @Tags Chapters
// @Produce json
// @Param cid path int true "章节 ID"
// @Success 204
// @Router /v1/chapters/{cid} [delete]
func (h *ChapterHandler) DeleteChapter(c *gin.Context) {
	id, ok := dto.BindChapterID(c)
	if !ok {
		dto.BadRequest(c, "invalid chapter id")
		return
	}

	actor := actorFrom(c)
	var err error
	if actor.IsAdmin() {
		err = h.chapterSvc.AdminDelete(c.Request.Context(), actor, id)
	} else {
		err = h.chapterSvc.SoftDelete(c.Request.Context(), actor, id)
	}
	if err != nil {
		respondError(c, err, "failed to delete chapter")
		return
	}
	dto.NoContent(c)
}

// DeleteChaptersByNovel 删除小说全部章节
// @Summary 删除小说全部章节
// @Tags Chapters
// @Produce json
// @Param nid path int true "小说 ID"
// @Success 204
// @Router /v1/novels/{nid}/chapters [delete]
func (h *ChapterHandler) DeleteChaptersByNovel(c *gin.Context) {
	novelID, ok := dto.BindNovelID(c)
	if !ok {
		dto.BadRequest(c, "invalid novel id")
		return
	}

	actor := actorFrom(c)
	var err error
	if actor.IsAdmin() {
		err = h.chapterSvc.AdminDeleteByNovel(c.Request.Context(), actor, novelID)
	} else {
		err = h.chapterSvc.SoftDeleteByNovel(c.Request.Context(), actor, novelID)
	}
	if err != nil {
		respondError(c, err, "failed to delete chapters")
		return
	}
	dto.NoContent(c)
}

// SetChaptersValidity 批量设置章节有效性
// @Summary 批量设置章节有效性
// @Description 批量上/下架小说全部章节并重算聚合统计
// @Tags Chapters
// @Accept json
// @Produce json
// @Param nid path int true "小说 ID"
// @Param body body dto.SetChapterValidityRequest true "有效性标记"
// @Success 204
// @Router /v1/novels/{nid}/chapters/validity [put]
func (h *ChapterHandler) SetChaptersValidity(c *gin.Context) {
	novelID, ok := dto.BindNovelID(c)
	if !ok {
		dto.BadRequest(c, "invalid novel id")
		return
	}

	var req dto.SetChapterValidityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsValid == nil {
		dto.BadRequest(c, "is_valid is required")
		return
	}

	if err := h.chapterSvc.BatchSetValid(c.Request.Context(), actorFrom(c), novelID, *req.IsValid); err != nil {
		respondError(c, err, "failed to set chapters validity")
		return
	}
	dto.NoContent(c)
}

// IncrementChapterView 章节浏览量自增
// @Summary 章节浏览量自增
// @Tags Chapters
// @Produce json
// @Param cid path int true "章节 ID"
// @Success 204
// @Router /v1/chapters/{cid}/view [post]
func (h *ChapterHandler) IncrementChapterView(c *gin.Context) {
	id, ok := dto.BindChapterID(c)
	if !ok {
		dto.BadRequest(c, "invalid chapter id")
		return
	}

	if err := h.chapterSvc.IncrementView(c.Request.Context(), id); err != nil {
		respondError(c, err, "failed to increment view count")
		return
	}
	dto.NoContent(c)
}
