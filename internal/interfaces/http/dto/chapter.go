package dto

import (
	"time"

	"z-novel-api/internal/application/chapter"
	"z-novel-api/internal/domain/entity"
)

// CreateChapterRequest 创建章节请求
// word_cnt 显式提供时优先，否则由正文派生
type CreateChapterRequest struct {
	ChapterNumber int    `json:"chapter_number" binding:"required,gt=0"`
	Title         string `json:"title,omitempty"`
	Content       string `json:"content,omitempty"`
	WordCnt       *int64 `json:"word_cnt,omitempty"`
	IsPremium     bool   `json:"is_premium,omitempty"`
	Price         int64  `json:"price,omitempty"`
}

// ToInput 转换为应用层入参
func (r *CreateChapterRequest) ToInput(novelID uint64) chapter.CreateInput {
	return chapter.CreateInput{
		NovelID:       novelID,
		ChapterNumber: r.ChapterNumber,
		Title:         r.Title,
		Content:       r.Content,
		WordCnt:       r.WordCnt,
		IsPremium:     r.IsPremium,
		Price:         r.Price,
	}
}

// BatchCreateChapterRequest 批量创建章节请求
type BatchCreateChapterRequest struct {
	Chapters []CreateChapterRequest `json:"chapters" binding:"required,min=1,dive"`
}

// ToInputs 转换为应用层入参列表
func (r *BatchCreateChapterRequest) ToInputs(novelID uint64) []chapter.CreateInput {
	inputs := make([]chapter.CreateInput, 0, len(r.Chapters))
	for i := range r.Chapters {
		inputs = append(inputs, r.Chapters[i].ToInput(novelID))
	}
	return inputs
}

// UpdateChapterRequest 更新章节请求，缺省字段不修改
type UpdateChapterRequest struct {
	Title     *string `json:"title,omitempty"`
	Content   *string `json:"content,omitempty"`
	WordCnt   *int64  `json:"word_cnt,omitempty"`
	IsPremium *bool   `json:"is_premium,omitempty"`
	Price     *int64  `json:"price,omitempty"`
}

// ToInput 转换为应用层入参
func (r *UpdateChapterRequest) ToInput() chapter.UpdateInput {
	return chapter.UpdateInput{
		Title:     r.Title,
		Content:   r.Content,
		WordCnt:   r.WordCnt,
		IsPremium: r.IsPremium,
		Price:     r.Price,
	}
}

// PublishChapterRequest 发布章节请求
// publish_time 缺省为立即发布，未来时间表示定时发布
type PublishChapterRequest struct {
	PublishTime *time.Time `json:"publish_time,omitempty"`
}

// SetChapterValidityRequest 批量设置章节有效性请求
type SetChapterValidityRequest struct {
	IsValid *bool `json:"is_valid" binding:"required"`
}

// ChapterResponse 章节详情响应
type ChapterResponse struct {
	ID            uint64 `json:"id"`
	UUID          string `json:"uuid"`
	NovelID       uint64 `json:"novel_id"`
	ChapterNumber int    `json:"chapter_number"`
	Title         string `json:"title,omitempty"`
	Content       string `json:"content,omitempty"`
	WordCnt       int64  `json:"word_cnt"`
	IsPremium     bool   `json:"is_premium"`
	Price         int64  `json:"price"`
	ViewCnt       int64  `json:"view_cnt"`
	PublishTime   string `json:"publish_time,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// ToChapterResponse 从实体构建详情响应（含正文）
func ToChapterResponse(ch *entity.Chapter) *ChapterResponse {
	resp := &ChapterResponse{
		ID:            ch.ID,
		UUID:          ch.UUID,
		NovelID:       ch.NovelID,
		ChapterNumber: ch.ChapterNumber,
		Title:         ch.Title,
		Content:       ch.Content,
		WordCnt:       ch.WordCnt,
		IsPremium:     ch.IsPremium,
		Price:         ch.Price,
		ViewCnt:       ch.ViewCnt,
		CreatedAt:     ch.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     ch.UpdatedAt.Format(time.RFC3339),
	}
	if ch.PublishTime != nil {
		resp.PublishTime = ch.PublishTime.Format(time.RFC3339)
	}
	return resp
}

// ChapterSummaryResponse 章节摘要响应（不含正文，用于列表和导航）
type ChapterSummaryResponse struct {
	ID            uint64 `json:"id"`
	UUID          string `json:"uuid"`
	NovelID       uint64 `json:"novel_id"`
	ChapterNumber int    `json:"chapter_number"`
	Title         string `json:"title,omitempty"`
	WordCnt       int64  `json:"word_cnt"`
	IsPremium     bool   `json:"is_premium"`
	Price         int64  `json:"price"`
	ViewCnt       int64  `json:"view_cnt"`
	PublishTime   string `json:"publish_time,omitempty"`
	UpdatedAt     string `json:"updated_at"`
}

// ToChapterSummaryResponse 从实体构建摘要响应
func ToChapterSummaryResponse(ch *entity.Chapter) *ChapterSummaryResponse {
	resp := &ChapterSummaryResponse{
		ID:            ch.ID,
		UUID:          ch.UUID,
		NovelID:       ch.NovelID,
		ChapterNumber: ch.ChapterNumber,
		Title:         ch.Title,
		WordCnt:       ch.WordCnt,
		IsPremium:     ch.IsPremium,
		Price:         ch.Price,
		ViewCnt:       ch.ViewCnt,
		UpdatedAt:     ch.UpdatedAt.Format(time.RFC3339),
	}
	if ch.PublishTime != nil {
		resp.PublishTime = ch.PublishTime.Format(time.RFC3339)
	}
	return resp
}

// ChapterListResponse 章节列表响应
type ChapterListResponse struct {
	Chapters []*ChapterSummaryResponse `json:"chapters"`
}

// ToChapterListResponse 从实体列表构建响应
func ToChapterListResponse(items []*entity.Chapter) ChapterListResponse {
	chapters := make([]*ChapterSummaryResponse, 0, len(items))
	for _, ch := range items {
		chapters = append(chapters, ToChapterSummaryResponse(ch))
	}
	return ChapterListResponse{Chapters: chapters}
}

// ChapterNavigationResponse 章节导航响应，边界处为 null
type ChapterNavigationResponse struct {
	Previous *ChapterSummaryResponse `json:"previous"`
	Next     *ChapterSummaryResponse `json:"next"`
}
