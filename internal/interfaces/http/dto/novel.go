package dto

import (
	"time"

	"z-novel-api/internal/application/novel"
	"z-novel-api/internal/domain/entity"
)

// CreateNovelRequest 创建小说请求
type CreateNovelRequest struct {
	Title      string `json:"title" binding:"required"`
	CategoryID uint64 `json:"category_id" binding:"required"`
	Synopsis   string `json:"synopsis,omitempty"`
	CoverURL   string `json:"cover_url,omitempty"`
}

// ToInput 转换为应用层入参
func (r *CreateNovelRequest) ToInput() novel.CreateInput {
	return novel.CreateInput{
		Title:      r.Title,
		CategoryID: r.CategoryID,
		Synopsis:   r.Synopsis,
		CoverURL:   r.CoverURL,
	}
}

// UpdateNovelRequest 更新小说请求，缺省字段不修改
type UpdateNovelRequest struct {
	Title       *string `json:"title,omitempty"`
	Synopsis    *string `json:"synopsis,omitempty"`
	CoverURL    *string `json:"cover_url,omitempty"`
	CategoryID  *uint64 `json:"category_id,omitempty"`
	IsCompleted *bool   `json:"is_completed,omitempty"`
}

// ToInput 转换为应用层入参
func (r *UpdateNovelRequest) ToInput() novel.UpdateInput {
	return novel.UpdateInput{
		Title:       r.Title,
		Synopsis:    r.Synopsis,
		CoverURL:    r.CoverURL,
		CategoryID:  r.CategoryID,
		IsCompleted: r.IsCompleted,
	}
}

// NovelResponse 小说响应
type NovelResponse struct {
	ID          uint64 `json:"id"`
	UUID        string `json:"uuid"`
	Title       string `json:"title"`
	AuthorID    uint64 `json:"author_id"`
	CategoryID  uint64 `json:"category_id"`
	Synopsis    string `json:"synopsis,omitempty"`
	CoverURL    string `json:"cover_url,omitempty"`
	Status      string `json:"status"`
	IsCompleted bool   `json:"is_completed"`
	ChapterCnt  int64  `json:"chapter_cnt"`
	WordCnt     int64  `json:"word_cnt"`
	ViewCnt     int64  `json:"view_cnt"`
	PublishTime string `json:"publish_time,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// ToNovelResponse 从实体构建响应
func ToNovelResponse(n *entity.Novel) *NovelResponse {
	resp := &NovelResponse{
		ID:          n.ID,
		UUID:        n.UUID,
		Title:       n.Title,
		AuthorID:    n.AuthorID,
		CategoryID:  n.CategoryID,
		Synopsis:    n.Synopsis,
		CoverURL:    n.CoverURL,
		Status:      string(n.Status),
		IsCompleted: n.IsCompleted,
		ChapterCnt:  n.ChapterCnt,
		WordCnt:     n.WordCnt,
		ViewCnt:     n.ViewCnt,
		CreatedAt:   n.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   n.UpdatedAt.Format(time.RFC3339),
	}
	if n.PublishTime != nil {
		resp.PublishTime = n.PublishTime.Format(time.RFC3339)
	}
	return resp
}

// NovelListResponse 小说列表响应
type NovelListResponse struct {
	Novels []*NovelResponse `json:"novels"`
}

// ToNovelListResponse 从实体列表构建响应
func ToNovelListResponse(items []*entity.Novel) NovelListResponse {
	novels := make([]*NovelResponse, 0, len(items))
	for _, n := range items {
		novels = append(novels, ToNovelResponse(n))
	}
	return NovelListResponse{Novels: novels}
}

// NovelStatsResponse 小说统计报表响应
type NovelStatsResponse struct {
	NovelID                 uint64 `json:"novel_id"`
	TotalCount              int64  `json:"total_count"`
	PremiumCount            int64  `json:"premium_count"`
	FreeCount               int64  `json:"free_count"`
	TotalWordCount          int64  `json:"total_word_count"`
	TotalViewCount          int64  `json:"total_view_count"`
	TotalRevenue            int64  `json:"total_revenue"`
	LatestChapterNumber     int    `json:"latest_chapter_number,omitempty"`
	MostViewedChapterNumber int    `json:"most_viewed_chapter_number,omitempty"`
}

// ToNovelStatsResponse 从统计报表构建响应
func ToNovelStatsResponse(r *novel.Report) *NovelStatsResponse {
	return &NovelStatsResponse{
		NovelID:                 r.NovelID,
		TotalCount:              r.TotalCount,
		PremiumCount:            r.PremiumCount,
		FreeCount:               r.FreeCount,
		TotalWordCount:          r.TotalWordCount,
		TotalViewCount:          r.TotalViewCount,
		TotalRevenue:            r.TotalRevenue,
		LatestChapterNumber:     r.LatestChapterNumber,
		MostViewedChapterNumber: r.MostViewedChapterNumber,
	}
}
