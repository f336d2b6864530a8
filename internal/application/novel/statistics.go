// Package novel 实现小说生命周期状态机与统计聚合
package novel

import (
	"context"
	"time"

	"z-novel-api/internal/domain/entity"
	"z-novel-api/internal/domain/repository"
	"z-novel-api/pkg/metrics"
)

// Aggregator 统计聚合器
// 每次全量重算而非增量，以写入成本换取对漂移的免疫
type Aggregator struct {
	novelRepo   repository.NovelRepository
	chapterRepo repository.ChapterRepository
	now         func() time.Time
}

// NewAggregator 创建统计聚合器
func NewAggregator(novelRepo repository.NovelRepository, chapterRepo repository.ChapterRepository) *Aggregator {
	return &Aggregator{
		novelRepo:   novelRepo,
		chapterRepo: chapterRepo,
		now:         time.Now,
	}
}

// Recompute 重算可见章节数与字数并回写小说
// 必须在触发章节变更的同一事务内调用
func (a *Aggregator) Recompute(ctx context.Context, novelID uint64) error {
	now := a.now()

	count, err := a.chapterRepo.CountPublished(ctx, novelID, now)
	if err != nil {
		metrics.StatsRecomputeTotal.WithLabelValues("error").Inc()
		return err
	}
	sum, err := a.chapterRepo.SumPublishedWordCount(ctx, novelID, now)
	if err != nil {
		metrics.StatsRecomputeTotal.WithLabelValues("error").Inc()
		return err
	}

	if err := a.novelRepo.UpdateSelective(ctx, novelID, map[string]any{
		"chapter_cnt": count,
		"word_cnt":    sum,
	}); err != nil {
		metrics.StatsRecomputeTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.StatsRecomputeTotal.WithLabelValues("ok").Inc()
	return nil
}

// Report 只读统计报表，不落库
type Report struct {
	NovelID        uint64 `json:"novel_id"`
	TotalCount     int64  `json:"total_count"`
	PremiumCount   int64  `json:"premium_count"`
	FreeCount      int64  `json:"free_count"`
	TotalWordCount int64  `json:"total_word_count"`
	TotalViewCount int64  `json:"total_view_count"`
	TotalRevenue   int64  `json:"total_revenue"`
	// LatestChapterNumber 发布时间最大的章节，平局取更高章节号
	LatestChapterNumber int `json:"latest_chapter_number,omitempty"`
	// MostViewedChapterNumber 浏览量最大的章节，平局取更高章节号
	MostViewedChapterNumber int `json:"most_viewed_chapter_number,omitempty"`
}

// BuildReport 从未删除章节集合派生统计报表
// 字数/浏览量/收入覆盖全部未删除章节，包括发布时间在未来的章节
func (a *Aggregator) BuildReport(ctx context.Context, novelID uint64) (*Report, error) {
	chapters, err := a.chapterRepo.ListAllByNovel(ctx, novelID)
	if err != nil {
		return nil, err
	}

	report := &Report{NovelID: novelID}
	var latest, mostViewed *entity.Chapter

	for _, c := range chapters {
		if !c.IsValid {
			continue
		}
		report.TotalCount++
		report.TotalWordCount += c.WordCnt
		report.TotalViewCount += c.ViewCnt
		if c.IsPremium {
			report.PremiumCount++
			report.TotalRevenue += c.Price * c.ViewCnt
		}

		if c.PublishTime != nil {
			if latest == nil || laterPublished(c, latest) {
				latest = c
			}
		}
		if mostViewed == nil || moreViewed(c, mostViewed) {
			mostViewed = c
		}
	}

	report.FreeCount = report.TotalCount - report.PremiumCount
	if latest != nil {
		report.LatestChapterNumber = latest.ChapterNumber
	}
	if mostViewed != nil {
		report.MostViewedChapterNumber = mostViewed.ChapterNumber
	}
	return report, nil
}

// laterPublished 发布时间更晚，平局取更高章节号
func laterPublished(a, b *entity.Chapter) bool {
	if b.PublishTime == nil {
		return true
	}
	if a.PublishTime.After(*b.PublishTime) {
		return true
	}
	if a.PublishTime.Equal(*b.PublishTime) {
		return a.ChapterNumber > b.ChapterNumber
	}
	return false
}

// moreViewed 浏览量更大，平局取更高章节号
func moreViewed(a, b *entity.Chapter) bool {
	if a.ViewCnt > b.ViewCnt {
		return true
	}
	if a.ViewCnt == b.ViewCnt {
		return a.ChapterNumber > b.ChapterNumber
	}
	return false
}
