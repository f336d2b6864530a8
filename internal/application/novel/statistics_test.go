package novel

import (
	"context"
	"testing"
	"time"

	"z-novel-api/internal/application/apptest"
	"z-novel-api/internal/domain/entity"
)

func fixedTime(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func ptrTime(v time.Time) *time.Time { return &v }

func TestRecompute(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		chapters    []*entity.Chapter
		wantCount   int64
		wantWordCnt int64
	}{
		{
			name: "过去发布的章节计入_未来发布的不计入",
			chapters: []*entity.Chapter{
				{NovelID: 1, ChapterNumber: 1, WordCnt: 100, IsValid: true, PublishTime: ptrTime(now.Add(-time.Hour))},
				{NovelID: 1, ChapterNumber: 2, WordCnt: 999, IsValid: true, PublishTime: ptrTime(now.Add(time.Hour))},
			},
			wantCount:   1,
			wantWordCnt: 100,
		},
		{
			name: "发布时间恰为当前时刻的章节计入",
			chapters: []*entity.Chapter{
				{NovelID: 1, ChapterNumber: 1, WordCnt: 42, IsValid: true, PublishTime: ptrTime(now)},
			},
			wantCount:   1,
			wantWordCnt: 42,
		},
		{
			name: "软删除章节不计入",
			chapters: []*entity.Chapter{
				{NovelID: 1, ChapterNumber: 1, WordCnt: 100, IsValid: false, PublishTime: ptrTime(now.Add(-time.Hour))},
				{NovelID: 1, ChapterNumber: 2, WordCnt: 200, IsValid: true, PublishTime: ptrTime(now.Add(-time.Hour))},
			},
			wantCount:   1,
			wantWordCnt: 200,
		},
		{
			name: "未发布章节不计入",
			chapters: []*entity.Chapter{
				{NovelID: 1, ChapterNumber: 1, WordCnt: 100, IsValid: true},
			},
			wantCount:   0,
			wantWordCnt: 0,
		},
		{
			name:        "无章节归零",
			chapters:    nil,
			wantCount:   0,
			wantWordCnt: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			novels := apptest.NewMemNovelRepo()
			chapters := apptest.NewMemChapterRepo()
			novel := &entity.Novel{Title: "测试", AuthorID: 1, CategoryID: 1, Status: entity.NovelStatusPublished, ChapterCnt: 99, WordCnt: 99999}
			if err := novels.Create(context.Background(), novel); err != nil {
				t.Fatal(err)
			}
			for _, c := range tt.chapters {
				c.NovelID = novel.ID
				chapters.Put(c)
			}

			agg := NewAggregator(novels, chapters)
			agg.now = func() time.Time { return now }

			if err := agg.Recompute(context.Background(), novel.ID); err != nil {
				t.Fatalf("Recompute() error = %v", err)
			}

			got, _ := novels.GetByID(context.Background(), novel.ID)
			if got.ChapterCnt != tt.wantCount {
				t.Errorf("chapter_cnt = %d, 期望 %d", got.ChapterCnt, tt.wantCount)
			}
			if got.WordCnt != tt.wantWordCnt {
				t.Errorf("word_cnt = %d, 期望 %d", got.WordCnt, tt.wantWordCnt)
			}
		})
	}
}

func TestBuildReport(t *testing.T) {
	now := fixedTime(t)
	chapters := apptest.NewMemChapterRepo()
	put := func(c *entity.Chapter) {
		c.NovelID = 7
		chapters.Put(c)
	}

	// 报表覆盖全部未删除章节，包含未来发布的
	put(&entity.Chapter{ChapterNumber: 1, WordCnt: 100, ViewCnt: 50, IsValid: true, PublishTime: ptrTime(now.Add(-2 * time.Hour))})
	put(&entity.Chapter{ChapterNumber: 2, WordCnt: 200, ViewCnt: 80, IsValid: true, IsPremium: true, Price: 5, PublishTime: ptrTime(now.Add(-time.Hour))})
	put(&entity.Chapter{ChapterNumber: 3, WordCnt: 300, ViewCnt: 80, IsValid: true, IsPremium: true, Price: 10, PublishTime: ptrTime(now.Add(time.Hour))})
	put(&entity.Chapter{ChapterNumber: 4, WordCnt: 999, ViewCnt: 999, IsValid: false, PublishTime: ptrTime(now)})

	agg := NewAggregator(apptest.NewMemNovelRepo(), chapters)
	report, err := agg.BuildReport(context.Background(), 7)
	if err != nil {
		t.Fatalf("BuildReport() error = %v", err)
	}

	if report.TotalCount != 3 {
		t.Errorf("TotalCount = %d, 期望 3", report.TotalCount)
	}
	if report.PremiumCount != 2 || report.FreeCount != 1 {
		t.Errorf("PremiumCount/FreeCount = %d/%d, 期望 2/1", report.PremiumCount, report.FreeCount)
	}
	if report.TotalWordCount != 600 {
		t.Errorf("TotalWordCount = %d, 期望 600", report.TotalWordCount)
	}
	if report.TotalViewCount != 210 {
		t.Errorf("TotalViewCount = %d, 期望 210", report.TotalViewCount)
	}
	// 收入只来自付费章节：5*80 + 10*80
	if report.TotalRevenue != 1200 {
		t.Errorf("TotalRevenue = %d, 期望 1200", report.TotalRevenue)
	}
	// 第 3 章发布时间最晚（即使在未来）
	if report.LatestChapterNumber != 3 {
		t.Errorf("LatestChapterNumber = %d, 期望 3", report.LatestChapterNumber)
	}
	// 第 2、3 章浏览量平局，取更高章节号
	if report.MostViewedChapterNumber != 3 {
		t.Errorf("MostViewedChapterNumber = %d, 期望 3", report.MostViewedChapterNumber)
	}
}

func TestBuildReportTieBreaks(t *testing.T) {
	now := fixedTime(t)
	chapters := apptest.NewMemChapterRepo()
	chapters.Put(&entity.Chapter{NovelID: 9, ChapterNumber: 5, ViewCnt: 10, IsValid: true, PublishTime: ptrTime(now)})
	chapters.Put(&entity.Chapter{NovelID: 9, ChapterNumber: 3, ViewCnt: 10, IsValid: true, PublishTime: ptrTime(now)})

	agg := NewAggregator(apptest.NewMemNovelRepo(), chapters)
	report, err := agg.BuildReport(context.Background(), 9)
	if err != nil {
		t.Fatalf("BuildReport() error = %v", err)
	}
	if report.LatestChapterNumber != 5 {
		t.Errorf("发布时间平局 LatestChapterNumber = %d, 期望 5", report.LatestChapterNumber)
	}
	if report.MostViewedChapterNumber != 5 {
		t.Errorf("浏览量平局 MostViewedChapterNumber = %d, 期望 5", report.MostViewedChapterNumber)
	}
}

func TestBuildReportEmpty(t *testing.T) {
	agg := NewAggregator(apptest.NewMemNovelRepo(), apptest.NewMemChapterRepo())
	report, err := agg.BuildReport(context.Background(), 1)
	if err != nil {
		t.Fatalf("BuildReport() error = %v", err)
	}
	if report.TotalCount != 0 || report.LatestChapterNumber != 0 || report.MostViewedChapterNumber != 0 {
		t.Errorf("空报表应全为零值: %+v", report)
	}
}
