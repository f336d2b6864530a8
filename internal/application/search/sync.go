// Package search 实现搜索投影同步和查询
package search

import (
	"context"
	"time"

	"z-novel-api/internal/domain/entity"
	"z-novel-api/pkg/metrics"
)

// Syncer 搜索投影同步器
// 可见实体 upsert，转为不可见的实体 retract（删除文档），不留陈旧投影
type Syncer struct {
	index Index
	now   func() time.Time
}

// NewSyncer 创建投影同步器
func NewSyncer(index Index) *Syncer {
	return &Syncer{
		index: index,
		now:   time.Now,
	}
}

// SyncNovel 按小说当前可见性同步投影
func (s *Syncer) SyncNovel(ctx context.Context, novel *entity.Novel) error {
	if novel.IsVisible() {
		err := s.index.Upsert(ctx, NovelDocument(novel))
		s.record(KindNovel, "upsert", err)
		return err
	}
	err := s.index.Delete(ctx, NovelDocID(novel.ID))
	s.record(KindNovel, "delete", err)
	return err
}

// SyncChapter 按章节当前可见性同步投影
func (s *Syncer) SyncChapter(ctx context.Context, chapter *entity.Chapter) error {
	if chapter.VisibleAt(s.now()) {
		err := s.index.Upsert(ctx, ChapterDocument(chapter))
		s.record(KindChapter, "upsert", err)
		return err
	}
	err := s.index.Delete(ctx, ChapterDocID(chapter.ID))
	s.record(KindChapter, "delete", err)
	return err
}

func (s *Syncer) record(kind, op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SearchSyncTotal.WithLabelValues(kind, op, status).Inc()
}
