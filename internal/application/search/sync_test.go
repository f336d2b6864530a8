package search

import (
	"context"
	"testing"
	"time"

	"z-novel-api/internal/domain/entity"
)

// fakeIndex 记录写操作的内存索引
type fakeIndex struct {
	docs    map[string]Document
	upserts int
	deletes int
	err     error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: make(map[string]Document)}
}

func (f *fakeIndex) Upsert(ctx context.Context, doc Document) error {
	if f.err != nil {
		return f.err
	}
	f.docs[doc.ID] = doc
	f.upserts++
	return nil
}

func (f *fakeIndex) Delete(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.docs, id)
	f.deletes++
	return nil
}

func (f *fakeIndex) QueryByFilter(ctx context.Context, filter Filter, page Page) (*Result, error) {
	return &Result{}, nil
}

func (f *fakeIndex) QueryByText(ctx context.Context, text string, page Page) (*Result, error) {
	return &Result{}, nil
}

func TestSyncNovel(t *testing.T) {
	ctx := context.Background()

	t.Run("已发布小说推送文档", func(t *testing.T) {
		idx := newFakeIndex()
		syncer := NewSyncer(idx)

		novel := &entity.Novel{ID: 1, Title: "T", Status: entity.NovelStatusPublished}
		if err := syncer.SyncNovel(ctx, novel); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := idx.docs[NovelDocID(1)]; !ok {
			t.Fatal("expected novel document to be upserted")
		}
	})

	t.Run("转为不可见时撤回文档而非留下陈旧投影", func(t *testing.T) {
		idx := newFakeIndex()
		syncer := NewSyncer(idx)

		novel := &entity.Novel{ID: 2, Title: "T", Status: entity.NovelStatusPublished}
		_ = syncer.SyncNovel(ctx, novel)

		novel.Status = entity.NovelStatusHidden
		if err := syncer.SyncNovel(ctx, novel); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := idx.docs[NovelDocID(2)]; ok {
			t.Fatal("expected hidden novel document to be retracted")
		}
	})

	t.Run("草稿小说不被索引", func(t *testing.T) {
		idx := newFakeIndex()
		syncer := NewSyncer(idx)

		novel := &entity.Novel{ID: 3, Status: entity.NovelStatusDraft}
		_ = syncer.SyncNovel(ctx, novel)
		if idx.upserts != 0 {
			t.Fatal("expected no upsert for draft novel")
		}
	})
}

func TestSyncChapter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		chapter *entity.Chapter
		indexed bool
	}{
		{"有效且已到发布时间的章节被索引", &entity.Chapter{ID: 1, IsValid: true, PublishTime: &past}, true},
		{"发布时间等于当前时刻的章节被索引", &entity.Chapter{ID: 2, IsValid: true, PublishTime: &now}, true},
		{"发布时间在未来的章节被撤回", &entity.Chapter{ID: 3, IsValid: true, PublishTime: &future}, false},
		{"软删除的章节被撤回", &entity.Chapter{ID: 4, IsValid: false, PublishTime: &past}, false},
		{"无发布时间的章节被撤回", &entity.Chapter{ID: 5, IsValid: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := newFakeIndex()
			syncer := NewSyncer(idx)
			syncer.now = func() time.Time { return now }

			idx.docs[ChapterDocID(tt.chapter.ID)] = Document{ID: ChapterDocID(tt.chapter.ID)}
			if err := syncer.SyncChapter(ctx, tt.chapter); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			_, ok := idx.docs[ChapterDocID(tt.chapter.ID)]
			if ok != tt.indexed {
				t.Fatalf("indexed=%v, expected %v", ok, tt.indexed)
			}
		})
	}
}

func TestPageNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Page
		want Page
	}{
		{"负页码归零", Page{Index: -1, Size: 10}, Page{Index: 0, Size: 10}},
		{"页大小缺省为 20", Page{Index: 0}, Page{Index: 0, Size: 20}},
		{"页大小上限 100", Page{Index: 0, Size: 500}, Page{Index: 0, Size: 100}},
		{"白名单外的排序字段被清空", Page{Size: 10, SortField: "password"}, Page{Size: 10}},
		{"白名单内的排序字段保留", Page{Size: 10, SortField: "view_cnt", Desc: true}, Page{Size: 10, SortField: "view_cnt", Desc: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Normalize(); got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
