package search

import (
	"context"
	"strings"
	"testing"

	"z-novel-api/internal/domain/entity"
	"z-novel-api/internal/domain/repository"
)

// fakeNovelRepo 回退查询用的内存小说仓储
type fakeNovelRepo struct {
	novels []*entity.Novel
}

func (f *fakeNovelRepo) Create(ctx context.Context, novel *entity.Novel) error { return nil }
func (f *fakeNovelRepo) GetByID(ctx context.Context, id uint64) (*entity.Novel, error) {
	return nil, nil
}
func (f *fakeNovelRepo) GetByUUID(ctx context.Context, uuid string) (*entity.Novel, error) {
	return nil, nil
}
func (f *fakeNovelRepo) Update(ctx context.Context, novel *entity.Novel) error { return nil }
func (f *fakeNovelRepo) UpdateSelective(ctx context.Context, id uint64, fields map[string]any) error {
	return nil
}
func (f *fakeNovelRepo) CountByCategory(ctx context.Context, categoryID uint64) (int64, error) {
	return 0, nil
}
func (f *fakeNovelRepo) CountActiveByCategory(ctx context.Context, categoryID uint64) (int64, error) {
	return 0, nil
}
func (f *fakeNovelRepo) IncrementViewCount(ctx context.Context, id uint64, delta int64) error {
	return nil
}

func (f *fakeNovelRepo) List(ctx context.Context, filter *repository.NovelFilter, sort repository.Sort, pagination repository.Pagination) (*repository.PagedResult[*entity.Novel], error) {
	var matched []*entity.Novel
	for _, n := range f.novels {
		if filter.Status != "" && n.Status != filter.Status {
			continue
		}
		if filter.CategoryID > 0 && n.CategoryID != filter.CategoryID {
			continue
		}
		if filter.TitleLike != "" && !strings.Contains(strings.ToLower(n.Title), strings.ToLower(filter.TitleLike)) {
			continue
		}
		matched = append(matched, n)
	}

	start := pagination.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pagination.Limit()
	if end > len(matched) {
		end = len(matched)
	}
	return repository.NewPagedResult(matched[start:end], int64(len(matched)), pagination), nil
}

func TestServiceFallback(t *testing.T) {
	ctx := context.Background()
	repo := &fakeNovelRepo{
		novels: []*entity.Novel{
			{ID: 1, Title: "剑来", CategoryID: 1, Status: entity.NovelStatusPublished},
			{ID: 2, Title: "诡秘之主", CategoryID: 2, Status: entity.NovelStatusPublished},
			{ID: 3, Title: "剑道第一仙", CategoryID: 1, Status: entity.NovelStatusDraft},
		},
	}

	disabled := NewService(NewNoopIndex(), NewFallback(repo), false)

	t.Run("禁用索引时回退返回相同的结果形状", func(t *testing.T) {
		result, err := disabled.QueryByFilter(ctx, Filter{CategoryID: 1}, Page{Index: 0, Size: 10})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Total != 1 {
			t.Fatalf("expected 1 published novel in category 1, got %d", result.Total)
		}
		doc := result.Documents[0]
		if doc.ID != NovelDocID(1) || doc.Kind != KindNovel || doc.Title != "剑来" {
			t.Fatalf("unexpected document: %+v", doc)
		}
	})

	t.Run("回退的文本查询降级为标题匹配", func(t *testing.T) {
		result, err := disabled.QueryByText(ctx, "剑", Page{Index: 0, Size: 10})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// 草稿小说不在结果中
		if result.Total != 1 {
			t.Fatalf("expected 1 match, got %d", result.Total)
		}
	})

	t.Run("回退遵守零起始分页", func(t *testing.T) {
		result, err := disabled.QueryByFilter(ctx, Filter{}, Page{Index: 1, Size: 1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Documents) != 1 || result.Documents[0].ID != NovelDocID(2) {
			t.Fatalf("expected second page to hold the second novel, got %+v", result.Documents)
		}
	})

	t.Run("启用索引时查询走索引", func(t *testing.T) {
		idx := newFakeIndex()
		idx.docs["novel:9"] = Document{ID: "novel:9"}
		enabled := NewService(idx, NewFallback(repo), true)

		result, err := enabled.QueryByText(ctx, "anything", Page{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// fakeIndex 查询返回空结果，证明没有走回退
		if result.Total != 0 {
			t.Fatalf("expected index path, got %+v", result)
		}
	})
}
