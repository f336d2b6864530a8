package novel

import (
	"context"
	"testing"
	"time"

	"z-novel-api/internal/application/apptest"
	"z-novel-api/internal/application/authz"
	appcache "z-novel-api/internal/application/cache"
	"z-novel-api/internal/application/event"
	"z-novel-api/internal/application/search"
	"z-novel-api/internal/domain/entity"
	"z-novel-api/pkg/errors"
)

const eventWait = 2 * time.Second

type fixture struct {
	svc        *Service
	novels     *apptest.MemNovelRepo
	chapters   *apptest.MemChapterRepo
	categories *apptest.MemCategoryRepo
	store      *apptest.MemStore
	index      *apptest.MemIndex
	transport  *apptest.ChanTransport
	categoryID uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	novels := apptest.NewMemNovelRepo()
	chapters := apptest.NewMemChapterRepo()
	categories := apptest.NewMemCategoryRepo()
	store := apptest.NewMemStore()
	index := apptest.NewMemIndex()
	transport := apptest.NewChanTransport()

	category := &entity.Category{Name: "玄幻", Slug: "xuanhuan", IsActive: true}
	if err := categories.Create(context.Background(), category); err != nil {
		t.Fatal(err)
	}

	svc := NewService(
		novels, chapters, categories, apptest.NopTx{},
		appcache.NewController(store, time.Minute, time.Minute),
		search.NewSyncer(index),
		event.NewEmitter(transport, "test"),
		NewAggregator(novels, chapters),
	)

	return &fixture{
		svc:        svc,
		novels:     novels,
		chapters:   chapters,
		categories: categories,
		store:      store,
		index:      index,
		transport:  transport,
		categoryID: category.ID,
	}
}

func (f *fixture) mustEvent(t *testing.T, want event.Type) {
	t.Helper()
	got, ok := f.transport.Wait(eventWait)
	if !ok {
		t.Fatalf("期望收到事件 %s, 但超时未收到", want)
	}
	if got != want {
		t.Fatalf("收到事件 %s, 期望 %s", got, want)
	}
}

func (f *fixture) mustNoEvent(t *testing.T) {
	t.Helper()
	if got, ok := f.transport.Wait(200 * time.Millisecond); ok {
		t.Fatalf("不应收到事件, 但收到 %s", got)
	}
}

var (
	owner    = authz.Actor{UserID: 1, Role: authz.RoleAuthor}
	admin    = authz.Actor{UserID: 99, Role: authz.RoleAdmin}
	stranger = authz.Actor{UserID: 2, Role: authz.RoleAuthor}
	reader   = authz.Actor{UserID: 3, Role: authz.RoleReader}
)

func (f *fixture) createDraft(t *testing.T) *entity.Novel {
	t.Helper()
	novel, err := f.svc.Create(context.Background(), owner, CreateInput{
		Title:      "龙吟九天",
		CategoryID: f.categoryID,
		Synopsis:   "少年自东荒而出",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	f.mustEvent(t, event.TypeNovelCreated)
	return novel
}

func TestCreateSubmitApproveLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	publishedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return publishedAt }

	novel := f.createDraft(t)
	if novel.Status != entity.NovelStatusDraft {
		t.Fatalf("新建小说状态 = %s, 期望 DRAFT", novel.Status)
	}
	if novel.UUID == "" {
		t.Fatal("新建小说应分配 UUID")
	}
	if novel.ChapterCnt != 0 || novel.WordCnt != 0 {
		t.Fatalf("新建小说统计应为零: chapter_cnt=%d word_cnt=%d", novel.ChapterCnt, novel.WordCnt)
	}

	novel, err := f.svc.SubmitForReview(ctx, owner, novel.ID)
	if err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}
	if novel.Status != entity.NovelStatusUnderReview {
		t.Fatalf("提交后状态 = %s, 期望 UNDER_REVIEW", novel.Status)
	}
	f.mustEvent(t, event.TypeNovelSubmitted)

	novel, err = f.svc.Approve(ctx, admin, novel.ID)
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if novel.Status != entity.NovelStatusPublished {
		t.Fatalf("批准后状态 = %s, 期望 PUBLISHED", novel.Status)
	}
	if novel.PublishTime == nil || !novel.PublishTime.Equal(publishedAt) {
		t.Fatalf("批准后 publish_time = %v, 期望 %v", novel.PublishTime, publishedAt)
	}
	f.mustEvent(t, event.TypeNovelPublished)
}

func TestPublishTimeSetOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return first }

	novel := f.createDraft(t)
	if _, err := f.svc.SubmitForReview(ctx, owner, novel.ID); err != nil {
		t.Fatal(err)
	}
	f.mustEvent(t, event.TypeNovelSubmitted)
	if _, err := f.svc.Approve(ctx, admin, novel.ID); err != nil {
		t.Fatal(err)
	}
	f.mustEvent(t, event.TypeNovelPublished)

	// 后续 下架/重新上架 不得改写首次发布时间
	f.svc.now = func() time.Time { return first.Add(48 * time.Hour) }
	if _, err := f.svc.Hide(ctx, admin, novel.ID); err != nil {
		t.Fatal(err)
	}
	f.mustEvent(t, event.TypeNovelHidden)
	got, err := f.svc.Unhide(ctx, admin, novel.ID)
	if err != nil {
		t.Fatal(err)
	}
	f.mustEvent(t, event.TypeNovelUnhidden)

	if got.PublishTime == nil || !got.PublishTime.Equal(first) {
		t.Fatalf("重新上架后 publish_time = %v, 期望保持 %v", got.PublishTime, first)
	}
}

func TestInvalidTransitionRejected(t *testing.T) {
	f := newFixture(t)
	novel := f.createDraft(t)

	// DRAFT 不能直接批准
	if _, err := f.svc.Approve(context.Background(), admin, novel.ID); !errors.IsCode(err, errors.CodeInvalidTransition) {
		t.Fatalf("DRAFT 直接批准应返回 InvalidTransition, got %v", err)
	}

	got, _ := f.novels.GetByID(context.Background(), novel.ID)
	if got.Status != entity.NovelStatusDraft {
		t.Fatalf("非法转换后状态被改写为 %s", got.Status)
	}
	f.mustNoEvent(t)
}

func TestArchiveIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	novel := f.createDraft(t)

	if _, err := f.svc.Archive(ctx, owner, novel.ID); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	f.mustEvent(t, event.TypeNovelArchived)

	if _, err := f.svc.SubmitForReview(ctx, owner, novel.ID); !errors.IsCode(err, errors.CodeInvalidTransition) {
		t.Fatalf("归档后提交审核应返回 InvalidTransition, got %v", err)
	}
}

func TestTransitionAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	novel := f.createDraft(t)

	// 提交审核仅限作者本人
	if _, err := f.svc.SubmitForReview(ctx, admin, novel.ID); !errors.IsCode(err, errors.CodeForbidden) {
		t.Fatalf("管理员代为提交审核应返回 Forbidden, got %v", err)
	}
	if _, err := f.svc.SubmitForReview(ctx, owner, novel.ID); err != nil {
		t.Fatal(err)
	}
	f.mustEvent(t, event.TypeNovelSubmitted)

	// 批准仅限管理员
	if _, err := f.svc.Approve(ctx, owner, novel.ID); !errors.IsCode(err, errors.CodeForbidden) {
		t.Fatalf("作者自行批准应返回 Forbidden, got %v", err)
	}
}

func TestUpdateDemotesPublishedNovel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	novel := publishNovel(t, f)

	synopsis := "改写后的简介"
	got, err := f.svc.Update(ctx, owner, novel.ID, UpdateInput{Synopsis: &synopsis})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Status != entity.NovelStatusUnderReview {
		t.Fatalf("已发布小说编辑简介后状态 = %s, 期望 UNDER_REVIEW", got.Status)
	}
	if got.Synopsis != synopsis {
		t.Fatalf("简介未更新: %q", got.Synopsis)
	}

	// 降级后不再可见, 搜索投影应撤下
	types := collectEvents(t, f, 2)
	if !types[event.TypeNovelUpdated] || !types[event.TypeNovelDemoted] {
		t.Fatalf("期望 updated+demoted 两个事件, got %v", types)
	}
	if f.index.Has(search.NovelDocID(novel.ID)) {
		t.Fatal("降级为 UNDER_REVIEW 后搜索文档应被撤下")
	}
}

func TestUpdateCompletionFlagDoesNotDemote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	novel := publishNovel(t, f)

	done := true
	got, err := f.svc.Update(ctx, owner, novel.ID, UpdateInput{IsCompleted: &done})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Status != entity.NovelStatusPublished {
		t.Fatalf("仅修改完结标记后状态 = %s, 期望保持 PUBLISHED", got.Status)
	}
	if !got.IsCompleted {
		t.Fatal("完结标记未更新")
	}
	f.mustEvent(t, event.TypeNovelUpdated)
	f.mustNoEvent(t)
}

func TestUpdateNoopSkipsSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	novel := f.createDraft(t)

	// 预热缓存, 空更新不得触发失效
	if _, err := f.svc.Get(ctx, owner, novel.ID); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := f.store.Get(ctx, appcache.NovelByID(novel.ID)); !hit {
		t.Fatal("预热后缓存应命中")
	}

	sameTitle := novel.Title
	blank := "   "
	got, err := f.svc.Update(ctx, owner, novel.ID, UpdateInput{Title: &sameTitle, Synopsis: &blank})
	if err != nil {
		t.Fatalf("空更新应成功, got %v", err)
	}
	if got.Title != novel.Title {
		t.Fatal("空更新不应改变字段")
	}

	if _, hit, _ := f.store.Get(ctx, appcache.NovelByID(novel.ID)); !hit {
		t.Fatal("空更新不应使缓存失效")
	}
	f.mustNoEvent(t)
}

func TestUpdateForbiddenForStranger(t *testing.T) {
	f := newFixture(t)
	novel := f.createDraft(t)

	title := "篡改标题"
	if _, err := f.svc.Update(context.Background(), stranger, novel.ID, UpdateInput{Title: &title}); !errors.IsCode(err, errors.CodeForbidden) {
		t.Fatalf("非作者编辑应返回 Forbidden, got %v", err)
	}
}

func TestUpdateUnknownCategoryRejected(t *testing.T) {
	f := newFixture(t)
	novel := f.createDraft(t)

	bogus := uint64(4040)
	if _, err := f.svc.Update(context.Background(), owner, novel.ID, UpdateInput{CategoryID: &bogus}); !errors.IsCode(err, errors.CodeCategoryNotFound) {
		t.Fatalf("未知分类应返回 CategoryNotFound, got %v", err)
	}
}

func TestArchivedNovelHiddenFromReaders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	novel := f.createDraft(t)

	if _, err := f.svc.Archive(ctx, owner, novel.ID); err != nil {
		t.Fatal(err)
	}
	f.mustEvent(t, event.TypeNovelArchived)

	if _, err := f.svc.Get(ctx, reader, novel.ID); !errors.IsCode(err, errors.CodeNovelNotFound) {
		t.Fatalf("读者读取归档小说应返回 NotFound, got %v", err)
	}
	if _, err := f.svc.GetByUUID(ctx, reader, novel.UUID); !errors.IsCode(err, errors.CodeNovelNotFound) {
		t.Fatalf("读者按 UUID 读取归档小说应返回 NotFound, got %v", err)
	}

	// 作者与管理员仍可读取
	if _, err := f.svc.Get(ctx, owner, novel.ID); err != nil {
		t.Fatalf("作者读取归档小说应成功, got %v", err)
	}
	if _, err := f.svc.Get(ctx, admin, novel.ID); err != nil {
		t.Fatalf("管理员读取归档小说应成功, got %v", err)
	}
}

func TestGetReflectsUpdateAfterInvalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	novel := f.createDraft(t)

	if _, err := f.svc.Get(ctx, reader, novel.ID); err != nil {
		t.Fatal(err)
	}

	title := "焚天之怒"
	if _, err := f.svc.Update(ctx, owner, novel.ID, UpdateInput{Title: &title}); err != nil {
		t.Fatal(err)
	}
	f.mustEvent(t, event.TypeNovelUpdated)

	got, err := f.svc.Get(ctx, reader, novel.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != title {
		t.Fatalf("更新提交后读取到陈旧标题 %q", got.Title)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, owner, CreateInput{Title: "  ", CategoryID: f.categoryID}); !errors.IsCode(err, errors.CodeValidationFailed) {
		t.Fatalf("空白标题应返回 ValidationFailed, got %v", err)
	}
	if _, err := f.svc.Create(ctx, owner, CreateInput{Title: "书名", CategoryID: 4040}); !errors.IsCode(err, errors.CodeCategoryNotFound) {
		t.Fatalf("未知分类应返回 CategoryNotFound, got %v", err)
	}
}

func TestIncrementView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	novel := f.createDraft(t)

	for i := 0; i < 3; i++ {
		if err := f.svc.IncrementView(ctx, novel.ID); err != nil {
			t.Fatalf("IncrementView() error = %v", err)
		}
	}

	got, _ := f.novels.GetByID(ctx, novel.ID)
	if got.ViewCnt != 3 {
		t.Errorf("持久化浏览量 = %d, 期望 3", got.ViewCnt)
	}
	if raw, hit, _ := f.store.Get(ctx, appcache.NovelViewCount(novel.ID)); !hit || string(raw) != "3" {
		t.Errorf("缓存浏览量 = %s (hit=%v), 期望 3", raw, hit)
	}
}

func TestStatsGuardedByVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	novel := publishNovel(t, f)

	now := time.Now().Add(-time.Hour)
	f.chapters.Put(&entity.Chapter{NovelID: novel.ID, ChapterNumber: 1, WordCnt: 500, ViewCnt: 10, IsValid: true, PublishTime: &now})

	report, err := f.svc.Stats(ctx, reader, novel.ID)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if report.TotalCount != 1 || report.TotalWordCount != 500 {
		t.Fatalf("报表 = %+v", report)
	}

	if _, err := f.svc.Archive(ctx, owner, novel.ID); err != nil {
		t.Fatal(err)
	}
	f.mustEvent(t, event.TypeNovelArchived)

	if _, err := f.svc.Stats(ctx, reader, novel.ID); !errors.IsCode(err, errors.CodeNovelNotFound) {
		t.Fatalf("读者读取归档小说报表应返回 NotFound, got %v", err)
	}
}

func TestApproveSyncsSearchProjection(t *testing.T) {
	f := newFixture(t)
	novel := publishNovel(t, f)

	if !f.index.Has(search.NovelDocID(novel.ID)) {
		t.Fatal("发布后小说应写入搜索投影")
	}

	if _, err := f.svc.Hide(context.Background(), admin, novel.ID); err != nil {
		t.Fatal(err)
	}
	f.mustEvent(t, event.TypeNovelHidden)
	if f.index.Has(search.NovelDocID(novel.ID)) {
		t.Fatal("下架后小说应从搜索投影撤下")
	}
}

// publishNovel 走完整生命周期把小说推到 PUBLISHED 并清空事件通道
func publishNovel(t *testing.T, f *fixture) *entity.Novel {
	t.Helper()
	ctx := context.Background()
	novel := f.createDraft(t)
	if _, err := f.svc.SubmitForReview(ctx, owner, novel.ID); err != nil {
		t.Fatal(err)
	}
	f.mustEvent(t, event.TypeNovelSubmitted)
	novel, err := f.svc.Approve(ctx, admin, novel.ID)
	if err != nil {
		t.Fatal(err)
	}
	f.mustEvent(t, event.TypeNovelPublished)
	return novel
}

// collectEvents 收集 n 个事件（顺序不敏感）
func collectEvents(t *testing.T, f *fixture, n int) map[event.Type]bool {
	t.Helper()
	types := make(map[event.Type]bool, n)
	for i := 0; i < n; i++ {
		evType, ok := f.transport.Wait(eventWait)
		if !ok {
			t.Fatalf("期望 %d 个事件, 只收到 %d 个", n, i)
		}
		types[evType] = true
	}
	return types
}

func TestPopularListKeyedByLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		n := &entity.Novel{
			Title:      "热门小说",
			AuthorID:   owner.UserID,
			CategoryID: f.categoryID,
			Status:     entity.NovelStatusPublished,
			ViewCnt:    int64(100 - i),
		}
		if err := f.novels.Create(ctx, n); err != nil {
			t.Fatal(err)
		}
	}

	top2, err := f.svc.Popular(ctx, 2)
	if err != nil {
		t.Fatalf("Popular(2) error = %v", err)
	}
	if len(top2) != 2 {
		t.Fatalf("limit=2 榜单长度 = %d, 期望 2", len(top2))
	}

	// 不同 limit 派生不同缓存键, 第二个调用方不应拿到第一个调用方的榜单长度
	top5, err := f.svc.Popular(ctx, 5)
	if err != nil {
		t.Fatalf("Popular(5) error = %v", err)
	}
	if len(top5) != 5 {
		t.Fatalf("limit=5 榜单长度 = %d, 期望 5", len(top5))
	}
}

func TestCacheExpiryAfterMissedInvalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	novel := f.createDraft(t)

	if _, err := f.svc.Get(ctx, owner, novel.ID); err != nil {
		t.Fatal(err)
	}

	// 绕过服务直接改库, 模拟一次漏掉的失效
	novel.Title = "改名后的标题"
	if err := f.novels.Update(ctx, novel); err != nil {
		t.Fatal(err)
	}

	stale, err := f.svc.Get(ctx, owner, novel.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stale.Title != "龙吟九天" {
		t.Fatalf("TTL 内读到 %q, 期望有界陈旧的旧值", stale.Title)
	}

	// TTL 到期后缓存条目过期, 下一次读取回源修正
	f.store.Advance(2 * time.Minute)
	fresh, err := f.svc.Get(ctx, owner, novel.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.Title != "改名后的标题" {
		t.Fatalf("TTL 过期后读到 %q, 期望回源后的新值", fresh.Title)
	}
}
