package category

import (
	"context"
	"testing"
	"time"

	"z-novel-api/internal/application/apptest"
	"z-novel-api/internal/application/authz"
	appcache "z-novel-api/internal/application/cache"
	"z-novel-api/internal/application/event"
	"z-novel-api/internal/domain/entity"
	"z-novel-api/pkg/errors"
)

var (
	admin  = authz.Actor{UserID: 99, Role: authz.RoleAdmin}
	author = authz.Actor{UserID: 1, Role: authz.RoleAuthor}
)

type fixture struct {
	svc        *Service
	categories *apptest.MemCategoryRepo
	novels     *apptest.MemNovelRepo
	store      *apptest.MemStore
	transport  *apptest.ChanTransport
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	categories := apptest.NewMemCategoryRepo()
	novels := apptest.NewMemNovelRepo()
	store := apptest.NewMemStore()
	transport := apptest.NewChanTransport()

	svc := NewService(
		categories, novels, apptest.NopTx{},
		appcache.NewController(store, time.Minute, time.Minute),
		event.NewEmitter(transport, "test"),
	)
	return &fixture{svc: svc, categories: categories, novels: novels, store: store, transport: transport}
}

func (f *fixture) mustEvent(t *testing.T, want event.Type) {
	t.Helper()
	got, ok := f.transport.Wait(2 * time.Second)
	if !ok {
		t.Fatalf("期望收到事件 %s, 但超时未收到", want)
	}
	if got != want {
		t.Fatalf("收到事件 %s, 期望 %s", got, want)
	}
}

func TestDeriveSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"小写保留", "fantasy", "fantasy"},
		{"大写折叠为小写", "Sci-Fi", "sci-fi"},
		{"空白折叠为连字符", "Urban  Life", "urban-life"},
		{"连续特殊字符折叠为单个连字符", "Action & Adventure!", "action-adventure"},
		{"首尾连字符去除", "  -Romance- ", "romance"},
		{"数字保留", "Top 10", "top-10"},
		{"非 ASCII 字符折叠", "玄幻fantasy", "fantasy"},
		{"纯非 ASCII 得到空 slug", "玄幻", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entity.DeriveSlug(tt.in); got != tt.want {
				t.Errorf("DeriveSlug(%q) = %q, 期望 %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCreateCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	category, err := f.svc.Create(ctx, admin, CreateInput{Name: "Urban Life", Description: "都市题材"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if category.Slug != "urban-life" {
		t.Errorf("slug = %q, 期望 urban-life", category.Slug)
	}
	if !category.IsActive {
		t.Error("新分类应默认启用")
	}
	f.mustEvent(t, event.TypeCategoryCreated)

	// 名称大小写不敏感唯一
	if _, err := f.svc.Create(ctx, admin, CreateInput{Name: "URBAN LIFE"}); !errors.IsCode(err, errors.CodeCategoryNameTaken) {
		t.Fatalf("大小写变体名称应返回 Conflict, got %v", err)
	}

	// 不同名称派生出相同 slug 同样冲突
	if _, err := f.svc.Create(ctx, admin, CreateInput{Name: "urban  life"}); !errors.IsCode(err, errors.CodeCategoryNameTaken) {
		t.Fatalf("slug 冲突应返回 Conflict, got %v", err)
	}
}

func TestCreateCategoryValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, author, CreateInput{Name: "Fantasy"}); !errors.IsCode(err, errors.CodeForbidden) {
		t.Fatalf("非管理员创建分类应返回 Forbidden, got %v", err)
	}
	if _, err := f.svc.Create(ctx, admin, CreateInput{Name: "  "}); !errors.IsCode(err, errors.CodeValidationFailed) {
		t.Fatalf("空白名称应返回 ValidationFailed, got %v", err)
	}
	if _, err := f.svc.Create(ctx, admin, CreateInput{Name: "玄幻"}); !errors.IsCode(err, errors.CodeValidationFailed) {
		t.Fatalf("派生出空 slug 应返回 ValidationFailed, got %v", err)
	}
}

func TestUpdateCategoryRename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	category, err := f.svc.Create(ctx, admin, CreateInput{Name: "Fantasy"})
	if err != nil {
		t.Fatal(err)
	}
	f.mustEvent(t, event.TypeCategoryCreated)

	name := "Epic Fantasy"
	got, err := f.svc.Update(ctx, admin, category.ID, UpdateInput{Name: &name})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Name != name || got.Slug != "epic-fantasy" {
		t.Errorf("改名后 name=%q slug=%q", got.Name, got.Slug)
	}
	f.mustEvent(t, event.TypeCategoryUpdated)
}

func TestDeactivateBlockedByActiveNovels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	category, err := f.svc.Create(ctx, admin, CreateInput{Name: "Fantasy"})
	if err != nil {
		t.Fatal(err)
	}
	f.mustEvent(t, event.TypeCategoryCreated)

	novel := &entity.Novel{Title: "书", AuthorID: 1, CategoryID: category.ID, Status: entity.NovelStatusPublished}
	if err := f.novels.Create(ctx, novel); err != nil {
		t.Fatal(err)
	}

	inactive := false
	if _, err := f.svc.Update(ctx, admin, category.ID, UpdateInput{IsActive: &inactive}); !errors.IsCode(err, errors.CodeCategoryReferenced) {
		t.Fatalf("有未归档小说引用时停用应被阻止, got %v", err)
	}

	// 引用小说归档后允许停用
	novel.Status = entity.NovelStatusArchived
	_ = f.novels.Update(ctx, novel)
	got, err := f.svc.Update(ctx, admin, category.ID, UpdateInput{IsActive: &inactive})
	if err != nil {
		t.Fatalf("无活跃引用时停用应成功, got %v", err)
	}
	if got.IsActive {
		t.Error("分类应已停用")
	}
}

func TestDeleteBlockedByAnyReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	category, err := f.svc.Create(ctx, admin, CreateInput{Name: "Fantasy"})
	if err != nil {
		t.Fatal(err)
	}
	f.mustEvent(t, event.TypeCategoryCreated)

	// 物理删除被任何引用阻止, 包括已归档的小说
	novel := &entity.Novel{Title: "书", AuthorID: 1, CategoryID: category.ID, Status: entity.NovelStatusArchived}
	if err := f.novels.Create(ctx, novel); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Delete(ctx, admin, category.ID); !errors.IsCode(err, errors.CodeCategoryReferenced) {
		t.Fatalf("有小说引用的分类删除应被阻止, got %v", err)
	}

	// 清除引用后允许删除
	novel.CategoryID = 0
	_ = f.novels.Update(ctx, novel)
	if err := f.svc.Delete(ctx, admin, category.ID); err != nil {
		t.Fatalf("无引用分类删除应成功, got %v", err)
	}
	f.mustEvent(t, event.TypeCategoryDeleted)

	if got, _ := f.categories.GetByID(ctx, category.ID); got != nil {
		t.Fatal("分类应被物理删除")
	}
}

func TestListVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, admin, CreateInput{Name: "Fantasy"}); err != nil {
		t.Fatal(err)
	}
	f.mustEvent(t, event.TypeCategoryCreated)
	hidden, err := f.svc.Create(ctx, admin, CreateInput{Name: "Hidden Genre"})
	if err != nil {
		t.Fatal(err)
	}
	f.mustEvent(t, event.TypeCategoryCreated)

	inactive := false
	if _, err := f.svc.Update(ctx, admin, hidden.ID, UpdateInput{IsActive: &inactive}); err != nil {
		t.Fatal(err)
	}
	f.mustEvent(t, event.TypeCategoryUpdated)

	visible, err := f.svc.List(ctx, author)
	if err != nil {
		t.Fatal(err)
	}
	if len(visible) != 1 {
		t.Fatalf("普通调用方列表长度 = %d, 期望 1", len(visible))
	}

	all, err := f.svc.List(ctx, admin)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("管理员列表长度 = %d, 期望 2", len(all))
	}
}

func TestRenameInvalidatesOldSlugCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, admin, CreateInput{Name: "Epic Fantasy"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	f.mustEvent(t, event.TypeCategoryCreated)

	// 预热旧 slug 的缓存键
	if _, err := f.svc.GetBySlug(ctx, "epic-fantasy"); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := f.store.Get(ctx, appcache.CategoryBySlug("epic-fantasy")); !hit {
		t.Fatal("读取后缓存应命中")
	}

	newName := "Dark Fantasy"
	updated, err := f.svc.Update(ctx, admin, created.ID, UpdateInput{Name: &newName})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Slug != "dark-fantasy" {
		t.Fatalf("slug = %q, 期望 dark-fantasy", updated.Slug)
	}
	f.mustEvent(t, event.TypeCategoryUpdated)

	// 改名后旧 slug 的缓存键必须一并失效, 不得继续返回改名前的分类
	if _, hit, _ := f.store.Get(ctx, appcache.CategoryBySlug("epic-fantasy")); hit {
		t.Fatal("改名后旧 slug 缓存键应被删除")
	}
	if _, err := f.svc.GetBySlug(ctx, "epic-fantasy"); !errors.IsCode(err, errors.CodeCategoryNotFound) {
		t.Fatalf("旧 slug 应返回 NotFound, got %v", err)
	}
	got, err := f.svc.GetBySlug(ctx, "dark-fantasy")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != created.ID || got.Name != "Dark Fantasy" {
		t.Fatalf("新 slug 返回 %+v, 期望改名后的分类", got)
	}
}
