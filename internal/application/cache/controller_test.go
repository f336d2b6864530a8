package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"z-novel-api/internal/domain/entity"
)

// fakeStore 带可注入时钟的内存缓存存储
type fakeStore struct {
	mu      sync.Mutex
	data    map[string]fakeEntry
	now     time.Time
	getErr  error
	setErr  error
	deletes []string
}

type fakeEntry struct {
	value     []byte
	expiresAt time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		data: make(map[string]fakeEntry),
		now:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	entry, ok := s.data[key]
	if !ok || s.now.After(entry.expiresAt) {
		delete(s.data, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (s *fakeStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = fakeEntry{value: value, expiresAt: s.now.Add(ttl)}
	return nil
}

func (s *fakeStore) GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() ([]byte, error)) ([]byte, error) {
	if val, hit, err := s.Get(ctx, key); err != nil {
		return nil, err
	} else if hit {
		return val, nil
	}
	bytes, err := loader()
	if err != nil {
		return nil, err
	}
	_ = s.Set(ctx, key, bytes, ttl)
	return bytes, nil
}

func (s *fakeStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
		s.deletes = append(s.deletes, key)
	}
	return nil
}

func (s *fakeStore) DeletePattern(ctx context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			delete(s.data, key)
			s.deletes = append(s.deletes, key)
		}
	}
	return nil
}

func (s *fakeStore) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cur int64
	if entry, ok := s.data[key]; ok {
		_ = json.Unmarshal(entry.value, &cur)
	}
	cur += delta
	raw, _ := json.Marshal(cur)
	s.data[key] = fakeEntry{value: raw, expiresAt: s.now.Add(time.Hour)}
	return cur, nil
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("未命中时走加载器并回填", func(t *testing.T) {
		store := newFakeStore()
		ctl := NewController(store, time.Minute, time.Hour)

		loads := 0
		loader := func() ([]byte, error) {
			loads++
			return []byte(`"v1"`), nil
		}

		got, err := ctl.GetOrLoad(ctx, "novel", "novel:id:1", ctl.TTL(), loader)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(got) != `"v1"` {
			t.Fatalf("unexpected value: %s", got)
		}

		// 第二次读取命中缓存，不再触发加载
		if _, err := ctl.GetOrLoad(ctx, "novel", "novel:id:1", ctl.TTL(), loader); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if loads != 1 {
			t.Fatalf("expected 1 load, got %d", loads)
		}
	})

	t.Run("缓存传输故障静默回退仓储", func(t *testing.T) {
		store := newFakeStore()
		store.getErr = errors.New("connection refused")
		ctl := NewController(store, time.Minute, time.Hour)

		got, err := ctl.GetOrLoad(ctx, "novel", "novel:id:2", ctl.TTL(), func() ([]byte, error) {
			return []byte(`"fallback"`), nil
		})
		if err != nil {
			t.Fatalf("expected silent fallback, got %v", err)
		}
		if string(got) != `"fallback"` {
			t.Fatalf("unexpected value: %s", got)
		}
	})

	t.Run("仓储错误照常向上传播", func(t *testing.T) {
		store := newFakeStore()
		ctl := NewController(store, time.Minute, time.Hour)

		wantErr := errors.New("db down")
		_, err := ctl.GetOrLoad(ctx, "novel", "novel:id:3", ctl.TTL(), func() ([]byte, error) {
			return nil, wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("expected repository error, got %v", err)
		}
	})

	t.Run("TTL 到期后重新加载（最终正确性）", func(t *testing.T) {
		store := newFakeStore()
		ctl := NewController(store, time.Minute, time.Hour)

		version := "old"
		loader := func() ([]byte, error) {
			raw, _ := json.Marshal(version)
			return raw, nil
		}

		if _, err := ctl.GetOrLoad(ctx, "novel", "novel:id:4", ctl.TTL(), loader); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// 模拟漏失效：仓储里的值变了但缓存没被删除
		version = "new"
		got, _ := ctl.GetOrLoad(ctx, "novel", "novel:id:4", ctl.TTL(), loader)
		if string(got) != `"old"` {
			t.Fatalf("expected bounded staleness before TTL, got %s", got)
		}

		// TTL 过期后读取应返回新值
		store.advance(2 * time.Minute)
		got, err := ctl.GetOrLoad(ctx, "novel", "novel:id:4", ctl.TTL(), loader)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(got) != `"new"` {
			t.Fatalf("expected fresh value after TTL expiry, got %s", got)
		}
	})
}

func TestGetOrLoadJSON(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	ctl := NewController(store, time.Minute, time.Hour)

	type view struct {
		Title string `json:"title"`
	}

	got, err := GetOrLoadJSON(ctx, ctl, "novel", "novel:id:9", ctl.TTL(), func() (view, error) {
		return view{Title: "T"}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "T" {
		t.Fatalf("unexpected value: %+v", got)
	}
}

func TestInvalidation(t *testing.T) {
	ctx := context.Background()

	t.Run("小说失效删除全部键变体", func(t *testing.T) {
		store := newFakeStore()
		ctl := NewController(store, time.Minute, time.Hour)

		novel := &entity.Novel{ID: 1, UUID: "u-1"}
		keys := []string{
			NovelByID(1), NovelByUUID("u-1"), NovelStats(1),
			NovelPopular(10), NovelPopular(20),
			NovelList("status=PUBLISHED&page=1"),
		}
		for _, key := range keys {
			_ = store.Set(ctx, key, []byte("stale"), time.Hour)
		}

		if err := ctl.InvalidateNovel(ctx, novel); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, key := range keys {
			if _, hit, _ := store.Get(ctx, key); hit {
				t.Fatalf("expected key %s to be invalidated", key)
			}
		}
	})

	t.Run("失效不存在的键是幂等空操作", func(t *testing.T) {
		store := newFakeStore()
		ctl := NewController(store, time.Minute, time.Hour)

		novel := &entity.Novel{ID: 2, UUID: "u-2"}
		if err := ctl.InvalidateNovel(ctx, novel); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := ctl.InvalidateNovel(ctx, novel); err != nil {
			t.Fatalf("expected idempotent invalidation, got %v", err)
		}
	})

	t.Run("章节失效同时清除所属小说的列表键", func(t *testing.T) {
		store := newFakeStore()
		ctl := NewController(store, time.Minute, time.Hour)

		chapter := &entity.Chapter{ID: 3, UUID: "c-3", NovelID: 5, ChapterNumber: 1}
		listKey := ChapterList(5, "page=1")
		_ = store.Set(ctx, listKey, []byte("stale"), time.Hour)
		_ = store.Set(ctx, ChapterByNovelAndNumber(5, 1), []byte("stale"), time.Hour)

		if err := ctl.InvalidateChapter(ctx, chapter); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, hit, _ := store.Get(ctx, listKey); hit {
			t.Fatal("expected chapter list key to be invalidated")
		}
		if _, hit, _ := store.Get(ctx, ChapterByNovelAndNumber(5, 1)); hit {
			t.Fatal("expected composite key to be invalidated")
		}
	})
}

func TestIncrementView(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	ctl := NewController(store, time.Minute, time.Hour)

	got, err := ctl.IncrementView(ctx, NovelViewCount(1), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}

	got, _ = ctl.IncrementView(ctx, NovelViewCount(1), 2)
	if got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}
