// Package cache 实现旁路缓存一致性控制
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"z-novel-api/internal/domain/entity"
	"z-novel-api/pkg/logger"
	"z-novel-api/pkg/metrics"
)

// Store 缓存存储端口
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() ([]byte, error)) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
}

// Controller 旁路缓存控制器
// 读路径：命中返回，未命中走加载器并回填；存储传输故障静默回退加载器
// 写路径：提交确认后按实体删除（而非更新）全部键变体
type Controller struct {
	store      Store
	ttl        time.Duration
	popularTTL time.Duration
}

// NewController 创建缓存控制器
func NewController(store Store, ttl, popularTTL time.Duration) *Controller {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if popularTTL <= 0 {
		popularTTL = 3 * ttl
	}
	return &Controller{
		store:      store,
		ttl:        ttl,
		popularTTL: popularTTL,
	}
}

// TTL 普通实体缓存 TTL
func (c *Controller) TTL() time.Duration {
	return c.ttl
}

// PopularTTL 热门榜单缓存 TTL
func (c *Controller) PopularTTL() time.Duration {
	return c.popularTTL
}

// loaderError 区分加载器（仓储）错误与缓存传输错误
type loaderError struct {
	err error
}

func (e *loaderError) Error() string {
	return e.err.Error()
}

// GetOrLoad 旁路读：命中即返回，未命中经 singleflight 加载并回填
// 缓存传输故障静默回退到加载器，仓储错误照常向上传播
func (c *Controller) GetOrLoad(ctx context.Context, entityLabel, key string, ttl time.Duration, loader func() ([]byte, error)) ([]byte, error) {
	val, hit, err := c.store.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "cache get failed, falling back to repository", "key", key, "error", err.Error())
		metrics.SideEffectFailuresTotal.WithLabelValues("cache").Inc()
		return loader()
	}
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(entityLabel).Inc()
		return val, nil
	}
	metrics.CacheMissesTotal.WithLabelValues(entityLabel).Inc()

	data, err := c.store.GetOrLoadSafe(ctx, key, ttl, func() ([]byte, error) {
		b, lerr := loader()
		if lerr != nil {
			return nil, &loaderError{err: lerr}
		}
		return b, nil
	})
	if err != nil {
		if le, ok := err.(*loaderError); ok {
			return nil, le.err
		}
		// 回填路径的缓存传输故障：再次回退加载器
		logger.Warn(ctx, "cache load-populate failed, falling back to repository", "key", key, "error", err.Error())
		metrics.SideEffectFailuresTotal.WithLabelValues("cache").Inc()
		return loader()
	}
	return data, nil
}

// GetOrLoadJSON 带 JSON 编解码的旁路读
func GetOrLoadJSON[T any](ctx context.Context, c *Controller, entityLabel, key string, ttl time.Duration, loader func() (T, error)) (T, error) {
	var zero T
	data, err := c.GetOrLoad(ctx, entityLabel, key, ttl, func() ([]byte, error) {
		v, err := loader()
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("failed to decode cached value: %w", err)
	}
	return out, nil
}

// InvalidateNovel 删除小说的全部键变体和列表键
// 对不存在的键删除是空操作，重复调用幂等
func (c *Controller) InvalidateNovel(ctx context.Context, novel *entity.Novel) error {
	metrics.CacheInvalidationsTotal.WithLabelValues("novel").Inc()
	if err := c.store.Delete(ctx,
		NovelByID(novel.ID),
		NovelByUUID(novel.UUID),
		NovelStats(novel.ID),
	); err != nil {
		return err
	}
	if err := c.store.DeletePattern(ctx, NovelPopularPattern()); err != nil {
		return err
	}
	return c.store.DeletePattern(ctx, NovelListPattern())
}

// InvalidateChapter 删除章节的全部键变体和所属小说的列表键
func (c *Controller) InvalidateChapter(ctx context.Context, chapter *entity.Chapter) error {
	metrics.CacheInvalidationsTotal.WithLabelValues("chapter").Inc()
	if err := c.store.Delete(ctx,
		ChapterByID(chapter.ID),
		ChapterByUUID(chapter.UUID),
		ChapterByNovelAndNumber(chapter.NovelID, chapter.ChapterNumber),
		NovelStats(chapter.NovelID),
	); err != nil {
		return err
	}
	return c.store.DeletePattern(ctx, ChapterListPattern(chapter.NovelID))
}

// InvalidateNovelChapters 删除小说全部章节的列表键（批量章节操作后）
func (c *Controller) InvalidateNovelChapters(ctx context.Context, novelID uint64) error {
	metrics.CacheInvalidationsTotal.WithLabelValues("chapter").Inc()
	if err := c.store.Delete(ctx, NovelStats(novelID)); err != nil {
		return err
	}
	return c.store.DeletePattern(ctx, ChapterListPattern(novelID))
}

// InvalidateCategory 删除分类的全部键变体和列表键
// staleSlugs 携带本次变更前仍可能被缓存的历史 slug（如改名前的旧 slug）
func (c *Controller) InvalidateCategory(ctx context.Context, category *entity.Category, staleSlugs ...string) error {
	metrics.CacheInvalidationsTotal.WithLabelValues("category").Inc()
	keys := []string{
		CategoryByID(category.ID),
		CategoryBySlug(category.Slug),
		CategoryList(),
	}
	for _, slug := range staleSlugs {
		keys = append(keys, CategoryBySlug(slug))
	}
	return c.store.Delete(ctx, keys...)
}

// IncrementView 浏览量乐观缓存增量
// 浏览量非正确性关键，是唯一允许直接修改缓存值的写操作
func (c *Controller) IncrementView(ctx context.Context, key string, delta int64) (int64, error) {
	return c.store.IncrBy(ctx, key, delta)
}
