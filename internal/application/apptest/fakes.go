// Package apptest 提供应用层测试共用的内存仓储与传输假件
package apptest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"z-novel-api/internal/application/event"
	"z-novel-api/internal/application/search"
	"z-novel-api/internal/domain/entity"
	"z-novel-api/internal/domain/repository"
)

// MemNovelRepo 内存小说仓储
type MemNovelRepo struct {
	mu     sync.Mutex
	novels map[uint64]*entity.Novel
	nextID uint64
}

func NewMemNovelRepo() *MemNovelRepo {
	return &MemNovelRepo{novels: make(map[uint64]*entity.Novel)}
}

func (r *MemNovelRepo) Create(ctx context.Context, novel *entity.Novel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	novel.ID = r.nextID
	clone := *novel
	r.novels[novel.ID] = &clone
	return nil
}

func (r *MemNovelRepo) GetByID(ctx context.Context, id uint64) (*entity.Novel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	novel, ok := r.novels[id]
	if !ok {
		return nil, nil
	}
	clone := *novel
	return &clone, nil
}

func (r *MemNovelRepo) GetByUUID(ctx context.Context, uuid string) (*entity.Novel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, novel := range r.novels {
		if novel.UUID == uuid {
			clone := *novel
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *MemNovelRepo) Update(ctx context.Context, novel *entity.Novel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *novel
	r.novels[novel.ID] = &clone
	return nil
}

func (r *MemNovelRepo) UpdateSelective(ctx context.Context, id uint64, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	novel, ok := r.novels[id]
	if !ok {
		return nil
	}
	for name, value := range fields {
		switch name {
		case "title":
			novel.Title = value.(string)
		case "synopsis":
			novel.Synopsis = value.(string)
		case "cover_url":
			novel.CoverURL = value.(string)
		case "category_id":
			novel.CategoryID = value.(uint64)
		case "is_completed":
			novel.IsCompleted = value.(bool)
		case "status":
			novel.Status = value.(entity.NovelStatus)
		case "publish_time":
			if value == nil {
				novel.PublishTime = nil
			} else {
				t := value.(time.Time)
				novel.PublishTime = &t
			}
		case "chapter_cnt":
			novel.ChapterCnt = value.(int64)
		case "word_cnt":
			novel.WordCnt = value.(int64)
		}
	}
	return nil
}

func (r *MemNovelRepo) List(ctx context.Context, filter *repository.NovelFilter, sortBy repository.Sort, pagination repository.Pagination) (*repository.PagedResult[*entity.Novel], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*entity.Novel
	for _, novel := range r.novels {
		if filter != nil {
			if filter.Status != "" && novel.Status != filter.Status {
				continue
			}
			if filter.AuthorID > 0 && novel.AuthorID != filter.AuthorID {
				continue
			}
			if filter.CategoryID > 0 && novel.CategoryID != filter.CategoryID {
				continue
			}
			if filter.TitleLike != "" && !strings.Contains(novel.Title, filter.TitleLike) {
				continue
			}
		}
		clone := *novel
		matched = append(matched, &clone)
	}
	if sortBy.Field == "view_cnt" {
		sort.Slice(matched, func(i, j int) bool {
			if sortBy.Order == repository.SortOrderDesc {
				return matched[i].ViewCnt > matched[j].ViewCnt
			}
			return matched[i].ViewCnt < matched[j].ViewCnt
		})
	} else {
		sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	}
	total := int64(len(matched))
	return repository.NewPagedResult(pageSlice(matched, pagination), total, pagination), nil
}

// pageSlice 按分页参数截取结果
func pageSlice[T any](items []T, pagination repository.Pagination) []T {
	start := (pagination.Page - 1) * pagination.PageSize
	if start >= len(items) {
		return nil
	}
	end := start + pagination.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func (r *MemNovelRepo) CountByCategory(ctx context.Context, categoryID uint64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, novel := range r.novels {
		if novel.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func (r *MemNovelRepo) CountActiveByCategory(ctx context.Context, categoryID uint64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, novel := range r.novels {
		if novel.CategoryID == categoryID && novel.Status != entity.NovelStatusArchived {
			count++
		}
	}
	return count, nil
}

func (r *MemNovelRepo) IncrementViewCount(ctx context.Context, id uint64, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if novel, ok := r.novels[id]; ok {
		novel.ViewCnt += delta
	}
	return nil
}

// MemChapterRepo 内存章节仓储
type MemChapterRepo struct {
	mu       sync.Mutex
	chapters map[uint64]*entity.Chapter
	nextID   uint64
}

func NewMemChapterRepo() *MemChapterRepo {
	return &MemChapterRepo{chapters: make(map[uint64]*entity.Chapter)}
}

func (r *MemChapterRepo) Put(chapter *entity.Chapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chapter.ID == 0 {
		r.nextID++
		chapter.ID = r.nextID
	} else if chapter.ID > r.nextID {
		r.nextID = chapter.ID
	}
	clone := *chapter
	r.chapters[chapter.ID] = &clone
}

func (r *MemChapterRepo) Create(ctx context.Context, chapter *entity.Chapter) error {
	r.Put(chapter)
	return nil
}

func (r *MemChapterRepo) CreateBatch(ctx context.Context, chapters []*entity.Chapter) error {
	for _, chapter := range chapters {
		r.Put(chapter)
	}
	return nil
}

func (r *MemChapterRepo) GetByID(ctx context.Context, id uint64) (*entity.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chapter, ok := r.chapters[id]
	if !ok {
		return nil, nil
	}
	clone := *chapter
	return &clone, nil
}

func (r *MemChapterRepo) GetByUUID(ctx context.Context, uuid string) (*entity.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, chapter := range r.chapters {
		if chapter.UUID == uuid {
			clone := *chapter
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *MemChapterRepo) GetByNovelAndNumber(ctx context.Context, novelID uint64, number int) (*entity.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, chapter := range r.chapters {
		if chapter.NovelID == novelID && chapter.ChapterNumber == number && chapter.IsValid {
			clone := *chapter
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *MemChapterRepo) UpdateSelective(ctx context.Context, id uint64, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chapter, ok := r.chapters[id]
	if !ok {
		return nil
	}
	for name, value := range fields {
		switch name {
		case "title":
			chapter.Title = value.(string)
		case "content":
			chapter.Content = value.(string)
		case "word_cnt":
			chapter.WordCnt = value.(int64)
		case "is_premium":
			chapter.IsPremium = value.(bool)
		case "price":
			chapter.Price = value.(int64)
		case "is_valid":
			chapter.IsValid = value.(bool)
		case "publish_time":
			if value == nil {
				chapter.PublishTime = nil
			} else {
				t := value.(time.Time)
				chapter.PublishTime = &t
			}
		}
	}
	return nil
}

func (r *MemChapterRepo) ExistsByNovelAndNumber(ctx context.Context, novelID uint64, number int) (bool, error) {
	chapter, _ := r.GetByNovelAndNumber(ctx, novelID, number)
	return chapter != nil, nil
}

func (r *MemChapterRepo) ListByNovel(ctx context.Context, novelID uint64, filter *repository.ChapterFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Chapter], error) {
	all, _ := r.ListAllByNovel(ctx, novelID)
	if filter != nil && filter.VisibleOnly {
		now := time.Now()
		visible := all[:0]
		for _, chapter := range all {
			if chapter.VisibleAt(now) {
				visible = append(visible, chapter)
			}
		}
		all = visible
	}
	return repository.NewPagedResult(pageSlice(all, pagination), int64(len(all)), pagination), nil
}

func (r *MemChapterRepo) ListAllByNovel(ctx context.Context, novelID uint64) ([]*entity.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*entity.Chapter
	for _, chapter := range r.chapters {
		if chapter.NovelID == novelID {
			clone := *chapter
			all = append(all, &clone)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ChapterNumber < all[j].ChapterNumber })
	return all, nil
}

func (r *MemChapterRepo) CountPublished(ctx context.Context, novelID uint64, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, chapter := range r.chapters {
		if chapter.NovelID == novelID && chapter.VisibleAt(now) {
			count++
		}
	}
	return count, nil
}

func (r *MemChapterRepo) SumPublishedWordCount(ctx context.Context, novelID uint64, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, chapter := range r.chapters {
		if chapter.NovelID == novelID && chapter.VisibleAt(now) {
			sum += chapter.WordCnt
		}
	}
	return sum, nil
}

func (r *MemChapterRepo) Next(ctx context.Context, novelID uint64, number int) (*entity.Chapter, error) {
	all, _ := r.ListAllByNovel(ctx, novelID)
	for _, chapter := range all {
		if chapter.ChapterNumber > number && chapter.IsValid {
			return chapter, nil
		}
	}
	return nil, nil
}

func (r *MemChapterRepo) Previous(ctx context.Context, novelID uint64, number int) (*entity.Chapter, error) {
	all, _ := r.ListAllByNovel(ctx, novelID)
	var prev *entity.Chapter
	for _, chapter := range all {
		if chapter.ChapterNumber < number && chapter.IsValid {
			prev = chapter
		}
	}
	return prev, nil
}

func (r *MemChapterRepo) SoftDelete(ctx context.Context, id uint64) error {
	return r.UpdateSelective(ctx, id, map[string]any{"is_valid": false})
}

func (r *MemChapterRepo) SoftDeleteByNovel(ctx context.Context, novelID uint64) error {
	return r.SetValidByNovel(ctx, novelID, false)
}

func (r *MemChapterRepo) SetValidByNovel(ctx context.Context, novelID uint64, valid bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, chapter := range r.chapters {
		if chapter.NovelID == novelID {
			chapter.IsValid = valid
		}
	}
	return nil
}

func (r *MemChapterRepo) IncrementViewCount(ctx context.Context, id uint64, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chapter, ok := r.chapters[id]; ok {
		chapter.ViewCnt += delta
	}
	return nil
}

// MemCategoryRepo 内存分类仓储
type MemCategoryRepo struct {
	mu         sync.Mutex
	categories map[uint64]*entity.Category
	nextID     uint64
}

func NewMemCategoryRepo() *MemCategoryRepo {
	return &MemCategoryRepo{categories: make(map[uint64]*entity.Category)}
}

func (r *MemCategoryRepo) Create(ctx context.Context, category *entity.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	category.ID = r.nextID
	clone := *category
	r.categories[category.ID] = &clone
	return nil
}

func (r *MemCategoryRepo) GetByID(ctx context.Context, id uint64) (*entity.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	category, ok := r.categories[id]
	if !ok {
		return nil, nil
	}
	clone := *category
	return &clone, nil
}

func (r *MemCategoryRepo) GetBySlug(ctx context.Context, slug string) (*entity.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, category := range r.categories {
		if category.Slug == slug {
			clone := *category
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *MemCategoryRepo) GetByNameInsensitive(ctx context.Context, name string) (*entity.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, category := range r.categories {
		if strings.EqualFold(category.Name, name) {
			clone := *category
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *MemCategoryRepo) Update(ctx context.Context, category *entity.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *category
	r.categories[category.ID] = &clone
	return nil
}

func (r *MemCategoryRepo) List(ctx context.Context, onlyActive bool) ([]*entity.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*entity.Category
	for _, category := range r.categories {
		if onlyActive && !category.IsActive {
			continue
		}
		clone := *category
		all = append(all, &clone)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (r *MemCategoryRepo) Delete(ctx context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.categories, id)
	return nil
}

// NopTx 直接执行的事务器
type NopTx struct{}

func (NopTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MemStore 内存缓存存储，TTL 按可拨动的虚拟时钟生效
type MemStore struct {
	mu     sync.Mutex
	data   map[string]memEntry
	offset time.Duration
}

type memEntry struct {
	val       []byte
	expiresAt time.Time // 零值表示不过期
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string]memEntry)}
}

// Advance 把虚拟时钟向前拨 d，用于验证 TTL 到期后的最终正确性
func (s *MemStore) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset += d
}

func (s *MemStore) clock() time.Time {
	return time.Now().Add(s.offset)
}

func (s *MemStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && s.clock().After(entry.expiresAt) {
		delete(s.data, key)
		return nil, false, nil
	}
	return entry.val, true, nil
}

func (s *MemStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := memEntry{val: value}
	if ttl > 0 {
		entry.expiresAt = s.clock().Add(ttl)
	}
	s.data[key] = entry
	return nil
}

func (s *MemStore) GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() ([]byte, error)) ([]byte, error) {
	if val, hit, _ := s.Get(ctx, key); hit {
		return val, nil
	}
	bytes, err := loader()
	if err != nil {
		return nil, err
	}
	_ = s.Set(ctx, key, bytes, ttl)
	return bytes, nil
}

func (s *MemStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *MemStore) DeletePattern(ctx context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			delete(s.data, key)
		}
	}
	return nil
}

func (s *MemStore) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cur int64
	if entry, ok := s.data[key]; ok && len(entry.val) > 0 {
		for _, b := range entry.val {
			cur = cur*10 + int64(b-'0')
		}
	}
	cur += delta
	s.data[key] = memEntry{val: []byte(formatInt(cur))}
	return cur, nil
}

func formatInt(v int64) string {
	if v == 0 {
		return "0"
	}
	var digits []byte
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	return string(digits)
}

// MemIndex 内存搜索索引
type MemIndex struct {
	mu      sync.Mutex
	docs    map[string]search.Document
	failIDs map[string]bool
}

func NewMemIndex() *MemIndex {
	return &MemIndex{docs: make(map[string]search.Document)}
}

// FailOn 让后续对指定文档的 Upsert 返回错误
func (f *MemIndex) FailOn(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs == nil {
		f.failIDs = make(map[string]bool)
	}
	f.failIDs[id] = true
}

func (f *MemIndex) Upsert(ctx context.Context, doc search.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[doc.ID] {
		return fmt.Errorf("index write rejected: %s", doc.ID)
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *MemIndex) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *MemIndex) QueryByFilter(ctx context.Context, filter search.Filter, page search.Page) (*search.Result, error) {
	return &search.Result{}, nil
}

func (f *MemIndex) QueryByText(ctx context.Context, text string, page search.Page) (*search.Result, error) {
	return &search.Result{}, nil
}

func (f *MemIndex) Has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.docs[id]
	return ok
}

// ChanTransport 把发布写进通道的事件传输
type ChanTransport struct {
	events chan event.Type
}

func NewChanTransport() *ChanTransport {
	return &ChanTransport{events: make(chan event.Type, 64)}
}

func (t *ChanTransport) Publish(ctx context.Context, topic event.Topic, partitionKey string, payload []byte) error {
	var ev event.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return err
	}
	t.events <- ev.Type
	return nil
}

func (t *ChanTransport) Wait(timeout time.Duration) (event.Type, bool) {
	select {
	case evType := <-t.events:
		return evType, true
	case <-time.After(timeout):
		return "", false
	}
}