// Package redissearch 基于 Redis 有序集合实现搜索索引
package redissearch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"z-novel-api/internal/application/search"
)

var tracer = otel.Tracer("redissearch")

// 权重与临时键常量
const (
	weightTitle   = 10.0
	weightContent = 1.0

	tempResultTTL = 10 * time.Minute
)

// Index Redis 搜索索引
// 倒排结构：每个词条一个以相关度为分值的有序集合，文档命中词条的
// 并集记录在 words 集合里用于重建和删除；结构化过滤走成员集合，
// 排序走按字段分值的有序集合
type Index struct {
	rdb    *redis.Client
	prefix string
}

// NewIndex 创建 Redis 搜索索引
func NewIndex(rdb *redis.Client, keyPrefix string) *Index {
	if keyPrefix == "" {
		keyPrefix = "z_novel:search"
	}
	return &Index{rdb: rdb, prefix: keyPrefix}
}

func (i *Index) docKey(id string) string    { return i.prefix + ":doc:" + id }
func (i *Index) tokenKey(t string) string   { return i.prefix + ":idx:" + t }
func (i *Index) wordsKey(id string) string  { return i.prefix + ":words:" + id }
func (i *Index) tagsKey(id string) string   { return i.prefix + ":tags:" + id }
func (i *Index) sortKey(f string) string    { return i.prefix + ":sort:" + f }
func (i *Index) tempKey() string            { return i.prefix + ":tmp:" + uuid.NewString() }
func (i *Index) filterKey(n, v string) string {
	return i.prefix + ":f:" + n + ":" + v
}

// sortFields 每个文档会写入分值的排序字段
var sortFields = []string{"publish_time", "view_cnt", "word_cnt", "updated_at", "id"}

// Upsert 写入或覆盖文档
// 先按 words/tags 集合清理旧词条与旧过滤成员，再建新索引，单个 pipeline 提交
func (i *Index) Upsert(ctx context.Context, doc search.Document) error {
	ctx, span := tracer.Start(ctx, "redissearch.Upsert")
	defer span.End()

	pipe := i.rdb.Pipeline()
	if err := i.cleanup(ctx, pipe, doc.ID); err != nil {
		span.RecordError(err)
		return err
	}

	// 文档本体
	data := map[string]any{
		"id":         doc.ID,
		"kind":       doc.Kind,
		"title":      doc.Title,
		"content":    doc.Content,
		"updated_at": doc.UpdatedAt.Format(time.RFC3339),
	}
	for name, value := range doc.Fields {
		data["f:"+name] = value
	}
	pipe.HSet(ctx, i.docKey(doc.ID), data)

	// 加权倒排：标题词条优先于正文词条
	weights := make(map[string]float64)
	for _, token := range tokenize(doc.Title) {
		weights[token] = weightTitle
	}
	for _, token := range tokenize(doc.Content) {
		if _, ok := weights[token]; !ok {
			weights[token] = weightContent
		}
	}
	words := make([]any, 0, len(weights))
	for token, weight := range weights {
		words = append(words, token)
		pipe.ZAdd(ctx, i.tokenKey(token), redis.Z{Score: weight, Member: doc.ID})
	}
	if len(words) > 0 {
		pipe.SAdd(ctx, i.wordsKey(doc.ID), words...)
	}

	// 结构化过滤成员集合
	tags := i.filterMemberships(doc)
	for _, tag := range tags {
		pipe.SAdd(ctx, tag, doc.ID)
	}
	if len(tags) > 0 {
		members := make([]any, len(tags))
		for idx, tag := range tags {
			members[idx] = tag
		}
		pipe.SAdd(ctx, i.tagsKey(doc.ID), members...)
	}

	// 排序分值
	for _, field := range sortFields {
		pipe.ZAdd(ctx, i.sortKey(field), redis.Z{Score: i.sortScore(doc, field), Member: doc.ID})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("index document %s: %w", doc.ID, err)
	}
	return nil
}

// Delete 移除文档及其全部索引痕迹
func (i *Index) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "redissearch.Delete")
	defer span.End()

	pipe := i.rdb.Pipeline()
	if err := i.cleanup(ctx, pipe, id); err != nil {
		span.RecordError(err)
		return err
	}
	pipe.Del(ctx, i.docKey(id))
	for _, field := range sortFields {
		pipe.ZRem(ctx, i.sortKey(field), id)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// cleanup 把文档从旧词条有序集合和旧过滤集合中摘除
func (i *Index) cleanup(ctx context.Context, pipe redis.Pipeliner, id string) error {
	oldWords, err := i.rdb.SMembers(ctx, i.wordsKey(id)).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	for _, word := range oldWords {
		pipe.ZRem(ctx, i.tokenKey(word), id)
	}
	pipe.Del(ctx, i.wordsKey(id))

	oldTags, err := i.rdb.SMembers(ctx, i.tagsKey(id)).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	for _, tag := range oldTags {
		pipe.SRem(ctx, tag, id)
	}
	pipe.Del(ctx, i.tagsKey(id))
	return nil
}

// filterMemberships 文档应加入的过滤集合键
func (i *Index) filterMemberships(doc search.Document) []string {
	tags := []string{i.filterKey("kind", doc.Kind)}
	if v := doc.Fields["category_id"]; v != "" && v != "0" {
		tags = append(tags, i.filterKey("category", v))
	}
	if v := doc.Fields["author_id"]; v != "" && v != "0" {
		tags = append(tags, i.filterKey("author", v))
	}
	if v := doc.Fields["is_completed"]; v != "" {
		tags = append(tags, i.filterKey("completed", v))
	}
	return tags
}

// sortScore 文档在给定排序字段上的分值
func (i *Index) sortScore(doc search.Document, field string) float64 {
	switch field {
	case "updated_at":
		return float64(doc.UpdatedAt.Unix())
	case "id":
		if idx := strings.LastIndexByte(doc.ID, ':'); idx >= 0 {
			if n, err := strconv.ParseInt(doc.ID[idx+1:], 10, 64); err == nil {
				return float64(n)
			}
		}
		return 0
	default:
		if n, err := strconv.ParseInt(doc.Fields[field], 10, 64); err == nil {
			return float64(n)
		}
		return 0
	}
}

// QueryByFilter 结构化过滤查询
// 用 ZINTERSTORE 把排序有序集合与过滤集合求交（过滤集合权重为零，
// 保留排序分值），再按方向分页
func (i *Index) QueryByFilter(ctx context.Context, filter search.Filter, page search.Page) (*search.Result, error) {
	ctx, span := tracer.Start(ctx, "redissearch.QueryByFilter")
	defer span.End()

	page = page.Normalize()
	sortField := page.SortField
	if sortField == "" {
		sortField = "updated_at"
	}

	keys := []string{i.sortKey(sortField)}
	if filter.Kind != "" {
		keys = append(keys, i.filterKey("kind", filter.Kind))
	}
	if filter.CategoryID > 0 {
		keys = append(keys, i.filterKey("category", strconv.FormatUint(filter.CategoryID, 10)))
	}
	if filter.AuthorID > 0 {
		keys = append(keys, i.filterKey("author", strconv.FormatUint(filter.AuthorID, 10)))
	}
	if filter.IsCompleted != nil {
		keys = append(keys, i.filterKey("completed", strconv.FormatBool(*filter.IsCompleted)))
	}

	zWeights := make([]float64, len(keys))
	zWeights[0] = 1

	tempKey := i.tempKey()
	defer i.rdb.Del(context.WithoutCancel(ctx), tempKey)

	if err := i.rdb.ZInterStore(ctx, tempKey, &redis.ZStore{
		Keys:      keys,
		Weights:   zWeights,
		Aggregate: "SUM",
	}).Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("filter query: %w", err)
	}
	i.rdb.Expire(ctx, tempKey, tempResultTTL)

	return i.collect(ctx, tempKey, page, !page.Desc)
}

// QueryByText 全文查询，按词条权重之和的相关度降序
func (i *Index) QueryByText(ctx context.Context, text string, page search.Page) (*search.Result, error) {
	ctx, span := tracer.Start(ctx, "redissearch.QueryByText")
	defer span.End()

	page = page.Normalize()
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return &search.Result{Documents: []search.Document{}}, nil
	}

	keys := make([]string, len(tokens))
	for idx, token := range tokens {
		keys[idx] = i.tokenKey(token)
	}

	tempKey := i.tempKey()
	defer i.rdb.Del(context.WithoutCancel(ctx), tempKey)

	if err := i.rdb.ZInterStore(ctx, tempKey, &redis.ZStore{
		Keys:      keys,
		Aggregate: "SUM",
	}).Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("text query: %w", err)
	}
	i.rdb.Expire(ctx, tempKey, tempResultTTL)

	// 相关度始终降序
	return i.collect(ctx, tempKey, page, false)
}

// collect 对临时结果集分页并批量回读文档
func (i *Index) collect(ctx context.Context, tempKey string, page search.Page, asc bool) (*search.Result, error) {
	total, err := i.rdb.ZCard(ctx, tempKey).Result()
	if err != nil {
		return nil, fmt.Errorf("result count: %w", err)
	}
	if total == 0 {
		return &search.Result{Documents: []search.Document{}}, nil
	}

	start := int64(page.Index * page.Size)
	stop := start + int64(page.Size) - 1

	var ids []string
	if asc {
		ids, err = i.rdb.ZRange(ctx, tempKey, start, stop).Result()
	} else {
		ids, err = i.rdb.ZRevRange(ctx, tempKey, start, stop).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("result page: %w", err)
	}

	pipe := i.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(ids))
	for _, id := range ids {
		cmds[id] = pipe.HGetAll(ctx, i.docKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("hydrate documents: %w", err)
	}

	docs := make([]search.Document, 0, len(ids))
	for _, id := range ids {
		data, err := cmds[id].Result()
		if err != nil || len(data) == 0 {
			continue
		}
		docs = append(docs, hydrate(data))
	}
	return &search.Result{Documents: docs, Total: total}, nil
}

// hydrate 把文档哈希还原为 Document
func hydrate(data map[string]string) search.Document {
	doc := search.Document{
		ID:      data["id"],
		Kind:    data["kind"],
		Title:   data["title"],
		Content: data["content"],
		Fields:  make(map[string]string),
	}
	if t, err := time.Parse(time.RFC3339, data["updated_at"]); err == nil {
		doc.UpdatedAt = t
	}
	for name, value := range data {
		if strings.HasPrefix(name, "f:") {
			doc.Fields[strings.TrimPrefix(name, "f:")] = value
		}
	}
	return doc
}
