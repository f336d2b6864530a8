// Package search 实现搜索投影同步和查询
package search

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"z-novel-api/internal/domain/entity"
)

// Document 推送到搜索索引的反规范化文档
type Document struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	Fields    map[string]string `json:"fields"`
	UpdatedAt time.Time         `json:"updated_at"`
}

const (
	KindNovel   = "novel"
	KindChapter = "chapter"
)

// NovelDocID 小说文档 ID
func NovelDocID(id uint64) string {
	return fmt.Sprintf("novel:%d", id)
}

// ChapterDocID 章节文档 ID
func ChapterDocID(id uint64) string {
	return fmt.Sprintf("chapter:%d", id)
}

// NovelDocument 从小说实体构建文档
func NovelDocument(n *entity.Novel) Document {
	fields := map[string]string{
		"author_id":    strconv.FormatUint(n.AuthorID, 10),
		"category_id":  strconv.FormatUint(n.CategoryID, 10),
		"status":       string(n.Status),
		"is_completed": strconv.FormatBool(n.IsCompleted),
		"view_cnt":     strconv.FormatInt(n.ViewCnt, 10),
		"word_cnt":     strconv.FormatInt(n.WordCnt, 10),
	}
	if n.PublishTime != nil {
		fields["publish_time"] = strconv.FormatInt(n.PublishTime.Unix(), 10)
	}
	return Document{
		ID:        NovelDocID(n.ID),
		Kind:      KindNovel,
		Title:     n.Title,
		Content:   n.Synopsis,
		Fields:    fields,
		UpdatedAt: n.UpdatedAt,
	}
}

// ChapterDocument 从章节实体构建文档
func ChapterDocument(c *entity.Chapter) Document {
	fields := map[string]string{
		"novel_id":       strconv.FormatUint(c.NovelID, 10),
		"chapter_number": strconv.Itoa(c.ChapterNumber),
		"is_premium":     strconv.FormatBool(c.IsPremium),
		"word_cnt":       strconv.FormatInt(c.WordCnt, 10),
		"view_cnt":       strconv.FormatInt(c.ViewCnt, 10),
	}
	if c.PublishTime != nil {
		fields["publish_time"] = strconv.FormatInt(c.PublishTime.Unix(), 10)
	}
	return Document{
		ID:        ChapterDocID(c.ID),
		Kind:      KindChapter,
		Title:     c.Title,
		Content:   c.Content,
		Fields:    fields,
		UpdatedAt: c.UpdatedAt,
	}
}

// Page 统一分页契约：零起始页码、显式页大小、白名单排序字段、显式方向
type Page struct {
	Index     int
	Size      int
	SortField string
	Desc      bool
}

// allowedSortFields 排序字段白名单，索引和关系型回退共用
var allowedSortFields = map[string]bool{
	"publish_time": true,
	"view_cnt":     true,
	"word_cnt":     true,
	"updated_at":   true,
	"id":           true,
}

// Normalize 修正分页参数并过滤非白名单排序字段
func (p Page) Normalize() Page {
	if p.Index < 0 {
		p.Index = 0
	}
	if p.Size <= 0 {
		p.Size = 20
	}
	if p.Size > 100 {
		p.Size = 100
	}
	if !allowedSortFields[p.SortField] {
		p.SortField = ""
	}
	return p
}

// Filter 结构化过滤条件
type Filter struct {
	Kind        string
	CategoryID  uint64
	AuthorID    uint64
	IsCompleted *bool
}

// Result 查询结果
type Result struct {
	Documents []Document `json:"documents"`
	Total     int64      `json:"total"`
}

// Index 搜索索引端口
// 启动时按配置选定真实实现或空实现，不使用可空依赖
type Index interface {
	Upsert(ctx context.Context, doc Document) error
	Delete(ctx context.Context, id string) error
	QueryByFilter(ctx context.Context, filter Filter, page Page) (*Result, error)
	QueryByText(ctx context.Context, text string, page Page) (*Result, error)
}

// NoopIndex 搜索禁用时的空实现
// 写操作为空操作，查询返回空结果；查询路径由服务层转发到关系型回退
type NoopIndex struct{}

// NewNoopIndex 创建空实现
func NewNoopIndex() *NoopIndex {
	return &NoopIndex{}
}

func (NoopIndex) Upsert(ctx context.Context, doc Document) error {
	return nil
}

func (NoopIndex) Delete(ctx context.Context, id string) error {
	return nil
}

func (NoopIndex) QueryByFilter(ctx context.Context, filter Filter, page Page) (*Result, error) {
	return &Result{Documents: []Document{}}, nil
}

func (NoopIndex) QueryByText(ctx context.Context, text string, page Page) (*Result, error) {
	return &Result{Documents: []Document{}}, nil
}
