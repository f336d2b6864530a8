// Package entity 定义领域实体
package entity

import (
	"time"
)

// NovelStatus 小说状态
// 对外暴露的状态词汇表，API 消费者直接使用这些字符串
type NovelStatus string

const (
	NovelStatusDraft       NovelStatus = "DRAFT"
	NovelStatusUnderReview NovelStatus = "UNDER_REVIEW"
	NovelStatusPublished   NovelStatus = "PUBLISHED"
	NovelStatusHidden      NovelStatus = "HIDDEN"
	NovelStatusArchived    NovelStatus = "ARCHIVED"
)

// Novel 小说实体
// ChapterCnt/WordCnt 为可见章节集合的聚合值，由统计聚合器在章节变更事务内重算
type Novel struct {
	ID           uint64      `json:"id" gorm:"primaryKey;autoIncrement"`
	UUID         string      `json:"uuid" gorm:"type:uuid;uniqueIndex;not null"`
	Title        string      `json:"title" gorm:"type:varchar(255);not null"`
	AuthorID     uint64      `json:"author_id" gorm:"index;not null"`
	CategoryID   uint64      `json:"category_id" gorm:"index;not null"`
	Synopsis     string      `json:"synopsis,omitempty" gorm:"type:text"`
	CoverURL     string      `json:"cover_url,omitempty" gorm:"type:varchar(512)"`
	Status       NovelStatus `json:"status" gorm:"type:varchar(32);default:'DRAFT';index"`
	IsCompleted  bool        `json:"is_completed" gorm:"default:false"`
	ChapterCnt   int64       `json:"chapter_cnt" gorm:"default:0"`
	WordCnt      int64       `json:"word_cnt" gorm:"default:0"`
	AvgRating    float64     `json:"avg_rating" gorm:"default:0"`
	ReviewCnt    int64       `json:"review_cnt" gorm:"default:0"`
	ViewCnt      int64       `json:"view_cnt" gorm:"default:0"`
	VoteCnt      int64       `json:"vote_cnt" gorm:"default:0"`
	RevenueTotal int64       `json:"revenue_total" gorm:"default:0"`
	PublishTime  *time.Time  `json:"publish_time,omitempty"`
	CreatedAt    time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Novel) TableName() string {
	return "novels"
}

// IsArchived 检查小说是否已归档（终态软删除）
func (n *Novel) IsArchived() bool {
	return n.Status == NovelStatusArchived
}

// IsVisible 检查小说是否对读者可见
func (n *Novel) IsVisible() bool {
	return n.Status == NovelStatusPublished
}

// IsEditable 检查小说内容是否可编辑
func (n *Novel) IsEditable() bool {
	return n.Status != NovelStatusArchived
}
