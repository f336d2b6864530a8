// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"
)

// Chapter 章节实体
// 可见性谓词：IsValid == true 且 PublishTime <= now
// 软删除通过 IsValid=false 实现，行永不物理删除
type Chapter struct {
	ID            uint64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UUID          string     `json:"uuid" gorm:"type:uuid;uniqueIndex;not null"`
	NovelID       uint64     `json:"novel_id" gorm:"index:idx_chapters_novel_number;not null"`
	ChapterNumber int        `json:"chapter_number" gorm:"index:idx_chapters_novel_number;not null"`
	Title         string     `json:"title,omitempty" gorm:"type:varchar(255)"`
	Content       string     `json:"content,omitempty" gorm:"type:text"`
	WordCnt       int64      `json:"word_cnt" gorm:"default:0"`
	IsPremium     bool       `json:"is_premium" gorm:"default:false"`
	Price         int64      `json:"price" gorm:"default:0"`
	ViewCnt       int64      `json:"view_cnt" gorm:"default:0"`
	IsValid       bool       `json:"is_valid" gorm:"default:true;index"`
	PublishTime   *time.Time `json:"publish_time,omitempty"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Chapter) TableName() string {
	return "chapters"
}

// VisibleAt 检查章节在给定时刻是否可见
func (c *Chapter) VisibleAt(now time.Time) bool {
	return c.IsValid && c.PublishTime != nil && !c.PublishTime.After(now)
}

// DeriveWordCount 从正文派生字数（去除首尾空白后的 rune 数）
func DeriveWordCount(content string) int64 {
	return int64(len([]rune(strings.TrimSpace(content))))
}
