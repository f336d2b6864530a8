// Package cache 实现旁路缓存一致性控制
package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// 键方案：每个实体变体一个键，列表查询按形状派生键
// 失效时按实体删除全部变体键并按模式清除列表键

// NovelByID 小说主键缓存键
func NovelByID(id uint64) string {
	return fmt.Sprintf("novel:id:%d", id)
}

// NovelByUUID 小说 UUID 缓存键
func NovelByUUID(uuid string) string {
	return fmt.Sprintf("novel:uuid:%s", uuid)
}

// NovelList 小说列表缓存键（按查询形状摘要）
func NovelList(shape string) string {
	return "novel:list:" + digest(shape)
}

// NovelListPattern 小说列表键的失效模式
func NovelListPattern() string {
	return "novel:list:*"
}

// NovelPopular 热门小说榜单键（接受更宽松的陈旧窗口）
// 榜单长度参与键派生，不同 limit 的榜单互不串扰
func NovelPopular(limit int) string {
	return fmt.Sprintf("novel:popular:%d", limit)
}

// NovelPopularPattern 热门榜单键的失效模式
func NovelPopularPattern() string {
	return "novel:popular:*"
}

// NovelViewCount 小说浏览量计数键（乐观增量）
func NovelViewCount(id uint64) string {
	return fmt.Sprintf("novel:view:%d", id)
}

// NovelStats 小说统计报表键
func NovelStats(id uint64) string {
	return fmt.Sprintf("novel:stats:%d", id)
}

// ChapterByID 章节主键缓存键
func ChapterByID(id uint64) string {
	return fmt.Sprintf("chapter:id:%d", id)
}

// ChapterByUUID 章节 UUID 缓存键
func ChapterByUUID(uuid string) string {
	return fmt.Sprintf("chapter:uuid:%s", uuid)
}

// ChapterByNovelAndNumber 章节复合键缓存键
func ChapterByNovelAndNumber(novelID uint64, number int) string {
	return fmt.Sprintf("chapter:novel:%d:num:%d", novelID, number)
}

// ChapterListPattern 指定小说章节列表键的失效模式
func ChapterListPattern(novelID uint64) string {
	return fmt.Sprintf("chapter:list:%d:*", novelID)
}

// ChapterList 章节列表缓存键
func ChapterList(novelID uint64, shape string) string {
	return fmt.Sprintf("chapter:list:%d:%s", novelID, digest(shape))
}

// ChapterViewCount 章节浏览量计数键
func ChapterViewCount(id uint64) string {
	return fmt.Sprintf("chapter:view:%d", id)
}

// CategoryByID 分类主键缓存键
func CategoryByID(id uint64) string {
	return fmt.Sprintf("category:id:%d", id)
}

// CategoryBySlug 分类 slug 缓存键
func CategoryBySlug(slug string) string {
	return "category:slug:" + slug
}

// CategoryList 分类列表缓存键
func CategoryList() string {
	return "category:list"
}

func digest(shape string) string {
	sum := sha1.Sum([]byte(shape))
	return hex.EncodeToString(sum[:8])
}
