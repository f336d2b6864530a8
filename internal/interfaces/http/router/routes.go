// Package router 提供 HTTP 路由配置
package router

import (
	"z-novel-api/internal/application/authz"
	"z-novel-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
// 读路由对匿名开放，写路由按角色粗筛后交由应用层做资源级授权
func RegisterV1Routes(v1 *gin.RouterGroup, h *Handlers) {
	writer := middleware.RequireRole(authz.RoleAuthor, authz.RoleAdmin)
	admin := middleware.RequireAdmin()

	// 小说管理
	novels := v1.Group("/novels")
	{
		novels.GET("", h.Novel.ListNovels)
		novels.GET("/popular", h.Novel.PopularNovels)
		novels.GET("/uuid/:uuid", h.Novel.GetNovelByUUID)
		novels.GET("/:nid", h.Novel.GetNovel)
		novels.GET("/:nid/stats", h.Novel.NovelStats)
		novels.POST("/:nid/view", h.Novel.IncrementNovelView)

		novels.POST("", writer, h.Novel.CreateNovel)
		novels.PUT("/:nid", writer, h.Novel.UpdateNovel)

		// 生命周期状态转换
		novels.POST("/:nid/submit", writer, h.Novel.SubmitNovel)
		novels.POST("/:nid/approve", admin, h.Novel.ApproveNovel)
		novels.POST("/:nid/reject", admin, h.Novel.RejectNovel)
		novels.POST("/:nid/hide", writer, h.Novel.HideNovel)
		novels.POST("/:nid/unhide", writer, h.Novel.UnhideNovel)
		novels.POST("/:nid/archive", writer, h.Novel.ArchiveNovel)

		// 章节（按小说维度）
		novels.GET("/:nid/chapters", h.Chapter.ListChapters)
		novels.GET("/:nid/chapters/number/:num", h.Chapter.GetChapterByNumber)
		novels.GET("/:nid/chapters/number/:num/navigation", h.Chapter.ChapterNavigation)

		novels.POST("/:nid/chapters", writer, h.Chapter.CreateChapter)
		novels.POST("/:nid/chapters/batch", writer, h.Chapter.BatchCreateChapters)
		novels.PUT("/:nid/chapters/validity", writer, h.Chapter.SetChaptersValidity)
		novels.DELETE("/:nid/chapters", writer, h.Chapter.DeleteChaptersByNovel)
	}

	// 章节（按章节维度）
	chapters := v1.Group("/chapters")
	{
		chapters.GET("/uuid/:uuid", h.Chapter.GetChapterByUUID)
		chapters.GET("/:cid", h.Chapter.GetChapter)
		chapters.POST("/:cid/view", h.Chapter.IncrementChapterView)

		chapters.PUT("/:cid", writer, h.Chapter.UpdateChapter)
		chapters.POST("/:cid/publish", writer, h.Chapter.PublishChapter)
		chapters.POST("/:cid/unpublish", writer, h.Chapter.UnpublishChapter)
		chapters.DELETE("/:cid", writer, h.Chapter.DeleteChapter)
	}

	// 分类管理
	categories := v1.Group("/categories")
	{
		categories.GET("", h.Category.ListCategories)
		categories.GET("/slug/:slug", h.Category.GetCategoryBySlug)
		categories.GET("/:id", h.Category.GetCategory)

		categories.POST("", admin, h.Category.CreateCategory)
		categories.PUT("/:id", admin, h.Category.UpdateCategory)
		categories.DELETE("/:id", admin, h.Category.DeleteCategory)
	}

	// 搜索
	v1.GET("/search", h.Search.Search)
}
