// Package chapter 实现章节生命周期管理
package chapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"z-novel-api/internal/application/authz"
	appcache "z-novel-api/internal/application/cache"
	"z-novel-api/internal/application/event"
	"z-novel-api/internal/application/novel"
	"z-novel-api/internal/application/search"
	"z-novel-api/internal/application/sideeffect"
	"z-novel-api/internal/domain/entity"
	"z-novel-api/internal/domain/repository"
	"z-novel-api/pkg/errors"
	"z-novel-api/pkg/logger"
)

// Service 章节应用服务
// 任何可能改变章节可见性或字数的操作都在同一事务内触发统计重算
type Service struct {
	chapterRepo repository.ChapterRepository
	novelRepo   repository.NovelRepository
	tx          repository.Transactor
	cache       *appcache.Controller
	syncer      *search.Syncer
	emitter     *event.Emitter
	aggregator  *novel.Aggregator
	now         func() time.Time
}

// NewService 创建章节服务
func NewService(
	chapterRepo repository.ChapterRepository,
	novelRepo repository.NovelRepository,
	tx repository.Transactor,
	cacheCtl *appcache.Controller,
	syncer *search.Syncer,
	emitter *event.Emitter,
	aggregator *novel.Aggregator,
) *Service {
	return &Service{
		chapterRepo: chapterRepo,
		novelRepo:   novelRepo,
		tx:          tx,
		cache:       cacheCtl,
		syncer:      syncer,
		emitter:     emitter,
		aggregator:  aggregator,
		now:         time.Now,
	}
}

// CreateInput 创建章节入参
// 字数规则：显式 WordCnt 优先；否则由正文派生；两者都缺省则不设置
type CreateInput struct {
	NovelID       uint64
	ChapterNumber int
	Title         string
	Content       string
	WordCnt       *int64
	IsPremium     bool
	Price         int64
}

// Create 创建章节
// 小说必须存在且未归档；(novelId, chapterNumber) 在未删除章节中唯一
func (s *Service) Create(ctx context.Context, actor authz.Actor, input CreateInput) (*entity.Chapter, error) {
	var chapter *entity.Chapter

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		parent, err := s.guardParent(txCtx, actor, input.NovelID, authz.ActionCreate)
		if err != nil {
			return err
		}

		chapter, err = s.buildChapter(txCtx, parent.ID, input)
		if err != nil {
			return err
		}
		if err := s.chapterRepo.Create(txCtx, chapter); err != nil {
			return err
		}
		return s.aggregator.Recompute(txCtx, parent.ID)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actor, chapter, event.TypeChapterCreated)
	return chapter, nil
}

// BatchCreate 批量创建章节，整批原子生效
// 任一条目违反唯一性或校验规则则整批失败
func (s *Service) BatchCreate(ctx context.Context, actor authz.Actor, novelID uint64, inputs []CreateInput) ([]*entity.Chapter, error) {
	if len(inputs) == 0 {
		return nil, errors.ErrValidationFailed.WithDetail("empty batch")
	}

	var chapters []*entity.Chapter
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		parent, err := s.guardParent(txCtx, actor, novelID, authz.ActionCreate)
		if err != nil {
			return err
		}

		seen := make(map[int]bool, len(inputs))
		chapters = chapters[:0]
		for _, input := range inputs {
			if seen[input.ChapterNumber] {
				return errors.ErrChapterNumberTaken.WithDetail(
					fmt.Sprintf("duplicate chapter number %d in batch", input.ChapterNumber))
			}
			seen[input.ChapterNumber] = true

			input.NovelID = parent.ID
			chapter, err := s.buildChapter(txCtx, parent.ID, input)
			if err != nil {
				return err
			}
			chapters = append(chapters, chapter)
		}

		if err := s.chapterRepo.CreateBatch(txCtx, chapters); err != nil {
			return err
		}
		return s.aggregator.Recompute(txCtx, novelID)
	})
	if err != nil {
		return nil, err
	}

	for _, chapter := range chapters {
		s.afterCommit(ctx, actor, chapter, event.TypeChapterCreated)
	}
	return chapters, nil
}

// buildChapter 在事务内校验唯一性并组装章节实体
func (s *Service) buildChapter(ctx context.Context, novelID uint64, input CreateInput) (*entity.Chapter, error) {
	if input.ChapterNumber <= 0 {
		return nil, errors.ErrValidationFailed.WithDetail("chapter_number must be positive")
	}
	taken, err := s.chapterRepo.ExistsByNovelAndNumber(ctx, novelID, input.ChapterNumber)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errors.ErrChapterNumberTaken.WithDetail(
			fmt.Sprintf("chapter number %d already used", input.ChapterNumber))
	}

	chapter := &entity.Chapter{
		UUID:          uuid.NewString(),
		NovelID:       novelID,
		ChapterNumber: input.ChapterNumber,
		Title:         strings.TrimSpace(input.Title),
		Content:       input.Content,
		IsPremium:     input.IsPremium,
		Price:         input.Price,
		IsValid:       true,
	}
	chapter.WordCnt = resolveWordCount(input.WordCnt, input.Content)
	return chapter, nil
}

// resolveWordCount 显式字数优先于正文派生，均缺省为 0
func resolveWordCount(explicit *int64, content string) int64 {
	if explicit != nil {
		return *explicit
	}
	if strings.TrimSpace(content) != "" {
		return entity.DeriveWordCount(content)
	}
	return 0
}

// UpdateInput 更新章节入参，nil 字段不修改
type UpdateInput struct {
	Title     *string
	Content   *string
	WordCnt   *int64
	IsPremium *bool
	Price     *int64
}

// Update 编辑章节
// 仅应用实际变化的字段；无字段变化的空更新跳过全部下游副作用
func (s *Service) Update(ctx context.Context, actor authz.Actor, id uint64, input UpdateInput) (*entity.Chapter, error) {
	var chapter *entity.Chapter
	var changed bool

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		chapter, err = s.loadForWrite(txCtx, actor, id, authz.ActionEdit, false)
		if err != nil {
			return err
		}

		fields := changedFields(chapter, input)
		if len(fields) == 0 {
			return nil
		}
		changed = true

		if err := s.chapterRepo.UpdateSelective(txCtx, id, fields); err != nil {
			return err
		}
		if _, touched := fields["word_cnt"]; touched {
			if err := s.aggregator.Recompute(txCtx, chapter.NovelID); err != nil {
				return err
			}
		}
		chapter, err = s.chapterRepo.GetByID(txCtx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		return chapter, nil
	}
	s.afterCommit(ctx, actor, chapter, event.TypeChapterUpdated)
	return chapter, nil
}

// changedFields 筛选实际发生变化的字段
// 正文变化且未显式给出字数时重新派生字数
func changedFields(chapter *entity.Chapter, input UpdateInput) map[string]any {
	fields := make(map[string]any)

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title != "" && title != chapter.Title {
			fields["title"] = title
		}
	}
	if input.Content != nil {
		content := *input.Content
		if strings.TrimSpace(content) != "" && content != chapter.Content {
			fields["content"] = content
			if input.WordCnt == nil {
				if derived := entity.DeriveWordCount(content); derived != chapter.WordCnt {
					fields["word_cnt"] = derived
				}
			}
		}
	}
	if input.WordCnt != nil && *input.WordCnt != chapter.WordCnt {
		fields["word_cnt"] = *input.WordCnt
	}
	if input.IsPremium != nil && *input.IsPremium != chapter.IsPremium {
		fields["is_premium"] = *input.IsPremium
	}
	if input.Price != nil && *input.Price != chapter.Price {
		fields["price"] = *input.Price
	}
	return fields
}

// Publish 发布章节：恢复有效并落发布时间
// at 为 nil 时用当前时刻；已有发布时间且未显式指定时保持不变
// 已发布章节的重复发布若不改变任何字段，则为空操作并跳过全部下游副作用
func (s *Service) Publish(ctx context.Context, actor authz.Actor, id uint64, at *time.Time) (*entity.Chapter, error) {
	var chapter *entity.Chapter
	var changed bool

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		chapter, err = s.loadForWrite(txCtx, actor, id, authz.ActionPublish, true)
		if err != nil {
			return err
		}

		fields := make(map[string]any)
		if !chapter.IsValid {
			fields["is_valid"] = true
		}
		switch {
		case at != nil:
			if chapter.PublishTime == nil || !chapter.PublishTime.Equal(*at) {
				fields["publish_time"] = *at
			}
		case chapter.PublishTime == nil:
			fields["publish_time"] = s.now()
		}
		if len(fields) == 0 {
			return nil
		}
		changed = true

		if err := s.chapterRepo.UpdateSelective(txCtx, id, fields); err != nil {
			return err
		}
		if err := s.aggregator.Recompute(txCtx, chapter.NovelID); err != nil {
			return err
		}
		chapter, err = s.chapterRepo.GetByID(txCtx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		return chapter, nil
	}
	s.afterCommit(ctx, actor, chapter, event.TypeChapterPublished)
	return chapter, nil
}

// Unpublish 撤下章节：清空发布时间使其不可见，不影响删除标记
func (s *Service) Unpublish(ctx context.Context, actor authz.Actor, id uint64) (*entity.Chapter, error) {
	var chapter *entity.Chapter

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		chapter, err = s.loadForWrite(txCtx, actor, id, authz.ActionPublish, false)
		if err != nil {
			return err
		}

		if err := s.chapterRepo.UpdateSelective(txCtx, id, map[string]any{"publish_time": nil}); err != nil {
			return err
		}
		if err := s.aggregator.Recompute(txCtx, chapter.NovelID); err != nil {
			return err
		}
		chapter, err = s.chapterRepo.GetByID(txCtx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actor, chapter, event.TypeChapterRetracted)
	return chapter, nil
}

// BatchSetValid 一次性设置小说全部章节的有效标记
func (s *Service) BatchSetValid(ctx context.Context, actor authz.Actor, novelID uint64, valid bool) error {
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.guardParent(txCtx, actor, novelID, authz.ActionPublish); err != nil {
			return err
		}
		if err := s.chapterRepo.SetValidByNovel(txCtx, novelID, valid); err != nil {
			return err
		}
		return s.aggregator.Recompute(txCtx, novelID)
	})
	if err != nil {
		return err
	}

	evType := event.TypeChapterPublished
	if !valid {
		evType = event.TypeChapterRetracted
	}
	s.afterNovelCommit(ctx, actor, novelID, evType)
	return nil
}

// SoftDelete 软删除章节（作者本人）
func (s *Service) SoftDelete(ctx context.Context, actor authz.Actor, id uint64) error {
	return s.softDelete(ctx, actor, id, authz.ActionDelete)
}

// AdminDelete 管理员软删除章节，绕过作者校验但效果一致
func (s *Service) AdminDelete(ctx context.Context, actor authz.Actor, id uint64) error {
	return s.softDelete(ctx, actor, id, authz.ActionAdminDelete)
}

func (s *Service) softDelete(ctx context.Context, actor authz.Actor, id uint64, action authz.Action) error {
	var chapter *entity.Chapter

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		chapter, err = s.loadForWrite(txCtx, actor, id, action, false)
		if err != nil {
			return err
		}
		if err := s.chapterRepo.SoftDelete(txCtx, id); err != nil {
			return err
		}
		return s.aggregator.Recompute(txCtx, chapter.NovelID)
	})
	if err != nil {
		return err
	}

	chapter.IsValid = false
	s.afterCommit(ctx, actor, chapter, event.TypeChapterDeleted)
	return nil
}

// SoftDeleteByNovel 软删除小说全部章节（作者本人）
func (s *Service) SoftDeleteByNovel(ctx context.Context, actor authz.Actor, novelID uint64) error {
	return s.softDeleteByNovel(ctx, actor, novelID, authz.ActionDelete)
}

// AdminDeleteByNovel 管理员软删除小说全部章节
func (s *Service) AdminDeleteByNovel(ctx context.Context, actor authz.Actor, novelID uint64) error {
	return s.softDeleteByNovel(ctx, actor, novelID, authz.ActionAdminDelete)
}

func (s *Service) softDeleteByNovel(ctx context.Context, actor authz.Actor, novelID uint64, action authz.Action) error {
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.guardParent(txCtx, actor, novelID, action); err != nil {
			return err
		}
		if err := s.chapterRepo.SoftDeleteByNovel(txCtx, novelID); err != nil {
			return err
		}
		return s.aggregator.Recompute(txCtx, novelID)
	})
	if err != nil {
		return err
	}

	s.afterNovelCommit(ctx, actor, novelID, event.TypeChapterDeleted)
	return nil
}

// Get 获取章节
// 不可见章节仅作者与管理员可读，其余调用方得到 NotFound
func (s *Service) Get(ctx context.Context, actor authz.Actor, id uint64) (*entity.Chapter, error) {
	chapter, err := appcache.GetOrLoadJSON(ctx, s.cache, "chapter", appcache.ChapterByID(id), s.cache.TTL(), func() (*entity.Chapter, error) {
		return s.chapterRepo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return s.guardRead(ctx, actor, chapter)
}

// GetByUUID 按 UUID 获取章节
func (s *Service) GetByUUID(ctx context.Context, actor authz.Actor, chapterUUID string) (*entity.Chapter, error) {
	chapter, err := appcache.GetOrLoadJSON(ctx, s.cache, "chapter", appcache.ChapterByUUID(chapterUUID), s.cache.TTL(), func() (*entity.Chapter, error) {
		return s.chapterRepo.GetByUUID(ctx, chapterUUID)
	})
	if err != nil {
		return nil, err
	}
	return s.guardRead(ctx, actor, chapter)
}

// GetByNumber 按 (novelId, chapterNumber) 获取章节
func (s *Service) GetByNumber(ctx context.Context, actor authz.Actor, novelID uint64, number int) (*entity.Chapter, error) {
	chapter, err := appcache.GetOrLoadJSON(ctx, s.cache, "chapter", appcache.ChapterByNovelAndNumber(novelID, number), s.cache.TTL(), func() (*entity.Chapter, error) {
		return s.chapterRepo.GetByNovelAndNumber(ctx, novelID, number)
	})
	if err != nil {
		return nil, err
	}
	return s.guardRead(ctx, actor, chapter)
}

func (s *Service) guardRead(ctx context.Context, actor authz.Actor, chapter *entity.Chapter) (*entity.Chapter, error) {
	if chapter == nil || !chapter.IsValid {
		return nil, errors.ErrChapterNotFound
	}
	if chapter.VisibleAt(s.now()) || actor.IsAdmin() {
		return chapter, nil
	}
	parent, err := s.novelRepo.GetByID(ctx, chapter.NovelID)
	if err != nil {
		return nil, err
	}
	if parent != nil && parent.AuthorID == actor.UserID {
		return chapter, nil
	}
	return nil, errors.ErrChapterNotFound
}

// List 分页列出小说章节
// 非特权调用方强制只看可见章节
func (s *Service) List(ctx context.Context, actor authz.Actor, novelID uint64, pagination repository.Pagination) (*repository.PagedResult[*entity.Chapter], error) {
	filter := &repository.ChapterFilter{VisibleOnly: true}
	if privileged, err := s.isPrivileged(ctx, actor, novelID); err != nil {
		return nil, err
	} else if privileged {
		filter = nil
	}

	shape := fmt.Sprintf("vis=%v&p=%d:%d", filter != nil, pagination.Page, pagination.PageSize)
	return appcache.GetOrLoadJSON(ctx, s.cache, "chapter_list", appcache.ChapterList(novelID, shape), s.cache.TTL(),
		func() (*repository.PagedResult[*entity.Chapter], error) {
			return s.chapterRepo.ListByNovel(ctx, novelID, filter, pagination)
		})
}

func (s *Service) isPrivileged(ctx context.Context, actor authz.Actor, novelID uint64) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	parent, err := s.novelRepo.GetByID(ctx, novelID)
	if err != nil {
		return false, err
	}
	return parent != nil && parent.AuthorID == actor.UserID, nil
}

// Next 下一章，按章节号严格排序；无下一章返回 nil 而非错误
func (s *Service) Next(ctx context.Context, novelID uint64, number int) (*entity.Chapter, error) {
	return s.chapterRepo.Next(ctx, novelID, number)
}

// Previous 上一章；无上一章返回 nil 而非错误
func (s *Service) Previous(ctx context.Context, novelID uint64, number int) (*entity.Chapter, error) {
	return s.chapterRepo.Previous(ctx, novelID, number)
}

// IncrementView 浏览量自增，缓存侧为乐观增量
func (s *Service) IncrementView(ctx context.Context, id uint64) error {
	if err := s.chapterRepo.IncrementViewCount(ctx, id, 1); err != nil {
		return err
	}
	sideeffect.Run(ctx, "cache", func(cctx context.Context) error {
		_, err := s.cache.IncrementView(cctx, appcache.ChapterViewCount(id), 1)
		return err
	})
	return nil
}

// guardParent 在事务内校验父小说存在、未归档并授权
func (s *Service) guardParent(ctx context.Context, actor authz.Actor, novelID uint64, action authz.Action) (*entity.Novel, error) {
	parent, err := s.novelRepo.GetByID(ctx, novelID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, errors.ErrNovelNotFound
	}
	if parent.IsArchived() {
		return nil, errors.ErrInvalidTransition.WithDetail("archived novel cannot accept chapter changes")
	}
	if err := authz.Authorize(actor, parent.AuthorID, action); err != nil {
		return nil, err
	}
	return parent, nil
}

// loadForWrite 在事务内加载章节并对其父小说执行授权
// allowDeleted 允许对软删除章节操作（发布可恢复已删除章节）
func (s *Service) loadForWrite(ctx context.Context, actor authz.Actor, id uint64, action authz.Action, allowDeleted bool) (*entity.Chapter, error) {
	chapter, err := s.chapterRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if chapter == nil || (!chapter.IsValid && !allowDeleted) {
		return nil, errors.ErrChapterNotFound
	}
	if _, err := s.guardParent(ctx, actor, chapter.NovelID, action); err != nil {
		return nil, err
	}
	return chapter, nil
}

// afterCommit 提交后的三路副作用：缓存失效、搜索同步、事件发布
func (s *Service) afterCommit(ctx context.Context, actor authz.Actor, chapter *entity.Chapter, evType event.Type) {
	sideeffect.Run(ctx, "cache", func(cctx context.Context) error {
		return s.cache.InvalidateChapter(cctx, chapter)
	})
	sideeffect.Run(ctx, "search", func(cctx context.Context) error {
		return s.syncer.SyncChapter(cctx, chapter)
	})
	s.emitter.EmitNew(ctx, event.TopicChapter, partitionKey(chapter.NovelID), evType, actor.UserID, chapterPayload(chapter))
}

// afterNovelCommit 整本粒度操作的提交后副作用：逐章同步搜索投影
func (s *Service) afterNovelCommit(ctx context.Context, actor authz.Actor, novelID uint64, evType event.Type) {
	sideeffect.Run(ctx, "cache", func(cctx context.Context) error {
		return s.cache.InvalidateNovelChapters(cctx, novelID)
	})
	sideeffect.Run(ctx, "search", func(cctx context.Context) error {
		chapters, err := s.chapterRepo.ListAllByNovel(cctx, novelID)
		if err != nil {
			return err
		}
		// 单章同步失败不中断其余章节的投影
		var firstErr error
		for _, chapter := range chapters {
			if err := s.syncer.SyncChapter(cctx, chapter); err != nil {
				logger.Warn(cctx, "chapter projection sync failed", "chapter_id", chapter.ID, "error", err.Error())
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		return firstErr
	})
	s.emitter.EmitNew(ctx, event.TopicChapter, partitionKey(novelID), evType, actor.UserID, map[string]any{
		"novel_id": novelID,
	})
}

// partitionKey 以 novelId 作为传输层分区提示
func partitionKey(novelID uint64) string {
	return fmt.Sprintf("novel:%d", novelID)
}

// chapterPayload 事件携带的公开字段，不含正文
func chapterPayload(c *entity.Chapter) map[string]any {
	return map[string]any{
		"chapter_id":     c.ID,
		"uuid":           c.UUID,
		"novel_id":       c.NovelID,
		"chapter_number": c.ChapterNumber,
		"title":          c.Title,
		"word_cnt":       c.WordCnt,
		"is_premium":     c.IsPremium,
		"is_valid":       c.IsValid,
		"publish_time":   c.PublishTime,
	}
}
