// Package novel 实现小说生命周期状态机与统计聚合
package novel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"z-novel-api/internal/application/authz"
	appcache "z-novel-api/internal/application/cache"
	"z-novel-api/internal/application/event"
	"z-novel-api/internal/application/search"
	"z-novel-api/internal/application/sideeffect"
	"z-novel-api/internal/domain/entity"
	"z-novel-api/internal/domain/repository"
	"z-novel-api/pkg/errors"
	"z-novel-api/pkg/logger"
	"z-novel-api/pkg/metrics"
)

// Service 小说应用服务
// 每个变更操作持有自己的事务；缓存失效、搜索同步、事件发布
// 严格在事务提交之后执行，且彼此故障隔离
type Service struct {
	novelRepo    repository.NovelRepository
	chapterRepo  repository.ChapterRepository
	categoryRepo repository.CategoryRepository
	tx           repository.Transactor
	cache        *appcache.Controller
	syncer       *search.Syncer
	emitter      *event.Emitter
	aggregator   *Aggregator
	now          func() time.Time
}

// NewService 创建小说服务
func NewService(
	novelRepo repository.NovelRepository,
	chapterRepo repository.ChapterRepository,
	categoryRepo repository.CategoryRepository,
	tx repository.Transactor,
	cacheCtl *appcache.Controller,
	syncer *search.Syncer,
	emitter *event.Emitter,
	aggregator *Aggregator,
) *Service {
	return &Service{
		novelRepo:    novelRepo,
		chapterRepo:  chapterRepo,
		categoryRepo: categoryRepo,
		tx:           tx,
		cache:        cacheCtl,
		syncer:       syncer,
		emitter:      emitter,
		aggregator:   aggregator,
		now:          time.Now,
	}
}

// CreateInput 创建小说入参
type CreateInput struct {
	Title      string
	CategoryID uint64
	Synopsis   string
	CoverURL   string
}

// Create 创建小说，初始状态 DRAFT
func (s *Service) Create(ctx context.Context, actor authz.Actor, input CreateInput) (*entity.Novel, error) {
	if err := authz.Authorize(actor, actor.UserID, authz.ActionCreate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.ErrValidationFailed.WithDetail("title is required")
	}
	if input.CategoryID == 0 {
		return nil, errors.ErrValidationFailed.WithDetail("category_id is required")
	}

	category, err := s.categoryRepo.GetByID(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, errors.ErrCategoryNotFound
	}

	novel := &entity.Novel{
		UUID:       uuid.NewString(),
		Title:      strings.TrimSpace(input.Title),
		AuthorID:   actor.UserID,
		CategoryID: input.CategoryID,
		Synopsis:   input.Synopsis,
		CoverURL:   input.CoverURL,
		Status:     entity.NovelStatusDraft,
	}

	if err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.novelRepo.Create(txCtx, novel)
	}); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actor, novel, event.TypeNovelCreated)
	return novel, nil
}

// Get 获取小说
// 非特权调用方（既非管理员也非作者）读取 ARCHIVED 小说时返回 NotFound
func (s *Service) Get(ctx context.Context, actor authz.Actor, id uint64) (*entity.Novel, error) {
	novel, err := appcache.GetOrLoadJSON(ctx, s.cache, "novel", appcache.NovelByID(id), s.cache.TTL(), func() (*entity.Novel, error) {
		return s.novelRepo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return s.guardRead(actor, novel)
}

// GetByUUID 按 UUID 获取小说
func (s *Service) GetByUUID(ctx context.Context, actor authz.Actor, novelUUID string) (*entity.Novel, error) {
	novel, err := appcache.GetOrLoadJSON(ctx, s.cache, "novel", appcache.NovelByUUID(novelUUID), s.cache.TTL(), func() (*entity.Novel, error) {
		return s.novelRepo.GetByUUID(ctx, novelUUID)
	})
	if err != nil {
		return nil, err
	}
	return s.guardRead(actor, novel)
}

func (s *Service) guardRead(actor authz.Actor, novel *entity.Novel) (*entity.Novel, error) {
	if novel == nil {
		return nil, errors.ErrNovelNotFound
	}
	if novel.IsArchived() && !actor.IsAdmin() && actor.UserID != novel.AuthorID {
		return nil, errors.ErrNovelNotFound
	}
	return novel, nil
}

// List 按过滤条件分页查询，结果经过列表缓存
func (s *Service) List(ctx context.Context, filter *repository.NovelFilter, sort repository.Sort, pagination repository.Pagination) (*repository.PagedResult[*entity.Novel], error) {
	shape := listShape(filter, sort, pagination)
	return appcache.GetOrLoadJSON(ctx, s.cache, "novel_list", appcache.NovelList(shape), s.cache.TTL(),
		func() (*repository.PagedResult[*entity.Novel], error) {
			return s.novelRepo.List(ctx, filter, sort, pagination)
		})
}

// Popular 热门小说榜单（默认过滤、按浏览量排序），接受更宽松的陈旧窗口
func (s *Service) Popular(ctx context.Context, limit int) ([]*entity.Novel, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return appcache.GetOrLoadJSON(ctx, s.cache, "novel_popular", appcache.NovelPopular(limit), s.cache.PopularTTL(),
		func() ([]*entity.Novel, error) {
			paged, err := s.novelRepo.List(ctx,
				&repository.NovelFilter{Status: entity.NovelStatusPublished},
				repository.NewSort("view_cnt", repository.SortOrderDesc),
				repository.NewPagination(1, limit),
			)
			if err != nil {
				return nil, err
			}
			return paged.Items, nil
		})
}

func listShape(filter *repository.NovelFilter, sort repository.Sort, pagination repository.Pagination) string {
	var b strings.Builder
	if filter != nil {
		fmt.Fprintf(&b, "a=%d&c=%d&s=%s&t=%s", filter.AuthorID, filter.CategoryID, filter.Status, filter.TitleLike)
		if filter.IsCompleted != nil {
			fmt.Fprintf(&b, "&done=%v", *filter.IsCompleted)
		}
	}
	fmt.Fprintf(&b, "&sort=%s:%s&p=%d:%d", sort.Field, sort.Order, pagination.Page, pagination.PageSize)
	return b.String()
}

// UpdateInput 更新小说入参，nil 字段不修改
type UpdateInput struct {
	Title       *string
	Synopsis    *string
	CoverURL    *string
	CategoryID  *uint64
	IsCompleted *bool
}

// Update 编辑小说内容
// 编辑策略：ARCHIVED 不可编辑；PUBLISHED/HIDDEN 状态下修改 is_completed
// 以外的任何字段会作为编辑的副作用隐式降级为 UNDER_REVIEW 以强制重审。
// 无字段实际变化的空更新跳过全部下游副作用。
func (s *Service) Update(ctx context.Context, actor authz.Actor, id uint64, input UpdateInput) (*entity.Novel, error) {
	var novel *entity.Novel
	var demoted bool
	var changed bool

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		novel, err = s.novelRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if novel == nil {
			return errors.ErrNovelNotFound
		}
		if err := authz.Authorize(actor, novel.AuthorID, authz.ActionEdit); err != nil {
			return err
		}
		if !novel.IsEditable() {
			return errors.ErrInvalidTransition.WithDetail("archived novel cannot be edited")
		}

		fields, err := s.changedFields(txCtx, novel, input)
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return nil
		}
		changed = true

		// 隐式降级：已发布/隐藏状态下修改 is_completed 以外的字段
		if novel.Status == entity.NovelStatusPublished || novel.Status == entity.NovelStatusHidden {
			for name := range fields {
				if name != "is_completed" {
					fields["status"] = entity.NovelStatusUnderReview
					demoted = true
					break
				}
			}
		}

		if err := s.novelRepo.UpdateSelective(txCtx, id, fields); err != nil {
			return err
		}
		novel, err = s.novelRepo.GetByID(txCtx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		return novel, nil
	}

	s.afterCommit(ctx, actor, novel, event.TypeNovelUpdated)
	if demoted {
		logger.Info(ctx, "novel demoted to review after edit", "novel_id", novel.ID)
		s.emitter.EmitNew(ctx, event.TopicNovel, partitionKey(novel.ID), event.TypeNovelDemoted, actor.UserID, novelPayload(novel))
	}
	return novel, nil
}

// changedFields 筛选实际发生变化的字段
// 字符串字段要求非空白，nil 字段忽略
func (s *Service) changedFields(ctx context.Context, novel *entity.Novel, input UpdateInput) (map[string]any, error) {
	fields := make(map[string]any)

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title != "" && title != novel.Title {
			fields["title"] = title
		}
	}
	if input.Synopsis != nil {
		synopsis := strings.TrimSpace(*input.Synopsis)
		if synopsis != "" && synopsis != novel.Synopsis {
			fields["synopsis"] = synopsis
		}
	}
	if input.CoverURL != nil {
		cover := strings.TrimSpace(*input.CoverURL)
		if cover != "" && cover != novel.CoverURL {
			fields["cover_url"] = cover
		}
	}
	if input.CategoryID != nil && *input.CategoryID != 0 && *input.CategoryID != novel.CategoryID {
		category, err := s.categoryRepo.GetByID(ctx, *input.CategoryID)
		if err != nil {
			return nil, err
		}
		if category == nil {
			return nil, errors.ErrCategoryNotFound
		}
		fields["category_id"] = *input.CategoryID
	}
	if input.IsCompleted != nil && *input.IsCompleted != novel.IsCompleted {
		fields["is_completed"] = *input.IsCompleted
	}

	return fields, nil
}

// SubmitForReview 作者提交审核：DRAFT -> UNDER_REVIEW
func (s *Service) SubmitForReview(ctx context.Context, actor authz.Actor, id uint64) (*entity.Novel, error) {
	return s.transition(ctx, actor, id, entity.NovelStatusUnderReview, event.TypeNovelSubmitted)
}

// Approve 管理员批准：UNDER_REVIEW -> PUBLISHED，首次发布时落 publish_time
func (s *Service) Approve(ctx context.Context, actor authz.Actor, id uint64) (*entity.Novel, error) {
	return s.transition(ctx, actor, id, entity.NovelStatusPublished, event.TypeNovelPublished)
}

// Reject 管理员驳回：UNDER_REVIEW -> DRAFT
func (s *Service) Reject(ctx context.Context, actor authz.Actor, id uint64) (*entity.Novel, error) {
	return s.transition(ctx, actor, id, entity.NovelStatusDraft, event.TypeNovelRejected)
}

// Hide 下架：PUBLISHED -> HIDDEN
func (s *Service) Hide(ctx context.Context, actor authz.Actor, id uint64) (*entity.Novel, error) {
	return s.transition(ctx, actor, id, entity.NovelStatusHidden, event.TypeNovelHidden)
}

// Unhide 重新上架：HIDDEN -> PUBLISHED
func (s *Service) Unhide(ctx context.Context, actor authz.Actor, id uint64) (*entity.Novel, error) {
	return s.transition(ctx, actor, id, entity.NovelStatusPublished, event.TypeNovelUnhidden)
}

// Archive 归档（终态软删除）：{DRAFT, PUBLISHED, HIDDEN} -> ARCHIVED
func (s *Service) Archive(ctx context.Context, actor authz.Actor, id uint64) (*entity.Novel, error) {
	return s.transition(ctx, actor, id, entity.NovelStatusArchived, event.TypeNovelArchived)
}

// transition 执行状态转换
// 在事务内重读实体并校验转换表，避免基于陈旧状态的转换
func (s *Service) transition(ctx context.Context, actor authz.Actor, id uint64, target entity.NovelStatus, evType event.Type) (*entity.Novel, error) {
	var novel *entity.Novel
	var from entity.NovelStatus

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		novel, err = s.novelRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if novel == nil {
			return errors.ErrNovelNotFound
		}

		from = novel.Status
		action, ok := transitionAction(from, target)
		if !ok {
			return errors.ErrInvalidTransition.WithDetail(
				fmt.Sprintf("%s -> %s is not allowed", from, target))
		}
		if err := authz.Authorize(actor, novel.AuthorID, action); err != nil {
			return err
		}

		fields := map[string]any{"status": target}
		if target == entity.NovelStatusPublished && novel.PublishTime == nil {
			fields["publish_time"] = s.now()
		}
		if err := s.novelRepo.UpdateSelective(txCtx, id, fields); err != nil {
			return err
		}
		novel, err = s.novelRepo.GetByID(txCtx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.NovelTransitionsTotal.WithLabelValues(string(from), string(target)).Inc()
	s.afterCommit(ctx, actor, novel, evType)
	return novel, nil
}

// IncrementView 浏览量自增
// 持久化增量 + 缓存乐观增量并发进行，浏览量非正确性关键
func (s *Service) IncrementView(ctx context.Context, id uint64) error {
	if err := s.novelRepo.IncrementViewCount(ctx, id, 1); err != nil {
		return err
	}
	sideeffect.Run(ctx, "cache", func(cctx context.Context) error {
		_, err := s.cache.IncrementView(cctx, appcache.NovelViewCount(id), 1)
		return err
	})
	return nil
}

// Stats 小说统计报表（缓存的只读派生数据）
func (s *Service) Stats(ctx context.Context, actor authz.Actor, id uint64) (*Report, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return appcache.GetOrLoadJSON(ctx, s.cache, "novel_stats", appcache.NovelStats(id), s.cache.TTL(),
		func() (*Report, error) {
			return s.aggregator.BuildReport(ctx, id)
		})
}

// afterCommit 提交确认后的三路副作用：缓存失效、搜索同步、事件发布
// 各自独立故障隔离，任何一路失败都不影响其它路，也不影响已提交的变更
func (s *Service) afterCommit(ctx context.Context, actor authz.Actor, novel *entity.Novel, evType event.Type) {
	sideeffect.Run(ctx, "cache", func(cctx context.Context) error {
		return s.cache.InvalidateNovel(cctx, novel)
	})
	sideeffect.Run(ctx, "search", func(cctx context.Context) error {
		return s.syncer.SyncNovel(cctx, novel)
	})
	s.emitter.EmitNew(ctx, event.TopicNovel, partitionKey(novel.ID), evType, actor.UserID, novelPayload(novel))
}

// partitionKey 以 novelId 作为传输层分区提示
func partitionKey(novelID uint64) string {
	return fmt.Sprintf("novel:%d", novelID)
}

// novelPayload 事件携带的公开字段
func novelPayload(n *entity.Novel) map[string]any {
	return map[string]any{
		"novel_id":     n.ID,
		"uuid":         n.UUID,
		"title":        n.Title,
		"author_id":    n.AuthorID,
		"category_id":  n.CategoryID,
		"status":       n.Status,
		"is_completed": n.IsCompleted,
		"publish_time": n.PublishTime,
	}
}
