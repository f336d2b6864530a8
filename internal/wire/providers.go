// Package wire 提供依赖注入配置
package wire

import (
	"github.com/google/wire"

	appcache "z-novel-api/internal/application/cache"
	"z-novel-api/internal/application/category"
	"z-novel-api/internal/application/chapter"
	"z-novel-api/internal/application/event"
	"z-novel-api/internal/application/novel"
	"z-novel-api/internal/application/search"
	"z-novel-api/internal/config"
	"z-novel-api/internal/domain/repository"
	"z-novel-api/internal/infrastructure/messaging"
	"z-novel-api/internal/infrastructure/persistence/postgres"
	"z-novel-api/internal/infrastructure/persistence/redis"
	"z-novel-api/internal/infrastructure/redissearch"
	"z-novel-api/internal/interfaces/http/handler"
	"z-novel-api/internal/interfaces/http/router"
)

// RepoSet PostgreSQL 仓储提供者集合
var RepoSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewNovelRepository,
	postgres.NewChapterRepository,
	postgres.NewCategoryRepository,
	// 接口绑定
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.NovelRepository), new(*postgres.NovelRepository)),
	wire.Bind(new(repository.ChapterRepository), new(*postgres.ChapterRepository)),
	wire.Bind(new(repository.CategoryRepository), new(*postgres.CategoryRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCacheStore,
	wire.Bind(new(appcache.Store), new(*redis.CacheStore)),
	ProvideCacheController,
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
	ProvideEventTransport,
	wire.Bind(new(event.Transport), new(*messaging.EventTransport)),
	ProvideEmitter,
)

// SearchSet 搜索投影提供者集合
var SearchSet = wire.NewSet(
	ProvideSearchIndex,
	search.NewSyncer,
	search.NewFallback,
	ProvideSearchService,
)

// ApplicationSet 应用服务提供者集合
var ApplicationSet = wire.NewSet(
	novel.NewAggregator,
	novel.NewService,
	chapter.NewService,
	category.NewService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	handler.NewHealthHandler,
	handler.NewNovelHandler,
	handler.NewChapterHandler,
	handler.NewCategoryHandler,
	handler.NewSearchHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideCacheController 提供缓存控制器
func ProvideCacheController(cfg *config.Config, store appcache.Store) *appcache.Controller {
	return appcache.NewController(store, cfg.Cache.TTL, cfg.Cache.PopularTTL)
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideEventTransport 提供事件传输
func ProvideEventTransport(producer *messaging.Producer, cfg *config.Config) *messaging.EventTransport {
	return messaging.NewEventTransport(producer, cfg.Messaging.RedisStream.EmitTimeout)
}

// ProvideEmitter 提供事件发射器
func ProvideEmitter(transport event.Transport, cfg *config.Config) *event.Emitter {
	return event.NewEmitter(transport, cfg.App.Name)
}

// ProvideSearchIndex 按配置选定索引实现
// 禁用时注入空实现，查询路径由查询服务转发到关系型回退
func ProvideSearchIndex(cfg *config.Config, redisClient *redis.Client) search.Index {
	if cfg.Search.Enabled {
		return redissearch.NewIndex(redisClient.Redis(), cfg.Search.KeyPrefix)
	}
	return search.NewNoopIndex()
}

// ProvideSearchService 提供查询服务
func ProvideSearchService(cfg *config.Config, index search.Index, fallback *search.Fallback) *search.Service {
	return search.NewService(index, fallback, cfg.Search.Enabled)
}
