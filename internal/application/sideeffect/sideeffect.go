// Package sideeffect 提供提交后副作用的统一故障隔离
// 缓存失效、搜索同步、事件发布都经由本包执行：失败只记日志和指标，
// 永不向调用方抛出，也不会让已提交的变更被报告为失败
package sideeffect

import (
	"context"
	"time"

	"z-novel-api/pkg/logger"
	"z-novel-api/pkg/metrics"
)

// DefaultTimeout 单个副作用调用的默认超时
const DefaultTimeout = 3 * time.Second

// Run 同步执行一个副作用，超时限定，失败吞掉
// 使用 WithoutCancel：事务已提交，请求取消不应跳过失效等动作
func Run(ctx context.Context, target string, fn func(ctx context.Context) error) {
	RunWithTimeout(ctx, target, DefaultTimeout, fn)
}

// RunWithTimeout 同 Run，允许指定超时
func RunWithTimeout(ctx context.Context, target string, timeout time.Duration, fn func(ctx context.Context) error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := fn(cctx); err != nil {
		logger.Warn(ctx, "side effect failed, continuing", "target", target, "error", err.Error())
		metrics.SideEffectFailuresTotal.WithLabelValues(target).Inc()
	}
}

// Go 异步执行一个副作用（事件发布等 fire-and-forget 场景）
func Go(ctx context.Context, target string, fn func(ctx context.Context) error) {
	bg := context.WithoutCancel(ctx)
	go func() {
		RunWithTimeout(bg, target, DefaultTimeout, fn)
	}()
}
