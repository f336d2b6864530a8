// Package event 实现领域事件的构建与发布
package event

import (
	"context"
	"encoding/json"

	"z-novel-api/internal/application/sideeffect"
	"z-novel-api/pkg/metrics"
)

// Transport 事件传输端口
// partitionKey 只是传输层的分区提示，本层不依赖它提供顺序保证
type Transport interface {
	Publish(ctx context.Context, topic Topic, partitionKey string, payload []byte) error
}

// Emitter 事件发布器
// 只在持久化写提交之后调用；异步、fire-and-forget：
// 传输失败记日志后吞掉，不重试，不向调用方传播
type Emitter struct {
	transport Transport
	source    string
}

// NewEmitter 创建事件发布器
func NewEmitter(transport Transport, source string) *Emitter {
	return &Emitter{
		transport: transport,
		source:    source,
	}
}

// Source 发布方服务标识
func (e *Emitter) Source() string {
	return e.source
}

// Emit 异步发布单个事件
func (e *Emitter) Emit(ctx context.Context, topic Topic, partitionKey string, ev Event) {
	sideeffect.Go(ctx, "event", func(cctx context.Context) error {
		data, err := json.Marshal(ev)
		if err == nil {
			err = e.transport.Publish(cctx, topic, partitionKey, data)
		}
		if err != nil {
			metrics.EventsEmittedTotal.WithLabelValues(string(ev.Type), "error").Inc()
			return err
		}
		metrics.EventsEmittedTotal.WithLabelValues(string(ev.Type), "ok").Inc()
		return nil
	})
}

// EmitNew 构建并异步发布事件
func (e *Emitter) EmitNew(ctx context.Context, topic Topic, partitionKey string, eventType Type, actorID uint64, payload any) {
	ev, err := New(eventType, e.source, actorID, payload)
	if err != nil {
		// 载荷无法序列化：记指标后放弃，不影响调用方
		metrics.EventsEmittedTotal.WithLabelValues(string(eventType), "error").Inc()
		return
	}
	e.Emit(ctx, topic, partitionKey, ev)
}
