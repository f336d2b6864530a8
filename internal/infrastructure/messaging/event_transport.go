// Package messaging 提供消息队列实现
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"z-novel-api/internal/application/event"
)

// topicStreams 事件主题到 Redis Stream 的映射
var topicStreams = map[event.Topic]Stream{
	event.TopicNovel:    StreamNovelEvents,
	event.TopicChapter:  StreamChapterEvents,
	event.TopicCategory: StreamCategoryEvents,
}

// EventTransport 将领域事件发布到 Redis Stream
// 实现 application/event.Transport
type EventTransport struct {
	producer *Producer
	timeout  time.Duration
}

// NewEventTransport 创建事件传输
// timeout 限定单次 XADD 的耗时，非正值表示不额外限时
func NewEventTransport(producer *Producer, timeout time.Duration) *EventTransport {
	return &EventTransport{producer: producer, timeout: timeout}
}

// Publish 发布事件载荷
func (t *EventTransport) Publish(ctx context.Context, topic event.Topic, partitionKey string, payload []byte) error {
	stream, ok := topicStreams[topic]
	if !ok {
		return fmt.Errorf("unknown event topic: %s", topic)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	msg := &Message{
		ID:        uuid.NewString(),
		Type:      string(topic),
		Payload:   json.RawMessage(payload),
		Metadata:  map[string]string{"partition_key": partitionKey},
		CreatedAt: time.Now(),
	}

	_, err := t.producer.Publish(ctx, stream, partitionKey, msg)
	return err
}
