package event

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

// fakeTransport 记录发布调用的内存传输
type fakeTransport struct {
	mu        sync.Mutex
	published []publishedEvent
	err       error
	done      chan struct{}
}

type publishedEvent struct {
	topic        Topic
	partitionKey string
	payload      []byte
}

func newFakeTransport(capacity int) *fakeTransport {
	return &fakeTransport{done: make(chan struct{}, capacity)}
}

func (f *fakeTransport) Publish(ctx context.Context, topic Topic, partitionKey string, payload []byte) error {
	defer func() { f.done <- struct{}{} }()
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedEvent{topic: topic, partitionKey: partitionKey, payload: payload})
	return nil
}

func TestNew(t *testing.T) {
	t.Run("事件携带完整元数据", func(t *testing.T) {
		ev, err := New(TypeNovelPublished, "z-novel-api", 7, map[string]any{"novel_id": 5})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev.ID == "" || ev.OccurredAt.IsZero() {
			t.Fatal("expected id and timestamp to be set")
		}
		if ev.SchemaVersion != SchemaVersion || ev.Source != "z-novel-api" || ev.ActorID != 7 {
			t.Fatalf("unexpected metadata: %+v", ev)
		}
	})

	t.Run("构建后修改源载荷不影响事件", func(t *testing.T) {
		payload := map[string]any{"title": "before"}
		ev, err := New(TypeNovelUpdated, "svc", 1, payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		payload["title"] = "after"

		var decoded map[string]any
		if err := json.Unmarshal(ev.Payload, &decoded); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decoded["title"] != "before" {
			t.Fatalf("expected immutable payload, got %v", decoded["title"])
		}
	})
}

func TestEmitter(t *testing.T) {
	t.Run("发布携带主题与分区键", func(t *testing.T) {
		transport := newFakeTransport(1)
		emitter := NewEmitter(transport, "z-novel-api")

		emitter.EmitNew(context.Background(), TopicNovel, "novel:5", TypeNovelPublished, 7, map[string]any{"novel_id": 5})
		<-transport.done

		transport.mu.Lock()
		defer transport.mu.Unlock()
		if len(transport.published) != 1 {
			t.Fatalf("expected 1 publish, got %d", len(transport.published))
		}
		got := transport.published[0]
		if got.topic != TopicNovel || got.partitionKey != "novel:5" {
			t.Fatalf("unexpected publish: %+v", got)
		}
	})

	t.Run("传输失败被吞掉", func(t *testing.T) {
		transport := newFakeTransport(1)
		transport.err = errors.New("broker unavailable")
		emitter := NewEmitter(transport, "z-novel-api")

		// 不应 panic，也没有错误可供调用方感知
		emitter.EmitNew(context.Background(), TopicChapter, "novel:1", TypeChapterCreated, 7, map[string]any{"id": 1})
		<-transport.done
	})

	t.Run("请求取消后事件仍会发布", func(t *testing.T) {
		transport := newFakeTransport(1)
		emitter := NewEmitter(transport, "z-novel-api")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		emitter.EmitNew(ctx, TopicNovel, "novel:2", TypeNovelArchived, 7, nil)
		<-transport.done

		transport.mu.Lock()
		defer transport.mu.Unlock()
		if len(transport.published) != 1 {
			t.Fatal("expected publish to proceed after caller cancellation")
		}
	})
}
