// Package event 实现领域事件的构建与发布
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion 当前事件载荷结构版本
const SchemaVersion = 1

// Type 事件类型判别符
type Type string

const (
	TypeNovelCreated     Type = "novel.created"
	TypeNovelUpdated     Type = "novel.updated"
	TypeNovelSubmitted   Type = "novel.submitted"
	TypeNovelPublished   Type = "novel.published"
	TypeNovelRejected    Type = "novel.rejected"
	TypeNovelHidden      Type = "novel.hidden"
	TypeNovelUnhidden    Type = "novel.unhidden"
	TypeNovelArchived    Type = "novel.archived"
	TypeNovelDemoted     Type = "novel.demoted"
	TypeChapterCreated   Type = "chapter.created"
	TypeChapterUpdated   Type = "chapter.updated"
	TypeChapterPublished Type = "chapter.published"
	TypeChapterRetracted Type = "chapter.retracted"
	TypeChapterDeleted   Type = "chapter.deleted"
	TypeCategoryCreated  Type = "category.created"
	TypeCategoryUpdated  Type = "category.updated"
	TypeCategoryDeleted  Type = "category.deleted"
)

// Topic 事件主题（传输层映射为具体流）
type Topic string

const (
	TopicNovel    Topic = "novel"
	TopicChapter  Topic = "chapter"
	TopicCategory Topic = "category"
)

// Event 不可变领域事件
// 载荷在构建时一次性序列化，之后对源对象的修改不会影响事件内容
type Event struct {
	ID            string          `json:"id"`
	Type          Type            `json:"type"`
	SchemaVersion int             `json:"schema_version"`
	Source        string          `json:"source"`
	ActorID       uint64          `json:"actor_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// New 构建事件
func New(eventType Type, source string, actorID uint64, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		SchemaVersion: SchemaVersion,
		Source:        source,
		ActorID:       actorID,
		OccurredAt:    time.Now().UTC(),
		Payload:       raw,
	}, nil
}
