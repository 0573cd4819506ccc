package activitylog

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Entry is a persisted audit record of an entity change.
type Entry struct {
	bun.BaseModel `bun:"table:activity_logs,alias:al"`

	ID         uuid.UUID      `bun:",pk,type:uuid" json:"id"`
	TenantID   uuid.UUID      `bun:"tenant_id,type:uuid" json:"tenant_id"`
	ActorID    uuid.UUID      `bun:"actor_id,type:uuid" json:"actor_id,omitempty"`
	Verb       string         `bun:"verb,notnull" json:"verb"`
	ObjectType string         `bun:"object_type,notnull" json:"object_type"`
	ObjectID   string         `bun:"object_id,notnull" json:"object_id"`
	Channel    string         `bun:"channel" json:"channel,omitempty"`
	Data       map[string]any `bun:"data,type:jsonb" json:"data,omitempty"`
	OccurredAt time.Time      `bun:"occurred_at,notnull" json:"occurred_at"`
}

// Filter narrows activity listings. Zero values are ignored; Since is
// inclusive and Until exclusive.
type Filter struct {
	ObjectType string
	ObjectID   string
	ActorID    uuid.UUID
	Verb       string
	Since      *time.Time
	Until      *time.Time
	Limit      int
}

func (f Filter) matches(entry *Entry) bool {
	if f.ObjectType != "" && entry.ObjectType != f.ObjectType {
		return false
	}
	if f.ObjectID != "" && entry.ObjectID != f.ObjectID {
		return false
	}
	if f.ActorID != uuid.Nil && entry.ActorID != f.ActorID {
		return false
	}
	if f.Verb != "" && entry.Verb != f.Verb {
		return false
	}
	if f.Since != nil && entry.OccurredAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && !entry.OccurredAt.Before(*f.Until) {
		return false
	}
	return true
}
