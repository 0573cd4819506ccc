package blog

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
)

// Post is a public blog article. Posts are global, not tenant scoped.
type Post struct {
	bun.BaseModel `bun:"table:posts,alias:po"`

	ID          uuid.UUID  `bun:",pk,type:uuid" json:"id"`
	Slug        string     `bun:"slug,notnull,unique" json:"slug"`
	Title       string     `bun:"title,notnull" json:"title"`
	Summary     string     `bun:"summary" json:"summary,omitempty"`
	Body        string     `bun:"body,notnull" json:"body"`
	HTML        string     `bun:"html,notnull" json:"html"`
	Tags        []string   `bun:"tags,type:jsonb" json:"tags,omitempty"`
	Author      string     `bun:"author" json:"author,omitempty"`
	Status      Status     `bun:"status,notnull,default:'draft'" json:"status"`
	PublishAt   *time.Time `bun:"publish_at,nullzero" json:"publish_at,omitempty"`
	PublishedAt *time.Time `bun:"published_at,nullzero" json:"published_at,omitempty"`
	SourcePath  string     `bun:"source_path" json:"source_path,omitempty"`
	Checksum    string     `bun:"checksum" json:"-"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
	URL         string     `bun:"-" json:"url,omitempty"`
}

// ListOptions filters post listings. Tag matches case-insensitively.
type ListOptions struct {
	Status Status
	Tag    string
	Limit  int
	Offset int
}

func hasTag(tags []string, tag string) bool {
	for _, candidate := range tags {
		if candidate == tag {
			return true
		}
	}
	return false
}
