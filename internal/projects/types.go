package projects

import (
	"time"

	"github.com/goliatone/go-contractor/internal/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Status tracks where a job sits in its lifecycle.
type Status string

const (
	StatusPlanned   Status = "planned"
	StatusActive    Status = "active"
	StatusOnHold    Status = "on_hold"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Transitions lists the allowed status moves.
var Transitions = domain.Transitions[Status]{
	StatusPlanned:   {StatusActive, StatusCancelled},
	StatusActive:    {StatusOnHold, StatusCompleted, StatusCancelled},
	StatusOnHold:    {StatusActive, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// Project is a construction job for a client. Budget is in cents.
type Project struct {
	bun.BaseModel `bun:"table:projects,alias:pj"`

	ID          uuid.UUID  `bun:",pk,type:uuid" json:"id"`
	TenantID    uuid.UUID  `bun:"tenant_id,notnull,type:uuid" json:"tenant_id"`
	ClientID    uuid.UUID  `bun:"client_id,notnull,type:uuid" json:"client_id"`
	Name        string     `bun:"name,notnull" json:"name"`
	Slug        string     `bun:"slug,notnull" json:"slug"`
	Description string     `bun:"description" json:"description,omitempty"`
	Status      Status     `bun:"status,notnull,default:'planned'" json:"status"`
	Budget      int64      `bun:"budget,notnull" json:"budget"`
	SiteAddress string     `bun:"site_address" json:"site_address,omitempty"`
	StartDate   *time.Time `bun:"start_date,nullzero" json:"start_date,omitempty"`
	EndDate     *time.Time `bun:"end_date,nullzero" json:"end_date,omitempty"`
	CompletedAt *time.Time `bun:"completed_at,nullzero" json:"completed_at,omitempty"`
	CreatedBy   uuid.UUID  `bun:"created_by,type:uuid" json:"created_by"`
	UpdatedBy   uuid.UUID  `bun:"updated_by,type:uuid" json:"updated_by"`
	DeletedAt   *time.Time `bun:"deleted_at,nullzero" json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// ListOptions filters project listings.
type ListOptions struct {
	Status   Status
	ClientID uuid.UUID
	Limit    int
	Offset   int
}
