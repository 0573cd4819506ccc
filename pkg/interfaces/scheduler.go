package interfaces

import (
	"context"
	"errors"
	"time"
)

var ErrJobNotFound = errors.New("scheduler: job not found")

// Scheduler stores delayed work such as post publishing and per-tenant
// overdue sweeps.
// Enqueue with an existing Key replaces the pending job.
type Scheduler interface {
	Enqueue(ctx context.Context, spec JobSpec) (*Job, error)
	Cancel(ctx context.Context, id string) error
	CancelByKey(ctx context.Context, key string) error
	Get(ctx context.Context, id string) (*Job, error)
	GetByKey(ctx context.Context, key string) (*Job, error)
	// ListDue returns pending jobs with RunAt <= until, oldest first.
	ListDue(ctx context.Context, until time.Time, limit int) ([]*Job, error)
	MarkDone(ctx context.Context, id string) error
	// MarkFailed reschedules the job until MaxAttempts is exhausted.
	MarkFailed(ctx context.Context, id string, err error) error
}

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCanceled  JobStatus = "canceled"
	JobStatusFailed    JobStatus = "failed"
)

// JobSpec describes a job to enqueue. Type selects the worker
// (e.g. blog.post.publish); TenantID is empty for global jobs and
// MaxAttempts zero means the scheduler default.
type JobSpec struct {
	Key         string
	Type        string
	RunAt       time.Time
	Payload     map[string]any
	MaxAttempts int
	TenantID    string
}

type Job struct {
	JobSpec
	ID        string
	Attempt   int
	LastError string
	Status    JobStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
