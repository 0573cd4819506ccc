package scheduler

import (
	"context"
	"time"

	"github.com/goliatone/go-contractor/pkg/interfaces"
)

// NewNoOp returns the scheduler used when scheduling is switched off. Enqueue
// reports the job as already completed and nothing is ever due.
func NewNoOp() interfaces.Scheduler {
	return disabled{}
}

type disabled struct{}

func (disabled) Enqueue(_ context.Context, spec interfaces.JobSpec) (*interfaces.Job, error) {
	return &interfaces.Job{JobSpec: spec, Status: interfaces.JobStatusCompleted}, nil
}

func (disabled) Get(context.Context, string) (*interfaces.Job, error) {
	return nil, interfaces.ErrJobNotFound
}

func (disabled) GetByKey(context.Context, string) (*interfaces.Job, error) {
	return nil, interfaces.ErrJobNotFound
}

func (disabled) ListDue(context.Context, time.Time, int) ([]*interfaces.Job, error) { return nil, nil }

func (disabled) Cancel(context.Context, string) error            { return nil }
func (disabled) CancelByKey(context.Context, string) error       { return nil }
func (disabled) MarkDone(context.Context, string) error          { return nil }
func (disabled) MarkFailed(context.Context, string, error) error { return nil }
