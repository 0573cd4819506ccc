package jobs

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/goliatone/go-contractor/pkg/interfaces"
)

// AuditEvent captures a change applied by the job worker.
type AuditEvent struct {
	EntityType string
	EntityID   string
	Action     string
	OccurredAt time.Time
	Metadata   map[string]any
}

// AuditRecorder persists audit events.
type AuditRecorder interface {
	Record(ctx context.Context, event AuditEvent) error
	List(ctx context.Context) ([]AuditEvent, error)
	Clear(ctx context.Context) error
}

// DefaultAuditCapacity bounds the in-memory recorder.
const DefaultAuditCapacity = 500

// InMemoryAuditRecorder keeps the most recent audit events. Older events are
// dropped once capacity is reached.
type InMemoryAuditRecorder struct {
	mu       sync.Mutex
	events   []AuditEvent
	capacity int
	err      error
}

// NewInMemoryAuditRecorder constructs an empty recorder. A capacity below one
// selects DefaultAuditCapacity.
func NewInMemoryAuditRecorder(capacity ...int) *InMemoryAuditRecorder {
	limit := DefaultAuditCapacity
	if len(capacity) > 0 && capacity[0] > 0 {
		limit = capacity[0]
	}
	return &InMemoryAuditRecorder{capacity: limit}
}

func (r *InMemoryAuditRecorder) Record(_ context.Context, event AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	copied := event
	copied.Metadata = maps.Clone(event.Metadata)
	r.events = append(r.events, copied)
	if overflow := len(r.events) - r.capacity; overflow > 0 {
		r.events = append([]AuditEvent(nil), r.events[overflow:]...)
	}
	return nil
}

// Events returns a snapshot of recorded audit entries.
func (r *InMemoryAuditRecorder) Events() []AuditEvent {
	events, _ := r.List(context.Background())
	return events
}

// Fail configures the recorder to return the supplied error on subsequent Record calls.
func (r *InMemoryAuditRecorder) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *InMemoryAuditRecorder) List(context.Context) ([]AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AuditEvent, len(r.events))
	copy(out, r.events)
	return out, nil
}

func (r *InMemoryAuditRecorder) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	return nil
}

// LoggerAuditRecorder writes audit events to a logger and keeps the recent
// ones in memory for List.
type LoggerAuditRecorder struct {
	*InMemoryAuditRecorder
	logger interfaces.Logger
}

func NewLoggerAuditRecorder(logger interfaces.Logger, capacity int) *LoggerAuditRecorder {
	return &LoggerAuditRecorder{
		InMemoryAuditRecorder: NewInMemoryAuditRecorder(capacity),
		logger:                logger,
	}
}

func (r *LoggerAuditRecorder) Record(ctx context.Context, event AuditEvent) error {
	if r.logger != nil {
		r.logger.Info("job.audit",
			"entity", event.EntityType,
			"entity_id", event.EntityID,
			"action", event.Action,
			"occurred_at", event.OccurredAt,
		)
	}
	return r.InMemoryAuditRecorder.Record(ctx, event)
}
