// Package activity defines the event emitter used by contractor services to
// announce create, update, delete and lifecycle changes. Hooks fan the events
// out to the activity log, the realtime broker and optional go-users sinks.
package activity

import (
	"context"
	"errors"
	"maps"
	"strings"
	"sync"
	"time"
)

// RecordMetadataKey carries a snapshot of the changed record in event
// metadata. Realtime subscribers use it; persistent sinks drop it.
const RecordMetadataKey = "record"

// ErrInvalidEvent is returned when an event lacks a verb or object reference.
var ErrInvalidEvent = errors.New("activity: verb, object type and object id are required")

// Event describes a single activity entry.
type Event struct {
	Verb           string
	ActorID        string
	UserID         string
	TenantID       string
	ObjectType     string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	OccurredAt     time.Time
}

// Hook receives emitted events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function into a Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify implements Hook.
func (f HookFunc) Notify(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// Hooks is an ordered list of hooks.
type Hooks []Hook

// Config toggles emission and sets the default channel.
type Config struct {
	Enabled bool
	Channel string
}

// Emitter dispatches events to every registered hook.
type Emitter struct {
	hooks Hooks
	cfg   Config
	now   func() time.Time
}

// NewEmitter builds an emitter. A nil hooks list yields a disabled emitter.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	filtered := make(Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			filtered = append(filtered, hook)
		}
	}
	return &Emitter{
		hooks: filtered,
		cfg:   cfg,
		now:   time.Now,
	}
}

// WithClock returns a copy of the emitter stamping events with clock.
func (e *Emitter) WithClock(clock func() time.Time) *Emitter {
	if e == nil || clock == nil {
		return e
	}
	cloned := *e
	cloned.now = clock
	return &cloned
}

// Enabled reports whether events will reach at least one hook.
func (e *Emitter) Enabled() bool {
	return e != nil && e.cfg.Enabled && len(e.hooks) > 0
}

// Emit normalizes the event and forwards it to every hook. Hook failures are
// joined and returned after all hooks ran.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	event.Verb = strings.TrimSpace(event.Verb)
	event.ObjectType = strings.TrimSpace(event.ObjectType)
	event.ObjectID = strings.TrimSpace(event.ObjectID)
	if event.Verb == "" || event.ObjectType == "" || event.ObjectID == "" {
		return ErrInvalidEvent
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.now().UTC()
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.cfg.Channel
	}

	var errs []error
	for _, hook := range e.hooks {
		if err := hook.Notify(ctx, cloneEvent(event)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CaptureHook records events in memory. It is safe for concurrent use.
type CaptureHook struct {
	mu     sync.Mutex
	Events []Event
}

// Notify implements Hook.
func (c *CaptureHook) Notify(_ context.Context, event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Events = append(c.Events, cloneEvent(event))
	return nil
}

// Snapshot returns a copy of the captured events.
func (c *CaptureHook) Snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.Events))
	copy(out, c.Events)
	return out
}

func cloneEvent(event Event) Event {
	if len(event.Recipients) > 0 {
		event.Recipients = append([]string(nil), event.Recipients...)
	}
	if event.Metadata != nil {
		event.Metadata = maps.Clone(event.Metadata)
	}
	return event
}
