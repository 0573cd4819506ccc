// Package realtime fans entity changes out to tenant-scoped subscribers.
package realtime

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	"github.com/google/uuid"
)

// DefaultBufferSize is the per-subscriber channel capacity.
const DefaultBufferSize = 64

var (
	ErrTenantRequired = errors.New("realtime: tenant is required")
	ErrBrokerClosed   = errors.New("realtime: broker closed")
)

// ChangeType mirrors the row-level operation that produced a change.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Change is a single entity change delivered to subscribers.
type Change struct {
	TenantID   uuid.UUID  `json:"tenant_id"`
	ObjectType string     `json:"object_type"`
	ObjectID   string     `json:"object_id"`
	Type       ChangeType `json:"type"`
	Verb       string     `json:"verb"`
	Record     any        `json:"record,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

type subscriber struct {
	id      uint64
	tenant  uuid.UUID
	types   []string
	ch      chan Change
	dropped atomic.Uint64
}

func (s *subscriber) wants(change Change) bool {
	if s.tenant != change.TenantID {
		return false
	}
	return len(s.types) == 0 || slices.Contains(s.types, change.ObjectType)
}

// Broker delivers changes to in-process subscribers. Publishing never
// blocks: a subscriber whose buffer is full misses the change and the drop
// is counted.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[uint64]*subscriber
	nextID      uint64
	bufferSize  int
	closed      bool
	done        chan struct{}
	watchers    sync.WaitGroup
	dropped     atomic.Uint64
	published   atomic.Uint64
	logger      interfaces.Logger
}

type BrokerOption func(*Broker)

func WithBufferSize(size int) BrokerOption {
	return func(b *Broker) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

func WithLogger(logger interfaces.Logger) BrokerOption {
	return func(b *Broker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func NewBroker(opts ...BrokerOption) *Broker {
	b := &Broker{
		subscribers: make(map[uint64]*subscriber),
		bufferSize:  DefaultBufferSize,
		done:        make(chan struct{}),
		logger:      logging.NoOp(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers interest in the tenant's changes, optionally limited
// to object types. The returned channel closes when ctx is done or the
// broker closes.
func (b *Broker) Subscribe(ctx context.Context, tenantID uuid.UUID, objectTypes ...string) (<-chan Change, error) {
	if tenantID == uuid.Nil {
		return nil, ErrTenantRequired
	}
	types := make([]string, 0, len(objectTypes))
	for _, objectType := range objectTypes {
		if trimmed := strings.TrimSpace(objectType); trimmed != "" {
			types = append(types, trimmed)
		}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBrokerClosed
	}
	b.nextID++
	sub := &subscriber{
		id:     b.nextID,
		tenant: tenantID,
		types:  types,
		ch:     make(chan Change, b.bufferSize),
	}
	b.subscribers[sub.id] = sub
	b.watchers.Add(1)
	b.mu.Unlock()

	b.logger.Debug("realtime.subscribed", "tenant_id", tenantID, "subscriber", sub.id, "object_types", types)

	go func() {
		defer b.watchers.Done()
		select {
		case <-ctx.Done():
			b.remove(sub.id)
		case <-b.done:
		}
	}()
	return sub.ch, nil
}

// Publish delivers the change to matching subscribers and returns how many
// received it.
func (b *Broker) Publish(change Change) int {
	if change.TenantID == uuid.Nil {
		return 0
	}
	if change.OccurredAt.IsZero() {
		change.OccurredAt = time.Now().UTC()
	}
	b.published.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()
	delivered := 0
	for _, sub := range b.subscribers {
		if !sub.wants(change) {
			continue
		}
		select {
		case sub.ch <- change:
			delivered++
		default:
			sub.dropped.Add(1)
			b.dropped.Add(1)
			b.logger.Warn("realtime.change.dropped", "tenant_id", change.TenantID, "subscriber", sub.id, "object_type", change.ObjectType)
		}
	}
	return delivered
}

// Stats reports broker counters.
type Stats struct {
	Subscribers int
	Published   uint64
	Dropped     uint64
}

func (b *Broker) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		Subscribers: len(b.subscribers),
		Published:   b.published.Load(),
		Dropped:     b.dropped.Load(),
	}
}

// Close ends every subscription, rejects new ones and returns once the
// per-subscription watchers have exited.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.done)
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
	b.watchers.Wait()
}

func (b *Broker) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subscribers[id]
	if !ok {
		return
	}
	delete(b.subscribers, id)
	close(sub.ch)
	if dropped := sub.dropped.Load(); dropped > 0 {
		b.logger.Info("realtime.unsubscribed", "subscriber", id, "dropped", dropped)
	}
}
