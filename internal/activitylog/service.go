package activitylog

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/internal/permissions"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	"github.com/google/uuid"
)

// DefaultListLimit caps listings that do not set a limit.
const DefaultListLimit = 100

var ErrRetentionInvalid = errors.New("activitylog: retention must be at least one day")

// Service reads and prunes the activity log.
type Service interface {
	List(ctx context.Context, filter Filter) ([]*Entry, error)
	// Prune removes entries older than the retention window and returns how
	// many were deleted.
	Prune(ctx context.Context, retention time.Duration) (int, error)
}

type ServiceOption func(*service)

func WithClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type service struct {
	repo   Repository
	now    func() time.Time
	logger interfaces.Logger
}

func NewService(repo Repository, opts ...ServiceOption) Service {
	s := &service{
		repo:   repo,
		now:    time.Now,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceActivity, permissions.ActionRead); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	return s.repo.List(ctx, tenantID, filter)
}

func (s *service) Prune(ctx context.Context, retention time.Duration) (int, error) {
	if retention < 24*time.Hour {
		return 0, ErrRetentionInvalid
	}
	cutoff := s.now().UTC().Add(-retention)
	removed, err := s.repo.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info("activity.pruned", "removed", removed, "cutoff", cutoff.Format(time.RFC3339))
	return removed, nil
}

// Hook persists emitted activity events. Record snapshots are dropped; the
// remaining metadata is stored as entry data.
type Hook struct {
	Repo Repository
	IDs  func() uuid.UUID
}

var _ activity.Hook = Hook{}

func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Repo == nil || strings.TrimSpace(event.Verb) == "" {
		return nil
	}
	newID := h.IDs
	if newID == nil {
		newID = uuid.New
	}
	data := map[string]any{}
	if len(event.Metadata) > 0 {
		maps.Copy(data, event.Metadata)
		delete(data, activity.RecordMetadataKey)
	}
	if len(data) == 0 {
		data = nil
	}
	entry := &Entry{
		ID:         newID(),
		TenantID:   parseUUID(event.TenantID),
		ActorID:    parseUUID(event.ActorID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       data,
		OccurredAt: event.OccurredAt.UTC(),
	}
	return h.Repo.Append(ctx, entry)
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
