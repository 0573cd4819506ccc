// Package exports writes tenant data as CSV files into an object store.
package exports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goliatone/go-contractor/internal/activitylog"
	"github.com/goliatone/go-contractor/internal/clients"
	"github.com/goliatone/go-contractor/internal/expenses"
	"github.com/goliatone/go-contractor/internal/invoices"
	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/internal/permissions"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	"github.com/google/uuid"
)

// Kind names an exportable dataset.
type Kind string

const (
	KindInvoices Kind = "invoices"
	KindExpenses Kind = "expenses"
	KindClients  Kind = "clients"
	KindActivity Kind = "activity"
)

// Kinds lists the supported datasets.
var Kinds = []Kind{KindInvoices, KindExpenses, KindClients, KindActivity}

const ContentTypeCSV = "text/csv; charset=utf-8"

// activityExportLimit caps the activity rows read for one export.
const activityExportLimit = 10000

var (
	ErrKindUnknown   = errors.New("exports: unknown export kind")
	ErrStoreRequired = errors.New("exports: object store is not configured")
	ErrSourceMissing = errors.New("exports: data source is not configured")
)

type InvoiceSource interface {
	List(ctx context.Context, tenantID uuid.UUID, opts invoices.ListOptions) ([]*invoices.Invoice, int, error)
}

type ExpenseSource interface {
	List(ctx context.Context, tenantID uuid.UUID, opts expenses.ListOptions) ([]*expenses.Expense, int, error)
}

type ClientSource interface {
	List(ctx context.Context, tenantID uuid.UUID, opts clients.ListOptions) ([]*clients.Client, int, error)
}

type ActivitySource interface {
	List(ctx context.Context, tenantID uuid.UUID, filter activitylog.Filter) ([]*activitylog.Entry, error)
}

// ParseKind normalizes a kind name.
func ParseKind(raw string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(raw)))
	for _, candidate := range Kinds {
		if candidate == kind {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrKindUnknown, raw)
}

// Key returns the object key of an export generated at ts.
func Key(tenantID uuid.UUID, kind Kind, ts time.Time) string {
	return fmt.Sprintf("exports/%s/%s-%s.csv", tenantID, kind, ts.UTC().Format("20060102T150405Z"))
}

// Result describes a stored export.
type Result struct {
	Kind        Kind      `json:"kind"`
	Key         string    `json:"key"`
	Rows        int       `json:"rows"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	GeneratedAt time.Time `json:"generated_at"`
}

type Service interface {
	// Generate writes the dataset for the context tenant into the object store.
	Generate(ctx context.Context, kind Kind) (*Result, error)
	// Write streams the dataset as CSV and returns the number of data rows.
	Write(ctx context.Context, kind Kind, w io.Writer) (int, error)
}

// Sources groups the datasets the service reads from.
type Sources struct {
	Invoices InvoiceSource
	Expenses ExpenseSource
	Clients  ClientSource
	Activity ActivitySource
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

func WithActivityEmitter(emitter *activity.Emitter) ServiceOption {
	return func(s *service) {
		if emitter != nil {
			s.activity = emitter
		}
	}
}

type service struct {
	sources  Sources
	store    interfaces.ObjectStore
	now      func() time.Time
	logger   interfaces.Logger
	activity *activity.Emitter
}

func NewService(sources Sources, store interfaces.ObjectStore, opts ...ServiceOption) Service {
	s := &service{
		sources:  sources,
		store:    store,
		now:      time.Now,
		logger:   logging.NoOp(),
		activity: activity.NewEmitter(nil, activity.Config{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Generate(ctx context.Context, kind Kind) (*Result, error) {
	if s.store == nil {
		return nil, ErrStoreRequired
	}
	tenantID, err := s.scope(ctx, permissions.ActionCreate)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	rows, err := s.write(ctx, tenantID, kind, &buf)
	if err != nil {
		return nil, err
	}

	generatedAt := s.now().UTC()
	key := Key(tenantID, kind, generatedAt)
	size := int64(buf.Len())
	if _, err := s.store.Put(ctx, key, &buf, size, ContentTypeCSV); err != nil {
		return nil, fmt.Errorf("exports: store %s: %w", key, err)
	}

	result := &Result{
		Kind:        kind,
		Key:         key,
		Rows:        rows,
		Size:        size,
		ContentType: ContentTypeCSV,
		GeneratedAt: generatedAt,
	}
	s.logger.Info("export.generated", "tenant_id", tenantID, "kind", kind, "key", key, "rows", rows)
	if s.activity.Enabled() {
		event := tenancy.ActivityEvent(ctx, "generated", "export", tenantID, map[string]any{
			"kind": string(kind),
			"key":  key,
			"rows": rows,
		})
		if err := s.activity.Emit(ctx, event); err != nil {
			s.logger.Warn("export.activity.emit_failed", "error", err)
		}
	}
	return result, nil
}

func (s *service) Write(ctx context.Context, kind Kind, w io.Writer) (int, error) {
	tenantID, err := s.scope(ctx, permissions.ActionRead)
	if err != nil {
		return 0, err
	}
	return s.write(ctx, tenantID, kind, w)
}

func (s *service) scope(ctx context.Context, action permissions.Action) (uuid.UUID, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceExports, action); err != nil {
		return uuid.Nil, err
	}
	return tenantID, nil
}

func (s *service) write(ctx context.Context, tenantID uuid.UUID, kind Kind, w io.Writer) (int, error) {
	switch kind {
	case KindInvoices:
		if s.sources.Invoices == nil {
			return 0, ErrSourceMissing
		}
		records, _, err := s.sources.Invoices.List(ctx, tenantID, invoices.ListOptions{})
		if err != nil {
			return 0, err
		}
		return writeInvoices(w, records)
	case KindExpenses:
		if s.sources.Expenses == nil {
			return 0, ErrSourceMissing
		}
		records, _, err := s.sources.Expenses.List(ctx, tenantID, expenses.ListOptions{})
		if err != nil {
			return 0, err
		}
		return writeExpenses(w, records)
	case KindClients:
		if s.sources.Clients == nil {
			return 0, ErrSourceMissing
		}
		records, _, err := s.sources.Clients.List(ctx, tenantID, clients.ListOptions{})
		if err != nil {
			return 0, err
		}
		return writeClients(w, records)
	case KindActivity:
		if s.sources.Activity == nil {
			return 0, ErrSourceMissing
		}
		records, err := s.sources.Activity.List(ctx, tenantID, activitylog.Filter{Limit: activityExportLimit})
		if err != nil {
			return 0, err
		}
		return writeActivity(w, records)
	default:
		return 0, fmt.Errorf("%w: %q", ErrKindUnknown, kind)
	}
}
