package imports

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-contractor/internal/clients"
	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/internal/permissions"
	"github.com/goliatone/go-contractor/internal/products"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/internal/validation"
	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	"github.com/google/uuid"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Kind names an importable resource.
type Kind string

const (
	KindClients  Kind = "clients"
	KindProducts Kind = "products"
)

var (
	ErrKindUnknown   = errors.New("imports: unknown import kind")
	ErrRowsInvalid   = errors.New("imports: rows failed validation")
	ErrImportAborted = errors.New("imports: import aborted after partial write")
	ErrTargetMissing = errors.New("imports: target service not configured")
	ErrEmptyImport   = errors.New("imports: no rows to import")
)

// ParseKind normalises user input into a Kind.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindClients:
		return KindClients, nil
	case KindProducts:
		return KindProducts, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrKindUnknown, value)
	}
}

// Options tunes a single import run.
type Options struct {
	DryRun bool
}

// Result reports the outcome of an import. Issues are keyed by JSON pointer
// into the submitted array (e.g. "/0/email").
type Result struct {
	Kind    Kind                         `json:"kind"`
	Rows    int                          `json:"rows"`
	Created []uuid.UUID                  `json:"created"`
	Issues  []validation.ValidationIssue `json:"issues,omitempty"`
	DryRun  bool                         `json:"dry_run"`
}

// Service runs bulk JSON imports for the tenant bound to the context.
type Service interface {
	Import(ctx context.Context, kind Kind, data []byte, opts Options) (*Result, error)
	Schema(kind Kind) ([]byte, error)
}

type ServiceOption func(*service)

func WithActivityEmitter(emitter *activity.Emitter) ServiceOption {
	return func(s *service) {
		if emitter != nil {
			s.activity = emitter
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

func WithClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

type service struct {
	clients  clients.Service
	products products.Service
	schemas  map[Kind]*validation.Schema
	now      func() time.Time
	activity *activity.Emitter
	logger   interfaces.Logger
}

// NewService compiles the embedded schemas. Either target may be nil, in
// which case imports of that kind fail with ErrTargetMissing.
func NewService(clientSvc clients.Service, productSvc products.Service, opts ...ServiceOption) Service {
	s := &service{
		clients:  clientSvc,
		products: productSvc,
		schemas: map[Kind]*validation.Schema{
			KindClients:  mustSchema(KindClients),
			KindProducts: mustSchema(KindProducts),
		},
		now:      time.Now,
		activity: activity.NewEmitter(nil, activity.Config{}),
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func schemaFile(kind Kind) string {
	return "schemas/" + string(kind) + ".schema.json"
}

func mustSchema(kind Kind) *validation.Schema {
	raw, err := schemaFS.ReadFile(schemaFile(kind))
	if err != nil {
		panic(fmt.Sprintf("imports: embedded schema for %s: %v", kind, err))
	}
	return validation.MustCompile(string(kind)+".schema.json", raw)
}

func (s *service) Schema(kind Kind) ([]byte, error) {
	if _, ok := s.schemas[kind]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrKindUnknown, kind)
	}
	return schemaFS.ReadFile(schemaFile(kind))
}

func (s *service) Import(ctx context.Context, kind Kind, data []byte, opts Options) (*Result, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceImports, permissions.ActionCreate); err != nil {
		return nil, err
	}
	schema, ok := s.schemas[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKindUnknown, kind)
	}

	result := &Result{Kind: kind, Created: []uuid.UUID{}, DryRun: opts.DryRun}
	if err := schema.ValidateJSON(data); err != nil {
		if errors.Is(err, validation.ErrSchemaValidation) {
			result.Issues = validation.Issues(err)
			return result, ErrRowsInvalid
		}
		return nil, err
	}

	switch kind {
	case KindClients:
		err = s.importClients(ctx, data, opts, result)
	case KindProducts:
		err = s.importProducts(ctx, data, opts, result)
	}
	if err != nil {
		return result, err
	}

	s.logger.Info("import.completed",
		"tenant_id", tenantID,
		"kind", kind,
		"rows", result.Rows,
		"created", len(result.Created),
		"dry_run", opts.DryRun,
	)
	if !opts.DryRun && s.activity.Enabled() {
		event := tenancy.ActivityEvent(ctx, "imported", "import", tenantID, map[string]any{
			"kind":    string(kind),
			"rows":    result.Rows,
			"created": len(result.Created),
		})
		event.OccurredAt = s.now()
		if err := s.activity.Emit(ctx, event); err != nil {
			s.logger.Warn("import.activity.emit_failed", "error", err)
		}
	}
	return result, nil
}

func (s *service) importClients(ctx context.Context, data []byte, opts Options, result *Result) error {
	if s.clients == nil {
		return ErrTargetMissing
	}
	var rows []clients.CreateClientInput
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("imports: decode clients: %w", err)
	}
	result.Rows = len(rows)
	if len(rows) == 0 {
		return ErrEmptyImport
	}

	seen := map[string]int{}
	for i, row := range rows {
		email := strings.ToLower(strings.TrimSpace(row.Email))
		if email == "" {
			continue
		}
		if first, dup := seen[email]; dup {
			result.Issues = append(result.Issues, validation.ValidationIssue{
				Location: fmt.Sprintf("/%d/email", i),
				Message:  fmt.Sprintf("duplicates row %d", first),
			})
			continue
		}
		seen[email] = i
	}
	if len(result.Issues) > 0 {
		return ErrRowsInvalid
	}
	if opts.DryRun {
		return nil
	}

	for i, row := range rows {
		created, err := s.clients.Create(ctx, row)
		if err != nil {
			return s.abort(result, i, err)
		}
		result.Created = append(result.Created, created.ID)
	}
	return nil
}

func (s *service) importProducts(ctx context.Context, data []byte, opts Options, result *Result) error {
	if s.products == nil {
		return ErrTargetMissing
	}
	var rows []products.CreateProductInput
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("imports: decode products: %w", err)
	}
	result.Rows = len(rows)
	if len(rows) == 0 {
		return ErrEmptyImport
	}

	seen := map[string]int{}
	for i, row := range rows {
		sku := products.NormalizeSKU(row.SKU)
		if sku == "" {
			continue
		}
		if first, dup := seen[sku]; dup {
			result.Issues = append(result.Issues, validation.ValidationIssue{
				Location: fmt.Sprintf("/%d/sku", i),
				Message:  fmt.Sprintf("duplicates row %d", first),
			})
			continue
		}
		seen[sku] = i
	}
	if len(result.Issues) > 0 {
		return ErrRowsInvalid
	}
	if opts.DryRun {
		return nil
	}

	for i, row := range rows {
		created, err := s.products.Create(ctx, row)
		if err != nil {
			return s.abort(result, i, err)
		}
		result.Created = append(result.Created, created.ID)
	}
	return nil
}

func (s *service) abort(result *Result, row int, cause error) error {
	result.Issues = append(result.Issues, validation.ValidationIssue{
		Location: fmt.Sprintf("/%d", row),
		Message:  cause.Error(),
	})
	s.logger.Warn("import.row.failed", "kind", result.Kind, "row", row, "created", len(result.Created), "error", cause)
	return fmt.Errorf("%w at row %d: %w", ErrImportAborted, row, cause)
}
