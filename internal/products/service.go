package products

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/internal/permissions"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	"github.com/google/uuid"
)

var (
	ErrNameRequired      = errors.New("products: name is required")
	ErrUnitPriceNegative = errors.New("products: unit price cannot be negative")
	ErrUnitInvalid       = errors.New("products: unknown unit")
	ErrSKUExists         = errors.New("products: sku already exists")
)

type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// NormalizeSKU trims and upper-cases a SKU.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// ParseUnit validates a unit string, defaulting empty input to UnitEach.
func ParseUnit(raw string) (Unit, error) {
	value := Unit(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return UnitEach, nil
	}
	if _, ok := knownUnits[value]; !ok {
		return "", ErrUnitInvalid
	}
	return value, nil
}

// Service manages the tenant product catalog.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*Product, error)
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context, opts ListOptions) ([]*Product, int, error)
	Update(ctx context.Context, input UpdateProductInput) (*Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type CreateProductInput struct {
	Name        string `json:"name"`
	SKU         string `json:"sku"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
	UnitPrice   int64  `json:"unit_price"`
	Taxable     bool   `json:"taxable"`
	Inactive    bool   `json:"inactive"`
}

type UpdateProductInput struct {
	ID          uuid.UUID `json:"-"`
	Name        *string   `json:"name"`
	SKU         *string   `json:"sku"`
	Description *string   `json:"description"`
	Unit        *string   `json:"unit"`
	UnitPrice   *int64    `json:"unit_price"`
	Taxable     *bool     `json:"taxable"`
	Active      *bool     `json:"active"`
}

type ServiceOption func(*service)

func WithClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

func WithIDGenerator(generator func() uuid.UUID) ServiceOption {
	return func(s *service) {
		if generator != nil {
			s.id = generator
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

func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type service struct {
	repo     Repository
	now      func() time.Time
	id       func() uuid.UUID
	activity *activity.Emitter
	logger   interfaces.Logger
}

func NewService(repo Repository, opts ...ServiceOption) Service {
	s := &service{
		repo:     repo,
		now:      time.Now,
		id:       uuid.New,
		activity: activity.NewEmitter(nil, activity.Config{}),
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*Product, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceProducts, permissions.ActionCreate); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if input.UnitPrice < 0 {
		return nil, ErrUnitPriceNegative
	}
	unit, err := ParseUnit(input.Unit)
	if err != nil {
		return nil, err
	}
	sku := NormalizeSKU(input.SKU)
	if err := s.ensureSKUAvailable(ctx, tenantID, sku, uuid.Nil); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := &Product{
		ID:          s.id(),
		TenantID:    tenantID,
		Name:        name,
		SKU:         sku,
		Description: strings.TrimSpace(input.Description),
		Unit:        unit,
		UnitPrice:   input.UnitPrice,
		Taxable:     input.Taxable,
		Active:      !input.Inactive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	s.emitActivity(ctx, "created", created, nil)
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceProducts, permissions.ActionRead); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, tenantID, id)
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]*Product, int, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return nil, 0, err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceProducts, permissions.ActionRead); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, tenantID, opts)
}

func (s *service) Update(ctx context.Context, input UpdateProductInput) (*Product, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceProducts, permissions.ActionUpdate); err != nil {
		return nil, err
	}
	record, err := s.repo.GetByID(ctx, tenantID, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		record.Name = name
	}
	if input.SKU != nil {
		sku := NormalizeSKU(*input.SKU)
		if err := s.ensureSKUAvailable(ctx, tenantID, sku, record.ID); err != nil {
			return nil, err
		}
		record.SKU = sku
	}
	if input.Description != nil {
		record.Description = strings.TrimSpace(*input.Description)
	}
	if input.Unit != nil {
		unit, err := ParseUnit(*input.Unit)
		if err != nil {
			return nil, err
		}
		record.Unit = unit
	}
	if input.UnitPrice != nil {
		if *input.UnitPrice < 0 {
			return nil, ErrUnitPriceNegative
		}
		record.UnitPrice = *input.UnitPrice
	}
	if input.Taxable != nil {
		record.Taxable = *input.Taxable
	}
	if input.Active != nil {
		record.Active = *input.Active
	}
	record.UpdatedAt = s.now().UTC()

	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	s.emitActivity(ctx, "updated", updated, nil)
	return updated, nil
}

// Delete soft-deletes the product; existing invoice lines keep their copy of
// the description and price.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceProducts, permissions.ActionDelete); err != nil {
		return err
	}
	record, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	record.DeletedAt = &now
	record.Active = false
	record.UpdatedAt = now
	if _, err := s.repo.Update(ctx, record); err != nil {
		return err
	}
	s.emitActivity(ctx, "deleted", record, nil)
	return nil
}

func (s *service) ensureSKUAvailable(ctx context.Context, tenantID uuid.UUID, sku string, self uuid.UUID) error {
	if sku == "" {
		return nil
	}
	existing, err := s.repo.GetBySKU(ctx, tenantID, sku)
	if err == nil {
		if existing.ID != self {
			return ErrSKUExists
		}
		return nil
	}
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

func (s *service) emitActivity(ctx context.Context, verb string, record *Product, meta map[string]any) {
	if s.activity == nil || !s.activity.Enabled() || record == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["name"] = record.Name
	meta["sku"] = record.SKU
	meta[tenancy.RecordMetadataKey] = cloneProduct(record)
	if err := s.activity.Emit(ctx, tenancy.ActivityEvent(ctx, verb, "product", record.ID, meta)); err != nil {
		s.logger.Warn("product.activity.emit_failed", "error", err)
	}
}
