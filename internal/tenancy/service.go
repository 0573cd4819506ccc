package tenancy

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-contractor/internal/domain"
	"github.com/goliatone/go-slug"
	"github.com/google/uuid"
)

var (
	ErrNameRequired       = errors.New("tenancy: name is required")
	ErrSlugInvalid        = errors.New("tenancy: slug contains invalid characters")
	ErrSlugExists         = errors.New("tenancy: slug already exists")
	ErrPaymentTermsNeg    = errors.New("tenancy: payment terms cannot be negative")
	ErrTaxRateOutOfBounds = errors.New("tenancy: tax rate must be between 0 and 10000 basis points")
	ErrInvoicePrefix      = errors.New("tenancy: invoice prefix must be 1-10 alphanumeric characters")
)

// Defaults applied to new tenants when the input leaves them unset.
type Defaults struct {
	Currency          string
	InvoicePrefix     string
	PaymentTermsDays  int
	DefaultTaxRateBps int
}

// Service manages tenant accounts and their invoicing settings.
type Service interface {
	Create(ctx context.Context, input CreateTenantInput) (*Tenant, error)
	Get(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
	UpdateSettings(ctx context.Context, input UpdateSettingsInput) (*Tenant, error)
	// Current resolves the tenant bound to ctx.
	Current(ctx context.Context) (*Tenant, error)
}

type CreateTenantInput struct {
	Name              string
	Slug              string
	Email             string
	Currency          string
	InvoicePrefix     string
	PaymentTermsDays  *int
	DefaultTaxRateBps *int
}

type UpdateSettingsInput struct {
	TenantID          uuid.UUID
	Name              *string
	Email             *string
	Currency          *string
	InvoicePrefix     *string
	PaymentTermsDays  *int
	DefaultTaxRateBps *int
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

func WithDefaults(defaults Defaults) ServiceOption {
	return func(s *service) {
		s.defaults = defaults
	}
}

type service struct {
	repo     Repository
	now      func() time.Time
	id       func() uuid.UUID
	defaults Defaults
}

func NewService(repo Repository, opts ...ServiceOption) Service {
	s := &service{
		repo: repo,
		now:  time.Now,
		id:   uuid.New,
		defaults: Defaults{
			Currency:         domain.DefaultCurrency,
			InvoicePrefix:    "INV",
			PaymentTermsDays: 30,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, input CreateTenantInput) (*Tenant, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	rawSlug := strings.TrimSpace(input.Slug)
	if rawSlug == "" {
		rawSlug = name
	}
	normalized, err := slug.Normalize(rawSlug)
	if err != nil || normalized == "" {
		return nil, ErrSlugInvalid
	}
	if _, err := s.repo.GetBySlug(ctx, normalized); err == nil {
		return nil, ErrSlugExists
	} else {
		var notFound *NotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	prefix := firstNonEmpty(input.InvoicePrefix, s.defaults.InvoicePrefix, "INV")
	terms := s.defaults.PaymentTermsDays
	if input.PaymentTermsDays != nil {
		terms = *input.PaymentTermsDays
	}
	rate := s.defaults.DefaultTaxRateBps
	if input.DefaultTaxRateBps != nil {
		rate = *input.DefaultTaxRateBps
	}

	now := s.now().UTC()
	record := &Tenant{
		ID:                s.id(),
		Name:              name,
		Slug:              normalized,
		Email:             strings.TrimSpace(input.Email),
		Currency:          domain.NormalizeCurrency(firstNonEmpty(input.Currency, s.defaults.Currency)),
		InvoicePrefix:     strings.ToUpper(strings.TrimSpace(prefix)),
		PaymentTermsDays:  terms,
		DefaultTaxRateBps: rate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := validateSettings(record); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, record)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetBySlug(ctx context.Context, value string) (*Tenant, error) {
	normalized, err := slug.Normalize(strings.TrimSpace(value))
	if err != nil || normalized == "" {
		return nil, &NotFoundError{Resource: "tenant", Key: value}
	}
	return s.repo.GetBySlug(ctx, normalized)
}

func (s *service) List(ctx context.Context) ([]*Tenant, error) {
	return s.repo.List(ctx)
}

func (s *service) Current(ctx context.Context) (*Tenant, error) {
	id, err := RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateSettings(ctx context.Context, input UpdateSettingsInput) (*Tenant, error) {
	record, err := s.repo.GetByID(ctx, input.TenantID)
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
	if input.Email != nil {
		record.Email = strings.TrimSpace(*input.Email)
	}
	if input.Currency != nil {
		record.Currency = domain.NormalizeCurrency(*input.Currency)
	}
	if input.InvoicePrefix != nil {
		record.InvoicePrefix = strings.ToUpper(strings.TrimSpace(*input.InvoicePrefix))
	}
	if input.PaymentTermsDays != nil {
		record.PaymentTermsDays = *input.PaymentTermsDays
	}
	if input.DefaultTaxRateBps != nil {
		record.DefaultTaxRateBps = *input.DefaultTaxRateBps
	}
	if err := validateSettings(record); err != nil {
		return nil, err
	}
	record.UpdatedAt = s.now().UTC()
	return s.repo.Update(ctx, record)
}

func validateSettings(record *Tenant) error {
	if record.PaymentTermsDays < 0 {
		return ErrPaymentTermsNeg
	}
	if record.DefaultTaxRateBps < 0 || record.DefaultTaxRateBps > domain.BasisPointsScale {
		return ErrTaxRateOutOfBounds
	}
	if !validPrefix(record.InvoicePrefix) {
		return ErrInvoicePrefix
	}
	return nil
}

func validPrefix(prefix string) bool {
	if prefix == "" || len(prefix) > 10 {
		return false
	}
	for _, r := range prefix {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
