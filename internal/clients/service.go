package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/internal/permissions"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	"github.com/google/uuid"
)

var (
	ErrNameRequired = errors.New("clients: name is required")
	ErrEmailInvalid = errors.New("clients: email is invalid")
	ErrEmailExists  = errors.New("clients: email already used by another client")
)

// NotFoundError represents missing records from repository lookups.
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

// Service exposes client management for the tenant bound to the context.
type Service interface {
	Create(ctx context.Context, input CreateClientInput) (*Client, error)
	Get(ctx context.Context, id uuid.UUID) (*Client, error)
	List(ctx context.Context, opts ListOptions) ([]*Client, int, error)
	Update(ctx context.Context, input UpdateClientInput) (*Client, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type CreateClientInput struct {
	Name         string `json:"name"`
	CompanyName  string `json:"company_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	Region       string `json:"region"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	TaxID        string `json:"tax_id"`
	Notes        string `json:"notes"`
}

// UpdateClientInput applies the non-nil fields.
type UpdateClientInput struct {
	ID           uuid.UUID `json:"-"`
	Name         *string   `json:"name"`
	CompanyName  *string   `json:"company_name"`
	Email        *string   `json:"email"`
	Phone        *string   `json:"phone"`
	AddressLine1 *string   `json:"address_line1"`
	AddressLine2 *string   `json:"address_line2"`
	City         *string   `json:"city"`
	Region       *string   `json:"region"`
	PostalCode   *string   `json:"postal_code"`
	Country      *string   `json:"country"`
	TaxID        *string   `json:"tax_id"`
	Notes        *string   `json:"notes"`
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

func (s *service) Create(ctx context.Context, input CreateClientInput) (*Client, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceClients, permissions.ActionCreate); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEmailAvailable(ctx, tenantID, email, uuid.Nil); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	actor := tenancy.ActorID(ctx)
	record := &Client{
		ID:           s.id(),
		TenantID:     tenantID,
		Name:         name,
		CompanyName:  strings.TrimSpace(input.CompanyName),
		Email:        email,
		Phone:        strings.TrimSpace(input.Phone),
		AddressLine1: strings.TrimSpace(input.AddressLine1),
		AddressLine2: strings.TrimSpace(input.AddressLine2),
		City:         strings.TrimSpace(input.City),
		Region:       strings.TrimSpace(input.Region),
		PostalCode:   strings.TrimSpace(input.PostalCode),
		Country:      strings.ToUpper(strings.TrimSpace(input.Country)),
		TaxID:        strings.TrimSpace(input.TaxID),
		Notes:        strings.TrimSpace(input.Notes),
		CreatedBy:    actor,
		UpdatedBy:    actor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	s.logger.Info("client.created", "client_id", created.ID, "tenant_id", tenantID)
	s.emitActivity(ctx, "created", created, nil)
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Client, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceClients, permissions.ActionRead); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, tenantID, id)
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]*Client, int, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return nil, 0, err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceClients, permissions.ActionRead); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, tenantID, opts)
}

func (s *service) Update(ctx context.Context, input UpdateClientInput) (*Client, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceClients, permissions.ActionUpdate); err != nil {
		return nil, err
	}
	record, err := s.repo.GetByID(ctx, tenantID, input.ID)
	if err != nil {
		return nil, err
	}

	changed := []string{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		record.Name = name
		changed = append(changed, "name")
	}
	if input.Email != nil {
		email, err := normalizeEmail(*input.Email)
		if err != nil {
			return nil, err
		}
		if err := s.ensureEmailAvailable(ctx, tenantID, email, record.ID); err != nil {
			return nil, err
		}
		record.Email = email
		changed = append(changed, "email")
	}
	assign := func(field string, target *string, value *string) {
		if value == nil {
			return
		}
		*target = strings.TrimSpace(*value)
		changed = append(changed, field)
	}
	assign("company_name", &record.CompanyName, input.CompanyName)
	assign("phone", &record.Phone, input.Phone)
	assign("address_line1", &record.AddressLine1, input.AddressLine1)
	assign("address_line2", &record.AddressLine2, input.AddressLine2)
	assign("city", &record.City, input.City)
	assign("region", &record.Region, input.Region)
	assign("postal_code", &record.PostalCode, input.PostalCode)
	assign("country", &record.Country, input.Country)
	assign("tax_id", &record.TaxID, input.TaxID)
	assign("notes", &record.Notes, input.Notes)
	record.Country = strings.ToUpper(record.Country)

	record.UpdatedBy = tenancy.ActorID(ctx)
	record.UpdatedAt = s.now().UTC()

	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	s.emitActivity(ctx, "updated", updated, map[string]any{"fields": changed})
	return updated, nil
}

// Delete soft-deletes the client; invoices keep referencing it.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceClients, permissions.ActionDelete); err != nil {
		return err
	}
	record, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	record.DeletedAt = &now
	record.UpdatedAt = now
	record.UpdatedBy = tenancy.ActorID(ctx)
	if _, err := s.repo.Update(ctx, record); err != nil {
		return err
	}
	s.emitActivity(ctx, "deleted", record, nil)
	return nil
}

func (s *service) ensureEmailAvailable(ctx context.Context, tenantID uuid.UUID, email string, self uuid.UUID) error {
	if email == "" {
		return nil
	}
	existing, err := s.repo.GetByEmail(ctx, tenantID, email)
	if err == nil {
		if existing.ID != self {
			return ErrEmailExists
		}
		return nil
	}
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

func (s *service) emitActivity(ctx context.Context, verb string, record *Client, meta map[string]any) {
	if s.activity == nil || !s.activity.Enabled() || record == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["name"] = record.DisplayName()
	meta[tenancy.RecordMetadataKey] = cloneClient(record)
	if err := s.activity.Emit(ctx, tenancy.ActivityEvent(ctx, verb, "client", record.ID, meta)); err != nil {
		s.logger.Warn("client.activity.emit_failed", "error", err)
	}
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", nil
	}
	if err := validation.Validate(email, is.EmailFormat); err != nil {
		return "", ErrEmailInvalid
	}
	return email, nil
}
