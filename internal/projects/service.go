package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-contractor/internal/clients"
	"github.com/goliatone/go-contractor/internal/domain"
	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/internal/permissions"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	"github.com/goliatone/go-slug"
	"github.com/google/uuid"
)

var (
	ErrNameRequired       = errors.New("projects: name is required")
	ErrClientRequired     = errors.New("projects: client does not exist")
	ErrSlugInvalid        = errors.New("projects: slug contains invalid characters")
	ErrSlugExists         = errors.New("projects: slug already exists")
	ErrBudgetNegative     = errors.New("projects: budget cannot be negative")
	ErrDateRangeInvalid   = errors.New("projects: end date must not be before start date")
	ErrStatusInvalid      = errors.New("projects: unknown status")
	ErrTransitionInvalid  = errors.New("projects: status transition not allowed")
	ErrProjectNotEditable = errors.New("projects: completed or cancelled projects cannot be edited")
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

// ClientLookup resolves clients within a tenant.
type ClientLookup interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*clients.Client, error)
}

// Service manages construction projects for the context tenant.
type Service interface {
	Create(ctx context.Context, input CreateProjectInput) (*Project, error)
	Get(ctx context.Context, id uuid.UUID) (*Project, error)
	GetBySlug(ctx context.Context, slug string) (*Project, error)
	List(ctx context.Context, opts ListOptions) ([]*Project, int, error)
	Update(ctx context.Context, input UpdateProjectInput) (*Project, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, status Status) (*Project, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type CreateProjectInput struct {
	ClientID    uuid.UUID  `json:"client_id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	Budget      int64      `json:"budget"`
	SiteAddress string     `json:"site_address"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

type UpdateProjectInput struct {
	ID          uuid.UUID  `json:"-"`
	ClientID    *uuid.UUID `json:"client_id"`
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Budget      *int64     `json:"budget"`
	SiteAddress *string    `json:"site_address"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
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
	clients  ClientLookup
	now      func() time.Time
	id       func() uuid.UUID
	activity *activity.Emitter
	logger   interfaces.Logger
}

func NewService(repo Repository, clientLookup ClientLookup, opts ...ServiceOption) Service {
	s := &service{
		repo:     repo,
		clients:  clientLookup,
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

func (s *service) Create(ctx context.Context, input CreateProjectInput) (*Project, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceProjects, permissions.ActionCreate); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if err := s.requireClient(ctx, tenantID, input.ClientID); err != nil {
		return nil, err
	}
	if input.Budget < 0 {
		return nil, ErrBudgetNegative
	}
	if err := validateDates(input.StartDate, input.EndDate); err != nil {
		return nil, err
	}

	projectSlug, err := s.uniqueSlug(ctx, tenantID, input.Slug, name)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	actor := tenancy.ActorID(ctx)
	record := &Project{
		ID:          s.id(),
		TenantID:    tenantID,
		ClientID:    input.ClientID,
		Name:        name,
		Slug:        projectSlug,
		Description: strings.TrimSpace(input.Description),
		Status:      StatusPlanned,
		Budget:      input.Budget,
		SiteAddress: strings.TrimSpace(input.SiteAddress),
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		CreatedBy:   actor,
		UpdatedBy:   actor,
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

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Project, error) {
	tenantID, err := s.readScope(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, tenantID, id)
}

func (s *service) GetBySlug(ctx context.Context, value string) (*Project, error) {
	tenantID, err := s.readScope(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetBySlug(ctx, tenantID, strings.TrimSpace(value))
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]*Project, int, error) {
	tenantID, err := s.readScope(ctx)
	if err != nil {
		return nil, 0, err
	}
	if opts.Status != "" && !Transitions.Known(opts.Status) {
		return nil, 0, ErrStatusInvalid
	}
	return s.repo.List(ctx, tenantID, opts)
}

func (s *service) Update(ctx context.Context, input UpdateProjectInput) (*Project, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceProjects, permissions.ActionUpdate); err != nil {
		return nil, err
	}
	record, err := s.repo.GetByID(ctx, tenantID, input.ID)
	if err != nil {
		return nil, err
	}
	if Transitions.Terminal(record.Status) {
		return nil, ErrProjectNotEditable
	}

	if input.ClientID != nil {
		if err := s.requireClient(ctx, tenantID, *input.ClientID); err != nil {
			return nil, err
		}
		record.ClientID = *input.ClientID
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		record.Name = name
	}
	if input.Description != nil {
		record.Description = strings.TrimSpace(*input.Description)
	}
	if input.Budget != nil {
		if *input.Budget < 0 {
			return nil, ErrBudgetNegative
		}
		record.Budget = *input.Budget
	}
	if input.SiteAddress != nil {
		record.SiteAddress = strings.TrimSpace(*input.SiteAddress)
	}
	if input.StartDate != nil {
		record.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		record.EndDate = input.EndDate
	}
	if err := validateDates(record.StartDate, record.EndDate); err != nil {
		return nil, err
	}

	record.UpdatedBy = tenancy.ActorID(ctx)
	record.UpdatedAt = s.now().UTC()
	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	s.emitActivity(ctx, "updated", updated, nil)
	return updated, nil
}

func (s *service) ChangeStatus(ctx context.Context, id uuid.UUID, status Status) (*Project, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceProjects, permissions.ActionUpdate); err != nil {
		return nil, err
	}
	status = domain.ParseStatus[Status](string(status))
	if !Transitions.Known(status) {
		return nil, ErrStatusInvalid
	}
	record, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if record.Status == status {
		return record, nil
	}
	if !Transitions.Allows(record.Status, status) {
		return nil, ErrTransitionInvalid
	}

	previous := record.Status
	now := s.now().UTC()
	record.Status = status
	if status == StatusActive && record.StartDate == nil {
		started := now
		record.StartDate = &started
	}
	if status == StatusCompleted {
		record.CompletedAt = &now
	}
	record.UpdatedBy = tenancy.ActorID(ctx)
	record.UpdatedAt = now

	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	s.logger.Info("project.status_changed", "project_id", updated.ID, "from", previous, "to", status)
	s.emitActivity(ctx, "status_changed", updated, map[string]any{
		"from": string(previous),
		"to":   string(status),
	})
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceProjects, permissions.ActionDelete); err != nil {
		return err
	}
	record, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	record.DeletedAt = &now
	record.UpdatedAt = now
	if _, err := s.repo.Update(ctx, record); err != nil {
		return err
	}
	s.emitActivity(ctx, "deleted", record, nil)
	return nil
}

func (s *service) readScope(ctx context.Context) (uuid.UUID, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceProjects, permissions.ActionRead); err != nil {
		return uuid.Nil, err
	}
	return tenantID, nil
}

func (s *service) requireClient(ctx context.Context, tenantID, clientID uuid.UUID) error {
	if clientID == uuid.Nil || s.clients == nil {
		return ErrClientRequired
	}
	if _, err := s.clients.GetByID(ctx, tenantID, clientID); err != nil {
		var notFound *clients.NotFoundError
		if errors.As(err, &notFound) {
			return ErrClientRequired
		}
		return err
	}
	return nil
}

// uniqueSlug normalizes the requested slug (or the name) and appends -2, -3,
// ... until it is free within the tenant.
func (s *service) uniqueSlug(ctx context.Context, tenantID uuid.UUID, requested, name string) (string, error) {
	source := strings.TrimSpace(requested)
	if source == "" {
		source = name
	}
	base, err := slug.Normalize(source)
	if err != nil || base == "" {
		return "", ErrSlugInvalid
	}
	explicit := strings.TrimSpace(requested) != ""

	candidate := base
	for attempt := 2; ; attempt++ {
		_, err := s.repo.GetBySlug(ctx, tenantID, candidate)
		if err != nil {
			var notFound *NotFoundError
			if errors.As(err, &notFound) {
				return candidate, nil
			}
			return "", err
		}
		if explicit {
			return "", ErrSlugExists
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}
}

func (s *service) emitActivity(ctx context.Context, verb string, record *Project, meta map[string]any) {
	if s.activity == nil || !s.activity.Enabled() || record == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["name"] = record.Name
	meta["status"] = string(record.Status)
	meta["client_id"] = record.ClientID.String()
	meta[tenancy.RecordMetadataKey] = cloneProject(record)
	if err := s.activity.Emit(ctx, tenancy.ActivityEvent(ctx, verb, "project", record.ID, meta)); err != nil {
		s.logger.Warn("project.activity.emit_failed", "error", err)
	}
}

func validateDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return ErrDateRangeInvalid
	}
	return nil
}
