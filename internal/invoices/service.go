package invoices

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
	"github.com/goliatone/go-contractor/internal/products"
	"github.com/goliatone/go-contractor/internal/projects"
	cscheduler "github.com/goliatone/go-contractor/internal/scheduler"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	"github.com/google/uuid"
)

var (
	ErrClientRequired         = errors.New("invoices: client does not exist")
	ErrProjectNotFound        = errors.New("invoices: project does not exist")
	ErrProjectClientMismatch  = errors.New("invoices: project belongs to a different client")
	ErrProductNotFound        = errors.New("invoices: product does not exist")
	ErrProductInactive        = errors.New("invoices: product is archived")
	ErrLinesRequired          = errors.New("invoices: at least one line is required")
	ErrLineDescriptionMissing = errors.New("invoices: line description is required")
	ErrQuantityInvalid        = errors.New("invoices: line quantity must be greater than zero")
	ErrUnitPriceNegative      = errors.New("invoices: unit price cannot be negative")
	ErrDiscountNegative       = errors.New("invoices: discount cannot be negative")
	ErrTaxRateOutOfBounds     = errors.New("invoices: tax rate must be between 0 and 10000 basis points")
	ErrDueBeforeIssue         = errors.New("invoices: due date must not be before issue date")
	ErrNotDraft               = errors.New("invoices: only draft invoices can be modified")
	ErrStatusInvalid          = errors.New("invoices: unknown status")
	ErrTransitionInvalid      = errors.New("invoices: status transition not allowed")
	ErrNotPayable             = errors.New("invoices: invoice does not accept payments")
	ErrPaymentAmountInvalid   = errors.New("invoices: payment amount must be greater than zero")
	ErrPaymentExceedsDue      = errors.New("invoices: payment exceeds amount due")
	ErrConcurrentUpdate       = errors.New("invoices: invoice was changed by another request")
)

// maxWriteAttempts bounds how often a write reloads an invoice after losing
// a version race.
const maxWriteAttempts = 3

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

// TenantLookup resolves invoicing settings for a tenant.
type TenantLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*tenancy.Tenant, error)
}

type ClientLookup interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*clients.Client, error)
}

type ProjectLookup interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*projects.Project, error)
}

type ProductLookup interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*products.Product, error)
}

// Defaults apply when the tenant record leaves a setting empty.
type Defaults struct {
	NumberPrefix     string
	PaymentTermsDays int
	TaxRateBps       int
	Currency         string
}

// Service manages invoices for the context tenant.
type Service interface {
	Create(ctx context.Context, input CreateInvoiceInput) (*Invoice, error)
	Get(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	List(ctx context.Context, opts ListOptions) ([]*Invoice, int, error)
	Update(ctx context.Context, input UpdateInvoiceInput) (*Invoice, error)
	Send(ctx context.Context, id uuid.UUID) (*Invoice, error)
	RecordPayment(ctx context.Context, input RecordPaymentInput) (*Invoice, error)
	Void(ctx context.Context, id uuid.UUID, reason string) (*Invoice, error)
	// MarkOverdue moves open invoices due before asOf's calendar day to
	// overdue and returns them.
	MarkOverdue(ctx context.Context, asOf time.Time) ([]*Invoice, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// LineInput describes a billed item. Fields left empty are copied from the
// referenced product when ProductID is set.
type LineInput struct {
	ProductID   *uuid.UUID `json:"product_id"`
	Description string     `json:"description"`
	Quantity    float64    `json:"quantity"`
	Unit        string     `json:"unit"`
	UnitPrice   *int64     `json:"unit_price"`
	Taxable     *bool      `json:"taxable"`
}

type CreateInvoiceInput struct {
	ClientID   uuid.UUID   `json:"client_id"`
	ProjectID  *uuid.UUID  `json:"project_id"`
	IssueDate  *time.Time  `json:"issue_date"`
	DueDate    *time.Time  `json:"due_date"`
	Currency   string      `json:"currency"`
	TaxRateBps *int        `json:"tax_rate_bps"`
	Discount   int64       `json:"discount"`
	Notes      string      `json:"notes"`
	Terms      string      `json:"terms"`
	Lines      []LineInput `json:"lines"`
}

// UpdateInvoiceInput edits a draft. A non-nil Lines replaces every line.
type UpdateInvoiceInput struct {
	ID         uuid.UUID    `json:"-"`
	ClientID   *uuid.UUID   `json:"client_id"`
	ProjectID  *uuid.UUID   `json:"project_id"`
	IssueDate  *time.Time   `json:"issue_date"`
	DueDate    *time.Time   `json:"due_date"`
	TaxRateBps *int         `json:"tax_rate_bps"`
	Discount   *int64       `json:"discount"`
	Notes      *string      `json:"notes"`
	Terms      *string      `json:"terms"`
	Lines      *[]LineInput `json:"lines"`
}

type RecordPaymentInput struct {
	InvoiceID  uuid.UUID  `json:"-"`
	Amount     int64      `json:"amount"`
	Method     string     `json:"method"`
	Reference  string     `json:"reference"`
	ReceivedAt *time.Time `json:"received_at"`
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

func WithDefaults(defaults Defaults) ServiceOption {
	return func(s *service) {
		s.defaults = defaults
	}
}

// WithProjects enables project validation for invoices that reference one.
func WithProjects(lookup ProjectLookup) ServiceOption {
	return func(s *service) {
		s.projects = lookup
	}
}

// WithProducts enables product-backed invoice lines.
func WithProducts(lookup ProductLookup) ServiceOption {
	return func(s *service) {
		s.products = lookup
	}
}

// WithScheduler makes Send enqueue an overdue sweep for the day after the
// invoice falls due.
func WithScheduler(scheduler interfaces.Scheduler) ServiceOption {
	return func(s *service) {
		s.scheduler = scheduler
	}
}

type service struct {
	repo      Repository
	scheduler interfaces.Scheduler
	sequencer Sequencer
	tenants   TenantLookup
	clients   ClientLookup
	projects  ProjectLookup
	products  ProductLookup
	defaults  Defaults
	now       func() time.Time
	id        func() uuid.UUID
	activity  *activity.Emitter
	logger    interfaces.Logger
}

func NewService(repo Repository, sequencer Sequencer, tenants TenantLookup, clientLookup ClientLookup, opts ...ServiceOption) Service {
	s := &service{
		repo:      repo,
		sequencer: sequencer,
		tenants:   tenants,
		clients:   clientLookup,
		defaults: Defaults{
			NumberPrefix:     DefaultNumberPrefix,
			PaymentTermsDays: 30,
			Currency:         domain.DefaultCurrency,
		},
		now:      time.Now,
		id:       uuid.New,
		activity: activity.NewEmitter(nil, activity.Config{}),
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sequencer == nil {
		s.sequencer = NewMemorySequencer()
	}
	return s
}

func (s *service) Create(ctx context.Context, input CreateInvoiceInput) (*Invoice, error) {
	tenantID, err := s.writeScope(ctx, permissions.ActionCreate)
	if err != nil {
		return nil, err
	}
	settings := s.settings(ctx, tenantID)

	if err := s.requireClient(ctx, tenantID, input.ClientID); err != nil {
		return nil, err
	}
	if err := s.checkProject(ctx, tenantID, input.ClientID, input.ProjectID); err != nil {
		return nil, err
	}
	if input.Discount < 0 {
		return nil, ErrDiscountNegative
	}
	taxRate := settings.TaxRateBps
	if input.TaxRateBps != nil {
		taxRate = *input.TaxRateBps
	}
	if taxRate < 0 || taxRate > domain.BasisPointsScale {
		return nil, ErrTaxRateOutOfBounds
	}

	now := s.now().UTC()
	issue := dateOnly(now)
	if input.IssueDate != nil {
		issue = dateOnly(*input.IssueDate)
	}
	due := issue.AddDate(0, 0, settings.PaymentTermsDays)
	if input.DueDate != nil {
		due = dateOnly(*input.DueDate)
	}
	if due.Before(issue) {
		return nil, ErrDueBeforeIssue
	}

	lines, err := s.buildLines(ctx, tenantID, input.Lines)
	if err != nil {
		return nil, err
	}

	seq, err := s.sequencer.Next(ctx, tenantID, issue.Year())
	if err != nil {
		return nil, fmt.Errorf("allocate invoice number: %w", err)
	}

	actor := tenancy.ActorID(ctx)
	currency := settings.Currency
	if strings.TrimSpace(input.Currency) != "" {
		currency = domain.NormalizeCurrency(input.Currency)
	}
	record := &Invoice{
		ID:         s.id(),
		TenantID:   tenantID,
		ClientID:   input.ClientID,
		ProjectID:  input.ProjectID,
		Number:     FormatNumber(settings.NumberPrefix, issue.Year(), seq),
		Status:     StatusDraft,
		IssueDate:  issue,
		DueDate:    due,
		Currency:   currency,
		TaxRateBps: taxRate,
		Discount:   input.Discount,
		Notes:      strings.TrimSpace(input.Notes),
		Terms:      strings.TrimSpace(input.Terms),
		CreatedBy:  actor,
		UpdatedBy:  actor,
		CreatedAt:  now,
		UpdatedAt:  now,
		Lines:      lines,
		Payments:   []*Payment{},
	}
	applyTotals(record)

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	s.logger.Info("invoice.created", "invoice_id", created.ID, "number", created.Number, "total", created.Total)
	s.emitActivity(ctx, "created", created, nil)
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	tenantID, err := s.readScope(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, tenantID, id)
}

func (s *service) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	tenantID, err := s.readScope(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByNumber(ctx, tenantID, strings.ToUpper(strings.TrimSpace(number)))
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]*Invoice, int, error) {
	tenantID, err := s.readScope(ctx)
	if err != nil {
		return nil, 0, err
	}
	if opts.Status != "" && !Transitions.Known(opts.Status) {
		return nil, 0, ErrStatusInvalid
	}
	return s.repo.List(ctx, tenantID, opts)
}

func (s *service) Update(ctx context.Context, input UpdateInvoiceInput) (*Invoice, error) {
	tenantID, err := s.writeScope(ctx, permissions.ActionUpdate)
	if err != nil {
		return nil, err
	}
	updated, err := s.modify(ctx, tenantID, input.ID, func(record *Invoice) error {
		return s.applyUpdate(ctx, tenantID, record, input)
	})
	if err != nil {
		return nil, err
	}
	s.emitActivity(ctx, "updated", updated, nil)
	return updated, nil
}

func (s *service) applyUpdate(ctx context.Context, tenantID uuid.UUID, record *Invoice, input UpdateInvoiceInput) error {
	if record.Status != StatusDraft {
		return ErrNotDraft
	}
	if input.ClientID != nil {
		if err := s.requireClient(ctx, tenantID, *input.ClientID); err != nil {
			return err
		}
		record.ClientID = *input.ClientID
	}
	if input.ProjectID != nil {
		if *input.ProjectID == uuid.Nil {
			record.ProjectID = nil
		} else {
			id := *input.ProjectID
			record.ProjectID = &id
		}
	}
	if err := s.checkProject(ctx, tenantID, record.ClientID, record.ProjectID); err != nil {
		return err
	}
	if input.IssueDate != nil {
		record.IssueDate = dateOnly(*input.IssueDate)
	}
	if input.DueDate != nil {
		record.DueDate = dateOnly(*input.DueDate)
	}
	if record.DueDate.Before(record.IssueDate) {
		return ErrDueBeforeIssue
	}
	if input.TaxRateBps != nil {
		if *input.TaxRateBps < 0 || *input.TaxRateBps > domain.BasisPointsScale {
			return ErrTaxRateOutOfBounds
		}
		record.TaxRateBps = *input.TaxRateBps
	}
	if input.Discount != nil {
		if *input.Discount < 0 {
			return ErrDiscountNegative
		}
		record.Discount = *input.Discount
	}
	if input.Notes != nil {
		record.Notes = strings.TrimSpace(*input.Notes)
	}
	if input.Terms != nil {
		record.Terms = strings.TrimSpace(*input.Terms)
	}
	if input.Lines != nil {
		lines, err := s.buildLines(ctx, tenantID, *input.Lines)
		if err != nil {
			return err
		}
		record.Lines = lines
	}
	applyTotals(record)

	record.UpdatedBy = tenancy.ActorID(ctx)
	record.UpdatedAt = s.now().UTC()
	return nil
}

func (s *service) Send(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	tenantID, err := s.writeScope(ctx, permissions.ActionSend)
	if err != nil {
		return nil, err
	}
	updated, err := s.modify(ctx, tenantID, id, func(record *Invoice) error {
		if !Transitions.Allows(record.Status, StatusSent) {
			return ErrTransitionInvalid
		}
		if len(record.Lines) == 0 {
			return ErrLinesRequired
		}
		now := s.now().UTC()
		record.Status = StatusSent
		record.SentAt = &now
		record.UpdatedBy = tenancy.ActorID(ctx)
		record.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("invoice.sent", "invoice_id", updated.ID, "number", updated.Number, "due_date", updated.DueDate.Format(time.DateOnly))
	s.emitActivity(ctx, "sent", updated, nil)
	s.scheduleOverdueSweep(ctx, tenantID, updated)
	return updated, nil
}

func (s *service) scheduleOverdueSweep(ctx context.Context, tenantID uuid.UUID, record *Invoice) {
	if s.scheduler == nil {
		return
	}
	runAt := dateOnly(record.DueDate).AddDate(0, 0, 1)
	_, err := s.scheduler.Enqueue(ctx, interfaces.JobSpec{
		Key:      cscheduler.OverdueSweepJobKey(tenantID, runAt),
		Type:     cscheduler.JobTypeOverdueSweep,
		RunAt:    runAt,
		TenantID: tenantID.String(),
	})
	if err != nil {
		s.logger.Warn("invoice.overdue_sweep.enqueue_failed", "invoice_id", record.ID, "error", err)
	}
}

func (s *service) RecordPayment(ctx context.Context, input RecordPaymentInput) (*Invoice, error) {
	tenantID, err := s.writeScope(ctx, permissions.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if input.Amount <= 0 {
		return nil, ErrPaymentAmountInvalid
	}

	now := s.now().UTC()
	received := now
	if input.ReceivedAt != nil {
		received = input.ReceivedAt.UTC()
	}
	actor := tenancy.ActorID(ctx)
	payment := &Payment{
		ID:         s.id(),
		InvoiceID:  input.InvoiceID,
		Amount:     input.Amount,
		Method:     strings.TrimSpace(input.Method),
		Reference:  strings.TrimSpace(input.Reference),
		ReceivedAt: received,
		CreatedBy:  actor,
		CreatedAt:  now,
	}

	var previous Status
	updated, err := s.modify(ctx, tenantID, input.InvoiceID, func(record *Invoice) error {
		if !record.Status.Open() {
			return ErrNotPayable
		}
		if input.Amount > record.AmountDue() {
			return ErrPaymentExceedsDue
		}
		record.Payments = append(record.Payments, payment)
		record.AmountPaid += input.Amount

		previous = record.Status
		next := StatusPartiallyPaid
		if record.AmountDue() == 0 {
			next = StatusPaid
			record.PaidAt = &received
		}
		if next != previous {
			if !Transitions.Allows(previous, next) {
				return ErrTransitionInvalid
			}
			record.Status = next
		}
		record.UpdatedBy = actor
		record.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("invoice.payment_recorded", "invoice_id", updated.ID, "amount", input.Amount, "status", updated.Status)
	s.emitActivity(ctx, "payment_recorded", updated, map[string]any{
		"payment_id": payment.ID.String(),
		"amount":     input.Amount,
		"from":       string(previous),
		"to":         string(updated.Status),
	})
	return updated, nil
}

func (s *service) Void(ctx context.Context, id uuid.UUID, reason string) (*Invoice, error) {
	tenantID, err := s.writeScope(ctx, permissions.ActionVoid)
	if err != nil {
		return nil, err
	}
	var previous Status
	updated, err := s.modify(ctx, tenantID, id, func(record *Invoice) error {
		if !Transitions.Allows(record.Status, StatusVoid) {
			return ErrTransitionInvalid
		}
		previous = record.Status
		now := s.now().UTC()
		record.Status = StatusVoid
		record.VoidedAt = &now
		record.UpdatedBy = tenancy.ActorID(ctx)
		record.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	meta := map[string]any{"from": string(previous)}
	if reason = strings.TrimSpace(reason); reason != "" {
		meta["reason"] = reason
	}
	s.logger.Info("invoice.voided", "invoice_id", updated.ID, "number", updated.Number)
	s.emitActivity(ctx, "voided", updated, meta)
	return updated, nil
}

func (s *service) MarkOverdue(ctx context.Context, asOf time.Time) ([]*Invoice, error) {
	tenantID, err := s.writeScope(ctx, permissions.ActionUpdate)
	if err != nil {
		return nil, err
	}
	cutoff := dateOnly(asOf)
	marked := []*Invoice{}
	for _, status := range []Status{StatusSent, StatusPartiallyPaid} {
		candidates, _, err := s.repo.List(ctx, tenantID, ListOptions{Status: status, DueBefore: &cutoff})
		if err != nil {
			return marked, err
		}
		for _, record := range candidates {
			if record.AmountDue() == 0 {
				continue
			}
			record.Status = StatusOverdue
			record.UpdatedAt = s.now().UTC()
			updated, err := s.repo.Update(ctx, record)
			if errors.Is(err, ErrConcurrentUpdate) {
				s.logger.Debug("invoice.overdue.skipped", "invoice_id", record.ID, "error", err)
				continue
			}
			if err != nil {
				return marked, err
			}
			s.emitActivity(ctx, "status_changed", updated, map[string]any{
				"from": string(status),
				"to":   string(StatusOverdue),
			})
			marked = append(marked, updated)
		}
	}
	if len(marked) > 0 {
		s.logger.Info("invoice.overdue.marked", "count", len(marked), "as_of", cutoff.Format(time.DateOnly))
	}
	return marked, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, err := s.writeScope(ctx, permissions.ActionDelete)
	if err != nil {
		return err
	}
	record, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if record.Status != StatusDraft {
		return ErrNotDraft
	}
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.emitActivity(ctx, "deleted", record, nil)
	return nil
}

// modify loads the invoice, applies change and saves it under the version it
// read. A lost race reloads and reapplies change, so its checks always run
// against the stored state.
func (s *service) modify(ctx context.Context, tenantID, id uuid.UUID, change func(*Invoice) error) (*Invoice, error) {
	err := ErrConcurrentUpdate
	for range maxWriteAttempts {
		var record *Invoice
		record, err = s.repo.GetByID(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		if err = change(record); err != nil {
			return nil, err
		}
		var updated *Invoice
		updated, err = s.repo.Update(ctx, record)
		if errors.Is(err, ErrConcurrentUpdate) {
			continue
		}
		return updated, err
	}
	return nil, err
}

func (s *service) readScope(ctx context.Context) (uuid.UUID, error) {
	return s.writeScope(ctx, permissions.ActionRead)
}

func (s *service) writeScope(ctx context.Context, action permissions.Action) (uuid.UUID, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceInvoices, action); err != nil {
		return uuid.Nil, err
	}
	return tenantID, nil
}

// settings merges the tenant's invoicing settings over the configured
// defaults. A missing tenant record falls back to the defaults.
func (s *service) settings(ctx context.Context, tenantID uuid.UUID) Defaults {
	resolved := s.defaults
	if resolved.NumberPrefix == "" {
		resolved.NumberPrefix = DefaultNumberPrefix
	}
	resolved.Currency = domain.NormalizeCurrency(resolved.Currency)
	if s.tenants == nil {
		return resolved
	}
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil || tenant == nil {
		if err != nil {
			s.logger.Debug("invoice.tenant_settings.fallback", "tenant_id", tenantID, "error", err)
		}
		return resolved
	}
	if tenant.InvoicePrefix != "" {
		resolved.NumberPrefix = tenant.InvoicePrefix
	}
	if tenant.Currency != "" {
		resolved.Currency = domain.NormalizeCurrency(tenant.Currency)
	}
	resolved.PaymentTermsDays = tenant.PaymentTermsDays
	resolved.TaxRateBps = tenant.DefaultTaxRateBps
	return resolved
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

func (s *service) checkProject(ctx context.Context, tenantID, clientID uuid.UUID, projectID *uuid.UUID) error {
	if projectID == nil || *projectID == uuid.Nil || s.projects == nil {
		return nil
	}
	project, err := s.projects.GetByID(ctx, tenantID, *projectID)
	if err != nil {
		var notFound *projects.NotFoundError
		if errors.As(err, &notFound) {
			return ErrProjectNotFound
		}
		return err
	}
	if project.ClientID != clientID {
		return ErrProjectClientMismatch
	}
	return nil
}

func (s *service) buildLines(ctx context.Context, tenantID uuid.UUID, inputs []LineInput) ([]*Line, error) {
	if len(inputs) == 0 {
		return nil, ErrLinesRequired
	}
	lines := make([]*Line, 0, len(inputs))
	for idx, input := range inputs {
		line := &Line{
			ID:          s.id(),
			Description: strings.TrimSpace(input.Description),
			Quantity:    input.Quantity,
			Unit:        strings.TrimSpace(input.Unit),
			Position:    idx + 1,
		}
		if input.ProductID != nil && *input.ProductID != uuid.Nil {
			product, err := s.product(ctx, tenantID, *input.ProductID)
			if err != nil {
				return nil, err
			}
			id := product.ID
			line.ProductID = &id
			if line.Description == "" {
				line.Description = product.Name
			}
			if line.Unit == "" {
				line.Unit = string(product.Unit)
			}
			line.UnitPrice = product.UnitPrice
			line.Taxable = product.Taxable
		}
		if input.UnitPrice != nil {
			line.UnitPrice = *input.UnitPrice
		}
		if input.Taxable != nil {
			line.Taxable = *input.Taxable
		}
		if line.Description == "" {
			return nil, fmt.Errorf("line %d: %w", idx+1, ErrLineDescriptionMissing)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("line %d: %w", idx+1, ErrQuantityInvalid)
		}
		if line.UnitPrice < 0 {
			return nil, fmt.Errorf("line %d: %w", idx+1, ErrUnitPriceNegative)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *service) product(ctx context.Context, tenantID, id uuid.UUID) (*products.Product, error) {
	if s.products == nil {
		return nil, ErrProductNotFound
	}
	product, err := s.products.GetByID(ctx, tenantID, id)
	if err != nil {
		var notFound *products.NotFoundError
		if errors.As(err, &notFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if !product.Active {
		return nil, ErrProductInactive
	}
	return product, nil
}

func (s *service) emitActivity(ctx context.Context, verb string, record *Invoice, meta map[string]any) {
	if s.activity == nil || !s.activity.Enabled() || record == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["number"] = record.Number
	meta["status"] = string(record.Status)
	meta["total"] = record.Total
	meta["client_id"] = record.ClientID.String()
	meta[tenancy.RecordMetadataKey] = cloneInvoice(record)
	if err := s.activity.Emit(ctx, tenancy.ActivityEvent(ctx, verb, "invoice", record.ID, meta)); err != nil {
		s.logger.Warn("invoice.activity.emit_failed", "error", err)
	}
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
