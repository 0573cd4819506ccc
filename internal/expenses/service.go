package expenses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/goliatone/go-contractor/internal/domain"
	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/internal/permissions"
	"github.com/goliatone/go-contractor/internal/projects"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	"github.com/google/uuid"
)

// MaxReceiptBytes bounds uploaded receipt files.
const MaxReceiptBytes = 10 << 20

var (
	ErrAmountInvalid       = errors.New("expenses: amount must be greater than zero")
	ErrCategoryInvalid     = errors.New("expenses: unknown category")
	ErrIncurredOnRequired  = errors.New("expenses: incurred date is required")
	ErrProjectNotFound     = errors.New("expenses: project does not exist")
	ErrDateRangeInvalid    = errors.New("expenses: from date must not be after to date")
	ErrReceiptEmpty        = errors.New("expenses: receipt is empty")
	ErrReceiptTooLarge     = errors.New("expenses: receipt exceeds size limit")
	ErrReceiptType         = errors.New("expenses: receipt must be a PDF or image")
	ErrReceiptMissing      = errors.New("expenses: expense has no receipt")
	ErrReceiptStoreMissing = errors.New("expenses: receipt storage not configured")
)

// receiptTypes lists the accepted receipt MIME types.
var receiptTypes = []string{
	"application/pdf",
	"image/png",
	"image/jpeg",
	"image/webp",
	"image/heic",
}

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

type ProjectLookup interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*projects.Project, error)
}

// Service records job costs for the context tenant.
type Service interface {
	Create(ctx context.Context, input CreateExpenseInput) (*Expense, error)
	Get(ctx context.Context, id uuid.UUID) (*Expense, error)
	List(ctx context.Context, opts ListOptions) ([]*Expense, int, error)
	Update(ctx context.Context, input UpdateExpenseInput) (*Expense, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AttachReceipt(ctx context.Context, id uuid.UUID, data []byte) (*Expense, error)
	OpenReceipt(ctx context.Context, id uuid.UUID) (io.ReadCloser, *interfaces.Object, error)
}

type CreateExpenseInput struct {
	ProjectID    *uuid.UUID `json:"project_id"`
	Category     string     `json:"category"`
	Vendor       string     `json:"vendor"`
	Description  string     `json:"description"`
	Amount       int64      `json:"amount"`
	Currency     string     `json:"currency"`
	IncurredOn   time.Time  `json:"incurred_on"`
	Billable     bool       `json:"billable"`
	Reimbursable bool       `json:"reimbursable"`
}

type UpdateExpenseInput struct {
	ID           uuid.UUID  `json:"-"`
	ProjectID    *uuid.UUID `json:"project_id"`
	Category     *string    `json:"category"`
	Vendor       *string    `json:"vendor"`
	Description  *string    `json:"description"`
	Amount       *int64     `json:"amount"`
	IncurredOn   *time.Time `json:"incurred_on"`
	Billable     *bool      `json:"billable"`
	Reimbursable *bool      `json:"reimbursable"`
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

// WithReceiptStore enables receipt uploads.
func WithReceiptStore(store interfaces.ObjectStore) ServiceOption {
	return func(s *service) {
		s.receipts = store
	}
}

func WithCurrency(code string) ServiceOption {
	return func(s *service) {
		s.currency = domain.NormalizeCurrency(code)
	}
}

type service struct {
	repo     Repository
	projects ProjectLookup
	receipts interfaces.ObjectStore
	currency string
	now      func() time.Time
	id       func() uuid.UUID
	activity *activity.Emitter
	logger   interfaces.Logger
}

func NewService(repo Repository, projectLookup ProjectLookup, opts ...ServiceOption) Service {
	s := &service{
		repo:     repo,
		projects: projectLookup,
		currency: domain.DefaultCurrency,
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

func (s *service) Create(ctx context.Context, input CreateExpenseInput) (*Expense, error) {
	tenantID, err := s.scope(ctx, permissions.ActionCreate)
	if err != nil {
		return nil, err
	}
	category, err := parseCategory(input.Category)
	if err != nil {
		return nil, err
	}
	if input.Amount <= 0 {
		return nil, ErrAmountInvalid
	}
	if input.IncurredOn.IsZero() {
		return nil, ErrIncurredOnRequired
	}
	if err := s.checkProject(ctx, tenantID, input.ProjectID); err != nil {
		return nil, err
	}

	currency := s.currency
	if strings.TrimSpace(input.Currency) != "" {
		currency = domain.NormalizeCurrency(input.Currency)
	}
	now := s.now().UTC()
	actor := tenancy.ActorID(ctx)
	record := &Expense{
		ID:           s.id(),
		TenantID:     tenantID,
		ProjectID:    nonNil(input.ProjectID),
		Category:     category,
		Vendor:       strings.TrimSpace(input.Vendor),
		Description:  strings.TrimSpace(input.Description),
		Amount:       input.Amount,
		Currency:     currency,
		IncurredOn:   dateOnly(input.IncurredOn),
		Billable:     input.Billable,
		Reimbursable: input.Reimbursable,
		CreatedBy:    actor,
		UpdatedBy:    actor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	s.emitActivity(ctx, "created", created, nil)
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Expense, error) {
	tenantID, err := s.scope(ctx, permissions.ActionRead)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, tenantID, id)
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]*Expense, int, error) {
	tenantID, err := s.scope(ctx, permissions.ActionRead)
	if err != nil {
		return nil, 0, err
	}
	if opts.Category != "" && !opts.Category.Valid() {
		return nil, 0, ErrCategoryInvalid
	}
	if opts.From != nil && opts.To != nil && opts.From.After(*opts.To) {
		return nil, 0, ErrDateRangeInvalid
	}
	return s.repo.List(ctx, tenantID, opts)
}

func (s *service) Update(ctx context.Context, input UpdateExpenseInput) (*Expense, error) {
	tenantID, err := s.scope(ctx, permissions.ActionUpdate)
	if err != nil {
		return nil, err
	}
	record, err := s.repo.GetByID(ctx, tenantID, input.ID)
	if err != nil {
		return nil, err
	}
	if input.ProjectID != nil {
		if err := s.checkProject(ctx, tenantID, input.ProjectID); err != nil {
			return nil, err
		}
		record.ProjectID = nonNil(input.ProjectID)
	}
	if input.Category != nil {
		category, err := parseCategory(*input.Category)
		if err != nil {
			return nil, err
		}
		record.Category = category
	}
	if input.Vendor != nil {
		record.Vendor = strings.TrimSpace(*input.Vendor)
	}
	if input.Description != nil {
		record.Description = strings.TrimSpace(*input.Description)
	}
	if input.Amount != nil {
		if *input.Amount <= 0 {
			return nil, ErrAmountInvalid
		}
		record.Amount = *input.Amount
	}
	if input.IncurredOn != nil {
		if input.IncurredOn.IsZero() {
			return nil, ErrIncurredOnRequired
		}
		record.IncurredOn = dateOnly(*input.IncurredOn)
	}
	if input.Billable != nil {
		record.Billable = *input.Billable
	}
	if input.Reimbursable != nil {
		record.Reimbursable = *input.Reimbursable
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

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, err := s.scope(ctx, permissions.ActionDelete)
	if err != nil {
		return err
	}
	record, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	if record.ReceiptKey != "" && s.receipts != nil {
		if err := s.receipts.Delete(ctx, record.ReceiptKey); err != nil && !errors.Is(err, interfaces.ErrObjectNotFound) {
			s.logger.Warn("expense.receipt.delete_failed", "expense_id", id, "key", record.ReceiptKey, "error", err)
		}
	}
	s.emitActivity(ctx, "deleted", record, nil)
	return nil
}

// AttachReceipt stores the file and links it to the expense, replacing any
// previous receipt. The content type is sniffed from the bytes.
func (s *service) AttachReceipt(ctx context.Context, id uuid.UUID, data []byte) (*Expense, error) {
	tenantID, err := s.scope(ctx, permissions.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if s.receipts == nil {
		return nil, ErrReceiptStoreMissing
	}
	if len(data) == 0 {
		return nil, ErrReceiptEmpty
	}
	if len(data) > MaxReceiptBytes {
		return nil, ErrReceiptTooLarge
	}
	detected := mimetype.Detect(data)
	contentType, ok := acceptedReceiptType(detected)
	if !ok {
		return nil, fmt.Errorf("%w: detected %s", ErrReceiptType, detected.String())
	}

	record, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	key := ReceiptKey(tenantID, id, detected.Extension())
	if _, err := s.receipts.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, fmt.Errorf("store receipt: %w", err)
	}
	previous := record.ReceiptKey
	record.ReceiptKey = key
	record.ReceiptContentType = contentType
	record.UpdatedBy = tenancy.ActorID(ctx)
	record.UpdatedAt = s.now().UTC()

	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	if previous != "" && previous != key {
		if err := s.receipts.Delete(ctx, previous); err != nil && !errors.Is(err, interfaces.ErrObjectNotFound) {
			s.logger.Warn("expense.receipt.delete_failed", "expense_id", id, "key", previous, "error", err)
		}
	}
	s.logger.Info("expense.receipt.attached", "expense_id", id, "content_type", contentType, "size", len(data))
	s.emitActivity(ctx, "updated", updated, map[string]any{"receipt": key})
	return updated, nil
}

func (s *service) OpenReceipt(ctx context.Context, id uuid.UUID) (io.ReadCloser, *interfaces.Object, error) {
	tenantID, err := s.scope(ctx, permissions.ActionRead)
	if err != nil {
		return nil, nil, err
	}
	if s.receipts == nil {
		return nil, nil, ErrReceiptStoreMissing
	}
	record, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}
	if record.ReceiptKey == "" {
		return nil, nil, ErrReceiptMissing
	}
	return s.receipts.Get(ctx, record.ReceiptKey)
}

// ReceiptKey returns the object key used for an expense receipt.
func ReceiptKey(tenantID, expenseID uuid.UUID, ext string) string {
	return fmt.Sprintf("receipts/%s/%s%s", tenantID, expenseID, ext)
}

func acceptedReceiptType(detected *mimetype.MIME) (string, bool) {
	for _, allowed := range receiptTypes {
		if detected.Is(allowed) {
			return allowed, true
		}
	}
	return "", false
}

func (s *service) scope(ctx context.Context, action permissions.Action) (uuid.UUID, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceExpenses, action); err != nil {
		return uuid.Nil, err
	}
	return tenantID, nil
}

func (s *service) checkProject(ctx context.Context, tenantID uuid.UUID, projectID *uuid.UUID) error {
	if projectID == nil || *projectID == uuid.Nil {
		return nil
	}
	if s.projects == nil {
		return ErrProjectNotFound
	}
	if _, err := s.projects.GetByID(ctx, tenantID, *projectID); err != nil {
		var notFound *projects.NotFoundError
		if errors.As(err, &notFound) {
			return ErrProjectNotFound
		}
		return err
	}
	return nil
}

func (s *service) emitActivity(ctx context.Context, verb string, record *Expense, meta map[string]any) {
	if s.activity == nil || !s.activity.Enabled() || record == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["category"] = string(record.Category)
	meta["amount"] = record.Amount
	meta[tenancy.RecordMetadataKey] = cloneExpense(record)
	if err := s.activity.Emit(ctx, tenancy.ActivityEvent(ctx, verb, "expense", record.ID, meta)); err != nil {
		s.logger.Warn("expense.activity.emit_failed", "error", err)
	}
}

func parseCategory(raw string) (Category, error) {
	category := domain.ParseStatus[Category](raw)
	if category == "" {
		return CategoryOther, nil
	}
	if !category.Valid() {
		return "", ErrCategoryInvalid
	}
	return category, nil
}

func nonNil(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	copied := *id
	return &copied
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
