package invoices_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-contractor/internal/clients"
	"github.com/goliatone/go-contractor/internal/invoices"
	"github.com/goliatone/go-contractor/internal/products"
	"github.com/goliatone/go-contractor/internal/projects"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/google/uuid"
)

type fixture struct {
	ctx      context.Context
	tenantID uuid.UUID
	client   *clients.Client
	tenants  *tenancy.MemoryRepository
	clients  *clients.MemoryRepository
	products *products.MemoryRepository
	projects *projects.MemoryRepository
	capture  *activity.CaptureHook
	now      time.Time
	service  invoices.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		tenantID: uuid.New(),
		tenants:  tenancy.NewMemoryRepository(),
		clients:  clients.NewMemoryRepository(),
		products: products.NewMemoryRepository(),
		projects: projects.NewMemoryRepository(),
		capture:  &activity.CaptureHook{},
		now:      time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC),
	}
	fx.ctx = tenancy.WithTenant(context.Background(), fx.tenantID)

	if _, err := fx.tenants.Create(fx.ctx, &tenancy.Tenant{
		ID:                fx.tenantID,
		Name:              "Acme Builders",
		Slug:              "acme-builders",
		Currency:          "USD",
		InvoicePrefix:     "ACME",
		PaymentTermsDays:  15,
		DefaultTaxRateBps: 800,
	}); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	client, err := clients.NewService(fx.clients).Create(fx.ctx, clients.CreateClientInput{Name: "Jordan Lee"})
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	fx.client = client

	emitter := activity.NewEmitter(activity.Hooks{fx.capture}, activity.Config{Enabled: true})
	fx.service = invoices.NewService(
		invoices.NewMemoryRepository(),
		invoices.NewMemorySequencer(),
		fx.tenants,
		fx.clients,
		invoices.WithProducts(fx.products),
		invoices.WithProjects(fx.projects),
		invoices.WithActivityEmitter(emitter),
		invoices.WithClock(func() time.Time { return fx.now }),
	)
	return fx
}

func (fx *fixture) createDraft(t *testing.T, unitPrice int64) *invoices.Invoice {
	t.Helper()
	price := unitPrice
	inv, err := fx.service.Create(fx.ctx, invoices.CreateInvoiceInput{
		ClientID: fx.client.ID,
		Lines:    []invoices.LineInput{{Description: "Site visit", Quantity: 1, UnitPrice: &price}},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return inv
}

func TestServiceCreateAppliesTenantSettings(t *testing.T) {
	fx := newFixture(t)

	inv := fx.createDraft(t, 10000)

	if inv.Number != "ACME-2024-0001" {
		t.Fatalf("unexpected number %s", inv.Number)
	}
	if inv.Status != invoices.StatusDraft {
		t.Fatalf("expected draft, got %s", inv.Status)
	}
	wantDue := time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)
	if !inv.DueDate.Equal(wantDue) {
		t.Fatalf("expected due %s, got %s", wantDue, inv.DueDate)
	}
	if inv.TaxRateBps != 800 || inv.Total != 10000 {
		t.Fatalf("expected tax rate 800 and untaxed total 10000, got %d/%d", inv.TaxRateBps, inv.Total)
	}

	second := fx.createDraft(t, 500)
	if second.Number != "ACME-2024-0002" {
		t.Fatalf("expected sequential number, got %s", second.Number)
	}

	events := fx.capture.Snapshot()
	if len(events) != 2 || events[0].Verb != "created" || events[0].ObjectType != "invoice" {
		t.Fatalf("unexpected activity %+v", events)
	}
}

func TestServiceNumberingRestartsPerYearAndTenant(t *testing.T) {
	fx := newFixture(t)
	fx.createDraft(t, 100)

	issue := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	price := int64(100)
	next, err := fx.service.Create(fx.ctx, invoices.CreateInvoiceInput{
		ClientID:  fx.client.ID,
		IssueDate: &issue,
		Lines:     []invoices.LineInput{{Description: "Cleanup", Quantity: 1, UnitPrice: &price}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if next.Number != "ACME-2025-0001" {
		t.Fatalf("expected numbering to restart for 2025, got %s", next.Number)
	}
}

func TestServiceCreateCopiesProductDefaults(t *testing.T) {
	fx := newFixture(t)
	product, err := products.NewService(fx.products).Create(fx.ctx, products.CreateProductInput{
		Name:      "Drywall sheet",
		Unit:      "each",
		UnitPrice: 1250,
		Taxable:   true,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	inv, err := fx.service.Create(fx.ctx, invoices.CreateInvoiceInput{
		ClientID: fx.client.ID,
		Lines:    []invoices.LineInput{{ProductID: &product.ID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	line := inv.Lines[0]
	if line.Description != "Drywall sheet" || line.UnitPrice != 1250 || !line.Taxable || line.Amount != 5000 {
		t.Fatalf("expected product defaults on line, got %+v", line)
	}
	if inv.TaxTotal != 400 || inv.Total != 5400 {
		t.Fatalf("unexpected totals subtotal=%d tax=%d total=%d", inv.Subtotal, inv.TaxTotal, inv.Total)
	}
}

func TestServiceCreateValidatesReferences(t *testing.T) {
	fx := newFixture(t)
	price := int64(100)
	lines := []invoices.LineInput{{Description: "Item", Quantity: 1, UnitPrice: &price}}

	if _, err := fx.service.Create(fx.ctx, invoices.CreateInvoiceInput{ClientID: uuid.New(), Lines: lines}); !errors.Is(err, invoices.ErrClientRequired) {
		t.Fatalf("expected ErrClientRequired, got %v", err)
	}
	missing := uuid.New()
	if _, err := fx.service.Create(fx.ctx, invoices.CreateInvoiceInput{ClientID: fx.client.ID, ProjectID: &missing, Lines: lines}); !errors.Is(err, invoices.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
	if _, err := fx.service.Create(fx.ctx, invoices.CreateInvoiceInput{ClientID: fx.client.ID}); !errors.Is(err, invoices.ErrLinesRequired) {
		t.Fatalf("expected ErrLinesRequired, got %v", err)
	}
	zero := []invoices.LineInput{{Description: "Item", Quantity: 0, UnitPrice: &price}}
	if _, err := fx.service.Create(fx.ctx, invoices.CreateInvoiceInput{ClientID: fx.client.ID, Lines: zero}); !errors.Is(err, invoices.ErrQuantityInvalid) {
		t.Fatalf("expected ErrQuantityInvalid, got %v", err)
	}
	early := fx.now.AddDate(0, 0, -1)
	if _, err := fx.service.Create(fx.ctx, invoices.CreateInvoiceInput{ClientID: fx.client.ID, DueDate: &early, Lines: lines}); !errors.Is(err, invoices.ErrDueBeforeIssue) {
		t.Fatalf("expected ErrDueBeforeIssue, got %v", err)
	}
}

func TestServicePaymentLifecycle(t *testing.T) {
	fx := newFixture(t)
	inv := fx.createDraft(t, 10000)

	if _, err := fx.service.RecordPayment(fx.ctx, invoices.RecordPaymentInput{InvoiceID: inv.ID, Amount: 100}); !errors.Is(err, invoices.ErrNotPayable) {
		t.Fatalf("expected drafts to reject payments, got %v", err)
	}

	sent, err := fx.service.Send(fx.ctx, inv.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.Status != invoices.StatusSent || sent.SentAt == nil {
		t.Fatalf("expected sent invoice, got %+v", sent)
	}

	partial, err := fx.service.RecordPayment(fx.ctx, invoices.RecordPaymentInput{InvoiceID: inv.ID, Amount: 4000, Method: "check"})
	if err != nil {
		t.Fatalf("partial payment: %v", err)
	}
	if partial.Status != invoices.StatusPartiallyPaid || partial.AmountDue() != 6000 {
		t.Fatalf("expected partially paid with 6000 due, got %s/%d", partial.Status, partial.AmountDue())
	}

	if _, err := fx.service.RecordPayment(fx.ctx, invoices.RecordPaymentInput{InvoiceID: inv.ID, Amount: 6001}); !errors.Is(err, invoices.ErrPaymentExceedsDue) {
		t.Fatalf("expected ErrPaymentExceedsDue, got %v", err)
	}
	if _, err := fx.service.RecordPayment(fx.ctx, invoices.RecordPaymentInput{InvoiceID: inv.ID, Amount: 0}); !errors.Is(err, invoices.ErrPaymentAmountInvalid) {
		t.Fatalf("expected ErrPaymentAmountInvalid, got %v", err)
	}

	paid, err := fx.service.RecordPayment(fx.ctx, invoices.RecordPaymentInput{InvoiceID: inv.ID, Amount: 6000})
	if err != nil {
		t.Fatalf("final payment: %v", err)
	}
	if paid.Status != invoices.StatusPaid || paid.PaidAt == nil || len(paid.Payments) != 2 {
		t.Fatalf("expected paid invoice with two payments, got %+v", paid)
	}
	if _, err := fx.service.Void(fx.ctx, inv.ID, "duplicate"); !errors.Is(err, invoices.ErrTransitionInvalid) {
		t.Fatalf("expected paid invoice to be final, got %v", err)
	}
}

type slowReads struct {
	*invoices.MemoryRepository
	delay time.Duration
}

func (r slowReads) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*invoices.Invoice, error) {
	record, err := r.MemoryRepository.GetByID(ctx, tenantID, id)
	time.Sleep(r.delay)
	return record, err
}

func TestServiceConcurrentPaymentsCannotOverpay(t *testing.T) {
	fx := newFixture(t)
	repo := slowReads{MemoryRepository: invoices.NewMemoryRepository(), delay: 5 * time.Millisecond}
	svc := invoices.NewService(repo, invoices.NewMemorySequencer(), fx.tenants, fx.clients,
		invoices.WithClock(func() time.Time { return fx.now }),
	)
	price := int64(10000)
	inv, err := svc.Create(fx.ctx, invoices.CreateInvoiceInput{
		ClientID: fx.client.ID,
		Lines:    []invoices.LineInput{{Description: "Framing", Quantity: 1, UnitPrice: &price}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sent, err := svc.Send(fx.ctx, inv.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	const payers = 8
	results := make(chan error, payers)
	var wg sync.WaitGroup
	for range payers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordPayment(fx.ctx, invoices.RecordPaymentInput{InvoiceID: sent.ID, Amount: sent.Total})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	for err := range results {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, invoices.ErrNotPayable),
			errors.Is(err, invoices.ErrPaymentExceedsDue),
			errors.Is(err, invoices.ErrConcurrentUpdate):
		default:
			t.Fatalf("unexpected payment error: %v", err)
		}
	}
	if accepted != 1 {
		t.Fatalf("expected exactly one accepted payment, got %d", accepted)
	}

	got, err := svc.Get(fx.ctx, sent.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AmountPaid != sent.Total || len(got.Payments) != 1 || got.Status != invoices.StatusPaid {
		t.Fatalf("expected a single payment settling the invoice, got paid=%d payments=%d status=%s", got.AmountPaid, len(got.Payments), got.Status)
	}
}

func TestMemoryRepositoryRejectsStaleUpdate(t *testing.T) {
	fx := newFixture(t)
	repo := invoices.NewMemoryRepository()
	created, err := repo.Create(fx.ctx, &invoices.Invoice{ID: uuid.New(), TenantID: fx.tenantID, Number: "ACME-2024-0001", Status: invoices.StatusSent, Total: 500})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	stale := *created

	created.AmountPaid = 500
	saved, err := repo.Update(fx.ctx, created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if saved.Version != created.Version+1 {
		t.Fatalf("expected version to advance, got %d", saved.Version)
	}

	stale.Status = invoices.StatusVoid
	if _, err := repo.Update(fx.ctx, &stale); !errors.Is(err, invoices.ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate for a stale write, got %v", err)
	}
}

func TestServiceDraftOnlyEdits(t *testing.T) {
	fx := newFixture(t)
	inv := fx.createDraft(t, 2000)

	discount := int64(500)
	updated, err := fx.service.Update(fx.ctx, invoices.UpdateInvoiceInput{ID: inv.ID, Discount: &discount})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Total != 1500 {
		t.Fatalf("expected totals recomputed, got %d", updated.Total)
	}

	if _, err := fx.service.Send(fx.ctx, inv.ID); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := fx.service.Update(fx.ctx, invoices.UpdateInvoiceInput{ID: inv.ID, Discount: &discount}); !errors.Is(err, invoices.ErrNotDraft) {
		t.Fatalf("expected ErrNotDraft on update, got %v", err)
	}
	if err := fx.service.Delete(fx.ctx, inv.ID); !errors.Is(err, invoices.ErrNotDraft) {
		t.Fatalf("expected ErrNotDraft on delete, got %v", err)
	}

	draft := fx.createDraft(t, 100)
	if err := fx.service.Delete(fx.ctx, draft.ID); err != nil {
		t.Fatalf("delete draft: %v", err)
	}
	var notFound *invoices.NotFoundError
	if _, err := fx.service.Get(fx.ctx, draft.ID); !errors.As(err, &notFound) {
		t.Fatalf("expected deleted draft to be gone, got %v", err)
	}
}

func TestServiceMarkOverdue(t *testing.T) {
	fx := newFixture(t)
	late := fx.createDraft(t, 1000)
	fresh := fx.createDraft(t, 1000)
	if _, err := fx.service.Send(fx.ctx, late.ID); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := fx.service.Send(fx.ctx, fresh.ID); err != nil {
		t.Fatalf("send: %v", err)
	}
	dueDay := late.DueDate
	marked, err := fx.service.MarkOverdue(fx.ctx, dueDay)
	if err != nil {
		t.Fatalf("mark overdue on due day: %v", err)
	}
	if len(marked) != 0 {
		t.Fatalf("expected nothing overdue on the due day, got %d", len(marked))
	}

	marked, err = fx.service.MarkOverdue(fx.ctx, dueDay.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("mark overdue: %v", err)
	}
	if len(marked) != 2 {
		t.Fatalf("expected both invoices overdue, got %d", len(marked))
	}
	got, err := fx.service.Get(fx.ctx, late.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != invoices.StatusOverdue {
		t.Fatalf("expected overdue, got %s", got.Status)
	}

	paid, err := fx.service.RecordPayment(fx.ctx, invoices.RecordPaymentInput{InvoiceID: late.ID, Amount: 1000})
	if err != nil {
		t.Fatalf("pay overdue: %v", err)
	}
	if paid.Status != invoices.StatusPaid {
		t.Fatalf("expected overdue invoice to become paid, got %s", paid.Status)
	}
}

func TestServiceTenantIsolation(t *testing.T) {
	fx := newFixture(t)
	inv := fx.createDraft(t, 1000)
	other := tenancy.WithTenant(context.Background(), uuid.New())

	var notFound *invoices.NotFoundError
	if _, err := fx.service.Get(other, inv.ID); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError across tenants, got %v", err)
	}
	if _, err := fx.service.GetByNumber(other, inv.Number); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for number across tenants, got %v", err)
	}
	if _, err := fx.service.Get(context.Background(), inv.ID); !errors.Is(err, tenancy.ErrTenantRequired) {
		t.Fatalf("expected ErrTenantRequired, got %v", err)
	}
}
