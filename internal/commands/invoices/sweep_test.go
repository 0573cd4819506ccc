package invoicescmd_test

import (
	"context"
	"errors"
	"testing"
	"time"

	invoicescmd "github.com/goliatone/go-contractor/internal/commands/invoices"
	"github.com/goliatone/go-contractor/internal/invoices"
	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/google/uuid"
)

type stubTenants struct {
	tenants []*tenancy.Tenant
}

func (s stubTenants) List(context.Context) ([]*tenancy.Tenant, error) {
	return s.tenants, nil
}

type recordingSweeper struct {
	calls []uuid.UUID
	asOf  []time.Time
	fail  uuid.UUID
}

func (r *recordingSweeper) MarkOverdue(ctx context.Context, asOf time.Time) ([]*invoices.Invoice, error) {
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.calls = append(r.calls, tenantID)
	r.asOf = append(r.asOf, asOf)
	if tenantID == r.fail {
		return nil, errors.New("sweep failed")
	}
	return []*invoices.Invoice{{TenantID: tenantID}}, nil
}

func TestSweepOverdueCoversEveryTenant(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	sweeper := &recordingSweeper{}
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	handler := invoicescmd.NewSweepOverdueHandler(
		stubTenants{tenants: []*tenancy.Tenant{{ID: a}, {ID: b}}},
		sweeper,
		logging.NoOp(),
		invoicescmd.SweepWithClock(func() time.Time { return now }),
	)

	if err := handler.CronHandler()(); err != nil {
		t.Fatalf("cron sweep: %v", err)
	}
	if len(sweeper.calls) != 2 || sweeper.calls[0] != a || sweeper.calls[1] != b {
		t.Fatalf("expected both tenants swept, got %v", sweeper.calls)
	}
	if !sweeper.asOf[0].Equal(now) {
		t.Fatalf("expected clock time, got %s", sweeper.asOf[0])
	}
	if handler.CronOptions().Expression != invoicescmd.DefaultSweepCron {
		t.Fatalf("unexpected cron %q", handler.CronOptions().Expression)
	}
}

func TestSweepOverdueSingleTenantAndErrors(t *testing.T) {
	target := uuid.New()
	sweeper := &recordingSweeper{fail: target}
	handler := invoicescmd.NewSweepOverdueHandler(nil, sweeper, logging.NoOp())
	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	err := handler.Execute(context.Background(), invoicescmd.SweepOverdueCommand{TenantID: target, AsOf: &asOf})
	if err == nil {
		t.Fatalf("expected sweep error to propagate")
	}
	if len(sweeper.calls) != 1 || sweeper.calls[0] != target || !sweeper.asOf[0].Equal(asOf) {
		t.Fatalf("unexpected sweep calls %v %v", sweeper.calls, sweeper.asOf)
	}

	zero := time.Time{}
	if err := handler.Execute(context.Background(), invoicescmd.SweepOverdueCommand{AsOf: &zero}); err == nil {
		t.Fatalf("expected validation error for zero as_of")
	}
}
