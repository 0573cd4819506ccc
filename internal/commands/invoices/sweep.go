package invoicescmd

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-contractor/internal/commands"
	"github.com/goliatone/go-contractor/internal/invoices"
	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	command "github.com/goliatone/go-command"
	"github.com/google/uuid"
)

const (
	sweepOverdueMessageType = "invoices.overdue.sweep"
	sweepOperation          = "invoices.overdue_sweep"

	// DefaultSweepCron runs the sweep hourly; invoices flip on the first run
	// after their due day ends.
	DefaultSweepCron = "@hourly"
)

var _ command.Commander[SweepOverdueCommand] = (*SweepOverdueHandler)(nil)

// TenantLister enumerates tenants for sweeps that are not pinned to one.
type TenantLister interface {
	List(ctx context.Context) ([]*tenancy.Tenant, error)
}

// OverdueSweeper marks the context tenant's past-due invoices overdue.
type OverdueSweeper interface {
	MarkOverdue(ctx context.Context, asOf time.Time) ([]*invoices.Invoice, error)
}

// SweepOverdueCommand flips sent and partially paid invoices past their due
// date to overdue. A zero TenantID sweeps every tenant; a nil AsOf uses now.
type SweepOverdueCommand struct {
	TenantID uuid.UUID  `json:"tenant_id,omitempty"`
	AsOf     *time.Time `json:"as_of,omitempty"`
}

// Type implements command.Message.
func (SweepOverdueCommand) Type() string { return sweepOverdueMessageType }

// Validate rejects zero-valued AsOf pointers.
func (m SweepOverdueCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.AsOf, validation.By(func(any) error {
			if m.AsOf != nil && m.AsOf.IsZero() {
				return validation.NewError("invoices.overdue.sweep.as_of_invalid", "as_of must be a valid timestamp")
			}
			return nil
		})),
	)
}

// SweepOverdueHandler runs the overdue sweep across tenants.
type SweepOverdueHandler struct {
	inner      *commands.Handler[SweepOverdueCommand]
	cronConfig command.HandlerConfig
}

// SweepOption customises the sweep handler.
type SweepOption func(*sweepConfig)

type sweepConfig struct {
	expression string
	now        func() time.Time
	opts       []commands.HandlerOption[SweepOverdueCommand]
}

// SweepWithCronExpression overrides the cron expression.
func SweepWithCronExpression(expression string) SweepOption {
	return func(cfg *sweepConfig) {
		if trimmed := strings.TrimSpace(expression); trimmed != "" {
			cfg.expression = trimmed
		}
	}
}

// SweepWithClock overrides the clock used when AsOf is omitted.
func SweepWithClock(now func() time.Time) SweepOption {
	return func(cfg *sweepConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

// SweepWithHandlerOptions forwards options to the shared handler.
func SweepWithHandlerOptions(opts ...commands.HandlerOption[SweepOverdueCommand]) SweepOption {
	return func(cfg *sweepConfig) {
		cfg.opts = append(cfg.opts, opts...)
	}
}

// NewSweepOverdueHandler constructs the sweep handler.
func NewSweepOverdueHandler(tenants TenantLister, sweeper OverdueSweeper, logger interfaces.Logger, opts ...SweepOption) *SweepOverdueHandler {
	baseLogger := commands.EnsureLogger(logger)
	cfg := sweepConfig{expression: DefaultSweepCron, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	exec := func(ctx context.Context, msg SweepOverdueCommand) error {
		asOf := cfg.now()
		if msg.AsOf != nil {
			asOf = *msg.AsOf
		}
		targets := []uuid.UUID{msg.TenantID}
		if msg.TenantID == uuid.Nil {
			if tenants == nil {
				return errors.New("invoices sweep: tenant lister is nil")
			}
			list, err := tenants.List(ctx)
			if err != nil {
				return err
			}
			targets = targets[:0]
			for _, tenant := range list {
				targets = append(targets, tenant.ID)
			}
		}

		var errs []error
		total := 0
		for _, tenantID := range targets {
			marked, err := sweeper.MarkOverdue(tenancy.WithTenant(ctx, tenantID), asOf)
			if err != nil {
				errs = append(errs, err)
				baseLogger.Warn("invoices.command.sweep.tenant_failed", "tenant_id", tenantID, "error", err)
				continue
			}
			total += len(marked)
		}
		logging.WithFields(baseLogger, map[string]any{
			"tenants": len(targets),
			"marked":  total,
			"as_of":   asOf.UTC().Format(time.RFC3339),
		}).Info("invoices.command.sweep.completed")
		return errors.Join(errs...)
	}

	handlerOpts := []commands.HandlerOption[SweepOverdueCommand]{
		commands.WithLogger[SweepOverdueCommand](baseLogger),
		commands.WithOperation[SweepOverdueCommand](sweepOperation),
		commands.WithMessageFields(func(msg SweepOverdueCommand) map[string]any {
			fields := map[string]any{}
			if msg.TenantID != uuid.Nil {
				fields["tenant_id"] = msg.TenantID
			}
			return fields
		}),
	}
	handlerOpts = append(handlerOpts, cfg.opts...)

	return &SweepOverdueHandler{
		inner:      commands.NewHandler(exec, handlerOpts...),
		cronConfig: command.HandlerConfig{Expression: cfg.expression},
	}
}

// Execute satisfies command.Commander[SweepOverdueCommand].
func (h *SweepOverdueHandler) Execute(ctx context.Context, msg SweepOverdueCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CronHandler sweeps every tenant as of the current time.
func (h *SweepOverdueHandler) CronHandler() func() error {
	return commands.CronHandler[SweepOverdueCommand](h, SweepOverdueCommand{})
}

func (h *SweepOverdueHandler) CronOptions() command.HandlerConfig {
	return h.cronConfig
}

func (h *SweepOverdueHandler) CLIHandler() any {
	return h
}

func (h *SweepOverdueHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"invoices", "sweep-overdue"},
		Group:       "invoices",
		Description: "Mark past-due invoices overdue for one or all tenants",
	}
}
