package exportscmd

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-contractor/internal/commands"
	"github.com/goliatone/go-contractor/internal/exports"
	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	command "github.com/goliatone/go-command"
	"github.com/google/uuid"
)

const generateMessageType = "exports.generate"

var _ command.Commander[GenerateExportCommand] = (*GenerateExportHandler)(nil)

// Generator produces a stored export for the context tenant.
type Generator interface {
	Generate(ctx context.Context, kind exports.Kind) (*exports.Result, error)
}

// GenerateExportCommand writes a CSV export for TenantID to the object store.
type GenerateExportCommand struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Kind     string    `json:"kind"`
}

func (GenerateExportCommand) Type() string { return generateMessageType }

func (m GenerateExportCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.TenantID, validation.By(func(value any) error {
			if value.(uuid.UUID) == uuid.Nil {
				return validation.NewError("exports.generate.tenant_required", "tenant_id is required")
			}
			return nil
		})),
		validation.Field(&m.Kind, validation.Required, validation.By(func(value any) error {
			if _, err := exports.ParseKind(value.(string)); err != nil {
				return validation.NewError("exports.generate.kind_invalid", "kind must be one of invoices, expenses, clients, activity")
			}
			return nil
		})),
	)
}

// GenerateExportHandler runs exports outside of an HTTP request.
type GenerateExportHandler struct {
	inner *commands.Handler[GenerateExportCommand]
	last  *exports.Result
}

func NewGenerateExportHandler(generator Generator, logger interfaces.Logger, opts ...commands.HandlerOption[GenerateExportCommand]) *GenerateExportHandler {
	baseLogger := commands.EnsureLogger(logger)
	h := &GenerateExportHandler{}

	exec := func(ctx context.Context, msg GenerateExportCommand) error {
		kind, err := exports.ParseKind(msg.Kind)
		if err != nil {
			return err
		}
		result, err := generator.Generate(tenancy.WithTenant(ctx, msg.TenantID), kind)
		if err != nil {
			return err
		}
		h.last = result
		logging.WithFields(baseLogger, map[string]any{
			"key":  result.Key,
			"rows": result.Rows,
			"size": result.Size,
		}).Info("exports.command.generate.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[GenerateExportCommand]{
		commands.WithLogger[GenerateExportCommand](baseLogger),
		commands.WithOperation[GenerateExportCommand]("exports.generate"),
		commands.WithMessageFields(func(msg GenerateExportCommand) map[string]any {
			return map[string]any{"tenant_id": msg.TenantID, "kind": msg.Kind}
		}),
	}
	h.inner = commands.NewHandler(exec, append(handlerOpts, opts...)...)
	return h
}

func (h *GenerateExportHandler) Execute(ctx context.Context, msg GenerateExportCommand) error {
	return h.inner.Execute(ctx, msg)
}

// Last returns the result of the most recent successful run.
func (h *GenerateExportHandler) Last() *exports.Result {
	return h.last
}

func (h *GenerateExportHandler) CLIHandler() any {
	return h
}

func (h *GenerateExportHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"exports", "generate"},
		Group:       "exports",
		Description: "Generate a CSV export for a tenant",
	}
}
