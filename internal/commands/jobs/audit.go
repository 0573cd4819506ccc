package jobscmd

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-contractor/internal/commands"
	"github.com/goliatone/go-contractor/internal/jobs"
	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

const (
	exportAuditMessageType  = "jobs.audit.export"
	cleanupAuditMessageType = "jobs.audit.cleanup"
)

// AuditLog exposes the recorded worker audit trail.
type AuditLog interface {
	List(ctx context.Context) ([]jobs.AuditEvent, error)
	Clear(ctx context.Context) error
}

// ExportAuditCommand writes recorded audit events through the logger.
type ExportAuditCommand struct {
	MaxRecords *int `json:"max_records,omitempty"`
}

// Type implements command.Message.
func (ExportAuditCommand) Type() string { return exportAuditMessageType }

// Validate ensures the command payload is well-formed.
func (m ExportAuditCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.MaxRecords, validation.By(func(value any) error {
			if m.MaxRecords == nil {
				return nil
			}
			if *m.MaxRecords < 0 {
				return validation.NewError("jobs.audit.export.max_records_invalid", "max_records must be zero or positive")
			}
			return nil
		})),
	)
}

// CleanupAuditCommand removes recorded audit events. DryRun only reports the count.
type CleanupAuditCommand struct {
	DryRun bool `json:"dry_run,omitempty"`
}

// Type implements command.Message.
func (CleanupAuditCommand) Type() string { return cleanupAuditMessageType }

// Validate satisfies command.Message.
func (CleanupAuditCommand) Validate() error {
	return validation.ValidateStruct(&CleanupAuditCommand{})
}

// AuditHandlers groups the export and cleanup handlers over one audit log.
type AuditHandlers struct {
	Export  *commands.Handler[ExportAuditCommand]
	Cleanup *commands.Handler[CleanupAuditCommand]
}

// NewAuditHandlers builds both audit handlers.
func NewAuditHandlers(log AuditLog, logger interfaces.Logger, timeout time.Duration) AuditHandlers {
	baseLogger := commands.EnsureLogger(logger)
	if timeout <= 0 {
		timeout = commands.DefaultCommandTimeout
	}

	export := func(ctx context.Context, msg ExportAuditCommand) error {
		events, err := log.List(ctx)
		if err != nil {
			return err
		}
		limit := len(events)
		if msg.MaxRecords != nil && *msg.MaxRecords < limit {
			limit = *msg.MaxRecords
		}
		for idx := 0; idx < limit; idx++ {
			event := events[idx]
			logging.WithFields(baseLogger, map[string]any{
				"index":       idx,
				"entity_type": event.EntityType,
				"entity_id":   event.EntityID,
				"action":      event.Action,
				"occurred_at": event.OccurredAt.Format(time.RFC3339),
				"metadata":    event.Metadata,
			}).Debug("jobs.command.audit.event")
		}
		logging.WithFields(baseLogger, map[string]any{
			"exported": limit,
			"total":    len(events),
		}).Info("jobs.command.audit.export.completed")
		return nil
	}

	cleanup := func(ctx context.Context, msg CleanupAuditCommand) error {
		events, err := log.List(ctx)
		if err != nil {
			return err
		}
		if msg.DryRun {
			logging.WithFields(baseLogger, map[string]any{
				"dry_run":        true,
				"existing_count": len(events),
			}).Debug("jobs.command.audit.cleanup.dry_run")
			return nil
		}
		if err := log.Clear(ctx); err != nil {
			return err
		}
		logging.WithFields(baseLogger, map[string]any{
			"removed": len(events),
		}).Info("jobs.command.audit.cleanup.removed")
		return nil
	}

	return AuditHandlers{
		Export: commands.NewHandler(export,
			commands.WithLogger[ExportAuditCommand](baseLogger),
			commands.WithOperation[ExportAuditCommand]("jobs.audit.export"),
			commands.WithTimeout[ExportAuditCommand](timeout),
		),
		Cleanup: commands.NewHandler(cleanup,
			commands.WithLogger[CleanupAuditCommand](baseLogger),
			commands.WithOperation[CleanupAuditCommand]("jobs.audit.cleanup"),
			commands.WithTimeout[CleanupAuditCommand](timeout),
		),
	}
}

var (
	_ command.Commander[ExportAuditCommand]  = (*commands.Handler[ExportAuditCommand])(nil)
	_ command.Commander[CleanupAuditCommand] = (*commands.Handler[CleanupAuditCommand])(nil)
)
