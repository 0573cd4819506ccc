package activitycmd

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-contractor/internal/commands"
	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

const (
	pruneMessageType = "activity.prune"

	DefaultPruneCron     = "@daily"
	DefaultRetentionDays = 365
)

var _ command.Commander[PruneActivityCommand] = (*PruneActivityHandler)(nil)

// Pruner removes activity entries older than the retention window.
type Pruner interface {
	Prune(ctx context.Context, retention time.Duration) (int, error)
}

// PruneActivityCommand deletes activity entries older than RetentionDays.
// Zero falls back to the handler default.
type PruneActivityCommand struct {
	RetentionDays int `json:"retention_days,omitempty"`
}

// Type implements command.Message.
func (PruneActivityCommand) Type() string { return pruneMessageType }

func (m PruneActivityCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.RetentionDays, validation.Min(0)),
	)
}

// PruneActivityHandler applies the activity retention policy.
type PruneActivityHandler struct {
	inner      *commands.Handler[PruneActivityCommand]
	cronConfig command.HandlerConfig
	retention  int
}

// PruneOption customises the prune handler.
type PruneOption func(*PruneActivityHandler)

func PruneWithCronExpression(expression string) PruneOption {
	return func(h *PruneActivityHandler) {
		if trimmed := strings.TrimSpace(expression); trimmed != "" {
			h.cronConfig.Expression = trimmed
		}
	}
}

// PruneWithRetentionDays sets the default used when the message omits one.
func PruneWithRetentionDays(days int) PruneOption {
	return func(h *PruneActivityHandler) {
		if days > 0 {
			h.retention = days
		}
	}
}

func NewPruneActivityHandler(pruner Pruner, logger interfaces.Logger, opts ...PruneOption) *PruneActivityHandler {
	baseLogger := commands.EnsureLogger(logger)
	h := &PruneActivityHandler{
		cronConfig: command.HandlerConfig{Expression: DefaultPruneCron},
		retention:  DefaultRetentionDays,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	exec := func(ctx context.Context, msg PruneActivityCommand) error {
		days := msg.RetentionDays
		if days == 0 {
			days = h.retention
		}
		removed, err := pruner.Prune(ctx, time.Duration(days)*24*time.Hour)
		if err != nil {
			return err
		}
		logging.WithFields(baseLogger, map[string]any{
			"retention_days": days,
			"removed":        removed,
		}).Info("activity.command.prune.completed")
		return nil
	}

	h.inner = commands.NewHandler(exec,
		commands.WithLogger[PruneActivityCommand](baseLogger),
		commands.WithOperation[PruneActivityCommand]("activity.prune"),
	)
	return h
}

func (h *PruneActivityHandler) Execute(ctx context.Context, msg PruneActivityCommand) error {
	return h.inner.Execute(ctx, msg)
}

func (h *PruneActivityHandler) CronHandler() func() error {
	return commands.CronHandler[PruneActivityCommand](h, PruneActivityCommand{})
}

func (h *PruneActivityHandler) CronOptions() command.HandlerConfig {
	return h.cronConfig
}

func (h *PruneActivityHandler) CLIHandler() any {
	return h
}

func (h *PruneActivityHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"activity", "prune"},
		Group:       "activity",
		Description: "Delete activity log entries older than the retention window",
	}
}
