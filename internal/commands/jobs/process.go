package jobscmd

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-contractor/internal/commands"
	"github.com/goliatone/go-contractor/internal/jobs"
	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

const (
	processJobsMessageType = "jobs.process"
	processOperation       = "jobs.process"

	// DefaultProcessCron polls the scheduler once a minute.
	DefaultProcessCron = "@every 1m"
)

var _ command.Commander[ProcessJobsCommand] = (*ProcessJobsHandler)(nil)

// Worker exposes the subset of jobs.Worker behaviour required by the commands.
type Worker interface {
	Process(ctx context.Context) (jobs.ProcessResult, error)
}

// ProcessJobsCommand drains due scheduler jobs through the worker.
type ProcessJobsCommand struct{}

// Type implements command.Message.
func (ProcessJobsCommand) Type() string { return processJobsMessageType }

// Validate satisfies command.Message.
func (ProcessJobsCommand) Validate() error {
	return validation.ValidateStruct(&ProcessJobsCommand{})
}

// ProcessJobsHandler runs pending scheduler jobs via the supplied worker.
type ProcessJobsHandler struct {
	inner      *commands.Handler[ProcessJobsCommand]
	cronConfig command.HandlerConfig
}

// ProcessOption customises the process handler.
type ProcessOption func(*ProcessJobsHandler)

// ProcessWithCronExpression overrides the cron expression.
func ProcessWithCronExpression(expression string) ProcessOption {
	return func(h *ProcessJobsHandler) {
		if trimmed := strings.TrimSpace(expression); trimmed != "" {
			h.cronConfig.Expression = trimmed
		}
	}
}

// NewProcessJobsHandler constructs a handler that delegates to the provided worker instance.
func NewProcessJobsHandler(worker Worker, logger interfaces.Logger, opts ...ProcessOption) *ProcessJobsHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, _ ProcessJobsCommand) error {
		result, err := worker.Process(ctx)
		if err != nil {
			return err
		}
		if result.Processed > 0 || result.Failed > 0 {
			logging.WithFields(baseLogger, map[string]any{
				"processed": result.Processed,
				"failed":    result.Failed,
			}).Info("jobs.command.process.completed")
		}
		return nil
	}

	h := &ProcessJobsHandler{
		cronConfig: command.HandlerConfig{Expression: DefaultProcessCron},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	h.inner = commands.NewHandler(exec,
		commands.WithLogger[ProcessJobsCommand](baseLogger),
		commands.WithOperation[ProcessJobsCommand](processOperation),
	)
	return h
}

// Execute satisfies command.Commander[ProcessJobsCommand].
func (h *ProcessJobsHandler) Execute(ctx context.Context, msg ProcessJobsCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CronHandler binds processing to a cron runner.
func (h *ProcessJobsHandler) CronHandler() func() error {
	return commands.CronHandler[ProcessJobsCommand](h, ProcessJobsCommand{})
}

// CronOptions returns the configured cron metadata.
func (h *ProcessJobsHandler) CronOptions() command.HandlerConfig {
	return h.cronConfig
}

// CLIHandler exposes the handler to CLI integrations.
func (h *ProcessJobsHandler) CLIHandler() any {
	return h
}

func (h *ProcessJobsHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"jobs", "process"},
		Group:       "jobs",
		Description: "Run due scheduled jobs (post publishing, overdue sweeps)",
	}
}
