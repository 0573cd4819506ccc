package commands

import (
	"context"
	"maps"
	"time"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/pkg/interfaces"
)

// DefaultCommandTimeout bounds a single handler execution.
const DefaultCommandTimeout = 30 * time.Second

// EnsureLogger substitutes a no-op logger for nil.
func EnsureLogger(logger interfaces.Logger) interfaces.Logger {
	if logger == nil {
		return logging.NoOp()
	}
	return logger
}

type HandlerOption[T command.Message] func(*Handler[T])

// Handler adapts a command.CommandFunc into a go-command Commander. Every
// run validates the message, applies the timeout, logs with the command
// fields and tags errors with a go-errors category.
type Handler[T command.Message] struct {
	exec      command.CommandFunc[T]
	logger    interfaces.Logger
	timeout   time.Duration
	operation string
	fields    func(T) map[string]any
	telemetry Telemetry[T]
}

func NewHandler[T command.Message](fn command.CommandFunc[T], opts ...HandlerOption[T]) *Handler[T] {
	if fn == nil {
		panic("commands: handler function cannot be nil")
	}
	h := &Handler[T]{exec: fn, logger: logging.NoOp(), timeout: DefaultCommandTimeout}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler[T]) Execute(ctx context.Context, msg T) error {
	if err := command.ValidateMessage(msg); err != nil {
		return failedValidation.tag(err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return contextFailure(err).tag(err)
	}

	name := command.GetMessageType(msg)
	fields := h.logFields(name, msg)
	logger := logging.WithFields(h.logger, fields)
	logger.Debug("command.execute.start")

	started := time.Now()
	status, err := h.run(ctx, msg)

	if h.telemetry != nil {
		h.telemetry(ctx, msg, TelemetryInfo{
			Command:   name,
			Operation: h.operation,
			Fields:    fields,
			Duration:  time.Since(started),
			Error:     err,
			Status:    status,
			Logger:    logger,
		})
		return err
	}
	switch status {
	case TelemetryStatusSuccess:
		logger.Info("command.execute.success")
	case TelemetryStatusContextError:
		logger.Error("command.execute.context_error", "error", err)
	default:
		logger.Error("command.execute.failed", "error", err)
	}
	return err
}

// run reports a context error when the handler returns nil after its
// deadline passed.
func (h *Handler[T]) run(ctx context.Context, msg T) (TelemetryStatus, error) {
	err := h.exec(ctx, msg)
	switch {
	case err != nil && isContextError(err):
		return TelemetryStatusContextError, contextFailure(err).tag(err)
	case err != nil:
		return TelemetryStatusFailed, failedExecution.tag(err)
	case ctx.Err() != nil:
		return TelemetryStatusContextError, contextFailure(ctx.Err()).tag(ctx.Err())
	}
	return TelemetryStatusSuccess, nil
}

func (h *Handler[T]) logFields(name string, msg T) map[string]any {
	fields := map[string]any{"command": name}
	if h.operation != "" {
		fields["operation"] = h.operation
	}
	if h.fields != nil {
		maps.Copy(fields, h.fields(msg))
	}
	return fields
}

// WithTimeout overrides DefaultCommandTimeout. Zero or negative disables it.
func WithTimeout[T command.Message](timeout time.Duration) HandlerOption[T] {
	return func(h *Handler[T]) { h.timeout = max(timeout, 0) }
}

func WithLogger[T command.Message](logger interfaces.Logger) HandlerOption[T] {
	return func(h *Handler[T]) { h.logger = EnsureLogger(logger) }
}

// WithOperation names the operation on every log entry.
func WithOperation[T command.Message](operation string) HandlerOption[T] {
	return func(h *Handler[T]) { h.operation = operation }
}

func WithMessageFields[T command.Message](fn func(T) map[string]any) HandlerOption[T] {
	return func(h *Handler[T]) { h.fields = fn }
}

// WithTelemetry replaces the built-in outcome logging with fn.
func WithTelemetry[T command.Message](fn Telemetry[T]) HandlerOption[T] {
	return func(h *Handler[T]) { h.telemetry = fn }
}
