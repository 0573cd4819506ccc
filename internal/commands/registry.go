package commands

import (
	"context"

	command "github.com/goliatone/go-command"
)

// Registry is the minimal registration contract used when wiring handlers.
type Registry interface {
	RegisterCommand(handler any) error
}

// CronRegistrar matches the function signature used by go-command registries.
type CronRegistrar func(command.HandlerConfig, any) error

// CronHandler binds a handler and a fixed message to a cron-friendly closure.
func CronHandler[T command.Message](handler command.Commander[T], msg T) func() error {
	return func() error {
		return handler.Execute(context.Background(), msg)
	}
}

// RegisterCron registers handler under cfg. A nil registrar or empty
// expression is a no-op.
func RegisterCron[T command.Message](reg CronRegistrar, cfg command.HandlerConfig, handler command.Commander[T], msg T) error {
	if reg == nil || handler == nil || cfg.Expression == "" {
		return nil
	}
	return reg(cfg, CronHandler(handler, msg))
}
