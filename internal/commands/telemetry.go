package commands

import (
	"context"
	"time"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-contractor/pkg/interfaces"
)

// TelemetryStatus is the outcome reported for one command execution.
type TelemetryStatus string

const (
	// TelemetryStatusSuccess means the command ran to completion.
	TelemetryStatusSuccess TelemetryStatus = "success"
	// TelemetryStatusFailed means the handler returned an error.
	TelemetryStatusFailed TelemetryStatus = "failed"
	// TelemetryStatusContextError means the context was canceled or its
	// deadline passed before the command finished.
	TelemetryStatusContextError TelemetryStatus = "context_error"
)

// TelemetryInfo is handed to a Telemetry callback once per execution. Error
// is already tagged and Logger carries the command fields.
type TelemetryInfo struct {
	Command   string
	Operation string
	Fields    map[string]any
	Duration  time.Duration
	Error     error
	Status    TelemetryStatus
	Logger    interfaces.Logger
}

type Telemetry[T command.Message] func(ctx context.Context, msg T, info TelemetryInfo)
