package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// ErrFeatureDisabled is returned by handlers whose backing feature is switched off.
var ErrFeatureDisabled = errors.New("commands: feature disabled")

// FeatureDisabled wraps ErrFeatureDisabled for the named feature.
func FeatureDisabled(feature string) error {
	return goerrors.Wrap(ErrFeatureDisabled, goerrors.CategoryCommand, feature+" feature is disabled").
		WithTextCode("COMMAND_FEATURE_DISABLED")
}

type failure struct {
	category goerrors.Category
	message  string
	code     string
}

var (
	failedValidation = failure{goerrors.CategoryValidation, "command validation failed", "COMMAND_VALIDATION_FAILED"}
	failedExecution  = failure{goerrors.CategoryCommand, "command execution failed", "COMMAND_EXECUTION_FAILED"}
	failedCanceled   = failure{goerrors.CategoryCommand, "command execution cancelled", "COMMAND_CONTEXT_CANCELED"}
	failedDeadline   = failure{goerrors.CategoryCommand, "command execution deadline exceeded", "COMMAND_CONTEXT_TIMEOUT"}
	failedContext    = failure{goerrors.CategoryCommand, "command context error", "COMMAND_CONTEXT_ERROR"}
)

// tag leaves errors that already carry a go-errors category untouched.
func (f failure) tag(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, f.category, f.message).WithTextCode(f.code)
}

func contextFailure(err error) failure {
	switch {
	case errors.Is(err, context.Canceled):
		return failedCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return failedDeadline
	default:
		return failedContext
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
