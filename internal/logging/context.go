package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-contractor/pkg/interfaces"
)

// RequestFields identifies the caller of a request or command run.
type RequestFields struct {
	TenantID  string
	ActorID   string
	RequestID string
}

func (r RequestFields) merge(other RequestFields) RequestFields {
	if v := strings.TrimSpace(other.TenantID); v != "" {
		r.TenantID = v
	}
	if v := strings.TrimSpace(other.ActorID); v != "" {
		r.ActorID = v
	}
	if v := strings.TrimSpace(other.RequestID); v != "" {
		r.RequestID = v
	}
	return r
}

// Map returns the non-empty identifiers keyed by their log field names.
func (r RequestFields) Map() map[string]any {
	fields := map[string]any{}
	if r.TenantID != "" {
		fields[fieldTenant] = r.TenantID
	}
	if r.ActorID != "" {
		fields[fieldActor] = r.ActorID
	}
	if r.RequestID != "" {
		fields[fieldRequest] = r.RequestID
	}
	return fields
}

type contextKey string

const requestFieldsKey contextKey = "contractor.logging.request"

// ContextWithRequest stores request identifiers on ctx. Blank values keep
// whatever an outer call already stored.
func ContextWithRequest(ctx context.Context, fields RequestFields) context.Context {
	if ctx == nil {
		return ctx
	}
	merged := RequestFromContext(ctx).merge(fields)
	return context.WithValue(ctx, requestFieldsKey, merged)
}

func RequestFromContext(ctx context.Context) RequestFields {
	if ctx == nil {
		return RequestFields{}
	}
	fields, _ := ctx.Value(requestFieldsKey).(RequestFields)
	return fields
}

// ContextFields returns the request identifiers on ctx as log fields, or nil
// when there are none.
func ContextFields(ctx context.Context) map[string]any {
	fields := RequestFromContext(ctx).Map()
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// FromContext decorates logger with the request identifiers stored on ctx.
func FromContext(logger interfaces.Logger, ctx context.Context) interfaces.Logger {
	req := RequestFromContext(ctx)
	return WithRequestFields(logger, req.TenantID, req.ActorID, req.RequestID)
}
