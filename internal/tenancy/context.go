package tenancy

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrTenantRequired is returned when a tenant-scoped operation runs without a
// tenant on the context.
var ErrTenantRequired = errors.New("tenancy: tenant is required")

type contextKey string

const (
	tenantKey contextKey = "contractor.tenant"
	actorKey  contextKey = "contractor.actor"
)

// WithTenant scopes the context to a tenant. Every tenant-owned repository
// call made with the returned context filters on this identifier.
func WithTenant(ctx context.Context, tenantID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, tenantKey, tenantID)
}

// TenantID returns the tenant carried by the context.
func TenantID(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(tenantKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// RequireTenant returns the context tenant or ErrTenantRequired.
func RequireTenant(ctx context.Context) (uuid.UUID, error) {
	id, ok := TenantID(ctx)
	if !ok {
		return uuid.Nil, ErrTenantRequired
	}
	return id, nil
}

// WithActor records the acting user on the context.
func WithActor(ctx context.Context, actorID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey, actorID)
}

// ActorID returns the acting user or uuid.Nil.
func ActorID(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	id, _ := ctx.Value(actorKey).(uuid.UUID)
	return id
}
