package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/internal/permissions"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/google/uuid"
)

const (
	HeaderTenantID    = "X-Tenant-ID"
	HeaderTenantSlug  = "X-Tenant"
	HeaderActorID     = "X-Actor-ID"
	HeaderPermissions = "X-Permissions"
	HeaderRequestID   = "X-Request-ID"
)

// identity binds tenant, actor and permissions from request headers onto the
// request context. Requests without a tenant pass through; tenant-scoped
// services reject them with TENANT_REQUIRED.
func (api *API) identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if raw := strings.TrimSpace(c.GetHeader(HeaderTenantID)); raw != "" {
			tenantID, err := parseUUID(raw)
			if err != nil {
				writeInvalid(c, "invalid "+HeaderTenantID)
				return
			}
			ctx = tenancy.WithTenant(ctx, tenantID)
		} else if slug := strings.TrimSpace(c.GetHeader(HeaderTenantSlug)); slug != "" && api.tenants != nil {
			tenant, err := api.tenants.GetBySlug(ctx, slug)
			if err != nil {
				writeError(c, err)
				return
			}
			ctx = tenancy.WithTenant(ctx, tenant.ID)
		}

		if raw := strings.TrimSpace(c.GetHeader(HeaderActorID)); raw != "" {
			actorID, err := parseUUID(raw)
			if err != nil {
				writeInvalid(c, "invalid "+HeaderActorID)
				return
			}
			ctx = tenancy.WithActor(ctx, actorID)
		}

		if raw := strings.TrimSpace(c.GetHeader(HeaderPermissions)); raw != "" {
			tokens := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
			ctx = permissions.WithPermissions(ctx, tokens...)
		}

		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		fields := logging.RequestFields{RequestID: requestID}
		if tenantID, ok := tenancy.TenantID(ctx); ok {
			fields.TenantID = tenantID.String()
		}
		if actorID := tenancy.ActorID(ctx); actorID != uuid.Nil {
			fields.ActorID = actorID.String()
		}
		ctx = logging.ContextWithRequest(ctx, fields)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (api *API) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		fields := map[string]any{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(started).Milliseconds(),
		}
		logger := logging.FromContext(logging.WithFields(api.logger, fields), c.Request.Context())
		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("http.request.failed", "errors", c.Errors.String())
		case status >= 400:
			logger.Warn("http.request.rejected")
		default:
			logger.Debug("http.request")
		}
	}
}
