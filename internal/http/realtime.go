package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-contractor/internal/permissions"
	"github.com/goliatone/go-contractor/internal/tenancy"
)

const realtimeHeartbeat = 25 * time.Second

func (api *API) registerRealtimeRoutes(group *gin.RouterGroup) {
	if api.broker == nil {
		return
	}
	group.GET("/realtime", api.handleRealtime)
}

// handleRealtime streams the tenant's changes as Server-Sent Events. The
// optional types parameter is a comma separated list of object types.
func (api *API) handleRealtime(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := permissions.RequireAction(ctx, permissions.ResourceActivity, permissions.ActionRead); err != nil {
		writeError(c, err)
		return
	}
	var types []string
	if raw := strings.TrimSpace(c.Query("types")); raw != "" {
		types = strings.Split(raw, ",")
	}
	changes, err := api.broker.Subscribe(ctx, tenantID, types...)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(realtimeHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			c.SSEvent(string(change.Type), change)
			c.Writer.Flush()
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"at": api.now().UTC()})
			c.Writer.Flush()
		}
	}
}
