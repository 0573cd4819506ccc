package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-contractor/internal/activitylog"
)

func (api *API) registerActivityRoutes(group *gin.RouterGroup) {
	if api.activity != nil {
		group.GET("/activity", api.handleActivityList)
	}
	if api.analytics != nil {
		group.GET("/analytics/dashboard", api.handleDashboard)
	}
}

func (api *API) handleActivityList(c *gin.Context) {
	actorID, err := queryUUID(c, "actor_id")
	if err != nil {
		writeInvalid(c, "invalid actor_id")
		return
	}
	since, err := queryTime(c, "since")
	if err != nil {
		writeInvalid(c, "invalid since")
		return
	}
	until, err := queryTime(c, "until")
	if err != nil {
		writeInvalid(c, "invalid until")
		return
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil || limit < 0 {
		writeInvalid(c, "limit must be a non-negative integer")
		return
	}
	entries, err := api.activity.List(c.Request.Context(), activitylog.Filter{
		ObjectType: strings.TrimSpace(c.Query("object_type")),
		ObjectID:   strings.TrimSpace(c.Query("object_id")),
		ActorID:    actorID,
		Verb:       strings.TrimSpace(c.Query("verb")),
		Since:      since,
		Until:      until,
		Limit:      limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeList(c, entries, len(entries))
}

// handleDashboard accepts months (1-36) and as_of (RFC 3339 or date).
func (api *API) handleDashboard(c *gin.Context) {
	months, err := queryInt(c, "months", 0)
	if err != nil {
		writeInvalid(c, "months must be an integer")
		return
	}
	asOf, err := queryTime(c, "as_of")
	if err != nil {
		writeInvalid(c, "invalid as_of")
		return
	}
	at := api.now()
	if asOf != nil {
		at = *asOf
	}
	dashboard, err := api.analytics.Dashboard(c.Request.Context(), at, months)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}
