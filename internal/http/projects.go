package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-contractor/internal/projects"
)

type projectStatusPayload struct {
	Status string `json:"status"`
}

func (p projectStatusPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Status, validation.Required),
	)
}

func (api *API) registerProjectRoutes(group *gin.RouterGroup) {
	if api.projects == nil {
		return
	}
	routes := group.Group("/projects")
	routes.GET("", api.handleProjectList)
	routes.POST("", api.handleProjectCreate)
	routes.GET("/:id", api.handleProjectGet)
	routes.PATCH("/:id", api.handleProjectUpdate)
	routes.POST("/:id/status", api.handleProjectStatus)
	routes.DELETE("/:id", api.handleProjectDelete)
}

func (api *API) handleProjectList(c *gin.Context) {
	p, ok := pagination(c)
	if !ok {
		return
	}
	clientID, err := queryUUID(c, "client_id")
	if err != nil {
		writeInvalid(c, "invalid client_id")
		return
	}
	list, total, err := api.projects.List(c.Request.Context(), projects.ListOptions{
		Status:   projects.Status(c.Query("status")),
		ClientID: clientID,
		Limit:    p.Limit,
		Offset:   p.Offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeList(c, list, total)
}

func (api *API) handleProjectCreate(c *gin.Context) {
	var input projects.CreateProjectInput
	if !bindJSON(c, &input) {
		return
	}
	record, err := api.projects.Create(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (api *API) handleProjectGet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	record, err := api.projects.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (api *API) handleProjectUpdate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var input projects.UpdateProjectInput
	if !bindJSON(c, &input) {
		return
	}
	input.ID = id
	record, err := api.projects.Update(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (api *API) handleProjectStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var payload projectStatusPayload
	if !bindJSON(c, &payload) {
		return
	}
	if err := payload.Validate(); err != nil {
		writeError(c, err)
		return
	}
	record, err := api.projects.ChangeStatus(c.Request.Context(), id, projects.Status(payload.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (api *API) handleProjectDelete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := api.projects.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
