package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-contractor/internal/clients"
)

func (api *API) registerClientRoutes(group *gin.RouterGroup) {
	if api.clients == nil {
		return
	}
	routes := group.Group("/clients")
	routes.GET("", api.handleClientList)
	routes.POST("", api.handleClientCreate)
	routes.GET("/:id", api.handleClientGet)
	routes.PATCH("/:id", api.handleClientUpdate)
	routes.DELETE("/:id", api.handleClientDelete)
}

func (api *API) handleClientList(c *gin.Context) {
	p, ok := pagination(c)
	if !ok {
		return
	}
	list, total, err := api.clients.List(c.Request.Context(), clients.ListOptions{
		Search: strings.TrimSpace(c.Query("search")),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeList(c, list, total)
}

func (api *API) handleClientCreate(c *gin.Context) {
	var input clients.CreateClientInput
	if !bindJSON(c, &input) {
		return
	}
	record, err := api.clients.Create(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (api *API) handleClientGet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	record, err := api.clients.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (api *API) handleClientUpdate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var input clients.UpdateClientInput
	if !bindJSON(c, &input) {
		return
	}
	input.ID = id
	record, err := api.clients.Update(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (api *API) handleClientDelete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := api.clients.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
