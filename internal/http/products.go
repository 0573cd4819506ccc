package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-contractor/internal/products"
)

func (api *API) registerProductRoutes(group *gin.RouterGroup) {
	if api.products == nil {
		return
	}
	routes := group.Group("/products")
	routes.GET("", api.handleProductList)
	routes.POST("", api.handleProductCreate)
	routes.GET("/:id", api.handleProductGet)
	routes.PATCH("/:id", api.handleProductUpdate)
	routes.DELETE("/:id", api.handleProductDelete)
}

func (api *API) handleProductList(c *gin.Context) {
	p, ok := pagination(c)
	if !ok {
		return
	}
	list, total, err := api.products.List(c.Request.Context(), products.ListOptions{
		Search:     strings.TrimSpace(c.Query("search")),
		ActiveOnly: queryBool(c, "active", false),
		Limit:      p.Limit,
		Offset:     p.Offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeList(c, list, total)
}

func (api *API) handleProductCreate(c *gin.Context) {
	var input products.CreateProductInput
	if !bindJSON(c, &input) {
		return
	}
	record, err := api.products.Create(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (api *API) handleProductGet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	record, err := api.products.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (api *API) handleProductUpdate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var input products.UpdateProductInput
	if !bindJSON(c, &input) {
		return
	}
	input.ID = id
	record, err := api.products.Update(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (api *API) handleProductDelete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := api.products.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
