package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-contractor/internal/expenses"
)

// maxReceiptUpload bounds the request body read for receipt uploads; the
// service applies its own, smaller limit.
const maxReceiptUpload = 16 << 20

func (api *API) registerExpenseRoutes(group *gin.RouterGroup) {
	if api.expenses == nil {
		return
	}
	routes := group.Group("/expenses")
	routes.GET("", api.handleExpenseList)
	routes.POST("", api.handleExpenseCreate)
	routes.GET("/:id", api.handleExpenseGet)
	routes.PATCH("/:id", api.handleExpenseUpdate)
	routes.DELETE("/:id", api.handleExpenseDelete)
	routes.PUT("/:id/receipt", api.handleExpenseReceiptUpload)
	routes.GET("/:id/receipt", api.handleExpenseReceiptDownload)
}

func (api *API) handleExpenseList(c *gin.Context) {
	p, ok := pagination(c)
	if !ok {
		return
	}
	projectID, err := queryUUID(c, "project_id")
	if err != nil {
		writeInvalid(c, "invalid project_id")
		return
	}
	from, err := queryTime(c, "from")
	if err != nil {
		writeInvalid(c, "invalid from")
		return
	}
	to, err := queryTime(c, "to")
	if err != nil {
		writeInvalid(c, "invalid to")
		return
	}
	list, total, err := api.expenses.List(c.Request.Context(), expenses.ListOptions{
		ProjectID: projectID,
		Category:  expenses.Category(c.Query("category")),
		From:      from,
		To:        to,
		Limit:     p.Limit,
		Offset:    p.Offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeList(c, list, total)
}

func (api *API) handleExpenseCreate(c *gin.Context) {
	var input expenses.CreateExpenseInput
	if !bindJSON(c, &input) {
		return
	}
	record, err := api.expenses.Create(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (api *API) handleExpenseGet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	record, err := api.expenses.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (api *API) handleExpenseUpdate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var input expenses.UpdateExpenseInput
	if !bindJSON(c, &input) {
		return
	}
	input.ID = id
	record, err := api.expenses.Update(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (api *API) handleExpenseDelete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := api.expenses.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (api *API) handleExpenseReceiptUpload(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxReceiptUpload+1))
	if err != nil {
		writeInvalid(c, "unable to read receipt")
		return
	}
	if len(data) > maxReceiptUpload {
		writeError(c, expenses.ErrReceiptTooLarge)
		return
	}
	record, err := api.expenses.AttachReceipt(c.Request.Context(), id, data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (api *API) handleExpenseReceiptDownload(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	body, object, err := api.expenses.OpenReceipt(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	defer body.Close()
	size := object.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, object.ContentType, body, nil)
}
