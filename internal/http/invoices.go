package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-contractor/internal/invoices"
)

type invoiceVoidPayload struct {
	Reason string `json:"reason"`
}

func (p invoiceVoidPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Reason, validation.Length(0, 500)),
	)
}

func (api *API) registerInvoiceRoutes(group *gin.RouterGroup) {
	if api.invoices == nil {
		return
	}
	routes := group.Group("/invoices")
	routes.GET("", api.handleInvoiceList)
	routes.POST("", api.handleInvoiceCreate)
	routes.GET("/:id", api.handleInvoiceGet)
	routes.PATCH("/:id", api.handleInvoiceUpdate)
	routes.DELETE("/:id", api.handleInvoiceDelete)
	routes.POST("/:id/send", api.handleInvoiceSend)
	routes.POST("/:id/payments", api.handleInvoicePayment)
	routes.POST("/:id/void", api.handleInvoiceVoid)
}

// handleInvoiceList filters by status, client_id, project_id and due_before.
// A number parameter returns the single matching invoice instead.
func (api *API) handleInvoiceList(c *gin.Context) {
	if number := strings.TrimSpace(c.Query("number")); number != "" {
		record, err := api.invoices.GetByNumber(c.Request.Context(), number)
		if err != nil {
			writeError(c, err)
			return
		}
		writeList(c, []*invoices.Invoice{record}, 1)
		return
	}
	p, ok := pagination(c)
	if !ok {
		return
	}
	clientID, err := queryUUID(c, "client_id")
	if err != nil {
		writeInvalid(c, "invalid client_id")
		return
	}
	projectID, err := queryUUID(c, "project_id")
	if err != nil {
		writeInvalid(c, "invalid project_id")
		return
	}
	dueBefore, err := queryTime(c, "due_before")
	if err != nil {
		writeInvalid(c, "invalid due_before")
		return
	}
	list, total, err := api.invoices.List(c.Request.Context(), invoices.ListOptions{
		Status:    invoices.Status(c.Query("status")),
		ClientID:  clientID,
		ProjectID: projectID,
		DueBefore: dueBefore,
		Limit:     p.Limit,
		Offset:    p.Offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeList(c, list, total)
}

func (api *API) handleInvoiceCreate(c *gin.Context) {
	var input invoices.CreateInvoiceInput
	if !bindJSON(c, &input) {
		return
	}
	record, err := api.invoices.Create(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (api *API) handleInvoiceGet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	record, err := api.invoices.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (api *API) handleInvoiceUpdate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var input invoices.UpdateInvoiceInput
	if !bindJSON(c, &input) {
		return
	}
	input.ID = id
	record, err := api.invoices.Update(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (api *API) handleInvoiceDelete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := api.invoices.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (api *API) handleInvoiceSend(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	record, err := api.invoices.Send(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (api *API) handleInvoicePayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var input invoices.RecordPaymentInput
	if !bindJSON(c, &input) {
		return
	}
	input.InvoiceID = id
	record, err := api.invoices.RecordPayment(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (api *API) handleInvoiceVoid(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var payload invoiceVoidPayload
	if c.Request.ContentLength != 0 {
		if !bindJSON(c, &payload) {
			return
		}
		if err := payload.Validate(); err != nil {
			writeError(c, err)
			return
		}
	}
	record, err := api.invoices.Void(c.Request.Context(), id, payload.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}
