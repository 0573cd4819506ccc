package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-contractor/internal/tenancy"
)

type tenantCreatePayload struct {
	Name              string `json:"name"`
	Slug              string `json:"slug,omitempty"`
	Email             string `json:"email,omitempty"`
	Currency          string `json:"currency,omitempty"`
	InvoicePrefix     string `json:"invoice_prefix,omitempty"`
	PaymentTermsDays  *int   `json:"payment_terms_days,omitempty"`
	DefaultTaxRateBps *int   `json:"default_tax_rate_bps,omitempty"`
}

func (p tenantCreatePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Email, is.EmailFormat),
		validation.Field(&p.Currency, validation.When(p.Currency != "", is.CurrencyCode)),
	)
}

type tenantSettingsPayload struct {
	Name              *string `json:"name,omitempty"`
	Email             *string `json:"email,omitempty"`
	Currency          *string `json:"currency,omitempty"`
	InvoicePrefix     *string `json:"invoice_prefix,omitempty"`
	PaymentTermsDays  *int    `json:"payment_terms_days,omitempty"`
	DefaultTaxRateBps *int    `json:"default_tax_rate_bps,omitempty"`
}

func (p tenantSettingsPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.NilOrNotEmpty, is.EmailFormat),
		validation.Field(&p.Currency, validation.NilOrNotEmpty, is.CurrencyCode),
	)
}

func (api *API) registerTenantRoutes(group *gin.RouterGroup) {
	if api.tenants == nil {
		return
	}
	tenants := group.Group("/tenants")
	tenants.POST("", api.handleTenantCreate)
	tenants.GET("", api.handleTenantList)
	tenants.GET("/:id", api.handleTenantGet)
	tenants.PATCH("/:id/settings", api.handleTenantSettings)
}

func (api *API) handleTenantCreate(c *gin.Context) {
	var payload tenantCreatePayload
	if !bindJSON(c, &payload) {
		return
	}
	if err := payload.Validate(); err != nil {
		writeError(c, err)
		return
	}
	tenant, err := api.tenants.Create(c.Request.Context(), tenancy.CreateTenantInput{
		Name:              payload.Name,
		Slug:              payload.Slug,
		Email:             payload.Email,
		Currency:          payload.Currency,
		InvoicePrefix:     payload.InvoicePrefix,
		PaymentTermsDays:  payload.PaymentTermsDays,
		DefaultTaxRateBps: payload.DefaultTaxRateBps,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tenant)
}

func (api *API) handleTenantList(c *gin.Context) {
	list, err := api.tenants.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeList(c, list, len(list))
}

func (api *API) handleTenantGet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tenant, err := api.tenants.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

func (api *API) handleTenantSettings(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var payload tenantSettingsPayload
	if !bindJSON(c, &payload) {
		return
	}
	if err := payload.Validate(); err != nil {
		writeError(c, err)
		return
	}
	tenant, err := api.tenants.UpdateSettings(c.Request.Context(), tenancy.UpdateSettingsInput{
		TenantID:          id,
		Name:              payload.Name,
		Email:             payload.Email,
		Currency:          payload.Currency,
		InvoicePrefix:     payload.InvoicePrefix,
		PaymentTermsDays:  payload.PaymentTermsDays,
		DefaultTaxRateBps: payload.DefaultTaxRateBps,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

