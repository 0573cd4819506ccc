package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-contractor/internal/activitylog"
	"github.com/goliatone/go-contractor/internal/analytics"
	"github.com/goliatone/go-contractor/internal/blog"
	"github.com/goliatone/go-contractor/internal/clients"
	"github.com/goliatone/go-contractor/internal/expenses"
	"github.com/goliatone/go-contractor/internal/exports"
	"github.com/goliatone/go-contractor/internal/imports"
	"github.com/goliatone/go-contractor/internal/invoices"
	"github.com/goliatone/go-contractor/internal/permissions"
	"github.com/goliatone/go-contractor/internal/products"
	"github.com/goliatone/go-contractor/internal/projects"
	"github.com/goliatone/go-contractor/internal/realtime"
	"github.com/goliatone/go-contractor/internal/tenancy"
	schema "github.com/goliatone/go-contractor/internal/validation"
	"github.com/google/uuid"
)

// Error codes returned in the "error" field of failed responses.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeSchemaValidation = "SCHEMA_VALIDATION_FAILED"
	CodeForbidden        = "FORBIDDEN"
	CodeTenantRequired   = "TENANT_REQUIRED"
	CodeInternal         = "INTERNAL_ERROR"
)

type errorResponse struct {
	Error   string                   `json:"error"`
	Message string                   `json:"message,omitempty"`
	Issues  []schema.ValidationIssue `json:"issues,omitempty"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

var conflictErrors = []error{
	tenancy.ErrSlugExists,
	clients.ErrEmailExists,
	products.ErrSKUExists,
	projects.ErrSlugExists,
	projects.ErrTransitionInvalid,
	projects.ErrProjectNotEditable,
	invoices.ErrNotDraft,
	invoices.ErrTransitionInvalid,
	invoices.ErrNotPayable,
	invoices.ErrPaymentExceedsDue,
	invoices.ErrConcurrentUpdate,
	blog.ErrSlugExists,
	blog.ErrAlreadyPublished,
	blog.ErrNotPublished,
	imports.ErrImportAborted,
}

var invalidInputErrors = []error{
	tenancy.ErrNameRequired,
	tenancy.ErrSlugInvalid,
	tenancy.ErrPaymentTermsNeg,
	tenancy.ErrTaxRateOutOfBounds,
	tenancy.ErrInvoicePrefix,
	clients.ErrNameRequired,
	clients.ErrEmailInvalid,
	products.ErrNameRequired,
	products.ErrUnitPriceNegative,
	products.ErrUnitInvalid,
	projects.ErrNameRequired,
	projects.ErrClientRequired,
	projects.ErrSlugInvalid,
	projects.ErrBudgetNegative,
	projects.ErrDateRangeInvalid,
	projects.ErrStatusInvalid,
	invoices.ErrClientRequired,
	invoices.ErrProjectNotFound,
	invoices.ErrProjectClientMismatch,
	invoices.ErrProductNotFound,
	invoices.ErrProductInactive,
	invoices.ErrLinesRequired,
	invoices.ErrLineDescriptionMissing,
	invoices.ErrQuantityInvalid,
	invoices.ErrUnitPriceNegative,
	invoices.ErrDiscountNegative,
	invoices.ErrTaxRateOutOfBounds,
	invoices.ErrDueBeforeIssue,
	invoices.ErrStatusInvalid,
	invoices.ErrPaymentAmountInvalid,
	expenses.ErrAmountInvalid,
	expenses.ErrCategoryInvalid,
	expenses.ErrIncurredOnRequired,
	expenses.ErrProjectNotFound,
	expenses.ErrDateRangeInvalid,
	expenses.ErrReceiptEmpty,
	expenses.ErrReceiptTooLarge,
	expenses.ErrReceiptType,
	blog.ErrTitleRequired,
	blog.ErrSlugInvalid,
	blog.ErrPublishAtRequired,
	blog.ErrPublishAtInPast,
	blog.ErrSchedulingDisabled,
	blog.ErrStatusInvalid,
	exports.ErrKindUnknown,
	imports.ErrKindUnknown,
	imports.ErrEmptyImport,
	analytics.ErrMonthsOutOfRange,
	activitylog.ErrRetentionInvalid,
	schema.ErrDocumentInvalid,
}

func writeError(c *gin.Context, err error) {
	status, payload := mapError(err)
	c.AbortWithStatusJSON(status, payload)
}

func writeInvalid(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: CodeInvalidInput, Message: message})
}

func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{Error: CodeInternal}
	}
	if isNotFound(err) {
		return http.StatusNotFound, errorResponse{Error: CodeNotFound, Message: err.Error()}
	}
	if errors.Is(err, permissions.ErrPermissionDenied) {
		return http.StatusForbidden, errorResponse{Error: CodeForbidden, Message: err.Error()}
	}
	if errors.Is(err, tenancy.ErrTenantRequired) || errors.Is(err, realtime.ErrTenantRequired) {
		return http.StatusBadRequest, errorResponse{Error: CodeTenantRequired, Message: err.Error()}
	}
	if errors.Is(err, schema.ErrSchemaValidation) || errors.Is(err, imports.ErrRowsInvalid) {
		return http.StatusUnprocessableEntity, errorResponse{
			Error:   CodeSchemaValidation,
			Message: err.Error(),
			Issues:  schema.Issues(err),
		}
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return http.StatusConflict, errorResponse{Error: CodeConflict, Message: err.Error()}
		}
	}
	for _, target := range invalidInputErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, errorResponse{Error: CodeInvalidInput, Message: err.Error()}
		}
	}
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		return http.StatusBadRequest, errorResponse{Error: CodeInvalidInput, Message: fieldErrs.Error()}
	}
	return http.StatusInternalServerError, errorResponse{Error: CodeInternal, Message: err.Error()}
}

func isNotFound(err error) bool {
	var (
		tenantNF  *tenancy.NotFoundError
		clientNF  *clients.NotFoundError
		productNF *products.NotFoundError
		projectNF *projects.NotFoundError
		invoiceNF *invoices.NotFoundError
		expenseNF *expenses.NotFoundError
		postNF    *blog.NotFoundError
	)
	return errors.As(err, &tenantNF) ||
		errors.As(err, &clientNF) ||
		errors.As(err, &productNF) ||
		errors.As(err, &projectNF) ||
		errors.As(err, &invoiceNF) ||
		errors.As(err, &expenseNF) ||
		errors.As(err, &postNF) ||
		errors.Is(err, expenses.ErrReceiptMissing)
}

// bindJSON decodes the request body into target. An empty body is rejected.
func bindJSON(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		if errors.Is(err, io.EOF) {
			writeInvalid(c, "request body is required")
			return false
		}
		writeInvalid(c, err.Error())
		return false
	}
	return true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		writeInvalid(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func parseUUID(value string) (uuid.UUID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return uuid.Nil, errors.New("uuid required")
	}
	return uuid.Parse(trimmed)
}

// queryUUID returns uuid.Nil when the parameter is absent.
func queryUUID(c *gin.Context, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func queryBool(c *gin.Context, name string, fallback bool) bool {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

// queryTime accepts RFC 3339 timestamps or YYYY-MM-DD dates.
func queryTime(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return &parsed, nil
	}
	parsed, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

type page struct {
	Limit  int
	Offset int
}

func pagination(c *gin.Context) (page, bool) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil || limit < 0 {
		writeInvalid(c, "limit must be a non-negative integer")
		return page{}, false
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		writeInvalid(c, "offset must be a non-negative integer")
		return page{}, false
	}
	if offset > 0 && limit == 0 {
		writeInvalid(c, "offset requires a limit")
		return page{}, false
	}
	return page{Limit: limit, Offset: offset}, true
}

func writeList[T any](c *gin.Context, items []T, total int) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, listResponse[T]{Items: items, Total: total})
}
