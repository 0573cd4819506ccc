package http

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-contractor/internal/activitylog"
	"github.com/goliatone/go-contractor/internal/analytics"
	"github.com/goliatone/go-contractor/internal/blog"
	"github.com/goliatone/go-contractor/internal/clients"
	"github.com/goliatone/go-contractor/internal/expenses"
	"github.com/goliatone/go-contractor/internal/exports"
	"github.com/goliatone/go-contractor/internal/imports"
	"github.com/goliatone/go-contractor/internal/invoices"
	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/internal/markdown"
	"github.com/goliatone/go-contractor/internal/products"
	"github.com/goliatone/go-contractor/internal/projects"
	"github.com/goliatone/go-contractor/internal/realtime"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/interfaces"
)

// API registers the contractor endpoints. Services left nil are not routed.
type API struct {
	basePath  string
	tenants   tenancy.Service
	clients   clients.Service
	products  products.Service
	projects  projects.Service
	invoices  invoices.Service
	expenses  expenses.Service
	activity  activitylog.Service
	analytics analytics.Service
	exports   exports.Service
	imports   imports.Service
	broker    *realtime.Broker
	posts     blog.Service
	renderer  *markdown.Renderer
	logger    interfaces.Logger
	now       func() time.Time
}

// Option mutates the API configuration.
type Option func(*API)

// NewAPI constructs an API instance.
func NewAPI(opts ...Option) *API {
	api := &API{
		basePath: "/api",
		logger:   logging.NoOp(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(api)
		}
	}
	if api.renderer == nil {
		api.renderer = markdown.NewRenderer(markdown.Options{})
	}
	return api
}

// WithBasePath overrides the base path (defaults to "/api").
func WithBasePath(path string) Option {
	return func(api *API) {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			api.basePath = trimmed
		}
	}
}

func WithLogger(logger interfaces.Logger) Option {
	return func(api *API) {
		if logger != nil {
			api.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(api *API) {
		if clock != nil {
			api.now = clock
		}
	}
}

func WithTenantService(service tenancy.Service) Option {
	return func(api *API) { api.tenants = service }
}

func WithClientService(service clients.Service) Option {
	return func(api *API) { api.clients = service }
}

func WithProductService(service products.Service) Option {
	return func(api *API) { api.products = service }
}

func WithProjectService(service projects.Service) Option {
	return func(api *API) { api.projects = service }
}

func WithInvoiceService(service invoices.Service) Option {
	return func(api *API) { api.invoices = service }
}

func WithExpenseService(service expenses.Service) Option {
	return func(api *API) { api.expenses = service }
}

func WithActivityService(service activitylog.Service) Option {
	return func(api *API) { api.activity = service }
}

func WithAnalyticsService(service analytics.Service) Option {
	return func(api *API) { api.analytics = service }
}

func WithExportService(service exports.Service) Option {
	return func(api *API) { api.exports = service }
}

func WithImportService(service imports.Service) Option {
	return func(api *API) { api.imports = service }
}

// WithBroker enables the realtime change feed.
func WithBroker(broker *realtime.Broker) Option {
	return func(api *API) { api.broker = broker }
}

// WithBlogService enables the blog admin and public routes.
func WithBlogService(service blog.Service) Option {
	return func(api *API) { api.posts = service }
}

// WithRenderer sets the renderer used by the markdown preview endpoint.
func WithRenderer(renderer *markdown.Renderer) Option {
	return func(api *API) {
		if renderer != nil {
			api.renderer = renderer
		}
	}
}

// Engine builds a gin engine with recovery, request logging and every
// configured route.
func (api *API) Engine() (*gin.Engine, error) {
	engine := gin.New()
	engine.Use(gin.Recovery(), api.requestLogger())
	if err := api.Register(engine); err != nil {
		return nil, err
	}
	return engine, nil
}

// Register attaches the endpoints to router under the base path.
func (api *API) Register(router gin.IRouter) error {
	if router == nil {
		return errors.New("http: router is required")
	}
	if api == nil {
		return errors.New("http: api is nil")
	}

	base := router.Group(joinPath(api.basePath, ""), api.identity())
	api.registerRoutes(base)
	api.registerOpenAPIRoute(base)
	return nil
}

func (api *API) registerRoutes(base *gin.RouterGroup) {
	api.registerTenantRoutes(base)
	api.registerClientRoutes(base)
	api.registerProductRoutes(base)
	api.registerProjectRoutes(base)
	api.registerInvoiceRoutes(base)
	api.registerExpenseRoutes(base)
	api.registerActivityRoutes(base)
	api.registerDataRoutes(base)
	api.registerRealtimeRoutes(base)
	api.registerBlogRoutes(base)
}

func joinPath(base, suffix string) string {
	trimmedBase := strings.TrimSpace(base)
	trimmedSuffix := strings.TrimSpace(suffix)
	if trimmedBase == "" {
		if trimmedSuffix == "" {
			return "/"
		}
		return "/" + strings.Trim(trimmedSuffix, "/")
	}
	baseClean := "/" + strings.Trim(trimmedBase, "/")
	if trimmedSuffix == "" {
		return baseClean
	}
	return baseClean + "/" + strings.Trim(trimmedSuffix, "/")
}
