// Package contractor is the runtime facade for the contractor back office:
// tenants, clients, invoicing, expenses, analytics, exports and the blog.
package contractor

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-contractor/internal/activitylog"
	"github.com/goliatone/go-contractor/internal/analytics"
	"github.com/goliatone/go-contractor/internal/blog"
	"github.com/goliatone/go-contractor/internal/clients"
	"github.com/goliatone/go-contractor/internal/di"
	"github.com/goliatone/go-contractor/internal/expenses"
	"github.com/goliatone/go-contractor/internal/exports"
	"github.com/goliatone/go-contractor/internal/imports"
	"github.com/goliatone/go-contractor/internal/invoices"
	"github.com/goliatone/go-contractor/internal/permissions"
	"github.com/goliatone/go-contractor/internal/products"
	"github.com/goliatone/go-contractor/internal/projects"
	"github.com/goliatone/go-contractor/internal/realtime"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/interfaces"
)

// TenantService exports the tenancy service contract.
type TenantService = tenancy.Service

// ClientService exports the clients service contract.
type ClientService = clients.Service

// ProductService exports the product catalogue contract.
type ProductService = products.Service

// ProjectService exports the projects service contract.
type ProjectService = projects.Service

// InvoiceService exports the invoicing contract.
type InvoiceService = invoices.Service

// ExpenseService exports the expenses contract.
type ExpenseService = expenses.Service

// ActivityService exports the activity log read contract.
type ActivityService = activitylog.Service

// AnalyticsService exports the dashboard contract.
type AnalyticsService = analytics.Service

// ExportService exports the CSV export contract.
type ExportService = exports.Service

// ImportService exports the bulk import contract.
type ImportService = imports.Service

// BlogService exports the blog contract.
type BlogService = blog.Service

// Option customises the module wiring.
type Option = di.Option

var (
	WithLoggerProvider = di.WithLoggerProvider
	WithBunDB          = di.WithBunDB
	WithCache          = di.WithCache
	WithClock          = di.WithClock
	WithObjectStore    = di.WithObjectStore
	WithScheduler      = di.WithScheduler
	WithActivityHooks  = di.WithActivityHooks
	WithActivitySink   = di.WithActivitySink
	WithContentFS      = di.WithContentFS
	WithCronRegistrar  = di.WithCronRegistrar
)

// WithTenant binds the tenant every service call on ctx is scoped to.
var WithTenant = tenancy.WithTenant

// WithActor records the acting user for activity entries.
var WithActor = tenancy.WithActor

// WithPermissions grants role names or resource:action tokens to ctx.
var WithPermissions = permissions.WithPermissions

// Module represents the top level contractor runtime facade.
type Module struct {
	container *di.Container
}

// New constructs a module using the provided configuration and optional overrides.
func New(cfg Config, opts ...Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

func (m *Module) Tenants() TenantService {
	return m.container.TenantService()
}

func (m *Module) Clients() ClientService {
	return m.container.ClientService()
}

func (m *Module) Products() ProductService {
	return m.container.ProductService()
}

func (m *Module) Projects() ProjectService {
	return m.container.ProjectService()
}

func (m *Module) Invoices() InvoiceService {
	return m.container.InvoiceService()
}

func (m *Module) Expenses() ExpenseService {
	return m.container.ExpenseService()
}

func (m *Module) Activity() ActivityService {
	return m.container.ActivityService()
}

func (m *Module) Analytics() AnalyticsService {
	return m.container.AnalyticsService()
}

// Exports returns nil when the exports feature is disabled.
func (m *Module) Exports() ExportService {
	return m.container.ExportService()
}

// Imports returns nil when the imports feature is disabled.
func (m *Module) Imports() ImportService {
	return m.container.ImportService()
}

// Blog returns nil when the blog feature is disabled.
func (m *Module) Blog() BlogService {
	return m.container.BlogService()
}

// Realtime returns the change broker, or nil when realtime is disabled.
func (m *Module) Realtime() *realtime.Broker {
	return m.container.Broker()
}

// Scheduler returns the scheduler used for post publishing and sweeps.
func (m *Module) Scheduler() interfaces.Scheduler {
	return m.container.Scheduler()
}

// Handler builds a gin engine serving the JSON API.
func (m *Module) Handler() (*gin.Engine, error) {
	return m.container.API().Engine()
}

// Register mounts the API routes on an existing router.
func (m *Module) Register(router gin.IRouter) error {
	return m.container.API().Register(router)
}

// Close releases the resources the module opened.
func (m *Module) Close(ctx context.Context) error {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Close(ctx)
}
