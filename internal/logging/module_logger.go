package logging

import (
	"context"
	"maps"

	"github.com/goliatone/go-contractor/pkg/interfaces"
)

const (
	rootModule = "contractor"

	TenancyModule   = "contractor.tenancy"
	ClientsModule   = "contractor.clients"
	ProductsModule  = "contractor.products"
	ProjectsModule  = "contractor.projects"
	InvoicesModule  = "contractor.invoices"
	ExpensesModule  = "contractor.expenses"
	ActivityModule  = "contractor.activity"
	RealtimeModule  = "contractor.realtime"
	AnalyticsModule = "contractor.analytics"
	BlogModule      = "contractor.blog"
	ExportsModule   = "contractor.exports"
	ImportsModule   = "contractor.imports"
	JobsModule      = "contractor.jobs"
	HTTPModule      = "contractor.http"
	CommandsModule  = "contractor.commands"
	SchedulerModule = "contractor.scheduler"
	StorageModule   = "contractor.storage"
)

const (
	fieldTenant  = "tenant_id"
	fieldActor   = "actor_id"
	fieldRequest = "request_id"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The module identifier is
// attached as a structured field.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// WithRequestFields enriches the logger with tenant, actor and request
// identifiers. Empty values are skipped.
func WithRequestFields(logger interfaces.Logger, tenantID, actorID, requestID string) interfaces.Logger {
	fields := RequestFields{}.merge(RequestFields{TenantID: tenantID, ActorID: actorID, RequestID: requestID})
	return WithFields(logger, fields.Map())
}

// WithFields is a no-op for loggers without the FieldsLogger extension.
// The map is cloned before it is handed over.
func WithFields(logger interfaces.Logger, fields map[string]any) interfaces.Logger {
	fl, ok := logger.(interfaces.FieldsLogger)
	if !ok || len(fields) == 0 {
		return logger
	}
	return fl.WithFields(maps.Clone(fields))
}

// NoOp returns a logger that drops every entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var (
	_ interfaces.Logger       = noopLogger{}
	_ interfaces.FieldsLogger = noopLogger{}
)

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
