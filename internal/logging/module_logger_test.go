package logging

import (
	"context"
	"testing"

	"github.com/goliatone/go-contractor/pkg/interfaces"
)

type recordingLogger struct {
	fields   []map[string]any
	contexts []context.Context
}

func (r *recordingLogger) Trace(string, ...any) {}
func (r *recordingLogger) Debug(string, ...any) {}
func (r *recordingLogger) Info(string, ...any)  {}
func (r *recordingLogger) Warn(string, ...any)  {}
func (r *recordingLogger) Error(string, ...any) {}
func (r *recordingLogger) Fatal(string, ...any) {}

func (r *recordingLogger) WithFields(fields map[string]any) interfaces.Logger {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	r.fields = append(r.fields, copied)
	return r
}

func (r *recordingLogger) WithContext(ctx context.Context) interfaces.Logger {
	r.contexts = append(r.contexts, ctx)
	return r
}

type stubProvider struct {
	requested []string
	logger    interfaces.Logger
}

func (s *stubProvider) GetLogger(name string) interfaces.Logger {
	s.requested = append(s.requested, name)
	return s.logger
}

func TestModuleLoggerFallsBackToNoOp(t *testing.T) {
	logger := ModuleLogger(nil, InvoicesModule)
	if _, ok := logger.(noopLogger); !ok {
		t.Fatalf("expected noopLogger fallback, got %T", logger)
	}
	logger = logger.WithContext(context.Background())
	logger = WithFields(logger, map[string]any{"invoice": "INV-2024-0001"})
	logger.Debug("noop")
}

func TestModuleLoggerUsesProviderAndAnnotatesFields(t *testing.T) {
	rec := &recordingLogger{}
	provider := &stubProvider{logger: rec}

	_ = ModuleLogger(provider, ProjectsModule)

	if len(provider.requested) != 1 || provider.requested[0] != ProjectsModule {
		t.Fatalf("expected module %s, got %v", ProjectsModule, provider.requested)
	}
	if len(rec.fields) != 1 {
		t.Fatalf("expected module fields to be applied once, got %d", len(rec.fields))
	}
	if got := rec.fields[0]["module"]; got != ProjectsModule {
		t.Fatalf("expected module field %s, got %v", ProjectsModule, got)
	}
}

func TestModuleLoggerDefaultsToRootModule(t *testing.T) {
	rec := &recordingLogger{}
	provider := &stubProvider{logger: rec}

	_ = ModuleLogger(provider, "")

	if len(provider.requested) != 1 || provider.requested[0] != rootModule {
		t.Fatalf("expected default module %s, got %v", rootModule, provider.requested)
	}
	if rec.fields[0]["module"] != rootModule {
		t.Fatalf("expected module field %s, got %v", rootModule, rec.fields[0]["module"])
	}
}

func TestWithRequestFieldsSkipsEmptyValues(t *testing.T) {
	rec := &recordingLogger{}

	_ = WithRequestFields(rec, "tenant-1", " ", "req-9")

	if len(rec.fields) != 1 {
		t.Fatalf("expected a single WithFields call, got %d", len(rec.fields))
	}
	fields := rec.fields[0]
	if fields[fieldTenant] != "tenant-1" || fields[fieldRequest] != "req-9" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if _, ok := fields[fieldActor]; ok {
		t.Fatalf("expected blank actor to be skipped, got %v", fields)
	}
}

func TestContextWithRequestKeepsOuterValues(t *testing.T) {
	ctx := ContextWithRequest(context.Background(), RequestFields{RequestID: "r1", ActorID: "ops"})
	ctx = ContextWithRequest(ctx, RequestFields{TenantID: "acme", ActorID: " "})

	got := RequestFromContext(ctx)
	if got.TenantID != "acme" || got.RequestID != "r1" || got.ActorID != "ops" {
		t.Fatalf("unexpected request fields %+v", got)
	}
	if ContextFields(context.Background()) != nil {
		t.Fatal("expected nil fields for a bare context")
	}
}

func TestFromContextDecoratesLogger(t *testing.T) {
	rec := &recordingLogger{}
	ctx := ContextWithRequest(context.Background(), RequestFields{TenantID: "acme", RequestID: "r7"})

	_ = FromContext(rec, ctx)

	if len(rec.fields) != 1 {
		t.Fatalf("expected a single WithFields call, got %d", len(rec.fields))
	}
	if rec.fields[0][fieldTenant] != "acme" || rec.fields[0][fieldRequest] != "r7" {
		t.Fatalf("unexpected fields %v", rec.fields[0])
	}
}
