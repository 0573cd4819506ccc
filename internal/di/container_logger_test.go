package di_test

import (
	"context"
	"maps"
	"slices"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-contractor/internal/di"
	"github.com/goliatone/go-contractor/internal/runtimeconfig"
	"github.com/goliatone/go-contractor/pkg/interfaces"
)

func TestContainerSchedulerLoggingWithConsoleFallback(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Features.Logger = true
	cfg.Features.Blog = true
	cfg.Features.Scheduling = true

	rec := newRecordingProvider()

	if _, err := di.NewContainer(cfg, di.WithLoggerProvider(rec), di.WithContentFS(fstest.MapFS{})); err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}

	entry := rec.find("scheduler.configured")
	if entry == nil {
		t.Fatalf("expected scheduler.configured log entry, got %#v", rec.entries)
	}
	if got := entry.fields["provider"]; got != "in-memory" {
		t.Fatalf("expected provider field to be in-memory, got %v", got)
	}
	if got := entry.fields["module"]; got != "contractor.scheduler" {
		t.Fatalf("expected module field to be contractor.scheduler, got %v", got)
	}
}

func TestContainerLogsReadyWithFeatureFlags(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Features.Logger = true
	cfg.Features.Imports = false

	rec := newRecordingProvider()
	if _, err := di.NewContainer(cfg, di.WithLoggerProvider(rec)); err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}

	entry := rec.find("container.ready")
	if entry == nil {
		t.Fatalf("expected container.ready log entry, got %#v", rec.entries)
	}
	if got := entry.fields["storage"]; got != "memory" {
		t.Fatalf("expected storage field memory, got %v", got)
	}
	if got := entry.fields["imports"]; got != false {
		t.Fatalf("expected imports flag false, got %v", got)
	}
	if got := entry.fields["module"]; got != "contractor" {
		t.Fatalf("expected root module field, got %v", got)
	}
}

// recordingProvider keeps every entry from every child logger in order.
type recordingProvider struct {
	entries []recordedEntry
}

type recordedEntry struct {
	level  string
	msg    string
	fields map[string]any
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{}
}

func (p *recordingProvider) GetLogger(name string) interfaces.Logger {
	return &recordingLogger{provider: p, fields: map[string]any{"logger": name}}
}

func (p *recordingProvider) find(msg string) *recordedEntry {
	idx := slices.IndexFunc(p.entries, func(e recordedEntry) bool { return e.msg == msg })
	if idx < 0 {
		return nil
	}
	return &p.entries[idx]
}

type recordingLogger struct {
	provider *recordingProvider
	fields   map[string]any
}

var _ interfaces.FieldsLogger = (*recordingLogger)(nil)

func (l *recordingLogger) Trace(msg string, args ...any) { l.log("TRACE", msg, args) }
func (l *recordingLogger) Debug(msg string, args ...any) { l.log("DEBUG", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.log("INFO", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.log("WARN", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.log("ERROR", msg, args) }
func (l *recordingLogger) Fatal(msg string, args ...any) { l.log("FATAL", msg, args) }

func (l *recordingLogger) WithFields(fields map[string]any) interfaces.Logger {
	merged := maps.Clone(l.fields)
	maps.Copy(merged, fields)
	return &recordingLogger{provider: l.provider, fields: merged}
}

func (l *recordingLogger) WithContext(context.Context) interfaces.Logger {
	return l
}

func (l *recordingLogger) log(level, msg string, args []any) {
	fields := maps.Clone(l.fields)
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok && key != "" {
			fields[key] = args[i+1]
		}
	}
	l.provider.entries = append(l.provider.entries, recordedEntry{level: level, msg: msg, fields: fields})
}
