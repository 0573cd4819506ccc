package di_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-contractor/internal/activitylog"
	"github.com/goliatone/go-contractor/internal/blog"
	"github.com/goliatone/go-contractor/internal/clients"
	"github.com/goliatone/go-contractor/internal/commands/fixtures"
	jobscmd "github.com/goliatone/go-contractor/internal/commands/jobs"
	"github.com/goliatone/go-contractor/internal/di"
	"github.com/goliatone/go-contractor/internal/runtimeconfig"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	"github.com/goliatone/go-contractor/pkg/testsupport"
)

func TestContainerDefaultsWireMemoryServices(t *testing.T) {
	container, err := di.NewContainer(runtimeconfig.DefaultConfig())
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	if container.DB() != nil {
		t.Fatal("expected memory storage to leave the database unset")
	}
	if container.ExportService() == nil || container.GenerateExportHandler() == nil {
		t.Fatal("expected exports to be wired by default")
	}
	if container.ImportService() == nil {
		t.Fatal("expected imports to be wired by default")
	}
	if container.Broker() == nil {
		t.Fatal("expected realtime broker by default")
	}
	if container.BlogService() != nil || container.ImportPostsHandler() != nil {
		t.Fatal("expected blog to stay disabled by default")
	}
	if container.API() == nil {
		t.Fatal("expected API to be constructed")
	}
	if container.Links() == nil || container.RouteManager() == nil {
		t.Fatal("expected link resolver and route manager")
	}
	if got := container.SweepOverdueHandler().CronOptions().Expression; got != "@hourly" {
		t.Fatalf("expected overdue cron @hourly, got %q", got)
	}
}

func TestContainerRejectsInvalidConfig(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Storage.Driver = "oracle"

	_, err := di.NewContainer(cfg)
	if !errors.Is(err, runtimeconfig.ErrStorageDriverUnknown) {
		t.Fatalf("expected ErrStorageDriverUnknown, got %v", err)
	}
}

func TestContainerRegistersCommandsAndCron(t *testing.T) {
	cfg := schedulingConfig()
	cfg.Commands.CronEnabled = true

	registry := fixtures.NewRegistry()
	cron := fixtures.NewCron()

	container, err := di.NewContainer(cfg,
		di.WithContentFS(fstest.MapFS{}),
		di.WithCommandRegistry(registry),
		di.WithCronRegistrar(cron.Registrar()),
	)
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	if got := len(registry.Handlers()); got != 7 {
		t.Fatalf("expected 7 registered handlers, got %d", got)
	}
	entries := cron.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 cron registrations, got %d", len(entries))
	}
	expressions := map[string]bool{}
	for _, entry := range entries {
		expressions[entry.Expression] = true
	}
	for _, expected := range []string{"@hourly", "@daily", "@every 1m"} {
		if !expressions[expected] {
			t.Fatalf("expected cron expression %q, got %v", expected, expressions)
		}
	}
	for _, expression := range []string{"@hourly", "@daily", "@every 1m"} {
		if err := cron.Trigger(expression); err != nil {
			t.Fatalf("trigger %s: %v", expression, err)
		}
	}
}

func TestContainerCronFailureIsReturned(t *testing.T) {
	cfg := schedulingConfig()
	cfg.Commands.CronEnabled = true

	failure := errors.New("cron unavailable")
	cron := fixtures.NewCron()
	cron.FailWith(failure)

	_, err := di.NewContainer(cfg, di.WithContentFS(fstest.MapFS{}), di.WithCronRegistrar(cron.Registrar()))
	if !errors.Is(err, failure) {
		t.Fatalf("expected cron failure, got %v", err)
	}
}

func TestContainerCronSkippedWhenDisabled(t *testing.T) {
	cron := fixtures.NewCron()
	container, err := di.NewContainer(runtimeconfig.DefaultConfig(), di.WithCronRegistrar(cron.Registrar()))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	if got := len(cron.Entries()); got != 0 {
		t.Fatalf("expected no cron registrations, got %d", got)
	}
}

func TestContainerDispatcherSubscriptionsReleasedOnClose(t *testing.T) {
	dispatcher := fixtures.NewDispatcher()
	container, err := di.NewContainer(runtimeconfig.DefaultConfig(), di.WithCommandDispatcher(dispatcher))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}

	if got := dispatcher.Active(); got != 6 {
		t.Fatalf("expected 6 subscriptions without the blog, got %d", got)
	}
	if err := container.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if got := dispatcher.Active(); got != 0 {
		t.Fatalf("expected every subscription released, %d still active", got)
	}
}

func TestContainerActivityFansOutToSinkAndLog(t *testing.T) {
	sink := &recordingSink{}
	container, err := di.NewContainer(runtimeconfig.DefaultConfig(), di.WithActivitySink(sink))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	ctx := context.Background()
	tenant, err := container.TenantService().Create(ctx, tenancy.CreateTenantInput{Name: "Acme Studio"})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	ctx = tenancy.WithTenant(ctx, tenant.ID)

	client, err := container.ClientService().Create(ctx, clients.CreateClientInput{Name: "Globex", Email: "ap@globex.test"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	records := sink.snapshot()
	if len(records) != 1 {
		t.Fatalf("expected one sink record, got %d", len(records))
	}
	if records[0].Verb != "created" || records[0].ObjectID != client.ID.String() {
		t.Fatalf("unexpected sink record %+v", records[0])
	}
	if records[0].TenantID != tenant.ID {
		t.Fatalf("expected tenant %s on sink record, got %s", tenant.ID, records[0].TenantID)
	}

	entries, err := container.ActivityService().List(ctx, activitylog.Filter{ObjectType: "client"})
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one activity entry, got %d", len(entries))
	}
}

func TestContainerWorkerPublishesScheduledPost(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	container, err := di.NewContainer(schedulingConfig(),
		di.WithContentFS(fstest.MapFS{}),
		di.WithClock(clock.Now),
	)
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	ctx := context.Background()
	posts := container.BlogService()
	post, err := posts.Create(ctx, blog.CreatePostInput{Title: "Quarter close", Body: "# Done"})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if _, err := posts.Schedule(ctx, post.ID, clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("schedule post: %v", err)
	}

	clock.Advance(2 * time.Hour)
	if err := container.ProcessJobsHandler().Execute(ctx, jobscmd.ProcessJobsCommand{}); err != nil {
		t.Fatalf("process jobs: %v", err)
	}

	published, err := posts.Get(ctx, post.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if published.Status != blog.StatusPublished {
		t.Fatalf("expected published post, got %s", published.Status)
	}

	events, err := container.AuditRecorder().List(ctx)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected worker audit events")
	}
}

func TestContainerBlogSchedulingRequiresFeature(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Features.Blog = true

	container, err := di.NewContainer(cfg, di.WithContentFS(fstest.MapFS{}))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	ctx := context.Background()
	post, err := container.BlogService().Create(ctx, blog.CreatePostInput{Title: "Draft", Body: "text"})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	_, err = container.BlogService().Schedule(ctx, post.ID, time.Now().Add(time.Hour))
	if !errors.Is(err, blog.ErrSchedulingDisabled) {
		t.Fatalf("expected ErrSchedulingDisabled, got %v", err)
	}
}

func TestContainerSQLiteStorageWithCache(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.DSN = testsupport.SQLiteMemoryDSN()
	cfg.Storage.AutoMigrate = true

	container, err := di.NewContainer(cfg)
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	if container.DB() == nil {
		t.Fatal("expected bun database for sqlite storage")
	}

	ctx := context.Background()
	tenant, err := container.TenantService().Create(ctx, tenancy.CreateTenantInput{Name: "Northwind"})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	fetched, err := container.TenantService().Get(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("get tenant: %v", err)
	}
	if fetched.Slug != "northwind" {
		t.Fatalf("expected slug northwind, got %q", fetched.Slug)
	}

	ctx = tenancy.WithTenant(ctx, tenant.ID)
	if _, err := container.ClientService().Create(ctx, clients.CreateClientInput{Name: "Initech"}); err != nil {
		t.Fatalf("create client: %v", err)
	}
	_, total, err := container.ClientService().List(ctx, clients.ListOptions{})
	if err != nil {
		t.Fatalf("list clients: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected one client, got %d", total)
	}
}

func schedulingConfig() runtimeconfig.Config {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Features.Blog = true
	cfg.Features.Scheduling = true
	return cfg
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSink struct {
	mu      sync.Mutex
	records []interfaces.ActivityRecord
}

func (s *recordingSink) Log(_ context.Context, record interfaces.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *recordingSink) snapshot() []interfaces.ActivityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]interfaces.ActivityRecord(nil), s.records...)
}
