package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-contractor/internal/blog"
	"github.com/goliatone/go-contractor/internal/invoices"
	"github.com/goliatone/go-contractor/internal/jobs"
	cscheduler "github.com/goliatone/go-contractor/internal/scheduler"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	"github.com/google/uuid"
)

type recordingSweeper struct {
	tenants []uuid.UUID
	asOf    []time.Time
	err     error
}

func (s *recordingSweeper) MarkOverdue(ctx context.Context, asOf time.Time) ([]*invoices.Invoice, error) {
	if s.err != nil {
		return nil, s.err
	}
	tenantID, err := tenancy.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	s.tenants = append(s.tenants, tenantID)
	s.asOf = append(s.asOf, asOf)
	return []*invoices.Invoice{{Number: "INV-2024-0001"}}, nil
}

func TestWorkerPublishesScheduledPost(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	scheduler := cscheduler.NewInMemory(cscheduler.WithClock(clock))
	posts := blog.NewService(blog.NewMemoryRepository(), blog.WithClock(clock), blog.WithScheduler(scheduler))
	audit := jobs.NewInMemoryAuditRecorder()
	hook := &activity.CaptureHook{}
	emitter := activity.NewEmitter(activity.Hooks{hook}, activity.Config{Enabled: true})
	worker := jobs.NewWorker(scheduler, posts, nil,
		jobs.WithAuditRecorder(audit),
		jobs.WithActivityEmitter(emitter),
		jobs.WithClock(clock),
	)

	actor := uuid.New()
	post, err := posts.Create(ctx, blog.CreatePostInput{Title: "Deck Season"})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	runAt := now.Add(time.Hour)
	if _, err := posts.Schedule(tenancy.WithActor(ctx, actor), post.ID, runAt); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	if result, err := worker.Process(ctx); err != nil || result.Processed != 0 {
		t.Fatalf("expected nothing due yet, got %+v %v", result, err)
	}

	now = runAt.Add(time.Minute)
	result, err := worker.Process(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Processed != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	published, err := posts.Get(ctx, post.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if published.Status != blog.StatusPublished || !published.PublishedAt.Equal(runAt) {
		t.Fatalf("unexpected post after job %+v", published)
	}

	events := audit.Events()
	if len(events) != 1 || events[0].Action != "publish" || events[0].Metadata["scheduled_by"] != actor.String() {
		t.Fatalf("unexpected audit events %+v", events)
	}

	var jobEvent *activity.Event
	for i := range hook.Events {
		if hook.Events[i].Channel == "jobs" {
			jobEvent = &hook.Events[i]
		}
	}
	if jobEvent == nil || jobEvent.Verb != "publish" || jobEvent.ActorID != actor.String() {
		t.Fatalf("expected job activity event, got %+v", hook.Events)
	}

	job, err := scheduler.GetByKey(ctx, cscheduler.PostPublishJobKey(post.ID))
	if !errors.Is(err, interfaces.ErrJobNotFound) {
		t.Fatalf("expected completed job to release its key, got %+v %v", job, err)
	}
}

func TestWorkerRunsOverdueSweepInTenantScope(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 2, 0, 5, 0, 0, time.UTC)
	scheduler := cscheduler.NewInMemory(cscheduler.WithClock(func() time.Time { return now }))
	sweeper := &recordingSweeper{}
	audit := jobs.NewInMemoryAuditRecorder()
	worker := jobs.NewWorker(scheduler, nil, sweeper, jobs.WithAuditRecorder(audit), jobs.WithClock(func() time.Time { return now }))

	tenantID := uuid.New()
	if _, err := scheduler.Enqueue(ctx, interfaces.JobSpec{
		Key:      cscheduler.OverdueSweepJobKey(tenantID, now),
		Type:     cscheduler.JobTypeOverdueSweep,
		RunAt:    now.Add(-time.Minute),
		TenantID: tenantID.String(),
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	result, err := worker.Process(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(sweeper.tenants) != 1 || sweeper.tenants[0] != tenantID || !sweeper.asOf[0].Equal(now) {
		t.Fatalf("unexpected sweep calls %+v", sweeper)
	}
	events := audit.Events()
	if len(events) != 1 || events[0].Action != "overdue_sweep" || events[0].Metadata["marked"] != 1 {
		t.Fatalf("unexpected audit events %+v", events)
	}
}

func TestWorkerRetriesFailedJobs(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	scheduler := cscheduler.NewInMemory(cscheduler.WithClock(func() time.Time { return now }))
	sweeper := &recordingSweeper{err: errors.New("database down")}
	worker := jobs.NewWorker(scheduler, nil, sweeper, jobs.WithClock(func() time.Time { return now }))

	job, _ := scheduler.Enqueue(ctx, interfaces.JobSpec{
		Key:      "sweep",
		Type:     cscheduler.JobTypeOverdueSweep,
		RunAt:    now,
		TenantID: uuid.NewString(),
	})
	unknown, _ := scheduler.Enqueue(ctx, interfaces.JobSpec{Key: "mystery", Type: "mystery.job", RunAt: now})

	result, err := worker.Process(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Failed != 2 || result.Processed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	stored, _ := scheduler.Get(ctx, job.ID)
	if stored.Attempt != 1 || stored.LastError != "database down" || stored.Status != interfaces.JobStatusPending {
		t.Fatalf("unexpected retried job %+v", stored)
	}
	mystery, _ := scheduler.Get(ctx, unknown.ID)
	if mystery.LastError == "" {
		t.Fatalf("expected unknown job type to be reported")
	}
}

func TestInMemoryAuditRecorderCapacity(t *testing.T) {
	recorder := jobs.NewInMemoryAuditRecorder(2)
	for _, action := range []string{"a", "b", "c"} {
		_ = recorder.Record(context.Background(), jobs.AuditEvent{Action: action})
	}
	events := recorder.Events()
	if len(events) != 2 || events[0].Action != "b" || events[1].Action != "c" {
		t.Fatalf("expected the newest two events, got %+v", events)
	}
}
