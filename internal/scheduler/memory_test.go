package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-contractor/pkg/interfaces"
	"github.com/google/uuid"
)

func newTestScheduler(now *time.Time) interfaces.Scheduler {
	counter := 0
	return NewInMemory(
		WithClock(func() time.Time { return *now }),
		WithIDGenerator(func() string {
			counter++
			return fmt.Sprintf("job-%d", counter)
		}),
		WithRetryDelay(time.Minute),
		WithDefaultMaxAttempts(2),
	)
}

func TestEnqueueReplacesJobWithSameKey(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sched := newTestScheduler(&now)
	ctx := context.Background()
	postID := uuid.New()

	first, err := sched.Enqueue(ctx, interfaces.JobSpec{Key: PostPublishJobKey(postID), Type: JobTypePostPublish, RunAt: now.Add(time.Hour)})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	second, err := sched.Enqueue(ctx, interfaces.JobSpec{Key: PostPublishJobKey(postID), Type: JobTypePostPublish, RunAt: now.Add(2 * time.Hour)})
	if err != nil {
		t.Fatalf("enqueue again: %v", err)
	}

	if _, err := sched.Get(ctx, first.ID); !errors.Is(err, interfaces.ErrJobNotFound) {
		t.Fatalf("expected replaced job to be gone, got %v", err)
	}
	stored, err := sched.GetByKey(ctx, PostPublishJobKey(postID))
	if err != nil {
		t.Fatalf("get by key: %v", err)
	}
	if stored.ID != second.ID || !stored.RunAt.Equal(now.Add(2*time.Hour)) {
		t.Fatalf("unexpected stored job: %+v", stored)
	}
	if stored.MaxAttempts != 2 {
		t.Fatalf("expected default max attempts, got %d", stored.MaxAttempts)
	}
}

func TestEnqueueRequiresRunAt(t *testing.T) {
	now := time.Now()
	if _, err := newTestScheduler(&now).Enqueue(context.Background(), interfaces.JobSpec{Type: JobTypeOverdueSweep}); !errors.Is(err, ErrRunAtRequired) {
		t.Fatalf("expected ErrRunAtRequired, got %v", err)
	}
}

func TestListDueOrdersByRunAt(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sched := newTestScheduler(&now)
	ctx := context.Background()
	tenant := uuid.New()

	_, _ = sched.Enqueue(ctx, interfaces.JobSpec{Key: "late", Type: JobTypeOverdueSweep, RunAt: now.Add(-time.Minute), TenantID: tenant.String()})
	_, _ = sched.Enqueue(ctx, interfaces.JobSpec{Key: "early", Type: JobTypeOverdueSweep, RunAt: now.Add(-time.Hour)})
	_, _ = sched.Enqueue(ctx, interfaces.JobSpec{Key: "future", Type: JobTypeOverdueSweep, RunAt: now.Add(time.Hour)})

	due, err := sched.ListDue(ctx, now, 10)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 2 || due[0].Key != "early" || due[1].Key != "late" {
		t.Fatalf("unexpected due jobs: %+v", due)
	}
	if due[1].TenantID != tenant.String() {
		t.Fatalf("expected tenant id to be kept, got %q", due[1].TenantID)
	}
}

func TestMarkFailedBacksOffThenGivesUp(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sched := newTestScheduler(&now)
	ctx := context.Background()

	job, _ := sched.Enqueue(ctx, interfaces.JobSpec{Key: "k", Type: JobTypePostPublish, RunAt: now})
	if err := sched.MarkFailed(ctx, job.ID, errors.New("boom")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	retry, _ := sched.Get(ctx, job.ID)
	if retry.Status != interfaces.JobStatusPending || retry.Attempt != 1 || retry.LastError != "boom" {
		t.Fatalf("unexpected job after first failure: %+v", retry)
	}
	if !retry.RunAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("expected backoff to push run at, got %v", retry.RunAt)
	}
	if due, _ := sched.ListDue(ctx, now, 0); len(due) != 0 {
		t.Fatalf("expected job to wait for its backoff")
	}

	_ = sched.MarkFailed(ctx, job.ID, errors.New("boom again"))
	failed, _ := sched.Get(ctx, job.ID)
	if failed.Status != interfaces.JobStatusFailed {
		t.Fatalf("expected failed status, got %s", failed.Status)
	}
	if _, err := sched.GetByKey(ctx, "k"); !errors.Is(err, interfaces.ErrJobNotFound) {
		t.Fatalf("expected key to be released after final failure")
	}
}

func TestCancelByKey(t *testing.T) {
	now := time.Now()
	sched := newTestScheduler(&now)
	ctx := context.Background()
	job, _ := sched.Enqueue(ctx, interfaces.JobSpec{Key: "k", Type: JobTypePostPublish, RunAt: now})

	if err := sched.CancelByKey(ctx, "k"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	stored, _ := sched.Get(ctx, job.ID)
	if stored.Status != interfaces.JobStatusCanceled {
		t.Fatalf("expected canceled, got %s", stored.Status)
	}
	if err := sched.CancelByKey(ctx, "k"); !errors.Is(err, interfaces.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound on second cancel, got %v", err)
	}
}

func TestOverdueSweepJobKeyIsDaily(t *testing.T) {
	tenant := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	morning := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
	if OverdueSweepJobKey(tenant, morning) != OverdueSweepJobKey(tenant, evening) {
		t.Fatalf("expected same key within a day")
	}
	if OverdueSweepJobKey(tenant, morning) != "invoices:11111111-1111-1111-1111-111111111111:overdue:2024-03-01" {
		t.Fatalf("unexpected key %s", OverdueSweepJobKey(tenant, morning))
	}
}
