package jobs

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/goliatone/go-contractor/internal/blog"
	"github.com/goliatone/go-contractor/internal/invoices"
	"github.com/goliatone/go-contractor/internal/logging"
	cscheduler "github.com/goliatone/go-contractor/internal/scheduler"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	"github.com/google/uuid"
)

var ErrUnknownJobType = errors.New("jobs: unknown job type")

// PostPublisher publishes posts whose schedule came due.
type PostPublisher interface {
	PublishScheduled(ctx context.Context, id uuid.UUID) (*blog.Post, error)
}

// OverdueSweeper marks the context tenant's late invoices overdue.
type OverdueSweeper interface {
	MarkOverdue(ctx context.Context, asOf time.Time) ([]*invoices.Invoice, error)
}

// Worker drains due scheduler jobs.
type Worker struct {
	scheduler interfaces.Scheduler
	posts     PostPublisher
	invoices  OverdueSweeper
	audit     AuditRecorder
	activity  *activity.Emitter
	logger    interfaces.Logger
	now       func() time.Time
	batchSize int
}

type Option func(*Worker)

func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(w *Worker) {
		w.audit = recorder
	}
}

func WithActivityEmitter(emitter *activity.Emitter) Option {
	return func(w *Worker) {
		if emitter != nil {
			w.activity = emitter
		}
	}
}

func WithLogger(logger interfaces.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(w *Worker) {
		if clock != nil {
			w.now = clock
		}
	}
}

func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

func NewWorker(scheduler interfaces.Scheduler, posts PostPublisher, sweeper OverdueSweeper, opts ...Option) *Worker {
	w := &Worker{
		scheduler: scheduler,
		posts:     posts,
		invoices:  sweeper,
		logger:    logging.NoOp(),
		now:       time.Now,
		batchSize: 50,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ProcessResult counts the jobs handled by one Process call.
type ProcessResult struct {
	Processed int
	Failed    int
}

// Process runs every job due at the worker clock. Failed jobs are handed back
// to the scheduler for retry; Process itself only fails when jobs cannot be listed.
func (w *Worker) Process(ctx context.Context) (ProcessResult, error) {
	var result ProcessResult
	if w.scheduler == nil {
		return result, errors.New("jobs: scheduler is nil")
	}
	deadline := w.now()
	jobs, err := w.scheduler.ListDue(ctx, deadline, w.batchSize)
	if err != nil {
		return result, err
	}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if err := w.handleJob(ctx, job, deadline); err != nil {
			result.Failed++
			w.logger.Warn("job.failed", "job_id", job.ID, "job_type", job.Type, "attempt", job.Attempt+1, "error", err)
			_ = w.scheduler.MarkFailed(ctx, job.ID, err)
			continue
		}
		result.Processed++
		_ = w.scheduler.MarkDone(ctx, job.ID)
	}
	return result, nil
}

func (w *Worker) handleJob(ctx context.Context, job *interfaces.Job, now time.Time) error {
	switch job.Type {
	case cscheduler.JobTypePostPublish:
		return w.processPostPublish(ctx, job, now)
	case cscheduler.JobTypeOverdueSweep:
		return w.processOverdueSweep(ctx, job, now)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
	}
}

func (w *Worker) processPostPublish(ctx context.Context, job *interfaces.Job, now time.Time) error {
	if w.posts == nil {
		return errors.New("jobs: post publisher is nil")
	}
	id, err := jobPayload(job.Payload).uuid("post_id")
	if err != nil {
		return err
	}
	actor := jobPayload(job.Payload).actor()
	if actor != uuid.Nil {
		ctx = tenancy.WithActor(ctx, actor)
	}
	post, err := w.posts.PublishScheduled(ctx, id)
	if err != nil {
		return err
	}
	w.recordAudit(ctx, AuditEvent{
		EntityType: "post",
		EntityID:   id.String(),
		Action:     "publish",
		OccurredAt: now,
		Metadata:   auditMetadata(job, nil),
	})
	w.emitActivity(ctx, actor, "publish", "post", id, map[string]any{
		"job_id":       job.ID,
		"job_type":     job.Type,
		"status":       string(post.Status),
		"published_at": post.PublishedAt,
	})
	return nil
}

func (w *Worker) processOverdueSweep(ctx context.Context, job *interfaces.Job, now time.Time) error {
	if w.invoices == nil {
		return errors.New("jobs: overdue sweeper is nil")
	}
	tenantID, err := uuid.Parse(job.TenantID)
	if err != nil {
		return fmt.Errorf("jobs: overdue sweep needs a tenant: %w", err)
	}
	ctx = tenancy.WithTenant(ctx, tenantID)

	marked, err := w.invoices.MarkOverdue(ctx, now)
	if err != nil {
		return err
	}
	numbers := make([]string, len(marked))
	for i, inv := range marked {
		numbers[i] = inv.Number
	}
	w.recordAudit(ctx, AuditEvent{
		EntityType: "tenant",
		EntityID:   tenantID.String(),
		Action:     "overdue_sweep",
		OccurredAt: now,
		Metadata:   auditMetadata(job, map[string]any{"marked": len(marked), "numbers": numbers}),
	})
	w.logger.Info("invoices.overdue.swept", "tenant_id", tenantID, "marked", len(marked))
	return nil
}

func (w *Worker) emitActivity(ctx context.Context, actor uuid.UUID, verb, objectType string, objectID uuid.UUID, meta map[string]any) {
	if w.activity == nil || !w.activity.Enabled() || objectID == uuid.Nil {
		return
	}
	_ = w.activity.Emit(ctx, activity.Event{
		Verb:       verb,
		ActorID:    actor.String(),
		ObjectType: objectType,
		ObjectID:   objectID.String(),
		Channel:    "jobs",
		Metadata:   meta,
	})
}

func (w *Worker) recordAudit(ctx context.Context, event AuditEvent) {
	if w.audit == nil {
		return
	}
	if err := w.audit.Record(ctx, event); err != nil {
		w.logger.Warn("job.audit.failed", "entity", event.EntityType, "action", event.Action, "error", err)
	}
}

// jobPayload reads identifiers stored as strings by the enqueueing service.
type jobPayload map[string]any

func (p jobPayload) uuid(key string) (uuid.UUID, error) {
	raw, ok := p[key]
	if !ok {
		return uuid.Nil, fmt.Errorf("jobs: payload missing %s", key)
	}
	str, ok := raw.(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("jobs: invalid %s payload", key)
	}
	return uuid.Parse(str)
}

// actor is uuid.Nil when the job was not scheduled by a known user.
func (p jobPayload) actor() uuid.UUID {
	id, err := p.uuid("scheduled_by")
	if err != nil {
		return uuid.Nil
	}
	return id
}

func auditMetadata(job *interfaces.Job, extra map[string]any) map[string]any {
	meta := map[string]any{
		"job_id":   job.ID,
		"job_type": job.Type,
		"run_at":   job.RunAt,
		"attempt":  job.Attempt,
	}
	if actor := jobPayload(job.Payload).actor(); actor != uuid.Nil {
		meta["scheduled_by"] = actor.String()
	}
	maps.Copy(meta, extra)
	return meta
}
