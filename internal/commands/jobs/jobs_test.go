package jobscmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-contractor/internal/jobs"
	"github.com/goliatone/go-contractor/internal/logging"
	goerrors "github.com/goliatone/go-errors"
)

type stubWorker struct {
	result     jobs.ProcessResult
	processErr error
	calls      int
}

func (s *stubWorker) Process(context.Context) (jobs.ProcessResult, error) {
	s.calls++
	return s.result, s.processErr
}

type stubAuditLog struct {
	events     []jobs.AuditEvent
	listErr    error
	clearErr   error
	listCalls  int
	clearCalls int
}

func (s *stubAuditLog) List(context.Context) ([]jobs.AuditEvent, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	copyEvents := make([]jobs.AuditEvent, len(s.events))
	copy(copyEvents, s.events)
	return copyEvents, nil
}

func (s *stubAuditLog) Clear(context.Context) error {
	s.clearCalls++
	return s.clearErr
}

func TestProcessJobsHandlerInvokesWorker(t *testing.T) {
	worker := &stubWorker{result: jobs.ProcessResult{Processed: 2}}
	handler := NewProcessJobsHandler(worker, logging.NoOp())

	if err := handler.Execute(context.Background(), ProcessJobsCommand{}); err != nil {
		t.Fatalf("process execute: %v", err)
	}
	if worker.calls != 1 {
		t.Fatalf("expected worker to be called once, got %d", worker.calls)
	}
	if err := handler.CronHandler()(); err != nil {
		t.Fatalf("cron handler: %v", err)
	}
	if worker.calls != 2 {
		t.Fatalf("expected cron handler to call worker, got %d", worker.calls)
	}
	if handler.CronOptions().Expression != DefaultProcessCron {
		t.Fatalf("unexpected cron expression %q", handler.CronOptions().Expression)
	}
}

func TestProcessJobsHandlerPropagatesError(t *testing.T) {
	worker := &stubWorker{processErr: errors.New("boom")}
	handler := NewProcessJobsHandler(worker, logging.NoOp(), ProcessWithCronExpression("@every 5m"))

	err := handler.Execute(context.Background(), ProcessJobsCommand{})
	if !errors.Is(err, worker.processErr) {
		t.Fatalf("expected worker error, got %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if handler.CronOptions().Expression != "@every 5m" {
		t.Fatalf("expected overridden cron, got %q", handler.CronOptions().Expression)
	}
}

func TestExportAuditRespectsLimitAndValidation(t *testing.T) {
	log := &stubAuditLog{
		events: []jobs.AuditEvent{
			{EntityType: "post", EntityID: "1", Action: "publish", OccurredAt: time.Now()},
			{EntityType: "invoice", EntityID: "2", Action: "overdue_sweep", OccurredAt: time.Now()},
		},
	}
	handlers := NewAuditHandlers(log, logging.NoOp(), 0)
	limit := 1
	if err := handlers.Export.Execute(context.Background(), ExportAuditCommand{MaxRecords: &limit}); err != nil {
		t.Fatalf("export execute: %v", err)
	}
	if log.listCalls != 1 {
		t.Fatalf("expected list to be called once, got %d", log.listCalls)
	}

	negative := -1
	err := handlers.Export.Execute(context.Background(), ExportAuditCommand{MaxRecords: &negative})
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCleanupAuditDryRunAndClear(t *testing.T) {
	log := &stubAuditLog{events: []jobs.AuditEvent{{EntityType: "post", EntityID: "1"}}}
	handlers := NewAuditHandlers(log, logging.NoOp(), time.Second)

	if err := handlers.Cleanup.Execute(context.Background(), CleanupAuditCommand{DryRun: true}); err != nil {
		t.Fatalf("cleanup dry run: %v", err)
	}
	if log.clearCalls != 0 {
		t.Fatalf("expected clear not to be called, got %d", log.clearCalls)
	}
	if err := handlers.Cleanup.Execute(context.Background(), CleanupAuditCommand{}); err != nil {
		t.Fatalf("cleanup execute: %v", err)
	}
	if log.clearCalls != 1 {
		t.Fatalf("expected clear calls 1, got %d", log.clearCalls)
	}

	log.clearErr = errors.New("clear boom")
	if err := handlers.Cleanup.Execute(context.Background(), CleanupAuditCommand{}); !errors.Is(err, log.clearErr) {
		t.Fatalf("expected clear error, got %v", err)
	}
}
