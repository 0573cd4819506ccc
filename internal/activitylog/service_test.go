package activitylog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-contractor/internal/activitylog"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/google/uuid"
)

func TestHookPersistsEventsWithoutRecordSnapshot(t *testing.T) {
	repo := activitylog.NewMemoryRepository()
	tenantID := uuid.New()
	actorID := uuid.New()
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	clock := base

	emitter := activity.NewEmitter(activity.Hooks{activitylog.Hook{Repo: repo}}, activity.Config{Enabled: true}).
		WithClock(func() time.Time { return clock })

	ctx := tenancy.WithActor(tenancy.WithTenant(context.Background(), tenantID), actorID)
	invoiceID := uuid.New()
	for _, verb := range []string{"created", "sent"} {
		event := tenancy.ActivityEvent(ctx, verb, "invoice", invoiceID, map[string]any{
			"number":                   "INV-2024-0001",
			activity.RecordMetadataKey: map[string]any{"id": invoiceID.String()},
		})
		if err := emitter.Emit(ctx, event); err != nil {
			t.Fatalf("emit %s: %v", verb, err)
		}
		clock = clock.Add(time.Minute)
	}

	svc := activitylog.NewService(repo)
	entries, err := svc.List(ctx, activitylog.Filter{ObjectID: invoiceID.String()})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Verb != "sent" {
		t.Fatalf("expected newest first, got %s", entries[0].Verb)
	}
	if entries[0].ActorID != actorID || entries[0].TenantID != tenantID {
		t.Fatalf("unexpected actor/tenant %+v", entries[0])
	}
	if _, ok := entries[0].Data[activity.RecordMetadataKey]; ok {
		t.Fatalf("expected record snapshot to be dropped")
	}
	if entries[0].Data["number"] != "INV-2024-0001" {
		t.Fatalf("expected metadata kept, got %+v", entries[0].Data)
	}

	other := tenancy.WithTenant(context.Background(), uuid.New())
	none, err := svc.List(other, activitylog.Filter{})
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no entries for another tenant, got %d (%v)", len(none), err)
	}
}

func TestServiceFiltersAndPrunes(t *testing.T) {
	repo := activitylog.NewMemoryRepository()
	tenantID := uuid.New()
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	for i, verb := range []string{"created", "updated", "deleted"} {
		err := repo.Append(context.Background(), &activitylog.Entry{
			ID:         uuid.New(),
			TenantID:   tenantID,
			Verb:       verb,
			ObjectType: "client",
			ObjectID:   "c-1",
			OccurredAt: now.AddDate(0, 0, -10*(3-i)),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	svc := activitylog.NewService(repo, activitylog.WithClock(func() time.Time { return now }))
	ctx := tenancy.WithTenant(context.Background(), tenantID)

	updates, err := svc.List(ctx, activitylog.Filter{Verb: "updated"})
	if err != nil || len(updates) != 1 {
		t.Fatalf("expected one update entry, got %d (%v)", len(updates), err)
	}

	since := now.AddDate(0, 0, -15)
	recent, err := svc.List(ctx, activitylog.Filter{Since: &since})
	if err != nil || len(recent) != 1 || recent[0].Verb != "deleted" {
		t.Fatalf("expected only the latest entry since cutoff, got %+v (%v)", recent, err)
	}

	if _, err := svc.Prune(context.Background(), time.Hour); !errors.Is(err, activitylog.ErrRetentionInvalid) {
		t.Fatalf("expected ErrRetentionInvalid, got %v", err)
	}
	removed, err := svc.Prune(context.Background(), 25*24*time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 entry pruned, got %d", removed)
	}
	left, _ := svc.List(ctx, activitylog.Filter{})
	if len(left) != 2 {
		t.Fatalf("expected 2 entries left, got %d", len(left))
	}
}

func TestListRequiresTenant(t *testing.T) {
	svc := activitylog.NewService(activitylog.NewMemoryRepository())
	if _, err := svc.List(context.Background(), activitylog.Filter{}); !errors.Is(err, tenancy.ErrTenantRequired) {
		t.Fatalf("expected ErrTenantRequired, got %v", err)
	}
}
