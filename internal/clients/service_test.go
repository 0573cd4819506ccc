package clients_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-contractor/internal/clients"
	"github.com/goliatone/go-contractor/internal/permissions"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/google/uuid"
)

func tenantContext(tenantID uuid.UUID) context.Context {
	return tenancy.WithActor(tenancy.WithTenant(context.Background(), tenantID), uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"))
}

func TestServiceCreateRequiresTenant(t *testing.T) {
	svc := clients.NewService(clients.NewMemoryRepository())

	_, err := svc.Create(context.Background(), clients.CreateClientInput{Name: "Jane"})
	if !errors.Is(err, tenancy.ErrTenantRequired) {
		t.Fatalf("expected ErrTenantRequired, got %v", err)
	}
}

func TestServiceCreateValidatesInput(t *testing.T) {
	svc := clients.NewService(clients.NewMemoryRepository())
	ctx := tenantContext(uuid.New())

	if _, err := svc.Create(ctx, clients.CreateClientInput{Name: "  "}); !errors.Is(err, clients.ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
	if _, err := svc.Create(ctx, clients.CreateClientInput{Name: "Jane", Email: "not-an-email"}); !errors.Is(err, clients.ErrEmailInvalid) {
		t.Fatalf("expected ErrEmailInvalid, got %v", err)
	}
}

func TestServiceEmailUniquePerTenant(t *testing.T) {
	svc := clients.NewService(clients.NewMemoryRepository())
	tenantA := tenantContext(uuid.New())
	tenantB := tenantContext(uuid.New())

	if _, err := svc.Create(tenantA, clients.CreateClientInput{Name: "Jane", Email: "Jane@Example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(tenantA, clients.CreateClientInput{Name: "Janet", Email: "jane@example.com"}); !errors.Is(err, clients.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
	if _, err := svc.Create(tenantB, clients.CreateClientInput{Name: "Jane", Email: "jane@example.com"}); err != nil {
		t.Fatalf("expected other tenant to reuse email, got %v", err)
	}
}

func TestServiceTenantIsolation(t *testing.T) {
	svc := clients.NewService(clients.NewMemoryRepository())
	tenantA := tenantContext(uuid.New())
	tenantB := tenantContext(uuid.New())

	created, err := svc.Create(tenantA, clients.CreateClientInput{Name: "Hidden"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Get(tenantB, created.ID)
	var notFound *clients.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError across tenants, got %v", err)
	}
	list, total, err := svc.List(tenantB, clients.ListOptions{})
	if err != nil || total != 0 || len(list) != 0 {
		t.Fatalf("expected empty list for other tenant, got %d (%v)", total, err)
	}
}

func TestServiceUpdateAndSoftDelete(t *testing.T) {
	hook := &activity.CaptureHook{}
	now := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)
	svc := clients.NewService(clients.NewMemoryRepository(),
		clients.WithClock(func() time.Time { return now }),
		clients.WithActivityEmitter(activity.NewEmitter(activity.Hooks{hook}, activity.Config{Enabled: true})),
	)
	ctx := tenantContext(uuid.New())

	created, err := svc.Create(ctx, clients.CreateClientInput{Name: "Bob", Country: "us"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Country != "US" {
		t.Fatalf("expected upper-cased country, got %q", created.Country)
	}

	company := "Bob's Decks"
	updated, err := svc.Update(ctx, clients.UpdateClientInput{ID: created.ID, CompanyName: &company})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.DisplayName() != company {
		t.Fatalf("expected display name %q, got %q", company, updated.DisplayName())
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); err == nil {
		t.Fatalf("expected deleted client to be hidden")
	}

	events := hook.Snapshot()
	if len(events) != 3 {
		t.Fatalf("expected 3 activity events, got %d", len(events))
	}
	verbs := []string{events[0].Verb, events[1].Verb, events[2].Verb}
	if verbs[0] != "created" || verbs[1] != "updated" || verbs[2] != "deleted" {
		t.Fatalf("unexpected verbs %v", verbs)
	}
	if events[0].ObjectType != "client" || events[0].TenantID == "" || events[0].ActorID == "" {
		t.Fatalf("expected tenant and actor on event, got %+v", events[0])
	}
}

func TestServiceListSearchAndPaging(t *testing.T) {
	svc := clients.NewService(clients.NewMemoryRepository())
	ctx := tenantContext(uuid.New())
	for _, name := range []string{"Alpha Roofing", "Beta Plumbing", "Gamma Roofing"} {
		if _, err := svc.Create(ctx, clients.CreateClientInput{Name: name}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	list, total, err := svc.List(ctx, clients.ListOptions{Search: "roof", Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(list) != 1 || list[0].Name != "Alpha Roofing" {
		t.Fatalf("unexpected page: total=%d items=%v", total, list)
	}
}

func TestServiceRespectsPermissions(t *testing.T) {
	svc := clients.NewService(clients.NewMemoryRepository())
	ctx := permissions.WithPermissions(tenantContext(uuid.New()), permissions.RoleViewer)

	_, err := svc.Create(ctx, clients.CreateClientInput{Name: "Nope"})
	if !errors.Is(err, permissions.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}
