package realtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-contractor/internal/realtime"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan realtime.Change) realtime.Change {
	t.Helper()
	select {
	case change, ok := <-ch:
		require.True(t, ok, "channel closed")
		return change
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for change")
	}
	return realtime.Change{}
}

func TestBrokerIsolatesTenants(t *testing.T) {
	broker := realtime.NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	acme, other := uuid.New(), uuid.New()
	acmeCh, err := broker.Subscribe(ctx, acme)
	require.NoError(t, err)
	otherCh, err := broker.Subscribe(ctx, other)
	require.NoError(t, err)

	delivered := broker.Publish(realtime.Change{TenantID: acme, ObjectType: "invoice", ObjectID: "1", Type: realtime.ChangeInsert})
	require.Equal(t, 1, delivered)

	change := receive(t, acmeCh)
	require.Equal(t, "invoice", change.ObjectType)
	require.False(t, change.OccurredAt.IsZero())

	select {
	case leaked := <-otherCh:
		t.Fatalf("other tenant received %+v", leaked)
	default:
	}
}

func TestBrokerFiltersObjectTypes(t *testing.T) {
	broker := realtime.NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tenantID := uuid.New()

	ch, err := broker.Subscribe(ctx, tenantID, "expense")
	require.NoError(t, err)

	require.Equal(t, 0, broker.Publish(realtime.Change{TenantID: tenantID, ObjectType: "invoice", ObjectID: "1"}))
	require.Equal(t, 1, broker.Publish(realtime.Change{TenantID: tenantID, ObjectType: "expense", ObjectID: "2"}))
	require.Equal(t, "2", receive(t, ch).ObjectID)
}

func TestBrokerDropsForSlowSubscribers(t *testing.T) {
	broker := realtime.NewBroker(realtime.WithBufferSize(1))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tenantID := uuid.New()

	_, err := broker.Subscribe(ctx, tenantID)
	require.NoError(t, err)

	require.Equal(t, 1, broker.Publish(realtime.Change{TenantID: tenantID, ObjectType: "client", ObjectID: "a"}))
	require.Equal(t, 0, broker.Publish(realtime.Change{TenantID: tenantID, ObjectType: "client", ObjectID: "b"}))

	stats := broker.Stats()
	require.EqualValues(t, 1, stats.Dropped)
	require.EqualValues(t, 2, stats.Published)
}

func TestSubscriptionClosesWithContext(t *testing.T) {
	broker := realtime.NewBroker()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := broker.Subscribe(ctx, uuid.New())
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatalf("subscription did not close")
	}
	require.Eventually(t, func() bool { return broker.Stats().Subscribers == 0 }, time.Second, 10*time.Millisecond)

	_, err = broker.Subscribe(context.Background(), uuid.Nil)
	require.ErrorIs(t, err, realtime.ErrTenantRequired)
}

func TestCloseReleasesLiveSubscriptions(t *testing.T) {
	broker := realtime.NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := broker.Subscribe(ctx, uuid.New(), "invoice")
	require.NoError(t, err)

	closed := make(chan struct{})
	go func() {
		broker.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatalf("close waited on a subscription whose context is still live")
	}

	_, ok := <-ch
	require.False(t, ok)
	require.Equal(t, 0, broker.Stats().Subscribers)

	_, err = broker.Subscribe(ctx, uuid.New())
	require.ErrorIs(t, err, realtime.ErrBrokerClosed)
}

func TestHookBridgesActivityEvents(t *testing.T) {
	broker := realtime.NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tenantID := uuid.New()

	ch, err := broker.Subscribe(ctx, tenantID)
	require.NoError(t, err)

	emitter := activity.NewEmitter(activity.Hooks{realtime.Hook{Broker: broker}}, activity.Config{Enabled: true})
	tenantCtx := tenancy.WithTenant(context.Background(), tenantID)
	objectID := uuid.New()
	record := map[string]any{"name": "Kitchen"}
	require.NoError(t, emitter.Emit(tenantCtx, tenancy.ActivityEvent(tenantCtx, "deleted", "project", objectID, map[string]any{
		activity.RecordMetadataKey: record,
	})))

	change := receive(t, ch)
	require.Equal(t, realtime.ChangeDelete, change.Type)
	require.Equal(t, objectID.String(), change.ObjectID)
	require.Equal(t, record, change.Record)
}
