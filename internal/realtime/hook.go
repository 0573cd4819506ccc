package realtime

import (
	"context"
	"strings"

	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/google/uuid"
)

// Hook bridges activity events into broker changes. Events without a tenant
// are skipped.
type Hook struct {
	Broker *Broker
}

var _ activity.Hook = Hook{}

func (h Hook) Notify(_ context.Context, event activity.Event) error {
	if h.Broker == nil {
		return nil
	}
	tenantID, err := uuid.Parse(strings.TrimSpace(event.TenantID))
	if err != nil || tenantID == uuid.Nil {
		return nil
	}
	var record any
	if event.Metadata != nil {
		record = event.Metadata[activity.RecordMetadataKey]
	}
	h.Broker.Publish(Change{
		TenantID:   tenantID,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Type:       changeType(event.Verb),
		Verb:       event.Verb,
		Record:     record,
		OccurredAt: event.OccurredAt,
	})
	return nil
}

func changeType(verb string) ChangeType {
	switch verb {
	case "created":
		return ChangeInsert
	case "deleted":
		return ChangeDelete
	default:
		return ChangeUpdate
	}
}
