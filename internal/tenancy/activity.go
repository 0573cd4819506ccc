package tenancy

import (
	"context"

	"github.com/goliatone/go-contractor/pkg/activity"
	"github.com/google/uuid"
)

// RecordMetadataKey is the metadata key services use for record snapshots.
const RecordMetadataKey = activity.RecordMetadataKey

// ActivityEvent builds an activity event stamped with the tenant and actor
// carried by ctx.
func ActivityEvent(ctx context.Context, verb, objectType string, objectID uuid.UUID, meta map[string]any) activity.Event {
	event := activity.Event{
		Verb:       verb,
		ObjectType: objectType,
		ObjectID:   objectID.String(),
		Metadata:   meta,
	}
	if tenantID, ok := TenantID(ctx); ok {
		event.TenantID = tenantID.String()
	}
	if actor := ActorID(ctx); actor != uuid.Nil {
		event.ActorID = actor.String()
	}
	return event
}
