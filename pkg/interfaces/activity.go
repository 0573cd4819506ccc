package interfaces

import (
	"context"

	usertypes "github.com/goliatone/go-users/pkg/types"
)

// ActivityRecord mirrors the go-users activity record so hosts that already
// persist user activity can receive contractor events unchanged.
type ActivityRecord = usertypes.ActivityRecord

// ActivitySink captures activity records; it satisfies the go-users
// ActivitySink contract.
type ActivitySink interface {
	Log(ctx context.Context, record ActivityRecord) error
}
