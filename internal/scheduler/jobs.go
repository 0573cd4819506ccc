package scheduler

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobTypePostPublish  = "blog.post.publish"
	JobTypeOverdueSweep = "invoices.overdue.sweep"
)

func PostPublishJobKey(id uuid.UUID) string {
	return "post:" + id.String() + ":publish"
}

// OverdueSweepJobKey keeps at most one pending sweep per tenant and day.
func OverdueSweepJobKey(tenantID uuid.UUID, day time.Time) string {
	return "invoices:" + tenantID.String() + ":overdue:" + day.UTC().Format("2006-01-02")
}
