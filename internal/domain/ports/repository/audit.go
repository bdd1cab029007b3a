package repository

import (
	"context"
	"time"

	"mentor-payments-core/internal/domain/model"
)

// AuditLogRepository is append-only; entries are never updated. The retention
// sweep is the only deletion path and it treats payment/safety entries with a
// far longer horizon than generic ones.
type AuditLogRepository interface {
	Save(ctx context.Context, qx Tx, e *model.AuditLogEntry) error
	ListByResource(ctx context.Context, qx Tx, resource, resourceID string, limit int) ([]*model.AuditLogEntry, error)
	// PurgeOlderThan deletes entries of the given category created before the
	// cutoff and returns the number removed.
	PurgeOlderThan(ctx context.Context, qx Tx, category model.AuditCategory, cutoff time.Time) (int64, error)
}
