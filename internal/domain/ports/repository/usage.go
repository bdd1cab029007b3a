package repository

import (
	"context"

	"mentor-payments-core/internal/domain/model"
)

// UsageRepository persists hourly-session usage tracking. Settle and Cancel
// are conditional on status='active' so a record is finalized exactly once.
type UsageRepository interface {
	Save(ctx context.Context, qx Tx, u *model.UsageTracking) error
	FindBySessionID(ctx context.Context, qx Tx, sessionID string) (*model.UsageTracking, error)
	// Settle transitions active -> completed, recording the actual duration
	// and final cost. Returns false if the record was not active.
	Settle(ctx context.Context, qx Tx, id string, actualMinutes int, totalCost int64) (bool, error)
	// Cancel transitions active -> cancelled.
	Cancel(ctx context.Context, qx Tx, id string) (bool, error)
}
