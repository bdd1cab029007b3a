package repository

import (
	"context"
	"time"

	"mentor-payments-core/internal/domain/model"
)

// SessionRepository reads booking-owned sessions and writes back completion
// state once hourly settlement is known.
type SessionRepository interface {
	FindByID(ctx context.Context, qx Tx, id string) (*model.Session, error)
	// FindOverlapping returns the mentor's scheduled or in-progress sessions
	// whose [start,end) window intersects the given one.
	FindOverlapping(ctx context.Context, qx Tx, mentorID string, start, end time.Time) ([]*model.Session, error)
	MarkCompleted(ctx context.Context, qx Tx, id string, actualMinutes int, endedAt time.Time) error
}

// PricingModelRepository reads mentor-configured billing shapes. Read-only to
// the payment core.
type PricingModelRepository interface {
	FindByID(ctx context.Context, qx Tx, id string) (*model.PricingModel, error)
	ListActiveByMentor(ctx context.Context, qx Tx, mentorID string) ([]*model.PricingModel, error)
}
