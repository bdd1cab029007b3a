package repository

import (
	"context"
	"time"

	"mentor-payments-core/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, qx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Subscription, error)
	FindActiveByPair(ctx context.Context, qx Tx, menteeID, mentorID string) (*model.Subscription, error)
	// AdvancePeriod moves next_payment_date forward by one period, guarded by
	// `WHERE next_payment_date <= now AND status='active'` so a retried
	// renewal job cannot double-charge. Returns false if the guard failed.
	AdvancePeriod(ctx context.Context, qx Tx, id string, now, nextPayment, periodStart, periodEnd time.Time) (bool, error)
	// Cancel transitions active -> cancelled with a timestamp and reason.
	Cancel(ctx context.Context, qx Tx, id string, reason string, at time.Time) (bool, error)
	// ListDue returns active subscriptions whose next_payment_date has
	// passed, oldest first, for the renewal sweep.
	ListDue(ctx context.Context, qx Tx, now time.Time, limit int) ([]*model.Subscription, error)
}
