package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mentor-payments-core/internal/domain"
	"mentor-payments-core/internal/domain/model"
	"mentor-payments-core/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, mentee_id, mentor_id, pricing_model_id, amount, currency, status, start_date, next_payment_date, current_period_start, current_period_end, cancelled_at, cancel_reason, created_at, updated_at`

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	if err := row.Scan(
		&s.ID, &s.MenteeID, &s.MentorID, &s.PricingModelID, &s.Amount, &s.Currency,
		&s.Status, &s.StartDate, &s.NextPaymentDate, &s.CurrentPeriodStart,
		&s.CurrentPeriodEnd, &s.CancelledAt, &s.CancelReason, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *subscriptionRepo) Save(ctx context.Context, qx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (id, mentee_id, mentor_id, pricing_model_id, amount, currency, status, start_date, next_payment_date, current_period_start, current_period_end, cancelled_at, cancel_reason, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
    status               = EXCLUDED.status,
    next_payment_date    = EXCLUDED.next_payment_date,
    current_period_start = EXCLUDED.current_period_start,
    current_period_end   = EXCLUDED.current_period_end,
    cancelled_at         = EXCLUDED.cancelled_at,
    cancel_reason        = EXCLUDED.cancel_reason,
    updated_at           = EXCLUDED.updated_at;`
	if _, err := execSQL(ctx, r.pool, qx, q,
		s.ID, s.MenteeID, s.MentorID, s.PricingModelID, s.Amount, s.Currency,
		s.Status, s.StartDate, s.NextPaymentDate, s.CurrentPeriodStart,
		s.CurrentPeriodEnd, s.CancelledAt, s.CancelReason, s.CreatedAt, s.UpdatedAt); err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id=$1`
	if _, inTx := qx.(pgx.Tx); inTx {
		q += ` FOR UPDATE`
	}
	row, err := pickRow(ctx, r.pool, qx, q+`;`, id)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) FindActiveByPair(ctx context.Context, qx repository.Tx, menteeID, mentorID string) (*model.Subscription, error) {
	const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE mentee_id=$1 AND mentor_id=$2 AND status='active';`
	row, err := pickRow(ctx, r.pool, qx, q, menteeID, mentorID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) AdvancePeriod(ctx context.Context, qx repository.Tx, id string, now, nextPayment, periodStart, periodEnd time.Time) (bool, error) {
	const q = `
UPDATE subscriptions
   SET next_payment_date = $3, current_period_start = $4, current_period_end = $5, updated_at = NOW()
 WHERE id = $1
   AND status = 'active'
   AND next_payment_date <= $2;`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, now, nextPayment, periodStart, periodEnd)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *subscriptionRepo) Cancel(ctx context.Context, qx repository.Tx, id string, reason string, at time.Time) (bool, error) {
	const q = `
UPDATE subscriptions
   SET status = 'cancelled', cancelled_at = $2, cancel_reason = $3, updated_at = NOW()
 WHERE id = $1
   AND status = 'active';`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, at, reason)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *subscriptionRepo) ListDue(ctx context.Context, qx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	const q = `
SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE status = 'active'
   AND next_payment_date <= $1
 ORDER BY next_payment_date
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, qx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}
