package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mentor-payments-core/internal/domain"
	"mentor-payments-core/internal/domain/model"
	"mentor-payments-core/internal/domain/ports/repository"
)

var _ repository.UsageRepository = (*usageRepo)(nil)

type usageRepo struct{ pool *pgxpool.Pool }

func NewUsageRepo(pool *pgxpool.Pool) *usageRepo {
	return &usageRepo{pool: pool}
}

const usageColumns = `id, session_id, transaction_id, estimated_minutes, actual_minutes, hourly_rate, total_cost, status, created_at, updated_at`

func scanUsage(row pgx.Row) (*model.UsageTracking, error) {
	u := &model.UsageTracking{}
	if err := row.Scan(
		&u.ID, &u.SessionID, &u.TransactionID, &u.EstimatedMinutes, &u.ActualMinutes,
		&u.HourlyRate, &u.TotalCost, &u.Status, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return u, nil
}

func (r *usageRepo) Save(ctx context.Context, qx repository.Tx, u *model.UsageTracking) error {
	const q = `
INSERT INTO usage_tracking (id, session_id, transaction_id, estimated_minutes, actual_minutes, hourly_rate, total_cost, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
    actual_minutes = EXCLUDED.actual_minutes,
    total_cost     = EXCLUDED.total_cost,
    status         = EXCLUDED.status,
    updated_at     = EXCLUDED.updated_at;`
	if _, err := execSQL(ctx, r.pool, qx, q,
		u.ID, u.SessionID, u.TransactionID, u.EstimatedMinutes, u.ActualMinutes,
		u.HourlyRate, u.TotalCost, u.Status, u.CreatedAt, u.UpdatedAt); err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *usageRepo) FindBySessionID(ctx context.Context, qx repository.Tx, sessionID string) (*model.UsageTracking, error) {
	q := `SELECT ` + usageColumns + ` FROM usage_tracking WHERE session_id=$1`
	if _, inTx := qx.(pgx.Tx); inTx {
		q += ` FOR UPDATE`
	}
	row, err := pickRow(ctx, r.pool, qx, q+`;`, sessionID)
	if err != nil {
		return nil, err
	}
	return scanUsage(row)
}

func (r *usageRepo) Settle(ctx context.Context, qx repository.Tx, id string, actualMinutes int, totalCost int64) (bool, error) {
	const q = `
UPDATE usage_tracking
   SET status = 'completed', actual_minutes = $2, total_cost = $3, updated_at = NOW()
 WHERE id = $1
   AND status = 'active';`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, actualMinutes, totalCost)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *usageRepo) Cancel(ctx context.Context, qx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE usage_tracking
   SET status = 'cancelled', updated_at = NOW()
 WHERE id = $1
   AND status = 'active';`
	cmd, err := execSQL(ctx, r.pool, qx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
