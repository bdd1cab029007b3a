package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mentor-payments-core/internal/domain"
	"mentor-payments-core/internal/domain/model"
	"mentor-payments-core/internal/domain/ports/repository"
)

var _ repository.PayoutRepository = (*payoutRepo)(nil)

type payoutRepo struct{ pool *pgxpool.Pool }

func NewPayoutRepo(pool *pgxpool.Pool) *payoutRepo {
	return &payoutRepo{pool: pool}
}

const payoutColumns = `id, mentor_id, amount, currency, status, payout_method, failure_reason, attempts, processed_at, created_at, updated_at`

func scanPayout(row pgx.Row) (*model.Payout, error) {
	p := &model.Payout{}
	if err := row.Scan(
		&p.ID, &p.MentorID, &p.Amount, &p.Currency, &p.Status, &p.PayoutMethod,
		&p.FailureReason, &p.Attempts, &p.ProcessedAt, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

// Create inserts the payout row and one claim row per transaction. The
// unique constraint on payout_items(transaction_id) makes the claim a single
// conditional insert: if any transaction is already claimed the whole batch
// rolls back with ErrTransactionClaimed. MarkFailed deletes a failed payout's
// items, so its transactions become claimable again.
func (r *payoutRepo) Create(ctx context.Context, qx repository.Tx, p *model.Payout) error {
	const insertPayout = `
INSERT INTO payouts (id, mentor_id, amount, currency, status, payout_method, failure_reason, attempts, processed_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`
	if _, err := execSQL(ctx, r.pool, qx, insertPayout,
		p.ID, p.MentorID, p.Amount, p.Currency, p.Status, p.PayoutMethod,
		p.FailureReason, p.Attempts, p.ProcessedAt, p.CreatedAt, p.UpdatedAt); err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}

	const insertItem = `INSERT INTO payout_items (id, payout_id, transaction_id) VALUES ($1,$2,$3);`
	for _, txID := range p.TransactionIDs {
		if _, err := execSQL(ctx, r.pool, qx, insertItem, uuid.NewString(), p.ID, txID); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return domain.ErrTransactionClaimed
			}
			if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
				return err
			}
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *payoutRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Payout, error) {
	const q = `SELECT ` + payoutColumns + ` FROM payouts WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPayout(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, qx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *payoutRepo) loadItems(ctx context.Context, qx repository.Tx, p *model.Payout) error {
	const q = `SELECT transaction_id FROM payout_items WHERE payout_id=$1 ORDER BY transaction_id;`
	rows, err := queryRows(ctx, r.pool, qx, q, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return domain.ErrReadDatabaseRow
		}
		p.TransactionIDs = append(p.TransactionIDs, id)
	}
	return nil
}

func (r *payoutRepo) HasClaim(ctx context.Context, qx repository.Tx, transactionID string) (bool, error) {
	const q = `
SELECT EXISTS(
    SELECT 1 FROM payout_items pi
      JOIN payouts p ON p.id = pi.payout_id
     WHERE pi.transaction_id = $1 AND p.status <> 'failed'
);`
	row, err := pickRow(ctx, r.pool, qx, q, transactionID)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

func (r *payoutRepo) ListPending(ctx context.Context, qx repository.Tx, limit int) ([]*model.Payout, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + payoutColumns + ` FROM payouts WHERE status='pending' ORDER BY created_at ASC LIMIT $1;`
	rows, err := queryRows(ctx, r.pool, qx, q, limit)
	if err != nil {
		switch err {
		case pgx.ErrNoRows:
			return nil, domain.ErrNotFound
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *payoutRepo) Complete(ctx context.Context, qx repository.Tx, id string, processedAt time.Time) (bool, error) {
	const q = `
UPDATE payouts
   SET status = 'completed', processed_at = $2, updated_at = NOW()
 WHERE id = $1
   AND status = 'pending';`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, processedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

// MarkFailed releases the claims too, so the transactions become available to
// a later payout request.
func (r *payoutRepo) MarkFailed(ctx context.Context, qx repository.Tx, id string, reason string) (bool, error) {
	const q = `
UPDATE payouts
   SET status = 'failed', failure_reason = $2, updated_at = NOW()
 WHERE id = $1
   AND status = 'pending';`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, reason)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	if cmd.RowsAffected() < 1 {
		return false, nil
	}
	const release = `DELETE FROM payout_items WHERE payout_id=$1;`
	if _, err := execSQL(ctx, r.pool, qx, release, id); err != nil {
		return false, domain.ErrOperationFailed
	}
	return true, nil
}

func (r *payoutRepo) IncrementAttempts(ctx context.Context, qx repository.Tx, id string) error {
	const q = `UPDATE payouts SET attempts = attempts + 1, updated_at = NOW() WHERE id=$1;`
	if _, err := execSQL(ctx, r.pool, qx, q, id); err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *payoutRepo) SumPendingByMentor(ctx context.Context, qx repository.Tx, mentorID string) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM payouts WHERE mentor_id=$1 AND status='pending';`
	row, err := pickRow(ctx, r.pool, qx, q, mentorID)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}
