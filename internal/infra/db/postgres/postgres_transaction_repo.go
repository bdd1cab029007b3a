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

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

const transactionColumns = `id, session_id, mentor_id, mentee_id, pricing_model_id, kind, amount, platform_fee, mentor_earnings, currency, status, payment_method, gateway_order_id, gateway_payment_id, failure_reason, created_at, updated_at, completed_at, parent_id`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	t := &model.Transaction{}
	if err := row.Scan(
		&t.ID, &t.SessionID, &t.MentorID, &t.MenteeID, &t.PricingModelID, &t.Kind,
		&t.Amount, &t.PlatformFee, &t.MentorEarnings, &t.Currency, &t.Status,
		&t.PaymentMethod, &t.GatewayOrderID, &t.GatewayPayID, &t.FailureReason,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt, &t.ParentID,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return t, nil
}

func (r *transactionRepo) Save(ctx context.Context, qx repository.Tx, t *model.Transaction) error {
	const q = `
INSERT INTO transactions (
  id, session_id, mentor_id, mentee_id, pricing_model_id, kind, amount, platform_fee, mentor_earnings, currency, status, payment_method, gateway_order_id, gateway_payment_id, failure_reason, created_at, updated_at, completed_at, parent_id
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19
);`
	_, err := execSQL(ctx, r.pool, qx, q,
		t.ID, t.SessionID, t.MentorID, t.MenteeID, t.PricingModelID, t.Kind,
		t.Amount, t.PlatformFee, t.MentorEarnings, t.Currency, t.Status,
		t.PaymentMethod, t.GatewayOrderID, t.GatewayPayID, t.FailureReason,
		t.CreatedAt, t.UpdatedAt, t.CompletedAt, t.ParentID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *transactionRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE id=$1`
	if _, ok := qx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, qx, q, id)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *transactionRepo) FindByGatewayOrderID(ctx context.Context, qx repository.Tx, orderID string) (*model.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE gateway_order_id=$1 LIMIT 1`
	if _, ok := qx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, qx, q, orderID)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *transactionRepo) FindChargeBySessionID(ctx context.Context, qx repository.Tx, sessionID string) (*model.Transaction, error) {
	const q = `SELECT ` + transactionColumns + ` FROM transactions WHERE session_id=$1 AND kind='charge' ORDER BY created_at ASC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, qx, q, sessionID)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

// Complete atomically transitions pending -> completed; replays and races
// resolve through the rows-affected result.
func (r *transactionRepo) Complete(ctx context.Context, qx repository.Tx, id string, gatewayPayID string, completedAt time.Time) (bool, error) {
	const q = `
UPDATE transactions
   SET status = 'completed',
       gateway_payment_id = CASE WHEN $2 <> '' THEN $2 ELSE gateway_payment_id END,
       completed_at = $3,
       updated_at = NOW()
 WHERE id = $1
   AND status = 'pending';`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, gatewayPayID, completedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *transactionRepo) Fail(ctx context.Context, qx repository.Tx, id string, reason string) (bool, error) {
	const q = `
UPDATE transactions
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
	return cmd.RowsAffected() >= 1, nil
}

func (r *transactionRepo) Refund(ctx context.Context, qx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE transactions
   SET status = 'refunded', updated_at = NOW()
 WHERE id = $1
   AND status = 'completed';`
	cmd, err := execSQL(ctx, r.pool, qx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *transactionRepo) UpdateAmounts(ctx context.Context, qx repository.Tx, id string, amount, platformFee, mentorEarnings int64) (bool, error) {
	const q = `
UPDATE transactions
   SET amount = $2, platform_fee = $3, mentor_earnings = $4, updated_at = NOW()
 WHERE id = $1
   AND status = 'pending';`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, amount, platformFee, mentorEarnings)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *transactionRepo) SumCompletedByPayerSince(ctx context.Context, qx repository.Tx, menteeID string, since time.Time) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM transactions WHERE mentee_id=$1 AND status='completed' AND amount > 0 AND created_at >= $2;`
	row, err := pickRow(ctx, r.pool, qx, q, menteeID, since)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func (r *transactionRepo) CountByPayerSince(ctx context.Context, qx repository.Tx, menteeID string, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM transactions WHERE mentee_id=$1 AND created_at >= $2;`
	row, err := pickRow(ctx, r.pool, qx, q, menteeID, since)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

// ListUnclaimedCompleted returns a mentor's completed transactions that no
// non-failed payout references yet, oldest first.
func (r *transactionRepo) ListUnclaimedCompleted(ctx context.Context, qx repository.Tx, mentorID string, limit int) ([]*model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT ` + transactionColumns + `
  FROM transactions t
 WHERE t.mentor_id = $1
   AND t.status = 'completed'
   AND NOT EXISTS (
         SELECT 1 FROM payout_items pi
           JOIN payouts p ON p.id = pi.payout_id
          WHERE pi.transaction_id = t.id AND p.status <> 'failed')
 ORDER BY t.created_at ASC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, qx, q, mentorID, limit)
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

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *transactionRepo) SumUnclaimedCompleted(ctx context.Context, qx repository.Tx, mentorID string) (int64, error) {
	const q = `
SELECT COALESCE(SUM(t.mentor_earnings),0)
  FROM transactions t
 WHERE t.mentor_id = $1
   AND t.status = 'completed'
   AND NOT EXISTS (
         SELECT 1 FROM payout_items pi
           JOIN payouts p ON p.id = pi.payout_id
          WHERE pi.transaction_id = t.id AND p.status <> 'failed');`
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

func (r *transactionRepo) SumCompletedEarnings(ctx context.Context, qx repository.Tx, mentorID string) (int64, error) {
	const q = `SELECT COALESCE(SUM(mentor_earnings),0) FROM transactions WHERE mentor_id=$1 AND status='completed';`
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

func (r *transactionRepo) CountCompletedSessions(ctx context.Context, qx repository.Tx, mentorID string) (int, error) {
	const q = `SELECT COUNT(DISTINCT session_id) FROM transactions WHERE mentor_id=$1 AND status='completed' AND kind='charge';`
	row, err := pickRow(ctx, r.pool, qx, q, mentorID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *transactionRepo) ListCompletedByMentorBetween(ctx context.Context, qx repository.Tx, mentorID string, from, to time.Time) ([]*model.Transaction, error) {
	const q = `
SELECT ` + transactionColumns + `
  FROM transactions
 WHERE mentor_id = $1
   AND status = 'completed'
   AND completed_at >= $2 AND completed_at < $3
 ORDER BY completed_at ASC;`
	rows, err := queryRows(ctx, r.pool, qx, q, mentorID, from, to)
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

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
