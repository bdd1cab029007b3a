package repository

import (
	"context"
	"time"

	"mentor-payments-core/internal/domain/model"
)

// PayoutRepository persists payouts and their claims on transactions. The
// claim ("this transaction belongs to this payout") is a single conditional
// insert backed by a unique constraint on the transaction id, so two
// concurrent batchers cannot both take the same transaction.
type PayoutRepository interface {
	// Create inserts the payout and its transaction claims atomically.
	// Returns domain.ErrTransactionClaimed if any transaction is already
	// referenced by a non-failed payout.
	Create(ctx context.Context, qx Tx, p *model.Payout) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Payout, error)
	// HasClaim reports whether a non-failed payout already references the
	// transaction.
	HasClaim(ctx context.Context, qx Tx, transactionID string) (bool, error)
	ListPending(ctx context.Context, qx Tx, limit int) ([]*model.Payout, error)
	// Complete transitions pending -> completed and sets processed_at.
	Complete(ctx context.Context, qx Tx, id string, processedAt time.Time) (bool, error)
	// MarkFailed transitions pending -> failed and releases the claims so
	// the transactions become available again. It issues two statements, so
	// callers must run it inside a transaction.
	MarkFailed(ctx context.Context, qx Tx, id string, reason string) (bool, error)
	IncrementAttempts(ctx context.Context, qx Tx, id string) error
	SumPendingByMentor(ctx context.Context, qx Tx, mentorID string) (int64, error)
}
