package repository

import (
	"context"
	"time"

	"mentor-payments-core/internal/domain/model"
)

// TransactionRepository persists ledger transactions. All state transitions
// are conditional updates returning whether a row actually changed, so
// concurrent callers and webhook replays converge without in-process locks.
type TransactionRepository interface {
	Save(ctx context.Context, qx Tx, t *model.Transaction) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Transaction, error)
	FindByGatewayOrderID(ctx context.Context, qx Tx, orderID string) (*model.Transaction, error)
	FindChargeBySessionID(ctx context.Context, qx Tx, sessionID string) (*model.Transaction, error)

	// Complete transitions pending -> completed. Returns false when the row
	// was not pending (already completed, failed, refunded or missing).
	Complete(ctx context.Context, qx Tx, id string, gatewayPayID string, completedAt time.Time) (bool, error)
	// Fail transitions pending -> failed.
	Fail(ctx context.Context, qx Tx, id string, reason string) (bool, error)
	// Refund transitions completed -> refunded.
	Refund(ctx context.Context, qx Tx, id string) (bool, error)
	// UpdateAmounts rewrites the fee split of a still-pending transaction.
	UpdateAmounts(ctx context.Context, qx Tx, id string, amount, platformFee, mentorEarnings int64) (bool, error)

	// Risk screening reads over the payer's history.
	SumCompletedByPayerSince(ctx context.Context, qx Tx, menteeID string, since time.Time) (int64, error)
	CountByPayerSince(ctx context.Context, qx Tx, menteeID string, since time.Time) (int, error)

	// Payout and earnings reads over the mentor's history.
	ListUnclaimedCompleted(ctx context.Context, qx Tx, mentorID string, limit int) ([]*model.Transaction, error)
	SumUnclaimedCompleted(ctx context.Context, qx Tx, mentorID string) (int64, error)
	SumCompletedEarnings(ctx context.Context, qx Tx, mentorID string) (int64, error)
	CountCompletedSessions(ctx context.Context, qx Tx, mentorID string) (int, error)
	ListCompletedByMentorBetween(ctx context.Context, qx Tx, mentorID string, from, to time.Time) ([]*model.Transaction, error)
}
