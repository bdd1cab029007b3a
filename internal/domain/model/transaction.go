package model

import "time"

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"   // created, awaiting gateway confirmation
	TransactionStatusCompleted TransactionStatus = "completed" // confirmed; earnings credited
	TransactionStatusFailed    TransactionStatus = "failed"    // gateway declined or verification failed
	TransactionStatusRefunded  TransactionStatus = "refunded"  // refunded after completion
)

// Terminal reports whether no further transition is allowed out of the status,
// except completed -> refunded.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed || s == TransactionStatusRefunded
}

type TransactionKind string

const (
	TransactionKindCharge     TransactionKind = "charge"
	TransactionKindAdjustment TransactionKind = "adjustment" // hourly settlement delta, may be negative
)

// Transaction is the atomic unit of the ledger. Invariant: Amount ==
// PlatformFee + MentorEarnings (fees may be negative for refund adjustments).
type Transaction struct {
	ID             string // UUID
	SessionID      string
	MentorID       string
	MenteeID       string
	PricingModelID string
	Kind           TransactionKind
	Amount         int64 // minor units
	PlatformFee    int64 // minor units
	MentorEarnings int64 // minor units
	Currency       string
	Status         TransactionStatus
	PaymentMethod  string
	GatewayOrderID string // provider order id, set when an order is created
	GatewayPayID   string // provider payment id, set after confirmation
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
	// For adjustments: the charge transaction this one corrects.
	ParentID *string
}
