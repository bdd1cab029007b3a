package model

import "time"

type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "pending"
	PayoutStatusCompleted PayoutStatus = "completed"
	PayoutStatusFailed    PayoutStatus = "failed"
)

// Payout is a batched disbursement of accumulated mentor earnings. Across all
// non-failed payouts for a mentor the referenced transaction id sets are
// pairwise disjoint; the payout_items unique constraint enforces this.
type Payout struct {
	ID             string // UUID
	MentorID       string
	Amount         int64 // minor units; sum of claimed MentorEarnings
	Currency       string
	TransactionIDs []string
	Status         PayoutStatus
	PayoutMethod   string
	FailureReason  string
	Attempts       int
	ProcessedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Earnings is the summary returned to a mentor's dashboard.
type Earnings struct {
	MentorID           string
	TotalEarnings      int64 // lifetime completed earnings, minor units
	AvailableForPayout int64
	PendingPayouts     int64 // sum of pending payout amounts
	SessionsCompleted  int
}

// TaxReportLine is one itemized row of a mentor's tax report.
type TaxReportLine struct {
	TransactionID  string
	SessionID      string
	CompletedAt    time.Time
	Amount         int64
	PlatformFee    int64
	MentorEarnings int64
}

// TaxReport itemizes a mentor's completed transactions for a year or a single
// month, with totals.
type TaxReport struct {
	MentorID            string
	Year                int
	Month               int // 0 means whole year
	Lines               []TaxReportLine
	TotalAmount         int64
	TotalPlatformFee    int64
	TotalMentorEarnings int64
}
