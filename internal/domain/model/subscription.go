package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// PeriodDays is the length of one subscription billing period.
const PeriodDays = 30

// Subscription is a mentee's recurring engagement with a mentor. At most one
// active subscription may exist per (mentee, mentor) pair.
type Subscription struct {
	ID                 string // UUID
	MenteeID           string
	MentorID           string
	PricingModelID     string
	Amount             int64 // minor units per period
	Currency           string
	Status             SubscriptionStatus
	StartDate          time.Time
	NextPaymentDate    time.Time
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelledAt        *time.Time
	CancelReason       string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewSubscription creates an active subscription starting now with the first
// period already paid.
func NewSubscription(id, menteeID, mentorID, pricingModelID string, amount int64, currency string, now time.Time) *Subscription {
	periodEnd := now.AddDate(0, 0, PeriodDays)
	return &Subscription{
		ID:                 id,
		MenteeID:           menteeID,
		MentorID:           mentorID,
		PricingModelID:     pricingModelID,
		Amount:             amount,
		Currency:           currency,
		Status:             SubscriptionStatusActive,
		StartDate:          now,
		NextPaymentDate:    periodEnd,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   periodEnd,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
