package model

import "time"

type UsageStatus string

const (
	UsageStatusActive    UsageStatus = "active"    // provisional charge recorded at the estimate
	UsageStatusCompleted UsageStatus = "completed" // settled against the actual duration
	UsageStatusCancelled UsageStatus = "cancelled" // session cancelled before completion
)

// UsageTracking is one-to-one with an hourly session's charge transaction.
// It records the estimate made at booking time and, after the session ends,
// the actual duration and final cost. Finalized exactly once.
type UsageTracking struct {
	ID               string // UUID
	SessionID        string
	TransactionID    string
	EstimatedMinutes int
	ActualMinutes    *int  // nil until settlement
	HourlyRate       int64 // minor units per hour
	TotalCost        int64 // minor units; estimate until settled, then actual
	Status           UsageStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
