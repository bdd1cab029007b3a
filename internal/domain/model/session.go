package model

import "time"

type SessionStatus string

const (
	SessionStatusScheduled  SessionStatus = "scheduled"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusCancelled  SessionStatus = "cancelled"
	SessionStatusNoShow     SessionStatus = "no_show"
)

// Session is owned by the booking subsystem. The payment core reads
// identity/timing/pricing fields and writes back status and actual duration
// once settlement is known.
type Session struct {
	ID              string // UUID
	MentorID        string
	MenteeID        string
	PricingType     PricingType
	AgreedPrice     int64 // minor units
	ScheduledStart  time.Time
	ScheduledEnd    time.Time
	ActualStart     *time.Time
	ActualEnd       *time.Time
	ActualMinutes   *int
	Status          SessionStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Overlaps reports whether [start,end) intersects the session's scheduled
// window, half-open on both intervals.
func (s *Session) Overlaps(start, end time.Time) bool {
	return start.Before(s.ScheduledEnd) && s.ScheduledStart.Before(end)
}
