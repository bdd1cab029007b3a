package model

import "time"

type PricingType string

const (
	PricingTypeOneTime      PricingType = "one_time"
	PricingTypeHourly       PricingType = "hourly"
	PricingTypeSubscription PricingType = "subscription"
)

// PricingModel is a mentor-configured billing shape. Created and edited by the
// mentor profile subsystem; read-only to the payment core.
type PricingModel struct {
	ID              string // UUID
	MentorID        string
	Type            PricingType
	Price           int64 // minor units; for hourly this is the rate per hour
	DurationMinutes int   // for one_time: the fixed session length
	Currency        string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
