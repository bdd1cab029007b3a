package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mentor-payments-core/internal/domain"
	"mentor-payments-core/internal/domain/model"
	"mentor-payments-core/internal/domain/ports/repository"
)

// Tolerance for a one-time booking's duration against the model's fixed
// session length.
const oneTimeDurationTolerance = 5 // minutes

// Hourly estimates must fall inside this window.
const (
	hourlyMinEstimate = 15  // minutes
	hourlyMaxEstimate = 480 // minutes
)

// BookingParams is the input common to all pricing handlers.
type BookingParams struct {
	Session          *model.Session
	Pricing          *model.PricingModel
	EstimatedMinutes int // hourly only
}

// PricingHandler is the shared shape of the three billing strategies. The set
// is closed: dispatch goes through the Registry, and a new pricing model is
// one new arm plus a registry entry.
type PricingHandler interface {
	Type() model.PricingType
	ValidateBooking(ctx context.Context, qx repository.Tx, p *BookingParams) error
	CalculateAmount(p *BookingParams) int64
	// OnInitialized runs after the pending transaction is recorded, inside
	// the same transaction boundary.
	OnInitialized(ctx context.Context, qx repository.Tx, t *model.Transaction, p *BookingParams) error
	// OnConfirmed runs after the transaction reaches completed, inside the
	// confirming transaction boundary. Must be safe to replay.
	OnConfirmed(ctx context.Context, qx repository.Tx, t *model.Transaction) error
}

// Registry dispatches on the pricing type tag.
type Registry struct {
	handlers map[model.PricingType]PricingHandler
}

func NewRegistry(hs ...PricingHandler) *Registry {
	m := make(map[model.PricingType]PricingHandler, len(hs))
	for _, h := range hs {
		m[h.Type()] = h
	}
	return &Registry{handlers: m}
}

func (r *Registry) Handler(t model.PricingType) (PricingHandler, error) {
	h, ok := r.handlers[t]
	if !ok {
		return nil, fmt.Errorf("unknown pricing type %q: %w", t, domain.ErrInvalidArgument)
	}
	return h, nil
}

// --- one-time ---

var _ PricingHandler = (*oneTimeHandler)(nil)

type oneTimeHandler struct {
	sessions repository.SessionRepository
}

func NewOneTimeHandler(sessions repository.SessionRepository) *oneTimeHandler {
	return &oneTimeHandler{sessions: sessions}
}

func (h *oneTimeHandler) Type() model.PricingType { return model.PricingTypeOneTime }

func (h *oneTimeHandler) ValidateBooking(ctx context.Context, qx repository.Tx, p *BookingParams) error {
	booked := int(p.Session.ScheduledEnd.Sub(p.Session.ScheduledStart) / time.Minute)
	diff := booked - p.Pricing.DurationMinutes
	if diff < -oneTimeDurationTolerance || diff > oneTimeDurationTolerance {
		return fmt.Errorf("session duration %dm does not match pricing model duration %dm: %w",
			booked, p.Pricing.DurationMinutes, domain.ErrInvalidArgument)
	}
	overlapping, err := h.sessions.FindOverlapping(ctx, qx, p.Session.MentorID, p.Session.ScheduledStart, p.Session.ScheduledEnd)
	if err != nil {
		return err
	}
	for _, s := range overlapping {
		if s.ID != p.Session.ID {
			return domain.ErrOverlappingSession
		}
	}
	return nil
}

func (h *oneTimeHandler) CalculateAmount(p *BookingParams) int64 { return p.Pricing.Price }

func (h *oneTimeHandler) OnInitialized(ctx context.Context, qx repository.Tx, t *model.Transaction, p *BookingParams) error {
	return nil
}

func (h *oneTimeHandler) OnConfirmed(ctx context.Context, qx repository.Tx, t *model.Transaction) error {
	return nil
}

// --- hourly ---

var _ PricingHandler = (*hourlyHandler)(nil)

type hourlyHandler struct {
	usage repository.UsageRepository
}

func NewHourlyHandler(usage repository.UsageRepository) *hourlyHandler {
	return &hourlyHandler{usage: usage}
}

func (h *hourlyHandler) Type() model.PricingType { return model.PricingTypeHourly }

func (h *hourlyHandler) ValidateBooking(ctx context.Context, qx repository.Tx, p *BookingParams) error {
	if p.EstimatedMinutes < hourlyMinEstimate || p.EstimatedMinutes > hourlyMaxEstimate {
		return fmt.Errorf("estimated duration %dm outside [%d,%d]: %w",
			p.EstimatedMinutes, hourlyMinEstimate, hourlyMaxEstimate, domain.ErrInvalidArgument)
	}
	return nil
}

func (h *hourlyHandler) CalculateAmount(p *BookingParams) int64 {
	return model.HourlyAmount(p.Pricing.Price, p.EstimatedMinutes)
}

// OnInitialized records the provisional estimate alongside the pending
// charge.
func (h *hourlyHandler) OnInitialized(ctx context.Context, qx repository.Tx, t *model.Transaction, p *BookingParams) error {
	now := time.Now()
	return h.usage.Save(ctx, qx, &model.UsageTracking{
		ID:               uuid.NewString(),
		SessionID:        p.Session.ID,
		TransactionID:    t.ID,
		EstimatedMinutes: p.EstimatedMinutes,
		HourlyRate:       p.Pricing.Price,
		TotalCost:        t.Amount,
		Status:           model.UsageStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

func (h *hourlyHandler) OnConfirmed(ctx context.Context, qx repository.Tx, t *model.Transaction) error {
	return nil
}

// --- subscription ---

var _ PricingHandler = (*subscriptionHandler)(nil)

type subscriptionHandler struct {
	subscriptions repository.SubscriptionRepository
}

func NewSubscriptionHandler(subscriptions repository.SubscriptionRepository) *subscriptionHandler {
	return &subscriptionHandler{subscriptions: subscriptions}
}

func (h *subscriptionHandler) Type() model.PricingType { return model.PricingTypeSubscription }

func (h *subscriptionHandler) ValidateBooking(ctx context.Context, qx repository.Tx, p *BookingParams) error {
	existing, err := h.subscriptions.FindActiveByPair(ctx, qx, p.Session.MenteeID, p.Session.MentorID)
	if err != nil && err != domain.ErrNotFound {
		return err
	}
	if existing != nil {
		return domain.ErrActiveSubscription
	}
	return nil
}

func (h *subscriptionHandler) CalculateAmount(p *BookingParams) int64 { return p.Pricing.Price }

func (h *subscriptionHandler) OnInitialized(ctx context.Context, qx repository.Tx, t *model.Transaction, p *BookingParams) error {
	return nil
}

// OnConfirmed grants the subscription. Replays are absorbed by the unique
// active-pair constraint: an existing active subscription means the grant
// already happened.
func (h *subscriptionHandler) OnConfirmed(ctx context.Context, qx repository.Tx, t *model.Transaction) error {
	existing, err := h.subscriptions.FindActiveByPair(ctx, qx, t.MenteeID, t.MentorID)
	if err != nil && err != domain.ErrNotFound {
		return err
	}
	if existing != nil {
		return nil
	}
	s := model.NewSubscription(uuid.NewString(), t.MenteeID, t.MentorID, t.PricingModelID, t.Amount, t.Currency, time.Now())
	return h.subscriptions.Save(ctx, qx, s)
}
