package payment

import (
	"encoding/json"
	"fmt"

	"mentor-payments-core/internal/domain/ports/adapter"
)

// razorpayWebhookBody mirrors the webhook envelope: the event name plus the
// entities relevant to it. Only payment and order entities are decoded.
type razorpayWebhookBody struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity razorpayPayment `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity razorpayOrder `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// ParseWebhook decodes a webhook body into a provider-agnostic event. The
// payload must already have passed VerifyWebhookSignature.
func (g *RazorpayGateway) ParseWebhook(payload []byte) (*adapter.WebhookEvent, error) {
	var body razorpayWebhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("failed to unmarshal webhook payload: %w", err)
	}
	if body.Event == "" {
		return nil, fmt.Errorf("webhook payload missing event")
	}

	ev := &adapter.WebhookEvent{
		Type:        body.Event,
		OrderID:     body.Payload.Payment.Entity.OrderID,
		PaymentID:   body.Payload.Payment.Entity.ID,
		AmountMinor: body.Payload.Payment.Entity.Amount,
		Method:      body.Payload.Payment.Entity.Method,
		ErrorReason: body.Payload.Payment.Entity.ErrorReason,
	}
	if ev.OrderID == "" {
		ev.OrderID = body.Payload.Order.Entity.ID
	}
	if ev.AmountMinor == 0 {
		ev.AmountMinor = body.Payload.Order.Entity.Amount
	}
	return ev, nil
}
