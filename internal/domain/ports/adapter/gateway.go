package adapter

import (
	"context"
	"time"
)

// Webhook event types emitted by the payment processor.
const (
	WebhookPaymentAuthorized = "payment.authorized"
	WebhookPaymentCaptured   = "payment.captured"
	WebhookPaymentFailed     = "payment.failed"
	WebhookOrderPaid         = "order.paid"
)

// Order is a provider-agnostic view of a gateway order.
type Order struct {
	ID          string
	AmountMinor int64
	Currency    string
	Receipt     string
	Status      string
	CreatedAt   time.Time
}

// Payment is the provider's record of an attempted charge against an order.
type Payment struct {
	ID          string
	OrderID     string
	AmountMinor int64
	Currency    string
	Status      string
	Method      string
	ErrorCode   string
}

// Refund is the provider's record of money returned to the payer.
type Refund struct {
	ID          string
	PaymentID   string
	AmountMinor int64
	Status      string
}

// WebhookEvent is a verified, decoded processor callback.
type WebhookEvent struct {
	Type        string
	OrderID     string
	PaymentID   string
	AmountMinor int64
	Method      string
	ErrorReason string
}

// PaymentGateway is the hex port for the external payment processor. Amounts
// cross this boundary in integer minor units only. Provider-specific error
// shapes are wrapped into *domain.GatewayError by implementations.
type PaymentGateway interface {
	Name() string

	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*Order, error)
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
	CapturePayment(ctx context.Context, paymentID string, amountMinor int64) (*Payment, error)
	CreateRefund(ctx context.Context, paymentID string, amountMinor int64, notes map[string]string) (*Refund, error)

	// VerifyPaymentSignature recomputes the keyed hash over orderID|paymentID
	// and compares in constant time.
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	// VerifyWebhookSignature checks the keyed hash over the raw payload
	// bytes. Must pass before ParseWebhook output is trusted.
	VerifyWebhookSignature(payload []byte, signature string) bool
	ParseWebhook(payload []byte) (*WebhookEvent, error)
}
