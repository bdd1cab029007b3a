package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mentor-payments-core/internal/domain"
	"mentor-payments-core/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*RazorpayGateway)(nil)

// RazorpayGateway implements adapter.PaymentGateway using direct HTTP calls
// against the Razorpay v1 REST API with basic auth.
type RazorpayGateway struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	client        *http.Client
}

// NewRazorpayGateway creates a new direct Razorpay gateway. baseURL defaults
// to the production endpoint when empty.
func NewRazorpayGateway(keyID, keySecret, webhookSecret, baseURL string, timeout time.Duration) *RazorpayGateway {
	if baseURL == "" {
		baseURL = "https://api.razorpay.com/v1"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RazorpayGateway{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		baseURL:       baseURL,
		client:        &http.Client{Timeout: timeout},
	}
}

func (g *RazorpayGateway) Name() string { return "razorpay" }

// razorpayOrder represents an order resource in API responses.
type razorpayOrder struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// razorpayPayment represents a payment resource in API responses.
type razorpayPayment struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	Method      string `json:"method"`
	ErrorCode   string `json:"error_code"`
	ErrorReason string `json:"error_reason"`
}

// razorpayRefund represents a refund resource in API responses.
type razorpayRefund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// razorpayErrorBody is the envelope Razorpay returns on non-2xx responses.
type razorpayErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// doJSON issues one authenticated request and decodes the response into out.
// Non-2xx responses come back as *domain.GatewayError with the provider's
// code and HTTP status preserved.
func (g *RazorpayGateway) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request data: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody razorpayErrorBody
		_ = json.Unmarshal(raw, &errBody)
		return &domain.GatewayError{
			Code:    errBody.Error.Code,
			Status:  resp.StatusCode,
			Message: errBody.Error.Description,
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(raw))
	}
	return nil
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*adapter.Order, error) {
	requestData := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}
	if notes != nil {
		requestData["notes"] = notes
	}

	var resp razorpayOrder
	if err := g.doJSON(ctx, http.MethodPost, "/orders", requestData, &resp); err != nil {
		return nil, err
	}
	return orderFromAPI(&resp), nil
}

func (g *RazorpayGateway) GetOrder(ctx context.Context, orderID string) (*adapter.Order, error) {
	var resp razorpayOrder
	if err := g.doJSON(ctx, http.MethodGet, "/orders/"+orderID, nil, &resp); err != nil {
		return nil, err
	}
	return orderFromAPI(&resp), nil
}

func (g *RazorpayGateway) GetPayment(ctx context.Context, paymentID string) (*adapter.Payment, error) {
	var resp razorpayPayment
	if err := g.doJSON(ctx, http.MethodGet, "/payments/"+paymentID, nil, &resp); err != nil {
		return nil, err
	}
	return paymentFromAPI(&resp), nil
}

func (g *RazorpayGateway) CapturePayment(ctx context.Context, paymentID string, amountMinor int64) (*adapter.Payment, error) {
	requestData := map[string]interface{}{
		"amount": amountMinor,
	}
	var resp razorpayPayment
	if err := g.doJSON(ctx, http.MethodPost, "/payments/"+paymentID+"/capture", requestData, &resp); err != nil {
		return nil, err
	}
	return paymentFromAPI(&resp), nil
}

func (g *RazorpayGateway) CreateRefund(ctx context.Context, paymentID string, amountMinor int64, notes map[string]string) (*adapter.Refund, error) {
	requestData := map[string]interface{}{
		"amount": amountMinor,
	}
	if notes != nil {
		requestData["notes"] = notes
	}
	var resp razorpayRefund
	if err := g.doJSON(ctx, http.MethodPost, "/payments/"+paymentID+"/refund", requestData, &resp); err != nil {
		return nil, err
	}
	return &adapter.Refund{
		ID:          resp.ID,
		PaymentID:   resp.PaymentID,
		AmountMinor: resp.Amount,
		Status:      resp.Status,
	}, nil
}

func (g *RazorpayGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verifySignature(g.keySecret, orderID+"|"+paymentID, signature)
}

func (g *RazorpayGateway) VerifyWebhookSignature(payload []byte, signature string) bool {
	return verifyRawSignature(g.webhookSecret, payload, signature)
}

func orderFromAPI(o *razorpayOrder) *adapter.Order {
	return &adapter.Order{
		ID:          o.ID,
		AmountMinor: o.Amount,
		Currency:    o.Currency,
		Receipt:     o.Receipt,
		Status:      o.Status,
		CreatedAt:   time.Unix(o.CreatedAt, 0).UTC(),
	}
}

func paymentFromAPI(p *razorpayPayment) *adapter.Payment {
	return &adapter.Payment{
		ID:          p.ID,
		OrderID:     p.OrderID,
		AmountMinor: p.Amount,
		Currency:    p.Currency,
		Status:      p.Status,
		Method:      p.Method,
		ErrorCode:   p.ErrorCode,
	}
}
