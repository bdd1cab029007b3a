package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mentor-payments-core/internal/domain"
	"mentor-payments-core/internal/infra/logging"
)

// webhookSignatureHeader carries the processor's HMAC over the raw body.
const webhookSignatureHeader = "X-Razorpay-Signature"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses. Risk rejections and
// upstream gateway failures carry their own detail shapes so callers can
// distinguish "we declined you" from "the processor failed".
func writeError(w http.ResponseWriter, err error) {
	var rejection *domain.RiskRejection
	if errors.As(err, &rejection) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  "payment declined",
			"reason": rejection.Reason,
			"score":  rejection.Score,
		})
		return
	}
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":        "payment processor error",
			"gateway_code": gwErr.Code,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotAllowed):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, domain.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

type initializePaymentRequest struct {
	SessionID        string `json:"session_id"`
	PricingModelID   string `json:"pricing_model_id"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}

func (s *Server) handleInitializePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req initializePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	initialized, err := s.billingUC.InitializePayment(ctx, logging.ActorID(ctx), req.SessionID, req.PricingModelID, req.EstimatedMinutes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, initialized)
}

type confirmPaymentRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := s.billingUC.ConfirmPayment(ctx, logging.ActorID(ctx), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

type settleSessionRequest struct {
	ActualMinutes int `json:"actual_minutes"`
}

func (s *Server) handleSettleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req settleSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	settlement, err := s.billingUC.SettleHourlySession(ctx, logging.ActorID(ctx), chi.URLParam(r, "sessionID"), req.ActualMinutes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settlement)
}

type cancelSessionRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req cancelSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tracking, err := s.billingUC.CancelHourlySession(ctx, logging.ActorID(ctx), chi.URLParam(r, "sessionID"), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tracking)
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tx, err := s.billingUC.RefundTransaction(ctx, logging.ActorID(ctx), chi.URLParam(r, "transactionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleAuditHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	entries, err := s.auditUC.History(ctx, "transaction", chi.URLParam(r, "transactionID"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": entries})
}

func (s *Server) handleAvailableForPayout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	available, err := s.payoutUC.AvailableForPayout(ctx, logging.ActorID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"available": available})
}

type requestPayoutRequest struct {
	Amount int64 `json:"amount"`
}

func (s *Server) handleRequestPayout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := logging.ActorID(ctx)

	var req requestPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	payout, eta, err := s.payoutUC.RequestPayout(ctx, actor, actor, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	response := struct {
		Payout                 interface{} `json:"payout"`
		EstimatedProcessingHrs int         `json:"estimated_processing_hours"`
	}{
		Payout:                 payout,
		EstimatedProcessingHrs: int(eta.Hours()),
	}
	writeJSON(w, http.StatusCreated, response)
}

func (s *Server) handleEarnings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	earnings, err := s.payoutUC.GetEarnings(ctx, logging.ActorID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, earnings)
}

func (s *Server) handleTaxReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		http.Error(w, "year is required", http.StatusBadRequest)
		return
	}
	month, _ := strconv.Atoi(r.URL.Query().Get("month")) // 0 means the whole year

	report, err := s.payoutUC.TaxReport(ctx, logging.ActorID(ctx), year, month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type cancelSubscriptionRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req cancelSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sub, err := s.subUC.Cancel(ctx, logging.ActorID(ctx), chi.URLParam(r, "subscriptionID"), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// handleWebhook acknowledges only what it durably processed: a bad signature
// or a failed state change returns non-2xx so the processor retries.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.billingUC.ProcessWebhook(ctx, payload, r.Header.Get(webhookSignatureHeader)); err != nil {
		if errors.Is(err, domain.ErrNotAllowed) {
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}
		s.log.Error().Err(err).Msg("webhook processing failed")
		http.Error(w, "Processing failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
