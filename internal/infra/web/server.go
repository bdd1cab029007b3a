package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"mentor-payments-core/internal/infra/logging"
	"mentor-payments-core/internal/usecase"
)

type Server struct {
	billingUC usecase.BillingUseCase
	payoutUC  usecase.PayoutUseCase
	subUC     usecase.SubscriptionUseCase
	auditUC   usecase.AuditUseCase
	jwtSecret []byte
	log       *zerolog.Logger
}

func NewServer(
	billingUC usecase.BillingUseCase,
	payoutUC usecase.PayoutUseCase,
	subUC usecase.SubscriptionUseCase,
	auditUC usecase.AuditUseCase,
	jwtSecret string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		billingUC: billingUC,
		payoutUC:  payoutUC,
		subUC:     subUC,
		auditUC:   auditUC,
		jwtSecret: []byte(jwtSecret),
		log:       logger,
	}
}

// Router builds the full route tree. The webhook endpoint stays outside the
// auth middleware: the processor authenticates with its payload signature,
// not a bearer token.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/webhooks/payment", s.handleWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/payments/initialize", s.handleInitializePayment)
		r.Post("/payments/confirm", s.handleConfirmPayment)

		r.Post("/sessions/{sessionID}/settle", s.handleSettleSession)
		r.Post("/sessions/{sessionID}/cancel", s.handleCancelSession)

		r.Post("/transactions/{transactionID}/refund", s.handleRefund)
		r.Get("/transactions/{transactionID}/audit", s.handleAuditHistory)

		r.Get("/payouts/available", s.handleAvailableForPayout)
		r.Post("/payouts", s.handleRequestPayout)
		r.Get("/earnings", s.handleEarnings)
		r.Get("/earnings/tax-report", s.handleTaxReport)

		r.Post("/subscriptions/{subscriptionID}/cancel", s.handleCancelSubscription)
	})

	return r
}

type actorClaims struct {
	jwt.RegisteredClaims
}

// authMiddleware validates the bearer token and records its subject as the
// acting user for the request. Every authorization decision downstream keys
// off that subject.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		claims := &actorClaims{}
		tkn, err := jwt.ParseWithClaims(tokenParts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return s.jwtSecret, nil
		})
		if err != nil || !tkn.Valid || claims.Subject == "" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		ctx := logging.WithActorID(r.Context(), claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
