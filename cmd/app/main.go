package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mentor-payments-core/internal/config"
	"mentor-payments-core/internal/infra/db/postgres"
	"mentor-payments-core/internal/infra/logging"
	"mentor-payments-core/internal/infra/metrics"
	"mentor-payments-core/internal/infra/payment"
	red "mentor-payments-core/internal/infra/redis"
	"mentor-payments-core/internal/infra/sched"
	"mentor-payments-core/internal/infra/web"
	"mentor-payments-core/internal/infra/worker"
	"mentor-payments-core/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, no sampling)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, *devMode)

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	spendCounter := red.NewSpendCounter(redisClient)

	// ---- Repositories ----
	tm := postgres.NewTxManager(pool)
	txRepo := postgres.NewTransactionRepo(pool)
	sessionRepo := postgres.NewSessionRepo(pool)
	pricingRepo := postgres.NewPricingModelRepo(pool)
	usageRepo := postgres.NewUsageRepo(pool)
	subRepo := postgres.NewSubscriptionRepo(pool)
	payoutRepo := postgres.NewPayoutRepo(pool)
	auditRepo := postgres.NewAuditLogRepo(pool)

	// ---- Payment gateway ----
	gateway := payment.NewRazorpayGateway(
		cfg.Gateway.KeyID, cfg.Gateway.KeySecret, cfg.Gateway.WebhookSecret,
		cfg.Gateway.BaseURL, cfg.Gateway.Timeout(),
	)

	// ---- Use cases ----
	auditUC := usecase.NewAuditUseCase(auditRepo, logger)
	ledgerUC := usecase.NewLedgerUseCase(txRepo, auditUC, cfg.Billing.FeeBasisPoints, logger)
	riskUC := usecase.NewRiskUseCase(txRepo, spendCounter, auditUC, cfg.Risk, logger)
	registry := usecase.NewRegistry(
		usecase.NewOneTimeHandler(sessionRepo),
		usecase.NewHourlyHandler(usageRepo),
		usecase.NewSubscriptionHandler(subRepo),
	)
	billingUC := usecase.NewBillingUseCase(
		sessionRepo, pricingRepo, usageRepo, txRepo, registry,
		ledgerUC, riskUC, gateway, tm, auditUC, locker,
		cfg.Billing.Currency, logger,
	)
	payoutUC := usecase.NewPayoutUseCase(payoutRepo, txRepo, tm, auditUC, cfg.Billing.MinPayoutMinor, cfg.Billing.Currency, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, ledgerUC, tm, auditUC, cfg.Billing.Currency, logger)

	// ---- Worker pool + automatic payouts ----
	pool2 := worker.NewPool(cfg.Worker.PoolWorkers, logger)
	pool2.Start(ctx)
	defer pool2.Stop()
	if cfg.Billing.AutoPayoutEnabled {
		billingUC.SetAutoPayout(func(transactionID string) {
			_ = pool2.Submit(func(ctx context.Context) error {
				_, err := payoutUC.AutoPayout(ctx, transactionID)
				if err != nil && !usecase.IsConflict(err) {
					return err
				}
				return nil
			})
		})
	}

	// ---- HTTP API ----
	srv := web.NewServer(billingUC, payoutUC, subUC, auditUC, cfg.Server.JWTSecret, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Background workers ----
	go sched.NewPayoutSettler(payoutUC, cfg.Worker.PayoutInterval(), cfg.Worker.PayoutMaxAttempts, logger).Start(ctx)
	go sched.NewRenewalWorker(subUC, cfg.Worker.RenewalInterval(), logger).Start(ctx)
	go sched.NewAuditRetention(auditRepo, cfg.Worker.RetentionInterval(), cfg.Worker.RetentionGenericDays, cfg.Worker.RetentionPaymentDays, logger).Start(ctx)

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	cancel()
}
