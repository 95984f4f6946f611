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

	"storefront-billing/internal/config"
	"storefront-billing/internal/domain/ports/adapter"
	pg "storefront-billing/internal/infra/db/postgres"
	webhookapi "storefront-billing/internal/infra/http"
	"storefront-billing/internal/infra/logging"
	"storefront-billing/internal/infra/metrics"
	red "storefront-billing/internal/infra/redis"
	"storefront-billing/internal/infra/sched"
	"storefront-billing/internal/infra/telegram"
	"storefront-billing/internal/infra/web"
	"storefront-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop chat sink)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Repositories ----
	codeRepo := pg.NewCodeRequestRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)
	attemptRepo := pg.NewValidationAttemptRepo(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPlanRepo(pool), redisClient, cfg.Redis.TTL)
	txManager := pg.NewTxManager(pool)

	// ---- Chat sink ----
	var chat adapter.ChatSink
	if cfg.Runtime.Dev || cfg.Telegram.Token == "" {
		chat = telegram.NewNoopChatSink()
	} else {
		chat, err = telegram.NewRealChatSink(cfg.Telegram.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
	}

	// ---- Use cases ----
	limiter := usecase.NewRateLimiter(attemptRepo)
	redeemUC := usecase.NewRedemptionUseCase(codeRepo, subRepo, limiter, txManager, logger)
	issueUC := usecase.NewIssuanceUseCase(codeRepo, chat, logger)
	reconcileUC := usecase.NewReconcileUseCase(payRepo, subRepo, planRepo, cfg.Webhook.PlanID, txManager, logger)
	sweepUC := usecase.NewSweeperUseCase(codeRepo, attemptRepo, chat, logger)

	// ---- Expiry sweeper ----
	worker := sched.NewExpiryWorker(cfg.Sweeper.Interval, sweepUC, logger)
	worker.Start(ctx)
	defer worker.Stop()

	// ---- HTTP: public API ----
	auth := web.NewAuthManager(cfg.API.JWTSecret, 30*time.Minute)
	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           web.NewServer(redeemUC, issueUC, auth, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.API.Port).Msg("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("api server stopped")
			cancel()
		}
	}()

	// ---- HTTP: webhook ingest ----
	hookServer := webhookapi.NewServer(&cfg.Webhook, reconcileUC, logger)
	go func() {
		if err := hookServer.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("webhook server stopped")
			cancel()
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logger.Info().Msg("shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = apiServer.Shutdown(shutdownCtx)
	_ = hookServer.Shutdown(shutdownCtx)
	worker.Stop()
}
