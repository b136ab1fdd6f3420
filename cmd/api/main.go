package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reseller-ledger/config"
	httpHandler "reseller-ledger/internal/adapter/http/handler"
	"reseller-ledger/internal/adapter/provider"
	pgStorage "reseller-ledger/internal/adapter/storage/postgres"
	redisStorage "reseller-ledger/internal/adapter/storage/redis"
	"reseller-ledger/internal/core/ports"
	"reseller-ledger/internal/service"
	"reseller-ledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Reseller Ledger")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	orderRepo := pgStorage.NewOrderRepo(pool)
	withdrawalRepo := pgStorage.NewWithdrawalRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	providerClient := provider.NewClient(cfg.Provider, logger.Component(log, "provider"))

	// Initialize business services
	ledgerSvc := service.NewLedgerService(walletRepo, ledgerRepo, transactor, logger.Component(log, "ledger"))
	adjustSvc := service.NewAdjustmentService(ledgerSvc, withdrawalRepo, transactor, idempotencyCache, logger.Component(log, "adjustment"))
	trackerSvc := service.NewFulfillmentService(orderRepo, ledgerRepo, ledgerSvc, transactor, cfg.Reconcile.StalenessThreshold, logger.Component(log, "fulfillment"))
	reconcileSvc := service.NewReconcileService(orderRepo, trackerSvc, providerClient, transactor, cfg.Reconcile, logger.Component(log, "reconcile"))
	verificationSvc := service.NewVerificationService(orderRepo, cfg.Verification, logger.Component(log, "verification"))
	investigationSvc := service.NewInvestigationService(walletRepo, orderRepo, withdrawalRepo, ledgerRepo, logger.Component(log, "investigation"))

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Ledger:           ledgerSvc,
		AdjustSvc:        adjustSvc,
		Tracker:          trackerSvc,
		Worker:           reconcileSvc,
		Verifier:         verificationSvc,
		InvestigationSvc: investigationSvc,
		TokenSvc:         tokenSvc,
		RateLimitStore:   rateLimitStore,
		HealthCheckers:   []ports.HealthChecker{pgHealth, redisHealth},
		Logger:           log,
	})

	// Background reconciliation worker
	workerCtx, stopWorker := context.WithCancel(ctx)
	go reconcileSvc.Run(workerCtx)

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
