package handler

import (
	"reseller-ledger/internal/adapter/http/middleware"
	redisStore "reseller-ledger/internal/adapter/storage/redis"
	"reseller-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Ledger           ports.LedgerStore
	AdjustSvc        ports.AdjustmentService
	Tracker          ports.FulfillmentTracker
	Worker           ports.ReconciliationWorker
	Verifier         ports.VerificationSession
	InvestigationSvc ports.InvestigationService
	TokenSvc         ports.TokenService
	RateLimitStore   *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers   []ports.HealthChecker
	Logger           zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep: verifies PostgreSQL and Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	adminOnly := middleware.RequireRole(middleware.RoleAdmin)

	walletHandler := NewWalletHandler(deps.Ledger, deps.AdjustSvc)
	orderHandler := NewOrderHandler(deps.Tracker, deps.Verifier)
	withdrawalHandler := NewWithdrawalHandler(deps.AdjustSvc)
	reconcileHandler := NewReconcileHandler(deps.Worker)
	investigationHandler := NewInvestigationHandler(deps.InvestigationSvc)

	// API v1 routes (all bearer-JWT protected; issuance is external)
	v1 := r.Group("/api/v1", jwtAuth)

	wallets := v1.Group("/wallets")
	{
		wallets.POST("", rl("admin"), adminOnly, walletHandler.CreateWallet)
		wallets.GET("/:id", rl("admin"), walletHandler.GetWallet)
		wallets.POST("/:id/adjust", rl("admin"), adminOnly, walletHandler.Adjust)
		wallets.GET("/:id/audit", rl("admin"), walletHandler.Audit)
	}

	v1.POST("/sales", rl("sales"), orderHandler.CreateSale)

	orders := v1.Group("/orders")
	{
		orders.GET("/:id", rl("sales"), orderHandler.GetOrder)
		orders.POST("/:id/accept", rl("sales"), orderHandler.AcceptOrder)
		orders.GET("/:id/verify", rl("verify"), orderHandler.VerifyOrder)
	}

	v1.POST("/fulfillment/callback", rl("sales"), orderHandler.FulfillmentCallback)

	withdrawals := v1.Group("/withdrawals")
	{
		withdrawals.POST("", rl("withdrawals"), withdrawalHandler.RequestWithdrawal)
		withdrawals.POST("/:id/complete", rl("withdrawals"), adminOnly, withdrawalHandler.CompleteWithdrawal)
	}

	reconcile := v1.Group("/reconcile", adminOnly)
	{
		reconcile.GET("/stuck", rl("reconcile"), reconcileHandler.ListStuck)
		reconcile.POST("/orders/:id/retry", rl("reconcile"), reconcileHandler.RetryOne)
		reconcile.POST("/retry-all", rl("reconcile"), reconcileHandler.RetryAll)
	}

	v1.GET("/investigations/stores/:store_id", rl("admin"), adminOnly, investigationHandler.Investigate)

	return r
}
