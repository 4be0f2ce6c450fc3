package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/vnmchuo/budget-gateway/config"
	"github.com/vnmchuo/budget-gateway/internal/auth"
	"github.com/vnmchuo/budget-gateway/internal/billing"
	"github.com/vnmchuo/budget-gateway/internal/failures"
	"github.com/vnmchuo/budget-gateway/internal/hooks"
	"github.com/vnmchuo/budget-gateway/internal/migrations"
	"github.com/vnmchuo/budget-gateway/internal/pricing"
	"github.com/vnmchuo/budget-gateway/internal/proxy"
	"github.com/vnmchuo/budget-gateway/internal/seeder"
	"github.com/vnmchuo/budget-gateway/internal/telemetry"
	"github.com/vnmchuo/budget-gateway/internal/upstream"
	"github.com/vnmchuo/budget-gateway/pkg/ratelimit"
)

const serviceName = "budget-gateway"

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		bootstrapLogger().Fatal("failed to load config", zap.Error(err))
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel)
	if err != nil {
		bootstrapLogger().Fatal("failed to init logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("service", serviceName), zap.String("tenant_id", cfg.TenantID))

	// 2. Init telemetry
	shutdownTracer, err := telemetry.InitTracer(serviceName, cfg, logger)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(registry)

	// 3. Load pricing
	table, err := pricing.Load(cfg.PricingFile)
	if err != nil {
		logger.Fatal("failed to load pricing", zap.String("file", cfg.PricingFile), zap.Error(err))
	}
	logger.Info("pricing loaded", zap.Strings("models", table.Models()))

	// 4. Connect PostgreSQL
	ctx := context.Background()
	if cfg.RunMigrations {
		if err := migrations.Up(cfg.PostgresDSN, logger); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("failed to ping postgres", zap.Error(err))
	}
	logger.Info("PostgreSQL connected")

	// 5. Connect Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to ping redis", zap.Error(err))
	}
	logger.Info("Redis connected")

	// 6. Init auth
	authStore := auth.NewPostgresStore(pool)
	authMiddleware := auth.NewMiddleware(authStore, rdb, cfg.TenantID, logger)

	// 7. Init billing hooks
	billingClient := billing.NewClient(billing.Options{
		BaseURL:           cfg.BillingAPIURL,
		APIKey:            cfg.BillingAPIKey,
		CheckTimeout:      cfg.BudgetCheckTimeout,
		AccountingTimeout: cfg.AccountingTimeout,
	})
	failureStore := failures.NewPostgresStore(pool)
	tracer := otel.GetTracerProvider().Tracer(serviceName)
	budgetHooks := hooks.New(billingClient, table, failureStore, logger, metrics, tracer)
	dispatcher := hooks.NewDispatcher(budgetHooks, cfg.AccountingTimeout, logger)

	// 8. Init rate limiter
	limiter := ratelimit.NewLimiter(rdb, cfg.DefaultRateLimitTPM)

	// 9. Init handler
	handler := proxy.NewHandler(
		dispatcher,
		upstream.New(cfg.UpstreamURL, cfg.UpstreamAPIKey),
		failureStore,
		limiter,
		cfg.TenantID,
		logger,
		tracer,
	)

	// 10. Seed test API key if RUN_SEED=true
	if os.Getenv("RUN_SEED") == "true" {
		_ = seeder.SeedTestAPIKey(ctx, authStore, cfg.TenantID, logger)
	}

	// 11. Init Chi router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(proxy.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	// Public routes
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"budget-gateway"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/v1/chat/completions", handler.HandleComplete)
		r.Get("/v1/failures", handler.HandleFailures)
	})

	// 12. Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("budget gateway starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}

	// Flush usage records and failure events still in flight.
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn("accounting hooks still pending at exit", zap.Error(err))
	}
	logger.Info("server stopped")
}

// bootstrapLogger is used before LOG_LEVEL is known.
func bootstrapLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
