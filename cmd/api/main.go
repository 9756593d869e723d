package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chantierpro/payments/internal/bootstrap"
	"github.com/chantierpro/payments/internal/controller"
	"github.com/chantierpro/payments/internal/domain/payment"
	infraRedis "github.com/chantierpro/payments/internal/infrastructure/redis"
	customMW "github.com/chantierpro/payments/internal/middleware"
	"github.com/chantierpro/payments/internal/providers"
	"github.com/chantierpro/payments/internal/repository/postgres"
	"github.com/chantierpro/payments/internal/service"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "payments-api", "payments")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	cfg := app.Config

	// --- Persistence ---
	recordRepo := postgres.NewRecordRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)
	invoiceMarker := postgres.NewInvoiceMarker(app.Pool)
	dedupStore := infraRedis.NewDedupStore(app.Redis, 72*time.Hour)
	idempotencyStore := customMW.NewIdempotencyStore(app.Redis, 24*time.Hour)

	// --- Services ---
	registry := providers.NewRegistry()
	defaultProvider := payment.ProviderType(cfg.Providers.Default)

	checkoutSvc := service.NewCheckoutService(
		registry, cfg.Providers, recordRepo,
		cfg.TenantID, defaultProvider,
		app.Metrics, app.Logger,
	)
	webhookSvc := service.NewWebhookService(
		registry, cfg.Providers, recordRepo,
		dedupStore, invoiceMarker, txManager,
		app.Metrics, app.Logger,
	)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:             app.Pool,
		RedisClient:      app.Redis,
		CheckoutService:  checkoutSvc,
		WebhookService:   webhookSvc,
		IdempotencyStore: idempotencyStore,
		Metrics:          app.Metrics,
		CORSConfig:       cfg.Server.CORS,
		JWTSecret:        cfg.Auth.JWTSecret,
		TenantID:         cfg.TenantID,
		WebhookRateLimit: cfg.Server.WebhookRateLimit,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
