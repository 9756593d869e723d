package controller

import (
	"time"

	"github.com/chantierpro/payments/internal/infrastructure/config"
	"github.com/chantierpro/payments/internal/infrastructure/observability"
	customMW "github.com/chantierpro/payments/internal/middleware"
	"github.com/chantierpro/payments/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	Pool             *pgxpool.Pool
	RedisClient      *redis.Client
	CheckoutService  *service.CheckoutService
	WebhookService   *service.WebhookService
	IdempotencyStore *customMW.IdempotencyStore
	Metrics          *observability.Metrics
	CORSConfig       config.CORSConfig
	JWTSecret        string
	TenantID         string
	WebhookRateLimit int
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	if deps.Metrics != nil {
		r.Use(customMW.Metrics(deps.Metrics))
	}

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	checkoutH := NewCheckoutController(deps.CheckoutService)
	webhookH := NewWebhookController(deps.WebhookService, deps.TenantID)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	// Gateway callbacks: signature-authenticated, never behind JWT. Rate
	// limited per source IP against webhook floods.
	webhookLimit := deps.WebhookRateLimit
	if webhookLimit <= 0 {
		webhookLimit = 300
	}
	r.With(customMW.RateLimit(webhookLimit)).Post("/webhooks/{provider}", webhookH.Receive)

	r.Route("/api/v1", func(r chi.Router) {
		if deps.JWTSecret != "" {
			r.Use(customMW.RequireAuth(deps.JWTSecret))
		}
		idempotencyMW := customMW.Idempotency(deps.IdempotencyStore)

		r.With(idempotencyMW).Post("/checkout/sessions", checkoutH.CreateSession)
		r.With(idempotencyMW).Post("/checkout/links", checkoutH.CreateLink)
		r.Post("/customers", checkoutH.CreateCustomer)
		r.Get("/providers", checkoutH.ListProviders)

		r.Get("/payments", checkoutH.ListPayments)
		r.Get("/payments/{id}", checkoutH.GetPayment)
		r.Get("/payments/{id}/status", checkoutH.GetStatus)
		r.With(idempotencyMW).Post("/payments/{id}/refund", checkoutH.RefundPayment)
	})

	return r
}
