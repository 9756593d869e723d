package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Provider operation metrics
	ProviderOperationsTotal   *prometheus.CounterVec
	ProviderOperationDuration *prometheus.HistogramVec
	ProviderErrors            *prometheus.CounterVec

	// Registry metrics
	RegistryCacheHits   *prometheus.CounterVec
	RegistryCacheMisses *prometheus.CounterVec

	// Webhook metrics
	WebhookEventsTotal          *prometheus.CounterVec
	WebhookVerificationFailures *prometheus.CounterVec
	WebhookDuplicates           *prometheus.CounterVec

	// Checkout metrics
	CheckoutsTotal  *prometheus.CounterVec
	RefundsTotal    *prometheus.CounterVec
	ActiveCheckouts prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState    *prometheus.GaugeVec
	CircuitBreakerRequests *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := prometheus.WrapRegistererWith(nil, reg)

	m := &Metrics{
		ProviderOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_operations_total",
				Help:      "Total number of gateway operations by provider, operation and status",
			},
			[]string{"provider", "operation", "status"},
		),
		ProviderOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_operation_duration_seconds",
				Help:      "Gateway operation duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"provider", "operation"},
		),
		ProviderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_errors_total",
				Help:      "Total number of gateway errors by provider and error type",
			},
			[]string{"provider", "error_type"},
		),
		RegistryCacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registry_cache_hits_total",
				Help:      "Provider registry cache hits",
			},
			[]string{"provider"},
		),
		RegistryCacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registry_cache_misses_total",
				Help:      "Provider registry cache misses (adapter built)",
			},
			[]string{"provider"},
		),
		WebhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_events_total",
				Help:      "Total number of webhook events by provider and result",
			},
			[]string{"provider", "result"},
		),
		WebhookVerificationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_verification_failures_total",
				Help:      "Webhook signature verification failures by provider",
			},
			[]string{"provider"},
		),
		WebhookDuplicates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_duplicates_total",
				Help:      "Webhook events discarded as duplicates",
			},
			[]string{"provider"},
		),
		CheckoutsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checkouts_total",
				Help:      "Total number of checkout sessions and links created",
			},
			[]string{"provider", "kind", "status"},
		),
		RefundsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refunds_total",
				Help:      "Total number of refund requests",
			},
			[]string{"provider", "status"},
		),
		ActiveCheckouts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_checkouts",
				Help:      "Number of checkout sessions awaiting a terminal status",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		CircuitBreakerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_requests_total",
				Help:      "Total number of circuit breaker requests",
			},
			[]string{"name", "result"},
		),
	}

	factory.MustRegister(
		m.ProviderOperationsTotal,
		m.ProviderOperationDuration,
		m.ProviderErrors,
		m.RegistryCacheHits,
		m.RegistryCacheMisses,
		m.WebhookEventsTotal,
		m.WebhookVerificationFailures,
		m.WebhookDuplicates,
		m.CheckoutsTotal,
		m.RefundsTotal,
		m.ActiveCheckouts,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CircuitBreakerState,
		m.CircuitBreakerRequests,
	)

	return m
}
