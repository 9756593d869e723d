package service

import (
	"context"
	"errors"
	"sync"
	"time"

	domainErrors "github.com/chantierpro/payments/internal/domain/errors"
	"github.com/chantierpro/payments/internal/domain/money"
	"github.com/chantierpro/payments/internal/domain/payment"
	"github.com/chantierpro/payments/internal/infrastructure/observability"
	"github.com/chantierpro/payments/internal/providers"
	"github.com/chantierpro/payments/pkg/retry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ProviderConfigSource resolves per-provider credentials for a tenant.
// Satisfied by config.ProvidersConfig.
type ProviderConfigSource interface {
	ProviderConfig(t payment.ProviderType, tenantID string) (payment.ProviderConfig, bool)
	WebhookSecret(t payment.ProviderType) string
}

// ProviderSource builds or returns cached gateway adapters. Satisfied by
// *providers.Registry.
type ProviderSource interface {
	CreateProvider(t payment.ProviderType, cfg payment.ProviderConfig) (providers.Provider, error)
}

// CheckoutService drives gateway operations through the provider registry:
// resolve the adapter, call it behind a per-gateway circuit breaker with
// bounded retries, persist the resulting record.
type CheckoutService struct {
	registry        ProviderSource
	configs         ProviderConfigSource
	repo            payment.Repository
	tenantID        string
	defaultProvider payment.ProviderType
	retryCfg        retry.Config
	metrics         *observability.Metrics
	logger          zerolog.Logger

	mu       sync.Mutex
	breakers map[payment.ProviderType]*gobreaker.CircuitBreaker[any]
}

func NewCheckoutService(
	registry ProviderSource,
	configs ProviderConfigSource,
	repo payment.Repository,
	tenantID string,
	defaultProvider payment.ProviderType,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *CheckoutService {
	retryCfg := retry.DefaultConfig()
	retryCfg.RetryIf = isTransient

	return &CheckoutService{
		registry:        registry,
		configs:         configs,
		repo:            repo,
		tenantID:        tenantID,
		defaultProvider: defaultProvider,
		retryCfg:        retryCfg,
		metrics:         metrics,
		logger:          logger,
		breakers:        make(map[payment.ProviderType]*gobreaker.CircuitBreaker[any]),
	}
}

// isTransient reports whether a gateway error is worth retrying. Rejections
// the gateway decided on (4xx) and local configuration or validation
// failures will not change on a second attempt.
func isTransient(err error) bool {
	var apiErr *domainErrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == 429
	}
	if errors.Is(err, domainErrors.ErrMissingCredential) ||
		errors.Is(err, domainErrors.ErrMandateRequired) ||
		errors.Is(err, domainErrors.ErrInvalidInput) {
		return false
	}
	var valErr *domainErrors.ValidationError
	return !errors.As(err, &valErr)
}

// CreateSession creates a checkout session with the chosen gateway and
// persists a pending record for it.
func (s *CheckoutService) CreateSession(ctx context.Context, input CheckoutSessionInput) (*payment.Record, *payment.Session, error) {
	providerType, p, err := s.provider(input.Provider)
	if err != nil {
		return nil, nil, err
	}

	amount := money.New(input.AmountCents, input.Currency)
	req := payment.SessionRequest{
		Amount:        amount,
		Description:   input.Description,
		CustomerEmail: input.CustomerEmail,
		CustomerName:  input.CustomerName,
		SuccessURL:    input.SuccessURL,
		CancelURL:     input.CancelURL,
		Metadata:      input.Metadata,
		QuoteID:       input.QuoteID,
		InvoiceID:     input.InvoiceID,
	}

	session, err := callProvider(ctx, s, providerType, "create_session", func() (*payment.Session, error) {
		return p.CreateSession(ctx, req)
	})
	if err != nil {
		s.countCheckout(providerType, payment.KindSession, "error")
		return nil, nil, err
	}

	rec, err := payment.NewRecord(s.tenantID, providerType, payment.KindSession, amount)
	if err != nil {
		return nil, nil, err
	}
	rec.SessionID = session.ID
	rec.ProviderPaymentID = session.ProviderPaymentID
	rec.CheckoutURL = session.URL
	rec.QuoteID = input.QuoteID
	rec.InvoiceID = input.InvoiceID
	rec.CustomerEmail = input.CustomerEmail

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, nil, err
	}
	s.countCheckout(providerType, payment.KindSession, "created")
	if s.metrics != nil {
		s.metrics.ActiveCheckouts.Inc()
	}
	return rec, session, nil
}

// CreateLink creates a reusable payment link and persists a pending record.
func (s *CheckoutService) CreateLink(ctx context.Context, input PaymentLinkInput) (*payment.Record, *payment.Link, error) {
	providerType, p, err := s.provider(input.Provider)
	if err != nil {
		return nil, nil, err
	}

	amount := money.New(input.AmountCents, input.Currency)
	req := payment.LinkRequest{
		Amount:      amount,
		Description: input.Description,
		Metadata:    input.Metadata,
	}

	link, err := callProvider(ctx, s, providerType, "create_link", func() (*payment.Link, error) {
		return p.CreateLink(ctx, req)
	})
	if err != nil {
		s.countCheckout(providerType, payment.KindLink, "error")
		return nil, nil, err
	}

	rec, err := payment.NewRecord(s.tenantID, providerType, payment.KindLink, amount)
	if err != nil {
		return nil, nil, err
	}
	rec.SessionID = link.ID
	rec.CheckoutURL = link.URL
	rec.QuoteID = input.QuoteID
	rec.InvoiceID = input.InvoiceID

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, nil, err
	}
	s.countCheckout(providerType, payment.KindLink, "created")
	return rec, link, nil
}

// Refund requests a refund for a stored record. A zero amount asks the
// gateway for a full refund of the remaining balance.
func (s *CheckoutService) Refund(ctx context.Context, recordID uuid.UUID, input RefundInput) (*payment.Record, *payment.RefundResult, error) {
	rec, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, nil, err
	}

	_, p, err := s.provider(string(rec.Provider))
	if err != nil {
		return nil, nil, err
	}

	req := payment.RefundRequest{
		ProviderPaymentID: rec.PaymentReference(),
		Reason:            input.Reason,
	}
	if input.AmountCents > 0 {
		currency := input.Currency
		if currency == "" {
			currency = rec.Amount.Currency
		}
		m := money.New(input.AmountCents, currency)
		req.Amount = &m
	}

	result, err := callProvider(ctx, s, rec.Provider, "refund", func() (*payment.RefundResult, error) {
		return p.Refund(ctx, req)
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.RefundsTotal.WithLabelValues(string(rec.Provider), "error").Inc()
		}
		return nil, nil, err
	}

	refunded := result.Amount
	if refunded.Cents == 0 {
		// Gateways do not all echo the amount on a full refund.
		refunded = money.New(rec.Amount.Cents-rec.RefundedCents, rec.Amount.Currency)
	}
	rec.ApplyRefund(refunded)
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, nil, err
	}
	if s.metrics != nil {
		s.metrics.RefundsTotal.WithLabelValues(string(rec.Provider), string(result.Status)).Inc()
	}
	return rec, result, nil
}

// GetStatus reads the gateway-side status of a record and folds it into the
// stored record when it moved.
func (s *CheckoutService) GetStatus(ctx context.Context, recordID uuid.UUID) (*payment.Record, *payment.StatusResult, error) {
	rec, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, nil, err
	}

	_, p, err := s.provider(string(rec.Provider))
	if err != nil {
		return nil, nil, err
	}

	result, err := callProvider(ctx, s, rec.Provider, "get_status", func() (*payment.StatusResult, error) {
		return p.GetStatus(ctx, rec.PaymentReference())
	})
	if err != nil {
		return nil, nil, err
	}

	if result.Status != rec.Status {
		if err := rec.ApplyStatus(result.Status, ""); err == nil {
			if err := s.repo.Update(ctx, rec); err != nil {
				return nil, nil, err
			}
		}
	}
	return rec, result, nil
}

// CreateCustomer registers a payer with the gateway's customer subsystem.
func (s *CheckoutService) CreateCustomer(ctx context.Context, input CustomerInput) (payment.ProviderType, *payment.CustomerResult, error) {
	providerType, p, err := s.provider(input.Provider)
	if err != nil {
		return providerType, nil, err
	}

	req := payment.CustomerRequest{
		Email:      input.Email,
		Name:       input.Name,
		Phone:      input.Phone,
		AddressL1:  input.AddressL1,
		City:       input.City,
		PostalCode: input.PostalCode,
		Country:    input.Country,
	}
	result, err := callProvider(ctx, s, providerType, "create_customer", func() (*payment.CustomerResult, error) {
		return p.CreateCustomer(ctx, req)
	})
	return providerType, result, err
}

// GetPayment returns a stored record by id.
func (s *CheckoutService) GetPayment(ctx context.Context, recordID uuid.UUID) (*payment.Record, error) {
	return s.repo.GetByID(ctx, recordID)
}

// ListPayments returns the tenant's records, newest first.
func (s *CheckoutService) ListPayments(ctx context.Context, limit, offset int) ([]*payment.Record, error) {
	return s.repo.ListByTenant(ctx, s.tenantID, limit, offset)
}

// ProviderInfo describes one gateway's availability for the tenant.
type ProviderInfo struct {
	Type    payment.ProviderType
	Active  bool
	Default bool
}

// Providers reports every supported gateway and whether the tenant has an
// active configuration for it.
func (s *CheckoutService) Providers() []ProviderInfo {
	out := make([]ProviderInfo, 0, len(payment.SupportedProviders))
	for _, t := range payment.SupportedProviders {
		cfg, ok := s.configs.ProviderConfig(t, s.tenantID)
		out = append(out, ProviderInfo{
			Type:    t,
			Active:  ok && cfg.Active,
			Default: t == s.defaultProvider,
		})
	}
	return out
}

// provider resolves a provider name (empty means the configured default) to
// an initialized adapter from the registry.
func (s *CheckoutService) provider(name string) (payment.ProviderType, providers.Provider, error) {
	t := s.defaultProvider
	if name != "" {
		t = payment.ProviderType(name)
	}
	if !t.IsSupported() {
		return t, nil, domainErrors.ErrUnsupportedProvider
	}

	cfg, ok := s.configs.ProviderConfig(t, s.tenantID)
	if !ok || !cfg.Active {
		return t, nil, domainErrors.ErrProviderNotFound
	}

	p, err := s.registry.CreateProvider(t, cfg)
	if err != nil {
		return t, nil, err
	}
	return t, p, nil
}

// breaker returns the circuit breaker guarding one gateway, creating it on
// first use. One breaker per gateway: Stripe being down must not block
// Mollie traffic.
func (s *CheckoutService) breaker(t payment.ProviderType) *gobreaker.CircuitBreaker[any] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.breakers[t]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        string(t),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn().Str("provider", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
			if s.metrics != nil {
				s.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	s.breakers[t] = b
	return b
}

// callProvider runs one gateway call behind the provider's circuit breaker
// with bounded retries, recording duration and outcome.
func callProvider[T any](ctx context.Context, s *CheckoutService, t payment.ProviderType, operation string, fn func() (T, error)) (T, error) {
	var zero T
	start := time.Now()

	result, err := s.breaker(t).Execute(func() (any, error) {
		return retry.DoWithResult(ctx, s.retryCfg, func() (T, error) {
			return fn()
		})
	})

	status := "success"
	if err != nil {
		status = "error"
	}
	if s.metrics != nil {
		s.metrics.ProviderOperationsTotal.WithLabelValues(string(t), operation, status).Inc()
		s.metrics.ProviderOperationDuration.WithLabelValues(string(t), operation).Observe(time.Since(start).Seconds())
		s.metrics.CircuitBreakerRequests.WithLabelValues(string(t), status).Inc()
	}
	if err != nil {
		s.logger.Error().Err(err).
			Str("provider", string(t)).Str("operation", operation).
			Msg("provider operation failed")
		return zero, err
	}
	return result.(T), nil
}

func (s *CheckoutService) countCheckout(t payment.ProviderType, kind payment.Kind, status string) {
	if s.metrics != nil {
		s.metrics.CheckoutsTotal.WithLabelValues(string(t), string(kind), status).Inc()
	}
}
