package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	domainErrors "github.com/chantierpro/payments/internal/domain/errors"
	"github.com/chantierpro/payments/internal/domain/payment"
	"github.com/google/uuid"
)

// MockProvider is an in-memory Provider for service-layer tests: no network,
// deterministic results, configurable failures.
type MockProvider struct {
	providerType payment.ProviderType
	failWith     error
	latency      time.Duration
	configured   bool

	// InitializeCalls counts Initialize invocations, for cache assertions.
	InitializeCalls atomic.Int32
}

type MockProviderOption func(*MockProvider)

// WithFailure makes every network-shaped method fail with err.
func WithFailure(err error) MockProviderOption {
	return func(p *MockProvider) { p.failWith = err }
}

// WithLatency simulates gateway latency.
func WithLatency(d time.Duration) MockProviderOption {
	return func(p *MockProvider) { p.latency = d }
}

// NewMockProvider creates a mock for the given provider type.
func NewMockProvider(t payment.ProviderType, opts ...MockProviderOption) *MockProvider {
	p := &MockProvider{providerType: t}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *MockProvider) Type() payment.ProviderType { return p.providerType }

func (p *MockProvider) Initialize(cfg payment.ProviderConfig) error {
	p.InitializeCalls.Add(1)
	if len(cfg.Credentials) == 0 {
		return domainErrors.NewConfigurationError(string(p.providerType), "credentials", "credential is required")
	}
	p.configured = true
	return nil
}

func (p *MockProvider) IsConfigured() bool { return p.configured }

func (p *MockProvider) simulate(ctx context.Context) error {
	if p.latency > 0 {
		select {
		case <-time.After(p.latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.failWith
}

func (p *MockProvider) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	if err := p.simulate(ctx); err != nil {
		return nil, err
	}
	id := fmt.Sprintf("%s_sess_%s", p.providerType, uuid.New().String()[:8])
	return &payment.Session{
		ID:                id,
		URL:               "https://checkout.example.com/" + id,
		ProviderPaymentID: fmt.Sprintf("%s_pay_%s", p.providerType, uuid.New().String()[:8]),
		Status:            payment.StatusPending,
	}, nil
}

func (p *MockProvider) CreateLink(ctx context.Context, req payment.LinkRequest) (*payment.Link, error) {
	if err := p.simulate(ctx); err != nil {
		return nil, err
	}
	id := fmt.Sprintf("%s_link_%s", p.providerType, uuid.New().String()[:8])
	return &payment.Link{ID: id, URL: "https://pay.example.com/" + id}, nil
}

func (p *MockProvider) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
	if err := p.simulate(ctx); err != nil {
		return nil, err
	}
	result := &payment.RefundResult{
		ID:     fmt.Sprintf("%s_re_%s", p.providerType, uuid.New().String()[:8]),
		Status: payment.StatusRefunded,
	}
	if req.Amount != nil {
		result.Amount = *req.Amount
		result.Status = payment.StatusPartiallyRefunded
	}
	return result, nil
}

func (p *MockProvider) GetStatus(ctx context.Context, providerPaymentID string) (*payment.StatusResult, error) {
	if err := p.simulate(ctx); err != nil {
		return nil, err
	}
	return &payment.StatusResult{
		ProviderPaymentID: providerPaymentID,
		Status:            payment.StatusSucceeded,
		NativeStatus:      "succeeded",
	}, nil
}

func (p *MockProvider) CreateCustomer(ctx context.Context, req payment.CustomerRequest) (*payment.CustomerResult, error) {
	if err := p.simulate(ctx); err != nil {
		return nil, err
	}
	return &payment.CustomerResult{
		ID:    fmt.Sprintf("%s_cus_%s", p.providerType, uuid.New().String()[:8]),
		Email: req.Email,
	}, nil
}

func (p *MockProvider) VerifyWebhook(payload []byte, header http.Header, secret string) (*payment.WebhookEvent, error) {
	if header.Get("Mock-Signature") == "" {
		return nil, domainErrors.NewWebhookError(string(p.providerType), "missing Mock-Signature header")
	}
	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	_ = json.Unmarshal(payload, &envelope)
	if envelope.ID == "" {
		envelope.ID = fmt.Sprintf("%s_evt_%s", p.providerType, uuid.New().String()[:8])
	}
	if envelope.Type == "" {
		envelope.Type = "payment.updated"
	}
	return &payment.WebhookEvent{
		ID:         envelope.ID,
		Type:       envelope.Type,
		Provider:   p.providerType,
		Payload:    payload,
		OccurredAt: time.Now(),
	}, nil
}
