package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	domainErrors "github.com/chantierpro/payments/internal/domain/errors"
	"github.com/chantierpro/payments/internal/domain/money"
	"github.com/chantierpro/payments/internal/domain/payment"
)

const payplugAPIBase = "https://api.payplug.com"

// payplugStatuses maps the synthetic statuses derived from PayPlug's boolean
// payment flags (see payplugNativeStatus).
var payplugStatuses = statusTable{
	"created":            payment.StatusPending,
	"authorized":         payment.StatusProcessing,
	"paid":               payment.StatusSucceeded,
	"failed":             payment.StatusFailed,
	"aborted":            payment.StatusCancelled,
	"refunded":           payment.StatusRefunded,
	"partially_refunded": payment.StatusPartiallyRefunded,
}

// PayPlugProvider talks to the PayPlug REST API. PayPlug has no standalone
// payment-link primitive: CreateLink creates the same hosted-payment resource
// sessions use and returns its hosted URL.
type PayPlugProvider struct {
	client     *apiClient
	baseURL    string
	tenantID   string
	configured bool
}

// NewPayPlugProvider creates an uninitialized PayPlug adapter.
func NewPayPlugProvider() *PayPlugProvider {
	return &PayPlugProvider{baseURL: payplugAPIBase}
}

func (p *PayPlugProvider) Type() payment.ProviderType { return payment.ProviderPayPlug }

func (p *PayPlugProvider) Initialize(cfg payment.ProviderConfig) error {
	key := cfg.Credential("secretKey")
	if key == "" {
		return domainErrors.NewConfigurationError("payplug", "secretKey", "credential is required")
	}
	if !strings.HasPrefix(key, "sk_") {
		return domainErrors.NewConfigurationError("payplug", "secretKey", "must start with sk_")
	}

	p.tenantID = cfg.TenantID
	p.client = newAPIClient(p.baseURL, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+key)
	})
	p.configured = true
	return nil
}

func (p *PayPlugProvider) IsConfigured() bool { return p.configured }

type payplugPayment struct {
	ID             string `json:"id"`
	Amount         int64  `json:"amount"`
	AmountRefunded int64  `json:"amount_refunded"`
	Currency       string `json:"currency"`
	IsPaid         bool   `json:"is_paid"`
	IsRefunded     bool   `json:"is_refunded"`
	Failure        *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"failure"`
	HostedPayment struct {
		PaymentURL string `json:"payment_url"`
	} `json:"hosted_payment"`
}

// payplugNativeStatus derives a status string from PayPlug's boolean payment
// flags so the shared table lookup applies like everywhere else.
func payplugNativeStatus(pp payplugPayment) string {
	switch {
	case pp.IsRefunded:
		return "refunded"
	case pp.AmountRefunded > 0:
		return "partially_refunded"
	case pp.IsPaid:
		return "paid"
	case pp.Failure != nil:
		return "failed"
	default:
		return "created"
	}
}

func (p *PayPlugProvider) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	body := map[string]any{
		"amount":   req.Amount.MinorUnits(),
		"currency": req.Amount.Currency,
		"hosted_payment": map[string]string{
			"return_url": req.SuccessURL,
			"cancel_url": req.CancelURL,
		},
		"billing": map[string]string{
			"email":      req.CustomerEmail,
			"first_name": req.CustomerName,
		},
		"metadata": mergeCorrelationMetadata(req.Metadata, req.QuoteID, req.InvoiceID),
	}
	if req.Description != "" {
		body["description"] = req.Description
	}

	var out payplugPayment
	if err := p.client.do(ctx, http.MethodPost, "/v1/payments", body, &out); err != nil {
		return nil, p.wrapError("create_session", err)
	}

	return &payment.Session{
		ID:                out.ID,
		URL:               out.HostedPayment.PaymentURL,
		ProviderPaymentID: out.ID,
		Status:            payplugStatuses.lookup(payplugNativeStatus(out)),
	}, nil
}

// CreateLink creates the same hosted-payment resource as CreateSession,
// without redirect targets, and returns its hosted URL.
func (p *PayPlugProvider) CreateLink(ctx context.Context, req payment.LinkRequest) (*payment.Link, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	body := map[string]any{
		"amount":   req.Amount.MinorUnits(),
		"currency": req.Amount.Currency,
		"metadata": req.Metadata,
	}
	if req.Description != "" {
		body["description"] = req.Description
	}

	var out payplugPayment
	if err := p.client.do(ctx, http.MethodPost, "/v1/payments", body, &out); err != nil {
		return nil, p.wrapError("create_link", err)
	}

	return &payment.Link{ID: out.ID, URL: out.HostedPayment.PaymentURL}, nil
}

func (p *PayPlugProvider) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	body := map[string]any{}
	if req.Amount != nil {
		body["amount"] = req.Amount.MinorUnits()
	}
	if req.Reason != "" {
		body["metadata"] = map[string]string{"reason": req.Reason}
	}

	var out struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	path := fmt.Sprintf("/v1/payments/%s/refunds", req.ProviderPaymentID)
	if err := p.client.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, p.wrapError("refund", err)
	}

	status := payment.StatusRefunded
	if req.Amount != nil {
		status = payment.StatusPartiallyRefunded
	}
	return &payment.RefundResult{
		ID:     out.ID,
		Amount: money.New(out.Amount, out.Currency),
		Status: status,
	}, nil
}

func (p *PayPlugProvider) GetStatus(ctx context.Context, providerPaymentID string) (*payment.StatusResult, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	var out payplugPayment
	if err := p.client.do(ctx, http.MethodGet, "/v1/payments/"+providerPaymentID, nil, &out); err != nil {
		return nil, p.wrapError("get_status", err)
	}

	native := payplugNativeStatus(out)
	return &payment.StatusResult{
		ProviderPaymentID: out.ID,
		Status:            payplugStatuses.lookup(native),
		NativeStatus:      native,
		Amount:            money.New(out.Amount, out.Currency),
	}, nil
}

func (p *PayPlugProvider) CreateCustomer(ctx context.Context, req payment.CustomerRequest) (*payment.CustomerResult, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	body := map[string]any{
		"email": req.Email,
	}
	if req.Name != "" {
		body["first_name"] = req.Name
	}

	var out struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := p.client.do(ctx, http.MethodPost, "/v1/customers", body, &out); err != nil {
		return nil, p.wrapError("create_customer", err)
	}

	return &payment.CustomerResult{ID: out.ID, Email: out.Email}, nil
}

func (p *PayPlugProvider) VerifyWebhook(payload []byte, header http.Header, secret string) (*payment.WebhookEvent, error) {
	sig := header.Get("PayPlug-Signature")
	if sig == "" {
		return nil, domainErrors.NewWebhookError("payplug", "missing PayPlug-Signature header")
	}
	if !verifyHexHMAC(secret, payload, sig) {
		return nil, domainErrors.NewWebhookError("payplug", "signature mismatch")
	}

	// PayPlug notifications deliver the resource itself, not an event
	// envelope: the object field names the resource kind.
	var envelope struct {
		ID     string `json:"id"`
		Object string `json:"object"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, domainErrors.NewWebhookError("payplug", "malformed event body")
	}

	return &payment.WebhookEvent{
		ID:         envelope.ID,
		Type:       envelope.Object,
		Provider:   payment.ProviderPayPlug,
		Payload:    json.RawMessage(payload),
		OccurredAt: time.Now(),
	}, nil
}

func (p *PayPlugProvider) requireConfigured() error {
	if !p.configured {
		return fmt.Errorf("payplug: %w", domainErrors.ErrNotInitialized)
	}
	return nil
}

func (p *PayPlugProvider) wrapError(operation string, err error) error {
	var gw *gatewayError
	if errors.As(err, &gw) {
		return domainErrors.NewAPIError("payplug", operation, gw.StatusCode, gw.Message)
	}
	return fmt.Errorf("payplug: %s: %w", operation, err)
}
