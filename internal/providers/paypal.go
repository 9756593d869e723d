package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	domainErrors "github.com/chantierpro/payments/internal/domain/errors"
	"github.com/chantierpro/payments/internal/domain/money"
	"github.com/chantierpro/payments/internal/domain/payment"
)

const paypalAPIBase = "https://api-m.paypal.com"

var paypalStatuses = statusTable{
	"created":               payment.StatusPending,
	"saved":                 payment.StatusPending,
	"payer_action_required": payment.StatusPending,
	"approved":              payment.StatusProcessing,
	"completed":             payment.StatusSucceeded,
	"declined":              payment.StatusFailed,
	"voided":                payment.StatusCancelled,
	"refunded":              payment.StatusRefunded,
	"partially_refunded":    payment.StatusPartiallyRefunded,
}

// paypalAmount is PayPal's wire amount: decimal major-unit value string with
// an upper-cased currency code.
type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

func newPaypalAmount(m money.Money) paypalAmount {
	return paypalAmount{CurrencyCode: m.Currency, Value: m.String()}
}

// PayPalProvider talks to the PayPal Orders v2 API using the tenant's REST
// client id/secret pair. PayPal has no customer subsystem: CreateCustomer is
// a pure echo of the email with no network call.
type PayPalProvider struct {
	client     *apiClient
	baseURL    string
	tenantID   string
	configured bool
}

// NewPayPalProvider creates an uninitialized PayPal adapter.
func NewPayPalProvider() *PayPalProvider {
	return &PayPalProvider{baseURL: paypalAPIBase}
}

func (p *PayPalProvider) Type() payment.ProviderType { return payment.ProviderPayPal }

func (p *PayPalProvider) Initialize(cfg payment.ProviderConfig) error {
	clientID := cfg.Credential("clientId")
	clientSecret := cfg.Credential("clientSecret")
	if clientID == "" {
		return domainErrors.NewConfigurationError("paypal", "clientId", "credential is required")
	}
	if clientSecret == "" {
		return domainErrors.NewConfigurationError("paypal", "clientSecret", "credential is required")
	}

	p.tenantID = cfg.TenantID
	p.client = newAPIClient(p.baseURL, func(r *http.Request) {
		r.SetBasicAuth(clientID, clientSecret)
	})
	p.configured = true
	return nil
}

func (p *PayPalProvider) IsConfigured() bool { return p.configured }

type paypalOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
	PurchaseUnits []struct {
		Amount paypalAmount `json:"amount"`
	} `json:"purchase_units"`
}

func (o paypalOrder) approveURL() string {
	for _, l := range o.Links {
		if l.Rel == "approve" {
			return l.Href
		}
	}
	return ""
}

func (p *PayPalProvider) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	unit := map[string]any{
		"amount":      newPaypalAmount(req.Amount),
		"description": req.Description,
	}
	if req.InvoiceID != "" {
		unit["custom_id"] = req.InvoiceID
	} else if req.QuoteID != "" {
		unit["custom_id"] = req.QuoteID
	}

	body := map[string]any{
		"intent":         "CAPTURE",
		"purchase_units": []any{unit},
		"application_context": map[string]any{
			"return_url": req.SuccessURL,
			"cancel_url": req.CancelURL,
		},
	}

	var out paypalOrder
	if err := p.client.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &out); err != nil {
		return nil, p.wrapError("create_session", err)
	}

	return &payment.Session{
		ID:                out.ID,
		URL:               out.approveURL(),
		ProviderPaymentID: out.ID,
		Status:            paypalStatuses.lookup(out.Status),
	}, nil
}

func (p *PayPalProvider) CreateLink(ctx context.Context, req payment.LinkRequest) (*payment.Link, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []any{map[string]any{
			"amount":      newPaypalAmount(req.Amount),
			"description": req.Description,
		}},
	}

	var out paypalOrder
	if err := p.client.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &out); err != nil {
		return nil, p.wrapError("create_link", err)
	}

	return &payment.Link{ID: out.ID, URL: out.approveURL()}, nil
}

func (p *PayPalProvider) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	body := map[string]any{}
	if req.Amount != nil {
		body["amount"] = newPaypalAmount(*req.Amount)
	}
	if req.Reason != "" {
		body["note_to_payer"] = req.Reason
	}

	var out struct {
		ID     string       `json:"id"`
		Status string       `json:"status"`
		Amount paypalAmount `json:"amount"`
	}
	path := fmt.Sprintf("/v2/payments/captures/%s/refund", req.ProviderPaymentID)
	if err := p.client.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, p.wrapError("refund", err)
	}

	refunded, err := money.Parse(out.Amount.Value, out.Amount.CurrencyCode)
	if err != nil {
		return nil, fmt.Errorf("paypal: refund: parse amount: %w", err)
	}

	status := payment.StatusRefunded
	if req.Amount != nil {
		status = payment.StatusPartiallyRefunded
	}
	return &payment.RefundResult{ID: out.ID, Amount: refunded, Status: status}, nil
}

func (p *PayPalProvider) GetStatus(ctx context.Context, providerPaymentID string) (*payment.StatusResult, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	var out paypalOrder
	if err := p.client.do(ctx, http.MethodGet, "/v2/checkout/orders/"+providerPaymentID, nil, &out); err != nil {
		return nil, p.wrapError("get_status", err)
	}

	var amount money.Money
	if len(out.PurchaseUnits) > 0 {
		parsed, err := money.Parse(out.PurchaseUnits[0].Amount.Value, out.PurchaseUnits[0].Amount.CurrencyCode)
		if err != nil {
			return nil, fmt.Errorf("paypal: get_status: parse amount: %w", err)
		}
		amount = parsed
	}

	return &payment.StatusResult{
		ProviderPaymentID: out.ID,
		Status:            paypalStatuses.lookup(out.Status),
		NativeStatus:      out.Status,
		Amount:            amount,
	}, nil
}

// CreateCustomer degrades to a pure data echo: PayPal has no customer
// subsystem, so the email itself serves as the identifier. No network call.
func (p *PayPalProvider) CreateCustomer(_ context.Context, req payment.CustomerRequest) (*payment.CustomerResult, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}
	return &payment.CustomerResult{ID: req.Email, Email: req.Email}, nil
}

func (p *PayPalProvider) VerifyWebhook(payload []byte, header http.Header, secret string) (*payment.WebhookEvent, error) {
	sig := header.Get("Paypal-Transmission-Sig")
	if sig == "" {
		return nil, domainErrors.NewWebhookError("paypal", "missing Paypal-Transmission-Sig header")
	}
	if !verifyBase64HMAC(secret, payload, sig) {
		return nil, domainErrors.NewWebhookError("paypal", "signature mismatch")
	}

	var envelope struct {
		ID         string    `json:"id"`
		EventType  string    `json:"event_type"`
		CreateTime time.Time `json:"create_time"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, domainErrors.NewWebhookError("paypal", "malformed event body")
	}

	occurred := envelope.CreateTime
	if occurred.IsZero() {
		occurred = time.Now()
	}
	return &payment.WebhookEvent{
		ID:         envelope.ID,
		Type:       envelope.EventType,
		Provider:   payment.ProviderPayPal,
		Payload:    json.RawMessage(payload),
		OccurredAt: occurred,
	}, nil
}

func (p *PayPalProvider) requireConfigured() error {
	if !p.configured {
		return fmt.Errorf("paypal: %w", domainErrors.ErrNotInitialized)
	}
	return nil
}

func (p *PayPalProvider) wrapError(operation string, err error) error {
	var gw *gatewayError
	if errors.As(err, &gw) {
		return domainErrors.NewAPIError("paypal", operation, gw.StatusCode, gw.Message)
	}
	return fmt.Errorf("paypal: %s: %w", operation, err)
}
