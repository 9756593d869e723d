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

const mollieAPIBase = "https://api.mollie.com"

var mollieStatuses = statusTable{
	"open":       payment.StatusPending,
	"pending":    payment.StatusProcessing,
	"authorized": payment.StatusProcessing,
	"paid":       payment.StatusSucceeded,
	"failed":     payment.StatusFailed,
	"canceled":   payment.StatusCancelled,
	"expired":    payment.StatusCancelled,
}

// mollieAmount is the {currency, value} pair Mollie uses on the wire: the
// value is a decimal major-unit string, the currency upper-cased.
type mollieAmount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

func newMollieAmount(m money.Money) mollieAmount {
	return mollieAmount{Currency: m.Currency, Value: m.String()}
}

// MollieProvider talks to the Mollie v2 REST API.
type MollieProvider struct {
	client     *apiClient
	baseURL    string
	tenantID   string
	configured bool
}

// NewMollieProvider creates an uninitialized Mollie adapter.
func NewMollieProvider() *MollieProvider {
	return &MollieProvider{baseURL: mollieAPIBase}
}

func (p *MollieProvider) Type() payment.ProviderType { return payment.ProviderMollie }

func (p *MollieProvider) Initialize(cfg payment.ProviderConfig) error {
	key := cfg.Credential("apiKey")
	if key == "" {
		return domainErrors.NewConfigurationError("mollie", "apiKey", "credential is required")
	}
	if !strings.HasPrefix(key, "live_") && !strings.HasPrefix(key, "test_") {
		return domainErrors.NewConfigurationError("mollie", "apiKey", "must start with live_ or test_")
	}

	p.tenantID = cfg.TenantID
	p.client = newAPIClient(p.baseURL, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+key)
	})
	p.configured = true
	return nil
}

func (p *MollieProvider) IsConfigured() bool { return p.configured }

type molliePayment struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Amount mollieAmount `json:"amount"`
	Links  struct {
		Checkout struct {
			Href string `json:"href"`
		} `json:"checkout"`
	} `json:"_links"`
}

func (p *MollieProvider) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	body := map[string]any{
		"amount":      newMollieAmount(req.Amount),
		"description": req.Description,
		"redirectUrl": req.SuccessURL,
		"cancelUrl":   req.CancelURL,
		"metadata":    mergeCorrelationMetadata(req.Metadata, req.QuoteID, req.InvoiceID),
	}

	var out molliePayment
	if err := p.client.do(ctx, http.MethodPost, "/v2/payments", body, &out); err != nil {
		return nil, p.wrapError("create_session", err)
	}

	return &payment.Session{
		ID:                out.ID,
		URL:               out.Links.Checkout.Href,
		ProviderPaymentID: out.ID,
		Status:            mollieStatuses.lookup(out.Status),
	}, nil
}

func (p *MollieProvider) CreateLink(ctx context.Context, req payment.LinkRequest) (*payment.Link, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	body := map[string]any{
		"amount":      newMollieAmount(req.Amount),
		"description": req.Description,
	}

	var out struct {
		ID    string `json:"id"`
		Links struct {
			PaymentLink struct {
				Href string `json:"href"`
			} `json:"paymentLink"`
		} `json:"_links"`
	}
	if err := p.client.do(ctx, http.MethodPost, "/v2/payment-links", body, &out); err != nil {
		return nil, p.wrapError("create_link", err)
	}

	return &payment.Link{ID: out.ID, URL: out.Links.PaymentLink.Href}, nil
}

func (p *MollieProvider) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	body := map[string]any{}
	if req.Amount != nil {
		body["amount"] = newMollieAmount(*req.Amount)
	}
	if req.Reason != "" {
		body["description"] = req.Reason
	}

	var out struct {
		ID     string       `json:"id"`
		Amount mollieAmount `json:"amount"`
	}
	path := fmt.Sprintf("/v2/payments/%s/refunds", req.ProviderPaymentID)
	if err := p.client.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, p.wrapError("refund", err)
	}

	refunded, err := money.Parse(out.Amount.Value, out.Amount.Currency)
	if err != nil {
		return nil, fmt.Errorf("mollie: refund: parse amount: %w", err)
	}

	status := payment.StatusRefunded
	if req.Amount != nil {
		status = payment.StatusPartiallyRefunded
	}
	return &payment.RefundResult{ID: out.ID, Amount: refunded, Status: status}, nil
}

func (p *MollieProvider) GetStatus(ctx context.Context, providerPaymentID string) (*payment.StatusResult, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	var out molliePayment
	if err := p.client.do(ctx, http.MethodGet, "/v2/payments/"+providerPaymentID, nil, &out); err != nil {
		return nil, p.wrapError("get_status", err)
	}

	amount, err := money.Parse(out.Amount.Value, out.Amount.Currency)
	if err != nil {
		return nil, fmt.Errorf("mollie: get_status: parse amount: %w", err)
	}

	return &payment.StatusResult{
		ProviderPaymentID: out.ID,
		Status:            mollieStatuses.lookup(out.Status),
		NativeStatus:      out.Status,
		Amount:            amount,
	}, nil
}

func (p *MollieProvider) CreateCustomer(ctx context.Context, req payment.CustomerRequest) (*payment.CustomerResult, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	body := map[string]any{
		"email": req.Email,
	}
	if req.Name != "" {
		body["name"] = req.Name
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}

	var out struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := p.client.do(ctx, http.MethodPost, "/v2/customers", body, &out); err != nil {
		return nil, p.wrapError("create_customer", err)
	}

	return &payment.CustomerResult{ID: out.ID, Email: out.Email}, nil
}

func (p *MollieProvider) VerifyWebhook(payload []byte, header http.Header, secret string) (*payment.WebhookEvent, error) {
	sig := header.Get("X-Mollie-Signature")
	if sig == "" {
		return nil, domainErrors.NewWebhookError("mollie", "missing X-Mollie-Signature header")
	}
	if !verifyPrefixedHexHMAC(secret, payload, sig) {
		return nil, domainErrors.NewWebhookError("mollie", "signature mismatch")
	}

	var envelope struct {
		ID        string    `json:"id"`
		Type      string    `json:"type"`
		CreatedAt time.Time `json:"createdAt"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, domainErrors.NewWebhookError("mollie", "malformed event body")
	}

	occurred := envelope.CreatedAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	return &payment.WebhookEvent{
		ID:         envelope.ID,
		Type:       envelope.Type,
		Provider:   payment.ProviderMollie,
		Payload:    json.RawMessage(payload),
		OccurredAt: occurred,
	}, nil
}

func (p *MollieProvider) requireConfigured() error {
	if !p.configured {
		return fmt.Errorf("mollie: %w", domainErrors.ErrNotInitialized)
	}
	return nil
}

func (p *MollieProvider) wrapError(operation string, err error) error {
	var gw *gatewayError
	if errors.As(err, &gw) {
		return domainErrors.NewAPIError("mollie", operation, gw.StatusCode, gw.Message)
	}
	return fmt.Errorf("mollie: %s: %w", operation, err)
}

// mergeCorrelationMetadata copies caller metadata and adds the quote/invoice
// correlation keys used to tie a payment back to a document.
func mergeCorrelationMetadata(metadata map[string]string, quoteID, invoiceID string) map[string]string {
	merged := make(map[string]string, len(metadata)+2)
	for k, v := range metadata {
		merged[k] = v
	}
	if quoteID != "" {
		merged["quote_id"] = quoteID
	}
	if invoiceID != "" {
		merged["invoice_id"] = invoiceID
	}
	return merged
}
