package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domainErrors "github.com/chantierpro/payments/internal/domain/errors"
	"github.com/chantierpro/payments/internal/domain/money"
	"github.com/chantierpro/payments/internal/domain/payment"
)

const stripeAPIBase = "https://api.stripe.com"

// stripeStatuses maps payment intent and checkout session statuses.
var stripeStatuses = statusTable{
	"requires_payment_method": payment.StatusPending,
	"requires_confirmation":   payment.StatusPending,
	"requires_action":         payment.StatusPending,
	"processing":              payment.StatusProcessing,
	"requires_capture":        payment.StatusProcessing,
	"succeeded":               payment.StatusSucceeded,
	"canceled":                payment.StatusCancelled,
	"unpaid":                  payment.StatusPending,
	"paid":                    payment.StatusSucceeded,
	"no_payment_required":     payment.StatusSucceeded,
}

// StripeProvider talks to the Stripe REST API. Amounts go over the wire as
// integer minor units with a lower-cased currency; requests are
// form-encoded per Stripe's convention.
type StripeProvider struct {
	client     *apiClient
	baseURL    string
	tenantID   string
	configured bool
}

// NewStripeProvider creates an uninitialized Stripe adapter.
func NewStripeProvider() *StripeProvider {
	return &StripeProvider{baseURL: stripeAPIBase}
}

func (p *StripeProvider) Type() payment.ProviderType { return payment.ProviderStripe }

func (p *StripeProvider) Initialize(cfg payment.ProviderConfig) error {
	key := cfg.Credential("secretKey")
	if key == "" {
		return domainErrors.NewConfigurationError("stripe", "secretKey", "credential is required")
	}
	if !strings.HasPrefix(key, "sk_") {
		return domainErrors.NewConfigurationError("stripe", "secretKey", "must start with sk_")
	}

	p.tenantID = cfg.TenantID
	p.client = newAPIClient(p.baseURL, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+key)
	})
	p.configured = true
	return nil
}

func (p *StripeProvider) IsConfigured() bool { return p.configured }

type stripeSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentIntent string `json:"payment_intent"`
	PaymentStatus string `json:"payment_status"`
}

func (p *StripeProvider) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", req.Amount.CurrencyLower())
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.Amount.MinorUnits(), 10))
	form.Set("line_items[0][price_data][product_data][name]", req.Description)
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}
	setStripeMetadata(form, req.Metadata, req.QuoteID, req.InvoiceID)

	var out stripeSession
	if err := p.client.doForm(ctx, http.MethodPost, "/v1/checkout/sessions", form, &out); err != nil {
		return nil, p.wrapError("create_session", err)
	}

	return &payment.Session{
		ID:                out.ID,
		URL:               out.URL,
		ProviderPaymentID: out.PaymentIntent,
		Status:            stripeStatuses.lookup(out.PaymentStatus),
	}, nil
}

func (p *StripeProvider) CreateLink(ctx context.Context, req payment.LinkRequest) (*payment.Link, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", req.Amount.CurrencyLower())
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.Amount.MinorUnits(), 10))
	form.Set("line_items[0][price_data][product_data][name]", req.Description)
	setStripeMetadata(form, req.Metadata, "", "")

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := p.client.doForm(ctx, http.MethodPost, "/v1/payment_links", form, &out); err != nil {
		return nil, p.wrapError("create_link", err)
	}

	return &payment.Link{ID: out.ID, URL: out.URL}, nil
}

func (p *StripeProvider) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("payment_intent", req.ProviderPaymentID)
	if req.Amount != nil {
		form.Set("amount", strconv.FormatInt(req.Amount.MinorUnits(), 10))
	}
	if req.Reason != "" {
		form.Set("reason", req.Reason)
	}

	var out struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := p.client.doForm(ctx, http.MethodPost, "/v1/refunds", form, &out); err != nil {
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

func (p *StripeProvider) GetStatus(ctx context.Context, providerPaymentID string) (*payment.StatusResult, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	var out struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := p.client.doForm(ctx, http.MethodGet, "/v1/payment_intents/"+providerPaymentID, nil, &out); err != nil {
		return nil, p.wrapError("get_status", err)
	}

	return &payment.StatusResult{
		ProviderPaymentID: out.ID,
		Status:            stripeStatuses.lookup(out.Status),
		NativeStatus:      out.Status,
		Amount:            money.New(out.Amount, out.Currency),
	}, nil
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, req payment.CustomerRequest) (*payment.CustomerResult, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("email", req.Email)
	if req.Name != "" {
		form.Set("name", req.Name)
	}
	if req.Phone != "" {
		form.Set("phone", req.Phone)
	}
	if req.AddressL1 != "" {
		form.Set("address[line1]", req.AddressL1)
		form.Set("address[city]", req.City)
		form.Set("address[postal_code]", req.PostalCode)
		form.Set("address[country]", req.Country)
	}

	var out struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := p.client.doForm(ctx, http.MethodPost, "/v1/customers", form, &out); err != nil {
		return nil, p.wrapError("create_customer", err)
	}

	return &payment.CustomerResult{ID: out.ID, Email: out.Email}, nil
}

func (p *StripeProvider) VerifyWebhook(payload []byte, header http.Header, secret string) (*payment.WebhookEvent, error) {
	sig := header.Get("Stripe-Signature")
	if sig == "" {
		return nil, domainErrors.NewWebhookError("stripe", "missing Stripe-Signature header")
	}
	if !verifyTimestampedHMAC(secret, payload, sig, time.Now()) {
		return nil, domainErrors.NewWebhookError("stripe", "signature mismatch")
	}

	var envelope struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Created int64  `json:"created"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, domainErrors.NewWebhookError("stripe", "malformed event body")
	}

	return &payment.WebhookEvent{
		ID:         envelope.ID,
		Type:       envelope.Type,
		Provider:   payment.ProviderStripe,
		Payload:    json.RawMessage(payload),
		OccurredAt: time.Unix(envelope.Created, 0),
	}, nil
}

func (p *StripeProvider) requireConfigured() error {
	if !p.configured {
		return fmt.Errorf("stripe: %w", domainErrors.ErrNotInitialized)
	}
	return nil
}

func (p *StripeProvider) wrapError(operation string, err error) error {
	var gw *gatewayError
	if errors.As(err, &gw) {
		return domainErrors.NewAPIError("stripe", operation, gw.StatusCode, gw.Message)
	}
	return fmt.Errorf("stripe: %s: %w", operation, err)
}

func setStripeMetadata(form url.Values, metadata map[string]string, quoteID, invoiceID string) {
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}
	if quoteID != "" {
		form.Set("metadata[quote_id]", quoteID)
	}
	if invoiceID != "" {
		form.Set("metadata[invoice_id]", invoiceID)
	}
}
