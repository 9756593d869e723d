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

const (
	gocardlessAPIBase    = "https://api.gocardless.com"
	gocardlessAPIVersion = "2015-07-06"
	gocardlessPayBase    = "https://pay.gocardless.com/billing"

	// mandateMetadataKey is where callers carry the direct-debit mandate a
	// payment is collected against.
	mandateMetadataKey = "mandate_id"
)

var gocardlessStatuses = statusTable{
	"pending_customer_approval": payment.StatusPending,
	"pending_submission":        payment.StatusPending,
	"submitted":                 payment.StatusProcessing,
	"confirmed":                 payment.StatusSucceeded,
	"paid_out":                  payment.StatusSucceeded,
	"failed":                    payment.StatusFailed,
	"customer_approval_denied":  payment.StatusFailed,
	"charged_back":              payment.StatusFailed,
	"cancelled":                 payment.StatusCancelled,
	"refunded":                  payment.StatusRefunded,
}

// GoCardlessProvider talks to the GoCardless direct-debit API. Payments are
// collected against a pre-existing SEPA mandate, so session creation first
// ensures a customer record exists and then creates the payment referencing
// the mandate id carried in the request metadata. When no mandate id is
// present the adapter fails fast with ErrMandateRequired instead of letting
// the gateway reject the payment.
type GoCardlessProvider struct {
	client     *apiClient
	baseURL    string
	tenantID   string
	configured bool
}

// NewGoCardlessProvider creates an uninitialized GoCardless adapter.
func NewGoCardlessProvider() *GoCardlessProvider {
	return &GoCardlessProvider{baseURL: gocardlessAPIBase}
}

func (p *GoCardlessProvider) Type() payment.ProviderType { return payment.ProviderGoCardless }

func (p *GoCardlessProvider) Initialize(cfg payment.ProviderConfig) error {
	token := cfg.Credential("accessToken")
	if token == "" {
		return domainErrors.NewConfigurationError("gocardless", "accessToken", "credential is required")
	}

	p.tenantID = cfg.TenantID
	p.client = newAPIClient(p.baseURL, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
		r.Header.Set("GoCardless-Version", gocardlessAPIVersion)
	})
	p.configured = true
	return nil
}

func (p *GoCardlessProvider) IsConfigured() bool { return p.configured }

// CreateSession ensures the payer exists as a customer, then creates a
// payment against the mandate named in metadata. This is the one contract
// method allowed two HTTP exchanges. Direct-debit payments have no checkout
// redirect: collection is pulled via the mandate, so the returned URL is
// empty.
func (p *GoCardlessProvider) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	mandateID := req.Metadata[mandateMetadataKey]
	if mandateID == "" {
		return nil, fmt.Errorf("gocardless: create_session: %w", domainErrors.ErrMandateRequired)
	}

	if _, err := p.CreateCustomer(ctx, payment.CustomerRequest{
		Email: req.CustomerEmail,
		Name:  req.CustomerName,
	}); err != nil {
		return nil, err
	}

	metadata := mergeCorrelationMetadata(req.Metadata, req.QuoteID, req.InvoiceID)
	delete(metadata, mandateMetadataKey)

	body := map[string]any{
		"payments": map[string]any{
			"amount":      req.Amount.MinorUnits(),
			"currency":    req.Amount.Currency,
			"description": req.Description,
			"links":       map[string]string{"mandate": mandateID},
			"metadata":    metadata,
		},
	}

	var out struct {
		Payments struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"payments"`
	}
	if err := p.client.do(ctx, http.MethodPost, "/payments", body, &out); err != nil {
		return nil, p.wrapError("create_session", err)
	}

	return &payment.Session{
		ID:                out.Payments.ID,
		ProviderPaymentID: out.Payments.ID,
		Status:            gocardlessStatuses.lookup(out.Payments.Status),
	}, nil
}

// CreateLink opens a billing request the payer completes on the hosted
// GoCardless page, authorizing a mandate and the payment in one pass.
func (p *GoCardlessProvider) CreateLink(ctx context.Context, req payment.LinkRequest) (*payment.Link, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	body := map[string]any{
		"billing_requests": map[string]any{
			"payment_request": map[string]any{
				"amount":      req.Amount.MinorUnits(),
				"currency":    req.Amount.Currency,
				"description": req.Description,
			},
			"metadata": req.Metadata,
		},
	}

	var out struct {
		BillingRequests struct {
			ID string `json:"id"`
		} `json:"billing_requests"`
	}
	if err := p.client.do(ctx, http.MethodPost, "/billing_requests", body, &out); err != nil {
		return nil, p.wrapError("create_link", err)
	}

	return &payment.Link{
		ID:  out.BillingRequests.ID,
		URL: fmt.Sprintf("%s/%s", gocardlessPayBase, out.BillingRequests.ID),
	}, nil
}

func (p *GoCardlessProvider) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	refund := map[string]any{
		"links": map[string]string{"payment": req.ProviderPaymentID},
	}
	if req.Amount != nil {
		refund["amount"] = req.Amount.MinorUnits()
	}
	if req.Reason != "" {
		refund["metadata"] = map[string]string{"reason": req.Reason}
	}

	var out struct {
		Refunds struct {
			ID       string `json:"id"`
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
		} `json:"refunds"`
	}
	if err := p.client.do(ctx, http.MethodPost, "/refunds", map[string]any{"refunds": refund}, &out); err != nil {
		return nil, p.wrapError("refund", err)
	}

	status := payment.StatusRefunded
	if req.Amount != nil {
		status = payment.StatusPartiallyRefunded
	}
	return &payment.RefundResult{
		ID:     out.Refunds.ID,
		Amount: money.New(out.Refunds.Amount, out.Refunds.Currency),
		Status: status,
	}, nil
}

func (p *GoCardlessProvider) GetStatus(ctx context.Context, providerPaymentID string) (*payment.StatusResult, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	var out struct {
		Payments struct {
			ID       string `json:"id"`
			Status   string `json:"status"`
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
		} `json:"payments"`
	}
	if err := p.client.do(ctx, http.MethodGet, "/payments/"+providerPaymentID, nil, &out); err != nil {
		return nil, p.wrapError("get_status", err)
	}

	return &payment.StatusResult{
		ProviderPaymentID: out.Payments.ID,
		Status:            gocardlessStatuses.lookup(out.Payments.Status),
		NativeStatus:      out.Payments.Status,
		Amount:            money.New(out.Payments.Amount, out.Payments.Currency),
	}, nil
}

func (p *GoCardlessProvider) CreateCustomer(ctx context.Context, req payment.CustomerRequest) (*payment.CustomerResult, error) {
	if err := p.requireConfigured(); err != nil {
		return nil, err
	}

	customer := map[string]any{
		"email": req.Email,
	}
	if req.Name != "" {
		customer["given_name"] = req.Name
	}
	if req.AddressL1 != "" {
		customer["address_line1"] = req.AddressL1
		customer["city"] = req.City
		customer["postal_code"] = req.PostalCode
		customer["country_code"] = req.Country
	}
	if len(req.Metadata) > 0 {
		customer["metadata"] = req.Metadata
	}

	var out struct {
		Customers struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"customers"`
	}
	if err := p.client.do(ctx, http.MethodPost, "/customers", map[string]any{"customers": customer}, &out); err != nil {
		return nil, p.wrapError("create_customer", err)
	}

	return &payment.CustomerResult{ID: out.Customers.ID, Email: out.Customers.Email}, nil
}

// VerifyWebhook authenticates a delivery. GoCardless batches events; the
// envelope reports the first event's id and "<resource_type>.<action>" as
// the type, with the full batch left opaque in the payload.
func (p *GoCardlessProvider) VerifyWebhook(payload []byte, header http.Header, secret string) (*payment.WebhookEvent, error) {
	sig := header.Get("Webhook-Signature")
	if sig == "" {
		return nil, domainErrors.NewWebhookError("gocardless", "missing Webhook-Signature header")
	}
	if !verifyHexHMAC(secret, payload, sig) {
		return nil, domainErrors.NewWebhookError("gocardless", "signature mismatch")
	}

	var envelope struct {
		Events []struct {
			ID           string    `json:"id"`
			ResourceType string    `json:"resource_type"`
			Action       string    `json:"action"`
			CreatedAt    time.Time `json:"created_at"`
		} `json:"events"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil || len(envelope.Events) == 0 {
		return nil, domainErrors.NewWebhookError("gocardless", "malformed event body")
	}

	first := envelope.Events[0]
	occurred := first.CreatedAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	return &payment.WebhookEvent{
		ID:         first.ID,
		Type:       fmt.Sprintf("%s.%s", first.ResourceType, first.Action),
		Provider:   payment.ProviderGoCardless,
		Payload:    json.RawMessage(payload),
		OccurredAt: occurred,
	}, nil
}

func (p *GoCardlessProvider) requireConfigured() error {
	if !p.configured {
		return fmt.Errorf("gocardless: %w", domainErrors.ErrNotInitialized)
	}
	return nil
}

func (p *GoCardlessProvider) wrapError(operation string, err error) error {
	var gw *gatewayError
	if errors.As(err, &gw) {
		return domainErrors.NewAPIError("gocardless", operation, gw.StatusCode, gw.Message)
	}
	return fmt.Errorf("gocardless: %s: %w", operation, err)
}
