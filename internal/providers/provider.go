package providers

import (
	"context"
	"net/http"

	"github.com/chantierpro/payments/internal/domain/payment"
)

// Provider is the contract every gateway adapter satisfies. One instance
// serves exactly one (provider type, tenant) credential set.
//
// Every network-calling method performs exactly one outbound HTTP exchange
// per invocation: no hidden retries, no pagination. Retry/backoff and
// deadlines are the caller's responsibility. The one documented exception is
// the GoCardless session flow, which ensures a customer record exists before
// creating the payment.
type Provider interface {
	// Type returns the provider type this adapter serves.
	Type() payment.ProviderType

	// Initialize extracts and validates credentials from the config. It must
	// be called exactly once before any other method; calling it a second
	// time before a registry reset is undefined.
	Initialize(cfg payment.ProviderConfig) error

	// IsConfigured reports whether Initialize succeeded. Pure, no I/O.
	IsConfigured() bool

	// CreateSession creates a one-time checkout session bound to redirect URLs.
	CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)

	// CreateLink creates a reusable payable URL.
	CreateLink(ctx context.Context, req payment.LinkRequest) (*payment.Link, error)

	// Refund refunds a payment, partially when req.Amount is set. The
	// refundable balance is not pre-validated; the gateway's rejection is
	// surfaced as an APIError.
	Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error)

	// GetStatus reads the current status of a provider payment.
	GetStatus(ctx context.Context, providerPaymentID string) (*payment.StatusResult, error)

	// CreateCustomer creates a customer record at the gateway. Gateways
	// without a customer subsystem degrade to echoing the email as the id.
	CreateCustomer(ctx context.Context, req payment.CustomerRequest) (*payment.CustomerResult, error)

	// VerifyWebhook authenticates a raw webhook delivery against the shared
	// secret and, only on success, parses it into a WebhookEvent. The payload
	// must be the exact wire bytes; verification is defined over them.
	VerifyWebhook(payload []byte, header http.Header, secret string) (*payment.WebhookEvent, error)
}
