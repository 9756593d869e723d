package payment

import (
	"encoding/json"
	"time"

	"github.com/chantierpro/payments/internal/domain/money"
)

// ProviderType identifies one of the supported payment gateways.
type ProviderType string

const (
	ProviderStripe     ProviderType = "stripe"
	ProviderPayPal     ProviderType = "paypal"
	ProviderMollie     ProviderType = "mollie"
	ProviderGoCardless ProviderType = "gocardless"
	ProviderPayPlug    ProviderType = "payplug"
)

// SupportedProviders is the fixed, statically known list of gateways the
// application can be configured with.
var SupportedProviders = []ProviderType{
	ProviderStripe,
	ProviderPayPal,
	ProviderMollie,
	ProviderGoCardless,
	ProviderPayPlug,
}

// IsSupported reports whether t is one of the supported provider types.
func (t ProviderType) IsSupported() bool {
	for _, p := range SupportedProviders {
		if p == t {
			return true
		}
	}
	return false
}

// UnifiedStatus is the closed, gateway-agnostic payment status every
// provider's native vocabulary is normalized into. Unrecognized native
// statuses map to StatusPending, a safe non-terminal default.
type UnifiedStatus string

const (
	StatusPending           UnifiedStatus = "pending"
	StatusProcessing        UnifiedStatus = "processing"
	StatusSucceeded         UnifiedStatus = "succeeded"
	StatusFailed            UnifiedStatus = "failed"
	StatusCancelled         UnifiedStatus = "cancelled"
	StatusRefunded          UnifiedStatus = "refunded"
	StatusPartiallyRefunded UnifiedStatus = "partially_refunded"
)

// IsTerminal reports whether the status is a terminal state.
func (s UnifiedStatus) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// ProviderConfig identifies which gateway and tenant an adapter instance
// serves. Credential keys are provider-specific (secretKey, apiKey,
// accessToken, clientId+clientSecret). Read-only after adapter construction;
// a credential change requires evicting the cached adapter.
type ProviderConfig struct {
	Provider    ProviderType
	Credentials map[string]string
	Active      bool
	TenantID    string
}

// Credential returns the named credential or "" when absent.
func (c ProviderConfig) Credential(key string) string {
	return c.Credentials[key]
}

// SessionRequest describes a one-time checkout attempt bound to redirect URLs.
type SessionRequest struct {
	Amount        money.Money
	Description   string
	CustomerEmail string
	CustomerName  string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
	QuoteID       string
	InvoiceID     string
}

// Session is the result of creating a checkout session: an opaque session id,
// the URL the payer is redirected to, and, when the gateway exposes one, the
// provider-native payment id usable for later status lookups.
type Session struct {
	ID                string
	URL               string
	ProviderPaymentID string
	Status            UnifiedStatus
}

// LinkRequest describes a reusable payable URL. No redirect targets: a link
// may be opened by multiple recipients or reopened later.
type LinkRequest struct {
	Amount      money.Money
	Description string
	Metadata    map[string]string
}

// Link is a created payment link.
type Link struct {
	ID  string
	URL string
}

// RefundRequest references a provider-native payment id. A nil Amount means
// a full refund. The refundable balance is not pre-validated locally; only
// the gateway knows it.
type RefundRequest struct {
	ProviderPaymentID string
	Amount            *money.Money
	Reason            string
}

// RefundResult is the gateway's answer to a refund request.
type RefundResult struct {
	ID     string
	Amount money.Money
	Status UnifiedStatus
}

// CustomerRequest carries payer identity for gateways with a customer
// subsystem.
type CustomerRequest struct {
	Email      string
	Name       string
	Phone      string
	AddressL1  string
	City       string
	PostalCode string
	Country    string
	Metadata   map[string]string
}

// CustomerResult is a provider-native customer id plus the email. Gateways
// without a customer subsystem return the email itself as the id; that is a
// deliberate degradation, not an error.
type CustomerResult struct {
	ID    string
	Email string
}

// StatusResult is a point-in-time status read for a provider payment.
type StatusResult struct {
	ProviderPaymentID string
	Status            UnifiedStatus
	NativeStatus      string
	Amount            money.Money
}

// WebhookEvent is the verified, parsed envelope of a gateway-initiated
// callback. Produced only after signature verification succeeds. The event
// type stays gateway-native; callers branch on it.
type WebhookEvent struct {
	ID         string
	Type       string
	Provider   ProviderType
	Payload    json.RawMessage
	OccurredAt time.Time
}
