package controller

import (
	"time"

	"github.com/chantierpro/payments/internal/domain/payment"
)

// --- Request DTOs ---
// Amounts cross the API boundary as integer cents; conversion to each
// gateway's wire format is the adapter's job, never the client's.

// CreateCheckoutSessionRequest holds the input for creating a checkout session.
type CreateCheckoutSessionRequest struct {
	Provider      string            `json:"provider,omitempty" validate:"omitempty,oneof=stripe paypal mollie gocardless payplug"`
	AmountCents   int64             `json:"amount_cents" validate:"required,gt=0"`
	Currency      string            `json:"currency" validate:"required,len=3"`
	Description   string            `json:"description,omitempty"`
	CustomerEmail string            `json:"customer_email,omitempty" validate:"omitempty,email"`
	CustomerName  string            `json:"customer_name,omitempty"`
	SuccessURL    string            `json:"success_url" validate:"required,url"`
	CancelURL     string            `json:"cancel_url" validate:"required,url"`
	QuoteID       string            `json:"quote_id,omitempty"`
	InvoiceID     string            `json:"invoice_id,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// CreatePaymentLinkRequest holds the input for creating a payment link.
type CreatePaymentLinkRequest struct {
	Provider    string            `json:"provider,omitempty" validate:"omitempty,oneof=stripe paypal mollie gocardless payplug"`
	AmountCents int64             `json:"amount_cents" validate:"required,gt=0"`
	Currency    string            `json:"currency" validate:"required,len=3"`
	Description string            `json:"description,omitempty"`
	QuoteID     string            `json:"quote_id,omitempty"`
	InvoiceID   string            `json:"invoice_id,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// RefundPaymentRequest holds the input for refunding a payment. A missing or
// zero amount requests a full refund.
type RefundPaymentRequest struct {
	AmountCents int64  `json:"amount_cents,omitempty" validate:"gte=0"`
	Currency    string `json:"currency,omitempty" validate:"omitempty,len=3"`
	Reason      string `json:"reason,omitempty"`
}

// CreateCustomerRequest holds the input for registering a payer with a gateway.
type CreateCustomerRequest struct {
	Provider   string `json:"provider,omitempty" validate:"omitempty,oneof=stripe paypal mollie gocardless payplug"`
	Email      string `json:"email" validate:"required,email"`
	Name       string `json:"name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	AddressL1  string `json:"address_line1,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty" validate:"omitempty,len=2"`
}

// --- Response DTOs ---

// CheckoutSessionResponse is the created-session payload.
type CheckoutSessionResponse struct {
	PaymentID   string `json:"payment_id"`
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
	Provider    string `json:"provider"`
	Status      string `json:"status"`
}

// PaymentLinkResponse is the created-link payload.
type PaymentLinkResponse struct {
	PaymentID string `json:"payment_id"`
	LinkID    string `json:"link_id"`
	URL       string `json:"url"`
	Provider  string `json:"provider"`
}

// RefundResponse is the gateway's answer to a refund.
type RefundResponse struct {
	RefundID       string `json:"refund_id"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	RefundedCents  int64  `json:"refunded_cents"`
	RemainingCents int64  `json:"remaining_cents"`
}

// StatusResponse is a point-in-time status read.
type StatusResponse struct {
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
	NativeStatus string `json:"native_status"`
	Provider     string `json:"provider"`
}

// CustomerResponse is a created gateway customer.
type CustomerResponse struct {
	CustomerID string `json:"customer_id"`
	Email      string `json:"email"`
	Provider   string `json:"provider"`
}

// PaymentRecordResponse represents a stored payment record.
type PaymentRecordResponse struct {
	ID                string    `json:"id"`
	Provider          string    `json:"provider"`
	Kind              string    `json:"kind"`
	AmountCents       int64     `json:"amount_cents"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	CheckoutURL       string    `json:"checkout_url,omitempty"`
	ProviderPaymentID string    `json:"provider_payment_id,omitempty"`
	QuoteID           string    `json:"quote_id,omitempty"`
	InvoiceID         string    `json:"invoice_id,omitempty"`
	RefundedCents     int64     `json:"refunded_cents"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ProviderInfoResponse describes one gateway's availability.
type ProviderInfoResponse struct {
	Provider string `json:"provider"`
	Active   bool   `json:"active"`
	Default  bool   `json:"default,omitempty"`
}

// WebhookAckResponse acknowledges a processed delivery.
type WebhookAckResponse struct {
	Received bool   `json:"received"`
	EventID  string `json:"event_id,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// FromRecord converts a domain record to its API shape.
func FromRecord(r *payment.Record) *PaymentRecordResponse {
	return &PaymentRecordResponse{
		ID:                r.ID.String(),
		Provider:          string(r.Provider),
		Kind:              string(r.Kind),
		AmountCents:       r.Amount.Cents,
		Currency:          r.Amount.Currency,
		Status:            string(r.Status),
		CheckoutURL:       r.CheckoutURL,
		ProviderPaymentID: r.ProviderPaymentID,
		QuoteID:           r.QuoteID,
		InvoiceID:         r.InvoiceID,
		RefundedCents:     r.RefundedCents,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}
