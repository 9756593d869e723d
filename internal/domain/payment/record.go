package payment

import (
	"time"

	"github.com/chantierpro/payments/internal/domain/errors"
	"github.com/chantierpro/payments/internal/domain/money"
	"github.com/google/uuid"
)

// Kind distinguishes what a stored payment record was created from.
type Kind string

const (
	KindSession Kind = "session"
	KindLink    Kind = "link"
)

// Record is the caller-side persistence of a checkout attempt: which gateway
// it went to, the ids the gateway handed back, and the last unified status
// reported by a status read or a verified webhook. The provider layer itself
// never persists anything.
type Record struct {
	ID                uuid.UUID
	TenantID          string
	Provider          ProviderType
	Kind              Kind
	Amount            money.Money
	Status            UnifiedStatus
	SessionID         string
	ProviderPaymentID string
	CheckoutURL       string
	QuoteID           string
	InvoiceID         string
	CustomerEmail     string
	RefundedCents     int64
	LastEventID       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewRecord creates a pending record for a freshly created session or link.
func NewRecord(tenantID string, provider ProviderType, kind Kind, amount money.Money) (*Record, error) {
	if err := amount.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	return &Record{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Provider:  provider,
		Kind:      kind,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// PaymentReference is the id used for gateway-side lookups: the
// provider-native payment id when the gateway exposed one, otherwise the
// session id.
func (r *Record) PaymentReference() string {
	if r.ProviderPaymentID != "" {
		return r.ProviderPaymentID
	}
	return r.SessionID
}

// ApplyStatus records a status observed from the gateway. Terminal states
// are sticky: a late or redelivered webhook cannot move a refunded record
// back to processing.
func (r *Record) ApplyStatus(status UnifiedStatus, eventID string) error {
	if eventID != "" && eventID == r.LastEventID {
		return errors.ErrDuplicateWebhook
	}
	if r.Status.IsTerminal() && !isRefundStatus(status) {
		return nil
	}
	r.Status = status
	r.LastEventID = eventID
	r.UpdatedAt = time.Now()
	return nil
}

// ApplyRefund accumulates refunded cents and derives the refund status.
func (r *Record) ApplyRefund(refunded money.Money) {
	r.RefundedCents += refunded.Cents
	if r.RefundedCents >= r.Amount.Cents {
		r.Status = StatusRefunded
	} else {
		r.Status = StatusPartiallyRefunded
	}
	r.UpdatedAt = time.Now()
}

func isRefundStatus(s UnifiedStatus) bool {
	return s == StatusRefunded || s == StatusPartiallyRefunded
}
