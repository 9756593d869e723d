package payment

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists payment records.
type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	GetByProviderPaymentID(ctx context.Context, provider ProviderType, providerPaymentID string) (*Record, error)
	Update(ctx context.Context, r *Record) error
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*Record, error)
}

// InvoiceMarker is the narrow surface this subsystem exposes to the
// quote/invoice engine: enough to mark a document paid or partially paid,
// nothing else.
type InvoiceMarker interface {
	MarkPaid(ctx context.Context, invoiceID string, status UnifiedStatus) error
}
