package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/chantierpro/payments/internal/domain/payment"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InvoiceMarker implements payment.InvoiceMarker against the invoices table
// owned by the main application schema. It only flips the payment columns;
// totals, numbering and document state stay with the invoice engine.
type InvoiceMarker struct {
	pool *pgxpool.Pool
}

func NewInvoiceMarker(pool *pgxpool.Pool) *InvoiceMarker {
	return &InvoiceMarker{pool: pool}
}

func (m *InvoiceMarker) MarkPaid(ctx context.Context, invoiceID string, status payment.UnifiedStatus) error {
	db := ConnFromCtx(ctx, m.pool)
	// Zero matched rows is fine: payment links can be settled before the
	// invoice document exists.
	_, err := db.Exec(ctx,
		`UPDATE invoices
		 SET payment_status = $2, paid_at = $3, updated_at = $3
		 WHERE reference = $1`,
		invoiceID, string(status), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("mark invoice %s paid: %w", invoiceID, err)
	}
	return nil
}
