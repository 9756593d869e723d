package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/chantierpro/payments/internal/domain/errors"
	"github.com/chantierpro/payments/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `id, tenant_id, provider, kind, amount_cents, currency, status,
	session_id, provider_payment_id, checkout_url, quote_id, invoice_id,
	customer_email, refunded_cents, last_event_id, created_at, updated_at`

// RecordRepository implements payment.Repository using PostgreSQL.
type RecordRepository struct {
	pool *pgxpool.Pool
}

func NewRecordRepository(pool *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{pool: pool}
}

func (r *RecordRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (r *RecordRepository) Create(ctx context.Context, rec *payment.Record) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO payment_records (`+recordColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		rec.ID, rec.TenantID, string(rec.Provider), string(rec.Kind),
		rec.Amount.Cents, rec.Amount.Currency, string(rec.Status),
		rec.SessionID, rec.ProviderPaymentID, rec.CheckoutURL,
		rec.QuoteID, rec.InvoiceID, rec.CustomerEmail,
		rec.RefundedCents, rec.LastEventID, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment record: %w", err)
	}
	return nil
}

func (r *RecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Record, error) {
	return r.scanRecord(r.db(ctx).QueryRow(ctx,
		`SELECT `+recordColumns+` FROM payment_records WHERE id = $1`, id))
}

// GetByProviderPaymentID resolves a webhook event back to the local record.
func (r *RecordRepository) GetByProviderPaymentID(ctx context.Context, provider payment.ProviderType, providerPaymentID string) (*payment.Record, error) {
	return r.scanRecord(r.db(ctx).QueryRow(ctx,
		`SELECT `+recordColumns+` FROM payment_records
		 WHERE provider = $1 AND (provider_payment_id = $2 OR session_id = $2)`,
		string(provider), providerPaymentID))
}

func (r *RecordRepository) Update(ctx context.Context, rec *payment.Record) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payment_records SET
		  status=$1, provider_payment_id=$2, refunded_cents=$3,
		  last_event_id=$4, updated_at=$5
		 WHERE id=$6`,
		string(rec.Status), rec.ProviderPaymentID, rec.RefundedCents,
		rec.LastEventID, rec.UpdatedAt, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update payment record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrPaymentNotFound
	}
	return nil
}

func (r *RecordRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*payment.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+recordColumns+` FROM payment_records
		 WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list payment records: %w", err)
	}
	defer rows.Close()

	var records []*payment.Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *RecordRepository) scanRecord(s scanner) (*payment.Record, error) {
	rec := &payment.Record{}
	var provider, kind, status string
	err := s.Scan(
		&rec.ID, &rec.TenantID, &provider, &kind,
		&rec.Amount.Cents, &rec.Amount.Currency, &status,
		&rec.SessionID, &rec.ProviderPaymentID, &rec.CheckoutURL,
		&rec.QuoteID, &rec.InvoiceID, &rec.CustomerEmail,
		&rec.RefundedCents, &rec.LastEventID, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("scan payment record: %w", err)
	}
	rec.Provider = payment.ProviderType(provider)
	rec.Kind = payment.Kind(kind)
	rec.Status = payment.UnifiedStatus(status)
	return rec, nil
}
