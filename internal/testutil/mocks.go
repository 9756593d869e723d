package testutil

import (
	"context"
	"sync"

	domainErrors "github.com/chantierpro/payments/internal/domain/errors"
	"github.com/chantierpro/payments/internal/domain/payment"
	"github.com/google/uuid"
)

// --- Record Repository Mock ---

// MockRecordRepository is an in-memory implementation of payment.Repository.
// Per-method Func hooks override the default behavior when set.
type MockRecordRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]*payment.Record

	CreateFunc                 func(ctx context.Context, r *payment.Record) error
	GetByIDFunc                func(ctx context.Context, id uuid.UUID) (*payment.Record, error)
	GetByProviderPaymentIDFunc func(ctx context.Context, provider payment.ProviderType, providerPaymentID string) (*payment.Record, error)
	UpdateFunc                 func(ctx context.Context, r *payment.Record) error
}

func NewMockRecordRepository() *MockRecordRepository {
	return &MockRecordRepository{records: make(map[uuid.UUID]*payment.Record)}
}

func (m *MockRecordRepository) Create(ctx context.Context, r *payment.Record) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.records[r.ID] = &cp
	return nil
}

func (m *MockRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Record, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, domainErrors.ErrPaymentNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MockRecordRepository) GetByProviderPaymentID(ctx context.Context, provider payment.ProviderType, providerPaymentID string) (*payment.Record, error) {
	if m.GetByProviderPaymentIDFunc != nil {
		return m.GetByProviderPaymentIDFunc(ctx, provider, providerPaymentID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Provider == provider && (r.ProviderPaymentID == providerPaymentID || r.SessionID == providerPaymentID) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domainErrors.ErrPaymentNotFound
}

func (m *MockRecordRepository) Update(ctx context.Context, r *payment.Record) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.ID]; !ok {
		return domainErrors.ErrPaymentNotFound
	}
	cp := *r
	m.records[r.ID] = &cp
	return nil
}

func (m *MockRecordRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*payment.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*payment.Record
	for _, r := range m.records {
		if r.TenantID == tenantID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- Invoice Marker Mock ---

// MockInvoiceMarker records MarkPaid calls.
type MockInvoiceMarker struct {
	mu     sync.Mutex
	marked map[string]payment.UnifiedStatus

	MarkPaidFunc func(ctx context.Context, invoiceID string, status payment.UnifiedStatus) error
}

func NewMockInvoiceMarker() *MockInvoiceMarker {
	return &MockInvoiceMarker{marked: make(map[string]payment.UnifiedStatus)}
}

func (m *MockInvoiceMarker) MarkPaid(ctx context.Context, invoiceID string, status payment.UnifiedStatus) error {
	if m.MarkPaidFunc != nil {
		return m.MarkPaidFunc(ctx, invoiceID, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marked[invoiceID] = status
	return nil
}

// Marked returns the status an invoice was marked with, if any.
func (m *MockInvoiceMarker) Marked(invoiceID string) (payment.UnifiedStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.marked[invoiceID]
	return s, ok
}

// --- Deduper Mock ---

// MockDeduper is an in-memory webhook dedup store.
type MockDeduper struct {
	mu   sync.Mutex
	seen map[string]bool

	MarkSeenFunc func(ctx context.Context, provider, eventID string) (bool, error)
}

func NewMockDeduper() *MockDeduper {
	return &MockDeduper{seen: make(map[string]bool)}
}

func (m *MockDeduper) MarkSeen(ctx context.Context, provider, eventID string) (bool, error) {
	if m.MarkSeenFunc != nil {
		return m.MarkSeenFunc(ctx, provider, eventID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := provider + ":" + eventID
	if m.seen[key] {
		return true, nil
	}
	m.seen[key] = true
	return false, nil
}

func (m *MockDeduper) Forget(ctx context.Context, provider, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, provider+":"+eventID)
	return nil
}

// --- Transaction Manager Mock ---

// NoopTxManager runs the function without a transaction.
type NoopTxManager struct{}

func (NoopTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
