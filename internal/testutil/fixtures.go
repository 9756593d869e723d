package testutil

import (
	"github.com/chantierpro/payments/internal/domain/money"
	"github.com/chantierpro/payments/internal/domain/payment"
)

// NewTestRecord creates a pending session record for tests.
func NewTestRecord(provider payment.ProviderType, amountCents int64, currency string) *payment.Record {
	rec, err := payment.NewRecord("tenant-test", provider, payment.KindSession, money.New(amountCents, currency))
	if err != nil {
		panic(err)
	}
	return rec
}

// TestProviderConfig builds a minimal valid config per provider type.
func TestProviderConfig(t payment.ProviderType, tenantID string) payment.ProviderConfig {
	var creds map[string]string
	switch t {
	case payment.ProviderStripe:
		creds = map[string]string{"secretKey": "sk_test_123"}
	case payment.ProviderPayPal:
		creds = map[string]string{"clientId": "client-id", "clientSecret": "client-secret"}
	case payment.ProviderMollie:
		creds = map[string]string{"apiKey": "test_mollie_key"}
	case payment.ProviderGoCardless:
		creds = map[string]string{"accessToken": "gc_token"}
	case payment.ProviderPayPlug:
		creds = map[string]string{"secretKey": "sk_payplug"}
	}
	return payment.ProviderConfig{
		Provider:    t,
		Credentials: creds,
		Active:      true,
		TenantID:    tenantID,
	}
}
