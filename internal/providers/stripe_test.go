package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domainErrors "github.com/chantierpro/payments/internal/domain/errors"
	"github.com/chantierpro/payments/internal/domain/money"
	"github.com/chantierpro/payments/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStripeForTest(t *testing.T, handler http.Handler) *StripeProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewStripeProvider()
	p.baseURL = srv.URL
	require.NoError(t, p.Initialize(payment.ProviderConfig{
		Provider:    payment.ProviderStripe,
		Credentials: map[string]string{"secretKey": "sk_test_123"},
		TenantID:    "tenant-1",
	}))
	return p
}

func TestStripe_Initialize_Validation(t *testing.T) {
	p := NewStripeProvider()

	err := p.Initialize(payment.ProviderConfig{Credentials: map[string]string{}})
	assert.ErrorIs(t, err, domainErrors.ErrMissingCredential)
	assert.False(t, p.IsConfigured())

	err = p.Initialize(payment.ProviderConfig{Credentials: map[string]string{"secretKey": "pk_test_123"}})
	assert.ErrorIs(t, err, domainErrors.ErrMissingCredential)

	require.NoError(t, p.Initialize(payment.ProviderConfig{Credentials: map[string]string{"secretKey": "sk_live_123"}}))
	assert.True(t, p.IsConfigured())
}

func TestStripe_NotInitialized(t *testing.T) {
	p := NewStripeProvider()
	_, err := p.CreateSession(context.Background(), payment.SessionRequest{})
	assert.ErrorIs(t, err, domainErrors.ErrNotInitialized)
}

func TestStripe_CreateSession(t *testing.T) {
	p := newStripeForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())

		// Amount crosses the wire in minor units, currency lower-cased.
		assert.Equal(t, "25050", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "eur", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "INV-42", r.PostForm.Get("metadata[invoice_id]"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_123","url":"https://checkout.stripe.com/c/cs_123","payment_intent":"pi_123","payment_status":"unpaid"}`))
	}))

	sess, err := p.CreateSession(context.Background(), payment.SessionRequest{
		Amount:        money.New(25050, "EUR"),
		Description:   "Facture INV-42",
		CustomerEmail: "client@example.fr",
		SuccessURL:    "https://app.example.fr/ok",
		CancelURL:     "https://app.example.fr/ko",
		InvoiceID:     "INV-42",
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_123", sess.ID)
	assert.Equal(t, "pi_123", sess.ProviderPaymentID)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_123", sess.URL)
	assert.Equal(t, payment.StatusPending, sess.Status)
}

func TestStripe_CreateLink(t *testing.T) {
	p := newStripeForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_links", r.URL.Path)
		w.Write([]byte(`{"id":"plink_1","url":"https://buy.stripe.com/plink_1"}`))
	}))

	link, err := p.CreateLink(context.Background(), payment.LinkRequest{
		Amount:      money.New(10000, "EUR"),
		Description: "Acompte chantier",
	})
	require.NoError(t, err)
	assert.Equal(t, "plink_1", link.ID)
	assert.Equal(t, "https://buy.stripe.com/plink_1", link.URL)
}

func TestStripe_Refund_FullAndPartial(t *testing.T) {
	p := newStripeForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/refunds", r.URL.Path)
		w.Write([]byte(`{"id":"re_1","amount":25050,"currency":"eur"}`))
	}))

	full, err := p.Refund(context.Background(), payment.RefundRequest{ProviderPaymentID: "pi_123"})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusRefunded, full.Status)
	assert.Equal(t, int64(25050), full.Amount.Cents)
	assert.Equal(t, "EUR", full.Amount.Currency)

	partialAmount := money.New(5000, "EUR")
	partial, err := p.Refund(context.Background(), payment.RefundRequest{
		ProviderPaymentID: "pi_123",
		Amount:            &partialAmount,
	})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPartiallyRefunded, partial.Status)
}

func TestStripe_Refund_ExceedsBalance(t *testing.T) {
	// The refundable balance is only known gateway-side; the rejection must
	// surface as an APIError, not local validation.
	p := newStripeForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Refund amount (€150.00) is greater than charge amount (€100.00)"}}`))
	}))

	excess := money.New(15000, "EUR")
	_, err := p.Refund(context.Background(), payment.RefundRequest{
		ProviderPaymentID: "pi_123",
		Amount:            &excess,
	})
	require.Error(t, err)

	var apiErr *domainErrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "stripe", apiErr.Provider)
	assert.Equal(t, "refund", apiErr.Operation)
	assert.Contains(t, apiErr.Message, "greater than charge amount")
}

func TestStripe_GetStatus(t *testing.T) {
	p := newStripeForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_intents/pi_123", r.URL.Path)
		w.Write([]byte(`{"id":"pi_123","status":"succeeded","amount":25050,"currency":"eur"}`))
	}))

	res, err := p.GetStatus(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSucceeded, res.Status)
	assert.Equal(t, "succeeded", res.NativeStatus)
	assert.Equal(t, 250.50, res.Amount.Major())
}

func TestStripe_GetStatus_UnknownNativeStatus(t *testing.T) {
	p := newStripeForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"pi_123","status":"some_new_stripe_state","amount":100,"currency":"eur"}`))
	}))

	res, err := p.GetStatus(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, res.Status)
}

func TestStripe_CreateCustomer(t *testing.T) {
	p := newStripeForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/customers", r.URL.Path)
		w.Write([]byte(`{"id":"cus_1","email":"client@example.fr"}`))
	}))

	c, err := p.CreateCustomer(context.Background(), payment.CustomerRequest{Email: "client@example.fr"})
	require.NoError(t, err)
	assert.Equal(t, "cus_1", c.ID)
}

func TestStripe_VerifyWebhook(t *testing.T) {
	p := NewStripeProvider()
	body := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","created":1735000000}`)
	header := http.Header{}
	header.Set("Stripe-Signature", signStripe("whsec_1", body, time.Now()))

	evt, err := p.VerifyWebhook(body, header, "whsec_1")
	require.NoError(t, err)
	assert.Equal(t, "evt_1", evt.ID)
	assert.Equal(t, "payment_intent.succeeded", evt.Type)
	assert.Equal(t, payment.ProviderStripe, evt.Provider)
}

func TestStripe_VerifyWebhook_MissingHeaderRejectsBeforeParsing(t *testing.T) {
	p := NewStripeProvider()
	// Deliberately invalid JSON: it must never reach the parser.
	body := []byte(`{not json at all`)

	_, err := p.VerifyWebhook(body, http.Header{}, "whsec_1")
	assert.ErrorIs(t, err, domainErrors.ErrWebhookVerification)
}

func TestStripe_VerifyWebhook_BadSignature(t *testing.T) {
	p := NewStripeProvider()
	body := []byte(`{"id":"evt_1","type":"x"}`)
	header := http.Header{}
	header.Set("Stripe-Signature", signStripe("wrong-secret", body, time.Now()))

	_, err := p.VerifyWebhook(body, header, "whsec_1")
	assert.ErrorIs(t, err, domainErrors.ErrWebhookVerification)
}
