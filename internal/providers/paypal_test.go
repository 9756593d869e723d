package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	domainErrors "github.com/chantierpro/payments/internal/domain/errors"
	"github.com/chantierpro/payments/internal/domain/money"
	"github.com/chantierpro/payments/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPayPalForTest(t *testing.T, handler http.Handler) *PayPalProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewPayPalProvider()
	p.baseURL = srv.URL
	require.NoError(t, p.Initialize(payment.ProviderConfig{
		Credentials: map[string]string{"clientId": "client-1", "clientSecret": "secret-1"},
		TenantID:    "tenant-1",
	}))
	return p
}

func TestPayPal_Initialize_RequiresBothCredentials(t *testing.T) {
	p := NewPayPalProvider()

	assert.ErrorIs(t, p.Initialize(payment.ProviderConfig{
		Credentials: map[string]string{"clientId": "only-id"},
	}), domainErrors.ErrMissingCredential)

	assert.ErrorIs(t, p.Initialize(payment.ProviderConfig{
		Credentials: map[string]string{"clientSecret": "only-secret"},
	}), domainErrors.ErrMissingCredential)

	assert.NoError(t, p.Initialize(payment.ProviderConfig{
		Credentials: map[string]string{"clientId": "id", "clientSecret": "secret"},
	}))
}

func TestPayPal_CreateSession(t *testing.T) {
	p := newPayPalForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/checkout/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client-1", user)
		assert.Equal(t, "secret-1", pass)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		units := body["purchase_units"].([]any)
		amount := units[0].(map[string]any)["amount"].(map[string]any)
		assert.Equal(t, "250.50", amount["value"])
		assert.Equal(t, "EUR", amount["currency_code"])

		w.Write([]byte(`{"id":"ORD-1","status":"CREATED","links":[{"rel":"self","href":"https://api-m.paypal.com/v2/checkout/orders/ORD-1"},{"rel":"approve","href":"https://www.paypal.com/checkoutnow?token=ORD-1"}]}`))
	}))

	sess, err := p.CreateSession(context.Background(), payment.SessionRequest{
		Amount:     money.New(25050, "EUR"),
		SuccessURL: "https://app.example.fr/ok",
		CancelURL:  "https://app.example.fr/ko",
		InvoiceID:  "INV-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", sess.ID)
	assert.Equal(t, "https://www.paypal.com/checkoutnow?token=ORD-1", sess.URL)
	assert.Equal(t, payment.StatusPending, sess.Status)
}

func TestPayPal_CreateLink_ReusesOrderResource(t *testing.T) {
	p := newPayPalForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/checkout/orders", r.URL.Path)
		w.Write([]byte(`{"id":"ORD-2","status":"CREATED","links":[{"rel":"approve","href":"https://www.paypal.com/checkoutnow?token=ORD-2"}]}`))
	}))

	link, err := p.CreateLink(context.Background(), payment.LinkRequest{Amount: money.New(10000, "EUR")})
	require.NoError(t, err)
	assert.Equal(t, "ORD-2", link.ID)
	assert.NotEmpty(t, link.URL)
}

func TestPayPal_Refund(t *testing.T) {
	p := newPayPalForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/payments/captures/CAP-1/refund", r.URL.Path)
		w.Write([]byte(`{"id":"REF-1","status":"COMPLETED","amount":{"currency_code":"EUR","value":"250.50"}}`))
	}))

	res, err := p.Refund(context.Background(), payment.RefundRequest{ProviderPaymentID: "CAP-1"})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusRefunded, res.Status)
	assert.Equal(t, int64(25050), res.Amount.Cents)
}

func TestPayPal_GetStatus(t *testing.T) {
	p := newPayPalForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/checkout/orders/ORD-1", r.URL.Path)
		w.Write([]byte(`{"id":"ORD-1","status":"COMPLETED","purchase_units":[{"amount":{"currency_code":"EUR","value":"250.50"}}]}`))
	}))

	res, err := p.GetStatus(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSucceeded, res.Status)
	assert.Equal(t, "COMPLETED", res.NativeStatus)
}

func TestPayPal_CreateCustomer_PureEcho(t *testing.T) {
	// No gateway round trip: the handler must never be hit.
	p := newPayPalForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected network call for paypal customer creation")
	}))

	c, err := p.CreateCustomer(context.Background(), payment.CustomerRequest{Email: "client@example.fr"})
	require.NoError(t, err)
	assert.Equal(t, "client@example.fr", c.ID)
	assert.Equal(t, "client@example.fr", c.Email)
}

func TestPayPal_VerifyWebhook(t *testing.T) {
	p := NewPayPalProvider()
	body := []byte(`{"id":"WH-1","event_type":"PAYMENT.CAPTURE.COMPLETED"}`)
	header := http.Header{}
	header.Set("Paypal-Transmission-Sig", signBase64("wh-secret", body))

	evt, err := p.VerifyWebhook(body, header, "wh-secret")
	require.NoError(t, err)
	assert.Equal(t, "WH-1", evt.ID)
	assert.Equal(t, "PAYMENT.CAPTURE.COMPLETED", evt.Type)
}

func TestPayPal_VerifyWebhook_Rejections(t *testing.T) {
	p := NewPayPalProvider()
	body := []byte(`{broken`)

	_, err := p.VerifyWebhook(body, http.Header{}, "wh-secret")
	assert.ErrorIs(t, err, domainErrors.ErrWebhookVerification)

	header := http.Header{}
	header.Set("Paypal-Transmission-Sig", signBase64("wrong", body))
	_, err = p.VerifyWebhook(body, header, "wh-secret")
	assert.ErrorIs(t, err, domainErrors.ErrWebhookVerification)
}

func TestPayPal_APIError(t *testing.T) {
	p := newPayPalForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY","message":"The requested action could not be performed."}`))
	}))

	_, err := p.CreateSession(context.Background(), payment.SessionRequest{Amount: money.New(100, "EUR")})

	var apiErr *domainErrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "paypal", apiErr.Provider)
	assert.Equal(t, "create_session", apiErr.Operation)
	assert.Equal(t, 422, apiErr.StatusCode)
}
