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

func newGoCardlessForTest(t *testing.T, handler http.Handler) *GoCardlessProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewGoCardlessProvider()
	p.baseURL = srv.URL
	require.NoError(t, p.Initialize(payment.ProviderConfig{
		Credentials: map[string]string{"accessToken": "live_token_1"},
		TenantID:    "tenant-1",
	}))
	return p
}

func TestGoCardless_Initialize_Validation(t *testing.T) {
	p := NewGoCardlessProvider()
	assert.ErrorIs(t, p.Initialize(payment.ProviderConfig{}), domainErrors.ErrMissingCredential)
	assert.NoError(t, p.Initialize(payment.ProviderConfig{
		Credentials: map[string]string{"accessToken": "tok"},
	}))
}

func TestGoCardless_CreateSession_RequiresMandate(t *testing.T) {
	p := newGoCardlessForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no gateway call expected when mandate is missing")
	}))

	_, err := p.CreateSession(context.Background(), payment.SessionRequest{
		Amount:        money.New(25050, "EUR"),
		CustomerEmail: "client@example.fr",
	})
	assert.ErrorIs(t, err, domainErrors.ErrMandateRequired)
}

func TestGoCardless_CreateSession_EnsuresCustomerThenPays(t *testing.T) {
	var calls []string
	p := newGoCardlessForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		assert.Equal(t, "Bearer live_token_1", r.Header.Get("Authorization"))
		assert.Equal(t, gocardlessAPIVersion, r.Header.Get("GoCardless-Version"))

		switch r.URL.Path {
		case "/customers":
			w.Write([]byte(`{"customers":{"id":"CU1","email":"client@example.fr"}}`))
		case "/payments":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			pmt := body["payments"].(map[string]any)
			assert.Equal(t, float64(25050), pmt["amount"])
			assert.Equal(t, "EUR", pmt["currency"])
			links := pmt["links"].(map[string]any)
			assert.Equal(t, "MD001", links["mandate"])
			w.Write([]byte(`{"payments":{"id":"PM1","status":"pending_submission"}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	sess, err := p.CreateSession(context.Background(), payment.SessionRequest{
		Amount:        money.New(25050, "EUR"),
		CustomerEmail: "client@example.fr",
		CustomerName:  "Martin",
		Metadata:      map[string]string{"mandate_id": "MD001"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"/customers", "/payments"}, calls)
	assert.Equal(t, "PM1", sess.ProviderPaymentID)
	assert.Equal(t, payment.StatusPending, sess.Status)
	// Direct debit pulls via the mandate; there is no checkout redirect.
	assert.Empty(t, sess.URL)
}

func TestGoCardless_CreateLink(t *testing.T) {
	p := newGoCardlessForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/billing_requests", r.URL.Path)
		w.Write([]byte(`{"billing_requests":{"id":"BRQ1"}}`))
	}))

	link, err := p.CreateLink(context.Background(), payment.LinkRequest{Amount: money.New(10000, "EUR")})
	require.NoError(t, err)
	assert.Equal(t, "BRQ1", link.ID)
	assert.Contains(t, link.URL, "BRQ1")
}

func TestGoCardless_Refund(t *testing.T) {
	p := newGoCardlessForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/refunds", r.URL.Path)
		w.Write([]byte(`{"refunds":{"id":"RF1","amount":25050,"currency":"EUR"}}`))
	}))

	res, err := p.Refund(context.Background(), payment.RefundRequest{ProviderPaymentID: "PM1"})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusRefunded, res.Status)
	assert.Equal(t, int64(25050), res.Amount.Cents)
}

func TestGoCardless_GetStatus(t *testing.T) {
	p := newGoCardlessForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments/PM1", r.URL.Path)
		w.Write([]byte(`{"payments":{"id":"PM1","status":"confirmed","amount":25050,"currency":"EUR"}}`))
	}))

	res, err := p.GetStatus(context.Background(), "PM1")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSucceeded, res.Status)
	assert.Equal(t, "confirmed", res.NativeStatus)
}

func TestGoCardless_APIError(t *testing.T) {
	p := newGoCardlessForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"errors":[{"message":"Refund amount exceeds the payment amount"}]}}`))
	}))

	excess := money.New(15000, "EUR")
	_, err := p.Refund(context.Background(), payment.RefundRequest{ProviderPaymentID: "PM1", Amount: &excess})

	var apiErr *domainErrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "gocardless", apiErr.Provider)
	assert.Contains(t, apiErr.Message, "exceeds the payment amount")
}

func TestGoCardless_VerifyWebhook(t *testing.T) {
	p := NewGoCardlessProvider()
	body := []byte(`{"events":[{"id":"EV1","resource_type":"payments","action":"confirmed","created_at":"2026-03-01T10:00:00Z"}]}`)
	header := http.Header{}
	header.Set("Webhook-Signature", signHex("wh_secret", body))

	evt, err := p.VerifyWebhook(body, header, "wh_secret")
	require.NoError(t, err)
	assert.Equal(t, "EV1", evt.ID)
	assert.Equal(t, "payments.confirmed", evt.Type)
}

func TestGoCardless_VerifyWebhook_Rejections(t *testing.T) {
	p := NewGoCardlessProvider()
	body := []byte(`{"events":[]}`)

	_, err := p.VerifyWebhook(body, http.Header{}, "wh_secret")
	assert.ErrorIs(t, err, domainErrors.ErrWebhookVerification)

	header := http.Header{}
	header.Set("Webhook-Signature", signHex("wh_secret", body))
	_, err = p.VerifyWebhook(body, header, "wh_secret")
	assert.ErrorIs(t, err, domainErrors.ErrWebhookVerification) // empty batch
}
