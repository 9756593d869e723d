package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chantierpro/payments/internal/domain/payment"
	"github.com/chantierpro/payments/internal/providers"
	"github.com/chantierpro/payments/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postWebhook(router http.Handler, provider string, body []byte, signed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/"+provider, bytes.NewReader(body))
	if signed {
		req.Header.Set("Mock-Signature", "valid")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhookHandler_AppliesEvent(t *testing.T) {
	repo := testutil.NewMockRecordRepository()
	router := newTestRouter(repo, providers.NewMockProvider(payment.ProviderMollie))

	stored := testutil.NewTestRecord(payment.ProviderMollie, 25050, "EUR")
	stored.ProviderPaymentID = "tr_abc"
	require.NoError(t, repo.Create(context.Background(), stored))

	rec := postWebhook(router, "mollie", []byte(`{"id":"tr_abc","status":"paid"}`), true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var ack WebhookAckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.True(t, ack.Received)

	updated, err := repo.GetByID(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSucceeded, updated.Status)
}

func TestWebhookHandler_MissingSignature(t *testing.T) {
	router := newTestRouter(testutil.NewMockRecordRepository(), providers.NewMockProvider(payment.ProviderMollie))

	rec := postWebhook(router, "mollie", []byte(`{"id":"tr_abc","status":"paid"}`), false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "webhook_rejected", resp.Code)
	// The body must not explain what failed.
	assert.Equal(t, "webhook rejected", resp.Error)
}

func TestWebhookHandler_DuplicateAcked(t *testing.T) {
	repo := testutil.NewMockRecordRepository()
	router := newTestRouter(repo, providers.NewMockProvider(payment.ProviderMollie))

	stored := testutil.NewTestRecord(payment.ProviderMollie, 25050, "EUR")
	stored.ProviderPaymentID = "tr_abc"
	require.NoError(t, repo.Create(context.Background(), stored))

	body := []byte(`{"id":"tr_abc","status":"paid"}`)
	first := postWebhook(router, "mollie", body, true)
	require.Equal(t, http.StatusOK, first.Code)

	second := postWebhook(router, "mollie", body, true)
	assert.Equal(t, http.StatusOK, second.Code)

	var ack WebhookAckResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &ack))
	assert.True(t, ack.Received)
}

func TestWebhookHandler_UnknownProvider(t *testing.T) {
	router := newTestRouter(testutil.NewMockRecordRepository(), providers.NewMockProvider(payment.ProviderMollie))

	rec := postWebhook(router, "square", []byte(`{}`), true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
