package providers

import (
	"encoding/json"
	"testing"

	"github.com/chantierpro/payments/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractReference(t *testing.T) {
	tests := []struct {
		name       string
		provider   payment.ProviderType
		payload    string
		wantID     string
		wantStatus payment.UnifiedStatus
	}{
		{
			name:       "stripe checkout session",
			provider:   payment.ProviderStripe,
			payload:    `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_123","payment_status":"paid"}}}`,
			wantID:     "cs_123",
			wantStatus: payment.StatusSucceeded,
		},
		{
			name:       "stripe payment intent",
			provider:   payment.ProviderStripe,
			payload:    `{"id":"evt_2","data":{"object":{"id":"pi_456","status":"processing"}}}`,
			wantID:     "pi_456",
			wantStatus: payment.StatusProcessing,
		},
		{
			name:       "paypal capture completed",
			provider:   payment.ProviderPayPal,
			payload:    `{"id":"WH-1","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"CAP-9","status":"COMPLETED"}}`,
			wantID:     "CAP-9",
			wantStatus: payment.StatusSucceeded,
		},
		{
			name:       "mollie payment paid",
			provider:   payment.ProviderMollie,
			payload:    `{"id":"tr_abc","status":"paid"}`,
			wantID:     "tr_abc",
			wantStatus: payment.StatusSucceeded,
		},
		{
			name:       "gocardless payment confirmed",
			provider:   payment.ProviderGoCardless,
			payload:    `{"events":[{"id":"EV1","resource_type":"payments","action":"confirmed","links":{"payment":"PM123"}}]}`,
			wantID:     "PM123",
			wantStatus: payment.StatusSucceeded,
		},
		{
			name:       "payplug paid payment",
			provider:   payment.ProviderPayPlug,
			payload:    `{"id":"pay_77","object":"payment","is_paid":true}`,
			wantID:     "pay_77",
			wantStatus: payment.StatusSucceeded,
		},
		{
			name:       "unknown native status falls back to pending",
			provider:   payment.ProviderMollie,
			payload:    `{"id":"tr_new","status":"shiny_new_state"}`,
			wantID:     "tr_new",
			wantStatus: payment.StatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ExtractReference(&payment.WebhookEvent{
				Provider: tt.provider,
				Payload:  json.RawMessage(tt.payload),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, ref.ProviderPaymentID)
			assert.Equal(t, tt.wantStatus, ref.Status)
		})
	}
}

func TestExtractReference_MalformedPayloads(t *testing.T) {
	for _, provider := range payment.SupportedProviders {
		t.Run(string(provider), func(t *testing.T) {
			_, err := ExtractReference(&payment.WebhookEvent{
				Provider: provider,
				Payload:  json.RawMessage(`{}`),
			})
			assert.Error(t, err)
		})
	}
}

func TestExtractReference_UnsupportedProvider(t *testing.T) {
	_, err := ExtractReference(&payment.WebhookEvent{
		Provider: payment.ProviderType("square"),
		Payload:  json.RawMessage(`{}`),
	})
	assert.Error(t, err)
}
