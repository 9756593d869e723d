package controller

import (
	"errors"
	"io"
	"net/http"

	domainErrors "github.com/chantierpro/payments/internal/domain/errors"
	"github.com/chantierpro/payments/internal/domain/payment"
	"github.com/chantierpro/payments/internal/service"
	"github.com/go-chi/chi/v5"
)

// Gateways keep webhook bodies small; anything past this is not a payment
// notification.
const maxWebhookBodySize = 1 << 20

// WebhookController receives gateway deliveries. It must hand the raw body
// to the verification layer untouched; any decoding before the signature
// check would be acting on unauthenticated input.
type WebhookController struct {
	webhookService *service.WebhookService
	tenantID       string
}

func NewWebhookController(webhookService *service.WebhookService, tenantID string) *WebhookController {
	return &WebhookController{webhookService: webhookService, tenantID: tenantID}
}

// Receive handles POST /webhooks/{provider}
func (h *WebhookController) Receive(w http.ResponseWriter, r *http.Request) {
	providerType := payment.ProviderType(chi.URLParam(r, "provider"))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "body too large", Code: "body_too_large"})
		return
	}

	event, err := h.webhookService.HandleWebhook(r.Context(), providerType, h.tenantID, body, r.Header)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, WebhookAckResponse{Received: true, EventID: event.ID})
	case errors.Is(err, domainErrors.ErrDuplicateWebhook):
		// Already processed; acknowledge so the gateway stops retrying.
		writeJSON(w, http.StatusOK, WebhookAckResponse{Received: true, EventID: event.ID})
	case errors.Is(err, domainErrors.ErrWebhookVerification):
		// Deliberately terse: no hint about which check failed.
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "webhook rejected", Code: "webhook_rejected"})
	case errors.Is(err, domainErrors.ErrUnsupportedProvider), errors.Is(err, domainErrors.ErrProviderNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "unknown provider", Code: "unknown_provider"})
	default:
		// Processing failed after verification; a 5xx makes the gateway retry.
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "processing failed", Code: "internal_error"})
	}
}
