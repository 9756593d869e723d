package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	domainErrors "github.com/chantierpro/payments/internal/domain/errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domainErrors.ErrPaymentNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrProviderNotFound, http.StatusNotFound, "provider_not_configured"},
	{domainErrors.ErrUnsupportedProvider, http.StatusBadRequest, "unsupported_provider"},
	{domainErrors.ErrInvalidCurrency, http.StatusBadRequest, "invalid_currency"},
	{domainErrors.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{domainErrors.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domainErrors.ErrMandateRequired, http.StatusUnprocessableEntity, "mandate_required"},
	{domainErrors.ErrDuplicateWebhook, http.StatusConflict, "duplicate_event"},
	{domainErrors.ErrMissingCredential, http.StatusInternalServerError, "provider_misconfigured"},
	{domainErrors.ErrNotInitialized, http.StatusInternalServerError, "provider_misconfigured"},
	// The gateway said no: surface it as a bad upstream, not our fault.
	{domainErrors.ErrProviderRejected, http.StatusBadGateway, "provider_error"},
	{domainErrors.ErrWebhookVerification, http.StatusBadRequest, "webhook_rejected"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			// Never leak credential details to API clients.
			if m.code == "provider_misconfigured" {
				resp.Error = "payment provider is misconfigured"
			}
			writeJSON(w, m.status, resp)
			return
		}
	}

	log.Error().Err(err).Msg("unhandled error in handler")
	resp.Code = "internal_error"
	resp.Error = "internal server error"
	writeJSON(w, http.StatusInternalServerError, resp)
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}
