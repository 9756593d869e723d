package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError("stripe", "secretKey", "must start with sk_")

	assert.Contains(t, err.Error(), "stripe")
	assert.Contains(t, err.Error(), "secretKey")
	assert.True(t, errors.Is(err, ErrMissingCredential))
}

func TestAPIError(t *testing.T) {
	err := NewAPIError("mollie", "create_session", 422, "amount too low")

	assert.Contains(t, err.Error(), "mollie")
	assert.Contains(t, err.Error(), "create_session")
	assert.Contains(t, err.Error(), "amount too low")
	assert.True(t, errors.Is(err, ErrProviderRejected))

	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 422, apiErr.StatusCode)
}

func TestAPIError_NoMessage(t *testing.T) {
	err := NewAPIError("paypal", "refund", 500, "")
	assert.Contains(t, err.Error(), "500")
}

func TestWebhookError(t *testing.T) {
	err := NewWebhookError("gocardless", "missing signature header")

	assert.True(t, errors.Is(err, ErrWebhookVerification))
	assert.Contains(t, err.Error(), "gocardless")
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("amount", "must be greater than 0")
	assert.Equal(t, "validation failed for field amount: must be greater than 0", err.Error())
}
