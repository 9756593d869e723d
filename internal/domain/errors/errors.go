package errors

import (
	"errors"
	"fmt"
)

var (
	// Provider errors
	ErrUnsupportedProvider = errors.New("unsupported payment provider")
	ErrProviderNotFound    = errors.New("payment provider not configured")
	ErrProviderRejected    = errors.New("payment provider rejected the request")
	ErrMissingCredential   = errors.New("missing provider credential")
	ErrNotInitialized      = errors.New("provider not initialized")
	ErrMandateRequired     = errors.New("direct debit mandate required")

	// Webhook errors
	ErrWebhookVerification = errors.New("webhook signature verification failed")

	// Payment errors
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrDuplicateWebhook = errors.New("webhook event already processed")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)

// ConfigurationError reports a missing or malformed credential detected when
// initializing a provider adapter. Fatal for that adapter instance.
type ConfigurationError struct {
	Provider string
	Field    string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: invalid configuration for %q: %s", e.Provider, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrMissingCredential
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(provider, field, reason string) *ConfigurationError {
	return &ConfigurationError{Provider: provider, Field: field, Reason: reason}
}

// APIError reports a non-success response from a payment gateway. It carries
// the gateway name and attempted operation so callers can log and alert
// without re-deriving the context.
type APIError struct {
	Provider   string
	Operation  string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s failed: %s", e.Provider, e.Operation, e.Message)
	}
	return fmt.Sprintf("%s: %s failed with status %d", e.Provider, e.Operation, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return ErrProviderRejected
}

// NewAPIError creates a new APIError.
func NewAPIError(provider, operation string, statusCode int, message string) *APIError {
	return &APIError{
		Provider:   provider,
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
	}
}

// WebhookError reports a rejected webhook delivery: missing signature header
// or a signature that does not verify against the raw body. Treated as a
// security event; no parsed event is ever exposed alongside it.
type WebhookError struct {
	Provider string
	Reason   string
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("%s: webhook rejected: %s", e.Provider, e.Reason)
}

func (e *WebhookError) Unwrap() error {
	return ErrWebhookVerification
}

// NewWebhookError creates a new WebhookError.
func NewWebhookError(provider, reason string) *WebhookError {
	return &WebhookError{Provider: provider, Reason: reason}
}

// ValidationError represents a request validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
