package providers

import (
	"encoding/json"
	"fmt"

	domainErrors "github.com/chantierpro/payments/internal/domain/errors"
	"github.com/chantierpro/payments/internal/domain/payment"
)

// EventReference is what a caller needs to act on a verified webhook event:
// which gateway payment it concerns and the unified status it reports.
type EventReference struct {
	ProviderPaymentID string
	NativeStatus      string
	Status            payment.UnifiedStatus
}

// ExtractReference pulls the payment reference out of a verified event's
// gateway-native payload. The wire shapes live here, next to the adapters
// that produced the event, so callers never touch raw gateway JSON.
func ExtractReference(event *payment.WebhookEvent) (*EventReference, error) {
	switch event.Provider {
	case payment.ProviderStripe:
		return stripeReference(event.Payload)
	case payment.ProviderPayPal:
		return paypalReference(event.Payload)
	case payment.ProviderMollie:
		return mollieReference(event.Payload)
	case payment.ProviderGoCardless:
		return gocardlessReference(event.Payload)
	case payment.ProviderPayPlug:
		return payplugReference(event.Payload)
	default:
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrUnsupportedProvider, event.Provider)
	}
}

// Stripe wraps the affected resource in data.object; checkout sessions
// report payment_status, payment intents report status.
func stripeReference(payload json.RawMessage) (*EventReference, error) {
	var body struct {
		Data struct {
			Object struct {
				ID            string `json:"id"`
				Status        string `json:"status"`
				PaymentStatus string `json:"payment_status"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.Data.Object.ID == "" {
		return nil, domainErrors.NewWebhookError("stripe", "event payload missing data.object")
	}
	native := body.Data.Object.PaymentStatus
	if native == "" {
		native = body.Data.Object.Status
	}
	return &EventReference{
		ProviderPaymentID: body.Data.Object.ID,
		NativeStatus:      native,
		Status:            stripeStatuses.lookup(native),
	}, nil
}

func paypalReference(payload json.RawMessage) (*EventReference, error) {
	var body struct {
		Resource struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"resource"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.Resource.ID == "" {
		return nil, domainErrors.NewWebhookError("paypal", "event payload missing resource")
	}
	return &EventReference{
		ProviderPaymentID: body.Resource.ID,
		NativeStatus:      body.Resource.Status,
		Status:            paypalStatuses.lookup(body.Resource.Status),
	}, nil
}

// Mollie notifications deliver the payment resource itself.
func mollieReference(payload json.RawMessage) (*EventReference, error) {
	var body struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.ID == "" {
		return nil, domainErrors.NewWebhookError("mollie", "event payload missing id")
	}
	return &EventReference{
		ProviderPaymentID: body.ID,
		NativeStatus:      body.Status,
		Status:            mollieStatuses.lookup(body.Status),
	}, nil
}

// GoCardless batches events; the first event's action doubles as the native
// status and links.payment names the payment.
func gocardlessReference(payload json.RawMessage) (*EventReference, error) {
	var body struct {
		Events []struct {
			Action string `json:"action"`
			Links  struct {
				Payment string `json:"payment"`
			} `json:"links"`
		} `json:"events"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || len(body.Events) == 0 || body.Events[0].Links.Payment == "" {
		return nil, domainErrors.NewWebhookError("gocardless", "event payload missing payment link")
	}
	first := body.Events[0]
	return &EventReference{
		ProviderPaymentID: first.Links.Payment,
		NativeStatus:      first.Action,
		Status:            gocardlessStatuses.lookup(first.Action),
	}, nil
}

// PayPlug delivers the payment resource; the status is derived from its
// boolean flags like in GetStatus.
func payplugReference(payload json.RawMessage) (*EventReference, error) {
	var pp payplugPayment
	if err := json.Unmarshal(payload, &pp); err != nil || pp.ID == "" {
		return nil, domainErrors.NewWebhookError("payplug", "event payload missing id")
	}
	native := payplugNativeStatus(pp)
	return &EventReference{
		ProviderPaymentID: pp.ID,
		NativeStatus:      native,
		Status:            payplugStatuses.lookup(native),
	}, nil
}
