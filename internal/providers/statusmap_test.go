package providers

import (
	"testing"

	"github.com/chantierpro/payments/internal/domain/payment"
	"github.com/stretchr/testify/assert"
)

func TestStatusTable_Lookup(t *testing.T) {
	table := statusTable{
		"paid":   payment.StatusSucceeded,
		"failed": payment.StatusFailed,
	}

	assert.Equal(t, payment.StatusSucceeded, table.lookup("paid"))
	assert.Equal(t, payment.StatusSucceeded, table.lookup("PAID"))
	assert.Equal(t, payment.StatusSucceeded, table.lookup("  Paid  "))
	assert.Equal(t, payment.StatusFailed, table.lookup("failed"))
}

func TestStatusTable_UnknownDefaultsToPending(t *testing.T) {
	table := statusTable{"paid": payment.StatusSucceeded}

	assert.Equal(t, payment.StatusPending, table.lookup("some_future_status"))
	assert.Equal(t, payment.StatusPending, table.lookup(""))
}

// Every native status used by the adapters' own fixtures must map to a member
// of the unified set, never to the zero value.
func TestStatusTables_Totality(t *testing.T) {
	valid := map[payment.UnifiedStatus]bool{
		payment.StatusPending:           true,
		payment.StatusProcessing:        true,
		payment.StatusSucceeded:         true,
		payment.StatusFailed:            true,
		payment.StatusCancelled:         true,
		payment.StatusRefunded:          true,
		payment.StatusPartiallyRefunded: true,
	}

	tables := map[string]statusTable{
		"stripe":     stripeStatuses,
		"paypal":     paypalStatuses,
		"mollie":     mollieStatuses,
		"gocardless": gocardlessStatuses,
		"payplug":    payplugStatuses,
	}

	for name, table := range tables {
		for native, unified := range table {
			assert.True(t, valid[unified], "%s: native status %q maps to invalid %q", name, native, unified)
		}
	}
}
