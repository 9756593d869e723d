package providers

import (
	"strings"

	"github.com/chantierpro/payments/internal/domain/payment"
)

// statusTable maps one gateway's native status vocabulary to the unified
// status set. Each adapter declares its table once at construction; lookup is
// case-normalized and unmapped statuses fall back to pending so that a new
// gateway status never breaks a caller.
type statusTable map[string]payment.UnifiedStatus

// lookup resolves a native status string, defaulting to StatusPending for
// anything the table does not recognize.
func (t statusTable) lookup(native string) payment.UnifiedStatus {
	if s, ok := t[strings.ToLower(strings.TrimSpace(native))]; ok {
		return s
	}
	return payment.StatusPending
}
