package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chantierpro/payments/internal/domain/errors"
)

// supportedCurrencies is the closed set of currencies the application bills in.
var supportedCurrencies = map[string]bool{
	"EUR": true,
	"USD": true,
	"GBP": true,
	"CHF": true,
}

// Money is a monetary amount held in minor units (cents) with a 3-letter
// ISO currency code. All conversion between the application's major-unit
// representation and gateway wire formats goes through this type; adapters
// must never multiply or divide by 100 themselves.
type Money struct {
	Cents    int64
	Currency string
}

// New creates a Money from a minor-unit amount.
func New(cents int64, currency string) Money {
	return Money{Cents: cents, Currency: strings.ToUpper(currency)}
}

// FromMajor creates a Money from a major-unit amount (e.g. euros), rounding
// to the nearest cent. Values with at most 2 decimal digits convert exactly.
func FromMajor(amount float64, currency string) Money {
	return Money{
		Cents:    int64(math.Round(amount * 100)),
		Currency: strings.ToUpper(currency),
	}
}

// Major returns the amount in major units.
func (m Money) Major() float64 {
	return float64(m.Cents) / 100
}

// MinorUnits returns the amount as the integer minor-unit value gateways
// expect on the wire.
func (m Money) MinorUnits() int64 {
	return m.Cents
}

// String formats the amount as a decimal major-unit string without the
// currency, e.g. "250.50". Gateways that take decimal strings use this.
func (m Money) String() string {
	sign := ""
	cents := m.Cents
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// CurrencyLower returns the currency code lower-cased for gateways whose
// wire convention wants it that way.
func (m Money) CurrencyLower() string {
	return strings.ToLower(m.Currency)
}

// Validate checks that the amount is positive and the currency is supported.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return errors.NewValidationError("amount", "must be greater than 0")
	}
	if !supportedCurrencies[m.Currency] {
		return errors.ErrInvalidCurrency
	}
	return nil
}

// Parse converts a decimal major-unit string (as returned by gateways that
// speak decimal strings) into a Money, rounding to the nearest cent.
func Parse(value, currency string) (Money, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Money{}, fmt.Errorf("empty amount string")
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return FromMajor(f, currency), nil
}
