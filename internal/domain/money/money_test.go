package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMajor(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		expected int64
	}{
		{"whole euros", 100, 10000},
		{"euros with cents", 250.50, 25050},
		{"cents only", 0.99, 99},
		{"single cent", 0.01, 1},
		{"rounding up", 99.999, 10000},
		{"rounding down", 99.994, 9999},
		{"large amount", 9999999.99, 999999999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := FromMajor(tt.amount, "EUR")
			assert.Equal(t, tt.expected, m.Cents)
			assert.Equal(t, "EUR", m.Currency)
		})
	}
}

func TestMoney_String(t *testing.T) {
	tests := []struct {
		cents    int64
		expected string
	}{
		{10000, "100.00"},
		{25050, "250.50"},
		{99, "0.99"},
		{1, "0.01"},
		{10, "0.10"},
		{0, "0.00"},
		{-1050, "-10.50"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, New(tt.cents, "EUR").String())
	}
}

func TestMoney_RoundTrip(t *testing.T) {
	// Any amount with at most 2 decimal digits must survive a full
	// major -> minor -> major -> minor cycle without drift.
	values := []float64{0.01, 0.10, 1.23, 100, 250.50, 999.99, 1234567.89}

	for _, v := range values {
		m := FromMajor(v, "EUR")
		back := FromMajor(m.Major(), "EUR")
		require.Equal(t, m.Cents, back.Cents, "value=%v", v)
	}
}

func TestMoney_StringParse_RoundTrip(t *testing.T) {
	cents := []int64{1, 10, 99, 100, 25050, 999999999}

	for _, c := range cents {
		m := New(c, "EUR")
		parsed, err := Parse(m.String(), "EUR")
		require.NoError(t, err)
		assert.Equal(t, c, parsed.Cents)
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("", "EUR")
	assert.Error(t, err)

	_, err = Parse("abc", "EUR")
	assert.Error(t, err)
}

func TestMoney_Validate(t *testing.T) {
	assert.NoError(t, New(100, "EUR").Validate())
	assert.Error(t, New(0, "EUR").Validate())
	assert.Error(t, New(-5, "EUR").Validate())
	assert.Error(t, New(100, "XXX").Validate())
}

func TestMoney_CurrencyLower(t *testing.T) {
	assert.Equal(t, "eur", New(100, "EUR").CurrencyLower())
}
