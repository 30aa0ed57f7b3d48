// Package money holds the currency helpers shared by every ledger. Amounts are
// decimal in memory, integer cents at rest and two-digit strings on the wire.
package money

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fraction digits carried by every currency amount.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// Round rounds d half away from zero to two decimals.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// ToCents converts d to integer cents after rounding.
func ToCents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// FromCents converts integer cents back to a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -Scale)
}

// Format renders d with exactly two fraction digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// HasValidScale reports whether d carries at most two fraction digits.
func HasValidScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(Scale))
}

// Equal compares two amounts at currency precision.
func Equal(a, b decimal.Decimal) bool {
	return Round(a).Equal(Round(b))
}

// Amount is a decimal that marshals as a two-digit JSON string and accepts
// either a string or a number on input.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps d.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// AmountFromCents wraps a cents value.
func AmountFromCents(cents int64) Amount {
	return Amount{Decimal: FromCents(cents)}
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Format(a.Decimal) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		a.Decimal = decimal.Zero
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(trimmed); err != nil {
		return fmt.Errorf("invalid amount %s", string(trimmed))
	}
	a.Decimal = d
	return nil
}

// Ptr returns a pointer to a copy of a, handy for optional DTO fields.
func (a Amount) Ptr() *Amount {
	return &a
}
