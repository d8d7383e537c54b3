package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is an exact-precision native amount. Amounts travel as decimal
// strings on the wire and in snapshots; the zero value is zero.
type Amount struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Amount{}

// ParseAmount parses a decimal string such as "600000" or "-12.5".
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return Amount{}, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{d: d}, nil
}

// MustAmount is like ParseAmount but panics on error. Intended for constants
// and tests.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// NewAmount returns an amount holding v.
func NewAmount(v int64) Amount {
	return Amount{d: decimal.NewFromInt(v)}
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{d: a.d.Add(b.d)}
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return Amount{d: a.d.Sub(b.d)}
}

// Neg returns -a.
func (a Amount) Neg() Amount {
	return Amount{d: a.d.Neg()}
}

// Cmp returns -1, 0 or +1 depending on whether a is less than, equal to or
// greater than b.
func (a Amount) Cmp(b Amount) int {
	return a.d.Cmp(b.d)
}

// Equal reports whether a == b numerically.
func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

// GreaterThan reports whether a > b.
func (a Amount) GreaterThan(b Amount) bool {
	return a.d.GreaterThan(b.d)
}

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool {
	return a.d.LessThan(b.d)
}

// IsZero reports whether a == 0.
func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

// IsPositive reports whether a > 0.
func (a Amount) IsPositive() bool {
	return a.d.IsPositive()
}

// IsNegative reports whether a < 0.
func (a Amount) IsNegative() bool {
	return a.d.IsNegative()
}

// String returns the canonical decimal representation, e.g. "100" or "-5".
func (a Amount) String() string {
	return a.d.String()
}

// MarshalJSON encodes the amount as a quoted decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.d.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted decimal string or a bare JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	a.d = d
	return nil
}
