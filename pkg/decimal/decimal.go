// Package decimal wraps shopspring/decimal with the exact-arithmetic
// contract the matching engine requires: fixed precision, round-half-down
// truncation when an operation would exceed it, and a total order. No value
// on a balance, price, or quantity path is ever represented as a binary
// float.
package decimal

import (
	"database/sql/driver"
	"fmt"
	"math/big"

	shopspring "github.com/shopspring/decimal"
)

// Precision is the maximum number of significant decimal digits a value may
// carry. Operations that would produce more are truncated with round-half-down.
const Precision = 28

// Decimal is an exact, bounded-precision decimal value.
type Decimal struct {
	d shopspring.Decimal
}

// Zero is the additive identity.
var Zero = Decimal{d: shopspring.Zero}

// Parse parses canonical decimal text into a Decimal.
func Parse(s string) (Decimal, error) {
	d, err := shopspring.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("decimal: parse %q: %w", s, err)
	}
	return clamp(d), nil
}

// MustParse is Parse but panics on malformed input; used for literals in
// tests and seed data, never on values originating from a caller.
func MustParse(s string) Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromInt builds a Decimal from an integer quantity.
func FromInt(i int64) Decimal {
	return Decimal{d: shopspring.NewFromInt(i)}
}

func (a Decimal) String() string {
	return a.d.String()
}

// MarshalText implements encoding.TextMarshaler so Decimal serializes as
// canonical decimal text in JSON and YAML payloads.
func (a Decimal) MarshalText() ([]byte, error) {
	return []byte(a.d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Decimal) UnmarshalText(text []byte) error {
	d, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = d
	return nil
}

func (a Decimal) Add(b Decimal) Decimal {
	return clamp(a.d.Add(b.d))
}

func (a Decimal) Sub(b Decimal) Decimal {
	return clamp(a.d.Sub(b.d))
}

func (a Decimal) Mul(b Decimal) Decimal {
	return clamp(a.d.Mul(b.d))
}

func (a Decimal) Min(b Decimal) Decimal {
	if a.d.LessThanOrEqual(b.d) {
		return a
	}
	return b
}

func (a Decimal) Max(b Decimal) Decimal {
	if a.d.GreaterThanOrEqual(b.d) {
		return a
	}
	return b
}

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Decimal) Cmp(b Decimal) int {
	return a.d.Cmp(b.d)
}

func (a Decimal) LessThan(b Decimal) bool           { return a.d.LessThan(b.d) }
func (a Decimal) LessThanOrEqual(b Decimal) bool     { return a.d.LessThanOrEqual(b.d) }
func (a Decimal) GreaterThan(b Decimal) bool         { return a.d.GreaterThan(b.d) }
func (a Decimal) GreaterThanOrEqual(b Decimal) bool  { return a.d.GreaterThanOrEqual(b.d) }
func (a Decimal) Equal(b Decimal) bool               { return a.d.Equal(b.d) }

func (a Decimal) IsZero() bool     { return a.d.IsZero() }
func (a Decimal) IsPositive() bool { return a.d.IsPositive() }
func (a Decimal) IsNegative() bool { return a.d.IsNegative() }

// Value implements driver.Valuer so a Decimal can be written to a numeric
// database column directly, without an intermediate float64.
func (a Decimal) Value() (driver.Value, error) {
	return a.d.String(), nil
}

// Scan implements sql.Scanner for reading a Decimal back out of a numeric
// or text database column.
func (a *Decimal) Scan(value any) error {
	if value == nil {
		*a = Zero
		return nil
	}
	switch v := value.(type) {
	case string:
		d, err := Parse(v)
		if err != nil {
			return err
		}
		*a = d
		return nil
	case []byte:
		d, err := Parse(string(v))
		if err != nil {
			return err
		}
		*a = d
		return nil
	case float64:
		*a = clamp(shopspring.NewFromFloat(v))
		return nil
	case int64:
		*a = FromInt(v)
		return nil
	default:
		return fmt.Errorf("decimal: unsupported scan type %T", value)
	}
}

// clamp truncates d to Precision significant digits using round-half-down:
// ties (the dropped remainder is exactly half the smallest retained unit)
// round toward negative infinity, everything else rounds to nearest.
func clamp(d shopspring.Decimal) Decimal {
	coeff := d.Coefficient()
	digits := len(new(big.Int).Abs(coeff).Text(10))
	if coeff.Sign() == 0 {
		digits = 0
	}
	if digits <= Precision {
		return Decimal{d: d}
	}

	drop := digits - Precision
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(drop)), nil)

	neg := coeff.Sign() < 0
	abs := new(big.Int).Abs(coeff)
	quo, rem := new(big.Int).QuoRem(abs, divisor, new(big.Int))

	twiceRem := new(big.Int).Lsh(rem, 1)
	switch twiceRem.Cmp(divisor) {
	case 1:
		quo.Add(quo, big.NewInt(1))
	case 0:
		if neg {
			quo.Add(quo, big.NewInt(1))
		}
	}
	if neg {
		quo.Neg(quo)
	}

	newExp := d.Exponent() + int32(drop)
	return Decimal{d: shopspring.NewFromBigInt(quo, newExp)}
}
