// Package money represents amounts as integer cents. Request amounts are parsed
// through shopspring/decimal so no binary floating point ever touches a balance.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is an amount in minor units.
type Cents int64

var (
	// ErrNotANumber is returned for values that do not parse to a finite number.
	ErrNotANumber = errors.New("amount is not a valid number")

	hundred = decimal.NewFromInt(100)
)

// Parse converts a decoded JSON value (json.Number, string, float64 or an
// integer kind) into cents, rounding half away from zero to two decimals.
// Objects, arrays, booleans and nil are rejected.
func Parse(v any) (Cents, error) {
	d, err := toDecimal(v)
	if err != nil {
		return 0, err
	}
	scaled := d.Mul(hundred).Round(0)
	if !scaled.IsInteger() || scaled.Abs().GreaterThan(decimal.NewFromInt(1<<53)) {
		return 0, ErrNotANumber
	}
	return Cents(scaled.IntPart()), nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case json.Number:
		return parseString(x.String())
	case string:
		return parseString(x)
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case Cents:
		return x.Decimal(), nil
	default:
		return decimal.Zero, ErrNotANumber
	}
}

func parseString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrNotANumber
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrNotANumber
	}
	return d, nil
}

// FromUnits converts a whole-unit amount to cents.
func FromUnits(units int64) Cents {
	return Cents(units * 100)
}

// Decimal returns the amount in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Neg returns the additive inverse.
func (c Cents) Neg() Cents { return -c }

// String renders the amount with two fraction digits, e.g. "1234.50".
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// MarshalJSON renders the amount as a JSON number in major units.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number or numeric string in major units.
func (c *Cents) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	parsed, err := Parse(raw)
	if err != nil {
		return fmt.Errorf("money: %w", err)
	}
	*c = parsed
	return nil
}
