package valueobject

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// CentPlaces is the number of decimal places kept for persisted money values.
const CentPlaces int32 = 2

// Tolerance is the largest difference at which two amounts are considered equal
// when a caller-supplied total is compared with a computed one.
var Tolerance = decimal.New(1, -CentPlaces)

// Amount is an immutable monetary value backed by a fixed-point decimal.
// Every operation returns a new Amount.
type Amount struct {
	value decimal.Decimal
}

// NewAmount wraps a decimal value.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{value: d}
}

// NewAmountFromFloat converts a float at the API boundary. The float is parsed
// through its shortest decimal representation, so 0.1 becomes exactly 0.1.
func NewAmountFromFloat(f float64) Amount {
	return Amount{value: decimal.NewFromFloat(f)}
}

// NewAmountFromString parses a decimal string such as "1250.50".
func NewAmountFromString(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{value: d}, nil
}

// ZeroAmount returns an amount of zero.
func ZeroAmount() Amount {
	return Amount{value: decimal.Zero}
}

// LineTotal returns quantity * unitPrice rounded half away from zero to cents.
func LineTotal(quantity, unitPrice decimal.Decimal) Amount {
	return Amount{value: quantity.Mul(unitPrice).Round(CentPlaces)}
}

// Sum adds the given amounts without intermediate rounding.
func Sum(amounts ...Amount) Amount {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.value)
	}
	return Amount{value: total}
}

func (a Amount) Decimal() decimal.Decimal { return a.value }

// Float64 returns the nearest float. Use only when leaving the domain.
func (a Amount) Float64() float64 {
	f, _ := a.value.Float64()
	return f
}

func (a Amount) Add(other Amount) Amount { return Amount{value: a.value.Add(other.value)} }

func (a Amount) Sub(other Amount) Amount { return Amount{value: a.value.Sub(other.value)} }

// RoundCents rounds to two decimal places.
func (a Amount) RoundCents() Amount { return Amount{value: a.value.Round(CentPlaces)} }

func (a Amount) IsZero() bool     { return a.value.IsZero() }
func (a Amount) IsNegative() bool { return a.value.IsNegative() }
func (a Amount) IsPositive() bool { return a.value.IsPositive() }

func (a Amount) Equal(other Amount) bool { return a.value.Equal(other.value) }

func (a Amount) GreaterThan(other Amount) bool { return a.value.GreaterThan(other.value) }

func (a Amount) LessThan(other Amount) bool { return a.value.LessThan(other.value) }

// WithinTolerance reports whether |a - other| <= Tolerance.
func (a Amount) WithinTolerance(other Amount) bool {
	return a.value.Sub(other.value).Abs().LessThanOrEqual(Tolerance)
}

// String formats the amount with two decimal places.
func (a Amount) String() string {
	return a.value.StringFixed(CentPlaces)
}

// MarshalJSON encodes the amount as a JSON number with two decimal places.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.value.StringFixed(CentPlaces)), nil
}

// UnmarshalJSON accepts both a JSON number and a quoted decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		a.value = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", data, err)
	}
	a.value = d
	return nil
}
