// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents. Parsing and ratio rounding go through
// shopspring/decimal so that "42.50", "42.5" and "4.25e1" land on the same value.
package core

import (
	"math"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// Exponents outside this range are either out of int64 range or make
// rescaling arbitrarily expensive ("1e999999999").
const (
	minExponent = -64
	maxExponent = 18
)

// ParseAmount converts a decimal string to Money, rounding half-up to cents.
// It rejects empty, non-numeric and out-of-range input but does not check
// the sign; callers validate positivity where the operation requires it.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("12.345") -> 1235
//	ParseAmount("-3")     -> -300
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, invalid("amount", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, invalid("amount", ErrInvalidAmount)
	}
	if d.IsZero() {
		return Money{}, nil
	}
	if exp := d.Exponent(); exp < minExponent || exp > maxExponent {
		return Money{}, invalid("amount", ErrInvalidAmount)
	}
	cents := d.Round(2).Shift(2)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return Money{}, invalid("amount", ErrInvalidAmount)
	}
	return Money{Cents: cents.IntPart()}, nil
}

// ParseAmountLenient parses like ParseAmount but yields zero for anything
// that is not a number.
func ParseAmountLenient(s string) Money {
	m, err := ParseAmount(s)
	if err != nil {
		return Money{}
	}
	return m
}

// FromDecimal rounds d to cents.
func FromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return invalid("amount", ErrInvalidAmount)
	}
	return nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String returns the shortest decimal form, e.g. "42.5" or "7".
func (m Money) String() string {
	return m.Decimal().String()
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) IsZero() bool { return m.Cents == 0 }

// Display formats the amount for presentation, e.g. "$42.50" or "-$3.00".
func (m Money) Display(currency string) string {
	if currency == "" {
		currency = gomoney.USD
	}
	return gomoney.New(m.Cents, currency).Display()
}

// Percent returns round(part/whole*100) without capping. A non-positive
// whole yields 0.
func Percent(part, whole Money) int64 {
	if whole.Cents <= 0 {
		return 0
	}
	ratio := decimal.NewFromInt(part.Cents).Mul(hundred).Div(decimal.NewFromInt(whole.Cents))
	return ratio.Round(0).IntPart()
}

// CappedPercent is Percent limited to 100.
func CappedPercent(part, whole Money) int64 {
	p := Percent(part, whole)
	if p > 100 {
		return 100
	}
	return p
}
