// Package core provides the domain entities, money handling and the error
// taxonomy shared by the rule engine and its adapters.
//
// Monetary amounts are kept as integer cents. Parsing and formatting go
// through shopspring/decimal so that no binary floating point is involved
// at any point between the wire and the database.
package core

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountOverflow = errors.New("amount overflow")
)

// maxCents bounds amounts so that cents*1 never leaves int64.
var maxCents = decimal.New(math.MaxInt64, 0)

// Money is a fixed-point amount with two fractional digits.
type Money struct {
	Cents int64
}

// Cents builds a Money value from an integer number of cents.
func Cents(c int64) Money {
	return Money{Cents: c}
}

// parseCents converts a decimal string to cents. It accepts both dot
// (12.34) and comma (12,34) separators and an optional leading minus, and
// rounds half-up on the third decimal place:
//
//	parseCents("12,34")  -> 1234
//	parseCents("12.345") -> 1235
//	parseCents("-5")     -> -500
//
// Exponents, thousands separators and a leading plus are rejected.
func parseCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	digits := strings.TrimPrefix(s, "-")
	if digits == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range digits {
		if (r < '0' || r > '9') && r != '.' {
			return 0, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return decimalToCents(d)
}

func decimalToCents(d decimal.Decimal) (int64, error) {
	shifted := d.Round(2).Shift(2)
	if shifted.Abs().GreaterThan(maxCents) {
		return 0, ErrAmountOverflow
	}
	return shifted.IntPart(), nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.Cents > 0
}

// Add returns m+o, failing instead of wrapping around on overflow.
func (m Money) Add(o Money) (Money, error) {
	if (o.Cents > 0 && m.Cents > math.MaxInt64-o.Cents) ||
		(o.Cents < 0 && m.Cents < math.MinInt64-o.Cents) {
		return Money{}, ErrAmountOverflow
	}
	return Money{Cents: m.Cents + o.Cents}, nil
}

// Sub returns m-o.
func (m Money) Sub(o Money) (Money, error) {
	if o.Cents == math.MinInt64 {
		return Money{}, ErrAmountOverflow
	}
	return m.Add(Money{Cents: -o.Cents})
}

// Exceeds reports whether m is strictly greater than o.
func (m Money) Exceeds(o Money) bool {
	return m.Cents > o.Cents
}

// Sum adds up amounts exactly.
func Sum(amounts ...Money) (Money, error) {
	var total Money
	for _, a := range amounts {
		var err error
		if total, err = total.Add(a); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}

// Decimal returns the amount as a decimal with exponent -2.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with exactly two fractional digits, e.g. "105.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a quoted fixed-point string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(m.String())), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string,
// which may use a comma separator ("12,34"). Extra fractional digits are
// rounded half-up to cents. Sign checks are left to the rule engine.
func (m *Money) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Money{}
		return nil
	}

	if s, err := strconv.Unquote(string(b)); err == nil {
		c, err := parseCents(s)
		if err != nil {
			return err
		}
		m.Cents = c
		return nil
	}

	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return ErrInvalidAmount
	}
	c, err := decimalToCents(d)
	if err != nil {
		return err
	}
	m.Cents = c
	return nil
}
