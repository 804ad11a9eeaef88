// Package core provides the value types of the fund tracker: money,
// dates, transactions and the category budget catalog.
package core

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount cannot be negative")
)

var maxCents = decimal.NewFromInt(math.MaxInt64)

// ParseAmount converts a decimal string to Money, rounding half-up to
// cents. Both "1234.5" and "1234,5" are accepted. Commas are thousands
// separators when a dot is present ("1,234.50"), when there are several
// of them, or when a single comma is followed by exactly three digits
// ("50,000"). Zero is valid, negative values are not.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	switch {
	case strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") == 1 && !groupedThousands(s):
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	cents := d.Shift(2).Round(0)
	if cents.GreaterThan(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

func groupedThousands(s string) bool {
	frac := s[strings.IndexByte(s, ',')+1:]
	if len(frac) != 3 {
		return false
	}
	for _, r := range frac {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MustParseAmount is ParseAmount for constants and tests.
func MustParseAmount(s string) Money {
	m, err := ParseAmount(s)
	if err != nil {
		panic(fmt.Sprintf("core: bad amount %q: %v", s, err))
	}
	return m
}

// Units builds Money from whole currency units.
func Units(n int64) Money { return Money{Cents: n * 100} }

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float is for chart rendering only; sums stay in cents.
func (m Money) Float() float64 {
	return m.Decimal().InexactFloat64()
}

// Plain renders the amount with two decimals and no grouping, the
// persisted form ("3000000.00").
func (m Money) Plain() string {
	return m.Decimal().StringFixed(2)
}

// String renders the amount with thousands separators ("3,000,000.00").
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s.%02d", sign, humanize.Comma(cents/100), cents%100)
}

// FormatMoney prefixes the grouped amount with a currency label.
func FormatMoney(m Money, label string) string {
	if label == "" {
		return m.String()
	}
	return label + " " + m.String()
}
