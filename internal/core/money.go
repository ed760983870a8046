// Package core provides the budget domain model and the monthly derived-budget
// calculator.
//
// This file contains helpers for parsing and displaying pound amounts.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a user-entered amount such as "1,400.50" or "£12".
// Currency symbols and thousands separators are ignored. Negative values
// are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = stripCurrency(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// FormatPounds renders an amount with two decimals, e.g. "£1400.00".
// Display only; stored values keep full precision.
func FormatPounds(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-£" + d.Neg().StringFixed(2)
	}
	return "£" + d.StringFixed(2)
}

// stripCurrency removes currency symbols and thousands separators.
func stripCurrency(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '£', '$', '€', ',':
			return -1
		}
		return r
	}, s)
}
