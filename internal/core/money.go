// Package core provides the planner data model, the calculation engine and
// money parsing helpers.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a form value to a non-negative amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Thousands
// separators are not supported. Returns ErrInvalidAmount for empty input,
// signed values or anything that is not a plain decimal number.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("0")     -> 0, nil
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 || strings.ContainsAny(s, "eE") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	f, _ := d.Float64()
	return f, nil
}

// FormatAmount renders an amount with exactly two decimals, rounding half
// away from zero.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatAbsAmount renders |v| with two decimals.
func FormatAbsAmount(v float64) string {
	return decimal.NewFromFloat(v).Abs().StringFixed(2)
}

// FormatPercent renders a percentage with one decimal.
func FormatPercent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1)
}
