package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a signed decimal amount from a form value.
//
// One leading "+" or "-" is accepted. Commas are never accepted, as grouping
// or as a decimal separator, and neither is exponent notation. Empty or
// non-numeric input returns ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("5000")   -> 5000
//	ParseAmount("-300")   -> -300
//	ParseAmount("1,000")  -> ErrInvalidAmount
//	ParseAmount("abc")    -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// A sign only ever leads. decimal accepts exponents; a form amount
	// never has one.
	if strings.ContainsAny(s[1:], "+-") || strings.ContainsAny(s, ",eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.TrimPrefix(s, "+")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatSigned renders an amount as "+₹5000" or "-₹300". The magnitude keeps
// the stored precision.
func FormatSigned(symbol string, d decimal.Decimal) string {
	sign := "+"
	if d.IsNegative() {
		sign = "-"
	}
	return sign + symbol + d.Abs().String()
}

// FormatTotal renders a total with two decimals, e.g. "₹4700.00".
func FormatTotal(symbol string, d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + symbol + d.Abs().StringFixed(2)
	}
	return symbol + d.StringFixed(2)
}
