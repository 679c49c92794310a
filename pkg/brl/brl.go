// Package brl formats monetary amounts the way the Topa+ reports show them:
// literal "R$ " prefix, "." thousands separator, "," decimal separator and two
// decimal places.
package brl

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Format renders d as "R$ 1.234,56". Negative values keep the sign after the
// prefix ("R$ -75,00").
func Format(d decimal.Decimal) string {
	d = d.Round(2)
	neg := d.IsNegative()
	digits := d.Abs().StringFixed(2)

	intPart, frac, _ := strings.Cut(digits, ".")

	var b strings.Builder
	b.WriteString("R$ ")
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(group(intPart))
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// FormatFloat is Format for values that are already float64 (averages).
func FormatFloat(v float64) string {
	return Format(decimal.NewFromFloat(v))
}

func group(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
