package decimal

import (
	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

// Optional wraps a value as a present NullDecimal
func Optional(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}

// Format renders an amount or percentage with exactly two decimals and a
// dot separator, as the webservice expects ("1234.50", "0.00")
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatOptional formats a NullDecimal, reporting whether it was set
func FormatOptional(d decimal.NullDecimal) (string, bool) {
	if !d.Valid {
		return "", false
	}
	return Format(d.Decimal), true
}

// IsPositive returns true if decimal is greater than zero
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(Zero)
}
