package format

import (
	"fmt"
	"strings"
)

// Decimal renders an amount in minor units with two decimal places.
// Example: Decimal(2000) => "20.00"
func Decimal(minor int64) string {
	neg := minor < 0
	if neg {
		minor = -minor
	}
	out := fmt.Sprintf("%d.%02d", minor/100, minor%100)
	if neg {
		return "-" + out
	}
	return out
}

// FmtCurrency prefixes a two-decimal amount with the currency symbol.
// Example: FmtCurrency(1050, "R$") => "R$ 10.50"
func FmtCurrency(minor int64, symbol string) string {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return Decimal(minor)
	}
	return symbol + " " + Decimal(minor)
}

// Cents converts a decimal price to minor units, rounding half away from zero.
func Cents(price float64) int64 {
	if price < 0 {
		return -int64(-price*100 + 0.5)
	}
	return int64(price*100 + 0.5)
}
