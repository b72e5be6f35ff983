package seo

import "strings"

// Locale is the page language for Open Graph and the html lang attribute.
const Locale = "pt_BR"

var currencyCodes = map[string]string{
	"R$":  "BRL",
	"US$": "USD",
	"$":   "USD",
	"€":   "EUR",
}

// CurrencyCode maps a display symbol to its ISO 4217 code.
// Unknown symbols are returned upper-cased so an ISO code passes through.
func CurrencyCode(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	if code, ok := currencyCodes[symbol]; ok {
		return code
	}
	return strings.ToUpper(symbol)
}
