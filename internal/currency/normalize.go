// Package currency implements multi-signal currency inference: three
// independent detectors (symbol/code normalization, price-format inference,
// merchant/location inference) and a fusion engine that combines their
// guesses into one final decision.
package currency

import (
	"strings"
	"unicode"
)

// DefaultCode is the baseline currency used whenever no signal identifies one.
const DefaultCode = "USD"

// exactMatches maps uppercased symbols, currency words, and codes to ISO codes.
var exactMatches = map[string]string{
	"$": "USD", "US$": "USD", "USD": "USD", "DOLLAR": "USD", "DOLLARS": "USD",
	"€": "EUR", "EUR": "EUR", "EURO": "EUR", "EUROS": "EUR",
	"£": "GBP", "GBP": "GBP", "POUND": "GBP", "POUNDS": "GBP", "QUID": "GBP", "STERLING": "GBP",
	"¥": "JPY", "JPY": "JPY", "YEN": "JPY",
	"₹": "INR", "INR": "INR", "RUPEE": "INR", "RUPEES": "INR", "RS": "INR",
	"₩": "KRW", "KRW": "KRW", "WON": "KRW",
	"₺": "TRY", "TRY": "TRY", "LIRA": "TRY",
	"₽": "RUB", "RUB": "RUB", "RUBLE": "RUB", "RUBLES": "RUB",
	"฿": "THB", "THB": "THB", "BAHT": "THB",
	"R$": "BRL", "BRL": "BRL", "REAL": "BRL", "REAIS": "BRL",
	"C$": "CAD", "CAD": "CAD",
	"A$": "AUD", "AUD": "AUD",
	"NZ$": "NZD", "NZD": "NZD",
	"HK$": "HKD", "HKD": "HKD",
	"S$": "SGD", "SGD": "SGD",
	"CHF": "CHF", "FRANC": "CHF", "FRANCS": "CHF",
	"KR": "SEK", "SEK": "SEK", "KRONA": "SEK", "KRONOR": "SEK",
	"NOK": "NOK", "KRONE": "NOK", "KRONER": "NOK",
	"DKK": "DKK",
	"ZŁ": "PLN", "ZL": "PLN", "PLN": "PLN", "ZLOTY": "PLN",
	"KČ": "CZK", "KC": "CZK", "CZK": "CZK", "KORUNA": "CZK",
	"FT": "HUF", "HUF": "HUF", "FORINT": "HUF",
	"MXN": "MXN", "PESO": "MXN", "PESOS": "MXN",
	"CNY": "CNY", "RMB": "CNY", "YUAN": "CNY",
	"ZAR": "ZAR", "RAND": "ZAR",
}

// embeddedSymbols are substring checks applied when nothing matches exactly.
// Ordered so multi-rune symbols win over a bare dollar sign, and kept as a
// slice so lookups stay deterministic.
var embeddedSymbols = []struct {
	symbol string
	code   string
}{
	{"US$", "USD"},
	{"R$", "BRL"},
	{"C$", "CAD"},
	{"A$", "AUD"},
	{"NZ$", "NZD"},
	{"HK$", "HKD"},
	{"S$", "SGD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"₹", "INR"},
	{"₩", "KRW"},
	{"₺", "TRY"},
	{"₽", "RUB"},
	{"฿", "THB"},
	{"$", "USD"},
}

// knownCodes is the allowlist used to validate bare 3-letter codes.
var knownCodes = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "CNY": true,
	"INR": true, "KRW": true, "TRY": true, "RUB": true, "THB": true,
	"BRL": true, "CAD": true, "AUD": true, "NZD": true, "HKD": true,
	"SGD": true, "CHF": true, "SEK": true, "NOK": true, "DKK": true,
	"PLN": true, "CZK": true, "HUF": true, "MXN": true, "ZAR": true,
	"ILS": true, "AED": true, "SAR": true, "IDR": true, "MYR": true,
	"PHP": true, "VND": true, "ARS": true, "CLP": true, "COP": true,
}

// currencyRunes are the non-letter runes that carry currency meaning.
const currencyRunes = "$€£¥₹₩₺₽฿"

// Normalize maps a free-form currency token (a symbol, word, or code) to a
// 3-letter ISO 4217 code. It is total: any input, including empty or garbage
// strings, yields a valid code, defaulting to DefaultCode.
func Normalize(raw string) string {
	token := strings.ToUpper(strings.TrimSpace(raw))
	if token == "" {
		return DefaultCode
	}

	cleaned := stripNoise(token)
	if code, ok := exactMatches[cleaned]; ok {
		return code
	}

	// Symbols embedded in a longer token, e.g. "€14.99" or "Total: £3".
	for _, s := range embeddedSymbols {
		if strings.Contains(token, strings.ToUpper(s.symbol)) {
			return s.code
		}
	}

	if len(cleaned) == 3 && knownCodes[cleaned] {
		return cleaned
	}

	return DefaultCode
}

// stripNoise drops digits, whitespace, and punctuation that carry no currency
// meaning, keeping letters and currency sign runes.
func stripNoise(token string) string {
	var b strings.Builder
	for _, r := range token {
		if unicode.IsLetter(r) || strings.ContainsRune(currencyRunes, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
