package currency

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Veraticus/paper-trail/internal/model"
)

// Representative members for each price-format family. Format alone cannot
// disambiguate currencies that share a family (comma-decimal covers most of
// Europe), so the detector picks one member and keeps confidence below 1.
const (
	commaDecimalFamily  = "EUR"
	periodDecimalFamily = "USD"
	noDecimalFamily     = "JPY"
)

var (
	commaDecimalRe  = regexp.MustCompile(`^\d{1,3}(\.\d{3})*,\d{1,2}$`)
	periodDecimalRe = regexp.MustCompile(`^\d{1,3}(,\d{3})*\.\d{1,2}$`)
	noDecimalRe     = regexp.MustCompile(`^\d+$`)
	nonPriceRe      = regexp.MustCompile(`[^\d.,]`)
)

// highValueThreshold splits prices into high-value (no-decimal currencies
// quote whole units, so totals run large) and low-value magnitudes.
const (
	highValueThreshold = 1000.0
	lowValueThreshold  = 100.0
)

type priceTally struct {
	commaDecimal  int
	periodDecimal int
	noDecimal     int
	highValue     int
	lowValue      int
	total         int
}

// InferFromPrices guesses a currency family from how line-item prices are
// written: decimal-separator style and magnitude. It is a best-effort
// classifier, not a lookup.
func InferFromPrices(prices []string, total string) model.CurrencyGuess {
	samples := make([]string, 0, len(prices)+1)
	samples = append(samples, prices...)
	if strings.TrimSpace(total) != "" {
		samples = append(samples, total)
	}

	var tally priceTally
	for _, raw := range samples {
		classifyPrice(raw, &tally)
	}

	if tally.total == 0 {
		return model.CurrencyGuess{
			Code:       DefaultCode,
			Confidence: 0.3,
			Evidence:   "no prices to analyze",
		}
	}

	switch {
	case dominant(tally.commaDecimal, tally.total):
		return model.CurrencyGuess{
			Code:       commaDecimalFamily,
			Confidence: 0.8,
			Evidence:   fmt.Sprintf("comma-decimal price format (%d of %d prices)", tally.commaDecimal, tally.total),
		}
	case dominant(tally.periodDecimal, tally.total):
		return model.CurrencyGuess{
			Code:       periodDecimalFamily,
			Confidence: 0.7,
			Evidence:   fmt.Sprintf("period-decimal price format (%d of %d prices)", tally.periodDecimal, tally.total),
		}
	case dominant(tally.noDecimal, tally.total):
		return model.CurrencyGuess{
			Code:       noDecimalFamily,
			Confidence: 0.8,
			Evidence:   fmt.Sprintf("whole-number prices with no decimals (%d of %d)", tally.noDecimal, tally.total),
		}
	case dominant(tally.highValue, tally.total):
		return model.CurrencyGuess{
			Code:       noDecimalFamily,
			Confidence: 0.7,
			Evidence:   fmt.Sprintf("predominantly high-value prices (%d of %d)", tally.highValue, tally.total),
		}
	case dominant(tally.lowValue, tally.total) && tally.commaDecimal+tally.periodDecimal > 0:
		code := periodDecimalFamily
		style := "period"
		if tally.commaDecimal > tally.periodDecimal {
			code = commaDecimalFamily
			style = "comma"
		}
		return model.CurrencyGuess{
			Code:       code,
			Confidence: 0.5,
			Evidence:   fmt.Sprintf("low-value prices with %s decimals", style),
		}
	}

	return model.CurrencyGuess{
		Code:       DefaultCode,
		Confidence: 0.3,
		Evidence:   "price format inconclusive",
	}
}

// classifyPrice buckets one as-written price by separator style and magnitude.
func classifyPrice(raw string, tally *priceTally) {
	cleaned := nonPriceRe.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" {
		return
	}
	tally.total++

	var value float64
	switch {
	case commaDecimalRe.MatchString(cleaned):
		tally.commaDecimal++
		value = parseNumeric(cleaned, ".", ",")
	case periodDecimalRe.MatchString(cleaned):
		tally.periodDecimal++
		value = parseNumeric(cleaned, ",", ".")
	case noDecimalRe.MatchString(cleaned):
		tally.noDecimal++
		value = parseNumeric(cleaned, "", "")
	default:
		// Ambiguous separators; magnitude still counts.
		value = parseNumeric(strings.ReplaceAll(cleaned, ",", ""), "", ".")
	}

	if value >= highValueThreshold {
		tally.highValue++
	} else if value < lowValueThreshold {
		tally.lowValue++
	}
}

// dominant reports whether count is a strict majority of total.
func dominant(count, total int) bool {
	return count*2 > total
}

// parseNumeric converts an as-written price to a float, treating thousandsSep
// as grouping and decimalSep as the decimal point.
func parseNumeric(s, thousandsSep, decimalSep string) float64 {
	if thousandsSep != "" {
		s = strings.ReplaceAll(s, thousandsSep, "")
	}
	if decimalSep != "" && decimalSep != "." {
		s = strings.ReplaceAll(s, decimalSep, ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
