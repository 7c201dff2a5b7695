package currency

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/paper-trail/internal/model"
)

// Input carries everything the fusion engine needs: the receipt-like fields
// the detectors analyze, plus an optional pre-existing guess supplied by an
// upstream extractor (e.g. the vision capability).
type Input struct {
	Prior    *model.CurrencyGuess
	Merchant string
	Notes    string
	Total    string
	Prices   []string
}

// strongEvidenceWords mark a prior guess as citing explicit on-document
// evidence (a visible symbol or code) rather than an indirect inference.
var strongEvidenceWords = []string{"symbol", "explicit"}

// Detect combines the detector outputs (and any externally supplied guess)
// into one final currency decision. Deterministic: identical inputs always
// produce an identical guess.
//
// Precedence, in order:
//  1. A prior guess citing explicit evidence is trusted outright. An
//     upstream extractor that saw a symbol on the document should not be
//     second-guessed by indirect heuristics.
//  2. Highest-confidence detector result wins when it clears 0.7.
//  3. Independent agreement between the price-format and merchant detectors
//     is stronger than either alone and earns a confidence boost.
//  4. Either detector alone above 0.6, price format preferred.
//  5. Whatever the best (possibly default) guess was.
func Detect(in Input) model.CurrencyGuess {
	if in.Prior != nil && in.Prior.Code != "" && hasStrongEvidence(in.Prior.Evidence) {
		guess := model.CurrencyGuess{
			Code:       Normalize(in.Prior.Code),
			Confidence: 0.85,
			Evidence:   fmt.Sprintf("extractor cited explicit evidence: %s", in.Prior.Evidence),
		}
		slog.Debug("Currency fusion trusted prior guess", "guess", guess)
		return guess
	}

	fromFormat := InferFromPrices(in.Prices, in.Total)
	fromMerchant := InferFromMerchant(in.Merchant, in.Notes)

	best := model.CurrencyGuess{
		Code:       DefaultCode,
		Confidence: 0,
		Evidence:   "default",
	}
	candidates := []model.CurrencyGuess{fromFormat, fromMerchant}
	if in.Prior != nil && in.Prior.Code != "" {
		// A weakly-qualified prior still competes as one more signal.
		candidates = append(candidates, model.CurrencyGuess{
			Code:       Normalize(in.Prior.Code),
			Confidence: in.Prior.Confidence,
			Evidence:   in.Prior.Evidence,
		})
	}
	for _, g := range candidates {
		if g.Confidence > best.Confidence {
			best = g
		}
	}

	if best.Code != DefaultCode && best.Confidence > 0.7 {
		return best
	}

	if fromFormat.Code == fromMerchant.Code && fromFormat.Code != DefaultCode {
		confidence := fromFormat.Confidence
		if fromMerchant.Confidence > confidence {
			confidence = fromMerchant.Confidence
		}
		confidence += 0.1
		if confidence > 1.0 {
			confidence = 1.0
		}
		return model.CurrencyGuess{
			Code:       fromFormat.Code,
			Confidence: confidence,
			Evidence:   fmt.Sprintf("price format and merchant agree (%s; %s)", fromFormat.Evidence, fromMerchant.Evidence),
		}
	}

	if fromFormat.Code != DefaultCode && fromFormat.Confidence > 0.6 {
		return fromFormat
	}
	if fromMerchant.Code != DefaultCode && fromMerchant.Confidence > 0.6 {
		return fromMerchant
	}

	return best
}

func hasStrongEvidence(evidence string) bool {
	lowered := strings.ToLower(evidence)
	for _, w := range strongEvidenceWords {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}
