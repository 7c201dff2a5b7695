package currency

import (
	"testing"

	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestDetect_TrustsExplicitPrior(t *testing.T) {
	guess := Detect(Input{
		Prior: &model.CurrencyGuess{
			Code:       "gbp",
			Confidence: 0.6,
			Evidence:   "£ symbol visible on receipt",
		},
		Merchant: "Walmart", // would otherwise pull toward USD
	})

	assert.Equal(t, "GBP", guess.Code)
	assert.InDelta(t, 0.85, guess.Confidence, 0.001)
}

func TestDetect_IgnoresWeaklyQualifiedPrior(t *testing.T) {
	guess := Detect(Input{
		Prior: &model.CurrencyGuess{
			Code:       "EUR",
			Confidence: 0.4,
			Evidence:   "guessed from context",
		},
		Merchant: "Tesco Express, London",
	})

	// The location signal (0.8) outranks the weak prior.
	assert.Equal(t, "GBP", guess.Code)
	assert.InDelta(t, 0.8, guess.Confidence, 0.001)
}

func TestDetect_HighConfidenceDetectorWinsOutright(t *testing.T) {
	guess := Detect(Input{
		Prices: []string{"12,99", "5,50", "3,20"},
	})

	assert.Equal(t, "EUR", guess.Code)
	assert.InDelta(t, 0.8, guess.Confidence, 0.001)
}

func TestDetect_AgreementBoostsConfidence(t *testing.T) {
	// Format says EUR at 0.5 (low-value prices biased toward comma decimals);
	// the merchant chain says EUR at 0.7. Agreement adds 0.1 to the max.
	in := Input{
		Merchant: "Lidl",
		Prices:   []string{"2,99", "1.50", "3,20", "300"},
	}
	fromFormat := InferFromPrices(in.Prices, in.Total)
	fromMerchant := InferFromMerchant(in.Merchant, in.Notes)
	assert.Equal(t, "EUR", fromFormat.Code)
	assert.InDelta(t, 0.5, fromFormat.Confidence, 0.001)
	assert.Equal(t, "EUR", fromMerchant.Code)
	assert.InDelta(t, 0.7, fromMerchant.Confidence, 0.001)

	fused := Detect(in)
	assert.Equal(t, "EUR", fused.Code)
	assert.InDelta(t, 0.8, fused.Confidence, 0.001)
	assert.Contains(t, fused.Evidence, "agree")
}

func TestDetect_AgreementConfidenceClampedToOne(t *testing.T) {
	// Both detectors at their ceilings still fuse to at most 1.0.
	guess := Detect(Input{
		Merchant: "Boulangerie, Paris",
		Prices:   []string{"3,50", "2,20", "4,80"},
	})

	assert.Equal(t, "EUR", guess.Code)
	assert.LessOrEqual(t, guess.Confidence, 1.0)
}

func TestDetect_FallsBackToDefault(t *testing.T) {
	guess := Detect(Input{
		Merchant: "Mystery Vendor",
	})

	assert.Equal(t, DefaultCode, guess.Code)
	assert.LessOrEqual(t, guess.Confidence, 0.3)
}

func TestDetect_Deterministic(t *testing.T) {
	in := Input{
		Merchant: "Tesco Express, London",
		Notes:    "weekly groceries",
		Prices:   []string{"1.20", "3,40", "500"},
		Total:    "12,99",
	}
	first := Detect(in)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Detect(in))
	}
}
