package model

import "fmt"

// CurrencyGuess is the result of a single currency detection signal:
// an ISO 4217 code, how confident the detector is, and the evidence
// it based the guess on. Guesses are immutable value types.
type CurrencyGuess struct {
	Code       string
	Evidence   string
	Confidence float64
}

// String returns a compact human-readable form for logs.
func (g CurrencyGuess) String() string {
	return fmt.Sprintf("%s (%.2f: %s)", g.Code, g.Confidence, g.Evidence)
}
