package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "dollar sign", input: "$", want: "USD"},
		{name: "euro sign", input: "€", want: "EUR"},
		{name: "pound sign", input: "£", want: "GBP"},
		{name: "lowercase code", input: "gbp", want: "GBP"},
		{name: "uppercase code", input: "JPY", want: "JPY"},
		{name: "currency word", input: "euros", want: "EUR"},
		{name: "word with whitespace", input: "  pounds  ", want: "GBP"},
		{name: "embedded symbol in amount", input: "€14.99", want: "EUR"},
		{name: "embedded pound in total", input: "Total: £3.50", want: "GBP"},
		{name: "brazilian real prefix", input: "R$ 42,00", want: "BRL"},
		{name: "canadian dollar prefix", input: "C$9.99", want: "CAD"},
		{name: "valid code not in symbol table", input: "PHP", want: "PHP"},
		{name: "unknown three letter token", input: "XQZ", want: "USD"},
		{name: "empty input", input: "", want: "USD"},
		{name: "garbage input", input: "!!??##", want: "USD"},
		{name: "digits only", input: "12345", want: "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

// Normalize must be total: any string maps to a valid 3-letter code.
func TestNormalize_AlwaysReturnsValidCode(t *testing.T) {
	inputs := []string{"", " ", "\x00\xff", "€£¥", "aaaaaaaaaaaaaaaaaaaa", "����", "99,99"}
	for _, input := range inputs {
		code := Normalize(input)
		assert.Len(t, code, 3, "input %q produced %q", input, code)
		assert.True(t, knownCodes[code], "input %q produced unknown code %q", input, code)
	}
}
