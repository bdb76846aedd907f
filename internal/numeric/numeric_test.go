package numeric

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocaleNumber(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"1.234,56", 1234.56},
		{"1,234.56", 1234.56},
		{"1.234.567,89", 1234567.89},
		{"1,234,567.89", 1234567.89},
		{"1234.56", 1234.56},
		{"1234,56", 1234.56},
		{"0,5", 0.5},
		{"0.5", 0.5},
		{"1000", 1000},
		{"  42  ", 42},
		{"0", 0},
		{"0.00000043", 0.00000043},
		{"0,00000043", 0.00000043},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLocaleNumber(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestParseLocaleNumberInvalid(t *testing.T) {
	for _, input := range []string{"", "   ", "abc", "12a", "1.2.3", "--5"} {
		t.Run(fmt.Sprintf("%q", input), func(t *testing.T) {
			_, err := ParseLocaleNumber(input)
			assert.ErrorIs(t, err, ErrNotANumber)
		})
	}
}

// Formatting a value in both separator conventions and parsing it back must
// recover the original value.
func TestParseLocaleNumberRoundTrip(t *testing.T) {
	values := []float64{0, 0.01, 1, 999.99, 1234.56, 1234567.89, 0.00000043}

	for _, x := range values {
		ptBR := formatGrouped(x, '.', ',')
		enUS := formatGrouped(x, ',', '.')

		fromPT, err := ParseLocaleNumber(ptBR)
		require.NoError(t, err, "pt-BR form %q", ptBR)
		fromEN, err := ParseLocaleNumber(enUS)
		require.NoError(t, err, "en-US form %q", enUS)

		assert.InDelta(t, x, fromPT, math.Abs(x)*1e-12+1e-12)
		assert.InDelta(t, x, fromEN, math.Abs(x)*1e-12+1e-12)
	}
}

// formatGrouped renders x with the given grouping and decimal separators,
// grouping the integer part in threes.
func formatGrouped(x float64, group, decimal byte) string {
	s := fmt.Sprintf("%.8f", x)
	intPart := s[:len(s)-9]
	fracPart := s[len(s)-8:]

	var grouped []byte
	for i, c := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped = append(grouped, group)
		}
		grouped = append(grouped, c)
	}
	return string(grouped) + string(decimal) + fracPart
}
