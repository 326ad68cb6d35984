package estimate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRevenue(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{name: "dollar ARR", text: "$12M ARR", want: 12_000_000},
		{name: "annually without symbol", text: "50M annually", want: 50_000_000},
		{name: "decimal revenue", text: "roughly $2.5B revenue last year", want: 2_500_000_000},
		{name: "thousands keyword", text: "$750K ARR", want: 750_000},
		{name: "unit word", text: "approximately 3.2 billion", want: 3_200_000_000},
		{name: "dollar unit word", text: "$45 million in sales", want: 45_000_000},
		{name: "lower case unit", text: "$8m arr", want: 8_000_000},
		{name: "keyword pattern wins over earlier bare unit", text: "5B TAM, $20M ARR", want: 20_000_000},
		{name: "grade range is not a unit", text: "Serves 5 k-12 districts", want: 5_000_000},
		{name: "grade range before real amount", text: "K-12 platform with $3M ARR", want: 3_000_000},
		{name: "bare number read as millions", text: "Revenue around 25 per year", want: 25_000_000},
		{name: "bare number out of range", text: "Founded 2015, undisclosed", want: DefaultRevenue},
		{name: "no digits", text: "Revenue not disclosed", want: DefaultRevenue},
		{name: "empty", text: "", want: DefaultRevenue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NormalizeRevenue(tt.text), 1e-3)
		})
	}
}

func TestNormalizeRevenue_AlwaysPositive(t *testing.T) {
	inputs := []string{
		"", "   ", "$", "0M ARR", "$0.0 million", "0", "-5M", "999999999999 B",
		"N/A", "%%%", "12 months", "1e400 B",
	}
	for _, in := range inputs {
		got := NormalizeRevenue(in)
		assert.Greater(t, got, 0.0, "input %q", in)
		assert.False(t, math.IsInf(got, 0), "input %q", in)
		assert.False(t, math.IsNaN(got), "input %q", in)
	}
}
