package cost

import (
	"sync"

	"github.com/sells-group/comps-valuation/internal/config"
)

// Provider names accepted by Calculator.Tokens.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    map[string]ModelRate `yaml:"gemini" mapstructure:"gemini"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Calculator computes costs for LLM usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost for a Claude API call.
func (c *Calculator) Claude(model string, input, output int64) float64 {
	return tokenCost(c.rates.Anthropic, model, input, output)
}

// Gemini computes the cost for a Gemini API call.
func (c *Calculator) Gemini(model string, input, output int64) float64 {
	return tokenCost(c.rates.Gemini, model, input, output)
}

// Tokens dispatches on provider name. Unknown providers and models cost 0.
func (c *Calculator) Tokens(provider, model string, input, output int64) float64 {
	switch provider {
	case ProviderAnthropic:
		return c.Claude(model, input, output)
	case ProviderGemini:
		return c.Gemini(model, input, output)
	default:
		return 0
	}
}

func tokenCost(table map[string]ModelRate, model string, input, output int64) float64 {
	rate, ok := table[model]
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
			"claude-opus-4-6":            {Input: 15.00, Output: 75.00},
		},
		Gemini: map[string]ModelRate{
			"gemini-2.5-flash": {Input: 0.30, Output: 2.50},
			"gemini-2.5-pro":   {Input: 1.25, Output: 10.00},
		},
	}
}

// FromConfig overlays configured pricing on DefaultRates.
func FromConfig(p config.PricingConfig) Rates {
	rates := DefaultRates()
	for model, mp := range p.Anthropic {
		rates.Anthropic[model] = ModelRate{Input: mp.Input, Output: mp.Output}
	}
	for model, mp := range p.Gemini {
		rates.Gemini[model] = ModelRate{Input: mp.Input, Output: mp.Output}
	}
	return rates
}

// Tally accumulates token usage and cost across LLM calls.
// It is safe for concurrent use.
type Tally struct {
	calc *Calculator

	mu           sync.Mutex
	calls        int
	inputTokens  int64
	outputTokens int64
	usd          float64
}

// NewTally returns an empty Tally priced by calc.
func NewTally(calc *Calculator) *Tally {
	return &Tally{calc: calc}
}

// Add records one call.
func (t *Tally) Add(provider, model string, input, output int64) {
	usd := t.calc.Tokens(provider, model, input, output)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	t.inputTokens += input
	t.outputTokens += output
	t.usd += usd
}

// Summary is a point-in-time copy of a Tally.
type Summary struct {
	Calls        int
	InputTokens  int64
	OutputTokens int64
	USD          float64
}

// Summary returns the accumulated totals.
func (t *Tally) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Summary{Calls: t.calls, InputTokens: t.inputTokens, OutputTokens: t.outputTokens, USD: t.usd}
}
