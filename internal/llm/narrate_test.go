package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/comps-valuation/internal/model"
)

func narrativeInput() NarrativeInput {
	return NarrativeInput{
		Description: "Mid-market manufacturing workflow software.",
		Profile: model.CompanyProfile{
			Industry: "B2B SaaS", Region: "North America", Revenue: "$12M ARR",
			BusinessModel: "Subscription SaaS", GrowthStage: "Growth Stage (40% YoY)",
			CompetitiveAdvantages: []string{"Vertical focus"}, RiskFactors: []string{"market competition"},
		},
		Comparables: []model.EnrichedComparable{
			{Ticker: "CRM", Name: "Salesforce", MarketCap: 2.5e11, Revenue: 3.1e10, EVRevenue: model.Float(8.1), OneYearChange: 24.3, MatchScore: 97},
			{Ticker: "ASAN", Name: "Asana", Degraded: true, MatchScore: 88},
		},
		Valuation: model.ValuationResult{
			RevenueMultiple: model.ValuationEstimate{Factor: 8.1, Valuation: 97.2e6, Confidence: 0.85, Range: model.Range{Min: 85.2e6, Max: 156e6}},
			GrowthAdjusted:  model.ValuationEstimate{Factor: 0.3, Valuation: 126.36e6, Confidence: 0.765},
			RiskAdjusted:    model.ValuationEstimate{Factor: 0.21, Valuation: 99.82e6, Confidence: 0.7225},
		},
	}
}

func TestNarrativePrompt(t *testing.T) {
	p := NarrativePrompt(narrativeInput())

	assert.Contains(t, p, "Industry: B2B SaaS")
	assert.Contains(t, p, "COMPARABLE COMPANIES (2)")
	assert.Contains(t, p, "Salesforce (CRM): market cap $250.0B, revenue $31.0B, EV/Revenue 8.1x, P/E N/A, 1Y +24.3%, match 97%")
	assert.Contains(t, p, "Asana (ASAN): market cap $0.0B, revenue $0.0B, EV/Revenue N/A")
	assert.Contains(t, p, "1. Revenue multiple: $97.2M (multiple 8.1x, confidence 85%, range $85M - $156M)")
	assert.Contains(t, p, "premium +30%")
	assert.Contains(t, p, "discount -21%")
	assert.NotContains(t, p, "MARKET INTELLIGENCE")
	assert.True(t, strings.HasSuffix(p, "Mid-market manufacturing workflow software."))
}

func TestNarrativePrompt_WithInsights(t *testing.T) {
	in := narrativeInput()
	in.Insights = &model.Insights{Summary: "Two relevant documents.", MarketData: []string{"Market grows 12%"}}
	p := NarrativePrompt(in)
	assert.Contains(t, p, "MARKET INTELLIGENCE\nTwo relevant documents.")
	assert.Contains(t, p, "Market data:\n- Market grows 12%")
	assert.NotContains(t, p, "Competitive intelligence:")
}

func TestAverages(t *testing.T) {
	avg := Averages(narrativeInput().Comparables)
	assert.InDelta(t, 8.1, avg.EVRevenue, 1e-9)
	assert.InDelta(t, 1.25e11, avg.MarketCap, 1)
	assert.InDelta(t, 12.15, avg.OneYearChange, 1e-9)

	assert.Equal(t, ComparableAverages{}, Averages(nil))
}

func TestNarrate_RendersMarkdown(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, mock.MatchedBy(func(p Prompt) bool {
		return p.System == narrateSystem && !p.JSON
	})).Return(&Completion{Text: "```markdown\n**Executive Summary**\n\nFairly valued.\n```"}, nil)

	out, err := NewNarrator(c).Narrate(context.Background(), narrativeInput())
	require.NoError(t, err)
	assert.Equal(t, "<p><strong>Executive Summary</strong></p>\n<p>Fairly valued.</p>", out)
}

func TestNarrate_Errors(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Once()
	c.On("Complete", mock.Anything, mock.Anything).Return(&Completion{Text: "  "}, nil).Once()

	n := NewNarrator(c)
	_, err := n.Narrate(context.Background(), narrativeInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm: narrate")

	_, err = n.Narrate(context.Background(), narrativeInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty narrative")
}
