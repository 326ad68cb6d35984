package scorer

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/comps-valuation/internal/company"
	"github.com/sells-group/comps-valuation/internal/model"
)

func universe(t *testing.T) []model.ReferenceCompany {
	t.Helper()
	u, err := company.Default()
	require.NoError(t, err)
	return u.Companies()
}

func byTicker(t *testing.T, ticker string) model.ReferenceCompany {
	t.Helper()
	u, err := company.Default()
	require.NoError(t, err)
	c, ok := u.Lookup(ticker)
	require.True(t, ok, "ticker %s", ticker)
	return c
}

var saasNA = Target{Industry: "B2B SaaS", Region: "North America", BusinessModel: "Subscription software"}

func TestScore_Breakdown(t *testing.T) {
	m := NewMatcher(DefaultScorerConfig(), WithoutJitter())

	tests := []struct {
		name     string
		target   Target
		ticker   string
		industry float64
		region   float64
		model    float64
		total    float64
	}{
		{name: "exact industry capped", target: saasNA, ticker: "CRM", industry: 100, region: 30, model: 20, total: 100},
		{name: "sector match with model bonus", target: saasNA, ticker: "PTC", industry: 40, region: 30, model: 20, total: 90},
		{name: "sector match global region", target: saasNA, ticker: "EBAY", industry: 40, region: 25, total: 65},
		{name: "no industry relation", target: saasNA, ticker: "TDOC", region: 30, total: 30},
		{name: "nothing in common", target: saasNA, ticker: "ADYEN", total: 0},
		{
			name:     "shared domain keyword",
			target:   Target{Industry: "Healthcare Services", Region: "UK"},
			ticker:   "TDOC",
			industry: 70,
			total:    70,
		},
		{
			name:     "overlapping long terms",
			target:   Target{Industry: "Commerce Enablement", Region: "Canada"},
			ticker:   "SHOP",
			industry: 70,
			region:   15,
			total:    85,
		},
		{
			name:   "region alias group",
			target: Target{Industry: "Logistics", Region: "USA"},
			ticker: "CRM",
			region: 15,
			total:  15,
		},
		{
			name:     "exact industry and region",
			target:   Target{Industry: "fintech", Region: "europe"},
			ticker:   "ADYEN",
			industry: 100,
			region:   30,
			total:    100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := m.Score(tt.target, byTicker(t, tt.ticker))
			assert.InDelta(t, tt.industry, b.Industry, 1e-9, "industry")
			assert.InDelta(t, tt.region, b.Region, 1e-9, "region")
			assert.InDelta(t, tt.model, b.BusinessModel, 1e-9, "business model")
			assert.Zero(t, b.Jitter)
			assert.InDelta(t, tt.total, b.Total, 1e-9, "total")
		})
	}
}

func TestMatch_NoJitterExactOrder(t *testing.T) {
	m := NewMatcher(DefaultScorerConfig(), WithoutJitter())

	got := m.Match(saasNA, universe(t), 5)
	require.Len(t, got, 5)

	// All score 100; ties keep universe order.
	tickers := make([]string, len(got))
	for i, c := range got {
		tickers[i] = c.Ticker
		assert.InDelta(t, 100.0, c.MatchScore, 1e-9)
	}
	assert.Equal(t, []string{"CRM", "NOW", "MNDY", "ASAN", "SMAR"}, tickers)
}

func TestMatch_ThresholdDropsWeakCandidates(t *testing.T) {
	m := NewMatcher(DefaultScorerConfig(), WithoutJitter())

	got := m.Match(saasNA, universe(t), 100)
	require.Len(t, got, 25)

	for _, c := range got {
		assert.Greater(t, c.MatchScore, 30.0, c.Ticker)
		assert.NotContains(t, []string{"SQ", "PYPL", "ADYEN", "TDOC"}, c.Ticker)
	}

	// PTC outranks SHOP: software description earns the business-model bonus.
	idx := func(ticker string) int {
		for i, c := range got {
			if c.Ticker == ticker {
				return i
			}
		}
		return -1
	}
	assert.Less(t, idx("PTC"), idx("SHOP"))
	assert.Less(t, idx("SHOP"), idx("EBAY"))
	assert.Equal(t, "EBAY", got[len(got)-1].Ticker)
}

func TestMatch_NonePass(t *testing.T) {
	m := NewMatcher(DefaultScorerConfig(), WithoutJitter())

	got := m.Match(Target{Industry: "Mining", Region: "Antarctica"}, universe(t), 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMatch_NonPositiveLimit(t *testing.T) {
	m := NewMatcher(DefaultScorerConfig(), WithoutJitter())

	assert.Empty(t, m.Match(saasNA, universe(t), 0))
	assert.Empty(t, m.Match(saasNA, universe(t), -3))
}

func TestMatch_EmptyUniverse(t *testing.T) {
	m := NewMatcher(DefaultScorerConfig())
	assert.Empty(t, m.Match(saasNA, nil, 5))
}

func TestMatch_JitterBoundsAndOrder(t *testing.T) {
	m := NewMatcher(DefaultScorerConfig())
	targets := []Target{
		saasNA,
		{Industry: "Fintech", Region: "Europe"},
		{Industry: "Manufacturing Tech", Region: "Germany"},
		{Industry: "Healthcare", Region: "Global"},
		{Industry: "", Region: ""},
	}

	for range 20 {
		for _, target := range targets {
			got := m.Match(target, universe(t), 10)
			assert.LessOrEqual(t, len(got), 10)
			for i, c := range got {
				assert.GreaterOrEqual(t, c.MatchScore, 0.0)
				assert.LessOrEqual(t, c.MatchScore, MaxScore)
				assert.Greater(t, c.MatchScore, 30.0)
				if i > 0 {
					assert.GreaterOrEqual(t, got[i-1].MatchScore, c.MatchScore)
				}
			}
		}
	}
}

func TestMatch_SeedIsIdempotent(t *testing.T) {
	m := NewMatcher(DefaultScorerConfig(), WithSeed(42))

	first := m.Match(saasNA, universe(t), 10)
	second := m.Match(saasNA, universe(t), 10)
	assert.Equal(t, first, second)

	other := NewMatcher(DefaultScorerConfig(), WithSeed(42))
	assert.Equal(t, first, other.Match(saasNA, universe(t), 10))
}

func TestMatch_JitterLiftsBorderlineCandidates(t *testing.T) {
	m := NewMatcher(DefaultScorerConfig(), WithJitterSource(func() float64 { return 0.999 }))

	got := m.Match(saasNA, universe(t), 100)
	tickers := make(map[string]float64, len(got))
	for _, c := range got {
		tickers[c.Ticker] = c.MatchScore
	}

	// SQ and TDOC score exactly 30 without jitter.
	assert.InDelta(t, 34.995, tickers["SQ"], 1e-9)
	assert.InDelta(t, 34.995, tickers["TDOC"], 1e-9)
	assert.InDelta(t, 100.0, tickers["CRM"], 1e-9, "capped after jitter")
	assert.NotContains(t, tickers, "ADYEN")
}

func TestMatch_ConcurrentUse(t *testing.T) {
	m := NewMatcher(DefaultScorerConfig(), WithSeed(7))
	companies := universe(t)
	want := m.Match(saasNA, companies, 5)

	var wg sync.WaitGroup
	results := make([][]model.ScoredCandidate, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.Match(saasNA, companies, 5)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, want, r)
	}
}

func TestMatch_CustomThreshold(t *testing.T) {
	cfg := DefaultScorerConfig()
	cfg.MinScore = 89
	m := NewMatcher(cfg, WithoutJitter())

	got := m.Match(saasNA, universe(t), 100)
	for _, c := range got {
		assert.Greater(t, c.MatchScore, 89.0)
		assert.False(t, math.IsNaN(c.MatchScore))
	}
	// 15 B2B SaaS at 100, PTC/ADSK/ANSS/AI at 90.
	assert.Len(t, got, 19)
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, ValidateConfig(DefaultScorerConfig()))

	cfg := DefaultScorerConfig()
	cfg.SectorWeight = -1
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sector_weight must be >= 0")

	cfg = DefaultScorerConfig()
	cfg.IndustryPartialWeight = 120
	err = ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exact >= partial >= sector")

	cfg = DefaultScorerConfig()
	cfg.RegionAliasWeight = 40
	err = ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exact >= global >= alias")

	cfg = DefaultScorerConfig()
	cfg.MinScore = 100
	err = ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_score")
}
