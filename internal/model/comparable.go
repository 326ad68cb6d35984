package model

// ReferenceCompany is a publicly traded company in the reference universe.
type ReferenceCompany struct {
	Ticker      string `json:"ticker" yaml:"ticker"`
	Name        string `json:"name" yaml:"name"`
	Industry    string `json:"industry" yaml:"industry"`
	Sector      string `json:"sector" yaml:"sector"`
	Region      string `json:"region" yaml:"region"`
	Description string `json:"description" yaml:"description"`
}

// ScoredCandidate is a reference company ranked against a target profile.
// MatchScore is always within [0, 100].
type ScoredCandidate struct {
	ReferenceCompany
	MatchScore float64 `json:"matchScore"`
}

// Financials holds the market metrics fetched for one ticker. Optional
// multiples are nil when the provider could not compute them.
type Financials struct {
	MarketCap     float64  `json:"marketCap" yaml:"market_cap"`
	Revenue       float64  `json:"revenue" yaml:"revenue"`
	PERatio       *float64 `json:"peRatio" yaml:"pe_ratio"`
	EVRevenue     *float64 `json:"evRevenue" yaml:"ev_revenue"`
	EVEBITDA      *float64 `json:"evEbitda" yaml:"ev_ebitda"`
	OneYearChange float64  `json:"oneYearChange" yaml:"one_year_change"`
	Summary       string   `json:"summary,omitempty" yaml:"summary"`
}

// EnrichedComparable merges a scored candidate with its market metrics.
type EnrichedComparable struct {
	Ticker        string   `json:"ticker"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Industry      string   `json:"industry"`
	MarketCap     float64  `json:"marketCap"`
	Revenue       float64  `json:"revenue"`
	PERatio       *float64 `json:"peRatio"`
	EVRevenue     *float64 `json:"evRevenue"`
	EVEBITDA      *float64 `json:"evEbitda"`
	OneYearChange float64  `json:"oneYearChange"`
	MatchScore    float64  `json:"matchScore"`
	// Degraded is set when the market data fetch failed and the financial
	// fields carry zero/absent values.
	Degraded bool `json:"degraded,omitempty"`
}

// Enrich builds an EnrichedComparable from a candidate and its financials.
// Negative market cap or revenue are floored at zero.
func Enrich(c ScoredCandidate, f Financials) EnrichedComparable {
	return EnrichedComparable{
		Ticker:        c.Ticker,
		Name:          c.Name,
		Description:   c.Description,
		Industry:      c.Industry,
		MarketCap:     max(f.MarketCap, 0),
		Revenue:       max(f.Revenue, 0),
		PERatio:       f.PERatio,
		EVRevenue:     f.EVRevenue,
		EVEBITDA:      f.EVEBITDA,
		OneYearChange: f.OneYearChange,
		MatchScore:    c.MatchScore,
	}
}

// Degrade builds the zero-metric record used when enrichment fails.
func Degrade(c ScoredCandidate) EnrichedComparable {
	ec := Enrich(c, Financials{})
	ec.Degraded = true
	return ec
}

// UsableMultiple reports the EV/Revenue multiple and whether it can drive a
// valuation (present and strictly positive).
func (c EnrichedComparable) UsableMultiple() (float64, bool) {
	if c.EVRevenue == nil || *c.EVRevenue <= 0 {
		return 0, false
	}
	return *c.EVRevenue, true
}

// Float returns a pointer to v. Handy for optional multiples.
func Float(v float64) *float64 {
	return &v
}
