package model

// Range is a monetary valuation band.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the band (inclusive).
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// EstimateKind identifies one of the three layered estimates.
type EstimateKind string

const (
	EstimateRevenueMultiple EstimateKind = "revenueMultiple"
	EstimateGrowthAdjusted  EstimateKind = "growthAdjusted"
	EstimateRiskAdjusted    EstimateKind = "riskAdjusted"
)

// ValuationEstimate is one layer of the valuation. Factor is the median
// multiple, the growth premium fraction or the risk discount fraction
// depending on Kind.
type ValuationEstimate struct {
	Kind                  EstimateKind `json:"kind"`
	Factor                float64      `json:"factor"`
	Valuation             float64      `json:"valuation"`
	Range                 Range        `json:"range"`
	Confidence            float64      `json:"confidence"`
	ConfidenceExplanation string       `json:"confidenceExplanation"`
}

// ValuationResult holds the three estimates in fixed order. Each valuation
// is derived multiplicatively from the one before it.
type ValuationResult struct {
	RevenueMultiple ValuationEstimate `json:"revenueMultiple"`
	GrowthAdjusted  ValuationEstimate `json:"growthAdjusted"`
	RiskAdjusted    ValuationEstimate `json:"riskAdjusted"`
	// Revenue is the normalized revenue the estimates were computed from.
	Revenue float64 `json:"revenue"`
	// UsedDefaults is set when no comparable had a usable EV/Revenue multiple.
	UsedDefaults bool `json:"usedDefaults"`
}

// Estimates returns the three estimates in their fixed order.
func (v ValuationResult) Estimates() []ValuationEstimate {
	return []ValuationEstimate{v.RevenueMultiple, v.GrowthAdjusted, v.RiskAdjusted}
}
