// Package valuation converts comparable company multiples into three layered
// valuation estimates: revenue multiple, growth adjusted and risk adjusted.
package valuation

import (
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/comps-valuation/internal/estimate"
	"github.com/sells-group/comps-valuation/internal/model"
)

// Default-path constants used when no comparable has a usable multiple.
const (
	defaultGrowthPremium = 0.15
	defaultRiskDiscount  = 0.25
	defaultLowFactor     = 0.7
	defaultHighFactor    = 1.3
)

// Default-path ranges are fixed bands around revenue x multiple rather than
// widened from the base range.
var (
	defaultGrowthBand = &band{low: 0.8, high: 1.5}
	defaultRiskBand   = &band{low: 0.6, high: 1.1}
)

var defaultConfidence = [3]float64{0.4, 0.3, 0.35}

// Tier confidence multipliers applied to the adjusted base confidence.
const (
	growthConfidenceFactor = 0.9
	riskConfidenceFactor   = 0.85
)

// Option configures a Calculator.
type Option func(*Calculator)

// WithIndustryMultiples replaces the default industry multiple table.
func WithIndustryMultiples(table []IndustryMultiple) Option {
	return func(c *Calculator) {
		c.multiples = slices.Clone(table)
	}
}

// Calculator computes valuations. It is immutable and safe for concurrent use.
type Calculator struct {
	multiples []IndustryMultiple
}

// NewCalculator creates a Calculator with the default industry multiples.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{multiples: DefaultIndustryMultiples()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// MultipleStats are order statistics over the usable EV/Revenue multiples.
type MultipleStats struct {
	Count  int
	Median float64
	P25    float64
	P75    float64
}

// Stats sorts the multiples and picks elements at floor(n/2), floor(n/4) and
// floor(3n/4). It does not interpolate. ok is false for an empty input.
func Stats(multiples []float64) (MultipleStats, bool) {
	n := len(multiples)
	if n == 0 {
		return MultipleStats{}, false
	}
	sorted := slices.Clone(multiples)
	slices.Sort(sorted)
	return MultipleStats{
		Count:  n,
		Median: sorted[n/2],
		P25:    sorted[n/4],
		P75:    sorted[3*n/4],
	}, true
}

// Compute values the target. revenue is the normalized annual revenue; a
// non-positive value is re-derived from the profile's revenue text. The growth
// premium and risk discount look at all comparables, while the base multiple
// uses only those with a positive EV/Revenue multiple. With no such
// comparable the industry default multiple is used.
func (c *Calculator) Compute(profile model.CompanyProfile, revenue float64, comps []model.EnrichedComparable) model.ValuationResult {
	if !(revenue > 0) || math.IsInf(revenue, 0) {
		revenue = estimate.NormalizeRevenue(profile.Revenue)
	}

	var (
		multiples []float64
		scoreSum  float64
	)
	for _, ec := range comps {
		if m, ok := ec.UsableMultiple(); ok {
			multiples = append(multiples, m)
			scoreSum += ec.MatchScore
		}
	}

	stats, ok := Stats(multiples)
	if !ok {
		return c.defaultValuation(profile, revenue)
	}

	baseConfidence := min(0.95, 0.6+0.05*float64(stats.Count))
	industryMatch := clamp(scoreSum/float64(stats.Count)/100, 0, 1)
	adjusted := baseConfidence * (0.7 + 0.3*industryMatch)

	rationale := fmt.Sprintf(
		"Confidence is based on %d comparable companies, industry match score of %.0f%%, and a median EV/Revenue multiple of %.2fx. The spread of multiples (P25-P75) is %.2fx. More comparables and higher industry match increase confidence.",
		stats.Count, industryMatch*100, stats.Median, stats.P75-stats.P25,
	)

	premium := GrowthPremium(profile.GrowthStage, comps)
	discount := RiskDiscount(profile.GrowthStage, profile.RiskFactors, comps)

	zap.L().Debug("valuation: computed from comparables",
		zap.Int("usable", stats.Count),
		zap.Int("comparables", len(comps)),
		zap.Float64("median", stats.Median),
		zap.Float64("premium", premium),
		zap.Float64("discount", discount),
	)

	return build(layers{
		revenue:  revenue,
		multiple: stats.Median,
		low:      stats.P25,
		high:     stats.P75,
		premium:  premium,
		discount: discount,
		confidence: [3]float64{
			adjusted,
			adjusted * growthConfidenceFactor,
			adjusted * riskConfidenceFactor,
		},
		rationale: [3]string{rationale, rationale, rationale},
	})
}

func (c *Calculator) defaultValuation(profile model.CompanyProfile, revenue float64) model.ValuationResult {
	multiple, matched := lookupMultiple(c.multiples, profile.Industry)

	zap.L().Info("valuation: no usable comparables, using industry default multiple",
		zap.String("industry", profile.Industry),
		zap.Bool("industry_matched", matched),
		zap.Float64("multiple", multiple),
	)

	res := build(layers{
		revenue:    revenue,
		multiple:   multiple,
		low:        multiple * defaultLowFactor,
		high:       multiple * defaultHighFactor,
		premium:    defaultGrowthPremium,
		discount:   defaultRiskDiscount,
		growthBand: defaultGrowthBand,
		riskBand:   defaultRiskBand,
		confidence: defaultConfidence,
		rationale: [3]string{
			fmt.Sprintf("Confidence is based on a default %.1fx industry multiple; no comparable market data was available.", multiple),
			"Confidence is based on a default growth premium; no comparable market data was available.",
			"Confidence is based on a default risk discount; no comparable market data was available.",
		},
	})
	res.UsedDefaults = true
	return res
}

// layers parameterizes the three-estimate construction shared by the
// computed and default paths.
type layers struct {
	revenue    float64
	multiple   float64
	low, high  float64
	premium    float64
	discount   float64
	// growthBand and riskBand, when set, replace the widened ranges with
	// fixed factors of the base valuation.
	growthBand *band
	riskBand   *band
	confidence [3]float64
	rationale  [3]string
}

type band struct {
	low, high float64
}

func (b band) around(v float64) model.Range {
	return model.Range{Min: v * b.low, Max: v * b.high}
}

func build(l layers) model.ValuationResult {
	baseValue := l.revenue * l.multiple
	baseRange := model.Range{Min: l.revenue * l.low, Max: l.revenue * l.high}

	growthValue := baseValue * (1 + l.premium)
	growthRange := model.Range{
		Min: baseRange.Min * (1 + l.premium*0.5),
		Max: baseRange.Max * (1 + l.premium*1.2),
	}
	if l.growthBand != nil {
		growthRange = l.growthBand.around(baseValue)
	}

	riskValue := growthValue * (1 - l.discount)
	riskRange := model.Range{
		Min: growthRange.Min * (1 - l.discount*1.2),
		Max: growthRange.Max * (1 - l.discount*0.8),
	}
	if l.riskBand != nil {
		riskRange = l.riskBand.around(baseValue)
	}

	return model.ValuationResult{
		RevenueMultiple: model.ValuationEstimate{
			Kind:                  model.EstimateRevenueMultiple,
			Factor:                l.multiple,
			Valuation:             baseValue,
			Range:                 baseRange,
			Confidence:            clamp(l.confidence[0], 0, 1),
			ConfidenceExplanation: l.rationale[0],
		},
		GrowthAdjusted: model.ValuationEstimate{
			Kind:                  model.EstimateGrowthAdjusted,
			Factor:                l.premium,
			Valuation:             growthValue,
			Range:                 growthRange,
			Confidence:            clamp(l.confidence[1], 0, 1),
			ConfidenceExplanation: l.rationale[1],
		},
		RiskAdjusted: model.ValuationEstimate{
			Kind:                  model.EstimateRiskAdjusted,
			Factor:                l.discount,
			Valuation:             riskValue,
			Range:                 riskRange,
			Confidence:            clamp(l.confidence[2], 0, 1),
			ConfidenceExplanation: l.rationale[2],
		},
		Revenue: l.revenue,
	}
}
