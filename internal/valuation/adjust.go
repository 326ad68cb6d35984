package valuation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/comps-valuation/internal/model"
)

const (
	maxGrowthPremium = 0.35
	baseRiskDiscount = 0.15
	minRiskDiscount  = 0.10
	maxRiskDiscount  = 0.40
	riskFactorStep   = 0.03
)

var growthRate = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)

// riskKeywords mark a risk factor as material.
var riskKeywords = []string{"competition", "market", "regulation", "customer concentration"}

// GrowthPremium returns the fractional premium for the growth stage and the
// comparables' recent market performance, capped at 0.35.
func GrowthPremium(growthStage string, comps []model.EnrichedComparable) float64 {
	stage := strings.ToLower(growthStage)

	var premium float64
	switch {
	case strings.Contains(stage, "high") || strings.Contains(stage, "rapid"):
		premium = 0.25
	case strings.Contains(stage, "growth"):
		premium = 0.15
	case strings.Contains(stage, "early"):
		premium = 0.20
	default:
		premium = 0.10
	}

	if rate, ok := statedGrowthRate(growthStage); ok {
		switch {
		case rate > 50:
			premium += 0.15
		case rate > 30:
			premium += 0.10
		case rate > 20:
			premium += 0.05
		}
	}

	// Premium for outperforming public markets.
	if mean, ok := meanOneYearChange(comps); ok && mean < 10 {
		premium += 0.05
	}

	return min(premium, maxGrowthPremium)
}

// RiskDiscount returns the private-company discount for the growth stage,
// the risk factors and market conditions, clamped to [0.10, 0.40].
func RiskDiscount(growthStage string, riskFactors []string, comps []model.EnrichedComparable) float64 {
	stage := strings.ToLower(growthStage)
	discount := baseRiskDiscount

	if strings.Contains(stage, "early") {
		discount += 0.10
	}
	if strings.Contains(stage, "mature") {
		discount -= 0.05
	}

	discount += float64(MaterialRiskCount(riskFactors)) * riskFactorStep

	if mean, ok := meanOneYearChange(comps); ok {
		switch {
		case mean < -10:
			discount += 0.08
		case mean > 20:
			discount -= 0.03
		}
	}

	return clamp(discount, minRiskDiscount, maxRiskDiscount)
}

// MaterialRiskCount counts risk factors mentioning at least one risk keyword.
func MaterialRiskCount(riskFactors []string) int {
	n := 0
	for _, r := range riskFactors {
		lower := strings.ToLower(r)
		for _, kw := range riskKeywords {
			if strings.Contains(lower, kw) {
				n++
				break
			}
		}
	}
	return n
}

// statedGrowthRate extracts the first percentage in the text.
func statedGrowthRate(text string) (float64, bool) {
	m := growthRate.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func meanOneYearChange(comps []model.EnrichedComparable) (float64, bool) {
	if len(comps) == 0 {
		return 0, false
	}
	var sum float64
	for _, c := range comps {
		sum += c.OneYearChange
	}
	return sum / float64(len(comps)), true
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
