// Package scorer ranks reference companies against a target company profile.
package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/comps-valuation/internal/config"
)

// DefaultScorerConfig returns a config.ScorerConfig with the standard weights.
// Industry dominates, region refines, business model is a small bonus.
func DefaultScorerConfig() config.ScorerConfig {
	return config.ScorerConfig{
		IndustryExactWeight:   100,
		IndustryPartialWeight: 70,
		SectorWeight:          40,
		RegionExactWeight:     30,
		RegionGlobalWeight:    25,
		RegionAliasWeight:     15,
		BusinessModelWeight:   20,
		MaxJitter:             5,
		MinScore:              30,
	}
}

// ValidateConfig checks that a ScorerConfig is internally consistent.
func ValidateConfig(c config.ScorerConfig) error {
	var errs []string

	weights := []struct {
		name string
		w    float64
	}{
		{"industry_exact_weight", c.IndustryExactWeight},
		{"industry_partial_weight", c.IndustryPartialWeight},
		{"sector_weight", c.SectorWeight},
		{"region_exact_weight", c.RegionExactWeight},
		{"region_global_weight", c.RegionGlobalWeight},
		{"region_alias_weight", c.RegionAliasWeight},
		{"business_model_weight", c.BusinessModelWeight},
		{"max_jitter", c.MaxJitter},
	}
	for _, w := range weights {
		if w.w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", w.name))
		}
	}

	// Tiers within a factor are exclusive, so they must be ordered.
	if c.IndustryPartialWeight > c.IndustryExactWeight || c.SectorWeight > c.IndustryPartialWeight {
		errs = append(errs, "industry weights must satisfy exact >= partial >= sector")
	}
	if c.RegionGlobalWeight > c.RegionExactWeight || c.RegionAliasWeight > c.RegionGlobalWeight {
		errs = append(errs, "region weights must satisfy exact >= global >= alias")
	}

	if c.MinScore < 0 || c.MinScore >= MaxScore {
		errs = append(errs, "min_score must be in [0, 100)")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
