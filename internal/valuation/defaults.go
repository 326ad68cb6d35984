package valuation

import "strings"

// FallbackMultiple applies when no industry entry matches.
const FallbackMultiple = 8.0

// IndustryMultiple is a default EV/Revenue multiple for an industry label.
type IndustryMultiple struct {
	Industry string  `json:"industry" yaml:"industry"`
	Multiple float64 `json:"multiple" yaml:"multiple"`
}

// DefaultIndustryMultiples is consulted in order; the first match wins.
func DefaultIndustryMultiples() []IndustryMultiple {
	return []IndustryMultiple{
		{Industry: "B2B SaaS", Multiple: 8.5},
		{Industry: "Manufacturing Tech", Multiple: 6.2},
		{Industry: "E-commerce", Multiple: 4.8},
		{Industry: "Fintech", Multiple: 7.3},
		{Industry: "Healthcare Tech", Multiple: 9.1},
		{Industry: "AI Software", Multiple: 12.5},
		{Industry: "Data Analytics", Multiple: 10.2},
	}
}

// lookupMultiple matches industry against the table case-insensitively, in
// both substring directions. An empty industry never matches.
func lookupMultiple(table []IndustryMultiple, industry string) (float64, bool) {
	ind := strings.ToLower(strings.TrimSpace(industry))
	if ind == "" {
		return FallbackMultiple, false
	}
	for _, e := range table {
		key := strings.ToLower(e.Industry)
		if strings.Contains(ind, key) || strings.Contains(key, ind) {
			return e.Multiple, true
		}
	}
	return FallbackMultiple, false
}
