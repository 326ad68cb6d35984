package scorer

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/sells-group/comps-valuation/internal/config"
	"github.com/sells-group/comps-valuation/internal/model"
)

// MaxScore caps every match score.
const MaxScore = 100.0

// globalRegion is the literal region label of companies that operate everywhere.
const globalRegion = "Global"

// Target describes the private company being matched.
type Target struct {
	Industry      string `json:"industry"`
	Region        string `json:"region"`
	BusinessModel string `json:"business_model"`
}

// Breakdown holds the per-factor contributions to a match score.
type Breakdown struct {
	Industry      float64 `json:"industry"`
	Region        float64 `json:"region"`
	BusinessModel float64 `json:"business_model"`
	Jitter        float64 `json:"jitter"`
	Total         float64 `json:"total"`
}

// JitterSource returns values in [0, 1).
type JitterSource func() float64

// Option configures a Matcher.
type Option func(*Matcher)

// WithSeed makes tie-break jitter reproducible. Every Match call restarts the
// sequence from the seed, so identical inputs give identical output.
func WithSeed(seed uint64) Option {
	return func(m *Matcher) {
		m.seed = &seed
	}
}

// WithoutJitter disables tie-break jitter entirely.
func WithoutJitter() Option {
	return func(m *Matcher) {
		m.noJitter = true
	}
}

// WithJitterSource sets a custom jitter source. It must be safe for
// concurrent use if the Matcher is shared.
func WithJitterSource(src JitterSource) Option {
	return func(m *Matcher) {
		m.source = src
	}
}

// Matcher scores reference companies against a target. It holds no mutable
// state and is safe for concurrent use.
type Matcher struct {
	cfg      config.ScorerConfig
	seed     *uint64
	noJitter bool
	source   JitterSource
}

// NewMatcher creates a Matcher. Without options, jitter is drawn from the
// global random source and output order at the margins varies between runs.
func NewMatcher(cfg config.ScorerConfig, opts ...Option) *Matcher {
	m := &Matcher{cfg: cfg}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match scores every company, keeps those strictly above the minimum score,
// and returns at most limit candidates ordered by descending score. Equal
// scores keep the input order.
func (m *Matcher) Match(target Target, companies []model.ReferenceCompany, limit int) []model.ScoredCandidate {
	if limit <= 0 {
		return []model.ScoredCandidate{}
	}

	jitter := m.jitterFunc()
	t := normalizeTarget(target)

	scored := make([]model.ScoredCandidate, 0, len(companies))
	for _, c := range companies {
		b := m.score(t, c, jitter)
		if b.Total <= m.cfg.MinScore {
			continue
		}
		scored = append(scored, model.ScoredCandidate{ReferenceCompany: c, MatchScore: b.Total})
	}

	slices.SortStableFunc(scored, func(a, b model.ScoredCandidate) int {
		return cmp.Compare(b.MatchScore, a.MatchScore)
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	zap.L().Debug("scorer: match complete",
		zap.String("industry", target.Industry),
		zap.String("region", target.Region),
		zap.String("business_model", target.BusinessModel),
		zap.Int("universe", len(companies)),
		zap.Int("matched", len(scored)),
	)

	return scored
}

// Score returns the factor breakdown for a single company.
func (m *Matcher) Score(target Target, c model.ReferenceCompany) Breakdown {
	return m.score(normalizeTarget(target), c, m.jitterFunc())
}

func (m *Matcher) score(t normalizedTarget, c model.ReferenceCompany, jitter JitterSource) Breakdown {
	var b Breakdown

	b.Industry = m.industryScore(t, c)
	b.Region = m.regionScore(t, c)
	if c.Description != "" && businessModelMatch(strings.ToLower(c.Description), t.industry) {
		b.BusinessModel = m.cfg.BusinessModelWeight
	}
	b.Jitter = m.cfg.MaxJitter * jitter()

	b.Total = min(b.Industry+b.Region+b.BusinessModel+b.Jitter, MaxScore)
	return b
}

func (m *Matcher) industryScore(t normalizedTarget, c model.ReferenceCompany) float64 {
	ci := strings.ToLower(c.Industry)
	switch {
	case ci == t.industry:
		return m.cfg.IndustryExactWeight
	case partialIndustryMatch(splitTerms(ci), t.industryTerms):
		return m.cfg.IndustryPartialWeight
	case containsAny(t.industry, sectorKeywords[c.Sector]...):
		return m.cfg.SectorWeight
	default:
		return 0
	}
}

func (m *Matcher) regionScore(t normalizedTarget, c model.ReferenceCompany) float64 {
	cr := strings.ToLower(c.Region)
	switch {
	case cr == t.region:
		return m.cfg.RegionExactWeight
	case c.Region == globalRegion:
		return m.cfg.RegionGlobalWeight
	case sameRegionGroup(cr, t.region):
		return m.cfg.RegionAliasWeight
	default:
		return 0
	}
}

func (m *Matcher) jitterFunc() JitterSource {
	switch {
	case m.noJitter:
		return func() float64 { return 0 }
	case m.source != nil:
		return m.source
	case m.seed != nil:
		// Per-call generator; never shared between goroutines.
		r := rand.New(rand.NewPCG(*m.seed, *m.seed^0x9e3779b97f4a7c15))
		return r.Float64
	default:
		return rand.Float64
	}
}

type normalizedTarget struct {
	industry      string
	industryTerms []string
	region        string
}

func normalizeTarget(t Target) normalizedTarget {
	industry := strings.ToLower(t.Industry)
	return normalizedTarget{
		industry:      industry,
		industryTerms: splitTerms(industry),
		region:        strings.ToLower(t.Region),
	}
}

// splitTerms splits a label on whitespace and hyphens.
func splitTerms(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-'
	})
}

// partialIndustryMatch reports whether both term sets contain the same domain
// keyword, or share a term longer than three characters by substring.
func partialIndustryMatch(companyTerms, targetTerms []string) bool {
	for _, key := range industryKeyTerms {
		if anyTermContains(companyTerms, key) && anyTermContains(targetTerms, key) {
			return true
		}
	}
	for _, ct := range companyTerms {
		for _, tt := range targetTerms {
			if len(ct) > 3 && len(tt) > 3 && (strings.Contains(ct, tt) || strings.Contains(tt, ct)) {
				return true
			}
		}
	}
	return false
}

func sameRegionGroup(a, b string) bool {
	for _, g := range regionGroups {
		if inRegionGroup(a, g) && inRegionGroup(b, g) {
			return true
		}
	}
	return false
}

func inRegionGroup(label string, g regionGroup) bool {
	return strings.Contains(label, g.name) || containsAny(label, g.aliases...)
}

func businessModelMatch(description, industry string) bool {
	for _, terms := range modelKeywords {
		if containsAny(industry, terms...) && containsAny(description, terms...) {
			return true
		}
	}
	return false
}

func anyTermContains(terms []string, key string) bool {
	for _, t := range terms {
		if strings.Contains(t, key) {
			return true
		}
	}
	return false
}

// containsAny reports whether s contains any of the substrings.
func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
