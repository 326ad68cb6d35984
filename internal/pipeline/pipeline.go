// Package pipeline runs one valuation analysis end to end: profile
// extraction, comparable matching, market data enrichment, valuation,
// optional document insights and the narrative.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/comps-valuation/internal/company"
	"github.com/sells-group/comps-valuation/internal/config"
	"github.com/sells-group/comps-valuation/internal/cost"
	"github.com/sells-group/comps-valuation/internal/estimate"
	"github.com/sells-group/comps-valuation/internal/llm"
	"github.com/sells-group/comps-valuation/internal/marketdata"
	"github.com/sells-group/comps-valuation/internal/model"
	"github.com/sells-group/comps-valuation/internal/scorer"
	"github.com/sells-group/comps-valuation/internal/store"
	"github.com/sells-group/comps-valuation/internal/valuation"
)

// ErrProfileUnavailable is returned when the profile extraction step fails.
// It is the only failure that aborts an analysis.
var ErrProfileUnavailable = eris.New("pipeline: profile extraction unavailable")

// ProfileExtractor turns a free-text description into a CompanyProfile.
type ProfileExtractor interface {
	Extract(ctx context.Context, description string, depth model.AnalysisDepth) (model.CompanyProfile, error)
}

// Narrator writes the investment narrative as HTML markup.
type Narrator interface {
	Narrate(ctx context.Context, in llm.NarrativeInput) (string, error)
}

// InsightGatherer searches supporting documents for a profile.
type InsightGatherer interface {
	Gather(ctx context.Context, profile model.CompanyProfile, description string) (*model.Insights, error)
}

// Deps are the collaborators of a Pipeline. Insights, Narrator and Tally are
// optional.
type Deps struct {
	Store     store.Store
	Extractor ProfileExtractor
	Market    marketdata.Provider
	Universe  *company.Universe
	Matcher   *scorer.Matcher
	Valuation *valuation.Calculator
	Narrator  Narrator
	Insights  InsightGatherer
	Tally     *cost.Tally
}

// Pipeline orchestrates analyses. It is safe for concurrent use; every Run
// owns its own request state.
type Pipeline struct {
	cfg  config.AnalysisConfig
	deps Deps
}

// New creates a Pipeline.
func New(cfg config.AnalysisConfig, deps Deps) *Pipeline {
	if deps.Valuation == nil {
		deps.Valuation = valuation.NewCalculator()
	}
	return &Pipeline{cfg: cfg, deps: deps}
}

// Run executes the analysis for req. Enrichment, insight and narrative
// failures degrade the result; only an invalid request or a failed profile
// extraction returns an error. The returned Analysis is non-nil whenever the
// request was valid, with Status set to failed on extraction errors.
func (p *Pipeline) Run(ctx context.Context, req model.AnalysisRequest) (*model.Analysis, error) {
	if err := req.Validate(); err != nil {
		return nil, eris.Wrap(err, "pipeline: invalid request")
	}

	a := p.createRecord(ctx, req)
	log := zap.L().With(zap.String("analysis_id", a.ID))
	log.Info("pipeline: starting analysis",
		zap.String("depth", string(req.AnalysisDepth)),
		zap.Int("description_len", len(req.CompanyDescription)),
	)
	start := time.Now()

	// Phase 1: profile extraction (fatal on failure).
	var profile model.CompanyProfile
	err := trackPhase(log, "1_extract", func() error {
		extractCtx, cancel := withTimeout(ctx, p.cfg.ExtractTimeoutSecs)
		defer cancel()
		var extractErr error
		profile, extractErr = p.deps.Extractor.Extract(extractCtx, req.CompanyDescription, req.AnalysisDepth)
		return extractErr
	})
	if err != nil {
		a.Status = model.AnalysisFailed
		a.Error = "profile extraction failed: " + err.Error()
		p.saveRecord(ctx, log, a)
		return a, eris.Wrap(ErrProfileUnavailable, err.Error())
	}
	a.Profile = &profile

	// Phase 2: revenue normalization and comparable matching.
	var revenue float64
	var candidates []model.ScoredCandidate
	_ = trackPhase(log, "2_match", func() error {
		revenue = estimate.NormalizeRevenue(profile.Revenue)
		candidates = p.deps.Matcher.Match(scorer.Target{
			Industry:      profile.Industry,
			Region:        profile.Region,
			BusinessModel: profile.BusinessModel,
		}, p.deps.Universe.Companies(), p.cfg.ComparableLimit)
		log.Debug("pipeline: comparables matched",
			zap.Float64("revenue", revenue),
			zap.Int("candidates", len(candidates)),
		)
		return nil
	})

	// Phase 3: per-ticker market data enrichment.
	var comps []model.EnrichedComparable
	_ = trackPhase(log, "3_enrich", func() error {
		comps = Enrich(ctx, p.deps.Market, candidates, EnrichOptions{
			Concurrency: p.cfg.MaxConcurrency,
			Timeout:     secs(p.cfg.EnrichTimeoutSecs),
		})
		return nil
	})
	a.Comparables = comps

	// Phase 4: valuation.
	var result model.ValuationResult
	_ = trackPhase(log, "4_valuation", func() error {
		result = p.deps.Valuation.Compute(profile, revenue, comps)
		return nil
	})
	a.Valuation = &result

	// Phase 5: document insights (optional).
	if p.deps.Insights != nil {
		_ = trackPhase(log, "5_insights", func() error {
			insCtx, cancel := withTimeout(ctx, p.cfg.InsightsTimeoutSecs)
			defer cancel()
			ins, insErr := p.deps.Insights.Gather(insCtx, profile, req.CompanyDescription)
			if insErr != nil {
				return insErr
			}
			a.Insights = ins
			return nil
		})
	}

	// Phase 6: narrative, with the template fallback.
	_ = trackPhase(log, "6_narrative", func() error {
		a.Narrative, a.NarrativeFallback = p.narrate(ctx, log, llm.NarrativeInput{
			Description: req.CompanyDescription,
			Profile:     profile,
			Comparables: comps,
			Valuation:   result,
			Insights:    a.Insights,
		})
		return nil
	})

	a.Status = model.AnalysisComplete
	p.saveRecord(ctx, log, a)

	fields := []zap.Field{
		zap.Int("comparables", len(comps)),
		zap.Int("degraded", countDegraded(comps)),
		zap.Bool("used_defaults", result.UsedDefaults),
		zap.Float64("risk_adjusted_valuation", result.RiskAdjusted.Valuation),
		zap.Bool("narrative_fallback", a.NarrativeFallback),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	}
	if p.deps.Tally != nil {
		s := p.deps.Tally.Summary()
		fields = append(fields,
			zap.Int("llm_calls_total", s.Calls),
			zap.Float64("llm_cost_usd_total", s.USD),
		)
	}
	log.Info("pipeline: analysis complete", fields...)

	return a, nil
}

func (p *Pipeline) narrate(ctx context.Context, log *zap.Logger, in llm.NarrativeInput) (string, bool) {
	if p.deps.Narrator == nil {
		return FallbackNarrative(in.Profile, in.Valuation), true
	}

	narrCtx, cancel := withTimeout(ctx, p.cfg.NarrativeTimeoutSecs)
	defer cancel()

	html, err := p.deps.Narrator.Narrate(narrCtx, in)
	if err != nil {
		log.Warn("pipeline: narrative unavailable, using template", zap.Error(err))
		return FallbackNarrative(in.Profile, in.Valuation), true
	}
	return html, false
}

// createRecord persists the pending analysis. A store failure leaves the
// analysis unsaved but the request continues.
func (p *Pipeline) createRecord(ctx context.Context, req model.AnalysisRequest) *model.Analysis {
	if p.deps.Store != nil {
		a, err := p.deps.Store.CreateAnalysis(ctx, req)
		if err == nil {
			return a
		}
		zap.L().Warn("pipeline: create analysis record failed", zap.Error(err))
	}
	now := time.Now().UTC()
	return &model.Analysis{
		ID:                 uuid.New().String(),
		CompanyDescription: req.CompanyDescription,
		AnalysisDepth:      req.AnalysisDepth,
		ValuationMethods:   req.ValuationMethods,
		Status:             model.AnalysisPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func (p *Pipeline) saveRecord(ctx context.Context, log *zap.Logger, a *model.Analysis) {
	if p.deps.Store == nil {
		return
	}
	// Persist even when the request context is gone.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.deps.Store.UpdateAnalysis(saveCtx, a); err != nil {
		log.Warn("pipeline: update analysis record failed", zap.Error(err))
	}
}

// trackPhase runs fn and logs its outcome and duration.
func trackPhase(log *zap.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start).Milliseconds()

	if err != nil {
		log.Error("pipeline: phase failed",
			zap.String("phase", name),
			zap.Int64("duration_ms", duration),
			zap.Error(err),
		)
		return err
	}
	log.Info("pipeline: phase complete",
		zap.String("phase", name),
		zap.Int64("duration_ms", duration),
	)
	return nil
}

func withTimeout(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, secs(seconds))
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func countDegraded(comps []model.EnrichedComparable) int {
	n := 0
	for _, c := range comps {
		if c.Degraded {
			n++
		}
	}
	return n
}
