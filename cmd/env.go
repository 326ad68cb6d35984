package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/comps-valuation/internal/company"
	"github.com/sells-group/comps-valuation/internal/cost"
	"github.com/sells-group/comps-valuation/internal/insights"
	"github.com/sells-group/comps-valuation/internal/llm"
	"github.com/sells-group/comps-valuation/internal/marketdata"
	"github.com/sells-group/comps-valuation/internal/pipeline"
	"github.com/sells-group/comps-valuation/internal/resilience"
	"github.com/sells-group/comps-valuation/internal/scorer"
	"github.com/sells-group/comps-valuation/internal/store"
	anthropicpkg "github.com/sells-group/comps-valuation/pkg/anthropic"
	"github.com/sells-group/comps-valuation/pkg/docsearch"
)

// appEnv holds the initialized store, clients and pipeline needed by the
// analyze and serve commands.
type appEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Universe *company.Universe
	Breakers *resilience.Registry
	Tally    *cost.Tally
	// Search is set when the document search index is configured.
	Search bool
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates cfg for mode, opens the store and builds the pipeline.
// Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	universe, err := initUniverse()
	if err != nil {
		return nil, err
	}
	matcher, err := initMatcher(0, false)
	if err != nil {
		return nil, err
	}

	breakers := resilience.NewRegistry(marketdata.BreakerConfig(cfg.Market))
	market, err := marketdata.New(cfg.Market, breakers)
	if err != nil {
		return nil, eris.Wrap(err, "init market data")
	}

	tally := cost.NewTally(cost.NewCalculator(cost.FromConfig(cfg.Pricing)))
	completer, err := initCompleter(ctx, tally)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Store:     st,
		Extractor: llm.NewExtractor(completer),
		Market:    market,
		Universe:  universe,
		Matcher:   matcher,
		Narrator:  llm.NewNarrator(completer),
		Tally:     tally,
	}

	env := &appEnv{
		Store:    st,
		Universe: universe,
		Breakers: breakers,
		Tally:    tally,
	}

	if cfg.Search.Enabled() {
		client := docsearch.NewClient(cfg.Search.Endpoint, cfg.Search.Key, cfg.Search.Index,
			docsearch.WithAPIVersion(cfg.Search.APIVersion))
		deps.Insights = insights.New(client, cfg.Search.Top)
		env.Search = true
		zap.L().Info("document search enabled", zap.String("index", cfg.Search.Index))
	} else {
		zap.L().Debug("document search not configured, insights disabled")
	}

	env.Pipeline = pipeline.New(cfg.Analysis, deps)

	zap.L().Info("analysis environment ready",
		zap.String("llm", cfg.LLM.Provider),
		zap.String("market", cfg.Market.Provider),
		zap.String("store", cfg.Store.Driver),
		zap.Int("universe", universe.Len()),
	)
	return env, nil
}

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initUniverse() (*company.Universe, error) {
	if cfg.Analysis.UniverseFile != "" {
		u, err := company.Load(cfg.Analysis.UniverseFile)
		return u, eris.Wrap(err, "load universe")
	}
	u, err := company.Default()
	return u, eris.Wrap(err, "load default universe")
}

// initMatcher builds the matcher from config. A non-zero seed overrides the
// configured one; noJitter disables tie-break jitter regardless of config.
func initMatcher(seed uint64, noJitter bool) (*scorer.Matcher, error) {
	if err := scorer.ValidateConfig(cfg.Scorer); err != nil {
		return nil, err
	}

	var opts []scorer.Option
	switch {
	case noJitter || !cfg.Analysis.Jitter:
		opts = append(opts, scorer.WithoutJitter())
	case seed != 0:
		opts = append(opts, scorer.WithSeed(seed))
	case cfg.Analysis.Seed != 0:
		opts = append(opts, scorer.WithSeed(cfg.Analysis.Seed))
	}
	return scorer.NewMatcher(cfg.Scorer, opts...), nil
}

func initCompleter(ctx context.Context, tally *cost.Tally) (llm.Completer, error) {
	switch cfg.LLM.Provider {
	case "gemini":
		g, err := llm.NewGemini(ctx, cfg.Gemini)
		if err != nil {
			return nil, eris.Wrap(err, "init gemini")
		}
		return llm.NewMetered(g, tally), nil
	case "anthropic":
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		return llm.NewMetered(llm.NewAnthropic(client, cfg.Anthropic), tally), nil
	default:
		return nil, eris.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}
