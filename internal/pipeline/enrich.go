package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/comps-valuation/internal/marketdata"
	"github.com/sells-group/comps-valuation/internal/model"
)

// EnrichOptions bound the fan-out of market data fetches.
type EnrichOptions struct {
	// Concurrency caps in-flight fetches. Values below 1 mean one at a time.
	Concurrency int
	// Timeout applies to each fetch. Zero disables the per-ticker timeout.
	Timeout time.Duration
}

// Enrich fetches market data for every candidate and returns the merged
// records in candidate order. A failed or timed-out fetch yields a degraded
// record for that ticker; it never removes the candidate or fails the batch.
func Enrich(ctx context.Context, provider marketdata.Provider, candidates []model.ScoredCandidate, opts EnrichOptions) []model.EnrichedComparable {
	out := make([]model.EnrichedComparable, len(candidates))
	if len(candidates) == 0 {
		return out
	}

	var g errgroup.Group
	g.SetLimit(max(opts.Concurrency, 1))

	for i, c := range candidates {
		g.Go(func() error {
			out[i] = enrichOne(ctx, provider, c, opts.Timeout)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func enrichOne(ctx context.Context, provider marketdata.Provider, c model.ScoredCandidate, timeout time.Duration) model.EnrichedComparable {
	fetchCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	f, err := provider.Fetch(fetchCtx, c.Ticker)
	if err != nil {
		zap.L().Warn("pipeline: market data unavailable, degrading comparable",
			zap.String("ticker", c.Ticker),
			zap.Error(err),
		)
		return model.Degrade(c)
	}
	return model.Enrich(c, f)
}
