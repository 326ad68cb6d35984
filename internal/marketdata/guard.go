package marketdata

import (
	"context"

	"github.com/sells-group/comps-valuation/internal/model"
	"github.com/sells-group/comps-valuation/internal/resilience"
)

// Guarded routes fetches through a circuit breaker so a failing upstream
// fails fast instead of costing every ticker a timeout.
type Guarded struct {
	next    Provider
	breaker *resilience.Breaker
}

// NewGuarded wraps next with breaker.
func NewGuarded(next Provider, breaker *resilience.Breaker) *Guarded {
	return &Guarded{next: next, breaker: breaker}
}

// Fetch implements Provider.
func (g *Guarded) Fetch(ctx context.Context, ticker string) (model.Financials, error) {
	return resilience.Call(ctx, g.breaker, func(ctx context.Context) (model.Financials, error) {
		return g.next.Fetch(ctx, ticker)
	})
}

// Breaker exposes the breaker for health reporting.
func (g *Guarded) Breaker() *resilience.Breaker {
	return g.breaker
}
