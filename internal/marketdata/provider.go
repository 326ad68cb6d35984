// Package marketdata supplies per-ticker financial metrics for comparable
// companies.
package marketdata

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/comps-valuation/internal/config"
	"github.com/sells-group/comps-valuation/internal/model"
	"github.com/sells-group/comps-valuation/internal/resilience"
	"github.com/sells-group/comps-valuation/pkg/yahoo"
)

// Provider fetches market metrics for one ticker. Each call is a single
// attempt; callers decide how to degrade on error.
type Provider interface {
	Fetch(ctx context.Context, ticker string) (model.Financials, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, ticker string) (model.Financials, error)

// Fetch implements Provider.
func (f ProviderFunc) Fetch(ctx context.Context, ticker string) (model.Financials, error) {
	return f(ctx, ticker)
}

// BreakerConfig returns the circuit breaker settings for cfg. Only transient
// failures count toward tripping; an unknown ticker does not.
func BreakerConfig(cfg config.MarketConfig) resilience.BreakerConfig {
	bcfg := resilience.FromSettings(cfg.FailureThreshold, cfg.ResetTimeoutSecs)
	bcfg.ShouldTrip = resilience.TripOnTransient
	return bcfg
}

// New builds the configured provider chain: the base source behind a
// circuit breaker, behind a TTL cache when cache_ttl_minutes > 0. The breaker
// is taken from breakers so its state can be reported; a nil registry gets a
// private one.
func New(cfg config.MarketConfig, breakers *resilience.Registry) (Provider, error) {
	var base Provider
	switch cfg.Provider {
	case "yahoo":
		opts := []yahoo.Option{yahoo.WithRateLimit(cfg.RequestsPerSecond)}
		if cfg.BaseURL != "" {
			opts = append(opts, yahoo.WithBaseURL(cfg.BaseURL))
		}
		base = NewYahoo(yahoo.NewClient(opts...))
	case "static":
		s, err := LoadStatic(cfg.StaticFile)
		if err != nil {
			return nil, err
		}
		base = s
	default:
		return nil, eris.Errorf("marketdata: unknown provider %q", cfg.Provider)
	}

	if breakers == nil {
		breakers = resilience.NewRegistry(BreakerConfig(cfg))
	}
	var p Provider = NewGuarded(base, breakers.Get(BreakerName(cfg.Provider)))

	if cfg.CacheTTLMinutes > 0 {
		p = NewCached(p, time.Duration(cfg.CacheTTLMinutes)*time.Minute)
	}
	return p, nil
}

// BreakerName is the registry key of the breaker guarding provider.
func BreakerName(provider string) string {
	return "marketdata." + provider
}
