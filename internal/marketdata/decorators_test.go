package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/comps-valuation/internal/config"
	"github.com/sells-group/comps-valuation/internal/model"
	"github.com/sells-group/comps-valuation/internal/resilience"
)

func TestCached_HitsWithinTTL(t *testing.T) {
	next := &mockProvider{}
	next.On("Fetch", mock.Anything, "CRM").Return(model.Financials{MarketCap: 1}, nil).Once()
	next.On("Fetch", mock.Anything, "CRM").Return(model.Financials{MarketCap: 2}, nil).Once()

	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	c := NewCached(next, 15*time.Minute)
	c.now = func() time.Time { return now }

	f, err := c.Fetch(context.Background(), "CRM")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, f.MarketCap, 0)

	now = now.Add(10 * time.Minute)
	f, err = c.Fetch(context.Background(), "crm")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, f.MarketCap, 0)

	now = now.Add(6 * time.Minute)
	f, err = c.Fetch(context.Background(), "CRM")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, f.MarketCap, 0)
	next.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestCached_DoesNotCacheErrors(t *testing.T) {
	next := &mockProvider{}
	next.On("Fetch", mock.Anything, "NOW").Return(model.Financials{}, errors.New("down")).Once()
	next.On("Fetch", mock.Anything, "NOW").Return(model.Financials{Revenue: 9}, nil).Once()

	c := NewCached(next, time.Minute)
	_, err := c.Fetch(context.Background(), "NOW")
	require.Error(t, err)

	f, err := c.Fetch(context.Background(), "NOW")
	require.NoError(t, err)
	assert.InDelta(t, 9.0, f.Revenue, 0)
}

func TestGuarded_OpensOnTransientFailures(t *testing.T) {
	next := &mockProvider{}
	transient := resilience.NewTransientError(errors.New("status 503"), 503)
	next.On("Fetch", mock.Anything, mock.Anything).Return(model.Financials{}, transient)

	b := resilience.NewBreaker("marketdata.test", resilience.BreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
		ShouldTrip:       resilience.TripOnTransient,
	})
	g := NewGuarded(next, b)

	for range 2 {
		_, err := g.Fetch(context.Background(), "CRM")
		require.Error(t, err)
	}
	_, err := g.Fetch(context.Background(), "NOW")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	next.AssertNumberOfCalls(t, "Fetch", 2)
	assert.Equal(t, resilience.Open, g.Breaker().State())
}

func TestGuarded_UnknownTickerDoesNotTrip(t *testing.T) {
	s, err := LoadStatic("")
	require.NoError(t, err)

	b := resilience.NewBreaker("marketdata.static", resilience.BreakerConfig{
		FailureThreshold: 1,
		ShouldTrip:       resilience.TripOnTransient,
	})
	g := NewGuarded(s, b)

	for range 3 {
		_, err := g.Fetch(context.Background(), "EBAY")
		assert.ErrorIs(t, err, ErrUnknownTicker)
	}
	assert.Equal(t, resilience.Closed, b.State())
}

func TestNew(t *testing.T) {
	p, err := New(config.MarketConfig{Provider: "static", CacheTTLMinutes: 5, FailureThreshold: 3, ResetTimeoutSecs: 10}, nil)
	require.NoError(t, err)
	_, ok := p.(*Cached)
	assert.True(t, ok)

	f, err := p.Fetch(context.Background(), "ASAN")
	require.NoError(t, err)
	assert.InDelta(t, 4.9, *f.EVRevenue, 1e-9)

	p, err = New(config.MarketConfig{Provider: "yahoo", RequestsPerSecond: 2}, nil)
	require.NoError(t, err)
	_, ok = p.(*Guarded)
	assert.True(t, ok)

	_, err = New(config.MarketConfig{Provider: "bloomberg"}, nil)
	assert.Error(t, err)
}

func TestNew_SharedRegistry(t *testing.T) {
	cfg := config.MarketConfig{Provider: "static", FailureThreshold: 2, ResetTimeoutSecs: 30}
	reg := resilience.NewRegistry(BreakerConfig(cfg))

	p, err := New(cfg, reg)
	require.NoError(t, err)
	g, ok := p.(*Guarded)
	require.True(t, ok)
	assert.Same(t, reg.Get(BreakerName("static")), g.Breaker())
	assert.Equal(t, map[string]string{"marketdata.static": "closed"}, reg.States())
}
