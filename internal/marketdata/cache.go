package marketdata

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sells-group/comps-valuation/internal/model"
)

type cacheEntry struct {
	fin     model.Financials
	expires time.Time
}

// Cached memoizes successful fetches for a fixed TTL. Errors are never cached.
type Cached struct {
	next Provider
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCached wraps next with a TTL cache.
func NewCached(next Provider, ttl time.Duration) *Cached {
	return &Cached{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Fetch implements Provider.
func (c *Cached) Fetch(ctx context.Context, ticker string) (model.Financials, error) {
	key := strings.ToUpper(ticker)

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && c.now().Before(e.expires) {
		c.mu.Unlock()
		return e.fin, nil
	}
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	fin, err := c.next.Fetch(ctx, ticker)
	if err != nil {
		return model.Financials{}, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{fin: fin, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return fin, nil
}
