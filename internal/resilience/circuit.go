// Package resilience guards calls to external dependencies with circuit
// breakers so a failing provider fails fast instead of stalling requests.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// State is the state of a circuit breaker.
type State int

const (
	// Closed lets calls through.
	Closed State = iota
	// Open rejects calls until the reset timeout elapses.
	Open
	// HalfOpen lets probe calls through to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected because the circuit is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// BreakerConfig controls breaker behavior. Zero values take defaults.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. Default: 5.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open. Default: 30s.
	ResetTimeout time.Duration
	// ShouldTrip decides whether an error counts as a failure. Default: any
	// non-nil error except caller cancellation.
	ShouldTrip func(err error) bool
}

// FromSettings builds a BreakerConfig from plain config values.
func FromSettings(failureThreshold, resetTimeoutSecs int) BreakerConfig {
	cfg := BreakerConfig{FailureThreshold: failureThreshold}
	if resetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	return cfg
}

// Breaker is a circuit breaker for a single named dependency.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time

	// now allows test injection of time.
	now func() time.Time
}

// NewBreaker creates a closed breaker for the named dependency.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.ShouldTrip == nil {
		cfg.ShouldTrip = defaultShouldTrip
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

func defaultShouldTrip(err error) bool {
	return err != nil && !eris.Is(err, context.Canceled)
}

// Name returns the dependency name.
func (b *Breaker) Name() string {
	return b.name
}

// Do runs fn unless the circuit is open.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call runs fn through the breaker and returns its value.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !b.allow() {
		return zero, eris.Wrapf(ErrCircuitOpen, "%s", b.name)
	}
	v, err := fn(ctx)
	b.record(err)
	return v, err
}

// State returns the current state, reporting HalfOpen once an open
// circuit's reset timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		return HalfOpen
	}
	return b.state
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.setState(Closed)
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Open {
		return true
	}
	if b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		b.setState(HalfOpen)
		return true
	}
	return false
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !b.cfg.ShouldTrip(err) {
		b.failures = 0
		if b.state == HalfOpen {
			b.setState(Closed)
		}
		return
	}

	b.failures++
	if b.state == HalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.openedAt = b.now()
		b.setState(Open)
	}
}

func (b *Breaker) setState(to State) {
	if b.state == to {
		return
	}
	zap.L().Warn("resilience: circuit state change",
		zap.String("dependency", b.name),
		zap.Stringer("from", b.state),
		zap.Stringer("to", to),
		zap.Int("failures", b.failures),
	)
	b.state = to
}

// Registry holds one breaker per dependency.
type Registry struct {
	mu       sync.RWMutex
	cfg      BreakerConfig
	breakers map[string]*Breaker
}

// NewRegistry creates a registry whose breakers share cfg.
func NewRegistry(cfg BreakerConfig) *Registry {
	return &Registry{cfg: cfg, breakers: make(map[string]*Breaker)}
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.breakers[name]; ok {
		return b
	}
	b = NewBreaker(name, r.cfg)
	r.breakers[name] = b
	return b
}

// States returns a snapshot of every breaker's state, keyed by name.
func (r *Registry) States() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.State().String()
	}
	return out
}
