package safety

import (
	"fmt"
	"sync"
	"time"
)

// BreakerState is CLOSED, OPEN or HALF_OPEN
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	}
	return "UNKNOWN"
}

// Call classes, one breaker and one limiter each
const (
	BreakerTrading     = "trading"
	BreakerMarketData  = "market_data"
	BreakerAccountData = "account_data"
)

// BreakerConfig controls when a breaker trips and recovers
type BreakerConfig struct {
	TripAfter  uint32        // consecutive failures that open the breaker
	CloseAfter uint32        // half-open successes that close it again
	OpenFor    time.Duration // how long calls are rejected once open
}

// DefaultBreakerConfig is used for venue and market data calls
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{TripAfter: 5, CloseAfter: 2, OpenFor: 30 * time.Second}
}

// ErrCircuitOpen rejects a call without running it
type ErrCircuitOpen struct {
	Name  string
	Until time.Time
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker %s is open until %s", e.Name, e.Until.Format(time.RFC3339))
}

// Transition is reported to the breaker's observer on every state change
type Transition func(name string, from, to BreakerState)

// Breaker stops calling a failing dependency for OpenFor
type Breaker struct {
	name     string
	cfg      BreakerConfig
	observer Transition
	now      func() time.Time

	mu          sync.Mutex
	state       BreakerState
	failures    uint32
	probes      uint32
	lastFailure time.Time
	reopenAt    time.Time
}

// NewBreaker fills zero config fields from DefaultBreakerConfig; observer may be nil
func NewBreaker(name string, cfg BreakerConfig, observer Transition) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.TripAfter == 0 {
		cfg.TripAfter = def.TripAfter
	}
	if cfg.CloseAfter == 0 {
		cfg.CloseAfter = def.CloseAfter
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = def.OpenFor
	}
	return &Breaker{name: name, cfg: cfg, observer: observer, now: time.Now}
}

// SetClock replaces the time source
func (b *Breaker) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// Call runs fn unless the breaker is open and records its outcome
func (b *Breaker) Call(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return nil
	}
	if b.now().Before(b.reopenAt) {
		return &ErrCircuitOpen{Name: b.name, Until: b.reopenAt}
	}
	b.setState(StateHalfOpen)
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		b.lastFailure = b.now()
		if b.state == StateHalfOpen || b.failures >= b.cfg.TripAfter {
			b.setState(StateOpen)
		}
		return
	}
	b.failures = 0
	if b.state == StateHalfOpen {
		if b.probes++; b.probes >= b.cfg.CloseAfter {
			b.setState(StateClosed)
		}
	}
}

// setState is called with mu held
func (b *Breaker) setState(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.probes = 0
	switch to {
	case StateOpen:
		b.reopenAt = b.now().Add(b.cfg.OpenFor)
	case StateClosed:
		b.failures = 0
	}
	if b.observer != nil {
		b.observer(b.name, from, to)
	}
}

// State returns the current state
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// BreakerStats is a point-in-time view of a breaker
type BreakerStats struct {
	Name        string    `json:"name"`
	State       string    `json:"state"`
	Failures    uint32    `json:"failures"`
	LastFailure time.Time `json:"last_failure,omitempty"`
	ReopenAt    time.Time `json:"reopen_at,omitempty"`
}

// Stats returns the breaker's counters
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStats{
		Name:        b.name,
		State:       b.state.String(),
		Failures:    b.failures,
		LastFailure: b.lastFailure,
		ReopenAt:    b.reopenAt,
	}
}
