package safety

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a named token bucket that starts full
type RateLimiter struct {
	name string
	lim  *rate.Limiter

	mu  sync.Mutex
	now func() time.Time
}

// NewRateLimiter allows bursts of capacity calls refilled at refillRate per second
func NewRateLimiter(name string, capacity, refillRate int) *RateLimiter {
	if capacity <= 0 {
		capacity = 1
	}
	if refillRate <= 0 {
		refillRate = 1
	}
	return &RateLimiter{
		name: name,
		lim:  rate.NewLimiter(rate.Limit(refillRate), capacity),
		now:  time.Now,
	}
}

// SetClock replaces the time source used by Allow and Stats
func (rl *RateLimiter) SetClock(now func() time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.now = now
}

func (rl *RateLimiter) clock() time.Time {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.now()
}

// Allow takes one token if available
func (rl *RateLimiter) Allow() bool {
	return rl.lim.AllowN(rl.clock(), 1)
}

// Wait blocks until a token is available or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.lim.Wait(ctx)
}

// LimiterStats is a point-in-time view of a limiter
type LimiterStats struct {
	Name       string  `json:"name"`
	Burst      int     `json:"burst"`
	Tokens     float64 `json:"tokens"`
	RefillRate float64 `json:"refill_per_second"`
}

// Stats returns the tokens available now
func (rl *RateLimiter) Stats() LimiterStats {
	return LimiterStats{
		Name:       rl.name,
		Burst:      rl.lim.Burst(),
		Tokens:     rl.lim.TokensAt(rl.clock()),
		RefillRate: float64(rl.lim.Limit()),
	}
}
