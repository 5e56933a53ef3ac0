package safety

import (
	"context"
	"sort"

	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

// GuardConfig sizes the rate limiters and breakers behind protected calls
type GuardConfig struct {
	Breaker         BreakerConfig
	TradingRate     int // requests per second
	MarketDataRate  int
	AccountDataRate int
	BurstMultiplier int
	OnTransition    Transition // optional breaker observer
}

// DefaultGuardConfig stays well inside the public venue limits
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Breaker:         DefaultBreakerConfig(),
		TradingRate:     5,
		MarketDataRate:  10,
		AccountDataRate: 5,
		BurstMultiplier: 2,
	}
}

type protection struct {
	breaker *Breaker
	limiter *RateLimiter
}

// Guard runs each call class through its rate limiter then its breaker.
// The set of classes is fixed at construction.
type Guard struct {
	classes map[string]protection
}

// NewGuard creates the trading, market_data and account_data protections
func NewGuard(cfg GuardConfig) *Guard {
	burst := cfg.BurstMultiplier
	if burst <= 0 {
		burst = 1
	}
	g := &Guard{classes: make(map[string]protection, 3)}
	for name, rate := range map[string]int{
		BreakerTrading:     cfg.TradingRate,
		BreakerMarketData:  cfg.MarketDataRate,
		BreakerAccountData: cfg.AccountDataRate,
	} {
		g.classes[name] = protection{
			breaker: NewBreaker(name, cfg.Breaker, cfg.OnTransition),
			limiter: NewRateLimiter(name, rate*burst, rate),
		}
	}
	return g
}

// Breaker returns the breaker of a call class
func (g *Guard) Breaker(name string) (*Breaker, bool) {
	p, ok := g.classes[name]
	return p.breaker, ok
}

// OpenCircuits lists the classes whose breaker is open, sorted
func (g *Guard) OpenCircuits() []string {
	var open []string
	for name, p := range g.classes {
		if p.breaker.State() == StateOpen {
			open = append(open, name)
		}
	}
	sort.Strings(open)
	return open
}

// GuardStats reports every breaker and limiter
type GuardStats struct {
	Breakers []BreakerStats `json:"breakers"`
	Limiters []LimiterStats `json:"limiters"`
}

// Stats returns breaker and limiter stats ordered by class name
func (g *Guard) Stats() GuardStats {
	names := make([]string, 0, len(g.classes))
	for name := range g.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	var st GuardStats
	for _, name := range names {
		st.Breakers = append(st.Breakers, g.classes[name].breaker.Stats())
		st.Limiters = append(st.Limiters, g.classes[name].limiter.Stats())
	}
	return st
}

// Do runs fn under the named protection; unknown classes run unprotected
func (g *Guard) Do(ctx context.Context, name string, fn func() error) error {
	p, ok := g.classes[name]
	if !ok {
		return fn()
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	return p.breaker.Call(fn)
}

// ProtectedVenue wraps a venue so every call is rate limited and guarded
type ProtectedVenue struct {
	venue exchange.Venue
	guard *Guard
}

// NewProtectedVenue wraps venue with guard
func NewProtectedVenue(venue exchange.Venue, guard *Guard) *ProtectedVenue {
	return &ProtectedVenue{venue: venue, guard: guard}
}

func (p *ProtectedVenue) GetName() string { return p.venue.GetName() }

func (p *ProtectedVenue) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	var res *exchange.OrderResult
	err := p.guard.Do(ctx, BreakerTrading, func() error {
		var err error
		res, err = p.venue.PlaceOrder(ctx, req)
		return err
	})
	return res, err
}

func (p *ProtectedVenue) CancelOrder(ctx context.Context, symbol, orderID string) error {
	return p.guard.Do(ctx, BreakerTrading, func() error {
		return p.venue.CancelOrder(ctx, symbol, orderID)
	})
}

func (p *ProtectedVenue) GetBalance(ctx context.Context) (float64, error) {
	var balance float64
	err := p.guard.Do(ctx, BreakerAccountData, func() error {
		var err error
		balance, err = p.venue.GetBalance(ctx)
		return err
	})
	return balance, err
}

func (p *ProtectedVenue) GetPositions(ctx context.Context) ([]exchange.VenuePosition, error) {
	var positions []exchange.VenuePosition
	err := p.guard.Do(ctx, BreakerAccountData, func() error {
		var err error
		positions, err = p.venue.GetPositions(ctx)
		return err
	})
	return positions, err
}

// Ping forwards to the wrapped venue when it supports it
func (p *ProtectedVenue) Ping(ctx context.Context) error {
	pinger, ok := p.venue.(exchange.Pinger)
	if !ok {
		_, err := p.GetBalance(ctx)
		return err
	}
	return p.guard.Do(ctx, BreakerAccountData, func() error {
		return pinger.Ping(ctx)
	})
}

// ProtectedMarketData wraps a market data source the same way
type ProtectedMarketData struct {
	source exchange.MarketDataSource
	guard  *Guard
}

// NewProtectedMarketData wraps source with guard
func NewProtectedMarketData(source exchange.MarketDataSource, guard *Guard) *ProtectedMarketData {
	return &ProtectedMarketData{source: source, guard: guard}
}

func (p *ProtectedMarketData) GetName() string { return p.source.GetName() }

func (p *ProtectedMarketData) GetOHLCV(ctx context.Context, symbol, timeframe string, limit int) (*types.MarketSeries, error) {
	var series *types.MarketSeries
	err := p.guard.Do(ctx, BreakerMarketData, func() error {
		var err error
		series, err = p.source.GetOHLCV(ctx, symbol, timeframe, limit)
		return err
	})
	return series, err
}

func (p *ProtectedMarketData) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	var price float64
	err := p.guard.Do(ctx, BreakerMarketData, func() error {
		var err error
		price, err = p.source.GetCurrentPrice(ctx, symbol)
		return err
	})
	return price, err
}

func (p *ProtectedMarketData) ListSymbols(ctx context.Context, mode exchange.SymbolMode, filter exchange.SymbolFilter) ([]string, error) {
	var symbols []string
	err := p.guard.Do(ctx, BreakerMarketData, func() error {
		var err error
		symbols, err = p.source.ListSymbols(ctx, mode, filter)
		return err
	})
	return symbols, err
}

// Ping forwards to the wrapped source when it supports it
func (p *ProtectedMarketData) Ping(ctx context.Context) error {
	pinger, ok := p.source.(exchange.Pinger)
	if !ok {
		_, err := p.ListSymbols(ctx, exchange.SymbolModeAll, exchange.SymbolFilter{Limit: 1})
		return err
	}
	return p.guard.Do(ctx, BreakerMarketData, func() error {
		return pinger.Ping(ctx)
	})
}
