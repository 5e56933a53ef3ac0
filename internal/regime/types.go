package regime

import (
	"sync"
	"time"

	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
)

// RegimeSignal is the classification of one symbol's recent candles
type RegimeSignal struct {
	Symbol     string               `json:"symbol"`
	Condition  risk.MarketCondition `json:"condition"`
	Volatility float64              `json:"volatility"` // annualized, percent
	FastSMA    float64              `json:"fast_sma"`
	SlowSMA    float64              `json:"slow_sma"`
	Timestamp  time.Time            `json:"timestamp"`
}

// RegimeChange represents a regime transition event
type RegimeChange struct {
	Symbol       string               `json:"symbol"`
	Timestamp    time.Time            `json:"timestamp"`
	OldRegime    risk.MarketCondition `json:"old_regime"`
	NewRegime    risk.MarketCondition `json:"new_regime"`
	Volatility   float64              `json:"volatility"`
	TriggerPrice float64              `json:"trigger_price"` // close when the change was seen
}

// RegimeConfig holds configuration parameters for regime detection
type RegimeConfig struct {
	FastPeriod          int     `json:"fast_period"`           // 20
	SlowPeriod          int     `json:"slow_period"`           // 50
	TrendThresholdPct   float64 `json:"trend_threshold_pct"`   // SMA divergence marking a trend
	HighVolatilityPct   float64 `json:"high_volatility_pct"`   // annualized volatility marking VOLATILE
	PeriodsPerYear      float64 `json:"periods_per_year"`      // 8760 for hourly candles
	MinVolatilitySample int     `json:"min_volatility_sample"` // returns needed before volatility is trusted
}

// DefaultRegimeConfig returns defaults tuned for hourly candles
func DefaultRegimeConfig() RegimeConfig {
	return RegimeConfig{
		FastPeriod:          20,
		SlowPeriod:          50,
		TrendThresholdPct:   2.0,
		HighVolatilityPct:   50.0,
		PeriodsPerYear:      24 * 365,
		MinVolatilitySample: 2,
	}
}

// RegimeCallback receives regime changes
type RegimeCallback func(change RegimeChange)

// RegimeEventBus manages regime change notifications
type RegimeEventBus struct {
	mu          sync.RWMutex
	subscribers map[string]RegimeCallback
}

// NewRegimeEventBus creates a new event bus for regime notifications
func NewRegimeEventBus() *RegimeEventBus {
	return &RegimeEventBus{
		subscribers: make(map[string]RegimeCallback),
	}
}

// Subscribe adds a new subscriber for regime changes
func (bus *RegimeEventBus) Subscribe(id string, callback RegimeCallback) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.subscribers[id] = callback
}

// Unsubscribe removes a subscriber
func (bus *RegimeEventBus) Unsubscribe(id string) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.subscribers, id)
}

// PublishRegimeChange notifies all subscribers synchronously
func (bus *RegimeEventBus) PublishRegimeChange(change RegimeChange) {
	bus.mu.RLock()
	callbacks := make([]RegimeCallback, 0, len(bus.subscribers))
	for _, cb := range bus.subscribers {
		callbacks = append(callbacks, cb)
	}
	bus.mu.RUnlock()

	for _, cb := range callbacks {
		cb(change)
	}
}
