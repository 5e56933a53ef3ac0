package regime

import (
	"fmt"
	"math"
	"sync"

	talib "github.com/markcheno/go-talib"

	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

// RegimeDetector classifies market condition and volatility per symbol and
// publishes changes on its event bus
type RegimeDetector struct {
	config RegimeConfig
	bus    *RegimeEventBus

	mu   sync.Mutex
	last map[string]risk.MarketCondition
}

// NewRegimeDetector creates a detector with the given configuration
func NewRegimeDetector(cfg RegimeConfig) *RegimeDetector {
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= cfg.FastPeriod {
		def := DefaultRegimeConfig()
		cfg.FastPeriod, cfg.SlowPeriod = def.FastPeriod, def.SlowPeriod
	}
	if cfg.PeriodsPerYear <= 0 {
		cfg.PeriodsPerYear = DefaultRegimeConfig().PeriodsPerYear
	}
	if cfg.MinVolatilitySample < 2 {
		cfg.MinVolatilitySample = 2
	}
	return &RegimeDetector{
		config: cfg,
		bus:    NewRegimeEventBus(),
		last:   make(map[string]risk.MarketCondition),
	}
}

// Events returns the bus carrying regime changes
func (rd *RegimeDetector) Events() *RegimeEventBus {
	return rd.bus
}

// Volatility returns annualized volatility in percent of the close-to-close
// log returns, 0 when there is not enough data
func (rd *RegimeDetector) Volatility(prices []float64) float64 {
	returns := logReturns(prices)
	if len(returns) < rd.config.MinVolatilitySample {
		return 0
	}
	std := talib.StdDev(returns, len(returns), 1.0)
	sd := std[len(std)-1]
	if math.IsNaN(sd) || sd <= 0 {
		return 0
	}
	return sd * math.Sqrt(rd.config.PeriodsPerYear) * 100
}

// DetectRegime classifies the series. Volatility above the threshold wins;
// otherwise the fast/slow SMA spread decides between BULL, BEAR and SIDEWAYS.
func (rd *RegimeDetector) DetectRegime(series *types.MarketSeries) (RegimeSignal, error) {
	if series.Len() == 0 {
		return RegimeSignal{Condition: risk.MarketSideways}, fmt.Errorf("no market data")
	}

	prices := series.Prices
	signal := RegimeSignal{
		Symbol:     series.Symbol,
		Condition:  risk.MarketSideways,
		Volatility: rd.Volatility(prices),
		Timestamp:  series.Timestamps[len(series.Timestamps)-1],
	}

	if len(prices) >= rd.config.SlowPeriod {
		fast := talib.Sma(prices, rd.config.FastPeriod)
		slow := talib.Sma(prices, rd.config.SlowPeriod)
		signal.FastSMA = fast[len(fast)-1]
		signal.SlowSMA = slow[len(slow)-1]
	}

	switch {
	case rd.config.HighVolatilityPct > 0 && signal.Volatility > rd.config.HighVolatilityPct:
		signal.Condition = risk.MarketVolatile
	case signal.SlowSMA > 0:
		spread := (signal.FastSMA - signal.SlowSMA) / signal.SlowSMA * 100
		if spread > rd.config.TrendThresholdPct {
			signal.Condition = risk.MarketBull
		} else if spread < -rd.config.TrendThresholdPct {
			signal.Condition = risk.MarketBear
		}
	}

	rd.recordCondition(signal, prices[len(prices)-1])
	return signal, nil
}

func (rd *RegimeDetector) recordCondition(signal RegimeSignal, price float64) {
	rd.mu.Lock()
	prev, seen := rd.last[signal.Symbol]
	rd.last[signal.Symbol] = signal.Condition
	rd.mu.Unlock()

	if seen && prev != signal.Condition {
		rd.bus.PublishRegimeChange(RegimeChange{
			Symbol:       signal.Symbol,
			Timestamp:    signal.Timestamp,
			OldRegime:    prev,
			NewRegime:    signal.Condition,
			Volatility:   signal.Volatility,
			TriggerPrice: price,
		})
	}
}

// CurrentRegime returns the last condition seen for a symbol
func (rd *RegimeDetector) CurrentRegime(symbol string) (risk.MarketCondition, bool) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	c, ok := rd.last[symbol]
	return c, ok
}

func logReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			continue
		}
		out = append(out, math.Log(prices[i]/prices[i-1]))
	}
	return out
}
