package types

import (
	"fmt"
	"time"
)

type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

type Ticker struct {
	Symbol      string
	Price       float64
	Volume      float64
	QuoteVolume float64
	ChangePct   float64
	Timestamp   time.Time
}

// MarketSeries is the columnar form of a candle history, oldest first.
type MarketSeries struct {
	Symbol     string
	Timeframe  string
	Opens      []float64
	Highs      []float64
	Lows       []float64
	Prices     []float64 // closes
	Volumes    []float64
	Timestamps []time.Time
}

// NewMarketSeries builds a series from candles, sorting is the caller's job.
func NewMarketSeries(symbol, timeframe string, candles []OHLCV) *MarketSeries {
	s := &MarketSeries{
		Symbol:     symbol,
		Timeframe:  timeframe,
		Opens:      make([]float64, 0, len(candles)),
		Highs:      make([]float64, 0, len(candles)),
		Lows:       make([]float64, 0, len(candles)),
		Prices:     make([]float64, 0, len(candles)),
		Volumes:    make([]float64, 0, len(candles)),
		Timestamps: make([]time.Time, 0, len(candles)),
	}
	for _, c := range candles {
		s.Opens = append(s.Opens, c.Open)
		s.Highs = append(s.Highs, c.High)
		s.Lows = append(s.Lows, c.Low)
		s.Prices = append(s.Prices, c.Close)
		s.Volumes = append(s.Volumes, c.Volume)
		s.Timestamps = append(s.Timestamps, c.Timestamp)
	}
	return s
}

// Len returns the number of candles in the series
func (s *MarketSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Prices)
}

// Candles converts the series back to rows
func (s *MarketSeries) Candles() []OHLCV {
	out := make([]OHLCV, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		out = append(out, OHLCV{
			Open:      s.Opens[i],
			High:      s.Highs[i],
			Low:       s.Lows[i],
			Close:     s.Prices[i],
			Volume:    s.Volumes[i],
			Timestamp: s.Timestamps[i],
		})
	}
	return out
}

// LastPrice returns the most recent close
func (s *MarketSeries) LastPrice() (float64, bool) {
	if s.Len() == 0 {
		return 0, false
	}
	return s.Prices[len(s.Prices)-1], true
}

// Validate checks that all columns have equal length and timestamps ascend
func (s *MarketSeries) Validate() error {
	n := len(s.Prices)
	if len(s.Opens) != n || len(s.Highs) != n || len(s.Lows) != n || len(s.Volumes) != n || len(s.Timestamps) != n {
		return fmt.Errorf("series %s has mismatched column lengths", s.Symbol)
	}
	for i := 1; i < n; i++ {
		if s.Timestamps[i].Before(s.Timestamps[i-1]) {
			return fmt.Errorf("series %s is not in chronological order at index %d", s.Symbol, i)
		}
	}
	return nil
}

type Balance struct {
	Asset  string
	Free   float64
	Locked float64
}
