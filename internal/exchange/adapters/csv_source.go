package adapters

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-bot/pkg/data"
	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

// CSVSource serves candles from downloaded CSV files laid out as
// {root}/{exchange}/{category}/{SYMBOL}/{minutes}/candles.csv. Files are read
// once per symbol and timeframe.
type CSVSource struct {
	config *exchange.CSVConfig
	mu     sync.Mutex
	cache  map[string][]types.OHLCV
	now    func() time.Time
}

// NewCSVSource creates an offline market data source
func NewCSVSource(config *exchange.CSVConfig) *CSVSource {
	cfg := exchange.CSVConfig{}
	if config != nil {
		cfg = *config
	}
	if cfg.Exchange == "" {
		cfg.Exchange = "binance"
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = "1h"
	}
	cfg.QuoteCoin = strings.ToUpper(cfg.QuoteCoin)
	if cfg.QuoteCoin == "" {
		cfg.QuoteCoin = "USDT"
	}
	return &CSVSource{config: &cfg, cache: make(map[string][]types.OHLCV), now: time.Now}
}

func (s *CSVSource) GetName() string {
	return "csv"
}

// Ping fails when the data directory holds no candles at all
func (s *CSVSource) Ping(context.Context) error {
	symbols, err := data.ListDataSymbols(s.config.Dir, s.config.Exchange, s.config.Timeframe)
	if err != nil {
		return exchange.ErrConnectionFailed.WithDetails(err.Error())
	}
	if len(symbols) == 0 {
		return exchange.ErrConnectionFailed.WithDetails(fmt.Sprintf("no %s candles under %s", s.config.Timeframe, s.config.Dir))
	}
	return nil
}

// GetOHLCV returns the last limit candles, oldest first
func (s *CSVSource) GetOHLCV(_ context.Context, symbol, timeframe string, limit int) (*types.MarketSeries, error) {
	candles, err := s.load(symbol, timeframe)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return types.NewMarketSeries(symbol, timeframe, candles), nil
}

// GetCurrentPrice is the last close of the configured timeframe
func (s *CSVSource) GetCurrentPrice(_ context.Context, symbol string) (float64, error) {
	candles, err := s.load(symbol, s.config.Timeframe)
	if err != nil {
		return 0, err
	}
	return candles[len(candles)-1].Close, nil
}

// ListSymbols ranks the symbols on disk using their last 24 candles as the
// 24h window
func (s *CSVSource) ListSymbols(_ context.Context, mode exchange.SymbolMode, filter exchange.SymbolFilter) ([]string, error) {
	if filter.QuoteAsset == "" {
		filter.QuoteAsset = s.config.QuoteCoin
	}
	names, err := data.ListDataSymbols(s.config.Dir, s.config.Exchange, s.config.Timeframe)
	if err != nil {
		return nil, err
	}

	tickers := make([]types.Ticker, 0, len(names))
	for _, name := range names {
		symbol := exchange.FromVenueSymbol(name, filter.QuoteAsset)
		candles, err := s.load(symbol, s.config.Timeframe)
		if err != nil {
			continue
		}
		tickers = append(tickers, tickerFrom(symbol, candles, s.now()))
	}
	return exchange.RankSymbols(tickers, mode, filter), nil
}

func (s *CSVSource) load(symbol, timeframe string) ([]types.OHLCV, error) {
	key := exchange.ToVenueSymbol(symbol) + "|" + timeframe
	s.mu.Lock()
	defer s.mu.Unlock()
	if candles, ok := s.cache[key]; ok {
		return candles, nil
	}

	path := data.FindDataFile(s.config.Dir, s.config.Exchange, exchange.ToVenueSymbol(symbol), timeframe)
	if path == "" {
		return nil, exchange.ErrInvalidSymbol.WithDetails(fmt.Sprintf("no %s candles for %s", timeframe, symbol))
	}
	candles, err := data.NewCSVProviderWithFormat(s.config.Format()).LoadData(path)
	if err != nil {
		return nil, exchange.ErrConnectionFailed.WithDetails(err.Error())
	}
	if len(candles) == 0 {
		return nil, exchange.ErrInvalidSymbol.WithDetails(fmt.Sprintf("%s holds no valid candles", path))
	}
	s.cache[key] = candles
	return candles, nil
}

func tickerFrom(symbol string, candles []types.OHLCV, at time.Time) types.Ticker {
	window := candles
	if len(window) > 24 {
		window = window[len(window)-24:]
	}
	var volume, quoteVolume float64
	for _, c := range window {
		volume += c.Volume
		quoteVolume += c.Volume * c.Close
	}
	first, last := window[0].Open, window[len(window)-1].Close
	change := 0.0
	if first > 0 {
		change = (last - first) / first * 100
	}
	return types.Ticker{
		Symbol:      symbol,
		Price:       last,
		Volume:      volume,
		QuoteVolume: quoteVolume,
		ChangePct:   change,
		Timestamp:   at,
	}
}
