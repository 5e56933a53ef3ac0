package adapters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"

	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

// BinanceAdapter serves public Binance spot market data
type BinanceAdapter struct {
	client    *binance.Client
	quoteCoin string
	now       func() time.Time
}

// NewBinanceAdapter creates a market data source; keys may be empty
func NewBinanceAdapter(config *exchange.BinanceConfig) *BinanceAdapter {
	if config == nil {
		config = &exchange.BinanceConfig{}
	}
	quote := strings.ToUpper(config.QuoteCoin)
	if quote == "" {
		quote = "USDT"
	}
	return &BinanceAdapter{
		client:    binance.NewClient(config.APIKey, config.APISecret),
		quoteCoin: quote,
		now:       time.Now,
	}
}

// GetName returns the exchange name
func (b *BinanceAdapter) GetName() string {
	return "binance"
}

// Ping checks connectivity
func (b *BinanceAdapter) Ping(ctx context.Context) error {
	if err := b.client.NewPingService().Do(ctx); err != nil {
		return exchange.ErrConnectionFailed.WithDetails(err.Error())
	}
	return nil
}

// GetOHLCV returns candles oldest first
func (b *BinanceAdapter) GetOHLCV(ctx context.Context, symbol, timeframe string, limit int) (*types.MarketSeries, error) {
	interval, err := convertIntervalToBinance(timeframe)
	if err != nil {
		return nil, err
	}
	klines, err := b.client.NewKlinesService().
		Symbol(exchange.ToVenueSymbol(symbol)).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, b.convertError(err)
	}

	candles := make([]types.OHLCV, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, types.OHLCV{
			Open:      parseFloat(k.Open),
			High:      parseFloat(k.High),
			Low:       parseFloat(k.Low),
			Close:     parseFloat(k.Close),
			Volume:    parseFloat(k.Volume),
			Timestamp: time.UnixMilli(k.OpenTime),
		})
	}
	return types.NewMarketSeries(symbol, timeframe, candles), nil
}

// GetCurrentPrice returns the last traded price
func (b *BinanceAdapter) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	venueSymbol := exchange.ToVenueSymbol(symbol)
	prices, err := b.client.NewListPricesService().Symbol(venueSymbol).Do(ctx)
	if err != nil {
		return 0, b.convertError(err)
	}
	for _, p := range prices {
		if p.Symbol == venueSymbol {
			if v := parseFloat(p.Price); v > 0 {
				return v, nil
			}
		}
	}
	return 0, exchange.ErrInvalidSymbol.WithDetails(symbol)
}

// ListSymbols ranks tickers from the 24h statistics
func (b *BinanceAdapter) ListSymbols(ctx context.Context, mode exchange.SymbolMode, filter exchange.SymbolFilter) ([]string, error) {
	if filter.QuoteAsset == "" {
		filter.QuoteAsset = b.quoteCoin
	}
	stats, err := b.client.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, b.convertError(err)
	}

	ts := b.now()
	tickers := make([]types.Ticker, 0, len(stats))
	for _, s := range stats {
		tickers = append(tickers, types.Ticker{
			Symbol:      exchange.FromVenueSymbol(s.Symbol, filter.QuoteAsset),
			Price:       parseFloat(s.LastPrice),
			Volume:      parseFloat(s.Volume),
			QuoteVolume: parseFloat(s.QuoteVolume),
			ChangePct:   parseFloat(s.PriceChangePercent),
			Timestamp:   ts,
		})
	}
	return exchange.RankSymbols(tickers, mode, filter), nil
}

func convertIntervalToBinance(timeframe string) (string, error) {
	switch tf := strings.ToLower(strings.TrimSpace(timeframe)); tf {
	case "1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "12h", "1d", "1w":
		return tf, nil
	default:
		return "", fmt.Errorf("unsupported timeframe %q", timeframe)
	}
}

func (b *BinanceAdapter) convertError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case -1121:
			return exchange.ErrInvalidSymbol.WithDetails(apiErr.Message)
		case -1003:
			return exchange.ErrRateLimitExceeded.WithDetails(apiErr.Message)
		}
		return &exchange.ExchangeError{
			Code:    "BINANCE_API_ERROR",
			Message: "Binance API rejected the request",
			Details: apiErr.Error(),
		}
	}
	return exchange.ErrConnectionFailed.WithDetails(err.Error())
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
