package bybit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// KlineInterval represents the time interval for kline data
type KlineInterval string

const (
	Interval1m  KlineInterval = "1"
	Interval5m  KlineInterval = "5"
	Interval15m KlineInterval = "15"
	Interval30m KlineInterval = "30"
	Interval1h  KlineInterval = "60"
	Interval4h  KlineInterval = "240"
	Interval1d  KlineInterval = "D"
	Interval1w  KlineInterval = "W"
)

// ConvertInterval maps 5m/1h/1d style timeframes onto Bybit intervals
func ConvertInterval(timeframe string) (KlineInterval, error) {
	switch strings.ToLower(strings.TrimSpace(timeframe)) {
	case "1m":
		return Interval1m, nil
	case "5m":
		return Interval5m, nil
	case "15m":
		return Interval15m, nil
	case "30m":
		return Interval30m, nil
	case "1h", "60":
		return Interval1h, nil
	case "4h":
		return Interval4h, nil
	case "1d", "d":
		return Interval1d, nil
	case "1w", "w":
		return Interval1w, nil
	default:
		return "", fmt.Errorf("unsupported timeframe %q", timeframe)
	}
}

// Kline represents a single kline/candlestick data point
type Kline struct {
	StartTime  time.Time
	OpenPrice  float64
	HighPrice  float64
	LowPrice   float64
	ClosePrice float64
	Volume     float64
	Turnover   float64
}

// KlineParams holds parameters for fetching kline data
type KlineParams struct {
	Category string        // "spot", "linear", "inverse"
	Symbol   string        // Trading pair symbol (e.g., "BTCUSDT")
	Interval KlineInterval // Time interval
	Limit    int           // Number of records to return (max 1000, default 200)
}

// Ticker is the 24h market summary of one symbol
type Ticker struct {
	Symbol       string  `json:"symbol"`
	LastPrice    float64 `json:"last_price"`
	Volume24h    float64 `json:"volume_24h"`
	Turnover24h  float64 `json:"turnover_24h"`
	Price24hPcnt float64 `json:"price_24h_pcnt"` // fraction, 0.05 = 5%
}

// GetKlines fetches candles, oldest first
func (c *Client) GetKlines(ctx context.Context, params KlineParams) ([]Kline, error) {
	if params.Category == "" {
		params.Category = "spot"
	}
	if params.Limit == 0 {
		params.Limit = 200
	}
	if params.Limit > 1000 {
		params.Limit = 1000
	}

	reqParams := map[string]interface{}{
		"category": params.Category,
		"symbol":   params.Symbol,
		"interval": string(params.Interval),
		"limit":    params.Limit,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(reqParams).GetMarketKline(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines: %w", err)
	}

	klines, err := parseKlineResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse kline response: %w", err)
	}
	return klines, nil
}

// GetTickers fetches 24h tickers; an empty symbol returns the whole category
func (c *Client) GetTickers(ctx context.Context, category, symbol string) ([]Ticker, error) {
	if category == "" {
		category = "spot"
	}
	params := map[string]interface{}{"category": category}
	if symbol != "" {
		params["symbol"] = symbol
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickers: %w", err)
	}
	tickers, err := parseTickerResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ticker response: %w", err)
	}
	return tickers, nil
}

// GetLatestPrice gets the latest price for a symbol
func (c *Client) GetLatestPrice(ctx context.Context, category, symbol string) (float64, error) {
	tickers, err := c.GetTickers(ctx, category, symbol)
	if err != nil {
		return 0, err
	}
	for _, t := range tickers {
		if t.Symbol == symbol && t.LastPrice > 0 {
			return t.LastPrice, nil
		}
	}
	return 0, fmt.Errorf("no price data for %s", symbol)
}

// parseKlineResponse decodes klines. Bybit returns newest first; the result
// is reversed to oldest first.
func parseKlineResponse(response interface{}) ([]Kline, error) {
	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	if err := decodeResult(response, &klineResult); err != nil {
		return nil, err
	}

	klines := make([]Kline, 0, len(klineResult.List))
	for i := len(klineResult.List) - 1; i >= 0; i-- {
		item := klineResult.List[i]
		if len(item) < 7 {
			continue
		}
		// [startTime, open, high, low, close, volume, turnover]
		klines = append(klines, Kline{
			StartTime:  parseTimestamp(item[0]),
			OpenPrice:  parseFloat64(item[1]),
			HighPrice:  parseFloat64(item[2]),
			LowPrice:   parseFloat64(item[3]),
			ClosePrice: parseFloat64(item[4]),
			Volume:     parseFloat64(item[5]),
			Turnover:   parseFloat64(item[6]),
		})
	}
	return klines, nil
}

func parseTickerResponse(response interface{}) ([]Ticker, error) {
	var tickerResult struct {
		Category string `json:"category"`
		List     []struct {
			Symbol       string `json:"symbol"`
			LastPrice    string `json:"lastPrice"`
			Price24hPcnt string `json:"price24hPcnt"`
			Turnover24h  string `json:"turnover24h"`
			Volume24h    string `json:"volume24h"`
		} `json:"list"`
	}
	if err := decodeResult(response, &tickerResult); err != nil {
		return nil, err
	}

	tickers := make([]Ticker, 0, len(tickerResult.List))
	for _, item := range tickerResult.List {
		tickers = append(tickers, Ticker{
			Symbol:       item.Symbol,
			LastPrice:    parseFloat64(item.LastPrice),
			Volume24h:    parseFloat64(item.Volume24h),
			Turnover24h:  parseFloat64(item.Turnover24h),
			Price24hPcnt: parseFloat64(item.Price24hPcnt),
		})
	}
	return tickers, nil
}
