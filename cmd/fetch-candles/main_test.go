package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-bot/pkg/data"
	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

type fakeSource struct {
	calls map[string]int
}

func (f *fakeSource) GetName() string { return "fake" }

func (f *fakeSource) GetOHLCV(_ context.Context, symbol, timeframe string, limit int) (*types.MarketSeries, error) {
	f.calls[symbol]++
	if symbol == "DOGE/USDT" {
		return nil, fmt.Errorf("invalid symbol %s", symbol)
	}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.OHLCV, 0, limit)
	for i := 0; i < limit; i++ {
		p := 100 + float64(i)
		candles = append(candles, types.OHLCV{Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 10, Timestamp: at.Add(time.Duration(i) * time.Hour)})
	}
	return types.NewMarketSeries(symbol, timeframe, candles), nil
}

func (f *fakeSource) GetCurrentPrice(context.Context, string) (float64, error) { return 100, nil }

func (f *fakeSource) ListSymbols(context.Context, exchange.SymbolMode, exchange.SymbolFilter) ([]string, error) {
	return nil, nil
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, split(" BTC/USDT, ,ETH/USDT "))
	assert.Nil(t, split(""))
}

func TestRunWritesLoadableFiles(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{calls: map[string]int{}}
	var out bytes.Buffer

	err := run(context.Background(), src, options{
		source:    "binance",
		symbols:   []string{"BTC/USDT", "DOGE/USDT"},
		intervals: []string{"1h", "4h"},
		limit:     5,
		dir:       dir,
	}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DOGE/USDT")
	assert.Equal(t, 2, src.calls["DOGE/USDT"], "validation errors are not retried")
	assert.Contains(t, out.String(), "✅ BTC/USDT 1h: 5 candles")

	for _, interval := range []string{"1h", "4h"} {
		path := data.FindDataFile(dir, "binance", "BTCUSDT", interval)
		require.NotEmpty(t, path, interval)
		candles, err := data.NewCSVProvider().LoadData(path)
		require.NoError(t, err)
		assert.Len(t, candles, 5)
		assert.Equal(t, 104.0, candles[4].Close)
	}
	assert.Empty(t, data.FindDataFile(dir, "binance", "DOGEUSDT", "1h"))
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{calls: map[string]int{}}

	err := run(ctx, src, options{source: "binance", symbols: []string{"BTC/USDT"}, intervals: []string{"1h"}, limit: 1, dir: t.TempDir()}, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.calls["BTC/USDT"])
}
