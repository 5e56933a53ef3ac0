package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoadDataSkipsBadRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candles.csv")
	writeFile(t, path, `timestamp,open,high,low,close,volume
2024-01-01 01:00:00,101,103,100,102,5
2024-01-01 00:00:00,100,102,99,101,10
not-a-date,1,1,1,1,1
2024-01-01 02:00:00,abc,1,1,1,1
2024-01-01 03:00:00,100,90,95,96,1
2024-01-01 04:00:00,100,101
`)
	p := NewCSVProvider()
	candles, err := p.LoadData(path)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 4, p.Skipped())
	assert.Equal(t, 101.0, candles[0].Close, "sorted oldest first")
	assert.Equal(t, 102.0, candles[1].Close)
	assert.NoError(t, p.ValidateData(candles))
}

func TestLoadDataUnixMillis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candles.csv")
	writeFile(t, path, "start,open,high,low,close,volume,turnover\n1704067200000,1,2,0.5,1.5,100,150\n")

	candles, err := NewCSVProviderWithFormat(BybitCSVFormat).LoadData(path)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), candles[0].Timestamp)
}

func TestLoadDataErrors(t *testing.T) {
	_, err := NewCSVProvider().LoadData(filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, os.IsNotExist(err))

	empty := filepath.Join(t.TempDir(), "empty.csv")
	writeFile(t, empty, "")
	_, err = NewCSVProvider().LoadData(empty)
	assert.Error(t, err)
}

func TestValidateData(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	good := types.OHLCV{Open: 1, High: 2, Low: 0.5, Close: 1.5, Timestamp: at}
	tests := []struct {
		name    string
		data    []types.OHLCV
		wantErr bool
	}{
		{"empty", nil, true},
		{"valid", []types.OHLCV{good}, false},
		{"zero price", []types.OHLCV{{Open: 0, High: 1, Low: 1, Close: 1}}, true},
		{"out of order", []types.OHLCV{good, {Open: 1, High: 2, Low: 0.5, Close: 1.5, Timestamp: at.Add(-time.Hour)}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewCSVProvider().ValidateData(tt.data)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestConvertIntervalToMinutes(t *testing.T) {
	for in, want := range map[string]string{"5m": "5", "1h": "60", "4h": "240", "1d": "1440", "1w": "10080", "15": "15", "x": "x", "3y": "3y"} {
		assert.Equal(t, want, ConvertIntervalToMinutes(in), in)
	}
}

func TestLocateAndListSymbols(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "binance", "spot", "BTCUSDT", "60", "candles.csv"), "h\n")
	writeFile(t, filepath.Join(root, "binance", "futures", "ETHUSDT", "60", "candles.csv"), "h\n")
	writeFile(t, filepath.Join(root, "binance", "spot", "SOLUSDT", "5", "candles.csv"), "h\n")

	assert.NotEmpty(t, FindDataFile(root, "binance", "btcusdt", "1h"))
	assert.NotEmpty(t, FindDataFile(root, "binance", "ETHUSDT", "1h"))
	assert.Empty(t, FindDataFile(root, "binance", "SOLUSDT", "1h"))

	symbols, err := ListDataSymbols(root, "binance", "1h")
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, symbols)

	symbols, err = ListDataSymbols(root, "bybit", "1h")
	require.NoError(t, err)
	assert.Empty(t, symbols)
}

func TestWriteCSVRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := []types.OHLCV{
		{Timestamp: at, Open: 1.5, High: 2.25, Low: 1.125, Close: 2, Volume: 1000},
		{Timestamp: at.Add(time.Hour), Open: 2, High: 2.5, Low: 1.75, Close: 2.4, Volume: 0.001},
	}
	path := DataFilePath(t.TempDir(), "binance", "spot", "btcusdt", "1h")
	require.NoError(t, WriteCSV(path, candles))
	assert.Contains(t, path, filepath.Join("BTCUSDT", "60"))

	got, err := NewCSVProvider().LoadData(path)
	require.NoError(t, err)
	assert.Equal(t, candles, got)
}
