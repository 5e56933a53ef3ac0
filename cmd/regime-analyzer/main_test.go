package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

func trend(n int, start, step float64) []types.OHLCV {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.OHLCV, n)
	for i := range out {
		p := start + float64(i)*step
		out[i] = types.OHLCV{Open: p, High: p * 1.001, Low: p * 0.999, Close: p, Volume: 100, Timestamp: at.Add(time.Duration(i) * time.Hour)}
	}
	return out
}

func TestAnalyzeTransitions(t *testing.T) {
	up := trend(80, 100, 0.5)
	down := trend(80, up[len(up)-1].Close, -0.5)
	for i := range down {
		down[i].Timestamp = up[len(up)-1].Timestamp.Add(time.Duration(i+1) * time.Hour)
	}
	candles := append(up, down...)

	points, summary, err := analyze("BTC/USDT", candles, 60)
	require.NoError(t, err)
	assert.Len(t, points, len(candles)-59)
	assert.Equal(t, len(points), summary.Points)
	assert.Equal(t, risk.MarketBull, points[0].Condition)
	assert.Equal(t, risk.MarketBear, points[len(points)-1].Condition)
	assert.NotEmpty(t, summary.Transitions)

	total := 0
	for _, n := range summary.Distribution {
		total += n
	}
	assert.Equal(t, summary.Points, total)
}

func TestAnalyzeRejectsShortInput(t *testing.T) {
	_, _, err := analyze("BTC/USDT", trend(10, 100, 1), 50)
	assert.Error(t, err)
	_, _, err = analyze("BTC/USDT", trend(10, 100, 1), 1)
	assert.Error(t, err)
}

func TestRunWritesReport(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("timestamp,open,high,low,close,volume\n")
	for _, c := range trend(70, 100, 1) {
		fmt.Fprintf(&b, "%s,%g,%g,%g,%g,%g\n", c.Timestamp.Format("2006-01-02 15:04:05"), c.Open, c.High, c.Low, c.Close, c.Volume)
	}
	csvPath := filepath.Join(dir, "candles.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(b.String()), 0o644))

	var out bytes.Buffer
	err := run(options{csvFile: csvPath, symbol: "ETH/USDT", window: 60, output: filepath.Join(dir, "out"), last: 5}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "REGIME ANALYSIS ETH/USDT")
	_, err = os.Stat(filepath.Join(dir, "out", "regime_analysis.json"))
	assert.NoError(t, err)
}
