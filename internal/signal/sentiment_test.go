package signal

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

func wave(n int) ([]float64, []float64) {
	prices := make([]float64, n)
	volumes := make([]float64, n)
	for i := range prices {
		prices[i] = 100 + 5*math.Sin(float64(i)/6)
		volumes[i] = 1000
	}
	return prices, volumes
}

func series(symbol string, prices, volumes []float64) *types.MarketSeries {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.OHLCV, len(prices))
	for i := range prices {
		candles[i] = types.OHLCV{Open: prices[i], High: prices[i], Low: prices[i], Close: prices[i], Volume: volumes[i], Timestamp: start.Add(time.Duration(i) * time.Hour)}
	}
	return types.NewMarketSeries(symbol, "1h", candles)
}

func TestDecide(t *testing.T) {
	tests := []struct {
		sentiment, confidence float64
		want                  Decision
	}{
		{0.9, 0.2, DecisionHold},
		{0.8, 0.7, DecisionStrongBuy},
		{-0.8, 0.7, DecisionStrongSell},
		{0.8, 0.55, DecisionBuy},
		{0.5, 0.7, DecisionBuy},
		{-0.5, 0.7, DecisionSell},
		{0.2, 1.0, DecisionHold},
		{0.5, 0.5, DecisionHold},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Decide(tt.sentiment, tt.confidence), "s=%.2f c=%.2f", tt.sentiment, tt.confidence)
	}
}

func TestDecisionHelpers(t *testing.T) {
	assert.True(t, DecisionStrongBuy.IsBuy())
	assert.True(t, DecisionSell.IsSell())
	assert.False(t, DecisionHold.IsBuy())
	assert.False(t, DecisionHold.IsSell())
}

func TestGenerateSignalsSkipsShortSeries(t *testing.T) {
	g := NewSentimentGenerator(DefaultSentimentConfig())

	longP, longV := wave(120)
	shortP, shortV := wave(49)
	signals := g.GenerateSignals(context.Background(), map[string]*types.MarketSeries{
		"BTC/USDT": series("BTC/USDT", longP, longV),
		"ETH/USDT": series("ETH/USDT", shortP, shortV),
	})

	require.Len(t, signals, 1)
	sig, ok := signals["BTC/USDT"]
	require.True(t, ok)
	assert.Equal(t, "BTC/USDT", sig.Symbol)
	assert.Equal(t, 1.0, sig.Confidence)
	assert.GreaterOrEqual(t, sig.Sentiment, -1.0)
	assert.LessOrEqual(t, sig.Sentiment, 1.0)
	assert.Contains(t, sig.Indicators, "rsi")
	assert.Contains(t, sig.Indicators, "macd")
	assert.Equal(t, Decide(sig.Sentiment, sig.Confidence), sig.Decision)
}

func TestAnalyzeConfidenceScalesWithHistory(t *testing.T) {
	g := NewSentimentGenerator(DefaultSentimentConfig())

	prices, volumes := wave(50)
	sig := g.Analyze(prices, volumes)
	assert.InDelta(t, 0.5, sig.Confidence, 1e-9)
	// confidence 0.5 never clears the BUY/SELL threshold
	assert.Equal(t, DecisionHold, sig.Decision)

	short := g.Analyze(prices[:10], volumes[:10])
	assert.Zero(t, short.Confidence)
	assert.Equal(t, DecisionHold, short.Decision)
}

func TestAnalyzeVolumeSpike(t *testing.T) {
	g := NewSentimentGenerator(DefaultSentimentConfig())

	prices, volumes := wave(100)
	base := g.Analyze(prices, volumes)

	spiked := append([]float64(nil), volumes...)
	spiked[len(spiked)-1] = 5000
	withSpike := g.Analyze(prices, spiked)

	assert.Equal(t, 1.0, withSpike.Indicators["volume"])
	assert.Equal(t, 0.0, base.Indicators["volume"])
	if base.Sentiment < 0.9 && base.Sentiment > -1 {
		assert.InDelta(t, base.Sentiment+0.1, withSpike.Sentiment, 1e-9)
	}
}

func TestGenerateSignalsHonorsCancelledContext(t *testing.T) {
	g := NewSentimentGenerator(DefaultSentimentConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prices, volumes := wave(100)
	signals := g.GenerateSignals(ctx, map[string]*types.MarketSeries{"BTC/USDT": series("BTC/USDT", prices, volumes)})
	assert.Empty(t, signals)
}
