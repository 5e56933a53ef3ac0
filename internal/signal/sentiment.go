package signal

import (
	"context"
	"math"
	"time"

	talib "github.com/markcheno/go-talib"

	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

// SentimentConfig holds indicator periods and decision thresholds
type SentimentConfig struct {
	MinPrices int `json:"min_prices"`

	RSIPeriod    int     `json:"rsi_period"`
	MACDFast     int     `json:"macd_fast"`
	MACDSlow     int     `json:"macd_slow"`
	MACDSignal   int     `json:"macd_signal"`
	BBPeriod     int     `json:"bb_period"`
	BBStdDev     float64 `json:"bb_std_dev"`
	ShortMA      int     `json:"short_ma"`
	LongMA       int     `json:"long_ma"`
	VolumeWindow int     `json:"volume_window"`

	// Weights of each component in the sentiment score
	RSIWeight    float64 `json:"rsi_weight"`
	MACDWeight   float64 `json:"macd_weight"`
	BBWeight     float64 `json:"bb_weight"`
	TrendWeight  float64 `json:"trend_weight"`
	VolumeWeight float64 `json:"volume_weight"`
}

// DefaultSentimentConfig returns the stock indicator settings
func DefaultSentimentConfig() SentimentConfig {
	return SentimentConfig{
		MinPrices:    50,
		RSIPeriod:    14,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		BBPeriod:     20,
		BBStdDev:     2.0,
		ShortMA:      10,
		LongMA:       30,
		VolumeWindow: 20,
		RSIWeight:    0.30,
		MACDWeight:   0.25,
		BBWeight:     0.20,
		TrendWeight:  0.15,
		VolumeWeight: 0.10,
	}
}

// SentimentGenerator scores each series with a weighted indicator consensus
type SentimentGenerator struct {
	config SentimentConfig
	now    func() time.Time
}

// NewSentimentGenerator creates a generator
func NewSentimentGenerator(cfg SentimentConfig) *SentimentGenerator {
	if cfg.MinPrices <= 0 {
		cfg.MinPrices = DefaultSentimentConfig().MinPrices
	}
	return &SentimentGenerator{config: cfg, now: time.Now}
}

// GenerateSignals analyzes every series with at least MinPrices closes
func (g *SentimentGenerator) GenerateSignals(ctx context.Context, data map[string]*types.MarketSeries) map[string]Signal {
	out := make(map[string]Signal, len(data))
	for symbol, series := range data {
		if ctx.Err() != nil {
			break
		}
		if series.Len() < g.config.MinPrices {
			continue
		}
		sig := g.Analyze(series.Prices, series.Volumes)
		sig.Symbol = symbol
		out[symbol] = sig
	}
	return out
}

// Analyze scores one price history. Short histories return a zero-confidence HOLD.
func (g *SentimentGenerator) Analyze(prices, volumes []float64) Signal {
	cfg := g.config
	sig := Signal{
		Decision:   DecisionHold,
		Indicators: map[string]float64{},
		Timestamp:  g.now(),
	}
	if len(prices) < cfg.MinPrices {
		return sig
	}

	current := prices[len(prices)-1]
	score := 0.0

	rsi := last(talib.Rsi(prices, cfg.RSIPeriod))
	switch {
	case rsi < 30:
		score += cfg.RSIWeight
	case rsi > 70:
		score -= cfg.RSIWeight
	default:
		score += (50 - rsi) / 50 * cfg.RSIWeight
	}

	macd, macdSignal, hist := talib.Macd(prices, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	m, s, h := last(macd), last(macdSignal), last(hist)
	switch {
	case m > s && h > 0:
		score += cfg.MACDWeight
	case m < s && h < 0:
		score -= cfg.MACDWeight
	case s != 0:
		score += clamp((m-s)/math.Abs(s), -1, 1) * cfg.MACDWeight
	}

	upper, middle, lower := talib.BBands(prices, cfg.BBPeriod, cfg.BBStdDev, cfg.BBStdDev, talib.SMA)
	u, mid, l := last(upper), last(middle), last(lower)
	switch {
	case current < l:
		score += cfg.BBWeight
	case current > u:
		score -= cfg.BBWeight
	case u > l:
		position := (current - l) / (u - l)
		score += (0.5 - position) * 2 * cfg.BBWeight
	}

	shortMA := mean(tail(prices, cfg.ShortMA))
	longMA := mean(tail(prices, cfg.LongMA))
	trend := -1.0
	if shortMA > longMA {
		trend = 1.0
	}
	score += trend * cfg.TrendWeight

	volumeSignal := 0.0
	if len(volumes) >= cfg.VolumeWindow && cfg.VolumeWindow > 0 {
		avg := mean(tail(volumes, cfg.VolumeWindow))
		cur := volumes[len(volumes)-1]
		switch {
		case cur > avg*1.5:
			volumeSignal = 1
		case cur < avg*0.5:
			volumeSignal = -1
		}
	}
	score += volumeSignal * cfg.VolumeWeight

	sig.Sentiment = clamp(score, -1, 1)
	sig.Confidence = math.Min(1, float64(len(prices))/100)
	sig.Decision = Decide(sig.Sentiment, sig.Confidence)
	sig.Indicators = map[string]float64{
		"rsi":         rsi,
		"macd":        m,
		"macd_signal": s,
		"macd_hist":   h,
		"bb_upper":    u,
		"bb_middle":   mid,
		"bb_lower":    l,
		"short_ma":    shortMA,
		"long_ma":     longMA,
		"volume":      volumeSignal,
		"price":       current,
	}
	return sig
}

// Decide maps sentiment and confidence onto a decision
func Decide(sentiment, confidence float64) Decision {
	switch {
	case confidence < 0.3:
		return DecisionHold
	case sentiment > 0.7 && confidence > 0.6:
		return DecisionStrongBuy
	case sentiment < -0.7 && confidence > 0.6:
		return DecisionStrongSell
	case sentiment > 0.3 && confidence > 0.5:
		return DecisionBuy
	case sentiment < -0.3 && confidence > 0.5:
		return DecisionSell
	default:
		return DecisionHold
	}
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	v := values[len(values)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func tail(values []float64, n int) []float64 {
	if n <= 0 || n > len(values) {
		return values
	}
	return values[len(values)-n:]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
