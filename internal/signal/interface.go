package signal

import (
	"context"
	"time"

	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

// Decision is the action a signal recommends
type Decision string

const (
	DecisionHold       Decision = "HOLD"
	DecisionBuy        Decision = "BUY"
	DecisionStrongBuy  Decision = "STRONG_BUY"
	DecisionSell       Decision = "SELL"
	DecisionStrongSell Decision = "STRONG_SELL"
)

// IsBuy reports BUY or STRONG_BUY
func (d Decision) IsBuy() bool {
	return d == DecisionBuy || d == DecisionStrongBuy
}

// IsSell reports SELL or STRONG_SELL
func (d Decision) IsSell() bool {
	return d == DecisionSell || d == DecisionStrongSell
}

// Signal is a per-symbol trading recommendation
type Signal struct {
	Symbol     string             `json:"symbol"`
	Decision   Decision           `json:"decision"`
	Confidence float64            `json:"confidence"` // 0..1
	Sentiment  float64            `json:"sentiment"`  // -1..1
	Indicators map[string]float64 `json:"indicators,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}

// Source produces signals from market series. Symbols without enough data
// are omitted from the result.
type Source interface {
	GenerateSignals(ctx context.Context, data map[string]*types.MarketSeries) map[string]Signal
}
