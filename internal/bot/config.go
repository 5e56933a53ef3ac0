package bot

import (
	"time"

	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange"
)

// Trading modes
const (
	ModeManual     = "manual"
	ModeAuto       = "auto"
	ModeTrending   = "trending"
	ModeHighVolume = "high_volume"
)

// Config drives the orchestrator loop
type Config struct {
	TradingMode           string                `json:"trading_mode"`
	TradingPairs          []string              `json:"trading_pairs"`
	SymbolFilter          exchange.SymbolFilter `json:"symbol_filter"`
	SymbolRefreshInterval time.Duration         `json:"symbol_refresh_interval"`

	Timeframe        string        `json:"timeframe"`
	CandleLimit      int           `json:"candle_limit"`
	StaleAfter       time.Duration `json:"stale_after"`
	FetchConcurrency int           `json:"fetch_concurrency"`

	LoopInterval      time.Duration `json:"loop_interval"`
	ErrorBackoff      time.Duration `json:"error_backoff"`
	RiskCheckInterval time.Duration `json:"risk_check_interval"`
	CooldownPeriod    time.Duration `json:"cooldown_period"`
	LimitPause        time.Duration `json:"limit_pause"`

	MaxDailyTrades int     `json:"max_daily_trades"`
	MaxDailyLoss   float64 `json:"max_daily_loss"`

	InitialBalance  float64 `json:"initial_balance"`
	MaxPositionSize float64 `json:"max_position_size"`

	StopLossPct         float64 `json:"stop_loss_pct"`
	TakeProfitPct       float64 `json:"take_profit_pct"`
	TrailingStopEnabled bool    `json:"trailing_stop_enabled"`
	TrailingStopPct     float64 `json:"trailing_stop_pct"`
}

// DefaultConfig returns the stock loop settings
func DefaultConfig() Config {
	return Config{
		TradingMode:  ModeAuto,
		TradingPairs: []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"},
		SymbolFilter: exchange.SymbolFilter{
			QuoteAsset:   "USDT",
			MinVolumeUSD: 1_000_000,
			Limit:        50,
			Exclude:      []string{"USDT/USDT", "USDC/USDT"},
		},
		SymbolRefreshInterval: time.Hour,
		Timeframe:             "1h",
		CandleLimit:           100,
		StaleAfter:            time.Hour,
		FetchConcurrency:      4,
		LoopInterval:          300 * time.Second,
		ErrorBackoff:          60 * time.Second,
		RiskCheckInterval:     5 * time.Minute,
		CooldownPeriod:        300 * time.Second,
		LimitPause:            time.Hour,
		MaxDailyTrades:        10,
		MaxDailyLoss:          50,
		InitialBalance:        1000,
		MaxPositionSize:       0.1,
		StopLossPct:           2.0,
		TakeProfitPct:         5.0,
		TrailingStopEnabled:   true,
		TrailingStopPct:       1.0,
	}
}

// SymbolMode maps the trading mode onto a ranking mode
func (c Config) SymbolMode() exchange.SymbolMode {
	switch c.TradingMode {
	case ModeTrending:
		return exchange.SymbolModeTrending
	case ModeHighVolume:
		return exchange.SymbolModeHighVolume
	default:
		return exchange.SymbolModeAll
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TradingMode == "" {
		c.TradingMode = d.TradingMode
	}
	if c.SymbolRefreshInterval <= 0 {
		c.SymbolRefreshInterval = d.SymbolRefreshInterval
	}
	if c.Timeframe == "" {
		c.Timeframe = d.Timeframe
	}
	if c.CandleLimit <= 0 {
		c.CandleLimit = d.CandleLimit
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = d.StaleAfter
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = d.FetchConcurrency
	}
	if c.LoopInterval <= 0 {
		c.LoopInterval = d.LoopInterval
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = d.ErrorBackoff
	}
	if c.RiskCheckInterval <= 0 {
		c.RiskCheckInterval = d.RiskCheckInterval
	}
	if c.LimitPause <= 0 {
		c.LimitPause = d.LimitPause
	}
	return c
}
