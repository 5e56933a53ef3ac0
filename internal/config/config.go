package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/ducminhle1904/crypto-trading-bot/internal/bot"
	boterrors "github.com/ducminhle1904/crypto-trading-bot/internal/errors"
	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
)

// Config is the flattened bot configuration. Every key can come from the
// YAML file or from the environment variable of the same name in upper case.
type Config struct {
	// Money management
	MoneyManagementEnabled      bool    `mapstructure:"money_management_enabled"`
	VolatilityAdjustmentEnabled bool    `mapstructure:"volatility_adjustment_enabled"`
	RiskPerTradePercentage      float64 `mapstructure:"risk_per_trade_percentage"`
	MaxRiskPerTradeUSD          float64 `mapstructure:"max_risk_per_trade_usd"`
	MinRiskPerTradeUSD          float64 `mapstructure:"min_risk_per_trade_usd"`
	PositionSizingMethod        string  `mapstructure:"position_sizing_method"`
	KellyFraction               float64 `mapstructure:"kelly_fraction"`
	FixedPositionSizeUSD        float64 `mapstructure:"fixed_position_size_usd"`
	PercentagePositionSize      float64 `mapstructure:"percentage_position_size"`
	MaxPortfolioRiskPercentage  float64 `mapstructure:"max_portfolio_risk_percentage"`
	MaxCorrelatedPositions      int     `mapstructure:"max_correlated_positions"`
	MaxDrawdownPercentage       float64 `mapstructure:"max_drawdown_percentage"`
	DrawdownCooldownHours       float64 `mapstructure:"drawdown_cooldown_hours"`
	MaxDailyLoss                float64 `mapstructure:"max_daily_loss"`
	MaxWeeklyLoss               float64 `mapstructure:"max_weekly_loss"`
	MaxMonthlyLoss              float64 `mapstructure:"max_monthly_loss"`
	CooldownPeriod              int     `mapstructure:"cooldown_period"` // seconds
	MaxDailyTrades              int     `mapstructure:"max_daily_trades"`
	HighVolatilityThreshold     float64 `mapstructure:"high_volatility_threshold"`
	LowVolatilityThreshold      float64 `mapstructure:"low_volatility_threshold"`
	BearMarketRiskReduction     float64 `mapstructure:"bear_market_risk_reduction"`
	BullMarketRiskIncrease      float64 `mapstructure:"bull_market_risk_increase"`

	// Trading
	InitialBalance         float64  `mapstructure:"initial_balance"`
	MaxPositionSize        float64  `mapstructure:"max_position_size"`
	StopLossPercentage     float64  `mapstructure:"stop_loss_percentage"`
	TakeProfitPercentage   float64  `mapstructure:"take_profit_percentage"`
	TrailingStopEnabled    bool     `mapstructure:"trailing_stop_enabled"`
	TrailingStopPercentage float64  `mapstructure:"trailing_stop_percentage"`
	LoopInterval           int      `mapstructure:"loop_interval"` // seconds
	TradingMode            string   `mapstructure:"trading_mode"`
	TradingPairs           []string `mapstructure:"trading_pairs"`
	AutoSymbolLimit        int      `mapstructure:"auto_symbol_limit"`
	TrendingSymbolLimit    int      `mapstructure:"trending_symbol_limit"`
	MinVolumeUSD           float64  `mapstructure:"min_volume_usd"`
	ExcludedSymbols        []string `mapstructure:"excluded_symbols"`
	SymbolRefreshInterval  int      `mapstructure:"symbol_refresh_interval"` // seconds
	QuoteCoin              string   `mapstructure:"quote_coin"`

	// Exchange
	Exchange         string  `mapstructure:"exchange"`
	MarketDataSource string  `mapstructure:"market_data_source"`
	BybitAPIKey      string  `mapstructure:"bybit_api_key"`
	BybitAPISecret   string  `mapstructure:"bybit_api_secret"`
	BybitTestnet     bool    `mapstructure:"bybit_testnet"`
	BybitDemo        bool    `mapstructure:"bybit_demo"`
	BinanceAPIKey    string  `mapstructure:"binance_api_key"`
	BinanceAPISecret string  `mapstructure:"binance_api_secret"`
	PaperFeeRate     float64 `mapstructure:"paper_fee_rate"`
	CSVDataDir       string  `mapstructure:"csv_data_dir"`
	CSVExchange      string  `mapstructure:"csv_exchange"`
	CSVUnixMillis    bool    `mapstructure:"csv_unix_millis"`

	// Notifications
	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	TelegramChatID   string `mapstructure:"telegram_chat_id"`

	// Runtime
	HTTPAddr string `mapstructure:"http_addr"`
	DBPath   string `mapstructure:"db_path"`
	StateDir string `mapstructure:"state_dir"`
	LogDir   string `mapstructure:"log_dir"`
	LogLevel string `mapstructure:"log_level"`
}

var defaults = map[string]interface{}{
	"money_management_enabled":      true,
	"volatility_adjustment_enabled": true,
	"risk_per_trade_percentage":     2.0,
	"max_risk_per_trade_usd":        20.0,
	"min_risk_per_trade_usd":        5.0,
	"position_sizing_method":        string(risk.SizingKelly),
	"kelly_fraction":                0.25,
	"fixed_position_size_usd":       50.0,
	"percentage_position_size":      5.0,
	"max_portfolio_risk_percentage": 10.0,
	"max_correlated_positions":      3,
	"max_drawdown_percentage":       15.0,
	"drawdown_cooldown_hours":       24.0,
	"max_daily_loss":                50.0,
	"max_weekly_loss":               200.0,
	"max_monthly_loss":              500.0,
	"cooldown_period":               300,
	"max_daily_trades":              10,
	"high_volatility_threshold":     50.0,
	"low_volatility_threshold":      10.0,
	"bear_market_risk_reduction":    0.5,
	"bull_market_risk_increase":     1.2,

	"initial_balance":          1000.0,
	"max_position_size":        0.1,
	"stop_loss_percentage":     2.0,
	"take_profit_percentage":   5.0,
	"trailing_stop_enabled":    true,
	"trailing_stop_percentage": 1.0,
	"loop_interval":            0,
	"trading_mode":             bot.ModeAuto,
	"trading_pairs":            "BTC/USDT,ETH/USDT,SOL/USDT",
	"auto_symbol_limit":        50,
	"trending_symbol_limit":    20,
	"min_volume_usd":           1_000_000.0,
	"excluded_symbols":         "USDT/USDT,USDC/USDT",
	"symbol_refresh_interval":  3600,
	"quote_coin":               "USDT",

	"exchange":           "bybit",
	"market_data_source": "binance",
	"bybit_api_key":      "",
	"bybit_api_secret":   "",
	"bybit_testnet":      false,
	"bybit_demo":         true,
	"binance_api_key":    "",
	"binance_api_secret": "",
	"paper_fee_rate":     0.001,
	"csv_data_dir":       "data/candles",
	"csv_exchange":       "binance",
	"csv_unix_millis":    false,

	"telegram_bot_token": "",
	"telegram_chat_id":   "",

	"http_addr": ":8080",
	"db_path":   "data/trades.db",
	"state_dir": "data",
	"log_dir":   "logs",
	"log_level": "info",
}

// Load reads the optional YAML file at path and overlays the environment.
// An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, "config", "load").
				WithContext("path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, "config", "unmarshal")
	}
	// lists arrive as comma separated text from the environment
	cfg.TradingPairs = symbolList(v.Get("trading_pairs"))
	cfg.ExcludedSymbols = symbolList(v.Get("excluded_symbols"))
	cfg.TradingMode = strings.ToLower(strings.TrimSpace(cfg.TradingMode))
	cfg.Exchange = strings.ToLower(strings.TrimSpace(cfg.Exchange))
	cfg.MarketDataSource = strings.ToLower(strings.TrimSpace(cfg.MarketDataSource))
	cfg.QuoteCoin = strings.ToUpper(strings.TrimSpace(cfg.QuoteCoin))
	return cfg, nil
}

func symbolList(raw interface{}) []string {
	var items []string
	if s, ok := raw.(string); ok {
		items = strings.Split(s, ",")
	} else {
		items = cast.ToStringSlice(raw)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToUpper(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate reports every invalid setting as a CONFIG error
func (c *Config) Validate() error {
	var errs []error
	fail := func(op, format string, args ...interface{}) {
		errs = append(errs, boterrors.NewConfigurationError("config", op, fmt.Sprintf(format, args...)))
	}

	if err := c.RiskConfig().Validate(); err != nil {
		fail("risk", "%v", err)
	}
	switch c.TradingMode {
	case bot.ModeManual:
		if len(c.TradingPairs) == 0 {
			fail("trading_pairs", "manual mode needs at least one trading pair")
		}
	case bot.ModeAuto, bot.ModeTrending, bot.ModeHighVolume:
	default:
		fail("trading_mode", "unknown trading mode %q", c.TradingMode)
	}
	if c.InitialBalance <= 0 {
		fail("initial_balance", "initial balance must be positive, got %.2f", c.InitialBalance)
	}
	if c.MaxPositionSize <= 0 {
		fail("max_position_size", "max position size must be positive, got %v", c.MaxPositionSize)
	}
	if c.StopLossPercentage <= 0 || c.StopLossPercentage >= 100 {
		fail("stop_loss_percentage", "stop loss must be in (0, 100), got %.2f", c.StopLossPercentage)
	}
	if c.TakeProfitPercentage <= 0 {
		fail("take_profit_percentage", "take profit must be positive, got %.2f", c.TakeProfitPercentage)
	}
	if c.TrailingStopEnabled && (c.TrailingStopPercentage <= 0 || c.TrailingStopPercentage >= 100) {
		fail("trailing_stop_percentage", "trailing stop must be in (0, 100), got %.2f", c.TrailingStopPercentage)
	}
	if c.MaxDailyTrades <= 0 {
		fail("max_daily_trades", "max daily trades must be positive, got %d", c.MaxDailyTrades)
	}
	if c.CooldownPeriod < 0 {
		fail("cooldown_period", "cooldown period cannot be negative")
	}
	if err := c.ExchangeConfig().Validate(); err != nil {
		if errors.Is(err, exchange.ErrMissingCredentials) {
			errs = append(errs, boterrors.NewCredentialsError("config", "exchange", err.Error()))
		} else {
			errs = append(errs, boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, "config", "exchange"))
		}
	}
	return boterrors.Combine(errs...)
}

// RiskConfig converts the money management settings
func (c *Config) RiskConfig() risk.Config {
	cfg := risk.DefaultConfig()
	cfg.MoneyManagementEnabled = c.MoneyManagementEnabled
	cfg.VolatilityAdjustmentEnabled = c.VolatilityAdjustmentEnabled
	cfg.RiskPerTradePct = c.RiskPerTradePercentage
	cfg.MaxRiskUSD = c.MaxRiskPerTradeUSD
	cfg.MinRiskUSD = c.MinRiskPerTradeUSD
	cfg.SizingMethod = risk.SizingMethod(strings.ToLower(c.PositionSizingMethod))
	cfg.KellyFractionCap = c.KellyFraction
	cfg.FixedUSDAmount = c.FixedPositionSizeUSD
	cfg.PercentageAmount = c.PercentagePositionSize
	cfg.MaxPortfolioRiskPct = c.MaxPortfolioRiskPercentage
	cfg.MaxCorrelatedPositions = c.MaxCorrelatedPositions
	cfg.MaxDrawdownPct = c.MaxDrawdownPercentage
	cfg.DrawdownCooldown = time.Duration(c.DrawdownCooldownHours * float64(time.Hour))
	cfg.MaxDailyLoss = c.MaxDailyLoss
	cfg.MaxWeeklyLoss = c.MaxWeeklyLoss
	cfg.MaxMonthlyLoss = c.MaxMonthlyLoss
	cfg.CooldownPeriod = seconds(c.CooldownPeriod)
	cfg.HighVolatilityThreshold = c.HighVolatilityThreshold
	cfg.LowVolatilityThreshold = c.LowVolatilityThreshold
	cfg.BearMarketMultiplier = c.BearMarketRiskReduction
	cfg.BullMarketMultiplier = c.BullMarketRiskIncrease
	return cfg
}

// BotConfig converts the loop settings
func (c *Config) BotConfig() bot.Config {
	cfg := bot.DefaultConfig()
	cfg.TradingMode = c.TradingMode
	cfg.TradingPairs = append([]string(nil), c.TradingPairs...)
	cfg.SymbolFilter = exchange.SymbolFilter{
		QuoteAsset:   c.QuoteCoin,
		MinVolumeUSD: c.MinVolumeUSD,
		Limit:        c.AutoSymbolLimit,
		Exclude:      append([]string(nil), c.ExcludedSymbols...),
	}
	if c.TradingMode == bot.ModeTrending {
		cfg.SymbolFilter.Limit = c.TrendingSymbolLimit
	}
	cfg.SymbolRefreshInterval = seconds(c.SymbolRefreshInterval)
	cfg.CooldownPeriod = seconds(c.CooldownPeriod)
	cfg.LoopInterval = cfg.CooldownPeriod
	if c.LoopInterval > 0 {
		cfg.LoopInterval = seconds(c.LoopInterval)
	}
	cfg.MaxDailyTrades = c.MaxDailyTrades
	cfg.MaxDailyLoss = c.MaxDailyLoss
	cfg.InitialBalance = c.InitialBalance
	cfg.MaxPositionSize = c.MaxPositionSize
	cfg.StopLossPct = c.StopLossPercentage
	cfg.TakeProfitPct = c.TakeProfitPercentage
	cfg.TrailingStopEnabled = c.TrailingStopEnabled
	cfg.TrailingStopPct = c.TrailingStopPercentage
	return cfg
}

// ExchangeConfig converts the venue and market data settings
func (c *Config) ExchangeConfig() exchange.ExchangeConfig {
	return exchange.ExchangeConfig{
		Name:             c.Exchange,
		MarketDataSource: c.MarketDataSource,
		Bybit: &exchange.BybitConfig{
			APIKey:    c.BybitAPIKey,
			APISecret: c.BybitAPISecret,
			Testnet:   c.BybitTestnet,
			Demo:      c.BybitDemo,
			Category:  "spot",
			QuoteCoin: c.QuoteCoin,
		},
		Binance: &exchange.BinanceConfig{
			APIKey:    c.BinanceAPIKey,
			APISecret: c.BinanceAPISecret,
			QuoteCoin: c.QuoteCoin,
		},
		Paper: &exchange.PaperConfig{
			InitialBalance: c.InitialBalance,
			QuoteCoin:      c.QuoteCoin,
			FeeRate:        c.PaperFeeRate,
		},
		CSV: &exchange.CSVConfig{
			Dir:        c.CSVDataDir,
			Exchange:   c.CSVExchange,
			QuoteCoin:  c.QuoteCoin,
			UnixMillis: c.CSVUnixMillis,
		},
	}
}

// TelegramEnabled reports whether both Telegram settings are present
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
