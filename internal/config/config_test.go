package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-trading-bot/internal/bot"
	boterrors "github.com/ducminhle1904/crypto-trading-bot/internal/errors"
	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2.0, cfg.RiskPerTradePercentage)
	assert.Equal(t, 10, cfg.MaxDailyTrades)
	assert.Equal(t, 300, cfg.CooldownPeriod)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"}, cfg.TradingPairs)
	assert.Equal(t, []string{"USDT/USDT", "USDC/USDT"}, cfg.ExcludedSymbols)
	assert.Equal(t, bot.ModeAuto, cfg.TradingMode)
	assert.Equal(t, 50, cfg.AutoSymbolLimit)
	assert.Equal(t, 20, cfg.TrendingSymbolLimit)
	assert.Equal(t, 1_000_000.0, cfg.MinVolumeUSD)
	assert.True(t, cfg.TrailingStopEnabled)
	assert.Equal(t, 1.0, cfg.TrailingStopPercentage)
	assert.Equal(t, 1000.0, cfg.InitialBalance)
	assert.Equal(t, 0.1, cfg.MaxPositionSize)
	assert.Equal(t, "bybit", cfg.Exchange)
	assert.Equal(t, "binance", cfg.MarketDataSource)

	rc := cfg.RiskConfig()
	assert.Equal(t, risk.SizingKelly, rc.SizingMethod)
	assert.Equal(t, 24*time.Hour, rc.DrawdownCooldown)
	assert.Equal(t, 300*time.Second, rc.CooldownPeriod)

	bc := cfg.BotConfig()
	assert.Equal(t, bot.ModeAuto, bc.TradingMode)
	assert.Equal(t, 50, bc.SymbolFilter.Limit)
	assert.Equal(t, []string{"USDT/USDT", "USDC/USDT"}, bc.SymbolFilter.Exclude)
	assert.True(t, bc.TrailingStopEnabled)
	assert.Equal(t, bot.DefaultConfig().SymbolFilter, bc.SymbolFilter, "loader and loop agree on defaults")
	assert.Equal(t, bot.DefaultConfig().TrailingStopEnabled, bc.TrailingStopEnabled)
	assert.Equal(t, 300*time.Second, bc.LoopInterval)
	assert.Equal(t, time.Hour, bc.SymbolRefreshInterval)
	assert.Equal(t, "USDT", bc.SymbolFilter.QuoteAsset)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("RISK_PER_TRADE_PERCENTAGE", "1.5")
	t.Setenv("TRADING_PAIRS", "btc/usdt, doge/usdt ,")
	t.Setenv("EXCLUDED_SYMBOLS", "LUNA/USDT")
	t.Setenv("TRADING_MODE", "Trending")
	t.Setenv("TRENDING_SYMBOL_LIMIT", "7")
	t.Setenv("TRAILING_STOP_ENABLED", "true")
	t.Setenv("DRAWDOWN_COOLDOWN_HOURS", "2")
	t.Setenv("LOOP_INTERVAL", "30")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1.5, cfg.RiskPerTradePercentage)
	assert.Equal(t, []string{"BTC/USDT", "DOGE/USDT"}, cfg.TradingPairs)
	assert.Equal(t, []string{"LUNA/USDT"}, cfg.ExcludedSymbols)
	assert.True(t, cfg.TrailingStopEnabled)
	assert.Equal(t, 2*time.Hour, cfg.RiskConfig().DrawdownCooldown)

	bc := cfg.BotConfig()
	assert.Equal(t, bot.ModeTrending, bc.TradingMode)
	assert.Equal(t, exchange.SymbolModeTrending, bc.SymbolMode())
	assert.Equal(t, 7, bc.SymbolFilter.Limit)
	assert.Equal(t, 30*time.Second, bc.LoopInterval)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yaml")
	content := `
exchange: paper
trading_pairs:
  - ada/usdt
  - xrp/usdt
max_daily_loss: 75
position_sizing_method: FIXED
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("MAX_DAILY_TRADES", "4")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "paper", cfg.Exchange)
	assert.Equal(t, []string{"ADA/USDT", "XRP/USDT"}, cfg.TradingPairs)
	assert.Equal(t, 75.0, cfg.MaxDailyLoss)
	assert.Equal(t, 4, cfg.MaxDailyTrades)
	assert.Equal(t, risk.SizingFixed, cfg.RiskConfig().SizingMethod)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, boterrors.ErrorCategoryConfiguration, boterrors.CategoryOf(err))
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.Exchange = "paper"
		return cfg
	}

	cfgErr := boterrors.ErrorCategoryConfiguration
	tests := []struct {
		name   string
		mutate func(c *Config)
		errs   int
		want   boterrors.ErrorCategory
	}{
		{"defaults with paper venue", func(c *Config) {}, 0, ""},
		{"bybit without credentials", func(c *Config) { c.Exchange = "bybit" }, 1, boterrors.ErrorCategoryCredentials},
		{"unknown mode", func(c *Config) { c.TradingMode = "yolo" }, 1, cfgErr},
		{"manual without pairs", func(c *Config) { c.TradingMode = bot.ModeManual; c.TradingPairs = nil }, 1, cfgErr},
		{"auto without pairs", func(c *Config) { c.TradingMode = bot.ModeAuto; c.TradingPairs = nil }, 0, ""},
		{"bad risk and position size", func(c *Config) { c.RiskPerTradePercentage = 0; c.MaxPositionSize = 0 }, 2, cfgErr},
		{"trailing stop out of range", func(c *Config) { c.TrailingStopEnabled = true; c.TrailingStopPercentage = 0 }, 1, cfgErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errs == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			all := boterrors.Errors(err)
			assert.Len(t, all, tt.errs)
			for _, e := range all {
				var botErr *boterrors.BotError
				require.ErrorAs(t, e, &botErr)
				assert.Equal(t, tt.want, botErr.Category)
				assert.True(t, botErr.IsFatal())
			}
		})
	}
}

func TestTelegramEnabled(t *testing.T) {
	cfg := &Config{TelegramBotToken: "t"}
	assert.False(t, cfg.TelegramEnabled())
	cfg.TelegramChatID = "1"
	assert.True(t, cfg.TelegramEnabled())
}
