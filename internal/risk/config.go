package risk

import (
	"fmt"
	"strings"
	"time"
)

// SizingMethod names a position sizing policy
type SizingMethod string

const (
	SizingKelly              SizingMethod = "kelly"
	SizingFixed              SizingMethod = "fixed"
	SizingPercentage         SizingMethod = "percentage"
	SizingVolatilityAdjusted SizingMethod = "volatility_adjusted"
)

// MarketCondition is the regime label used to scale position sizes
type MarketCondition string

const (
	MarketBull     MarketCondition = "BULL"
	MarketBear     MarketCondition = "BEAR"
	MarketSideways MarketCondition = "SIDEWAYS"
	MarketVolatile MarketCondition = "VOLATILE"
)

// ParseMarketCondition maps free text to a MarketCondition, SIDEWAYS when unknown
func ParseMarketCondition(s string) MarketCondition {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BULL":
		return MarketBull
	case "BEAR":
		return MarketBear
	case "VOLATILE":
		return MarketVolatile
	default:
		return MarketSideways
	}
}

const (
	// RewardRiskRatio is the fixed reward:risk used for Kelly odds and take profit
	RewardRiskRatio = 2.5

	// DefaultLedgerCapacity bounds the in-memory trade ledger
	DefaultLedgerCapacity = 1000

	fallbackRiskPct        = 2.0
	unknownPositionRiskPct = 2.0
	weeklyLossCooldown     = 24 * time.Hour
)

// Config holds the money management settings
type Config struct {
	MoneyManagementEnabled      bool `json:"money_management_enabled"`
	VolatilityAdjustmentEnabled bool `json:"volatility_adjustment_enabled"`

	// Per-trade risk budget
	RiskPerTradePct float64 `json:"risk_per_trade_pct"`
	MaxRiskUSD      float64 `json:"max_risk_usd"`
	MinRiskUSD      float64 `json:"min_risk_usd"`

	// Sizing policy
	SizingMethod     SizingMethod `json:"position_sizing_method"`
	KellyFractionCap float64      `json:"kelly_fraction_cap"`
	FixedUSDAmount   float64      `json:"fixed_usd_amount"`
	PercentageAmount float64      `json:"percentage_amount"`

	// Portfolio limits
	MaxPortfolioRiskPct    float64 `json:"max_portfolio_risk_pct"`
	MaxCorrelatedPositions int     `json:"max_correlated_positions"`

	// Drawdown and loss limits
	MaxDrawdownPct   float64       `json:"max_drawdown_pct"`
	DrawdownCooldown time.Duration `json:"drawdown_cooldown"`
	MaxDailyLoss     float64       `json:"max_daily_loss"`
	MaxWeeklyLoss    float64       `json:"max_weekly_loss"`
	MaxMonthlyLoss   float64       `json:"max_monthly_loss"`
	CooldownPeriod   time.Duration `json:"cooldown_period"`

	// Volatility and market regime scaling
	HighVolatilityThreshold float64 `json:"high_volatility_threshold"`
	LowVolatilityThreshold  float64 `json:"low_volatility_threshold"`
	BearMarketMultiplier    float64 `json:"bear_market_multiplier"`
	BullMarketMultiplier    float64 `json:"bull_market_multiplier"`

	LedgerCapacity int `json:"ledger_capacity"`
}

// DefaultConfig returns the stock money management settings
func DefaultConfig() Config {
	return Config{
		MoneyManagementEnabled:      true,
		VolatilityAdjustmentEnabled: true,
		RiskPerTradePct:             2.0,
		MaxRiskUSD:                  20.0,
		MinRiskUSD:                  5.0,
		SizingMethod:                SizingKelly,
		KellyFractionCap:            0.25,
		FixedUSDAmount:              50.0,
		PercentageAmount:            5.0,
		MaxPortfolioRiskPct:         10.0,
		MaxCorrelatedPositions:      3,
		MaxDrawdownPct:              15.0,
		DrawdownCooldown:            24 * time.Hour,
		MaxDailyLoss:                50.0,
		MaxWeeklyLoss:               200.0,
		MaxMonthlyLoss:              500.0,
		CooldownPeriod:              300 * time.Second,
		HighVolatilityThreshold:     50.0,
		LowVolatilityThreshold:      10.0,
		BearMarketMultiplier:        0.5,
		BullMarketMultiplier:        1.2,
		LedgerCapacity:              DefaultLedgerCapacity,
	}
}

// Validate checks the settings for values that make sizing meaningless
func (c Config) Validate() error {
	if c.RiskPerTradePct <= 0 || c.RiskPerTradePct > 100 {
		return fmt.Errorf("risk_per_trade_pct must be in (0, 100], got %.2f", c.RiskPerTradePct)
	}
	if c.MinRiskUSD < 0 || c.MaxRiskUSD <= 0 {
		return fmt.Errorf("risk bounds must be positive (min %.2f, max %.2f)", c.MinRiskUSD, c.MaxRiskUSD)
	}
	if c.MinRiskUSD > c.MaxRiskUSD {
		return fmt.Errorf("min_risk_usd %.2f exceeds max_risk_usd %.2f", c.MinRiskUSD, c.MaxRiskUSD)
	}
	if c.KellyFractionCap < 0 || c.KellyFractionCap > 1 {
		return fmt.Errorf("kelly_fraction_cap must be in [0, 1], got %.2f", c.KellyFractionCap)
	}
	if c.LowVolatilityThreshold > c.HighVolatilityThreshold {
		return fmt.Errorf("low volatility threshold %.2f exceeds high threshold %.2f",
			c.LowVolatilityThreshold, c.HighVolatilityThreshold)
	}
	if c.MaxCorrelatedPositions < 0 {
		return fmt.Errorf("max_correlated_positions cannot be negative")
	}
	if c.BearMarketMultiplier < 0 || c.BullMarketMultiplier < 0 {
		return fmt.Errorf("market multipliers cannot be negative")
	}
	return nil
}

func (c Config) ledgerCapacity() int {
	if c.LedgerCapacity <= 0 {
		return DefaultLedgerCapacity
	}
	return c.LedgerCapacity
}
