package risk

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// FallbackHandler is notified when sizing falls back to the simple 2% rule
type FallbackHandler func(operation string, err error)

// Calculator sizes positions and evaluates portfolio level risk. It keeps the
// bounded trade ledger and performs no I/O.
type Calculator struct {
	config Config
	sizer  PositionSizer
	ledger *Ledger

	mu         sync.RWMutex
	now        func() time.Time
	onFallback FallbackHandler
}

// NewCalculator creates a calculator with the configured sizing method
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{
		config: cfg,
		sizer:  NewPositionSizer(cfg.SizingMethod, cfg),
		ledger: NewLedger(cfg.ledgerCapacity()),
		now:    time.Now,
	}
}

// SetClock replaces the time source used for metric windows
func (c *Calculator) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// SetFallbackHandler registers a callback for sizing failures
func (c *Calculator) SetFallbackHandler(h FallbackHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFallback = h
}

// Config returns the calculator settings
func (c *Calculator) Config() Config {
	return c.config
}

// Ledger exposes the trade ledger
func (c *Calculator) Ledger() *Ledger {
	return c.ledger
}

func (c *Calculator) clock() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now()
}

// ConfidenceMultiplier scales the risk budget by signal confidence
func ConfidenceMultiplier(confidence float64) float64 {
	switch {
	case confidence >= 0.8:
		return 1.0
	case confidence >= 0.6:
		return 0.8
	case confidence >= 0.4:
		return 0.6
	default:
		return 0.4
	}
}

// RiskBudget returns the USD risk allowed for one trade, clamped to [min, max]
func (c *Calculator) RiskBudget(balance, confidence float64) float64 {
	budget := balance * (c.config.RiskPerTradePct / 100) * ConfidenceMultiplier(confidence)
	return math.Min(math.Max(budget, c.config.MinRiskUSD), c.config.MaxRiskUSD)
}

// MarketMultiplier returns the size scale for a market condition
func (c *Calculator) MarketMultiplier(condition MarketCondition) float64 {
	switch condition {
	case MarketBear:
		return c.config.BearMarketMultiplier
	case MarketBull:
		return c.config.BullMarketMultiplier
	case MarketVolatile:
		return 0.7
	default:
		return 1.0
	}
}

// CalculatePositionSize sizes a long entry. It never fails: any computation
// error falls back to risking 2% of balance at the stop distance.
func (c *Calculator) CalculatePositionSize(balance, entry, stop, confidence, volatility float64, condition MarketCondition) TradeRisk {
	if !c.config.MoneyManagementEnabled {
		return c.simplePositionSize(balance, entry, stop, confidence)
	}

	tr, err := c.sizePosition(balance, entry, stop, confidence, volatility, condition)
	if err != nil {
		c.mu.RLock()
		h := c.onFallback
		c.mu.RUnlock()
		if h != nil {
			h("calculate_position_size", err)
		}
		return c.simplePositionSize(balance, entry, stop, confidence)
	}
	return tr
}

func (c *Calculator) sizePosition(balance, entry, stop, confidence, volatility float64, condition MarketCondition) (TradeRisk, error) {
	if !finite(balance, entry, stop, confidence, volatility) {
		return TradeRisk{}, fmt.Errorf("non-finite sizing input")
	}
	if balance <= 0 {
		return TradeRisk{}, fmt.Errorf("balance must be positive, got %.4f", balance)
	}
	if entry <= 0 {
		return TradeRisk{}, fmt.Errorf("entry price must be positive, got %.8f", entry)
	}
	confidence = math.Min(math.Max(confidence, 0), 1)

	distance := math.Abs(entry - stop)
	if distance == 0 {
		return TradeRisk{}, fmt.Errorf("stop loss equals entry price %.8f", entry)
	}
	stopLossPct := distance / entry * 100

	budget := c.RiskBudget(balance, confidence)
	size, err := c.sizer.Size(SizingInput{
		Balance:     balance,
		EntryPrice:  entry,
		StopLossPct: stopLossPct,
		Confidence:  confidence,
		Volatility:  volatility,
		RiskBudget:  budget,
	})
	if err != nil {
		return TradeRisk{}, err
	}

	// Applied on top of the sizer, so the volatility adjusted method is scaled twice
	if c.config.VolatilityAdjustmentEnabled && volatility > 0 {
		switch {
		case volatility > c.config.HighVolatilityThreshold:
			size *= 0.8
		case volatility < c.config.LowVolatilityThreshold:
			size *= 1.1
		}
	}

	size *= c.MarketMultiplier(condition)
	if size < 0 || !finite(size) {
		size = 0
	}

	riskAmount := size * distance
	return TradeRisk{
		EntryPrice:      entry,
		StopLossPrice:   stop,
		TakeProfitPrice: entry * (1 + stopLossPct/100*RewardRiskRatio),
		PositionSize:    size,
		RiskAmount:      riskAmount,
		RiskPercentage:  riskAmount / balance * 100,
		Confidence:      confidence,
		Volatility:      volatility,
		RiskBudget:      budget,
		Method:          c.sizer.Method(),
	}, nil
}

// simplePositionSize risks a flat 2% of balance at the stop distance
func (c *Calculator) simplePositionSize(balance, entry, stop, confidence float64) TradeRisk {
	riskAmount := balance * fallbackRiskPct / 100
	distance := math.Abs(entry - stop)

	tr := TradeRisk{
		EntryPrice:      entry,
		StopLossPrice:   stop,
		TakeProfitPrice: entry,
		RiskAmount:      riskAmount,
		RiskPercentage:  fallbackRiskPct,
		Confidence:      confidence,
		RiskBudget:      riskAmount,
		Fallback:        true,
	}
	if distance <= 0 || entry <= 0 || !finite(riskAmount, distance) {
		tr.RiskAmount = 0
		return tr
	}

	tr.PositionSize = math.Max(riskAmount/distance, 0)
	tr.TakeProfitPrice = entry * (1 + distance/entry*RewardRiskRatio)
	return tr
}

// ClampPositionSize caps the size at maxSize and rescales the risk figures
func ClampPositionSize(tr TradeRisk, maxSize, balance float64) TradeRisk {
	if maxSize <= 0 || tr.PositionSize <= maxSize {
		return tr
	}
	tr.PositionSize = maxSize
	tr.RiskAmount = maxSize * math.Abs(tr.EntryPrice-tr.StopLossPrice)
	if balance > 0 {
		tr.RiskPercentage = tr.RiskAmount / balance * 100
	}
	return tr
}

// RecordTrade appends a filled trade to the ledger
func (c *Calculator) RecordTrade(tr TradeRecord) {
	c.ledger.Append(tr)
}

// Summary reports the active money management settings
func (c *Calculator) Summary() map[string]interface{} {
	cfg := c.config
	return map[string]interface{}{
		"money_management_enabled":      cfg.MoneyManagementEnabled,
		"position_sizing_method":        string(c.sizer.Method()),
		"risk_per_trade_pct":            cfg.RiskPerTradePct,
		"min_risk_usd":                  cfg.MinRiskUSD,
		"max_risk_usd":                  cfg.MaxRiskUSD,
		"kelly_fraction_cap":            cfg.KellyFractionCap,
		"max_portfolio_risk_pct":        cfg.MaxPortfolioRiskPct,
		"max_correlated_positions":      cfg.MaxCorrelatedPositions,
		"max_drawdown_pct":              cfg.MaxDrawdownPct,
		"max_daily_loss":                cfg.MaxDailyLoss,
		"max_weekly_loss":               cfg.MaxWeeklyLoss,
		"max_monthly_loss":              cfg.MaxMonthlyLoss,
		"cooldown_period":               cfg.CooldownPeriod.String(),
		"volatility_adjustment_enabled": cfg.VolatilityAdjustmentEnabled,
		"total_trades":                  c.ledger.Len(),
	}
}
