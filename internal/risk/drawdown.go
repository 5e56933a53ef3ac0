package risk

import "fmt"

// CalculateDrawdown walks the balance history once, tracking the running peak
// and the largest peak-to-trough decline
func CalculateDrawdown(history []float64) DrawdownResult {
	if len(history) < 2 {
		var peak float64
		if len(history) == 1 {
			peak = history[0]
		}
		return DrawdownResult{PeakBalance: peak}
	}

	peak := history[0]
	var result DrawdownResult
	for _, balance := range history {
		if balance > peak {
			peak = balance
		}
		drawdown := peak - balance
		if drawdown > result.MaxDrawdown {
			result.MaxDrawdown = drawdown
			if peak > 0 {
				result.MaxDrawdownPercentage = drawdown / peak * 100
			}
		}
	}

	result.PeakBalance = peak
	result.CurrentDrawdown = peak - history[len(history)-1]
	return result
}

// ShouldStopTrading checks the daily loss, weekly loss and drawdown limits in
// that order; the first breach decides the cooldown
func (c *Calculator) ShouldStopTrading(balance, initialBalance, dailyPnL, weeklyPnL float64) StopDecision {
	cfg := c.config

	if cfg.MaxDailyLoss > 0 && dailyPnL <= -cfg.MaxDailyLoss {
		return StopDecision{
			ShouldStop:     true,
			Reason:         fmt.Sprintf("Daily loss limit reached: %.2f USD (limit %.2f)", dailyPnL, cfg.MaxDailyLoss),
			Cooldown:       cfg.CooldownPeriod,
			Recommendation: "Pause trading until the cooldown expires",
		}
	}

	if cfg.MaxWeeklyLoss > 0 && weeklyPnL <= -cfg.MaxWeeklyLoss {
		return StopDecision{
			ShouldStop:     true,
			Reason:         fmt.Sprintf("Weekly loss limit reached: %.2f USD (limit %.2f)", weeklyPnL, cfg.MaxWeeklyLoss),
			Cooldown:       weeklyLossCooldown,
			Recommendation: "Pause trading for 24 hours and review the strategy",
		}
	}

	if initialBalance > 0 {
		drawdownPct := (initialBalance - balance) / initialBalance * 100
		if drawdownPct >= cfg.MaxDrawdownPct {
			return StopDecision{
				ShouldStop:     true,
				Reason:         fmt.Sprintf("Maximum drawdown reached: %.2f%% (limit %.2f%%)", drawdownPct, cfg.MaxDrawdownPct),
				Cooldown:       cfg.DrawdownCooldown,
				Recommendation: fmt.Sprintf("Pause trading for %s and reassess risk", cfg.DrawdownCooldown),
			}
		}
	}

	return StopDecision{}
}
