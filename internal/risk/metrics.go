package risk

import "math"

// RestoreTrades replaces the ledger with persisted trades
func (c *Calculator) RestoreTrades(trades []TradeRecord) {
	c.ledger.Restore(trades)
}

// Trades returns the ledger content, oldest first
func (c *Calculator) Trades() []TradeRecord {
	return c.ledger.Trades()
}

// WeeklyPnL sums realized pnl of trades from the last seven whole days
func (c *Calculator) WeeklyPnL() float64 {
	now := c.clock()
	var total float64
	for _, t := range c.ledger.Trades() {
		if wholeDays(now.Sub(t.Timestamp).Hours()) <= 7 {
			total += t.PnL
		}
	}
	return total
}

// PortfolioMetrics derives performance figures from the ledger. An empty
// ledger yields zeroed metrics carrying the current balance.
func (c *Calculator) PortfolioMetrics(currentBalance, initialBalance float64) PortfolioMetrics {
	trades := c.ledger.Trades()
	if len(trades) == 0 {
		return PortfolioMetrics{TotalBalance: currentBalance}
	}

	now := c.clock()
	m := PortfolioMetrics{
		TotalBalance: currentBalance,
		TotalTrades:  len(trades),
	}

	var (
		grossWin, grossLoss float64
		wins, losses        int
		returns             []float64
	)
	history := make([]float64, 0, len(trades)+1)
	history = append(history, initialBalance)
	running := initialBalance

	for _, t := range trades {
		m.TotalPnL += t.PnL

		age := now.Sub(t.Timestamp).Hours()
		if age < 24 {
			m.DailyPnL += t.PnL
		}
		days := wholeDays(age)
		if days <= 7 {
			m.WeeklyPnL += t.PnL
		}
		if days <= 30 {
			m.MonthlyPnL += t.PnL
		}

		switch {
		case t.PnL > 0:
			wins++
			grossWin += t.PnL
		case t.PnL < 0:
			losses++
			grossLoss += math.Abs(t.PnL)
		}
		if t.PnLPercentage != 0 {
			returns = append(returns, t.PnLPercentage)
		}

		running += t.PnL
		history = append(history, running)
	}

	if initialBalance > 0 {
		m.TotalPnLPercentage = m.TotalPnL / initialBalance * 100
	}
	m.WinRate = float64(wins) / float64(len(trades)) * 100
	if grossLoss > 0 {
		m.ProfitFactor = grossWin / grossLoss
	}
	if wins > 0 {
		m.AverageWin = grossWin / float64(wins)
	}
	if losses > 0 {
		m.AverageLoss = grossLoss / float64(losses)
	}
	if m.AverageLoss > 0 {
		m.RiskRewardRatio = m.AverageWin / m.AverageLoss
	}

	dd := CalculateDrawdown(history)
	m.MaxDrawdown = dd.MaxDrawdown
	m.MaxDrawdownPercentage = dd.MaxDrawdownPercentage
	m.SharpeRatio = sharpe(returns)
	return m
}

func wholeDays(hours float64) int {
	return int(math.Floor(hours / 24))
}

// sharpe is mean over population standard deviation, 0 without variance
func sharpe(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	std := math.Sqrt(variance / float64(len(returns)))
	if std == 0 {
		return 0
	}
	return mean / std
}
