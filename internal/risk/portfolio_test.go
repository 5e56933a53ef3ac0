package risk

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPortfolioRisk(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	report := calc.CheckPortfolioRisk([]Exposure{
		{Symbol: "BTC/USDT", RiskAmount: 20, RiskKnown: true},
		{Symbol: "ETH/USDT", RiskAmount: 15, RiskKnown: true},
	}, 1000)

	assert.InDelta(t, 35.0, report.TotalRiskUSD, 1e-9)
	assert.InDelta(t, 3.5, report.RiskPercentage, 1e-9)
	assert.Equal(t, RiskLevelLow, report.RiskLevel)
	assert.Empty(t, report.Warnings)
	assert.InDelta(t, 100.0, report.MaxRiskAllowed, 1e-9, "10% of a $1000 balance")
	assert.Less(t, report.TotalRiskUSD, report.MaxRiskAllowed)

	empty := calc.CheckPortfolioRisk(nil, 0)
	assert.Zero(t, empty.MaxRiskAllowed)
}

func TestCheckPortfolioRiskUnknownAndExtreme(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	positions := make([]Exposure, 0, 9)
	for i := 0; i < 9; i++ {
		positions = append(positions, Exposure{Symbol: fmt.Sprintf("C%d/USDT", i)})
	}
	report := calc.CheckPortfolioRisk(positions, 1000)

	// nine unknown positions at 2% each
	assert.InDelta(t, 180.0, report.TotalRiskUSD, 1e-9)
	assert.Equal(t, RiskLevelExtreme, report.RiskLevel)
	require.Len(t, report.Warnings, 2)
	assert.Contains(t, report.Warnings[1], "EXTREME")
	assert.Len(t, report.Recommendations, 1)
}

func TestClassifyRiskLevelBoundaries(t *testing.T) {
	tests := []struct {
		pct  float64
		want RiskLevel
	}{
		{0, RiskLevelLow},
		{5, RiskLevelLow},
		{5.0001, RiskLevelMedium},
		{10, RiskLevelMedium},
		{10.5, RiskLevelHigh},
		{15, RiskLevelHigh},
		{15.01, RiskLevelExtreme},
		{200, RiskLevelExtreme},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyRiskLevel(tt.pct), "pct=%v", tt.pct)
	}
}

func TestCheckCorrelationRisk(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	report := calc.CheckCorrelationRisk([]string{"BTC/USDT", "ETH/USDT", "SOL/USDT", "ADA/USDT", "UNI/USDT", "XYZ/USDT"})

	assert.Equal(t, 4, report.SectorExposure[SectorLayer1])
	assert.Equal(t, 1, report.SectorExposure[SectorDeFi])
	assert.Equal(t, 0, report.SectorExposure[SectorGaming])
	assert.Equal(t, []string{SectorLayer1}, report.HighCorrelationSectors)
	require.Len(t, report.Recommendations, 1)
	assert.Contains(t, report.Recommendations[0], "Diversify")
}

func TestSectorOf(t *testing.T) {
	s, ok := SectorOf("doge/usdt")
	assert.True(t, ok)
	assert.Equal(t, SectorMemecoin, s)

	_, ok = SectorOf("XRP/USDT")
	assert.False(t, ok)
	assert.Equal(t, "BTC", BaseAsset("BTC"))
}

func TestCalculateDrawdown(t *testing.T) {
	dd := CalculateDrawdown([]float64{1000, 1050, 1020, 1100, 1080})

	assert.InDelta(t, 30.0, dd.MaxDrawdown, 1e-9)
	assert.InDelta(t, 30.0/1050*100, dd.MaxDrawdownPercentage, 1e-9)
	assert.InDelta(t, 20.0, dd.CurrentDrawdown, 1e-9)
	assert.Equal(t, 1100.0, dd.PeakBalance)

	assert.Equal(t, DrawdownResult{}, CalculateDrawdown(nil))
	assert.Equal(t, DrawdownResult{PeakBalance: 500}, CalculateDrawdown([]float64{500}))
}

func TestDrawdownIsBoundedByPeak(t *testing.T) {
	histories := [][]float64{
		{100, 90, 80, 70},
		{100, 200, 50, 300, 10},
		{1, 2, 3, 4},
		{10, 10, 10},
	}
	for _, h := range histories {
		dd := CalculateDrawdown(h)
		assert.GreaterOrEqual(t, dd.MaxDrawdownPercentage, 0.0)
		assert.LessOrEqual(t, dd.MaxDrawdown, dd.PeakBalance)
	}
}

func TestShouldStopTrading(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	tests := []struct {
		name     string
		balance  float64
		daily    float64
		weekly   float64
		stop     bool
		reason   string
		cooldown time.Duration
	}{
		{"daily loss", 1000, -60, -60, true, "Daily loss", 300 * time.Second},
		{"daily wins over weekly", 800, -60, -300, true, "Daily loss", 300 * time.Second},
		{"weekly loss", 1000, -10, -250, true, "Weekly loss", 24 * time.Hour},
		{"drawdown", 850, 0, 0, true, "drawdown", 24 * time.Hour},
		{"healthy", 990, -10, -20, false, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := calc.ShouldStopTrading(tt.balance, 1000, tt.daily, tt.weekly)
			assert.Equal(t, tt.stop, d.ShouldStop)
			assert.Equal(t, tt.cooldown, d.Cooldown)
			if tt.stop {
				assert.Contains(t, d.Reason, tt.reason)
			} else {
				assert.Empty(t, d.Reason)
			}
		})
	}
}

func TestLedgerKeepsMostRecent(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	for i := 0; i < 1001; i++ {
		calc.RecordTrade(TradeRecord{ID: fmt.Sprintf("t%d", i)})
	}

	trades := calc.Trades()
	require.Len(t, trades, 1000)
	assert.Equal(t, "t1", trades[0].ID)
	assert.Equal(t, "t1000", trades[999].ID)
}

func TestRestoreTradesTrimsToCapacity(t *testing.T) {
	l := NewLedger(3)
	l.Restore([]TradeRecord{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}})
	trades := l.Trades()
	require.Len(t, trades, 3)
	assert.Equal(t, "b", trades[0].ID)

	l.Append(TradeRecord{ID: "e"})
	assert.Equal(t, "c", l.Trades()[0].ID)
}

func TestPortfolioMetrics(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	calc := NewCalculator(DefaultConfig())
	calc.SetClock(func() time.Time { return now })

	assert.Equal(t, PortfolioMetrics{TotalBalance: 1000}, calc.PortfolioMetrics(1000, 1000))

	calc.RecordTrade(TradeRecord{Timestamp: now.Add(-40 * 24 * time.Hour), PnL: 30, PnLPercentage: 3})
	calc.RecordTrade(TradeRecord{Timestamp: now.Add(-10 * 24 * time.Hour), PnL: -10, PnLPercentage: -1})
	calc.RecordTrade(TradeRecord{Timestamp: now.Add(-3 * 24 * time.Hour), PnL: 20, PnLPercentage: 2})
	calc.RecordTrade(TradeRecord{Timestamp: now.Add(-2 * time.Hour), PnL: -5, PnLPercentage: -0.5})
	calc.RecordTrade(TradeRecord{Timestamp: now.Add(-1 * time.Hour), PnL: 0})

	m := calc.PortfolioMetrics(1035, 1000)

	assert.Equal(t, 5, m.TotalTrades)
	assert.InDelta(t, 35.0, m.TotalPnL, 1e-9)
	assert.InDelta(t, 3.5, m.TotalPnLPercentage, 1e-9)
	assert.InDelta(t, -5.0, m.DailyPnL, 1e-9)
	assert.InDelta(t, 15.0, m.WeeklyPnL, 1e-9)
	assert.InDelta(t, 5.0, m.MonthlyPnL, 1e-9)
	assert.InDelta(t, 40.0, m.WinRate, 1e-9)
	assert.InDelta(t, 50.0/15.0, m.ProfitFactor, 1e-9)
	assert.InDelta(t, 25.0, m.AverageWin, 1e-9)
	assert.InDelta(t, 7.5, m.AverageLoss, 1e-9)
	assert.InDelta(t, 25.0/7.5, m.RiskRewardRatio, 1e-9)
	// balances 1000, 1030, 1020, 1040, 1035, 1035
	assert.InDelta(t, 10.0, m.MaxDrawdown, 1e-9)
	assert.NotZero(t, m.SharpeRatio)

	assert.InDelta(t, 15.0, calc.WeeklyPnL(), 1e-9)
}

func TestSharpeWithoutVariance(t *testing.T) {
	assert.Zero(t, sharpe(nil))
	assert.Zero(t, sharpe([]float64{1, 1, 1}))
	assert.InDelta(t, 1.0, sharpe([]float64{2, 0}), 1e-9)
}
