package portfolio

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []string
}

func (r *recordingNotifier) SendAlert(level, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, level+": "+message)
	return nil
}

func exposure(symbol string, riskUSD float64) risk.Exposure {
	return risk.Exposure{Symbol: symbol, Size: 1, RiskAmount: riskUSD, RiskKnown: true}
}

func TestEvaluateAlertsOnceOnExtreme(t *testing.T) {
	notifier := &recordingNotifier{}
	m := NewMonitor(risk.NewCalculator(risk.DefaultConfig()), notifier, nil, 0)

	positions := []risk.Exposure{exposure("BTC/USDT", 100), exposure("ETH/USDT", 100)}
	report := m.Evaluate(positions, 1000)
	assert.Equal(t, risk.RiskLevelExtreme, report.Portfolio.RiskLevel)
	assert.InDelta(t, 20.0, report.Portfolio.RiskPercentage, 1e-9)
	assert.Equal(t, 2, report.Correlation.SectorExposure[risk.SectorLayer1])

	m.Evaluate(positions, 1000)
	require.Len(t, notifier.alerts, 1)
	assert.Contains(t, notifier.alerts[0], "EXTREME")

	m.Evaluate(nil, 1000)
	last, ok := m.Last()
	require.True(t, ok)
	assert.Equal(t, risk.RiskLevelLow, last.Portfolio.RiskLevel)

	m.Evaluate(positions, 1000)
	assert.Len(t, notifier.alerts, 2)
}

func TestAllow(t *testing.T) {
	cfg := risk.DefaultConfig()
	cfg.MaxPortfolioRiskPct = 10
	cfg.MaxCorrelatedPositions = 2
	m := NewMonitor(risk.NewCalculator(cfg), nil, nil, 0)

	tests := []struct {
		name      string
		positions []risk.Exposure
		candidate risk.Exposure
		balance   float64
		want      bool
	}{
		{"empty book", nil, exposure("BTC/USDT", 20), 1000, true},
		{"projected risk too high", []risk.Exposure{exposure("UNI/USDT", 90)}, exposure("DOGE/USDT", 20), 1000, false},
		{"projected risk at limit", []risk.Exposure{exposure("UNI/USDT", 80)}, exposure("DOGE/USDT", 20), 1000, true},
		{"sector full", []risk.Exposure{exposure("BTC/USDT", 5), exposure("ETH/USDT", 5)}, exposure("SOL/USDT", 5), 1000, false},
		{"adding to held symbol", []risk.Exposure{exposure("BTC/USDT", 5), exposure("ETH/USDT", 5)}, exposure("ETH/USDT", 5), 1000, true},
		{"unclassified asset", []risk.Exposure{exposure("BTC/USDT", 5), exposure("ETH/USDT", 5)}, exposure("XYZ/USDT", 5), 1000, true},
		{"unknown risk counts 2%", []risk.Exposure{{Symbol: "A/USDT"}, {Symbol: "B/USDT"}, {Symbol: "C/USDT"}, {Symbol: "D/USDT"}}, exposure("E/USDT", 25), 1000, false},
		{"no balance", nil, exposure("BTC/USDT", 1), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := m.Allow(tt.positions, tt.candidate, tt.balance)
			assert.Equal(t, tt.want, ok, reason)
			if !tt.want {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestDueSchedule(t *testing.T) {
	m := NewMonitor(risk.NewCalculator(risk.DefaultConfig()), nil, nil, 5*time.Minute)
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	assert.True(t, m.Due(t0))
	m.MarkChecked(t0)
	assert.False(t, m.Due(t0.Add(4*time.Minute)))
	assert.True(t, m.Due(t0.Add(5*time.Minute)))
}
