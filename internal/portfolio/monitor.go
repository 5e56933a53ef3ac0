package portfolio

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ducminhle1904/crypto-trading-bot/internal/logger"
	"github.com/ducminhle1904/crypto-trading-bot/internal/monitoring"
	"github.com/ducminhle1904/crypto-trading-bot/internal/notifications"
	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
)

// DefaultCheckInterval is how often the loop runs a full risk check
const DefaultCheckInterval = 5 * time.Minute

// Report is the result of one portfolio evaluation
type Report struct {
	Portfolio   risk.PortfolioRiskReport   `json:"portfolio"`
	Correlation risk.CorrelationRiskReport `json:"correlation"`
	Positions   int                        `json:"positions"`
	Timestamp   time.Time                  `json:"timestamp"`
}

// Monitor evaluates open exposure against the calculator's limits
type Monitor struct {
	calc     *risk.Calculator
	notifier notifications.Notifier
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	lastCheck time.Time
	last      *Report
	lastLevel risk.RiskLevel
}

// NewMonitor creates a monitor; a zero interval means DefaultCheckInterval
func NewMonitor(calc *risk.Calculator, notifier notifications.Notifier, log *logger.Logger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	if notifier == nil {
		notifier = notifications.NopNotifier{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Monitor{
		calc:     calc,
		notifier: notifier,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

// SetClock replaces the time source
func (m *Monitor) SetClock(now func() time.Time) {
	m.now = now
}

// Evaluate runs the portfolio and correlation checks, publishes the gauges
// and alerts when the level turns EXTREME.
func (m *Monitor) Evaluate(positions []risk.Exposure, balance float64) Report {
	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}

	report := Report{
		Portfolio:   m.calc.CheckPortfolioRisk(positions, balance),
		Correlation: m.calc.CheckCorrelationRisk(symbols),
		Positions:   len(positions),
		Timestamp:   m.now(),
	}

	monitoring.UpdatePortfolioRisk(report.Portfolio.RiskPercentage, report.Portfolio.RiskLevel.Score())

	m.mu.Lock()
	previous := m.lastLevel
	m.lastLevel = report.Portfolio.RiskLevel
	m.last = &report
	m.mu.Unlock()

	for _, w := range report.Portfolio.Warnings {
		m.log.Warning("Portfolio risk: %s", w)
	}
	for _, w := range report.Correlation.Warnings {
		m.log.Warning("Correlation risk: %s", w)
	}

	if report.Portfolio.RiskLevel == risk.RiskLevelExtreme && previous != risk.RiskLevelExtreme {
		msg := fmt.Sprintf("Portfolio risk EXTREME: %.2f%% of balance at risk across %d positions\n%s",
			report.Portfolio.RiskPercentage, len(positions), strings.Join(report.Portfolio.Recommendations, "\n"))
		if err := m.notifier.SendAlert(notifications.LevelError, msg); err != nil {
			m.log.LogWarning("portfolio monitor", "alert not sent: %v", err)
		}
	}
	return report
}

// Allow decides whether a new BUY exposure fits inside the portfolio limits
func (m *Monitor) Allow(positions []risk.Exposure, candidate risk.Exposure, balance float64) (bool, string) {
	if balance <= 0 {
		return false, "no balance available"
	}
	cfg := m.calc.Config()

	total := risk.PositionRisk(candidate, balance)
	for _, p := range positions {
		total += risk.PositionRisk(p, balance)
	}
	projected := total / balance * 100
	if cfg.MaxPortfolioRiskPct > 0 && projected > cfg.MaxPortfolioRiskPct {
		return false, fmt.Sprintf("projected portfolio risk %.2f%% exceeds maximum %.2f%%", projected, cfg.MaxPortfolioRiskPct)
	}

	sector, known := risk.SectorOf(candidate.Symbol)
	if !known || cfg.MaxCorrelatedPositions <= 0 {
		return true, ""
	}
	count := 1
	for _, p := range positions {
		if strings.EqualFold(p.Symbol, candidate.Symbol) {
			// adding to an existing holding does not widen the sector
			return true, ""
		}
		if s, ok := risk.SectorOf(p.Symbol); ok && s == sector {
			count++
		}
	}
	if count > cfg.MaxCorrelatedPositions {
		return false, fmt.Sprintf("%s sector would hold %d positions, maximum %d", sector, count, cfg.MaxCorrelatedPositions)
	}
	return true, ""
}

// Due reports whether a periodic check should run at now
func (m *Monitor) Due(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCheck.IsZero() || now.Sub(m.lastCheck) >= m.interval
}

// MarkChecked records that a periodic check ran at now
func (m *Monitor) MarkChecked(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCheck = now
}

// Last returns the most recent report
func (m *Monitor) Last() (Report, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return Report{}, false
	}
	return *m.last, true
}
