package risk

import "time"

// Side of a recorded trade
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeRecord is an immutable ledger entry created when an order fills
type TradeRecord struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Symbol         string    `json:"symbol"`
	Side           Side      `json:"side"`
	EntryPrice     float64   `json:"entry_price"`
	ExitPrice      *float64  `json:"exit_price,omitempty"` // nil until closed
	Size           float64   `json:"size"`
	PnL            float64   `json:"pnl"`
	PnLPercentage  float64   `json:"pnl_percentage"`
	Confidence     float64   `json:"confidence"`
	RiskAmount     float64   `json:"risk_amount"`
	RiskPercentage float64   `json:"risk_percentage"`
	Reason         string    `json:"reason,omitempty"`
}

// TradeRisk is the result of a sizing calculation
type TradeRisk struct {
	EntryPrice      float64      `json:"entry_price"`
	StopLossPrice   float64      `json:"stop_loss_price"`
	TakeProfitPrice float64      `json:"take_profit_price"`
	PositionSize    float64      `json:"position_size"`
	RiskAmount      float64      `json:"risk_amount"`
	RiskPercentage  float64      `json:"risk_percentage"`
	Confidence      float64      `json:"confidence"`
	Volatility      float64      `json:"volatility"`
	RiskBudget      float64      `json:"risk_budget"`
	Method          SizingMethod `json:"method"`
	Fallback        bool         `json:"fallback"`
}

// RiskLevel classifies portfolio risk
type RiskLevel string

const (
	RiskLevelLow     RiskLevel = "LOW"
	RiskLevelMedium  RiskLevel = "MEDIUM"
	RiskLevelHigh    RiskLevel = "HIGH"
	RiskLevelExtreme RiskLevel = "EXTREME"
)

// Score maps a level to 0..3 for gauges
func (l RiskLevel) Score() int {
	switch l {
	case RiskLevelMedium:
		return 1
	case RiskLevelHigh:
		return 2
	case RiskLevelExtreme:
		return 3
	default:
		return 0
	}
}

// Exposure is one open position as seen by the portfolio checks
type Exposure struct {
	Symbol     string  `json:"symbol"`
	Size       float64 `json:"size"`
	RiskAmount float64 `json:"risk_amount"`
	RiskKnown  bool    `json:"risk_known"`
}

// PortfolioRiskReport summarizes aggregate open risk
type PortfolioRiskReport struct {
	TotalRiskUSD    float64   `json:"total_risk_usd"`
	RiskPercentage  float64   `json:"risk_percentage"`
	MaxRiskAllowed  float64   `json:"max_risk_allowed"` // USD
	RiskLevel       RiskLevel `json:"risk_level"`
	Warnings        []string  `json:"warnings"`
	Recommendations []string  `json:"recommendations"`
}

// CorrelationRiskReport summarizes sector concentration
type CorrelationRiskReport struct {
	SectorExposure         map[string]int `json:"sector_exposure"`
	HighCorrelationSectors []string       `json:"high_correlation_sectors"`
	Warnings               []string       `json:"warnings"`
	Recommendations        []string       `json:"recommendations"`
}

// DrawdownResult is the output of CalculateDrawdown
type DrawdownResult struct {
	MaxDrawdown           float64 `json:"max_drawdown"`
	MaxDrawdownPercentage float64 `json:"max_drawdown_percentage"`
	CurrentDrawdown       float64 `json:"current_drawdown"`
	PeakBalance           float64 `json:"peak_balance"`
}

// StopDecision tells the loop whether to pause and for how long
type StopDecision struct {
	ShouldStop     bool          `json:"should_stop"`
	Reason         string        `json:"reason"`
	Cooldown       time.Duration `json:"cooldown"`
	Recommendation string        `json:"recommendation"`
}

// PortfolioMetrics is derived from the trade ledger
type PortfolioMetrics struct {
	TotalBalance          float64 `json:"total_balance"`
	TotalPnL              float64 `json:"total_pnl"`
	TotalPnLPercentage    float64 `json:"total_pnl_percentage"`
	DailyPnL              float64 `json:"daily_pnl"`
	WeeklyPnL             float64 `json:"weekly_pnl"`
	MonthlyPnL            float64 `json:"monthly_pnl"`
	MaxDrawdown           float64 `json:"max_drawdown"`
	MaxDrawdownPercentage float64 `json:"max_drawdown_percentage"`
	SharpeRatio           float64 `json:"sharpe_ratio"`
	WinRate               float64 `json:"win_rate"` // percent
	ProfitFactor          float64 `json:"profit_factor"`
	AverageWin            float64 `json:"average_win"`
	AverageLoss           float64 `json:"average_loss"`
	RiskRewardRatio       float64 `json:"risk_reward_ratio"`
	TotalTrades           int     `json:"total_trades"`
}
