package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_bot_trades_total",
			Help: "Total number of filled orders",
		},
		[]string{"symbol", "side"},
	)

	tradeNotional = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trading_bot_trade_notional_usd",
			Help:    "Distribution of filled order notional in quote currency",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
		[]string{"symbol"},
	)

	ordersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_bot_orders_rejected_total",
			Help: "Orders not placed, by reason",
		},
		[]string{"reason"},
	)

	// Signal metrics
	signalConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trading_bot_signal_confidence",
			Help: "Confidence of the latest signal per symbol",
		},
		[]string{"symbol"},
	)

	// Risk metrics
	portfolioRiskPct = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trading_bot_portfolio_risk_percent",
		Help: "Total open risk as a percentage of balance",
	})

	riskLevel = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trading_bot_risk_level",
		Help: "Portfolio risk level: 1 low, 2 medium, 3 high, 4 extreme",
	})

	drawdownPct = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trading_bot_drawdown_percent",
		Help: "Current drawdown from initial balance",
	})

	balanceGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trading_bot_balance",
		Help: "Last known quote balance",
	})

	// Loop metrics
	botState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trading_bot_state",
			Help: "1 for the current lifecycle state",
		},
		[]string{"state"},
	)

	loopIterations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trading_bot_loop_iterations_total",
		Help: "Completed trading loop iterations",
	})

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_bot_errors_total",
			Help: "Total number of errors by category",
		},
		[]string{"category"},
	)

	pausedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trading_bot_paused",
		Help: "1 while trading is paused by a limit breach",
	})

	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trading_bot_circuit_breaker_state",
			Help: "Circuit breaker state per call class (0 closed, 1 open, 2 half open)",
		},
		[]string{"class"},
	)
)

// BotStates is the set of values exported by the state gauge
var BotStates = []string{"STOPPED", "STARTING", "RUNNING", "PAUSED", "STOPPING", "ERROR"}

func init() {
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradeNotional)
	prometheus.MustRegister(ordersRejected)
	prometheus.MustRegister(signalConfidence)
	prometheus.MustRegister(portfolioRiskPct)
	prometheus.MustRegister(riskLevel)
	prometheus.MustRegister(drawdownPct)
	prometheus.MustRegister(balanceGauge)
	prometheus.MustRegister(botState)
	prometheus.MustRegister(loopIterations)
	prometheus.MustRegister(errorsTotal)
	prometheus.MustRegister(pausedGauge)
	prometheus.MustRegister(breakerState)
}

// MetricsHandler returns the Prometheus metrics endpoint
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordTrade records a filled order
func RecordTrade(symbol, side string, notional float64) {
	tradesTotal.WithLabelValues(symbol, side).Inc()
	tradeNotional.WithLabelValues(symbol).Observe(notional)
}

// RecordRejectedOrder counts an order the bot decided not to place
func RecordRejectedOrder(reason string) {
	ordersRejected.WithLabelValues(reason).Inc()
}

// UpdateSignalConfidence updates the confidence gauge of a symbol
func UpdateSignalConfidence(symbol string, confidence float64) {
	signalConfidence.WithLabelValues(symbol).Set(confidence)
}

// UpdatePortfolioRisk updates risk percentage and level score
func UpdatePortfolioRisk(riskPct float64, levelScore int) {
	portfolioRiskPct.Set(riskPct)
	riskLevel.Set(float64(levelScore))
}

// UpdateDrawdown updates the drawdown gauge
func UpdateDrawdown(pct float64) {
	drawdownPct.Set(pct)
}

// UpdateBalance updates the balance gauge
func UpdateBalance(balance float64) {
	balanceGauge.Set(balance)
}

// SetBotState marks state as current and clears the others
func SetBotState(state string) {
	for _, s := range BotStates {
		v := 0.0
		if s == state {
			v = 1
		}
		botState.WithLabelValues(s).Set(v)
	}
	if state == "PAUSED" {
		pausedGauge.Set(1)
	} else {
		pausedGauge.Set(0)
	}
}

// RecordLoopIteration counts a completed loop pass
func RecordLoopIteration() {
	loopIterations.Inc()
}

// RecordError records an error metric
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}

// SetBreakerState exports a breaker transition
func SetBreakerState(class string, state int) {
	breakerState.WithLabelValues(class).Set(float64(state))
}
