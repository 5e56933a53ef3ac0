package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	boterrors "github.com/ducminhle1904/crypto-trading-bot/internal/errors"
	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-bot/internal/logger"
	"github.com/ducminhle1904/crypto-trading-bot/internal/monitoring"
	"github.com/ducminhle1904/crypto-trading-bot/internal/notifications"
	"github.com/ducminhle1904/crypto-trading-bot/internal/portfolio"
	"github.com/ducminhle1904/crypto-trading-bot/internal/recovery"
	"github.com/ducminhle1904/crypto-trading-bot/internal/regime"
	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
	"github.com/ducminhle1904/crypto-trading-bot/internal/safety"
	"github.com/ducminhle1904/crypto-trading-bot/internal/signal"
	"github.com/ducminhle1904/crypto-trading-bot/internal/state"
	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

// State is the orchestrator lifecycle state
type State string

const (
	StateStopped  State = "STOPPED"
	StateStarting State = "STARTING"
	StateRunning  State = "RUNNING"
	StatePaused   State = "PAUSED"
	StateStopping State = "STOPPING"
)

var (
	ErrAlreadyRunning = errors.New("already running")
	ErrStopping       = errors.New("bot is stopping")
)

// TradeStore persists filled trades
type TradeStore interface {
	SaveTrade(ctx context.Context, tr risk.TradeRecord) error
	RecentTrades(ctx context.Context, limit int) ([]risk.TradeRecord, error)
}

// StateStore persists the day state
type StateStore interface {
	Save(s state.DayState) error
	Load() (state.DayState, bool, error)
}

// Clock abstracts time for the loop
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Deps are the collaborators of the orchestrator. Venue, Data, Signals and
// Calculator are required; everything else has a default.
type Deps struct {
	Venue      exchange.Venue
	Data       exchange.MarketDataSource
	Signals    signal.Source
	Calculator *risk.Calculator
	Monitor    *portfolio.Monitor
	Regime     *regime.RegimeDetector
	Validator  *safety.Validator
	Guard      *safety.Guard
	Trades     TradeStore
	Recovery   *recovery.RecoveryHandler // retries trade store writes
	State      StateStore
	Notifier   notifications.Notifier
	Health     *monitoring.HealthChecker
	Logger     *logger.Logger
	Clock      Clock
}

// Snapshot is a copy of the orchestrator's observable state
type Snapshot struct {
	State           State          `json:"state"`
	IsRunning       bool           `json:"is_running"`
	DailyTrades     int            `json:"daily_trades"`
	DailyPnL        float64        `json:"daily_pnl"`
	ActivePositions []PositionView `json:"active_positions"`
	LastTradeTime   time.Time      `json:"last_trade_time"`
	TotalTrades     int            `json:"total_trades"`
	Balance         float64        `json:"balance"`
	Equity          float64        `json:"equity"`
	ActiveSymbols   []string       `json:"active_symbols"`
	PausedUntil     time.Time      `json:"paused_until"`
	PauseReason     string         `json:"pause_reason,omitempty"`
	LastError       string         `json:"last_error,omitempty"`
	RiskLevel       risk.RiskLevel `json:"risk_level"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Orchestrator runs the trading loop over a venue, a market data source and
// a signal source
type Orchestrator struct {
	cfg  Config
	deps Deps
	log  *logger.Logger

	clock     Clock
	book      *positionBook
	validator *safety.Validator

	lifeMu sync.Mutex // serializes Start and Stop
	iterMu sync.Mutex // held by an iteration and by the shutdown close-out
	cancel context.CancelFunc
	done   chan struct{}

	mu            sync.RWMutex
	state         State
	day           string
	dailyTrades   int
	dailyPnL      float64
	lastTradeTime time.Time
	totalTrades   int
	balance       float64
	symbols       []string
	lastRefresh   time.Time
	pausedUntil   time.Time
	pauseReason   string
	lastError     string
	riskLevel     risk.RiskLevel
	updatedAt     time.Time

	dataMu     sync.RWMutex
	series     map[string]*types.MarketSeries
	lastUpdate map[string]time.Time
}

// New wires an orchestrator
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Venue == nil || deps.Data == nil || deps.Signals == nil || deps.Calculator == nil {
		return nil, boterrors.NewConfigurationError("orchestrator", "new", "venue, market data, signal source and risk calculator are required")
	}
	cfg = cfg.withDefaults()
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NopNotifier{}
	}
	if deps.Clock == nil {
		deps.Clock = realClock{}
	}
	if deps.Monitor == nil {
		deps.Monitor = portfolio.NewMonitor(deps.Calculator, deps.Notifier, deps.Logger, cfg.RiskCheckInterval)
	}
	if deps.Regime == nil {
		deps.Regime = regime.NewRegimeDetector(regime.DefaultRegimeConfig())
	}
	if deps.Validator == nil {
		deps.Validator = safety.NewValidator()
	}
	if deps.Recovery == nil {
		deps.Recovery = recovery.NewRecoveryHandler(recovery.DefaultBackoff(), deps.Logger)
	}
	if deps.Health == nil {
		deps.Health = monitoring.NewHealthChecker(2 * cfg.LoopInterval)
	}
	log := deps.Logger
	deps.Calculator.SetFallbackHandler(func(operation string, err error) {
		fallback := boterrors.NewComputationError("risk", operation, err.Error())
		monitoring.RecordError(string(fallback.Category))
		log.LogWarning("Position sizing", "using the 2%% fallback: %v", fallback)
	})

	return &Orchestrator{
		cfg:        cfg,
		deps:       deps,
		log:        deps.Logger,
		clock:      deps.Clock,
		book:       newPositionBook(),
		validator:  deps.Validator,
		state:      StateStopped,
		balance:    cfg.InitialBalance,
		riskLevel:  risk.RiskLevelLow,
		series:     make(map[string]*types.MarketSeries),
		lastUpdate: make(map[string]time.Time),
	}, nil
}

// Start verifies connectivity, restores persisted state and launches the
// loop. Starting a bot that is not STOPPED returns ErrAlreadyRunning.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	switch o.state {
	case StateStopped:
	case StateStopping:
		o.mu.Unlock()
		return ErrStopping
	default:
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	o.state = StateStarting
	o.mu.Unlock()
	o.publishState(StateStarting)

	o.lifeMu.Lock()
	defer o.lifeMu.Unlock()

	if err := o.checkConnectivity(ctx); err != nil {
		o.deps.Health.SetConnected(false)
		o.setState(StateStopped)
		o.log.LogError("Start", err)
		return err
	}
	o.deps.Health.SetConnected(true)

	o.restore(ctx)
	o.refreshSymbols(ctx, o.clock.Now(), true)
	if bal, err := o.deps.Venue.GetBalance(ctx); err == nil && bal > 0 {
		o.mu.Lock()
		o.balance = bal
		o.mu.Unlock()
	} else if err != nil {
		o.log.LogWarning("Start", "Could not fetch balance, using $%.2f: %v", o.currentBalance(), err)
	}
	monitoring.UpdateBalance(o.currentBalance())

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	o.mu.Lock()
	o.cancel = cancel
	o.done = done
	o.mu.Unlock()
	o.setState(StateRunning)
	go o.loop(loopCtx, done)

	snap := o.Status()
	o.log.Status("Bot started on %s with %d symbols, balance $%.2f", o.deps.Venue.GetName(), len(snap.ActiveSymbols), snap.Balance)
	o.alert(notifications.LevelSuccess, fmt.Sprintf("Trading bot started on %s\nSymbols: %v\nBalance: $%.2f",
		o.deps.Venue.GetName(), snap.ActiveSymbols, snap.Balance))
	return nil
}

// Stop cancels the loop, closes every open position and persists state.
// Stopping a STOPPED bot is a no-op.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.lifeMu.Lock()
	defer o.lifeMu.Unlock()

	o.mu.Lock()
	if o.state == StateStopped || o.state == StateStopping {
		o.mu.Unlock()
		return nil
	}
	o.state = StateStopping
	cancel, done := o.cancel, o.done
	o.mu.Unlock()
	o.publishState(StateStopping)

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			o.log.LogWarning("Stop", "Loop did not exit before the deadline: %v", ctx.Err())
		}
	}

	// an iteration outliving the deadline must finish its fills first
	o.iterMu.Lock()
	closeErr := o.closeAllPositions(ctx)
	o.iterMu.Unlock()
	if closeErr != nil {
		for _, err := range boterrors.Errors(closeErr) {
			o.log.LogError("Close position", err)
		}
	}
	o.persist()
	o.setState(StateStopped)

	snap := o.Status()
	o.log.Status("Bot stopped: %d trades today, daily PnL $%.2f", snap.DailyTrades, snap.DailyPnL)
	o.alert(notifications.LevelInfo, fmt.Sprintf("Trading bot stopped\nTrades today: %d\nDaily PnL: $%.2f", snap.DailyTrades, snap.DailyPnL))
	return closeErr
}

// Status returns a copy of the current state
func (o *Orchestrator) Status() Snapshot {
	positions := o.book.marketValue(o.lastPrice)
	o.mu.RLock()
	defer o.mu.RUnlock()
	return Snapshot{
		State:           o.state,
		IsRunning:       o.state == StateRunning || o.state == StatePaused,
		DailyTrades:     o.dailyTrades,
		DailyPnL:        o.dailyPnL,
		ActivePositions: o.book.views(),
		LastTradeTime:   o.lastTradeTime,
		TotalTrades:     o.totalTrades,
		Balance:         o.balance,
		Equity:          o.balance + positions,
		ActiveSymbols:   append([]string(nil), o.symbols...),
		PausedUntil:     o.pausedUntil,
		PauseReason:     o.pauseReason,
		LastError:       o.lastError,
		RiskLevel:       o.riskLevel,
		UpdatedAt:       o.updatedAt,
	}
}

// RiskReport returns the latest portfolio report, evaluating one when none
// exists yet
func (o *Orchestrator) RiskReport() portfolio.Report {
	if report, ok := o.deps.Monitor.Last(); ok {
		return report
	}
	return o.deps.Monitor.Evaluate(o.book.exposures(), o.currentBalance())
}

// PortfolioMetrics derives performance figures from the ledger
func (o *Orchestrator) PortfolioMetrics() risk.PortfolioMetrics {
	return o.deps.Calculator.PortfolioMetrics(o.equity(o.currentBalance()), o.cfg.InitialBalance)
}

// Trades returns the in-memory ledger
func (o *Orchestrator) Trades() []risk.TradeRecord {
	return o.deps.Calculator.Trades()
}

// Done is closed when the current loop exits
func (o *Orchestrator) Done() <-chan struct{} {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.done
}

func (o *Orchestrator) checkConnectivity(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if p, ok := o.deps.Venue.(exchange.Pinger); ok {
			return p.Ping(gctx)
		}
		_, err := o.deps.Venue.GetBalance(gctx)
		return err
	})
	g.Go(func() error {
		if p, ok := o.deps.Data.(exchange.Pinger); ok {
			return p.Ping(gctx)
		}
		_, err := o.deps.Data.ListSymbols(gctx, exchange.SymbolModeAll, exchange.SymbolFilter{Limit: 1})
		return err
	})
	if err := g.Wait(); err != nil {
		return boterrors.NewConnectivityError("orchestrator", "connectivity_check", err)
	}
	return nil
}

// restore loads the ledger from the trade store and the day state from the
// state file. Positions are always restored; counters only for the same day.
func (o *Orchestrator) restore(ctx context.Context) {
	now := o.clock.Now()
	o.mu.Lock()
	o.day = state.DayOf(now)
	o.mu.Unlock()

	if o.deps.Trades != nil {
		trades, err := o.deps.Trades.RecentTrades(ctx, o.deps.Calculator.Config().LedgerCapacity)
		if err != nil {
			o.log.LogWarning("Restore", "Could not load trade history: %v", err)
		} else {
			o.deps.Calculator.RestoreTrades(trades)
			o.mu.Lock()
			o.totalTrades = len(trades)
			o.mu.Unlock()
			o.log.Info("Restored %d trades from the trade store", len(trades))
		}
	}

	if o.deps.State == nil {
		return
	}
	saved, found, err := o.deps.State.Load()
	if err != nil {
		o.log.LogWarning("Restore", "Could not load day state: %v", err)
		return
	}
	if !found {
		return
	}
	o.book.restore(saved.Positions)
	o.mu.Lock()
	defer o.mu.Unlock()
	if saved.Balance > 0 {
		o.balance = saved.Balance
	}
	if !saved.LastTradeTime.IsZero() {
		o.lastTradeTime = saved.LastTradeTime
	}
	if saved.SameDay(now) {
		o.dailyTrades = saved.DailyTrades
		o.dailyPnL = saved.DailyPnL
	}
	o.log.Info("Restored day state: %d positions, %d trades today", len(saved.Positions), o.dailyTrades)
}

func (o *Orchestrator) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		if ctx.Err() != nil {
			return
		}
		wait := o.step(ctx)
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-o.clock.After(wait):
		}
	}
}

// step runs one iteration unless paused and returns how long to sleep
func (o *Orchestrator) step(ctx context.Context) time.Duration {
	o.iterMu.Lock()
	defer o.iterMu.Unlock()
	if ctx.Err() != nil {
		return 0
	}
	now := o.clock.Now()
	if wait, paused := o.pausedFor(now); paused {
		return wait
	}

	err := o.safeIteration(ctx)
	monitoring.RecordLoopIteration()
	o.deps.Health.RecordLoop(err)
	if o.deps.Guard != nil {
		o.deps.Health.SetOpenBreakers(o.deps.Guard.OpenCircuits())
	}
	if err != nil {
		if ctx.Err() != nil {
			return 0
		}
		category := boterrors.CategoryOf(err)
		monitoring.RecordError(string(category))
		o.log.LogError(fmt.Sprintf("Trading loop (%s)", category), err)
		o.mu.Lock()
		o.lastError = err.Error()
		o.mu.Unlock()
		return o.cfg.ErrorBackoff
	}
	o.mu.Lock()
	o.lastError = ""
	o.mu.Unlock()
	return o.cfg.LoopInterval
}

func (o *Orchestrator) safeIteration(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Panic in trading loop: %v\n%s", r, debug.Stack())
			err = boterrors.NewBotError(boterrors.ErrorCategoryFatal, "orchestrator", "iteration", fmt.Sprintf("panic: %v", r)).
				WithRetryable(true)
		}
	}()
	return o.runIteration(ctx)
}

// pausedFor resumes an expired pause, or reports how long to keep sleeping
func (o *Orchestrator) pausedFor(now time.Time) (time.Duration, bool) {
	o.mu.Lock()
	if o.state != StatePaused {
		o.mu.Unlock()
		return 0, false
	}
	if now.Before(o.pausedUntil) {
		wait := o.pausedUntil.Sub(now)
		o.mu.Unlock()
		if wait > o.cfg.LoopInterval {
			wait = o.cfg.LoopInterval
		}
		return wait, true
	}
	o.state = StateRunning
	o.pausedUntil = time.Time{}
	o.pauseReason = ""
	o.mu.Unlock()

	o.publishState(StateRunning)
	o.log.Status("Pause expired, resuming trading")
	return 0, false
}

func (o *Orchestrator) pause(now time.Time, d time.Duration, reason string) {
	o.mu.Lock()
	if o.state != StateRunning {
		o.mu.Unlock()
		return
	}
	o.state = StatePaused
	o.pausedUntil = now.Add(d)
	o.pauseReason = reason
	o.mu.Unlock()

	o.publishState(StatePaused)
	breach := boterrors.NewLimitBreach("orchestrator", reason)
	monitoring.RecordError(string(breach.Category))
	o.log.Warning("Trading paused for %s: %v", d, breach)
	o.alert(notifications.LevelWarning, fmt.Sprintf("Trading paused for %s\n%s", d, reason))
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.publishState(s)
}

func (o *Orchestrator) publishState(s State) {
	monitoring.SetBotState(string(s))
	o.deps.Health.SetState(string(s))
}

func (o *Orchestrator) currentBalance() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.balance
}

func (o *Orchestrator) alert(level, message string) {
	if err := o.deps.Notifier.SendAlert(level, message); err != nil {
		o.log.LogWarning("Notification", "Alert not sent: %v", err)
	}
}

// persist writes the day state; failures are logged
func (o *Orchestrator) persist() {
	if o.deps.State == nil {
		return
	}
	o.mu.RLock()
	s := state.DayState{
		Day:           o.day,
		DailyTrades:   o.dailyTrades,
		DailyPnL:      o.dailyPnL,
		LastTradeTime: o.lastTradeTime,
		Balance:       o.balance,
		Positions:     o.book.snapshot(),
		UpdatedAt:     o.clock.Now(),
	}
	o.mu.RUnlock()
	if err := o.deps.State.Save(s); err != nil {
		o.log.LogWarning("Persist", "Could not save state: %v", err)
	}
}
