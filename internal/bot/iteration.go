package bot

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	boterrors "github.com/ducminhle1904/crypto-trading-bot/internal/errors"
	"github.com/ducminhle1904/crypto-trading-bot/internal/monitoring"
	"github.com/ducminhle1904/crypto-trading-bot/internal/state"
	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

// runIteration is one pass of the trading loop
func (o *Orchestrator) runIteration(ctx context.Context) error {
	now := o.clock.Now()

	// 1. daily reset and loss limits
	o.resetDailyIfNeeded(now)
	if reason, breached := o.dailyLimitBreached(); breached {
		o.pause(now, o.cfg.LimitPause, reason)
		return nil
	}
	snap := o.Status()
	decision := o.deps.Calculator.ShouldStopTrading(o.equity(snap.Balance), o.cfg.InitialBalance, snap.DailyPnL, o.deps.Calculator.WeeklyPnL())
	if decision.ShouldStop {
		o.pause(now, decision.Cooldown, decision.Reason)
		return nil
	}

	// 2. periodic portfolio risk check
	if o.deps.Monitor.Due(now) {
		report := o.deps.Monitor.Evaluate(o.book.exposures(), snap.Balance)
		o.deps.Monitor.MarkChecked(now)
		o.mu.Lock()
		o.riskLevel = report.Portfolio.RiskLevel
		o.mu.Unlock()
	}

	// 3. symbol universe
	o.refreshSymbols(ctx, now, false)

	// 4. market data
	symbols := o.watchedSymbols()
	fetched := o.fetchMarketData(ctx, symbols, now)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if len(symbols) > 0 && fetched == 0 {
		return boterrors.NewBotError(boterrors.ErrorCategoryConnectivity, "orchestrator", "market_data",
			fmt.Sprintf("no market data for any of %d symbols", len(symbols)))
	}

	// 5. signals on fresh data only
	fresh := o.freshSeries(now)
	signals := o.deps.Signals.GenerateSignals(ctx, fresh)
	for symbol, sig := range signals {
		monitoring.UpdateSignalConfidence(symbol, sig.Confidence)
	}

	// 6. act on signals in active-set order
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sig, ok := signals[symbol]
		if !ok || (!sig.Decision.IsBuy() && !sig.Decision.IsSell()) {
			continue
		}
		if o.inCooldown(o.clock.Now()) {
			o.log.Debug("Skipping %s %s: trade cooldown active", sig.Decision, symbol)
			continue
		}
		if sig.Decision.IsBuy() {
			o.executeBuy(ctx, symbol, sig)
		} else {
			o.executeSell(ctx, symbol, fmt.Sprintf("%s signal", sig.Decision), sig.Confidence)
		}
	}

	// 7. venue wins on position sizes
	o.reconcilePositions(ctx)

	// 8. exits
	o.checkExits(ctx)

	// 9. balance, snapshot, persistence
	o.refreshBalance(ctx)
	o.mu.Lock()
	o.updatedAt = o.clock.Now()
	o.mu.Unlock()
	o.persist()
	return nil
}

func (o *Orchestrator) resetDailyIfNeeded(now time.Time) {
	day := state.DayOf(now)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.day == day {
		return
	}
	if o.day != "" {
		o.log.Status("New trading day %s: resetting daily counters (%d trades, PnL $%.2f)", day, o.dailyTrades, o.dailyPnL)
	}
	o.day = day
	o.dailyTrades = 0
	o.dailyPnL = 0
}

func (o *Orchestrator) dailyLimitBreached() (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.cfg.MaxDailyTrades > 0 && o.dailyTrades >= o.cfg.MaxDailyTrades {
		return fmt.Sprintf("Daily trade limit reached: %d trades (limit %d)", o.dailyTrades, o.cfg.MaxDailyTrades), true
	}
	if o.cfg.MaxDailyLoss > 0 && o.dailyPnL <= -o.cfg.MaxDailyLoss {
		return fmt.Sprintf("Daily loss limit reached: $%.2f (limit $%.2f)", o.dailyPnL, o.cfg.MaxDailyLoss), true
	}
	return "", false
}

func (o *Orchestrator) inCooldown(now time.Time) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return !o.lastTradeTime.IsZero() && now.Sub(o.lastTradeTime) < o.cfg.CooldownPeriod
}

// refreshSymbols rebuilds the active symbol set. Manual mode always uses the
// configured pairs; other modes rank the venue's symbols hourly and keep the
// previous set when ranking fails.
func (o *Orchestrator) refreshSymbols(ctx context.Context, now time.Time, force bool) {
	o.mu.RLock()
	due := force || o.lastRefresh.IsZero() || now.Sub(o.lastRefresh) >= o.cfg.SymbolRefreshInterval
	current := len(o.symbols)
	o.mu.RUnlock()
	if !due {
		return
	}

	symbols := append([]string(nil), o.cfg.TradingPairs...)
	if o.cfg.TradingMode != ModeManual {
		ranked, err := o.deps.Data.ListSymbols(ctx, o.cfg.SymbolMode(), o.cfg.SymbolFilter)
		switch {
		case err != nil:
			o.log.LogWarning("Symbol refresh", "Could not list symbols: %v", err)
			if current > 0 {
				symbols = nil
			}
		case len(ranked) == 0:
			o.log.LogWarning("Symbol refresh", "No symbols matched the %s filter", o.cfg.SymbolMode())
			if current > 0 {
				symbols = nil
			}
		default:
			symbols = ranked
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastRefresh = now
	if symbols != nil {
		o.symbols = symbols
		o.log.Info("Active symbols (%s): %v", o.cfg.TradingMode, symbols)
	}
}

// watchedSymbols is the active set followed by held symbols outside it
func (o *Orchestrator) watchedSymbols() []string {
	o.mu.RLock()
	out := append([]string(nil), o.symbols...)
	o.mu.RUnlock()

	seen := make(map[string]bool, len(out))
	for _, s := range out {
		seen[s] = true
	}
	for _, s := range o.book.symbols() {
		if !seen[s] {
			out = append(out, s)
			seen[s] = true
		}
	}
	return out
}

// fetchMarketData refreshes candles for symbols concurrently and returns
// how many succeeded. Failures leave the previous series in place.
func (o *Orchestrator) fetchMarketData(ctx context.Context, symbols []string, now time.Time) int {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.FetchConcurrency)

	var mu sync.Mutex
	fetched := 0
	for _, symbol := range symbols {
		symbol := symbol // per-iteration copy (go directive < 1.22)
		g.Go(func() error {
			series, err := o.deps.Data.GetOHLCV(gctx, symbol, o.cfg.Timeframe, o.cfg.CandleLimit)
			if err != nil || series == nil || series.Len() == 0 {
				if err == nil {
					err = fmt.Errorf("empty series")
				}
				o.log.LogWarning("Market data", "%s: %v", symbol, err)
				return nil
			}
			o.dataMu.Lock()
			o.series[symbol] = series
			o.lastUpdate[symbol] = now
			o.dataMu.Unlock()
			mu.Lock()
			fetched++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return fetched
}

// freshSeries returns the series refreshed within StaleAfter
func (o *Orchestrator) freshSeries(now time.Time) map[string]*types.MarketSeries {
	o.dataMu.RLock()
	defer o.dataMu.RUnlock()
	out := make(map[string]*types.MarketSeries, len(o.series))
	for symbol, series := range o.series {
		if at, ok := o.lastUpdate[symbol]; ok && now.Sub(at) < o.cfg.StaleAfter {
			out[symbol] = series
		}
	}
	return out
}

func (o *Orchestrator) cachedSeries(symbol string) *types.MarketSeries {
	o.dataMu.RLock()
	defer o.dataMu.RUnlock()
	return o.series[symbol]
}

// lastPrice is the last cached close, zero when unknown
func (o *Orchestrator) lastPrice(symbol string) float64 {
	series := o.cachedSeries(symbol)
	if series == nil || len(series.Prices) == 0 {
		return 0
	}
	return series.Prices[len(series.Prices)-1]
}

func (o *Orchestrator) reconcilePositions(ctx context.Context) {
	venuePositions, err := o.deps.Venue.GetPositions(ctx)
	if err != nil {
		o.log.LogWarning("Reconcile", "Could not fetch venue positions: %v", err)
		return
	}
	if changed := o.book.reconcile(venuePositions, o.lastPrice, o.clock.Now()); len(changed) > 0 {
		sort.Strings(changed)
		o.log.Info("Positions reconciled with %s: %v", o.deps.Venue.GetName(), changed)
	}
}

// checkExits applies each position's stop-loss and take-profit, then the
// trailing stop. Positions without sized levels use the configured
// percentages around their average entry.
func (o *Orchestrator) checkExits(ctx context.Context) {
	for _, pos := range o.book.views() {
		if ctx.Err() != nil {
			return
		}
		price := o.lastPrice(pos.Symbol)
		if price <= 0 {
			p, err := o.deps.Data.GetCurrentPrice(ctx, pos.Symbol)
			if err != nil || p <= 0 {
				continue
			}
			price = p
		}
		if pos.AvgEntry <= 0 {
			continue
		}
		o.book.observe(pos.Symbol, price)
		high := pos.HighWater
		if price > high {
			high = price
		}

		stop, target := o.exitPrices(pos)
		change := (price - pos.AvgEntry) / pos.AvgEntry * 100
		var reason string
		switch {
		case price <= stop:
			reason = fmt.Sprintf("Stop loss hit at %.2f%% (stop %.8f)", change, stop)
		case price >= target:
			reason = fmt.Sprintf("Take profit hit at %.2f%% (target %.8f)", change, target)
		case o.cfg.TrailingStopEnabled && high > pos.AvgEntry && price > pos.AvgEntry &&
			price <= high*(1-o.cfg.TrailingStopPct/100):
			reason = fmt.Sprintf("Trailing stop hit: %.8f is %.2f%% below high %.8f", price, (high-price)/high*100, high)
		default:
			continue
		}
		o.log.Trade("%s %s", pos.Symbol, reason)
		o.executeSell(ctx, pos.Symbol, reason, 0)
	}
}

func (o *Orchestrator) exitPrices(pos PositionView) (stop, target float64) {
	stop, target = pos.StopLoss, pos.TakeProfit
	if stop <= 0 {
		stop = pos.AvgEntry * (1 - o.cfg.StopLossPct/100)
	}
	if target <= 0 {
		target = pos.AvgEntry * (1 + o.cfg.TakeProfitPct/100)
	}
	return stop, target
}

// equity is free cash plus the open positions at their last price
func (o *Orchestrator) equity(cash float64) float64 {
	return cash + o.book.marketValue(o.lastPrice)
}

func (o *Orchestrator) refreshBalance(ctx context.Context) {
	bal, err := o.deps.Venue.GetBalance(ctx)
	if err != nil {
		o.log.LogWarning("Balance", "Keeping last known balance: %v", err)
		return
	}
	o.mu.Lock()
	o.balance = bal
	o.mu.Unlock()
	monitoring.UpdateBalance(bal)
	if o.cfg.InitialBalance > 0 {
		dd := (o.cfg.InitialBalance - o.equity(bal)) / o.cfg.InitialBalance * 100
		if dd < 0 {
			dd = 0
		}
		monitoring.UpdateDrawdown(dd)
	}
}
