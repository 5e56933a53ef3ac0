package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	boterrors "github.com/ducminhle1904/crypto-trading-bot/internal/errors"
	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-bot/internal/monitoring"
	"github.com/ducminhle1904/crypto-trading-bot/internal/notifications"
	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
	"github.com/ducminhle1904/crypto-trading-bot/internal/signal"
)

// executeBuy sizes and submits a market buy for a BUY or STRONG_BUY signal
func (o *Orchestrator) executeBuy(ctx context.Context, symbol string, sig signal.Signal) {
	price := o.lastPrice(symbol)
	if price <= 0 {
		return
	}

	balance, err := o.deps.Venue.GetBalance(ctx)
	if err != nil || balance <= 0 {
		balance = o.currentBalance()
	}

	stop := price * (1 - o.cfg.StopLossPct/100)
	volatility := 0.0
	condition := risk.MarketSideways
	if series := o.cachedSeries(symbol); series != nil {
		if rs, err := o.deps.Regime.DetectRegime(series); err == nil {
			volatility = rs.Volatility
			condition = rs.Condition
		}
	}

	tr := o.deps.Calculator.CalculatePositionSize(balance, price, stop, sig.Confidence, volatility, condition)
	tr = risk.ClampPositionSize(tr, o.cfg.MaxPositionSize, balance)
	if tr.PositionSize <= 0 {
		o.log.Debug("Skipping BUY %s: position size %.8f", symbol, tr.PositionSize)
		return
	}

	candidate := risk.Exposure{Symbol: symbol, Size: tr.PositionSize, RiskAmount: tr.RiskAmount, RiskKnown: true}
	if ok, reason := o.deps.Monitor.Allow(o.book.exposures(), candidate, balance); !ok {
		o.log.Warning("BUY %s rejected by portfolio limits: %s", symbol, reason)
		monitoring.RecordRejectedOrder("portfolio_limit")
		return
	}

	req := exchange.OrderRequest{
		Symbol:        symbol,
		Side:          exchange.OrderSideBuy,
		Type:          exchange.OrderTypeMarket,
		Quantity:      tr.PositionSize,
		ClientOrderID: uuid.NewString(),
	}
	if err := o.validator.ValidateOrder(req, price); err != nil {
		o.log.LogWarning("Order validation", "BUY %s rejected: %v", symbol, err)
		monitoring.RecordRejectedOrder("validation")
		return
	}

	res, err := o.deps.Venue.PlaceOrder(ctx, req)
	if err != nil || res == nil {
		o.orderNotPlaced(symbol, exchange.OrderSideBuy, err)
		return
	}
	fillPrice, fillQty := fill(res, price, tr.PositionSize)
	now := o.clock.Now()
	riskUSD := tr.RiskAmount * fillQty / tr.PositionSize
	o.book.add(symbol, fillQty, fillPrice, riskUSD, now, exitLevels{stopLoss: tr.StopLossPrice, takeProfit: tr.TakeProfitPrice})

	o.recordFill(ctx, risk.TradeRecord{
		ID:             uuid.NewString(),
		Timestamp:      now,
		Symbol:         symbol,
		Side:           risk.SideBuy,
		EntryPrice:     fillPrice,
		Size:           fillQty,
		Confidence:     sig.Confidence,
		RiskAmount:     riskUSD,
		RiskPercentage: tr.RiskPercentage,
		Reason:         fmt.Sprintf("%s signal (sentiment %.2f)", sig.Decision, sig.Sentiment),
	})
	o.log.Trade("BUY %s: %.8f @ %.8f (risk $%.2f, SL %.8f, TP %.8f, %s, %s)",
		symbol, fillQty, fillPrice, riskUSD, tr.StopLossPrice, tr.TakeProfitPrice, tr.Method, condition)
}

// executeSell closes the whole tracked position; without one it does nothing
func (o *Orchestrator) executeSell(ctx context.Context, symbol, reason string, confidence float64) error {
	pos, ok := o.book.get(symbol)
	if !ok || pos.Size <= 0 {
		return nil
	}
	price := o.lastPrice(symbol)

	req := exchange.OrderRequest{
		Symbol:        symbol,
		Side:          exchange.OrderSideSell,
		Type:          exchange.OrderTypeMarket,
		Quantity:      pos.Size,
		ClientOrderID: uuid.NewString(),
	}
	res, err := o.deps.Venue.PlaceOrder(ctx, req)
	if err != nil || res == nil {
		o.orderNotPlaced(symbol, exchange.OrderSideSell, err)
		if err == nil {
			err = fmt.Errorf("venue returned no result")
		}
		return boterrors.NewOrderError("orchestrator", "sell", err).WithSymbol(symbol)
	}
	exitPrice, qty := fill(res, price, pos.Size)
	if exitPrice <= 0 {
		exitPrice = pos.AvgEntry
	}
	avg, _ := o.book.reduce(symbol, qty)
	entry := avg.InexactFloat64()
	pnl := (exitPrice - entry) * qty
	pnlPct := 0.0
	if entry > 0 {
		pnlPct = (exitPrice - entry) / entry * 100
	}

	now := o.clock.Now()
	exit := exitPrice
	o.recordFill(ctx, risk.TradeRecord{
		ID:            uuid.NewString(),
		Timestamp:     now,
		Symbol:        symbol,
		Side:          risk.SideSell,
		EntryPrice:    entry,
		ExitPrice:     &exit,
		Size:          qty,
		PnL:           pnl,
		PnLPercentage: pnlPct,
		Confidence:    confidence,
		Reason:        reason,
	})
	o.log.Trade("SELL %s: %.8f @ %.8f, entry %.8f, PnL $%.2f (%.2f%%) - %s", symbol, qty, exitPrice, entry, pnl, pnlPct, reason)

	level := notifications.LevelInfo
	if pnl > 0 {
		level = notifications.LevelSuccess
	} else if pnl < 0 {
		level = notifications.LevelWarning
	}
	o.alert(level, fmt.Sprintf("SELL %s\n%s\nPnL: $%.2f (%.2f%%)", symbol, reason, pnl, pnlPct))
	return nil
}

// recordFill updates the ledger, the store and the daily counters
func (o *Orchestrator) recordFill(ctx context.Context, tr risk.TradeRecord) {
	o.deps.Calculator.RecordTrade(tr)
	if o.deps.Trades != nil {
		err := o.deps.Recovery.ExecuteWithRecovery(ctx, "trade_store", "save", func(ctx context.Context) error {
			return o.deps.Trades.SaveTrade(ctx, tr)
		})
		if err != nil {
			o.log.LogWarning("Trade store", "Could not save trade %s: %v", tr.ID, err)
		}
	}

	o.mu.Lock()
	o.dailyTrades++
	o.totalTrades++
	o.lastTradeTime = tr.Timestamp
	if tr.Side == risk.SideSell {
		o.dailyPnL += tr.PnL
	}
	o.mu.Unlock()

	price := tr.EntryPrice
	if tr.ExitPrice != nil {
		price = *tr.ExitPrice
	}
	monitoring.RecordTrade(tr.Symbol, string(tr.Side), price*tr.Size)
	o.deps.Health.RecordTrade(tr.Timestamp)
}

// closeAllPositions sells every tracked position once; failures are
// collected, not retried
func (o *Orchestrator) closeAllPositions(ctx context.Context) error {
	views := o.book.views()
	if len(views) == 0 {
		return nil
	}
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	o.log.Status("Closing %d open positions", len(views))
	var errs []error
	for _, pos := range views {
		if err := o.executeSell(closeCtx, pos.Symbol, "Bot shutdown", 0); err != nil {
			errs = append(errs, err)
		}
	}
	return boterrors.Combine(errs...)
}

func (o *Orchestrator) orderNotPlaced(symbol string, side exchange.OrderSide, err error) {
	reason := "no_result"
	if err != nil {
		reason = string(boterrors.CategorizeError(err, "venue", "place_order").Category)
	}
	monitoring.RecordRejectedOrder(reason)
	o.log.LogWarning("Order", "%s %s not placed: %v", side, symbol, err)
}

// fill prefers the venue's reported price and quantity
func fill(res *exchange.OrderResult, refPrice, requested float64) (price, qty float64) {
	price, qty = res.Price, res.Quantity
	if price <= 0 {
		price = refPrice
	}
	if qty <= 0 {
		qty = requested
	}
	return price, qty
}
