package bot

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// PrintStartupInfo renders the configuration tables shown at launch
func (o *Orchestrator) PrintStartupInfo(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("BOT INITIALIZATION")
	t.SetStyle(table.StyleRounded)

	symbols := strings.Join(o.cfg.TradingPairs, ", ")
	if o.cfg.TradingMode != ModeManual {
		symbols = fmt.Sprintf("top %d by %s", o.cfg.SymbolFilter.Limit, o.cfg.SymbolMode())
	}
	t.AppendRows([]table.Row{
		{"🏪 Venue", o.deps.Venue.GetName()},
		{"📡 Market Data", o.deps.Data.GetName()},
		{"🚨 Trading Mode", o.cfg.TradingMode},
		{"📊 Symbols", symbols},
		{"⏰ Timeframe", o.cfg.Timeframe},
		{"🔄 Loop Interval", o.cfg.LoopInterval.String()},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 50, Align: text.AlignLeft},
	})
	t.Render()
	fmt.Fprintln(w)

	rc := o.deps.Calculator.Config()
	r := table.NewWriter()
	r.SetOutputMirror(w)
	r.SetTitle("RISK CONFIGURATION")
	r.SetStyle(table.StyleRounded)
	r.AppendRows([]table.Row{
		{"💰 Initial Balance", fmt.Sprintf("$%.2f", o.cfg.InitialBalance)},
		{"📐 Sizing Method", string(rc.SizingMethod)},
		{"🎲 Risk Per Trade", fmt.Sprintf("%.2f%% ($%.2f - $%.2f)", rc.RiskPerTradePct, rc.MinRiskUSD, rc.MaxRiskUSD)},
		{"📏 Max Position", fmt.Sprintf("%.4f", o.cfg.MaxPositionSize)},
	})
	r.AppendSeparator()
	r.AppendRows([]table.Row{
		{"🛑 Stop Loss", fmt.Sprintf("%.2f%%", o.cfg.StopLossPct)},
		{"🎯 Take Profit", fmt.Sprintf("%.2f%%", o.cfg.TakeProfitPct)},
		{"📉 Trailing Stop", trailingString(o.cfg)},
	})
	r.AppendSeparator()
	r.AppendRows([]table.Row{
		{"📆 Daily Limits", fmt.Sprintf("%d trades / $%.2f loss", o.cfg.MaxDailyTrades, o.cfg.MaxDailyLoss)},
		{"🧺 Portfolio Risk", fmt.Sprintf("%.2f%% max, %d per sector", rc.MaxPortfolioRiskPct, rc.MaxCorrelatedPositions)},
		{"⏳ Cooldown", o.cfg.CooldownPeriod.String()},
	})
	r.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 50, Align: text.AlignLeft},
	})
	r.Render()
	fmt.Fprintln(w)
}

// RenderStatus renders a snapshot and its open positions
func RenderStatus(w io.Writer, s Snapshot) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("BOT STATUS")
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"State", string(s.State)},
		{"Balance", fmt.Sprintf("$%.2f", s.Balance)},
		{"Daily Trades", s.DailyTrades},
		{"Daily PnL", fmt.Sprintf("$%.2f", s.DailyPnL)},
		{"Total Trades", s.TotalTrades},
		{"Risk Level", string(s.RiskLevel)},
	})
	if !s.PausedUntil.IsZero() {
		t.AppendRow(table.Row{"Paused Until", s.PausedUntil.Format(time.RFC3339)})
	}
	t.Render()

	if len(s.ActivePositions) == 0 {
		return
	}
	p := table.NewWriter()
	p.SetOutputMirror(w)
	p.SetTitle("OPEN POSITIONS")
	p.SetStyle(table.StyleRounded)
	p.AppendHeader(table.Row{"Symbol", "Size", "Avg Entry", "High", "Risk $"})
	for _, pos := range s.ActivePositions {
		p.AppendRow(table.Row{
			pos.Symbol,
			fmt.Sprintf("%.8f", pos.Size),
			fmt.Sprintf("%.8f", pos.AvgEntry),
			fmt.Sprintf("%.8f", pos.HighWater),
			fmt.Sprintf("%.2f", pos.RiskUSD),
		})
	}
	p.Render()
}

func trailingString(cfg Config) string {
	if !cfg.TrailingStopEnabled {
		return "disabled"
	}
	return fmt.Sprintf("%.2f%%", cfg.TrailingStopPct)
}
