package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
)

const (
	TradesSheet  = "Trades"
	SummarySheet = "Summary"
)

type excelStyles struct {
	header   int
	currency int
	red      int
	green    int
	label    int
}

var tradeHeaders = []string{
	"Time", "Symbol", "Side", "Entry Price", "Exit Price", "Size",
	"PnL", "PnL %", "Confidence", "Risk USD", "Risk %", "Reason",
}

// WriteTradesXLSX writes the ledger and its derived metrics to path
func WriteTradesXLSX(path string, trades []risk.TradeRecord, metrics risk.PortfolioMetrics) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), TradesSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(SummarySheet); err != nil {
		return err
	}

	styles, err := createStyles(fx)
	if err != nil {
		return err
	}
	if err := writeTradesSheet(fx, trades, styles); err != nil {
		return err
	}
	if err := writeSummarySheet(fx, metrics, styles); err != nil {
		return err
	}
	return fx.SaveAs(path)
}

func createStyles(fx *excelize.File) (excelStyles, error) {
	var s excelStyles
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	var err error
	if s.header, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	}); err != nil {
		return s, err
	}
	if s.currency, err = fx.NewStyle(&excelize.Style{NumFmt: 4, Border: border}); err != nil {
		return s, err
	}
	if s.red, err = fx.NewStyle(&excelize.Style{
		NumFmt: 4, Font: &excelize.Font{Color: "C00000"}, Border: border,
	}); err != nil {
		return s, err
	}
	if s.green, err = fx.NewStyle(&excelize.Style{
		NumFmt: 4, Font: &excelize.Font{Color: "008000"}, Border: border,
	}); err != nil {
		return s, err
	}
	s.label, err = fx.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, Border: border})
	return s, err
}

func writeTradesSheet(fx *excelize.File, trades []risk.TradeRecord, styles excelStyles) error {
	sheet := TradesSheet
	for i, h := range tradeHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.header)
	}
	fx.SetColWidth(sheet, "A", "A", 20)
	fx.SetColWidth(sheet, "B", "C", 12)
	fx.SetColWidth(sheet, "D", "K", 13)
	fx.SetColWidth(sheet, "L", "L", 28)

	for i, tr := range trades {
		row := i + 2
		var exit interface{}
		if tr.ExitPrice != nil {
			exit = *tr.ExitPrice
		}
		values := []interface{}{
			tr.Timestamp.Format("2006-01-02 15:04:05"), tr.Symbol, string(tr.Side),
			tr.EntryPrice, exit, tr.Size, tr.PnL, tr.PnLPercentage,
			tr.Confidence, tr.RiskAmount, tr.RiskPercentage, tr.Reason,
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := fx.SetSheetRow(sheet, start, &values); err != nil {
			return err
		}
		pnlCell, _ := excelize.CoordinatesToCellName(7, row)
		style := styles.green
		if tr.PnL < 0 {
			style = styles.red
		}
		fx.SetCellStyle(sheet, pnlCell, pnlCell, style)
	}
	return fx.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeSummarySheet(fx *excelize.File, m risk.PortfolioMetrics, styles excelStyles) error {
	sheet := SummarySheet
	rows := []struct {
		label string
		value float64
	}{
		{"Total Balance", m.TotalBalance},
		{"Total PnL", m.TotalPnL},
		{"Total PnL %", m.TotalPnLPercentage},
		{"Daily PnL", m.DailyPnL},
		{"Weekly PnL", m.WeeklyPnL},
		{"Monthly PnL", m.MonthlyPnL},
		{"Max Drawdown", m.MaxDrawdown},
		{"Max Drawdown %", m.MaxDrawdownPercentage},
		{"Sharpe Ratio", m.SharpeRatio},
		{"Win Rate %", m.WinRate},
		{"Profit Factor", m.ProfitFactor},
		{"Average Win", m.AverageWin},
		{"Average Loss", m.AverageLoss},
		{"Risk/Reward", m.RiskRewardRatio},
		{"Total Trades", float64(m.TotalTrades)},
	}

	fx.SetCellValue(sheet, "A1", "Metric")
	fx.SetCellValue(sheet, "B1", "Value")
	fx.SetCellStyle(sheet, "A1", "B1", styles.header)
	fx.SetColWidth(sheet, "A", "A", 22)
	fx.SetColWidth(sheet, "B", "B", 16)

	for i, r := range rows {
		labelCell, _ := excelize.CoordinatesToCellName(1, i+2)
		valueCell, _ := excelize.CoordinatesToCellName(2, i+2)
		if err := fx.SetCellValue(sheet, labelCell, r.label); err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, valueCell, r.value); err != nil {
			return err
		}
		fx.SetCellStyle(sheet, labelCell, labelCell, styles.label)
		fx.SetCellStyle(sheet, valueCell, valueCell, styles.currency)
	}
	return nil
}
