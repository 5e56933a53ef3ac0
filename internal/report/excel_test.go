package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
)

func TestWriteTradesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trades.xlsx")
	exit := 105.0
	trades := []risk.TradeRecord{
		{ID: "1", Timestamp: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), Symbol: "BTC/USDT", Side: risk.SideBuy, EntryPrice: 100, Size: 0.5},
		{ID: "2", Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), Symbol: "BTC/USDT", Side: risk.SideSell, EntryPrice: 100, ExitPrice: &exit, Size: 0.5, PnL: 2.5, Reason: "take profit"},
	}
	metrics := risk.PortfolioMetrics{TotalBalance: 1002.5, TotalPnL: 2.5, TotalTrades: 2, WinRate: 100}

	require.NoError(t, WriteTradesXLSX(path, trades, metrics))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Equal(t, []string{TradesSheet, SummarySheet}, fx.GetSheetList())

	rows, err := fx.GetRows(TradesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Symbol", rows[0][1])
	assert.Equal(t, "SELL", rows[2][2])
	assert.Equal(t, "take profit", rows[2][11])

	label, err := fx.GetCellValue(SummarySheet, "A16")
	require.NoError(t, err)
	assert.Equal(t, "Total Trades", label)
	value, err := fx.GetCellValue(SummarySheet, "B16", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "2", value)
}

func TestWriteTradesXLSXEmptyLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteTradesXLSX(path, nil, risk.PortfolioMetrics{}))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()
	rows, err := fx.GetRows(TradesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
