package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
)

func newStore(t *testing.T) *TradeStore {
	t.Helper()
	s, err := NewTradeStore(filepath.Join(t.TempDir(), "db", "trades.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndRecentTrades(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveTrade(ctx, risk.TradeRecord{
			ID:         fmt.Sprintf("t%d", i),
			Timestamp:  t0.Add(time.Duration(i) * time.Hour),
			Symbol:     "BTC/USDT",
			Side:       risk.SideBuy,
			EntryPrice: 100 + float64(i),
			Size:       0.1,
		}))
	}

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	recent, err := s.RecentTrades(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"t2", "t3", "t4"}, []string{recent[0].ID, recent[1].ID, recent[2].ID})
	assert.True(t, recent[0].Timestamp.Equal(t0.Add(2*time.Hour)))

	all, err := s.RecentTrades(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestSaveTradeUpsertsByID(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	exit := 110.0

	tr := risk.TradeRecord{ID: "x", Timestamp: time.Now(), Symbol: "ETH/USDT", Side: risk.SideSell, EntryPrice: 100, Size: 1}
	require.NoError(t, s.SaveTrade(ctx, tr))
	tr.ExitPrice = &exit
	tr.PnL = 10
	tr.Reason = "take profit"
	require.NoError(t, s.SaveTrade(ctx, tr))

	got, err := s.RecentTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].ExitPrice)
	assert.Equal(t, 110.0, *got[0].ExitPrice)
	assert.Equal(t, 10.0, got[0].PnL)
	assert.Equal(t, risk.SideSell, got[0].Side)
	assert.Equal(t, "take profit", got[0].Reason)
}

func TestNewTradeStoreRequiresPath(t *testing.T) {
	_, err := NewTradeStore("  ")
	assert.Error(t, err)
}
