package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	sp, err := NewStatePersistence(t.TempDir(), nil)
	require.NoError(t, err)

	_, found, err := sp.Load()
	require.NoError(t, err)
	assert.False(t, found)

	now := time.Date(2024, 5, 1, 15, 30, 0, 0, time.UTC)
	in := DayState{
		Day:           DayOf(now),
		DailyTrades:   3,
		DailyPnL:      -12.5,
		LastTradeTime: now,
		Balance:       987.5,
		Positions: []Position{{
			Symbol:    "BTC/USDT",
			Size:      decimal.RequireFromString("0.015"),
			AvgEntry:  decimal.RequireFromString("64000.25"),
			HighWater: decimal.RequireFromString("65000"),
			OpenedAt:  now,
		}},
		UpdatedAt: now,
	}
	require.NoError(t, sp.Save(in))
	assert.False(t, sp.LastSave().IsZero())
	_, err = os.Stat(sp.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))

	out, found, err := sp.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1", out.Version)
	assert.Equal(t, 3, out.DailyTrades)
	assert.Equal(t, -12.5, out.DailyPnL)
	assert.True(t, out.SameDay(now.Add(time.Hour)))
	assert.False(t, out.SameDay(now.Add(24*time.Hour)))
	require.Len(t, out.Positions, 1)
	assert.True(t, out.Positions[0].AvgEntry.Equal(decimal.RequireFromString("64000.25")))
}

func TestLoadFallsBackToBackup(t *testing.T) {
	dir := t.TempDir()
	sp, err := NewStatePersistence(dir, nil)
	require.NoError(t, err)

	require.NoError(t, sp.Save(DayState{Day: "2024-05-01", DailyTrades: 1}))
	require.NoError(t, sp.Save(DayState{Day: "2024-05-01", DailyTrades: 2}))
	require.NoError(t, os.WriteFile(sp.Path(), []byte("{broken"), 0o644))

	out, found, err := sp.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, out.DailyTrades)

	require.NoError(t, os.Remove(filepath.Join(dir, backupFile)))
	_, _, err = sp.Load()
	assert.Error(t, err)
}
