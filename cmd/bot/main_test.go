package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/crypto-trading-bot/internal/config"
	boterrors "github.com/ducminhle1904/crypto-trading-bot/internal/errors"
	"github.com/ducminhle1904/crypto-trading-bot/internal/logger"
	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want options
	}{
		{"defaults", nil, options{envFile: ".env"}},
		{"paper idle", []string{"-paper", "-idle"}, options{envFile: ".env", paper: true, idle: true}},
		{"export", []string{"-config", "bot.yaml", "-export", "out.xlsx"}, options{configFile: "bot.yaml", envFile: ".env", exportPath: "out.xlsx"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseFlags([]string{"-nope"})
	assert.Error(t, err)
}

func paperConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("EXCHANGE", "paper")
	t.Setenv("DB_PATH", filepath.Join(dir, "trades.db"))
	t.Setenv("STATE_DIR", filepath.Join(dir, "state"))
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain", fmt.Errorf("listen failed"), 1},
		{"config", boterrors.NewConfigurationError("config", "risk", "bad"), 2},
		{"combined", boterrors.Combine(fmt.Errorf("x"), boterrors.NewCredentialsError("config", "exchange", "no key")), 2},
		{"connectivity", boterrors.NewConnectivityError("bot", "start", fmt.Errorf("down")), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestBuildPaperApp(t *testing.T) {
	cfg := paperConfig(t)
	a, err := build(cfg, logger.NewNop())
	require.NoError(t, err)
	defer a.close()

	snap := a.bot.Status()
	assert.False(t, snap.IsRunning)
	assert.Equal(t, cfg.InitialBalance, snap.Balance)
	assert.NotNil(t, a.server.Handler())
}

func TestExportWritesWorkbook(t *testing.T) {
	cfg := paperConfig(t)
	a, err := build(cfg, logger.NewNop())
	require.NoError(t, err)
	defer a.close()

	exit := 110.0
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, a.trades.SaveTrade(ctx, risk.TradeRecord{ID: "1", Timestamp: now, Symbol: "BTC/USDT", Side: risk.SideBuy, EntryPrice: 100, Size: 1}))
	require.NoError(t, a.trades.SaveTrade(ctx, risk.TradeRecord{ID: "2", Timestamp: now.Add(time.Hour), Symbol: "BTC/USDT", Side: risk.SideSell, EntryPrice: 100, ExitPrice: &exit, Size: 1, PnL: 10}))

	path := filepath.Join(t.TempDir(), "trades.xlsx")
	require.NoError(t, a.export(path))

	_, err = os.Stat(path)
	require.NoError(t, err)
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Trades")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}
