package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
)

// TradeModel is the sqlite row for one ledger entry
type TradeModel struct {
	ID             string   `gorm:"column:id;primaryKey"`
	TimestampUnix  int64    `gorm:"column:timestamp;index"`
	Symbol         string   `gorm:"column:symbol;index"`
	Side           string   `gorm:"column:side"`
	EntryPrice     float64  `gorm:"column:entry_price"`
	ExitPrice      *float64 `gorm:"column:exit_price"`
	Size           float64  `gorm:"column:size"`
	PnL            float64  `gorm:"column:pnl"`
	PnLPercentage  float64  `gorm:"column:pnl_percentage"`
	Confidence     float64  `gorm:"column:confidence"`
	RiskAmount     float64  `gorm:"column:risk_amount"`
	RiskPercentage float64  `gorm:"column:risk_percentage"`
	Reason         string   `gorm:"column:reason"`
	CreatedAtUnix  int64    `gorm:"column:created_at"`
}

func (TradeModel) TableName() string { return "trades" }

// TradeStore persists filled trades in sqlite
type TradeStore struct {
	db *gorm.DB
}

// NewTradeStore opens (and migrates) the database at path
func NewTradeStore(path string) (*TradeStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("trade store: database path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("trade store: create directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_journal_mode=WAL"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("trade store: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&TradeModel{}); err != nil {
		return nil, fmt.Errorf("trade store: migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return &TradeStore{db: db}, nil
}

// SaveTrade inserts or replaces a trade by ID
func (s *TradeStore) SaveTrade(ctx context.Context, tr risk.TradeRecord) error {
	row := toModel(tr)
	row.CreatedAtUnix = time.Now().Unix()
	return s.db.WithContext(ctx).Save(&row).Error
}

// RecentTrades returns up to limit of the newest trades, oldest first
func (s *TradeStore) RecentTrades(ctx context.Context, limit int) ([]risk.TradeRecord, error) {
	var rows []TradeModel
	q := s.db.WithContext(ctx).Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]risk.TradeRecord, len(rows))
	for i, row := range rows {
		out[len(rows)-1-i] = fromModel(row)
	}
	return out, nil
}

// Count returns the number of stored trades
func (s *TradeStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&TradeModel{}).Count(&n).Error
	return n, err
}

// Close releases the database handle
func (s *TradeStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toModel(tr risk.TradeRecord) TradeModel {
	return TradeModel{
		ID:             tr.ID,
		TimestampUnix:  tr.Timestamp.UnixMilli(),
		Symbol:         tr.Symbol,
		Side:           string(tr.Side),
		EntryPrice:     tr.EntryPrice,
		ExitPrice:      tr.ExitPrice,
		Size:           tr.Size,
		PnL:            tr.PnL,
		PnLPercentage:  tr.PnLPercentage,
		Confidence:     tr.Confidence,
		RiskAmount:     tr.RiskAmount,
		RiskPercentage: tr.RiskPercentage,
		Reason:         tr.Reason,
	}
}

func fromModel(row TradeModel) risk.TradeRecord {
	return risk.TradeRecord{
		ID:             row.ID,
		Timestamp:      time.UnixMilli(row.TimestampUnix).UTC(),
		Symbol:         row.Symbol,
		Side:           risk.Side(row.Side),
		EntryPrice:     row.EntryPrice,
		ExitPrice:      row.ExitPrice,
		Size:           row.Size,
		PnL:            row.PnL,
		PnLPercentage:  row.PnLPercentage,
		Confidence:     row.Confidence,
		RiskAmount:     row.RiskAmount,
		RiskPercentage: row.RiskPercentage,
		Reason:         row.Reason,
	}
}
