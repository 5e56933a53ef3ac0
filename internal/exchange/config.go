package exchange

import (
	"fmt"
	"strings"

	"github.com/ducminhle1904/crypto-trading-bot/pkg/data"
)

// ExchangeConfig holds configuration for creating venues and data sources
type ExchangeConfig struct {
	Name             string         `json:"name"`               // venue: bybit, paper
	MarketDataSource string         `json:"market_data_source"` // binance, bybit, csv
	Bybit            *BybitConfig   `json:"bybit,omitempty"`
	Binance          *BinanceConfig `json:"binance,omitempty"`
	Paper            *PaperConfig   `json:"paper,omitempty"`
	CSV              *CSVConfig     `json:"csv,omitempty"`
}

// BybitConfig holds Bybit-specific configuration
type BybitConfig struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	Testnet   bool   `json:"testnet"` // Use testnet infrastructure
	Demo      bool   `json:"demo"`    // Use demo trading (paper trading)
	Category  string `json:"category"`
	QuoteCoin string `json:"quote_coin"`
}

// BinanceConfig holds Binance market data configuration. Keys are optional,
// the public endpoints need none.
type BinanceConfig struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	QuoteCoin string `json:"quote_coin"`
}

// PaperConfig configures the in-memory venue
type PaperConfig struct {
	InitialBalance float64 `json:"initial_balance"`
	QuoteCoin      string  `json:"quote_coin"`
	FeeRate        float64 `json:"fee_rate"`
}

// CSVConfig points the offline data source at downloaded candles
type CSVConfig struct {
	Dir        string `json:"dir"`
	Exchange   string `json:"exchange"` // sub-directory the files were downloaded for
	Timeframe  string `json:"timeframe"`
	QuoteCoin  string `json:"quote_coin"`
	UnixMillis bool   `json:"unix_millis"` // timestamps in ms instead of "2006-01-02 15:04:05"
}

// Format returns the column mapping of the configured files
func (c CSVConfig) Format() data.CSVColumnMapping {
	if c.UnixMillis {
		return data.BybitCSVFormat
	}
	return data.DefaultCSVFormat
}

// Validate checks the parts of the config the selected venue needs
func (c ExchangeConfig) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Name)) {
	case "bybit":
		if c.Bybit == nil {
			return fmt.Errorf("bybit configuration is required")
		}
		if c.Bybit.APIKey == "" || c.Bybit.APISecret == "" {
			return ErrMissingCredentials.WithDetails("bybit")
		}
	case "paper":
		if c.Paper != nil && c.Paper.InitialBalance < 0 {
			return fmt.Errorf("paper initial balance cannot be negative")
		}
	case "":
		return fmt.Errorf("exchange name is required")
	default:
		return &ExchangeError{
			Code:        "UNSUPPORTED_EXCHANGE",
			Message:     fmt.Sprintf("Exchange '%s' is not supported", c.Name),
			Details:     "Supported exchanges: bybit, paper",
			IsRetryable: false,
		}
	}
	return nil
}
