package adapters

import (
	"fmt"
	"strings"

	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange"
)

// SupportedVenues lists the venue names NewVenue accepts
var SupportedVenues = []string{"bybit", "paper"}

// SupportedMarketDataSources lists the names NewMarketDataSource accepts
var SupportedMarketDataSources = []string{"binance", "bybit", "csv"}

// NewMarketDataSource creates the data source named in the config
func NewMarketDataSource(config exchange.ExchangeConfig) (exchange.MarketDataSource, error) {
	switch strings.ToLower(strings.TrimSpace(config.MarketDataSource)) {
	case "", "binance":
		return NewBinanceAdapter(config.Binance), nil
	case "bybit":
		bybitCfg := config.Bybit
		if bybitCfg == nil {
			bybitCfg = &exchange.BybitConfig{}
		}
		return NewBybitAdapter(bybitCfg)
	case "csv":
		if config.CSV == nil || config.CSV.Dir == "" {
			return nil, &exchange.ExchangeError{
				Code:    "MISSING_DATA_DIR",
				Message: "The csv market data source needs a data directory",
			}
		}
		return NewCSVSource(config.CSV), nil
	default:
		return nil, &exchange.ExchangeError{
			Code:    "UNSUPPORTED_MARKET_DATA_SOURCE",
			Message: fmt.Sprintf("Market data source '%s' is not supported", config.MarketDataSource),
			Details: fmt.Sprintf("Supported sources: %v", SupportedMarketDataSources),
		}
	}
}

// NewVenue creates the execution venue named in the config. The paper venue
// prices its fills from data.
func NewVenue(config exchange.ExchangeConfig, data exchange.MarketDataSource) (exchange.Venue, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(config.Name)) {
	case "bybit":
		return NewBybitAdapter(config.Bybit)
	case "paper":
		return NewPaperVenue(config.Paper, data), nil
	default:
		return nil, &exchange.ExchangeError{
			Code:    "UNSUPPORTED_EXCHANGE",
			Message: fmt.Sprintf("Exchange '%s' is not supported", config.Name),
			Details: fmt.Sprintf("Supported exchanges: %v", SupportedVenues),
		}
	}
}
