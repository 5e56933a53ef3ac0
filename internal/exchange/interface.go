package exchange

import (
	"context"
	"time"

	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

// Venue is where orders are executed. A nil result or an error means the
// order was not placed.
type Venue interface {
	GetName() string
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	GetBalance(ctx context.Context) (float64, error)
	GetPositions(ctx context.Context) ([]VenuePosition, error)
}

// MarketDataSource provides candles, prices and tradable symbols
type MarketDataSource interface {
	GetName() string
	// GetOHLCV returns candles oldest first
	GetOHLCV(ctx context.Context, symbol, timeframe string, limit int) (*types.MarketSeries, error)
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
	ListSymbols(ctx context.Context, mode SymbolMode, filter SymbolFilter) ([]string, error)
}

// Pinger is implemented by collaborators with a cheap connectivity check
type Pinger interface {
	Ping(ctx context.Context) error
}

// OrderSide represents buy or sell side
type OrderSide string

const (
	OrderSideBuy  OrderSide = "Buy"
	OrderSideSell OrderSide = "Sell"
)

// OrderType represents different order types
type OrderType string

const (
	OrderTypeMarket OrderType = "Market"
	OrderTypeLimit  OrderType = "Limit"
)

// OrderRequest describes an order to submit
type OrderRequest struct {
	Symbol        string    `json:"symbol"` // BASE/QUOTE
	Side          OrderSide `json:"side"`
	Type          OrderType `json:"type"`
	Quantity      float64   `json:"quantity"`
	Price         float64   `json:"price,omitempty"` // required for limit orders
	ClientOrderID string    `json:"client_order_id,omitempty"`
}

// OrderResult is what the venue reports for an accepted order
type OrderResult struct {
	OrderID       string    `json:"order_id"`
	ClientOrderID string    `json:"client_order_id"`
	Symbol        string    `json:"symbol"`
	Side          OrderSide `json:"side"`
	Type          OrderType `json:"type"`
	Quantity      float64   `json:"quantity"`
	Price         float64   `json:"price"` // average fill price when known
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}

// VenuePosition is the venue's authoritative view of a holding
type VenuePosition struct {
	Symbol   string  `json:"symbol"`
	Size     float64 `json:"size"`
	AvgPrice float64 `json:"avg_price,omitempty"`
}

// SymbolMode selects how tradable symbols are ranked
type SymbolMode string

const (
	SymbolModeAll        SymbolMode = "all"
	SymbolModeTrending   SymbolMode = "trending"
	SymbolModeHighVolume SymbolMode = "high_volume"
)

// SymbolFilter narrows the symbol universe
type SymbolFilter struct {
	QuoteAsset   string   `json:"quote_asset"`
	MinVolumeUSD float64  `json:"min_volume_usd"`
	Limit        int      `json:"limit"`
	Exclude      []string `json:"exclude"`
}
