package bybit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// InstrumentInfo holds the lot and price filters of a spot instrument
type InstrumentInfo struct {
	Symbol      string
	Status      string
	BaseCoin    string
	QuoteCoin   string
	MinOrderQty decimal.Decimal
	MaxOrderQty decimal.Decimal
	QtyStep     decimal.Decimal
	MinNotional decimal.Decimal
	TickSize    decimal.Decimal
}

// InstrumentManager caches instrument metadata and rounds order quantities
type InstrumentManager struct {
	client         *Client
	instruments    map[string]*cachedInstrument
	mutex          sync.RWMutex
	updateInterval time.Duration
}

type cachedInstrument struct {
	info      *InstrumentInfo
	fetchedAt time.Time
}

// NewInstrumentManager creates a new instrument manager
func NewInstrumentManager(client *Client) *InstrumentManager {
	return &InstrumentManager{
		client:         client,
		instruments:    make(map[string]*cachedInstrument),
		updateInterval: time.Hour,
	}
}

// GetInstrumentInfo retrieves and caches instrument information
func (im *InstrumentManager) GetInstrumentInfo(ctx context.Context, category, symbol string) (*InstrumentInfo, error) {
	im.mutex.RLock()
	cached, exists := im.instruments[symbol]
	im.mutex.RUnlock()
	if exists && time.Since(cached.fetchedAt) < im.updateInterval {
		return cached.info, nil
	}

	if category == "" {
		category = "spot"
	}
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}
	result, err := im.client.httpClient.NewUtaBybitServiceWithParams(params).GetInstrumentInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch instrument info: %w", err)
	}
	info, err := parseInstrumentResponse(result, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to parse instrument info: %w", err)
	}

	im.mutex.Lock()
	im.instruments[symbol] = &cachedInstrument{info: info, fetchedAt: time.Now()}
	im.mutex.Unlock()
	return info, nil
}

// FormatQuantity rounds qty down to the instrument's step and checks the minimums
func (im *InstrumentManager) FormatQuantity(ctx context.Context, category, symbol string, qty, price float64) (string, error) {
	info, err := im.GetInstrumentInfo(ctx, category, symbol)
	if err != nil {
		return "", err
	}
	return info.FormatQuantity(qty, price)
}

// FormatQuantity rounds qty down to QtyStep and validates it against the lot filter
func (i *InstrumentInfo) FormatQuantity(qty, price float64) (string, error) {
	q := decimal.NewFromFloat(qty)
	if i.QtyStep.IsPositive() {
		q = q.Div(i.QtyStep).Floor().Mul(i.QtyStep)
	}
	if !q.IsPositive() {
		return "", &APIError{Code: CodeSpotQtyTooSmall, Message: fmt.Sprintf("%s qty %v rounds to zero", i.Symbol, qty)}
	}
	if i.MinOrderQty.IsPositive() && q.LessThan(i.MinOrderQty) {
		return "", &APIError{Code: CodeSpotQtyTooSmall, Message: fmt.Sprintf("%s qty %s below minimum %s", i.Symbol, q, i.MinOrderQty)}
	}
	if i.MaxOrderQty.IsPositive() && q.GreaterThan(i.MaxOrderQty) {
		q = i.MaxOrderQty
	}
	if price > 0 && i.MinNotional.IsPositive() {
		notional := q.Mul(decimal.NewFromFloat(price))
		if notional.LessThan(i.MinNotional) {
			return "", &APIError{Code: CodeSpotQtyTooSmall, Message: fmt.Sprintf("%s notional %s below minimum %s", i.Symbol, notional.StringFixed(2), i.MinNotional)}
		}
	}
	return q.String(), nil
}

func parseInstrumentResponse(response interface{}, symbol string) (*InstrumentInfo, error) {
	var instrumentResult struct {
		Category string `json:"category"`
		List     []struct {
			Symbol      string `json:"symbol"`
			Status      string `json:"status"`
			BaseCoin    string `json:"baseCoin"`
			QuoteCoin   string `json:"quoteCoin"`
			PriceFilter struct {
				TickSize string `json:"tickSize"`
			} `json:"priceFilter"`
			LotSizeFilter struct {
				BasePrecision string `json:"basePrecision"`
				QtyStep       string `json:"qtyStep"`
				MinOrderQty   string `json:"minOrderQty"`
				MaxOrderQty   string `json:"maxOrderQty"`
				MinOrderAmt   string `json:"minOrderAmt"`
				MinNotional   string `json:"minNotionalValue"`
			} `json:"lotSizeFilter"`
		} `json:"list"`
	}
	if err := decodeResult(response, &instrumentResult); err != nil {
		return nil, err
	}

	for _, item := range instrumentResult.List {
		if item.Symbol != symbol {
			continue
		}
		step := item.LotSizeFilter.QtyStep
		if step == "" {
			// spot instruments publish basePrecision instead of qtyStep
			step = item.LotSizeFilter.BasePrecision
		}
		notional := item.LotSizeFilter.MinNotional
		if notional == "" {
			notional = item.LotSizeFilter.MinOrderAmt
		}
		return &InstrumentInfo{
			Symbol:      item.Symbol,
			Status:      item.Status,
			BaseCoin:    item.BaseCoin,
			QuoteCoin:   item.QuoteCoin,
			MinOrderQty: parseDecimal(item.LotSizeFilter.MinOrderQty),
			MaxOrderQty: parseDecimal(item.LotSizeFilter.MaxOrderQty),
			QtyStep:     parseDecimal(step),
			MinNotional: parseDecimal(notional),
			TickSize:    parseDecimal(item.PriceFilter.TickSize),
		}, nil
	}
	return nil, &APIError{Code: CodeSymbolNotFound, Message: "symbol not found: " + symbol}
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
