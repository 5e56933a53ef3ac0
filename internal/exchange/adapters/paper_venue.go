package adapters

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange"
)

// PriceSource is the part of a MarketDataSource the paper venue needs
type PriceSource interface {
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// PaperVenue fills market orders in memory at the current price
type PaperVenue struct {
	mu        sync.Mutex
	prices    PriceSource
	quoteCoin string
	feeRate   decimal.Decimal
	balance   decimal.Decimal
	holdings  map[string]decimal.Decimal
	orders    []exchange.OrderResult
	now       func() time.Time
}

// NewPaperVenue creates a paper venue funded with the initial balance
func NewPaperVenue(config *exchange.PaperConfig, prices PriceSource) *PaperVenue {
	if config == nil {
		config = &exchange.PaperConfig{InitialBalance: 10000}
	}
	quote := strings.ToUpper(config.QuoteCoin)
	if quote == "" {
		quote = "USDT"
	}
	return &PaperVenue{
		prices:    prices,
		quoteCoin: quote,
		feeRate:   decimal.NewFromFloat(config.FeeRate),
		balance:   decimal.NewFromFloat(config.InitialBalance),
		holdings:  make(map[string]decimal.Decimal),
		now:       time.Now,
	}
}

// GetName returns the venue name
func (p *PaperVenue) GetName() string {
	return "paper"
}

// Ping always succeeds
func (p *PaperVenue) Ping(context.Context) error {
	return nil
}

// PlaceOrder fills the whole quantity at once
func (p *PaperVenue) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	if req.Quantity <= 0 {
		return nil, exchange.ErrOrderSizeTooSmall.WithDetails(fmt.Sprintf("quantity %v", req.Quantity))
	}
	price := req.Price
	if price <= 0 {
		if p.prices == nil {
			return nil, exchange.ErrConnectionFailed.WithDetails("paper venue has no price source")
		}
		current, err := p.prices.GetCurrentPrice(ctx, req.Symbol)
		if err != nil {
			return nil, err
		}
		price = current
	}

	qty := decimal.NewFromFloat(req.Quantity)
	fillPrice := decimal.NewFromFloat(price)
	notional := qty.Mul(fillPrice)
	fee := notional.Mul(p.feeRate)
	symbol := strings.ToUpper(req.Symbol)

	p.mu.Lock()
	defer p.mu.Unlock()

	switch req.Side {
	case exchange.OrderSideBuy:
		cost := notional.Add(fee)
		if cost.GreaterThan(p.balance) {
			return nil, exchange.ErrInsufficientBalance.WithDetails(
				fmt.Sprintf("need %s %s, have %s", cost.StringFixed(2), p.quoteCoin, p.balance.StringFixed(2)))
		}
		p.balance = p.balance.Sub(cost)
		p.holdings[symbol] = p.holdings[symbol].Add(qty)
	case exchange.OrderSideSell:
		held := p.holdings[symbol]
		if !held.IsPositive() {
			return nil, exchange.ErrNoPosition.WithDetails(symbol)
		}
		if qty.GreaterThan(held) {
			qty = held
			notional = qty.Mul(fillPrice)
			fee = notional.Mul(p.feeRate)
		}
		p.balance = p.balance.Add(notional.Sub(fee))
		if rest := held.Sub(qty); rest.IsPositive() {
			p.holdings[symbol] = rest
		} else {
			delete(p.holdings, symbol)
		}
	default:
		return nil, fmt.Errorf("unsupported order side %q", req.Side)
	}

	clientID := req.ClientOrderID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	filled, _ := qty.Float64()
	res := exchange.OrderResult{
		OrderID:       uuid.NewString(),
		ClientOrderID: clientID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      filled,
		Price:         price,
		Status:        "Filled",
		Timestamp:     p.now(),
	}
	p.orders = append(p.orders, res)
	return &res, nil
}

// CancelOrder is a no-op, paper orders fill immediately
func (p *PaperVenue) CancelOrder(context.Context, string, string) error {
	return nil
}

// GetBalance returns the quote balance
func (p *PaperVenue) GetBalance(context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, _ := p.balance.Float64()
	return b, nil
}

// GetPositions returns the non-zero holdings
func (p *PaperVenue) GetPositions(context.Context) ([]exchange.VenuePosition, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	positions := make([]exchange.VenuePosition, 0, len(p.holdings))
	for symbol, qty := range p.holdings {
		size, _ := qty.Float64()
		positions = append(positions, exchange.VenuePosition{Symbol: symbol, Size: size})
	}
	return positions, nil
}

// Orders returns a copy of the fill history
func (p *PaperVenue) Orders() []exchange.OrderResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]exchange.OrderResult, len(p.orders))
	copy(out, p.orders)
	return out
}
