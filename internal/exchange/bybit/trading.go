package bybit

import (
	"context"
	"fmt"
)

// Side is the Bybit order side
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// Order is a spot order. An empty Price places a market order sized in the
// base coin, otherwise a GTC limit order.
type Order struct {
	Category string
	Symbol   string
	Side     Side
	Qty      string
	Price    string
	LinkID   string
}

// OrderAck is the immediate response to a placed order
type OrderAck struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
}

func (o Order) params() (map[string]interface{}, error) {
	if o.Symbol == "" || o.Side == "" || o.Qty == "" {
		return nil, fmt.Errorf("order needs symbol, side and qty: %+v", o)
	}
	if o.Category == "" {
		o.Category = "spot"
	}
	p := map[string]interface{}{
		"category":  o.Category,
		"symbol":    o.Symbol,
		"side":      string(o.Side),
		"orderType": "Market",
		"qty":       o.Qty,
	}
	if o.Price == "" {
		p["marketUnit"] = "baseCoin"
	} else {
		p["orderType"] = "Limit"
		p["price"] = o.Price
		p["timeInForce"] = "GTC"
	}
	if o.LinkID != "" {
		p["orderLinkId"] = o.LinkID
	}
	return p, nil
}

// PlaceOrder submits o and returns the exchange acknowledgement
func (c *Client) PlaceOrder(ctx context.Context, o Order) (*OrderAck, error) {
	params, err := o.params()
	if err != nil {
		return nil, err
	}
	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
	if err != nil {
		return nil, fmt.Errorf("place order %s: %w", o.Symbol, err)
	}
	var ack OrderAck
	if err := decodeResult(result, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// CancelOrder cancels an open order by exchange ID
func (c *Client) CancelOrder(ctx context.Context, category, symbol, orderID string) error {
	if category == "" {
		category = "spot"
	}
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"orderId":  orderID,
	}
	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).CancelOrder(ctx)
	if err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	var ack OrderAck
	return decodeResult(result, &ack)
}
