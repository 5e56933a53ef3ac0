package adapters

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange/bybit"
	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

// BybitAdapter exposes the Bybit spot market as a Venue and a MarketDataSource
type BybitAdapter struct {
	client      *bybit.Client
	category    string
	quoteCoin   string
	accountType bybit.AccountType
	now         func() time.Time
}

// NewBybitAdapter creates a new Bybit adapter
func NewBybitAdapter(config *exchange.BybitConfig) (*BybitAdapter, error) {
	if config == nil {
		return nil, &exchange.ExchangeError{
			Code:    "MISSING_BYBIT_CONFIG",
			Message: "Bybit configuration is required",
		}
	}
	client := bybit.NewClient(bybit.Config{
		APIKey:    config.APIKey,
		APISecret: config.APISecret,
		Testnet:   config.Testnet,
		Demo:      config.Demo,
	})
	return newBybitAdapter(client, config), nil
}

func newBybitAdapter(client *bybit.Client, config *exchange.BybitConfig) *BybitAdapter {
	category := config.Category
	if category == "" {
		category = "spot"
	}
	quote := strings.ToUpper(config.QuoteCoin)
	if quote == "" {
		quote = "USDT"
	}
	return &BybitAdapter{
		client:      client,
		category:    category,
		quoteCoin:   quote,
		accountType: bybit.AccountTypeUnified,
		now:         time.Now,
	}
}

// GetName returns the exchange name
func (b *BybitAdapter) GetName() string {
	return "bybit"
}

// GetEnvironment returns mainnet, testnet or demo
func (b *BybitAdapter) GetEnvironment() string {
	return b.client.GetEnvironment()
}

// Ping checks connectivity with a cheap public request
func (b *BybitAdapter) Ping(ctx context.Context) error {
	if _, err := b.client.GetLatestPrice(ctx, b.category, "BTC"+b.quoteCoin); err != nil {
		return b.convertError(err)
	}
	return nil
}

// PlaceOrder submits a spot order sized in the base coin
func (b *BybitAdapter) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	symbol := exchange.ToVenueSymbol(req.Symbol)

	refPrice := req.Price
	if refPrice <= 0 {
		price, err := b.client.GetLatestPrice(ctx, b.category, symbol)
		if err != nil {
			return nil, b.convertError(err)
		}
		refPrice = price
	}

	qty, err := b.client.Instruments().FormatQuantity(ctx, b.category, symbol, req.Quantity, refPrice)
	if err != nil {
		return nil, b.convertError(err)
	}

	clientID := req.ClientOrderID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	order := bybit.Order{
		Category: b.category,
		Symbol:   symbol,
		Side:     bybit.SideBuy,
		Qty:      qty,
		LinkID:   clientID,
	}
	if req.Side == exchange.OrderSideSell {
		order.Side = bybit.SideSell
	}
	if req.Type == exchange.OrderTypeLimit {
		order.Price = decimal.NewFromFloat(req.Price).String()
	}

	ack, err := b.client.PlaceOrder(ctx, order)
	if err != nil {
		return nil, b.convertError(err)
	}

	status := "Filled"
	if req.Type == exchange.OrderTypeLimit {
		status = "New"
	}
	return &exchange.OrderResult{
		OrderID:       ack.OrderID,
		ClientOrderID: ack.OrderLinkID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      parseQty(qty),
		Price:         refPrice,
		Status:        status,
		Timestamp:     b.now(),
	}, nil
}

// CancelOrder cancels an existing order
func (b *BybitAdapter) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if err := b.client.CancelOrder(ctx, b.category, exchange.ToVenueSymbol(symbol), orderID); err != nil {
		return b.convertError(err)
	}
	return nil
}

// GetBalance returns the free balance of the quote coin
func (b *BybitAdapter) GetBalance(ctx context.Context) (float64, error) {
	balance, err := b.client.GetCoinBalance(ctx, b.accountType, b.quoteCoin)
	if err != nil {
		return 0, b.convertError(err)
	}
	return balance.Free, nil
}

// GetPositions derives spot holdings from non-quote coin balances
func (b *BybitAdapter) GetPositions(ctx context.Context) ([]exchange.VenuePosition, error) {
	balances, err := b.client.GetWalletBalance(ctx, b.accountType)
	if err != nil {
		return nil, b.convertError(err)
	}
	return positionsFromBalances(balances, b.quoteCoin), nil
}

func positionsFromBalances(balances []bybit.Balance, quote string) []exchange.VenuePosition {
	var positions []exchange.VenuePosition
	for _, bal := range balances {
		coin := strings.ToUpper(bal.Coin)
		if coin == quote || bal.WalletBalance <= 0 {
			continue
		}
		positions = append(positions, exchange.VenuePosition{
			Symbol: coin + "/" + quote,
			Size:   bal.WalletBalance,
		})
	}
	return positions
}

// GetOHLCV returns candles oldest first
func (b *BybitAdapter) GetOHLCV(ctx context.Context, symbol, timeframe string, limit int) (*types.MarketSeries, error) {
	interval, err := bybit.ConvertInterval(timeframe)
	if err != nil {
		return nil, err
	}
	klines, err := b.client.GetKlines(ctx, bybit.KlineParams{
		Category: b.category,
		Symbol:   exchange.ToVenueSymbol(symbol),
		Interval: interval,
		Limit:    limit,
	})
	if err != nil {
		return nil, b.convertError(err)
	}

	candles := make([]types.OHLCV, len(klines))
	for i, k := range klines {
		candles[i] = types.OHLCV{
			Open:      k.OpenPrice,
			High:      k.HighPrice,
			Low:       k.LowPrice,
			Close:     k.ClosePrice,
			Volume:    k.Volume,
			Timestamp: k.StartTime,
		}
	}
	return types.NewMarketSeries(symbol, timeframe, candles), nil
}

// GetCurrentPrice returns the last traded price
func (b *BybitAdapter) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	price, err := b.client.GetLatestPrice(ctx, b.category, exchange.ToVenueSymbol(symbol))
	if err != nil {
		return 0, b.convertError(err)
	}
	return price, nil
}

// ListSymbols ranks spot tickers by 24h turnover or change
func (b *BybitAdapter) ListSymbols(ctx context.Context, mode exchange.SymbolMode, filter exchange.SymbolFilter) ([]string, error) {
	if filter.QuoteAsset == "" {
		filter.QuoteAsset = b.quoteCoin
	}
	raw, err := b.client.GetTickers(ctx, b.category, "")
	if err != nil {
		return nil, b.convertError(err)
	}
	return exchange.RankSymbols(convertBybitTickers(raw, filter.QuoteAsset, b.now()), mode, filter), nil
}

func convertBybitTickers(raw []bybit.Ticker, quote string, ts time.Time) []types.Ticker {
	tickers := make([]types.Ticker, 0, len(raw))
	for _, t := range raw {
		tickers = append(tickers, types.Ticker{
			Symbol:      exchange.FromVenueSymbol(t.Symbol, quote),
			Price:       t.LastPrice,
			Volume:      t.Volume24h,
			QuoteVolume: t.Turnover24h,
			ChangePct:   t.Price24hPcnt * 100,
			Timestamp:   ts,
		})
	}
	return tickers
}

// convertError converts Bybit-specific errors to the standard error format
func (b *BybitAdapter) convertError(err error) error {
	if err == nil {
		return nil
	}
	if exchangeErr, ok := err.(*exchange.ExchangeError); ok {
		return exchangeErr
	}

	kind, ok := bybit.KindOf(err)
	if !ok {
		return exchange.ErrConnectionFailed.WithDetails(err.Error())
	}
	switch kind {
	case bybit.KindAuth:
		return exchange.ErrAuthenticationFailed.WithDetails(err.Error())
	case bybit.KindRateLimit:
		return exchange.ErrRateLimitExceeded.WithDetails(err.Error())
	case bybit.KindBalance:
		return exchange.ErrInsufficientBalance.WithDetails(err.Error())
	case bybit.KindQuantity:
		return exchange.ErrOrderSizeTooSmall.WithDetails(err.Error())
	case bybit.KindSymbol:
		return exchange.ErrInvalidSymbol.WithDetails(err.Error())
	}
	return &exchange.ExchangeError{
		Code:        "BYBIT_API_ERROR",
		Message:     "Bybit API rejected the request",
		Details:     err.Error(),
		IsRetryable: kind.Retryable(),
	}
}
