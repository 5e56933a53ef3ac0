package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
	"github.com/ducminhle1904/crypto-trading-bot/internal/signal"
	"github.com/ducminhle1904/crypto-trading-bot/internal/state"
	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After never fires; loops block until cancelled
func (c *fakeClock) After(time.Duration) <-chan time.Time { return make(chan time.Time) }

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeVenue struct {
	mu        sync.Mutex
	balance   float64
	balErr    error
	pingErr   error
	orderErr  error
	positions []exchange.VenuePosition
	posErr    error
	prices    map[string]float64
	orders    []exchange.OrderRequest
	settle    bool // move cash on fills

	// when set, PlaceOrder signals entered and blocks until gate is closed
	gate    chan struct{}
	entered chan struct{}
}

func newFakeVenue(balance float64) *fakeVenue {
	return &fakeVenue{balance: balance, prices: map[string]float64{}, posErr: fmt.Errorf("positions unavailable")}
}

func (v *fakeVenue) GetName() string { return "fake" }

func (v *fakeVenue) Ping(context.Context) error { return v.pingErr }

func (v *fakeVenue) PlaceOrder(_ context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	if v.gate != nil {
		select {
		case v.entered <- struct{}{}:
		default:
		}
		<-v.gate
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.orders = append(v.orders, req)
	if v.orderErr != nil {
		return nil, v.orderErr
	}
	if v.settle {
		notional := req.Quantity * v.prices[req.Symbol]
		if req.Side == exchange.OrderSideBuy {
			v.balance -= notional
		} else {
			v.balance += notional
		}
	}
	return &exchange.OrderResult{
		OrderID:  fmt.Sprintf("o%d", len(v.orders)),
		Symbol:   req.Symbol,
		Side:     req.Side,
		Type:     req.Type,
		Quantity: req.Quantity,
		Price:    v.prices[req.Symbol],
		Status:   "Filled",
	}, nil
}

func (v *fakeVenue) CancelOrder(context.Context, string, string) error { return nil }

func (v *fakeVenue) GetBalance(context.Context) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balance, v.balErr
}

func (v *fakeVenue) GetPositions(context.Context) ([]exchange.VenuePosition, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]exchange.VenuePosition(nil), v.positions...), v.posErr
}

func (v *fakeVenue) placed() []exchange.OrderRequest {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]exchange.OrderRequest(nil), v.orders...)
}

func (v *fakeVenue) setPrice(symbol string, price float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.prices[symbol] = price
}

type fakeData struct {
	mu      sync.Mutex
	closes  map[string]float64
	failing map[string]bool
	symbols []string
	listErr error
	pingErr error
	calls   int
}

func newFakeData() *fakeData {
	return &fakeData{closes: map[string]float64{}, failing: map[string]bool{}}
}

func (d *fakeData) GetName() string { return "fake-data" }

func (d *fakeData) Ping(context.Context) error { return d.pingErr }

func (d *fakeData) GetOHLCV(_ context.Context, symbol, timeframe string, limit int) (*types.MarketSeries, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.failing[symbol] {
		return nil, fmt.Errorf("%s unavailable", symbol)
	}
	last, ok := d.closes[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}
	candles := make([]types.OHLCV, limit)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		candles[i] = types.OHLCV{Open: last, High: last, Low: last, Close: last, Volume: 10, Timestamp: start.Add(time.Duration(i) * time.Hour)}
	}
	return types.NewMarketSeries(symbol, timeframe, candles), nil
}

func (d *fakeData) GetCurrentPrice(_ context.Context, symbol string) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.closes[symbol]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("no price for %s", symbol)
}

func (d *fakeData) ListSymbols(context.Context, exchange.SymbolMode, exchange.SymbolFilter) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.symbols...), d.listErr
}

func (d *fakeData) set(symbol string, price float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes[symbol] = price
}

func (d *fakeData) fail(symbol string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failing[symbol] = true
}

type fakeSignals struct {
	mu       sync.Mutex
	signals  map[string]signal.Signal
	received []string
	panicMsg string
}

func newFakeSignals() *fakeSignals { return &fakeSignals{signals: map[string]signal.Signal{}} }

func (s *fakeSignals) GenerateSignals(_ context.Context, data map[string]*types.MarketSeries) map[string]signal.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	s.received = s.received[:0]
	out := make(map[string]signal.Signal)
	for symbol := range data {
		s.received = append(s.received, symbol)
		if sig, ok := s.signals[symbol]; ok {
			out[symbol] = sig
		}
	}
	return out
}

func (s *fakeSignals) set(symbol string, d signal.Decision, confidence float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals[symbol] = signal.Signal{Symbol: symbol, Decision: d, Confidence: confidence, Sentiment: 0.8}
}

func (s *fakeSignals) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = map[string]signal.Signal{}
}

func (s *fakeSignals) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

type memTrades struct {
	mu     sync.Mutex
	trades []risk.TradeRecord
}

func (m *memTrades) SaveTrade(_ context.Context, tr risk.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, tr)
	return nil
}

func (m *memTrades) RecentTrades(_ context.Context, limit int) ([]risk.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > 0 && len(m.trades) > limit {
		return append([]risk.TradeRecord(nil), m.trades[len(m.trades)-limit:]...), nil
	}
	return append([]risk.TradeRecord(nil), m.trades...), nil
}

func (m *memTrades) all() []risk.TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]risk.TradeRecord(nil), m.trades...)
}

type memState struct {
	mu    sync.Mutex
	saved *state.DayState
	saves int
}

func (m *memState) Save(s state.DayState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = &s
	m.saves++
	return nil
}

func (m *memState) Load() (state.DayState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return state.DayState{}, false, nil
	}
	return *m.saved, true, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []string
}

func (r *recordingNotifier) SendAlert(level, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, level+": "+message)
	return nil
}

func (r *recordingNotifier) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.alerts...)
}
