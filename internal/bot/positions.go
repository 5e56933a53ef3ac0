package bot

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
	"github.com/ducminhle1904/crypto-trading-bot/internal/state"
)

// PositionView is the read-only form of a tracked position
type PositionView struct {
	Symbol     string    `json:"symbol"`
	Size       float64   `json:"size"`
	AvgEntry   float64   `json:"avg_entry"`
	HighWater  float64   `json:"high_water"`
	StopLoss   float64   `json:"stop_loss,omitempty"`
	TakeProfit float64   `json:"take_profit,omitempty"`
	RiskUSD    float64   `json:"risk_usd"`
	OpenedAt   time.Time `json:"opened_at"`
}

// exitLevels are the prices a fill was sized against; zero means unset
type exitLevels struct {
	stopLoss   float64
	takeProfit float64
}

type position struct {
	size       decimal.Decimal
	avgEntry   decimal.Decimal
	highWater  decimal.Decimal
	stopLoss   decimal.Decimal
	takeProfit decimal.Decimal
	riskUSD    float64
	openedAt   time.Time
}

// positionBook tracks holdings with a volume weighted average cost
type positionBook struct {
	mu        sync.RWMutex
	positions map[string]*position
}

func newPositionBook() *positionBook {
	return &positionBook{positions: make(map[string]*position)}
}

// add folds a buy fill into the average cost. Exit levels are blended by
// size the same way; a level is kept only while every fill carries one.
func (b *positionBook) add(symbol string, qty, price, riskUSD float64, at time.Time, exits exitLevels) {
	if qty <= 0 || price <= 0 {
		return
	}
	q := decimal.NewFromFloat(qty)
	p := decimal.NewFromFloat(price)
	sl := positiveDecimal(exits.stopLoss)
	tp := positiveDecimal(exits.takeProfit)

	b.mu.Lock()
	defer b.mu.Unlock()
	pos, ok := b.positions[symbol]
	if !ok {
		b.positions[symbol] = &position{size: q, avgEntry: p, highWater: p, stopLoss: sl, takeProfit: tp, riskUSD: riskUSD, openedAt: at}
		return
	}
	total := pos.size.Add(q)
	pos.avgEntry = blend(pos.size, pos.avgEntry, q, p)
	pos.stopLoss = blend(pos.size, pos.stopLoss, q, sl)
	pos.takeProfit = blend(pos.size, pos.takeProfit, q, tp)
	pos.size = total
	pos.riskUSD += riskUSD
	if p.GreaterThan(pos.highWater) {
		pos.highWater = p
	}
}

// reduce removes qty from a holding and returns the average entry it was
// carried at. The position is dropped once nothing is left.
func (b *positionBook) reduce(symbol string, qty float64) (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pos, ok := b.positions[symbol]
	if !ok {
		return decimal.Zero, false
	}
	avg := pos.avgEntry
	q := decimal.NewFromFloat(qty)
	if q.GreaterThanOrEqual(pos.size) {
		delete(b.positions, symbol)
		return avg, true
	}
	remaining := pos.size.Sub(q)
	pos.riskUSD *= remaining.Div(pos.size).InexactFloat64()
	pos.size = remaining
	return avg, true
}

// observe raises the high-water mark used by the trailing stop
func (b *positionBook) observe(symbol string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if pos, ok := b.positions[symbol]; ok {
		if p := decimal.NewFromFloat(price); p.GreaterThan(pos.highWater) {
			pos.highWater = p
		}
	}
}

// reconcile applies the venue's view: the venue size wins for every symbol it
// reports. Unknown holdings are adopted at the venue's average price, or at
// the last known price when the venue has none.
func (b *positionBook) reconcile(venue []exchange.VenuePosition, lastPrice func(string) float64, at time.Time) (changed []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, vp := range venue {
		pos, tracked := b.positions[vp.Symbol]
		if vp.Size <= 0 {
			if tracked {
				delete(b.positions, vp.Symbol)
				changed = append(changed, vp.Symbol)
			}
			continue
		}
		size := decimal.NewFromFloat(vp.Size)
		if tracked {
			if !pos.size.Equal(size) {
				if pos.size.IsPositive() {
					pos.riskUSD *= size.Div(pos.size).InexactFloat64()
				}
				pos.size = size
				changed = append(changed, vp.Symbol)
			}
			continue
		}
		entry := vp.AvgPrice
		if entry <= 0 {
			entry = lastPrice(vp.Symbol)
		}
		if entry <= 0 {
			continue
		}
		e := decimal.NewFromFloat(entry)
		b.positions[vp.Symbol] = &position{size: size, avgEntry: e, highWater: e, openedAt: at}
		changed = append(changed, vp.Symbol)
	}
	return changed
}

func (b *positionBook) get(symbol string) (PositionView, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	pos, ok := b.positions[symbol]
	if !ok {
		return PositionView{}, false
	}
	return pos.view(symbol), true
}

// views returns every position sorted by symbol
func (b *positionBook) views() []PositionView {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]PositionView, 0, len(b.positions))
	for symbol, pos := range b.positions {
		out = append(out, pos.view(symbol))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (b *positionBook) symbols() []string {
	views := b.views()
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.Symbol
	}
	return out
}

func (b *positionBook) exposures() []risk.Exposure {
	views := b.views()
	out := make([]risk.Exposure, len(views))
	for i, v := range views {
		out[i] = risk.Exposure{Symbol: v.Symbol, Size: v.Size, RiskAmount: v.RiskUSD, RiskKnown: v.RiskUSD > 0}
	}
	return out
}

func (b *positionBook) snapshot() []state.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]state.Position, 0, len(b.positions))
	for symbol, pos := range b.positions {
		out = append(out, state.Position{
			Symbol:     symbol,
			Size:       pos.size,
			AvgEntry:   pos.avgEntry,
			HighWater:  pos.highWater,
			StopLoss:   pos.stopLoss,
			TakeProfit: pos.takeProfit,
			RiskUSD:    pos.riskUSD,
			OpenedAt:   pos.openedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (b *positionBook) restore(saved []state.Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions = make(map[string]*position, len(saved))
	for _, p := range saved {
		if !p.Size.IsPositive() {
			continue
		}
		high := p.HighWater
		if high.LessThan(p.AvgEntry) {
			high = p.AvgEntry
		}
		b.positions[p.Symbol] = &position{
			size:       p.Size,
			avgEntry:   p.AvgEntry,
			highWater:  high,
			stopLoss:   p.StopLoss,
			takeProfit: p.TakeProfit,
			riskUSD:    p.RiskUSD,
			openedAt:   p.OpenedAt,
		}
	}
}

func (p *position) view(symbol string) PositionView {
	return PositionView{
		Symbol:     symbol,
		Size:       p.size.InexactFloat64(),
		AvgEntry:   p.avgEntry.InexactFloat64(),
		HighWater:  p.highWater.InexactFloat64(),
		StopLoss:   p.stopLoss.InexactFloat64(),
		TakeProfit: p.takeProfit.InexactFloat64(),
		RiskUSD:    p.riskUSD,
		OpenedAt:   p.openedAt,
	}
}

// marketValue prices every holding at lastPrice, falling back to the
// average entry when no price is known
func (b *positionBook) marketValue(lastPrice func(string) float64) float64 {
	total := 0.0
	for _, v := range b.views() {
		price := lastPrice(v.Symbol)
		if price <= 0 {
			price = v.AvgEntry
		}
		total += v.Size * price
	}
	return total
}

// blend is the size weighted mean of two levels, zero if either is unset
func blend(size, level, qty, next decimal.Decimal) decimal.Decimal {
	if !level.IsPositive() || !next.IsPositive() {
		return decimal.Zero
	}
	return size.Mul(level).Add(qty.Mul(next)).Div(size.Add(qty))
}

func positiveDecimal(v float64) decimal.Decimal {
	if v <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
