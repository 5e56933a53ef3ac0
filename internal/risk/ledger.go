package risk

import "sync"

// Ledger is a bounded, insertion-ordered trade history. The oldest entry is
// evicted once capacity is reached.
type Ledger struct {
	mu       sync.RWMutex
	capacity int
	trades   []TradeRecord
}

// NewLedger creates a ledger holding at most capacity trades
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultLedgerCapacity
	}
	return &Ledger{
		capacity: capacity,
		trades:   make([]TradeRecord, 0, capacity),
	}
}

// Append records a trade, evicting the oldest when full
func (l *Ledger) Append(tr TradeRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.trades) >= l.capacity {
		copy(l.trades, l.trades[1:])
		l.trades = l.trades[:len(l.trades)-1]
	}
	l.trades = append(l.trades, tr)
}

// Restore replaces the ledger content, keeping the newest entries that fit
func (l *Ledger) Restore(trades []TradeRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(trades) > l.capacity {
		trades = trades[len(trades)-l.capacity:]
	}
	l.trades = append(l.trades[:0], trades...)
}

// Trades returns a copy of the ledger, oldest first
func (l *Ledger) Trades() []TradeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]TradeRecord, len(l.trades))
	copy(out, l.trades)
	return out
}

// Len returns the number of recorded trades
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trades)
}

// Capacity returns the maximum number of trades kept
func (l *Ledger) Capacity() int {
	return l.capacity
}
