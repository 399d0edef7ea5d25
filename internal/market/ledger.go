package market

import (
	"sync"

	"github.com/cbex-demo/live-market/internal/model"
)

// Ledger is the append-only sequence of observed orders, in arrival
// order. The high watermark tracks the newest order timestamp
// incorporated so the refresher only fetches newer ones.
type Ledger struct {
	mu            sync.RWMutex
	orders        []model.Order
	highWatermark int64
}

func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) Append(o model.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders = append(l.orders, o)
	if o.Ts > l.highWatermark {
		l.highWatermark = o.Ts
	}
}

func (l *Ledger) HighWatermark() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.highWatermark
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.orders)
}

// SliceFrom returns copies of all orders at index >= cursor, plus the
// cursor to use on the next call. Cursors only move forward, so two
// consecutive calls never overlap.
func (l *Ledger) SliceFrom(cursor int) ([]model.Order, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if cursor >= len(l.orders) {
		return nil, len(l.orders)
	}
	if cursor < 0 {
		cursor = 0
	}
	items := make([]model.Order, len(l.orders)-cursor)
	copy(items, l.orders[cursor:])
	return items, len(l.orders)
}

// Snapshot returns a copy of the whole ledger.
func (l *Ledger) Snapshot() []model.Order {
	items, _ := l.SliceFrom(0)
	return items
}

// Reprice recomputes CurrentValue for every order against the given
// table. Runs under the write lock so readers never see a torn value.
func (l *Ledger) Reprice(table model.PriceTable) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.orders {
		l.orders[i].CurrentValue = l.orders[i].ValueAgainst(table)
	}
}
