package market

import (
	"sync"

	"github.com/cbex-demo/live-market/internal/model"
)

// Cache holds the latest published price table. Exactly one writer (the
// refresher) replaces the whole table; any number of subscriptions read
// it concurrently. A published table is never edited in place, so a
// reader either sees the previous table or the next one, never a mix.
type Cache struct {
	mu    sync.RWMutex
	table model.PriceTable
}

func NewCache() *Cache {
	return &Cache{
		table: model.PriceTable{},
	}
}

// CurrentPrices returns the last published table. Callers must treat it
// as read-only.
func (c *Cache) CurrentPrices() model.PriceTable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table
}

// Publish swaps in a new table. The caller hands over ownership and
// must not mutate it afterwards.
func (c *Cache) Publish(table model.PriceTable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = table
}
