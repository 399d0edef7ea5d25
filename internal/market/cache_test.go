package market

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cbex-demo/live-market/internal/model"
)

func TestCacheReadsAreIdempotent(t *testing.T) {
	cache := NewCache()
	cache.Publish(model.PriceTable{
		"A": {Symbol: "A", Price: 100, StartingPrice: 100},
	})

	first := cache.CurrentPrices()
	second := cache.CurrentPrices()
	require.Equal(t, first, second)
	require.Equal(t, 100.0, first["A"].Price)
}

func TestCacheStartsEmpty(t *testing.T) {
	cache := NewCache()
	require.Empty(t, cache.CurrentPrices())
}

// Readers must see either the old table or the new one as a whole,
// never a blend of the two.
func TestCachePublishIsAtomic(t *testing.T) {
	cache := NewCache()

	oldTable := model.PriceTable{
		"A": {Symbol: "A", Price: 1},
		"B": {Symbol: "B", Price: 1},
	}
	newTable := model.PriceTable{
		"A": {Symbol: "A", Price: 2},
		"B": {Symbol: "B", Price: 2},
	}
	cache.Publish(oldTable)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				table := cache.CurrentPrices()
				if a, b := table["A"].Price, table["B"].Price; a != b {
					t.Errorf("torn read: A=%v B=%v", a, b)
					return
				}
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		if i%2 == 0 {
			cache.Publish(newTable)
		} else {
			cache.Publish(oldTable)
		}
	}
	close(stop)
	wg.Wait()
}
