package market

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cbex-demo/live-market/internal/model"
)

func TestLedgerSliceFromCursorsNeverOverlap(t *testing.T) {
	ledger := NewLedger()
	ledger.Append(model.Order{Name: "a", Ts: 1})
	ledger.Append(model.Order{Name: "b", Ts: 2})

	items, cursor := ledger.SliceFrom(0)
	require.Len(t, items, 2)
	require.Equal(t, 2, cursor)

	// Nothing new: the same cursor comes back and no items repeat.
	items, cursor = ledger.SliceFrom(cursor)
	require.Empty(t, items)
	require.Equal(t, 2, cursor)

	ledger.Append(model.Order{Name: "c", Ts: 3})
	items, cursor = ledger.SliceFrom(cursor)
	require.Len(t, items, 1)
	require.Equal(t, "c", items[0].Name)
	require.Equal(t, 3, cursor)
}

func TestLedgerHighWatermarkAdvances(t *testing.T) {
	ledger := NewLedger()
	require.EqualValues(t, 0, ledger.HighWatermark())

	ledger.Append(model.Order{Name: "a", Ts: 10})
	ledger.Append(model.Order{Name: "b", Ts: 25})
	require.EqualValues(t, 25, ledger.HighWatermark())

	// Out-of-order timestamp never rewinds the watermark.
	ledger.Append(model.Order{Name: "c", Ts: 20})
	require.EqualValues(t, 25, ledger.HighWatermark())
}

func TestLedgerRepriceMatchesTable(t *testing.T) {
	ledger := NewLedger()
	ledger.Append(model.Order{
		Name: "a",
		Ts:   1,
		Lines: []model.OrderLine{
			{Symbol: "A", PurchasePrice: 100, Quantity: 1},
			{Symbol: "B", PurchasePrice: 50, Quantity: 2},
		},
	})

	ledger.Reprice(model.PriceTable{
		"A": {Symbol: "A", Price: 110},
		"B": {Symbol: "B", Price: 45},
	})

	orders := ledger.Snapshot()
	require.Equal(t, 1*110.0+2*45.0, orders[0].CurrentValue)
}

func TestLedgerConcurrentAppendAndRead(t *testing.T) {
	ledger := NewLedger()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			ledger.Append(model.Order{Name: fmt.Sprintf("o%d", i), Ts: int64(i)})
		}
	}()

	// Readers walk their own cursors; every observed prefix must be
	// consistent and monotone.
	for r := 0; r < 3; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cursor := 0
			seen := 0
			for seen < 500 {
				items, next := ledger.SliceFrom(cursor)
				if next < cursor {
					t.Errorf("cursor went backwards: %d -> %d", cursor, next)
					return
				}
				seen += len(items)
				cursor = next
			}
		}()
	}

	wg.Wait()
	require.Equal(t, 500, ledger.Len())
}
