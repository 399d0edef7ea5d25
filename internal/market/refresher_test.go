package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cbex-demo/live-market/internal/logger"
	"github.com/cbex-demo/live-market/internal/model"
	"github.com/cbex-demo/live-market/internal/store"
)

type fakeSource struct {
	prices    []model.PriceEntry
	priceErr  error
	orders    []model.Order
	orderErr  error
	sinceSeen []int64
}

func (f *fakeSource) FetchPrices(context.Context) ([]model.PriceEntry, error) {
	if f.priceErr != nil {
		return nil, f.priceErr
	}
	return f.prices, nil
}

func (f *fakeSource) FetchOrdersSince(_ context.Context, ts int64, _ int) ([]model.Order, error) {
	f.sinceSeen = append(f.sinceSeen, ts)
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	var out []model.Order
	for _, o := range f.orders {
		if o.Ts > ts {
			out = append(out, o)
		}
	}
	return out, nil
}

func newTestRefresher(source *fakeSource) (*Refresher, *Cache, *Ledger) {
	cache := NewCache()
	ledger := NewLedger()
	return NewRefresher(source, cache, ledger, 50, logger.NewNop()), cache, ledger
}

func TestCycleComputesChangePct(t *testing.T) {
	source := &fakeSource{
		prices: []model.PriceEntry{
			{Symbol: "A", Price: 110, StartingPrice: 100},
			{Symbol: "B", Price: 45, StartingPrice: 50},
		},
	}
	r, cache, _ := newTestRefresher(source)

	r.cycle(context.Background())

	table := cache.CurrentPrices()
	require.InDelta(t, 10.0, table["A"].ChangePct, 1e-9)
	require.InDelta(t, -10.0, table["B"].ChangePct, 1e-9)
}

func TestCycleRepricesEveryOrder(t *testing.T) {
	source := &fakeSource{
		prices: []model.PriceEntry{
			{Symbol: "A", Price: 110, StartingPrice: 100},
			{Symbol: "B", Price: 45, StartingPrice: 50},
		},
		orders: []model.Order{
			{Name: "first", Ts: 1, Lines: []model.OrderLine{
				{Symbol: "A", PurchasePrice: 100, Quantity: 1},
				{Symbol: "B", PurchasePrice: 50, Quantity: 2},
			}},
		},
	}
	r, _, ledger := newTestRefresher(source)

	r.cycle(context.Background())
	orders := ledger.Snapshot()
	require.Len(t, orders, 1)
	require.InDelta(t, 110.0+90.0, orders[0].CurrentValue, 1e-9)

	// Prices move; the next cycle reprices against the new table, and
	// the value matches that cycle's table exactly.
	source.prices = []model.PriceEntry{
		{Symbol: "A", Price: 120, StartingPrice: 100},
		{Symbol: "B", Price: 40, StartingPrice: 50},
	}
	r.cycle(context.Background())
	orders = ledger.Snapshot()
	require.InDelta(t, 120.0+80.0, orders[0].CurrentValue, 1e-9)
}

func TestCycleAdvancesWatermarkAndNeverDuplicates(t *testing.T) {
	source := &fakeSource{
		prices: []model.PriceEntry{{Symbol: "A", Price: 1, StartingPrice: 1}},
		orders: []model.Order{
			{Name: "a", Ts: 5},
			{Name: "b", Ts: 7},
		},
	}
	r, _, ledger := newTestRefresher(source)

	r.cycle(context.Background())
	require.Equal(t, 2, ledger.Len())
	require.EqualValues(t, 7, ledger.HighWatermark())

	// Same source content: nothing is newer than the watermark.
	r.cycle(context.Background())
	require.Equal(t, 2, ledger.Len())
	require.Equal(t, []int64{0, 7}, source.sinceSeen)
}

func TestPriceFetchFailureSkipsWholeCycle(t *testing.T) {
	source := &fakeSource{
		prices: []model.PriceEntry{{Symbol: "A", Price: 100, StartingPrice: 100}},
		orders: []model.Order{{Name: "a", Ts: 1}},
	}
	r, cache, ledger := newTestRefresher(source)
	r.cycle(context.Background())

	source.priceErr = store.ErrDataUnavailable
	source.orders = append(source.orders, model.Order{Name: "b", Ts: 2})
	r.cycle(context.Background())

	// Old table stays authoritative and no orders were fetched.
	require.Equal(t, 100.0, cache.CurrentPrices()["A"].Price)
	require.Equal(t, 1, ledger.Len())
}

func TestOrderFetchFailureStillPublishesPrices(t *testing.T) {
	source := &fakeSource{
		prices:   []model.PriceEntry{{Symbol: "A", Price: 123, StartingPrice: 100}},
		orderErr: store.ErrDataUnavailable,
	}
	r, cache, ledger := newTestRefresher(source)

	r.cycle(context.Background())
	require.Equal(t, 123.0, cache.CurrentPrices()["A"].Price)
	require.Equal(t, 0, ledger.Len())
}

func TestNextDelayClampsOverrunToZero(t *testing.T) {
	require.Equal(t, time.Duration(0), nextDelay(5*time.Second, 6*time.Second))
	require.Equal(t, time.Duration(0), nextDelay(5*time.Second, 5*time.Second))
	require.Equal(t, 2*time.Second, nextDelay(5*time.Second, 3*time.Second))
}

func TestRunNeverCyclesOnCancelledContext(t *testing.T) {
	source := &fakeSource{
		prices: []model.PriceEntry{{Symbol: "A", Price: 1, StartingPrice: 1}},
	}
	r, cache, _ := newTestRefresher(source)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Zero period keeps the pacing delay at zero; cancellation must
	// still win before any cycle starts.
	r.Run(ctx, 0)
	require.Empty(t, source.sinceSeen)
	require.Empty(t, cache.CurrentPrices())
}

func TestRunStopsOnCancelAfterInFlightCycle(t *testing.T) {
	source := &fakeSource{
		prices: []model.PriceEntry{{Symbol: "A", Price: 1, StartingPrice: 1}},
	}
	r, cache, _ := newTestRefresher(source)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, 50*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresher did not stop on cancel")
	}
	// The first cycle ran to completion before exit.
	require.Equal(t, 1.0, cache.CurrentPrices()["A"].Price)
}
