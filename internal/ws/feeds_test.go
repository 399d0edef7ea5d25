package ws

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cbex-demo/live-market/internal/market"
	"github.com/cbex-demo/live-market/internal/model"
	"github.com/cbex-demo/live-market/internal/store"
)

func orderNamed(name string, ts int64, value float64) model.Order {
	return model.Order{Name: name, Ts: ts, CurrentValue: value}
}

func TestOrderPolicyDeliversNewestFirstPerBatch(t *testing.T) {
	ledger := market.NewLedger()
	ledger.Append(orderNamed("a", 1, 0))
	ledger.Append(orderNamed("b", 2, 0))
	ledger.Append(orderNamed("c", 3, 0))

	p := NewOrderPolicy(ledger, 2*time.Second, "sentinel", 2*time.Second, 50)

	// One item per tick, newest of the batch first.
	for _, want := range []string{"c", "b", "a"} {
		msg, pause, err := p.Next(context.Background())
		require.NoError(t, err)
		require.Zero(t, pause)
		require.Equal(t, want, msg.(OrderMessage).Name)
	}

	// Drained: nothing to push.
	msg, _, err := p.Next(context.Background())
	require.NoError(t, err)
	require.Nil(t, msg)
}

func TestOrderPolicyCursorAdvancesPerBatchNotPerItem(t *testing.T) {
	ledger := market.NewLedger()
	ledger.Append(orderNamed("a", 1, 0))
	ledger.Append(orderNamed("b", 2, 0))

	p := NewOrderPolicy(ledger, 2*time.Second, "sentinel", 2*time.Second, 50)

	msg, _, _ := p.Next(context.Background())
	require.Equal(t, "b", msg.(OrderMessage).Name)

	// A new order lands while "a" is still buffered; the fresh batch is
	// delivered before the leftover.
	ledger.Append(orderNamed("c", 3, 0))
	msg, _, _ = p.Next(context.Background())
	require.Equal(t, "c", msg.(OrderMessage).Name)

	msg, _, _ = p.Next(context.Background())
	require.Equal(t, "a", msg.(OrderMessage).Name)

	// No duplicates ever.
	msg, _, _ = p.Next(context.Background())
	require.Nil(t, msg)
}

func TestOrderPolicySentinelRequestsPause(t *testing.T) {
	ledger := market.NewLedger()
	ledger.Append(orderNamed("ordinary", 1, 0))
	ledger.Append(orderNamed("Couchbase Demo Phone", 2, 0))

	p := NewOrderPolicy(ledger, 2*time.Second, "Couchbase Demo Phone", 2*time.Second, 50)

	msg, pause, err := p.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Couchbase Demo Phone", msg.(OrderMessage).Name)
	require.Equal(t, 2*time.Second, pause)

	msg, pause, err = p.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ordinary", msg.(OrderMessage).Name)
	require.Zero(t, pause)
}

func TestOrderPolicyBufferCapDropsOldest(t *testing.T) {
	ledger := market.NewLedger()
	for i := 0; i < 5; i++ {
		ledger.Append(orderNamed(string(rune('a'+i)), int64(i+1), 0))
	}

	p := NewOrderPolicy(ledger, 2*time.Second, "sentinel", 2*time.Second, 3)

	var names []string
	for {
		msg, _, err := p.Next(context.Background())
		require.NoError(t, err)
		if msg == nil {
			break
		}
		names = append(names, msg.(OrderMessage).Name)
	}
	// Oldest two fell off the capped buffer.
	require.Equal(t, []string{"e", "d", "c"}, names)
}

func TestInvestorBoardPartitionsWholeLedger(t *testing.T) {
	ledger := market.NewLedger()
	for i, v := range []float64{120, 80, 200, 50, 300} {
		ledger.Append(orderNamed(string(rune('a'+i)), int64(i+1), v))
	}

	p := NewInvestorBoardPolicy(ledger, 5*time.Second, 5)
	msg, _, err := p.Next(context.Background())
	require.NoError(t, err)
	board := msg.(InvestorBoard)

	bestValues := make([]float64, len(board.Best))
	for i, o := range board.Best {
		bestValues[i] = o.CurrentValue
	}
	worstValues := make([]float64, len(board.Worst))
	for i, o := range board.Worst {
		worstValues[i] = o.CurrentValue
	}

	require.Equal(t, []float64{300, 200, 120, 80, 50}, bestValues)
	require.Equal(t, []float64{50, 80, 120, 200, 300}, worstValues)
}

func TestInvestorBoardStableOnTies(t *testing.T) {
	ledger := market.NewLedger()
	ledger.Append(orderNamed("first", 1, 100))
	ledger.Append(orderNamed("second", 2, 100))
	ledger.Append(orderNamed("third", 3, 100))

	p := NewInvestorBoardPolicy(ledger, 5*time.Second, 2)
	msg, _, err := p.Next(context.Background())
	require.NoError(t, err)
	board := msg.(InvestorBoard)

	require.Equal(t, "first", board.Best[0].Name)
	require.Equal(t, "second", board.Best[1].Name)
}

func TestPricePolicyRoundsForPresentationOnly(t *testing.T) {
	cache := market.NewCache()
	cache.Publish(model.PriceTable{
		"A": {Symbol: "A", Price: 110, StartingPrice: 100, ChangePct: 10.004999},
	})

	p := NewPricePolicy(cache, 5*time.Second)
	msg, _, err := p.Next(context.Background())
	require.NoError(t, err)

	points := msg.(map[string]model.PricePoint)
	require.Equal(t, 10.0, points["A"].Change)
	// The cache still carries full precision.
	require.Equal(t, 10.004999, cache.CurrentPrices()["A"].ChangePct)
}

type fakeBoardStore struct {
	err error
}

func (f *fakeBoardStore) StockLeaderboard(_ context.Context, dir store.SortDirection, limit int) ([]model.StockPerf, error) {
	if f.err != nil {
		return nil, f.err
	}
	perf := []model.StockPerf{{Symbol: "A", PriceDiff: 10}, {Symbol: "B", PriceDiff: -10}}
	if dir == store.Ascending {
		perf[0], perf[1] = perf[1], perf[0]
	}
	if limit < len(perf) {
		perf = perf[:limit]
	}
	return perf, nil
}

func TestStockBoardPolicyQueriesBothDirections(t *testing.T) {
	p := NewStockBoardPolicy(&fakeBoardStore{}, 5*time.Second, 10)
	msg, _, err := p.Next(context.Background())
	require.NoError(t, err)

	board := msg.(StockBoard)
	require.Equal(t, "A", board.Best[0].Symbol)
	require.Equal(t, "B", board.Worst[0].Symbol)
}

func TestStockBoardPolicySurfacesStoreError(t *testing.T) {
	p := NewStockBoardPolicy(&fakeBoardStore{err: store.ErrDataUnavailable}, 5*time.Second, 10)
	msg, _, err := p.Next(context.Background())
	require.ErrorIs(t, err, store.ErrDataUnavailable)
	require.Nil(t, msg)
}
