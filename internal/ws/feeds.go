package ws

import (
	"context"
	"sort"
	"time"

	"github.com/cbex-demo/live-market/internal/market"
	"github.com/cbex-demo/live-market/internal/model"
	"github.com/cbex-demo/live-market/internal/status"
	"github.com/cbex-demo/live-market/internal/store"
)

// StatusPolicy pushes the cached cluster snapshot on every tick.
type StatusPolicy struct {
	collector *status.Collector
	interval  time.Duration
}

func NewStatusPolicy(collector *status.Collector, interval time.Duration) *StatusPolicy {
	return &StatusPolicy{collector: collector, interval: interval}
}

func (p *StatusPolicy) Name() string            { return "status" }
func (p *StatusPolicy) Interval() time.Duration { return p.interval }

func (p *StatusPolicy) Next(context.Context) (any, time.Duration, error) {
	return p.collector.Snapshot(), 0, nil
}

// PricePolicy pushes the full current price table. The subscription
// also pokes it for an immediate push on any client message.
type PricePolicy struct {
	cache    *market.Cache
	interval time.Duration
}

func NewPricePolicy(cache *market.Cache, interval time.Duration) *PricePolicy {
	return &PricePolicy{cache: cache, interval: interval}
}

func (p *PricePolicy) Name() string            { return "prices" }
func (p *PricePolicy) Interval() time.Duration { return p.interval }

func (p *PricePolicy) Next(context.Context) (any, time.Duration, error) {
	return p.cache.CurrentPrices().Presentation(), 0, nil
}

// OrderMessage is one delivered order on the live orders feed.
type OrderMessage struct {
	Name  string            `json:"name"`
	Order []model.OrderLine `json:"order"`
}

// OrderPolicy drains the ledger one order per tick, newest-first within
// each fetched batch. The cursor advances once per batch, so items wait
// in the local buffer between ledger reads. Delivering the sentinel
// order asks for a pause so a demo reset doesn't flood the viewers.
type OrderPolicy struct {
	ledger   *market.Ledger
	interval time.Duration
	sentinel string
	pause    time.Duration
	bufSize  int

	cursor int
	buffer []model.Order
}

func NewOrderPolicy(ledger *market.Ledger, interval time.Duration, sentinel string, pause time.Duration, bufSize int) *OrderPolicy {
	return &OrderPolicy{
		ledger:   ledger,
		interval: interval,
		sentinel: sentinel,
		pause:    pause,
		bufSize:  bufSize,
	}
}

func (p *OrderPolicy) Name() string            { return "orders" }
func (p *OrderPolicy) Interval() time.Duration { return p.interval }

func (p *OrderPolicy) Next(context.Context) (any, time.Duration, error) {
	items, cursor := p.ledger.SliceFrom(p.cursor)
	p.cursor = cursor
	if len(items) > 0 {
		p.buffer = append(p.buffer, items...)
		if over := len(p.buffer) - p.bufSize; over > 0 {
			// Cap the backlog, dropping the oldest undelivered orders.
			p.buffer = p.buffer[over:]
		}
	}

	if len(p.buffer) == 0 {
		return nil, 0, nil
	}

	last := len(p.buffer) - 1
	o := p.buffer[last]
	p.buffer = p.buffer[:last]

	var pause time.Duration
	if o.Name == p.sentinel {
		pause = p.pause
	}

	return OrderMessage{Name: o.Name, Order: o.Lines}, pause, nil
}

// StockBoard carries the two top-10 stock rankings.
type StockBoard struct {
	Best  []model.StockPerf `json:"best"`
	Worst []model.StockPerf `json:"worst"`
}

// Leaderboarder is the slice of the store the stock board needs.
type Leaderboarder interface {
	StockLeaderboard(ctx context.Context, dir store.SortDirection, limit int) ([]model.StockPerf, error)
}

// StockBoardPolicy ranks symbols by session price change, both ways,
// with the sort and limit done at the query level.
type StockBoardPolicy struct {
	store    Leaderboarder
	interval time.Duration
	limit    int
}

func NewStockBoardPolicy(s Leaderboarder, interval time.Duration, limit int) *StockBoardPolicy {
	return &StockBoardPolicy{store: s, interval: interval, limit: limit}
}

func (p *StockBoardPolicy) Name() string            { return "stock-leaderboard" }
func (p *StockBoardPolicy) Interval() time.Duration { return p.interval }

func (p *StockBoardPolicy) Next(ctx context.Context) (any, time.Duration, error) {
	best, err := p.store.StockLeaderboard(ctx, store.Descending, p.limit)
	if err != nil {
		return nil, 0, err
	}
	worst, err := p.store.StockLeaderboard(ctx, store.Ascending, p.limit)
	if err != nil {
		return nil, 0, err
	}
	return StockBoard{Best: best, Worst: worst}, 0, nil
}

// InvestorBoard carries the best and worst portfolios by current value.
type InvestorBoard struct {
	Best  []model.Order `json:"best"`
	Worst []model.Order `json:"worst"`
}

// InvestorBoardPolicy ranks ledger orders by portfolio value. The sort
// is stable so ties keep arrival order. Best is reported descending,
// worst ascending from the bottom.
type InvestorBoardPolicy struct {
	ledger   *market.Ledger
	interval time.Duration
	size     int
}

func NewInvestorBoardPolicy(ledger *market.Ledger, interval time.Duration, size int) *InvestorBoardPolicy {
	return &InvestorBoardPolicy{ledger: ledger, interval: interval, size: size}
}

func (p *InvestorBoardPolicy) Name() string            { return "investor-leaderboard" }
func (p *InvestorBoardPolicy) Interval() time.Duration { return p.interval }

func (p *InvestorBoardPolicy) Next(context.Context) (any, time.Duration, error) {
	orders := p.ledger.Snapshot()
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CurrentValue > orders[j].CurrentValue
	})

	n := p.size
	if n > len(orders) {
		n = len(orders)
	}

	best := orders[:n]

	worst := make([]model.Order, n)
	for i := 0; i < n; i++ {
		worst[i] = orders[len(orders)-1-i]
	}

	return InvestorBoard{Best: best, Worst: worst}, 0, nil
}
