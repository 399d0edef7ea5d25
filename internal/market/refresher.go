package market

import (
	"context"
	"time"

	"github.com/cbex-demo/live-market/internal/logger"
	"github.com/cbex-demo/live-market/internal/metrics"
	"github.com/cbex-demo/live-market/internal/model"
)

// DataSource is the backing store the refresher polls.
type DataSource interface {
	FetchPrices(ctx context.Context) ([]model.PriceEntry, error)
	FetchOrdersSince(ctx context.Context, ts int64, limit int) ([]model.Order, error)
}

// Refresher is the single writer behind Cache and Ledger. It pulls from
// the data source on a fixed cadence; cycles never overlap, and a slow
// cycle starts the next one immediately instead of queueing up.
type Refresher struct {
	source DataSource
	cache  *Cache
	ledger *Ledger
	logger logger.Logger

	batchLimit int
}

func NewRefresher(source DataSource, cache *Cache, ledger *Ledger, batchLimit int, logger logger.Logger) *Refresher {
	return &Refresher{
		source:     source,
		cache:      cache,
		ledger:     ledger,
		batchLimit: batchLimit,
		logger:     logger,
	}
}

// Run loops until ctx is cancelled. An in-flight cycle always finishes
// before Run returns.
func (r *Refresher) Run(ctx context.Context, period time.Duration) {
	for {
		// With a zero delay the select below can win over a done
		// context; check here so cancellation never starts a cycle.
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		r.cycle(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(nextDelay(period, time.Since(start))):
		}
	}
}

// cycle publishes a fresh price table, appends newly observed orders and
// reprices the ledger. Every failure is contained here: the previous
// table stays authoritative and the loop keeps going.
func (r *Refresher) cycle(ctx context.Context) {
	metrics.RefreshCycles.Inc()

	entries, err := r.source.FetchPrices(ctx)
	if err != nil {
		metrics.RefreshErrors.Inc()
		r.logger.Errorf("%s: can't fetch prices, skipping cycle", err)
		return
	}

	table := make(model.PriceTable, len(entries))
	for _, e := range entries {
		if e.StartingPrice != 0 {
			e.ChangePct = 100 * (e.Price - e.StartingPrice) / e.StartingPrice
		}
		table[e.Symbol] = e
	}
	r.cache.Publish(table)

	orders, err := r.source.FetchOrdersSince(ctx, r.ledger.HighWatermark(), r.batchLimit)
	if err != nil {
		metrics.RefreshErrors.Inc()
		r.logger.Errorf("%s: can't fetch orders, skipping ledger update", err)
		return
	}
	for _, o := range orders {
		r.ledger.Append(o)
		r.logger.Infof("new order: %s ts=%d", o.Name, o.Ts)
	}

	r.ledger.Reprice(table)
}

// nextDelay subtracts cycle wall time from the period, clamped at zero
// so an overrun never produces a negative sleep or a backlog.
func nextDelay(period, elapsed time.Duration) time.Duration {
	if elapsed >= period {
		return 0
	}
	return period - elapsed
}
