package perturb

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/ratelimit"

	"github.com/cbex-demo/live-market/internal/config"
	"github.com/cbex-demo/live-market/internal/logger"
	"github.com/cbex-demo/live-market/internal/model"
)

// PriceStore is the slice of the store the perturber needs: read every
// price, write one back.
type PriceStore interface {
	FetchPrices(ctx context.Context) ([]model.PriceEntry, error)
	PerturbPrice(ctx context.Context, symbol string, newPrice float64) error
}

// Perturber nudges every stored price on a fixed cadence so the demo
// always has movement. Each write is a single-document update; the
// serving cache only catches up on its next refresh.
type Perturber struct {
	store  PriceStore
	logger logger.Logger

	writeLimiter ratelimit.Limiter

	sigma       float64
	floorSymbol string
}

func NewPerturber(store PriceStore, cfg config.PerturbConfig, logger logger.Logger) *Perturber {
	return &Perturber{
		store:        store,
		logger:       logger,
		writeLimiter: ratelimit.New(cfg.WritesPerMinute, ratelimit.Per(time.Minute)),
		sigma:        cfg.Sigma,
		floorSymbol:  cfg.FloorSymbol,
	}
}

func (p *Perturber) Run(ctx context.Context, interval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			p.cycle(ctx)
		}
	}
}

func (p *Perturber) cycle(ctx context.Context) {
	entries, err := p.store.FetchPrices(ctx)
	if err != nil {
		p.logger.Errorf("%s: can't fetch prices, skipping perturbation", err)
		return
	}

	for _, entry := range entries {
		multiplier := p.multiplier(entry.Symbol)
		newPrice := model.Round2(entry.Price * multiplier)

		p.writeLimiter.Take()
		if err := p.store.PerturbPrice(ctx, entry.Symbol, newPrice); err != nil {
			p.logger.Errorf("%s: can't perturb %s", err, entry.Symbol)
		}
	}
}

// multiplier samples Normal(1, sigma). The designated demo symbol never
// drops, so there is always a winner on the leaderboard.
func (p *Perturber) multiplier(symbol string) float64 {
	m := rand.NormFloat64()*p.sigma + 1
	if symbol == p.floorSymbol && m < 1 {
		m = 1
	}
	return m
}
