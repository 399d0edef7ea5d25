package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/cbex-demo/live-market/internal/logger"
	"github.com/cbex-demo/live-market/internal/model"
)

// ErrDataUnavailable marks a transient backing-store failure. Callers
// skip the affected work and retry on their next tick.
var ErrDataUnavailable = errors.New("data source unavailable")

type SortDirection string

const (
	Descending SortDirection = "DESC"
	Ascending  SortDirection = "ASC"
)

const (
	_queryPrices = `SELECT symbol, price, starting_price FROM stocks`

	_queryOrdersSince = `SELECT name, ts, COALESCE(geo, '') AS geo, lines
		FROM orders WHERE ts > $1 ORDER BY ts ASC LIMIT $2`

	_insertOrder = `INSERT INTO orders (id, name, ts, geo, lines)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)`

	_perturbPrice = `UPDATE stocks SET price = $2 WHERE symbol = $1`

	_queryLeaderboard = `SELECT symbol, company, price, starting_price,
			100 * (price - starting_price) / starting_price AS price_diff
		FROM stocks WHERE starting_price > 0
		ORDER BY price_diff %s LIMIT $1`

	_queryStocks = `SELECT symbol, company, COALESCE(sector, '') AS sector,
			priority, price, starting_price
		FROM stocks`

	_querySectors = `SELECT DISTINCT sector FROM stocks
		WHERE sector IS NOT NULL AND sector <> '' ORDER BY sector`

	_querySymbolsBySector = `SELECT symbol FROM stocks WHERE sector = $1`

	_queryInvestmentsByGeo = `SELECT o.name, l->>'symbol' AS symbol,
			(l->>'purchase_price')::DOUBLE PRECISION AS purchase_price,
			(l->>'quantity')::DOUBLE PRECISION AS quantity
		FROM orders o, jsonb_array_elements(o.lines) AS l
		WHERE o.geo = $1 ORDER BY symbol`

	_queryInvestmentsNoGeo = `SELECT o.name, l->>'symbol' AS symbol,
			(l->>'purchase_price')::DOUBLE PRECISION AS purchase_price,
			(l->>'quantity')::DOUBLE PRECISION AS quantity
		FROM orders o, jsonb_array_elements(o.lines) AS l
		WHERE o.geo IS NULL ORDER BY symbol`
)

// Store is the DataSource over Postgres: stock prices plus the order
// documents submitted by viewers.
type Store struct {
	db     *sqlx.DB
	logger logger.Logger
}

func NewStore(db *sqlx.DB, logger logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %s", ErrDataUnavailable, err)
	}
	return nil
}

// FetchPrices returns every known symbol with its current and starting
// price. ChangePct is left to the caller.
func (s *Store) FetchPrices(ctx context.Context) ([]model.PriceEntry, error) {
	var entries []model.PriceEntry
	if err := s.db.SelectContext(ctx, &entries, _queryPrices); err != nil {
		return nil, fmt.Errorf("%w: can't query prices: %s", ErrDataUnavailable, err)
	}
	return entries, nil
}

type orderRow struct {
	Name  string `db:"name"`
	Ts    int64  `db:"ts"`
	Geo   string `db:"geo"`
	Lines []byte `db:"lines"`
}

// FetchOrdersSince returns orders with ts strictly after the watermark,
// oldest first, capped at limit.
func (s *Store) FetchOrdersSince(ctx context.Context, ts int64, limit int) ([]model.Order, error) {
	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, _queryOrdersSince, ts, limit); err != nil {
		return nil, fmt.Errorf("%w: can't query orders: %s", ErrDataUnavailable, err)
	}

	orders := make([]model.Order, 0, len(rows))
	for _, row := range rows {
		var lines []model.OrderLine
		if err := sonic.Unmarshal(row.Lines, &lines); err != nil {
			s.logger.Errorf("%s: can't decode order lines for %q, skipping", err, row.Name)
			continue
		}
		orders = append(orders, model.Order{
			Name:  row.Name,
			Ts:    row.Ts,
			Geo:   row.Geo,
			Lines: lines,
		})
	}

	return orders, nil
}

func (s *Store) InsertOrder(ctx context.Context, key string, order model.Order) error {
	lines, err := sonic.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("%w: can't encode order lines", err)
	}

	if _, err := s.db.ExecContext(ctx, _insertOrder, key, order.Name, order.Ts, order.Geo, lines); err != nil {
		return fmt.Errorf("%w: can't insert order: %s", ErrDataUnavailable, err)
	}

	return nil
}

// PerturbPrice is a single-document update; the cache catches up on its
// next refresh.
func (s *Store) PerturbPrice(ctx context.Context, symbol string, newPrice float64) error {
	if _, err := s.db.ExecContext(ctx, _perturbPrice, symbol, newPrice); err != nil {
		return fmt.Errorf("%w: can't update price for %s: %s", ErrDataUnavailable, symbol, err)
	}
	return nil
}

// StockLeaderboard ranks symbols by session price change percentage,
// sorted and limited at the query level.
func (s *Store) StockLeaderboard(ctx context.Context, dir SortDirection, limit int) ([]model.StockPerf, error) {
	var perf []model.StockPerf
	query := fmt.Sprintf(_queryLeaderboard, dir)
	if err := s.db.SelectContext(ctx, &perf, query, limit); err != nil {
		return nil, fmt.Errorf("%w: can't query stock leaderboard: %s", ErrDataUnavailable, err)
	}
	return perf, nil
}

func (s *Store) ListStocks(ctx context.Context) ([]model.Stock, error) {
	var stocks []model.Stock
	if err := s.db.SelectContext(ctx, &stocks, _queryStocks); err != nil {
		return nil, fmt.Errorf("%w: can't query stocks: %s", ErrDataUnavailable, err)
	}
	return stocks, nil
}

func (s *Store) Sectors(ctx context.Context) ([]string, error) {
	var sectors []string
	if err := s.db.SelectContext(ctx, &sectors, _querySectors); err != nil {
		return nil, fmt.Errorf("%w: can't query sectors: %s", ErrDataUnavailable, err)
	}
	return sectors, nil
}

// InvestmentsByGeo returns every order line submitted from one region,
// sorted by symbol. An empty geo selects orders submitted without one.
func (s *Store) InvestmentsByGeo(ctx context.Context, geo string) ([]model.Investment, error) {
	var rows []model.Investment
	var err error
	if geo == "" {
		err = s.db.SelectContext(ctx, &rows, _queryInvestmentsNoGeo)
	} else {
		err = s.db.SelectContext(ctx, &rows, _queryInvestmentsByGeo, geo)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: can't query investments by geo: %s", ErrDataUnavailable, err)
	}
	return rows, nil
}

func (s *Store) SymbolsBySector(ctx context.Context, sector string) ([]string, error) {
	var symbols []string
	if err := s.db.SelectContext(ctx, &symbols, _querySymbolsBySector, sector); err != nil {
		return nil, fmt.Errorf("%w: can't query symbols by sector: %s", ErrDataUnavailable, err)
	}
	return symbols, nil
}
