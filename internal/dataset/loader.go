package dataset

import (
	"context"
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/cbex-demo/live-market/internal/logger"
)

const (
	_createStocks = `CREATE TABLE IF NOT EXISTS stocks (
		symbol         TEXT PRIMARY KEY,
		company        TEXT NOT NULL DEFAULT '',
		sector         TEXT,
		priority       INT NOT NULL DEFAULT 2,
		price          DOUBLE PRECISION NOT NULL,
		starting_price DOUBLE PRECISION NOT NULL
	)`

	_createOrders = `CREATE TABLE IF NOT EXISTS orders (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		ts         BIGINT NOT NULL,
		geo        TEXT,
		lines      JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

	_createOrdersTsIndex = `CREATE INDEX IF NOT EXISTS orders_ts_idx ON orders (ts)`

	_upsertStock = `INSERT INTO stocks (symbol, company, sector, priority, price, starting_price)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (symbol) DO UPDATE SET
			company  = EXCLUDED.company,
			sector   = EXCLUDED.sector,
			priority = EXCLUDED.priority`

	_dropTables = `DROP TABLE IF EXISTS orders, stocks`
)

const _defaultPriority = 2

type stockDoc struct {
	Symbol   string  `json:"symbol"`
	Company  string  `json:"company"`
	Sector   string  `json:"sector"`
	Price    float64 `json:"price"`
	Priority int     `json:"priority"`
}

// Loader bootstraps the demo dataset: schema plus the first N stocks
// from a stocks.json dump. Starting price is pinned to the load-time
// price so session change percentages start at zero.
type Loader struct {
	db     *sqlx.DB
	logger logger.Logger
}

func NewLoader(db *sqlx.DB, logger logger.Logger) *Loader {
	return &Loader{
		db:     db,
		logger: logger,
	}
}

func (l *Loader) EnsureSchema(ctx context.Context) error {
	for _, query := range []string{_createStocks, _createOrders, _createOrdersTsIndex} {
		if _, err := l.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("%w: can't create schema", err)
		}
	}
	return nil
}

func (l *Loader) Load(ctx context.Context, path string, maxStocks int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: can't read stocks file", err)
	}

	var docs []stockDoc
	if err := sonic.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("%w: can't parse stocks file", err)
	}

	loaded := 0
	for _, doc := range docs {
		if loaded >= maxStocks {
			break
		}
		if doc.Symbol == "" || doc.Price <= 0 {
			l.logger.Warnf("skipping malformed stock doc %q", doc.Symbol)
			continue
		}
		if doc.Priority == 0 {
			doc.Priority = _defaultPriority
		}

		if _, err := l.db.ExecContext(ctx, _upsertStock,
			doc.Symbol, doc.Company, doc.Sector, doc.Priority, doc.Price,
		); err != nil {
			return fmt.Errorf("%w: can't upsert stock %s", err, doc.Symbol)
		}
		loaded++
	}

	l.logger.Infof("loaded %d stocks from %s", loaded, path)
	return nil
}

// Cleanup drops the demo tables.
func (l *Loader) Cleanup(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, _dropTables); err != nil {
		return fmt.Errorf("%w: can't drop tables", err)
	}
	return nil
}
