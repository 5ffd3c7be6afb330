package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/trustlens/internal/db"
	"github.com/sells-group/trustlens/internal/model"
)

// PostgresStore implements PriceStore using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS price_history (
	id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	product_id  TEXT NOT NULL,
	product_url TEXT NOT NULL,
	price       NUMERIC NOT NULL CHECK (price > 0),
	mrp         NUMERIC,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_price_history_product ON price_history(product_id, recorded_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, postgresMigration)
		return eris.Wrap(err, "postgres: migrate")
	})
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, url string, price, mrp *decimal.Decimal) (*SaveResult, error) {
	id, err := ProductID(url)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: save")
	}
	if !recordable(price) {
		return &SaveResult{ProductID: id}, nil
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO price_history (product_id, product_url, price, mrp, recorded_at) VALUES ($1, $2, $3::numeric, $4::numeric, $5)`,
		id, url, price.String(), decimalArg(mrp), time.Now().UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert price sample")
	}
	return &SaveResult{ProductID: id, Saved: true}, nil
}

func (s *PostgresStore) History(ctx context.Context, url string) (*model.HistoryResult, error) {
	id, err := ProductID(url)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: history")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT product_url, price::text, mrp::text, recorded_at FROM price_history WHERE product_id = $1 ORDER BY recorded_at ASC, id ASC`,
		id,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query history")
	}
	defer rows.Close()

	result := &model.HistoryResult{ProductID: id, Samples: []model.PriceSample{}}
	for rows.Next() {
		var (
			productURL, priceStr string
			mrpStr               *string
			recordedAt           time.Time
		)
		if err := rows.Scan(&productURL, &priceStr, &mrpStr, &recordedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan history")
		}
		sample, err := buildSample(id, productURL, priceStr, mrpStr)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: decode history")
		}
		sample.Timestamp = recordedAt.UTC()
		result.Samples = append(result.Samples, sample)
	}
	return result, eris.Wrap(rows.Err(), "postgres: iterate history")
}
