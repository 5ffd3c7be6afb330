package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/sells-group/trustlens/internal/model"
)

// sqliteTimeLayout is fixed-width so recorded_at sorts lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements PriceStore using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Prices are kept as TEXT to avoid float rounding.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS price_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id  TEXT NOT NULL,
	product_url TEXT NOT NULL,
	price       TEXT NOT NULL,
	mrp         TEXT,
	recorded_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_price_history_product ON price_history(product_id, recorded_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, url string, price, mrp *decimal.Decimal) (*SaveResult, error) {
	id, err := ProductID(url)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: save")
	}
	if !recordable(price) {
		return &SaveResult{ProductID: id}, nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO price_history (product_id, product_url, price, mrp, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		id, url, price.String(), decimalArg(mrp), s.now().UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert price sample")
	}
	return &SaveResult{ProductID: id, Saved: true}, nil
}

func (s *SQLiteStore) History(ctx context.Context, url string) (*model.HistoryResult, error) {
	id, err := ProductID(url)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: history")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT product_url, price, mrp, recorded_at FROM price_history WHERE product_id = ? ORDER BY recorded_at ASC, id ASC`,
		id,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query history")
	}
	defer rows.Close() //nolint:errcheck

	result := &model.HistoryResult{ProductID: id, Samples: []model.PriceSample{}}
	for rows.Next() {
		var (
			productURL, priceStr, recordedAt string
			mrpStr                           sql.NullString
		)
		if err := rows.Scan(&productURL, &priceStr, &mrpStr, &recordedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan history")
		}
		sample, err := buildSample(id, productURL, priceStr, nullString(mrpStr))
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: decode history")
		}
		ts, err := time.Parse(sqliteTimeLayout, recordedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: parse recorded_at")
		}
		sample.Timestamp = ts
		result.Samples = append(result.Samples, sample)
	}
	return result, eris.Wrap(rows.Err(), "sqlite: iterate history")
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func buildSample(id, productURL, price string, mrp *string) (model.PriceSample, error) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return model.PriceSample{}, err
	}
	m, err := decimalPtr(mrp)
	if err != nil {
		return model.PriceSample{}, err
	}
	return model.PriceSample{ProductID: id, ProductURL: productURL, Price: p, MRP: m}, nil
}
