package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/trustlens/internal/analyze"
	"github.com/sells-group/trustlens/internal/config"
	"github.com/sells-group/trustlens/internal/scorer"
	"github.com/sells-group/trustlens/internal/scrape"
	"github.com/sells-group/trustlens/internal/store"
)

// initStore opens and migrates the configured price history store.
func initStore(ctx context.Context, c *config.Config) (store.PriceStore, error) {
	var (
		st  store.PriceStore
		err error
	)
	switch c.Store.Driver {
	case "sqlite":
		dsn := c.Store.DatabaseURL
		if dsn == "" {
			dsn = "trustlens.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, c.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// appEnv bundles the long-lived dependencies a command needs.
type appEnv struct {
	Store    store.PriceStore
	Analyzer *analyze.Analyzer
}

// Close releases the store.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initAnalyzer wires the store, renderer chain and analyzer from config.
func initAnalyzer(ctx context.Context, c *config.Config) (*appEnv, error) {
	if err := scorer.ValidateWeights(c.Trust); err != nil {
		return nil, err
	}

	chain, err := scrape.FromConfig(c)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}

	return &appEnv{
		Store:    st,
		Analyzer: analyze.New(chain, st, analyze.OptionsFromConfig(c)),
	}, nil
}
