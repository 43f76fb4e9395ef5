package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/securecheck/securecheck-cli/internal/catalogue"
	"github.com/securecheck/securecheck-cli/internal/db"
	"github.com/securecheck/securecheck-cli/internal/resilience"
	"github.com/securecheck/securecheck-cli/internal/schema"
	"github.com/securecheck/securecheck-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	opts := store.Options{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		Pool: &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		},
		MaxParams: maxParams(cfg.Ingest.BatchSize),
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Store.ConnectAttempts
	retry.OnRetry = resilience.RetryLogger("store.open")

	st, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (store.Store, error) {
		return store.Open(ctx, opts)
	})
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

// maxParams converts a rows-per-statement batch size into bind parameters,
// capped at the engine-safe default.
func maxParams(batchSize int) int {
	if batchSize < 1 {
		return db.DefaultMaxParams
	}
	n := batchSize * len(schema.Columns)
	if n > db.DefaultMaxParams {
		return db.DefaultMaxParams
	}
	return n
}

func initCatalogue(st store.Store) (*catalogue.Catalogue, error) {
	return catalogue.New(st, catalogue.Options{
		Table:     cfg.Store.Table,
		Durations: cfg.Catalogue.StopDurationMinutes,
	})
}

var errOffline = eris.New("store: not connected")

// offlineStore carries only a dialect, for commands that render SQL without
// connecting.
type offlineStore struct {
	dialect store.Dialect
}

func dialectOnly(driver string) store.Store {
	return offlineStore{dialect: store.DialectFor(driver)}
}

func (s offlineStore) Dialect() store.Dialect { return s.dialect }

func (offlineStore) Exec(context.Context, string, ...any) error { return errOffline }

func (offlineStore) Query(context.Context, string, ...any) (*store.Rows, error) {
	return nil, errOffline
}

func (offlineStore) BulkLoad(context.Context, string, []string, [][]any) (int64, error) {
	return 0, errOffline
}

func (offlineStore) Ping(context.Context) error { return errOffline }

func (offlineStore) Close() error { return nil }
