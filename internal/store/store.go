// Package store opens the analytical engine that holds the traffic_stops
// table and exposes the small set of operations the ingester and the report
// catalogue need.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverDuckDB   = "duckdb"
)

// Rows is a fully materialized query result.
type Rows struct {
	Columns []string
	Values  [][]any
}

// Store is a handle on the engine. Queries use `?` placeholders; each
// implementation rebinds them for its engine. A Store is safe for concurrent
// use and is opened once per process.
type Store interface {
	Dialect() Dialect
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) (*Rows, error)
	// BulkLoad inserts rows in a single transaction. On failure nothing is
	// written.
	BulkLoad(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Options configures Open.
type Options struct {
	Driver      string
	DatabaseURL string
	Pool        *PoolConfig
	MaxParams   int // bind parameters per INSERT for SQLite and DuckDB
}

// Open connects to the engine named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(opts.Driver) {
	case DriverPostgres, "":
		s, err = NewPostgres(ctx, opts.DatabaseURL, opts.Pool)
	case DriverSQLite:
		s, err = NewSQLite(opts.DatabaseURL, opts.MaxParams)
	case DriverDuckDB:
		s, err = NewDuckDB(opts.DatabaseURL, opts.MaxParams)
	default:
		return nil, eris.Errorf("store: unknown driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
