package store

import (
	"context"
	"database/sql"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/securecheck/securecheck-cli/internal/db"
)

// SQL implements Store over database/sql for the embedded engines, SQLite
// (modernc.org/sqlite) and DuckDB.
type SQL struct {
	db        *sql.DB
	dialect   Dialect
	maxParams int
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, maxParams int) (*SQL, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQL{db: conn, dialect: sqliteDialect{}, maxParams: maxParams}, nil
}

// NewDuckDB opens a DuckDB database file. An empty dsn opens an in-memory database.
func NewDuckDB(dsn string, maxParams int) (*SQL, error) {
	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "duckdb: open")
	}
	if err := conn.Ping(); err != nil {
		conn.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "duckdb: ping")
	}
	return &SQL{db: conn, dialect: duckDialect{}, maxParams: maxParams}, nil
}

func (s *SQL) Dialect() Dialect { return s.dialect }

func (s *SQL) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Rebind(query), args...); err != nil {
		return eris.Wrapf(err, "%s: exec", s.dialect.Name())
	}
	return nil
}

func (s *SQL) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: query", s.dialect.Name())
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrapf(err, "%s: columns", s.dialect.Name())
	}

	out := &Rows{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrapf(err, "%s: scan row", s.dialect.Name())
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out.Values = append(out.Values, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "%s: iterate rows", s.dialect.Name())
	}
	return out, nil
}

// BulkLoad inserts rows with batched multi-row INSERTs inside one transaction.
func (s *SQL) BulkLoad(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "%s: begin load", s.dialect.Name())
	}
	defer tx.Rollback() //nolint:errcheck

	n, err := db.BulkInsert(ctx, tx, db.InsertConfig{
		Table:     table,
		Columns:   columns,
		MaxParams: s.maxParams,
	}, rows)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "%s: commit load", s.dialect.Name())
	}
	return n, nil
}

func (s *SQL) Ping(ctx context.Context) error {
	return eris.Wrapf(s.db.PingContext(ctx), "%s: ping", s.dialect.Name())
}

func (s *SQL) Close() error {
	return s.db.Close()
}
