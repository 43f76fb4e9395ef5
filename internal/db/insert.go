package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// DefaultMaxParams keeps a single statement under the bind-parameter limit of
// SQLite (32766) and DuckDB.
const DefaultMaxParams = 30000

// Execer runs a statement. *sql.DB and *sql.Tx satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertConfig defines the parameters for a batched multi-row INSERT.
type InsertConfig struct {
	Table     string   // target table, optionally schema-qualified
	Columns   []string // columns being inserted, in row order
	MaxParams int      // bind parameters per statement; 0 = DefaultMaxParams
}

// BulkInsert writes rows with multi-row INSERT statements, each holding as many
// rows as fit in MaxParams. Run it inside a transaction for all-or-nothing loads.
func BulkInsert(ctx context.Context, ex Execer, cfg InsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: insert: no columns specified")
	}

	maxParams := cfg.MaxParams
	if maxParams <= 0 {
		maxParams = DefaultMaxParams
	}
	perStmt := maxParams / len(cfg.Columns)
	if perStmt < 1 {
		perStmt = 1
	}

	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", QuoteTable(cfg.Table), quoteAndJoin(cfg.Columns))
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cfg.Columns)), ", ") + ")"

	var total int64
	for start := 0; start < len(rows); start += perStmt {
		end := min(start+perStmt, len(rows))
		batch := rows[start:end]

		var sb strings.Builder
		sb.WriteString(prefix)
		args := make([]any, 0, len(batch)*len(cfg.Columns))
		for i, row := range batch {
			if len(row) != len(cfg.Columns) {
				return total, eris.Errorf("db: insert: row %d has %d values, want %d", start+i, len(row), len(cfg.Columns))
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(tuple)
			args = append(args, row...)
		}

		res, err := ex.ExecContext(ctx, sb.String(), args...)
		if err != nil {
			return total, eris.Wrapf(err, "db: insert: rows %d-%d into %s", start, end-1, cfg.Table)
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = int64(len(batch))
		}
		total += n
	}

	return total, nil
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
