package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/securecheck/securecheck-cli/internal/schema"
	"github.com/securecheck/securecheck-cli/internal/store"
)

// CreateTableSQL returns the CREATE TABLE statement for the stops table.
func CreateTableSQL(d store.Dialect, table string) string {
	defs := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		defs[i] = c.Name + " " + d.ColumnType(c)
	}
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", table, strings.Join(defs, ",\n\t"))
}

// CreateIndexSQL returns the statement creating idx_<column> on table.
func CreateIndexSQL(d store.Dialect, table string, c schema.Column) string {
	name, on := "idx_"+c.Name, table
	// SQLite qualifies the index name rather than the table.
	if d.Name() == store.DriverSQLite {
		if schemaName, bare, ok := strings.Cut(table, "."); ok {
			name, on = schemaName+"."+name, bare
		}
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)", name, on, c.Name)
}

// Provision drops table if it exists and recreates it with its indexes.
// Any failure is a *SchemaProvisioningError.
func Provision(ctx context.Context, st store.Store, table string) error {
	log := zap.L().With(zap.String("component", "ingest"), zap.String("table", table))
	d := st.Dialect()

	stmts := []string{
		"DROP TABLE IF EXISTS " + table,
		CreateTableSQL(d, table),
	}
	for _, c := range schema.Indexed() {
		stmts = append(stmts, CreateIndexSQL(d, table, c))
	}

	for _, stmt := range stmts {
		if err := st.Exec(ctx, stmt); err != nil {
			return &SchemaProvisioningError{Table: table, Err: eris.Wrap(err, "ingest: provision")}
		}
	}

	log.Info("table provisioned", zap.Int("columns", len(schema.Columns)), zap.Int("indexes", len(stmts)-2))
	return nil
}
