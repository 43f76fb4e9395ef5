package ingest

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/securecheck/securecheck-cli/internal/schema"
	"github.com/securecheck/securecheck-cli/internal/store"
)

// Load writes the schema columns of f into table in one transaction and
// verifies the table holds exactly the loaded rows. Columns f does not carry
// are stored as NULL; columns outside the schema are not stored.
func Load(ctx context.Context, st store.Store, table string, f *schema.Frame) (int64, error) {
	d := st.Dialect()
	columns := schema.Names()

	rows := f.Project(columns)
	for _, row := range rows {
		for i, c := range schema.Columns {
			row[i] = d.Value(c.Kind, row[i])
		}
	}

	if _, err := st.BulkLoad(ctx, table, columns, rows); err != nil {
		return 0, eris.Wrapf(err, "ingest: load %s", table)
	}

	n, err := CountRows(ctx, st, table)
	if err != nil {
		return 0, err
	}
	if n != int64(len(rows)) {
		return n, eris.Errorf("ingest: loaded %d rows but %s holds %d", len(rows), table, n)
	}
	return n, nil
}

// CountRows returns the number of rows in table.
func CountRows(ctx context.Context, st store.Store, table string) (int64, error) {
	res, err := st.Query(ctx, "SELECT COUNT(*) FROM "+table)
	if err != nil {
		return 0, eris.Wrapf(err, "ingest: count %s", table)
	}
	if len(res.Values) != 1 || len(res.Values[0]) != 1 {
		return 0, eris.Errorf("ingest: count %s returned no value", table)
	}
	return asInt64(res.Values[0][0]), nil
}
