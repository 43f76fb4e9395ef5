package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/securecheck/securecheck-cli/internal/schema"
)

// Dialect renders the engine-specific fragments of generated SQL.
type Dialect interface {
	Name() string
	// Rebind rewrites `?` placeholders outside string literals.
	Rebind(query string) string
	ColumnType(c schema.Column) string
	TimestampType() string
	// Hour extracts the leading hour of a free-form "HH:MM[:SS]" text column,
	// or NULL when the text does not start with one.
	Hour(col string) string
	Year(col string) string
	Month(col string) string
	Float(expr string) string
	Int(expr string) string
	// Value converts a normalized cell into the form the engine stores.
	Value(k schema.Kind, v any) any
}

// DialectFor returns the dialect for a driver name.
func DialectFor(driver string) Dialect {
	switch strings.ToLower(driver) {
	case DriverSQLite:
		return sqliteDialect{}
	case DriverDuckDB:
		return duckDialect{}
	default:
		return postgresDialect{}
	}
}

func varchar(c schema.Column) string {
	if c.Width > 0 {
		return fmt.Sprintf("VARCHAR(%d)", c.Width)
	}
	return "VARCHAR"
}

func standardType(c schema.Column) string {
	switch c.Kind {
	case schema.KindDate:
		return "DATE"
	case schema.KindInt:
		return "INTEGER"
	case schema.KindBool:
		return "BOOLEAN"
	case schema.KindText:
		if c.Width == 0 {
			return "TEXT"
		}
		return varchar(c)
	default:
		return varchar(c)
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() string                      { return DriverPostgres }
func (postgresDialect) Rebind(q string) string            { return numbered(q) }
func (postgresDialect) ColumnType(c schema.Column) string { return standardType(c) }
func (postgresDialect) TimestampType() string             { return "TIMESTAMPTZ" }
func (postgresDialect) Hour(col string) string {
	return fmt.Sprintf("CASE WHEN %[1]s ~ '^[0-9]{1,2}:' THEN CAST(split_part(%[1]s, ':', 1) AS INTEGER) END", col)
}
func (postgresDialect) Year(col string) string {
	return fmt.Sprintf("CAST(EXTRACT(YEAR FROM %s) AS INTEGER)", col)
}
func (postgresDialect) Month(col string) string {
	return fmt.Sprintf("CAST(EXTRACT(MONTH FROM %s) AS INTEGER)", col)
}
func (postgresDialect) Float(expr string) string         { return "CAST(" + expr + " AS DOUBLE PRECISION)" }
func (postgresDialect) Int(expr string) string           { return "CAST(" + expr + " AS BIGINT)" }
func (postgresDialect) Value(_ schema.Kind, v any) any { return v }

type sqliteDialect struct{}

func (sqliteDialect) Name() string           { return DriverSQLite }
func (sqliteDialect) Rebind(q string) string { return q }
func (sqliteDialect) ColumnType(c schema.Column) string {
	if c.Kind == schema.KindText || c.Kind == schema.KindCategory {
		return "TEXT"
	}
	return standardType(c)
}
func (sqliteDialect) TimestampType() string { return "TIMESTAMP" }
func (sqliteDialect) Hour(col string) string {
	return fmt.Sprintf("CASE WHEN instr(%[1]s, ':') > 1 THEN CAST(substr(%[1]s, 1, instr(%[1]s, ':') - 1) AS INTEGER) END", col)
}
func (sqliteDialect) Year(col string) string {
	return fmt.Sprintf("CAST(strftime('%%Y', %s) AS INTEGER)", col)
}
func (sqliteDialect) Month(col string) string {
	return fmt.Sprintf("CAST(strftime('%%m', %s) AS INTEGER)", col)
}
func (sqliteDialect) Float(expr string) string { return "CAST(" + expr + " AS REAL)" }
func (sqliteDialect) Int(expr string) string   { return "CAST(" + expr + " AS INTEGER)" }

// Value stores dates as ISO text so the date functions can read them.
func (sqliteDialect) Value(k schema.Kind, v any) any {
	if t, ok := v.(time.Time); ok && k == schema.KindDate {
		return t.Format(time.DateOnly)
	}
	return v
}

type duckDialect struct{}

func (duckDialect) Name() string                      { return DriverDuckDB }
func (duckDialect) Rebind(q string) string            { return q }
func (duckDialect) ColumnType(c schema.Column) string { return standardType(c) }
func (duckDialect) TimestampType() string             { return "TIMESTAMP" }
func (duckDialect) Hour(col string) string {
	return fmt.Sprintf("TRY_CAST(split_part(%s, ':', 1) AS INTEGER)", col)
}
func (duckDialect) Year(col string) string {
	return fmt.Sprintf("CAST(year(%s) AS INTEGER)", col)
}
func (duckDialect) Month(col string) string {
	return fmt.Sprintf("CAST(month(%s) AS INTEGER)", col)
}
func (duckDialect) Float(expr string) string         { return "CAST(" + expr + " AS DOUBLE)" }
func (duckDialect) Int(expr string) string           { return "CAST(" + expr + " AS BIGINT)" }
func (duckDialect) Value(_ schema.Kind, v any) any { return v }

// numbered rewrites `?` placeholders to `$1, $2, ...`, leaving quoted text alone.
func numbered(q string) string {
	var sb strings.Builder
	sb.Grow(len(q) + 8)
	n := 0
	var quote rune
	for _, r := range q {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '?':
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
