package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/securecheck/securecheck-cli/internal/schema"
)

func TestNumbered(t *testing.T) {
	assert.Equal(t, "SELECT 1", numbered("SELECT 1"))
	assert.Equal(t, "a = $1 AND b = $2", numbered("a = ? AND b = ?"))
	assert.Equal(t, "x = '?' AND y = $1", numbered("x = '?' AND y = ?"))
	assert.Equal(t, `"we?ird" = $1`, numbered(`"we?ird" = ?`))
}

func TestDialectFor(t *testing.T) {
	assert.Equal(t, DriverPostgres, DialectFor("postgres").Name())
	assert.Equal(t, DriverPostgres, DialectFor("").Name())
	assert.Equal(t, DriverSQLite, DialectFor("SQLite").Name())
	assert.Equal(t, DriverDuckDB, DialectFor("duckdb").Name())
}

func TestDialect_Rebind(t *testing.T) {
	q := "SELECT * FROM t WHERE a = ? LIMIT ?"
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 LIMIT $2", DialectFor(DriverPostgres).Rebind(q))
	assert.Equal(t, q, DialectFor(DriverSQLite).Rebind(q))
	assert.Equal(t, q, DialectFor(DriverDuckDB).Rebind(q))
}

func TestDialect_ColumnType(t *testing.T) {
	country, _ := schema.Lookup(schema.CountryName)
	date, _ := schema.Lookup(schema.StopDate)
	age, _ := schema.Lookup(schema.DriverAge)
	arrested, _ := schema.Lookup(schema.IsArrested)

	pg := DialectFor(DriverPostgres)
	assert.Equal(t, "VARCHAR(255)", pg.ColumnType(country))
	assert.Equal(t, "DATE", pg.ColumnType(date))
	assert.Equal(t, "INTEGER", pg.ColumnType(age))
	assert.Equal(t, "BOOLEAN", pg.ColumnType(arrested))

	lite := DialectFor(DriverSQLite)
	assert.Equal(t, "TEXT", lite.ColumnType(country))
	assert.Equal(t, "DATE", lite.ColumnType(date))

	assert.Equal(t, "VARCHAR", varchar(schema.Column{Name: "x", Kind: schema.KindText}))
}

func TestDialect_Fragments(t *testing.T) {
	pg := DialectFor(DriverPostgres)
	assert.Equal(t, "CAST(EXTRACT(YEAR FROM stop_date) AS INTEGER)", pg.Year("stop_date"))
	assert.Equal(t, "CAST(x AS DOUBLE PRECISION)", pg.Float("x"))
	assert.Contains(t, pg.Hour("stop_time"), "split_part(stop_time, ':', 1)")

	lite := DialectFor(DriverSQLite)
	assert.Equal(t, "CAST(strftime('%m', stop_date) AS INTEGER)", lite.Month("stop_date"))
	assert.Equal(t, "CAST(x AS REAL)", lite.Float("x"))

	duck := DialectFor(DriverDuckDB)
	assert.Equal(t, "TRY_CAST(split_part(stop_time, ':', 1) AS INTEGER)", duck.Hour("stop_time"))
	assert.Equal(t, "CAST(x AS BIGINT)", duck.Int("x"))
}

func TestDialect_Value(t *testing.T) {
	d := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2023-01-01", DialectFor(DriverSQLite).Value(schema.KindDate, d))
	assert.Equal(t, d, DialectFor(DriverPostgres).Value(schema.KindDate, d))
	assert.Equal(t, true, DialectFor(DriverSQLite).Value(schema.KindBool, true))
}
