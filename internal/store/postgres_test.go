package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgres creates a Postgres store backed by pgxmock for unit testing.
func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgres_ExecRebinds(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`DELETE FROM traffic_stops WHERE violation = \$1`).
		WithArgs("DUI").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	require.NoError(t, s.Exec(context.Background(), "DELETE FROM traffic_stops WHERE violation = ?", "DUI"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ExecError(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`DROP TABLE`).WillReturnError(errors.New("permission denied"))

	err := s.Exec(context.Background(), "DROP TABLE IF EXISTS traffic_stops")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: exec")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Query(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT violation, COUNT\(\*\) AS stop_count FROM traffic_stops`).
		WillReturnRows(pgxmock.NewRows([]string{"violation", "stop_count"}).
			AddRow("Speeding", int64(7)).
			AddRow("DUI", int64(2)))

	rows, err := s.Query(context.Background(), "SELECT violation, COUNT(*) AS stop_count FROM traffic_stops GROUP BY 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"violation", "stop_count"}, rows.Columns)
	assert.Equal(t, [][]any{{"Speeding", int64(7)}, {"DUI", int64(2)}}, rows.Values)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_QueryError(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New(`relation "traffic_stops" does not exist`))

	_, err := s.Query(context.Background(), "SELECT * FROM traffic_stops")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_BulkLoad(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"traffic_stops"}, []string{"violation", "is_arrested"}).WillReturnResult(2)
	mock.ExpectCommit()

	n, err := s.BulkLoad(context.Background(), "traffic_stops", []string{"violation", "is_arrested"},
		[][]any{{"DUI", true}, {"Speeding", false}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_BulkLoadRollsBack(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"traffic_stops"}, []string{"violation"}).WillReturnError(errors.New("value too long"))
	mock.ExpectRollback()

	_, err := s.BulkLoad(context.Background(), "traffic_stops", []string{"violation"}, [][]any{{"x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO traffic_stops")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Ping(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	assert.NoError(t, s.Ping(context.Background()))
	err := s.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: ping")
	assert.NoError(t, s.Close())
	assert.Equal(t, DriverPostgres, s.Dialect().Name())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown driver "oracle"`)
}

func TestNewPostgres_BadURL(t *testing.T) {
	_, err := NewPostgres(context.Background(), "://not a url", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: parse config")
}
