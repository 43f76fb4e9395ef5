package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/securecheck/securecheck-cli/internal/store"
)

// RunsTable records every ingestion. It is created once and never dropped.
const RunsTable = "ingest_runs"

// Run statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// RunEntry is one row of the run log.
type RunEntry struct {
	ID             string     `json:"id" yaml:"id"`
	Source         string     `json:"source" yaml:"source"`
	Status         string     `json:"status" yaml:"status"`
	StartedAt      time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	RowsRead       int64      `json:"rows_read" yaml:"rows_read"`
	RowsLoaded     int64      `json:"rows_loaded" yaml:"rows_loaded"`
	RowsDropped    int64      `json:"rows_dropped" yaml:"rows_dropped"`
	DroppedColumns []string   `json:"dropped_columns,omitempty" yaml:"dropped_columns,omitempty"`
	Error          string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunResult holds the counts recorded when a run completes.
type RunResult struct {
	RowsRead       int64
	RowsLoaded     int64
	RowsDropped    int64
	DroppedColumns []string
}

// RunLog reads and writes the ingest_runs table.
type RunLog struct {
	store store.Store
	now   func() time.Time
}

// NewRunLog creates a RunLog on st.
func NewRunLog(st store.Store) *RunLog {
	return &RunLog{store: st, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates the run log table if it does not exist.
func (l *RunLog) Migrate(ctx context.Context) error {
	ts := l.store.Dialect().TimestampType()
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id VARCHAR(36) PRIMARY KEY,
	source TEXT NOT NULL,
	status VARCHAR(16) NOT NULL,
	started_at %s NOT NULL,
	completed_at %s,
	rows_read BIGINT NOT NULL DEFAULT 0,
	rows_loaded BIGINT NOT NULL DEFAULT 0,
	rows_dropped BIGINT NOT NULL DEFAULT 0,
	dropped_columns TEXT,
	error TEXT
)`, RunsTable, ts, ts)
	return eris.Wrap(l.store.Exec(ctx, ddl), "runlog: migrate")
}

// Start records the beginning of a run and returns its ID.
func (l *RunLog) Start(ctx context.Context, source string) (string, error) {
	id := uuid.NewString()
	err := l.store.Exec(ctx,
		"INSERT INTO "+RunsTable+" (id, source, status, started_at) VALUES (?, ?, ?, ?)",
		id, source, StatusRunning, l.now(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "runlog: start run for %s", source)
	}
	return id, nil
}

// Complete marks a run as successfully completed.
func (l *RunLog) Complete(ctx context.Context, id string, result *RunResult) error {
	if result == nil {
		result = &RunResult{}
	}
	var dropped any
	if len(result.DroppedColumns) > 0 {
		b, err := json.Marshal(result.DroppedColumns)
		if err != nil {
			return eris.Wrap(err, "runlog: marshal dropped columns")
		}
		dropped = string(b)
	}

	err := l.store.Exec(ctx,
		`UPDATE `+RunsTable+`
		 SET status = ?, completed_at = ?, rows_read = ?, rows_loaded = ?, rows_dropped = ?, dropped_columns = ?
		 WHERE id = ?`,
		StatusComplete, l.now(), result.RowsRead, result.RowsLoaded, result.RowsDropped, dropped, id,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: complete run %s", id)
	}
	return nil
}

// Fail marks a run as failed with an error message.
func (l *RunLog) Fail(ctx context.Context, id string, errMsg string) error {
	err := l.store.Exec(ctx,
		"UPDATE "+RunsTable+" SET status = ?, completed_at = ?, error = ? WHERE id = ?",
		StatusFailed, l.now(), errMsg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: fail run %s", id)
	}
	return nil
}

// List returns up to limit runs, most recent first. A limit below 1 returns
// every run.
func (l *RunLog) List(ctx context.Context, limit int) ([]RunEntry, error) {
	q := `SELECT id, source, status, started_at, completed_at, rows_read, rows_loaded, rows_dropped, dropped_columns, error
	 FROM ` + RunsTable + ` ORDER BY started_at DESC`
	if limit > 0 {
		q += " LIMIT " + strconv.Itoa(limit)
	}

	rows, err := l.store.Query(ctx, q)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list")
	}

	entries := make([]RunEntry, 0, len(rows.Values))
	for _, v := range rows.Values {
		if len(v) != 10 {
			return nil, eris.Errorf("runlog: got %d columns, want 10", len(v))
		}
		e := RunEntry{
			ID:          asString(v[0]),
			Source:      asString(v[1]),
			Status:      asString(v[2]),
			RowsRead:    asInt64(v[5]),
			RowsLoaded:  asInt64(v[6]),
			RowsDropped: asInt64(v[7]),
			Error:       asString(v[9]),
		}
		if e.StartedAt, err = asTime(v[3]); err != nil {
			return nil, eris.Wrapf(err, "runlog: run %s started_at", e.ID)
		}
		if v[4] != nil {
			t, err := asTime(v[4])
			if err != nil {
				return nil, eris.Wrapf(err, "runlog: run %s completed_at", e.ID)
			}
			e.CompletedAt = &t
		}
		if s := asString(v[8]); s != "" {
			_ = json.Unmarshal([]byte(s), &e.DroppedColumns)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// LastSuccess returns when the most recent complete run finished, or nil
// when no run has completed.
func (l *RunLog) LastSuccess(ctx context.Context) (*time.Time, error) {
	rows, err := l.store.Query(ctx,
		"SELECT completed_at FROM "+RunsTable+" WHERE status = ? ORDER BY completed_at DESC LIMIT 1",
		StatusComplete,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: last success")
	}
	if len(rows.Values) == 0 || rows.Values[0][0] == nil {
		return nil, nil
	}
	t, err := asTime(rows.Values[0][0])
	if err != nil {
		return nil, eris.Wrap(err, "runlog: last success")
	}
	return &t, nil
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case float64:
		return int64(x)
	case *big.Int:
		return x.Int64()
	case string:
		n, _ := strconv.ParseInt(x, 10, 64)
		return n
	default:
		return 0
	}
}

// timeLayouts covers the text forms SQLite returns for bound time values.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func asTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, eris.Errorf("runlog: unreadable timestamp %q", x)
	default:
		return time.Time{}, eris.Errorf("runlog: unexpected timestamp type %T", v)
	}
}
