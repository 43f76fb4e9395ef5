// Package ingest replaces the traffic_stops table with a normalized extract:
// read the source, clean it, recreate the table and bulk-load the rows.
// Every run is recorded in the ingest_runs table.
package ingest

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/securecheck/securecheck-cli/internal/metrics"
	"github.com/securecheck/securecheck-cli/internal/normalize"
	"github.com/securecheck/securecheck-cli/internal/schema"
	"github.com/securecheck/securecheck-cli/internal/store"
)

// Options configures an Ingester.
type Options struct {
	Table       string // defaults to schema.DefaultTable
	Source      SourceOptions
	DateLayouts []string // stop_date layouts; nil keeps the normalizer defaults
}

// Result summarizes one ingestion.
type Result struct {
	RunID          string         `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Source         string         `json:"source" yaml:"source"`
	Table          string         `json:"table" yaml:"table"`
	RowsRead       int64          `json:"rows_read" yaml:"rows_read"`
	RowsDropped    int64          `json:"rows_dropped" yaml:"rows_dropped"` // unparseable stop_date
	RowsLoaded     int64          `json:"rows_loaded" yaml:"rows_loaded"`
	DroppedColumns []string       `json:"dropped_columns,omitempty" yaml:"dropped_columns,omitempty"`
	IgnoredColumns []string       `json:"ignored_columns,omitempty" yaml:"ignored_columns,omitempty"`
	Filled         map[string]int `json:"filled,omitempty" yaml:"filled,omitempty"`
	Duration       time.Duration  `json:"duration" yaml:"duration"`
}

// Ingester runs ingestions against one store. Runs must not overlap.
type Ingester struct {
	store      store.Store
	table      string
	reader     *Reader
	normalizer *normalize.Normalizer
	runs       *RunLog
}

// New creates an Ingester.
func New(st store.Store, opts Options) (*Ingester, error) {
	table := opts.Table
	if table == "" {
		table = schema.DefaultTable
	}
	if !schema.ValidTable(table) {
		return nil, eris.Errorf("ingest: invalid table name %q", table)
	}
	return &Ingester{
		store:      st,
		table:      table,
		reader:     NewReader(opts.Source),
		normalizer: normalize.New(normalize.WithDateLayouts(opts.DateLayouts...)),
		runs:       NewRunLog(st),
	}, nil
}

// Runs returns the run log.
func (in *Ingester) Runs() *RunLog { return in.runs }

// Run reads source and replaces the table with its normalized rows.
func (in *Ingester) Run(ctx context.Context, source string) (*Result, error) {
	return in.run(ctx, source, func(ctx context.Context) (*schema.Frame, error) {
		return in.reader.Read(ctx, source)
	})
}

// Load replaces the table with the normalized rows of raw. source labels
// the run in the run log.
func (in *Ingester) Load(ctx context.Context, source string, raw *schema.Frame) (*Result, error) {
	return in.run(ctx, source, func(context.Context) (*schema.Frame, error) {
		if raw == nil {
			return nil, &IngestionInputError{Source: source, Err: eris.New("ingest: no extract")}
		}
		return raw, nil
	})
}

func (in *Ingester) run(ctx context.Context, source string, read func(context.Context) (*schema.Frame, error)) (*Result, error) {
	log := zap.L().With(zap.String("component", "ingest"), zap.String("source", source), zap.String("table", in.table))
	start := time.Now()
	res := &Result{Source: source, Table: in.table}

	if err := in.runs.Migrate(ctx); err != nil {
		return nil, &SchemaProvisioningError{Table: RunsTable, Err: err}
	}
	id, err := in.runs.Start(ctx, source)
	if err != nil {
		log.Warn("could not record run start", zap.Error(err))
	}
	res.RunID = id

	err = in.ingest(ctx, log, res, read)
	res.Duration = time.Since(start)
	metrics.RecordIngest(res.Duration, res.RowsRead, res.RowsDropped, res.RowsLoaded, err)
	in.record(context.WithoutCancel(ctx), log, res, err)

	if err != nil {
		log.Error("ingestion failed", zap.Error(err))
		return nil, err
	}
	log.Info("ingestion complete",
		zap.Int64("rows_read", res.RowsRead),
		zap.Int64("rows_dropped", res.RowsDropped),
		zap.Int64("rows_loaded", res.RowsLoaded),
		zap.Duration("elapsed", res.Duration),
	)
	return res, nil
}

func (in *Ingester) ingest(ctx context.Context, log *zap.Logger, res *Result, read func(context.Context) (*schema.Frame, error)) error {
	raw, err := read(ctx)
	if err != nil {
		return err
	}

	clean, sum := in.normalizer.Normalize(raw)
	res.RowsRead = int64(sum.RowsIn)
	res.RowsDropped = int64(sum.BadDates)
	res.DroppedColumns = sum.DroppedColumns
	res.Filled = sum.Filled
	for _, c := range clean.Columns {
		if _, ok := schema.Lookup(c); !ok {
			res.IgnoredColumns = append(res.IgnoredColumns, c)
		}
	}
	if len(res.IgnoredColumns) > 0 {
		log.Warn("columns outside the schema are not stored", zap.Strings("columns", res.IgnoredColumns))
	}
	if res.RowsDropped > 0 {
		log.Warn("rows with unparseable stop_date removed", zap.Int64("rows", res.RowsDropped))
	}

	if err := Provision(ctx, in.store, in.table); err != nil {
		return err
	}

	res.RowsLoaded, err = Load(ctx, in.store, in.table, clean)
	return err
}

// record writes the outcome to the run log. Failures are logged only.
func (in *Ingester) record(ctx context.Context, log *zap.Logger, res *Result, runErr error) {
	if res.RunID == "" {
		return
	}
	var err error
	if runErr != nil {
		err = in.runs.Fail(ctx, res.RunID, runErr.Error())
	} else {
		err = in.runs.Complete(ctx, res.RunID, &RunResult{
			RowsRead:       res.RowsRead,
			RowsLoaded:     res.RowsLoaded,
			RowsDropped:    res.RowsDropped,
			DroppedColumns: res.DroppedColumns,
		})
	}
	if err != nil {
		log.Warn("could not record run outcome", zap.String("run_id", res.RunID), zap.Error(err))
	}
}
