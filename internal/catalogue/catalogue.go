// Package catalogue holds the fixed, named set of aggregate reports over the
// traffic_stops table and runs them against a store.
package catalogue

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/securecheck/securecheck-cli/internal/metrics"
	"github.com/securecheck/securecheck-cli/internal/schema"
	"github.com/securecheck/securecheck-cli/internal/store"
)

// Options configures a Catalogue.
type Options struct {
	Table     string     // defaults to schema.DefaultTable
	Durations []Duration // stop_duration lookup; nil uses DefaultDurations
}

// Catalogue maps report names to their definitions.
type Catalogue struct {
	store   store.Store
	table   string
	reports map[string]*Report
	slugs   map[string]string
	order   []string // insertion order for deterministic listing
}

// New creates a catalogue populated with the default reports.
func New(s store.Store, opts Options) (*Catalogue, error) {
	table := opts.Table
	if table == "" {
		table = schema.DefaultTable
	}
	if !schema.ValidTable(table) {
		return nil, eris.Errorf("catalogue: invalid table name %q", table)
	}

	c := &Catalogue{
		store:   s,
		table:   table,
		reports: make(map[string]*Report),
		slugs:   make(map[string]string),
	}
	for _, r := range DefaultReports(opts.Durations) {
		c.Register(r)
	}
	return c, nil
}

// Register adds a report. Registering an existing name replaces its definition
// and keeps its position.
func (c *Catalogue) Register(r *Report) {
	if _, ok := c.reports[r.Name]; !ok {
		c.order = append(c.order, r.Name)
	}
	c.reports[r.Name] = r
	c.slugs[r.Slug()] = r.Name
}

// Names returns the report names in catalogue order.
func (c *Catalogue) Names() []string {
	return append([]string(nil), c.order...)
}

// Reports returns the report definitions in catalogue order.
func (c *Catalogue) Reports() []*Report {
	out := make([]*Report, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.reports[name])
	}
	return out
}

// Lookup resolves a report by exact name or by slug.
func (c *Catalogue) Lookup(key string) (*Report, error) {
	if r, ok := c.reports[key]; ok {
		return r, nil
	}
	if name, ok := c.slugs[Slugify(key)]; ok {
		return c.reports[name], nil
	}
	return nil, &UnknownReportError{Name: key}
}

// SQL returns the statement and arguments the report runs on this store.
func (c *Catalogue) SQL(r *Report) (string, []any) {
	q := r.Build(c.store.Dialect())
	return q.Render(c.table)
}

// Run executes the report registered under name.
func (c *Catalogue) Run(ctx context.Context, name string) (*Result, error) {
	r, ok := c.reports[name]
	if !ok {
		return nil, &UnknownReportError{Name: name}
	}
	return c.RunReport(ctx, r)
}

// RunReport executes r. An empty table yields a result with no rows.
func (c *Catalogue) RunReport(ctx context.Context, r *Report) (*Result, error) {
	log := zap.L().With(zap.String("component", "catalogue"), zap.String("report", r.Name))
	start := time.Now()

	q := r.Build(c.store.Dialect())
	sql, args := q.Render(c.table)
	res, err := c.query(ctx, r.Name, q.Columns(), sql, args...)
	rows := 0
	if res != nil {
		res.Slug = r.Slug()
		rows = len(res.Rows)
	}
	metrics.RecordReport(r.Slug(), time.Since(start), rows, err)
	if err != nil {
		log.Warn("report failed", zap.Error(err))
		return nil, err
	}

	log.Debug("report complete", zap.Int("rows", rows), zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// query runs sql and coerces every cell to its declared column type.
func (c *Catalogue) query(ctx context.Context, name string, cols []Column, sql string, args ...any) (*Result, error) {
	raw, err := c.store.Query(ctx, sql, args...)
	if err != nil {
		return nil, &QueryExecutionError{Report: name, Err: err}
	}
	if len(raw.Columns) != len(cols) {
		return nil, &QueryExecutionError{
			Report: name,
			Err:    eris.Errorf("catalogue: got %d columns, want %d", len(raw.Columns), len(cols)),
		}
	}

	res := &Result{Report: name, Columns: cols, Rows: make([][]any, 0, len(raw.Values))}
	for _, vals := range raw.Values {
		row := make([]any, len(cols))
		for i, col := range cols {
			v, err := coerce(col.Type, vals[i])
			if err != nil {
				return nil, &QueryExecutionError{Report: name, Err: eris.Wrapf(err, "catalogue: column %s", col.Name)}
			}
			row[i] = v
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

// Outcome is the result of one report in a RunAll call.
type Outcome struct {
	Name   string
	Result *Result
	Err    error
}

// RunAll executes the named reports, or every report when names is empty, at
// most parallelism at a time. Outcomes keep the order of names. A failing
// report does not stop the others.
func (c *Catalogue) RunAll(ctx context.Context, names []string, parallelism int) []Outcome {
	if len(names) == 0 {
		names = c.order
	}
	if parallelism < 1 {
		parallelism = 1
	}

	out := make([]Outcome, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, name := range names {
		g.Go(func() error {
			res, err := c.Run(gctx, name)
			out[i] = Outcome{Name: name, Result: res, Err: err}
			return nil // don't abort other reports
		})
	}
	_ = g.Wait()
	return out
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses every run of other characters to "-".
func Slugify(s string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
