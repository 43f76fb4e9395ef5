// Package normalize cleans a raw traffic-stop extract into a frame that
// conforms to the traffic_stops schema.
package normalize

import (
	"github.com/securecheck/securecheck-cli/internal/schema"
)

// DefaultDateLayouts are tried in order when parsing stop_date.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"02-01-2006",
}

// Summary describes what a Normalize call changed.
type Summary struct {
	RowsIn         int            `json:"rows_in"`
	RowsOut        int            `json:"rows_out"`
	BadDates       int            `json:"bad_dates"`
	DroppedColumns []string       `json:"dropped_columns,omitempty"`
	Filled         map[string]int `json:"filled,omitempty"` // sentinel substitutions per column
}

// Normalizer converts raw frames into schema-conformant frames. It holds no
// state beyond its options and is safe for concurrent use.
type Normalizer struct {
	dateLayouts []string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithDateLayouts replaces the stop_date layouts. Empty input keeps the defaults.
func WithDateLayouts(layouts ...string) Option {
	return func(n *Normalizer) {
		if len(layouts) > 0 {
			n.dateLayouts = append([]string(nil), layouts...)
		}
	}
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{dateLayouts: DefaultDateLayouts}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Normalize returns a cleaned copy of raw. The input is not modified.
//
// Rows whose stop_date cannot be parsed are removed. Columns with no value in
// any surviving row are dropped; an extract whose stop_date column is entirely
// empty therefore loses that column and keeps its rows. Recognized columns get
// their sentinel for missing cells and are coerced to their storage type;
// unrecognized columns pass through untouched.
func (n *Normalizer) Normalize(raw *schema.Frame) (*schema.Frame, Summary) {
	sum := Summary{Filled: make(map[string]int)}
	if raw == nil {
		return schema.NewFrame(), sum
	}
	sum.RowsIn = raw.Len()

	dateIdx := raw.Index(schema.StopDate)
	if dateIdx >= 0 && columnEmpty(raw.Rows, dateIdx) {
		dateIdx = -1
	}

	// Filter on stop_date first so column emptiness is judged on the rows
	// that survive. This keeps Normalize idempotent.
	survivors := make([][]any, 0, len(raw.Rows))
	dates := make([]any, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		if dateIdx < 0 {
			survivors = append(survivors, row)
			continue
		}
		d, ok := n.parseDate(cell(row, dateIdx))
		if !ok {
			sum.BadDates++
			continue
		}
		survivors = append(survivors, row)
		dates = append(dates, d)
	}

	var keep []int
	for i, name := range raw.Columns {
		if columnEmpty(survivors, i) {
			sum.DroppedColumns = append(sum.DroppedColumns, name)
			continue
		}
		keep = append(keep, i)
	}

	out := schema.NewFrame()
	cleaners := make([]cleaner, len(keep))
	for j, i := range keep {
		name := raw.Columns[i]
		out.Columns = append(out.Columns, name)
		cleaners[j] = cleanerFor(name)
	}

	out.Rows = make([][]any, 0, len(survivors))
	for r, row := range survivors {
		cleaned := make([]any, len(keep))
		for j, i := range keep {
			if i == dateIdx {
				cleaned[j] = dates[r]
				continue
			}
			v, filled := cleaners[j](cell(row, i))
			if filled {
				sum.Filled[out.Columns[j]]++
			}
			cleaned[j] = v
		}
		out.Rows = append(out.Rows, cleaned)
	}
	sum.RowsOut = len(out.Rows)

	return out, sum
}

// cleaner converts one cell, reporting whether a sentinel was substituted.
type cleaner func(v any) (any, bool)

func cleanerFor(name string) cleaner {
	col, ok := schema.Lookup(name)
	if !ok {
		return passThrough
	}
	switch col.Kind {
	case schema.KindCategory:
		return cleanCategory
	case schema.KindInt:
		return cleanInt
	case schema.KindBool:
		return cleanBool
	case schema.KindText:
		return cleanText
	default:
		return passThrough
	}
}

func passThrough(v any) (any, bool) { return v, false }

// cell returns row[i], or nil when the row is shorter than the header.
func cell(row []any, i int) any {
	if i < len(row) {
		return row[i]
	}
	return nil
}

// columnEmpty reports whether column i is missing in every row. A column of a
// frame with no rows is empty.
func columnEmpty(rows [][]any, i int) bool {
	for _, row := range rows {
		if !IsMissing(cell(row, i)) {
			return false
		}
	}
	return true
}
