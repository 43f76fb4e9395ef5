package schema

import "github.com/rotisserie/eris"

// Frame is an in-memory tabular record set. Rows hold one cell per column;
// a nil cell is a missing value.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// NewFrame returns an empty frame with the given header.
func NewFrame(columns ...string) *Frame {
	return &Frame{Columns: append([]string(nil), columns...)}
}

// Append adds a row. The row must have one cell per column.
func (f *Frame) Append(row ...any) error {
	if len(row) != len(f.Columns) {
		return eris.Errorf("frame: row has %d cells, want %d", len(row), len(f.Columns))
	}
	f.Rows = append(f.Rows, row)
	return nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Index returns the position of column name, or -1.
func (f *Frame) Index(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the frame carries column name.
func (f *Frame) Has(name string) bool {
	return f.Index(name) >= 0
}

// Value returns the cell at row i for column name, or nil when the column is absent.
func (f *Frame) Value(i int, name string) any {
	idx := f.Index(name)
	if idx < 0 || i < 0 || i >= len(f.Rows) {
		return nil
	}
	return f.Rows[i][idx]
}

// Project returns the rows restricted to the given columns, in that order.
// Columns the frame does not carry yield nil cells.
func (f *Frame) Project(columns []string) [][]any {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = f.Index(c)
	}

	out := make([][]any, len(f.Rows))
	for r, row := range f.Rows {
		projected := make([]any, len(columns))
		for i, j := range idx {
			if j >= 0 {
				projected[i] = row[j]
			}
		}
		out[r] = projected
	}
	return out
}
