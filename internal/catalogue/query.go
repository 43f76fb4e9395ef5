package catalogue

import (
	"strconv"
	"strings"
)

// Expr is one output column of a report query.
type Expr struct {
	SQL  string
	As   string
	Type ColumnType
}

// Cond is a WHERE predicate with `?` placeholders.
type Cond struct {
	SQL  string
	Args []any
}

// Query is an aggregate SELECT over the stops table. The first Group select
// expressions are grouped by ordinal position so computed dimensions need not
// be repeated.
type Query struct {
	Select []Expr
	Where  []Cond
	Group  int
	Having []string
	Order  []string
	Limit  int
}

// Columns returns the declared output columns.
func (q Query) Columns() []Column {
	cols := make([]Column, len(q.Select))
	for i, e := range q.Select {
		cols[i] = Column{Name: e.name(), Type: e.Type}
	}
	return cols
}

func (e Expr) name() string {
	if e.As != "" {
		return e.As
	}
	return e.SQL
}

// Render builds the statement text and its bind arguments.
func (q Query) Render(table string) (string, []any) {
	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT ")
	for i, e := range q.Select {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.SQL)
		if e.As != "" && e.As != e.SQL {
			sb.WriteString(" AS ")
			sb.WriteString(e.As)
		}
	}

	sb.WriteString(" FROM ")
	sb.WriteString(table)

	if len(q.Where) > 0 {
		sb.WriteString(" WHERE ")
		for i, c := range q.Where {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			sb.WriteString(c.SQL)
			args = append(args, c.Args...)
		}
	}

	if q.Group > 0 {
		sb.WriteString(" GROUP BY ")
		for i := 1; i <= q.Group; i++ {
			if i > 1 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Itoa(i))
		}
	}

	if len(q.Having) > 0 {
		sb.WriteString(" HAVING ")
		sb.WriteString(strings.Join(q.Having, " AND "))
	}

	if len(q.Order) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(q.Order, ", "))
	}

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(q.Limit))
	}

	return sb.String(), args
}
