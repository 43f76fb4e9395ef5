package catalogue

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/securecheck/securecheck-cli/internal/schema"
	"github.com/securecheck/securecheck-cli/internal/store"
)

func dim(col string) Expr    { return Expr{SQL: col, As: col, Type: TypeString} }
func intDim(col string) Expr { return Expr{SQL: col, As: col, Type: TypeInt} }

func count(as string) Expr { return Expr{SQL: "COUNT(*)", As: as, Type: TypeInt} }

func flagged(flag string) string {
	return "SUM(CASE WHEN " + flag + " THEN 1 ELSE 0 END)"
}

// rate is the percentage of rows in the group with flag set.
func rate(d store.Dialect, flag, as string) Expr {
	return Expr{SQL: d.Float("100.0 * " + flagged(flag) + " / COUNT(*)"), As: as, Type: TypeFloat}
}

// total counts rows in the group with flag set.
func total(d store.Dialect, flag, as string) Expr {
	return Expr{SQL: d.Int(flagged(flag)), As: as, Type: TypeInt}
}

func average(d store.Dialect, expr, as string) Expr {
	return Expr{SQL: d.Float("AVG(" + expr + ")"), As: as, Type: TypeFloat}
}

func known(col string) Cond { return Cond{SQL: col + " <> ?", Args: []any{schema.UnknownCategory}} }
func isSet(flag string) Cond { return Cond{SQL: flag} }
func where(sql string) Cond  { return Cond{SQL: sql} }

func desc(col string) string { return col + " DESC" }

// topN counts rows per value of col, largest first.
func topN(col, as string, limit int, conds ...Cond) Query {
	return Query{
		Select: []Expr{dim(col), count(as)},
		Where:  append(append([]Cond{}, conds...), known(col)),
		Group:  1,
		Order:  []string{desc(as), col},
		Limit:  limit,
	}
}

// rateBy computes one or more flag rates per combination of dims.
func rateBy(dims []Expr, rates []Expr, conds ...Cond) Query {
	sel := append(append([]Expr{}, dims...), rates...)
	order := make([]string, 0, len(rates)+len(dims))
	for _, r := range rates {
		order = append(order, desc(r.As))
	}
	for _, d := range dims {
		order = append(order, d.As)
	}
	return Query{Select: sel, Where: conds, Group: len(dims), Order: order}
}

// ageGroup buckets driver_age into ten-year bands.
func ageGroup() Expr {
	return Expr{
		SQL: "CASE" +
			" WHEN driver_age BETWEEN 15 AND 24 THEN '15-24'" +
			" WHEN driver_age BETWEEN 25 AND 34 THEN '25-34'" +
			" WHEN driver_age BETWEEN 35 AND 44 THEN '35-44'" +
			" WHEN driver_age BETWEEN 45 AND 54 THEN '45-54'" +
			" WHEN driver_age BETWEEN 55 AND 64 THEN '55-64'" +
			" WHEN driver_age > 64 THEN '65+'" +
			" ELSE 'Unknown' END",
		As:   "age_group",
		Type: TypeString,
	}
}

// dayPart labels hours 20:00 through 05:59 as Night. Rows without a readable
// hour fall into Day.
func dayPart(d store.Dialect) Expr {
	h := d.Hour(schema.StopTime)
	return Expr{
		SQL:  fmt.Sprintf("CASE WHEN %[1]s >= 20 OR %[1]s < 6 THEN 'Night' ELSE 'Day' END", h),
		As:   "time_of_day_category",
		Type: TypeString,
	}
}

// durationMinutes maps stop_duration labels to minutes; unlisted labels are 0.
func durationMinutes(buckets []Duration) string {
	if len(buckets) == 0 {
		return "0"
	}
	var sb strings.Builder
	sb.WriteString("CASE ")
	sb.WriteString(schema.StopDuration)
	for _, b := range buckets {
		sb.WriteString(" WHEN ")
		sb.WriteString(quoteLiteral(b.Label))
		sb.WriteString(" THEN ")
		sb.WriteString(strconv.FormatFloat(b.Minutes, 'f', -1, 64))
	}
	sb.WriteString(" ELSE 0 END")
	return sb.String()
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
