package catalogue

import (
	"context"

	"github.com/securecheck/securecheck-cli/internal/schema"
)

// RecentLimit is the number of stops shown on the overview.
const RecentLimit = 20

// KeyStats are the headline totals of the stops table.
type KeyStats struct {
	TotalStops    int64 `json:"total_stops" yaml:"total_stops"`
	TotalArrests  int64 `json:"total_arrests" yaml:"total_arrests"`
	TotalSearches int64 `json:"total_searches" yaml:"total_searches"`
}

// OverviewResult is the dashboard landing view.
type OverviewResult struct {
	RecentStops *Result   `json:"recent_stops" yaml:"recent_stops"`
	KeyStats    KeyStats  `json:"key_stats" yaml:"key_stats"`
	Highlights  []*Result `json:"highlights" yaml:"highlights"`
}

// highlightReports are charted on the overview when registered.
var highlightReports = []string{TopDrugVehicles, CountryDrugRate}

// Overview returns the most recent stops, the key totals and the highlight
// reports.
func (c *Catalogue) Overview(ctx context.Context) (*OverviewResult, error) {
	recent, err := c.RecentStops(ctx, RecentLimit)
	if err != nil {
		return nil, err
	}
	stats, err := c.KeyStats(ctx)
	if err != nil {
		return nil, err
	}

	out := &OverviewResult{RecentStops: recent, KeyStats: *stats}
	for _, name := range highlightReports {
		if _, ok := c.reports[name]; !ok {
			continue
		}
		res, err := c.Run(ctx, name)
		if err != nil {
			return nil, err
		}
		out.Highlights = append(out.Highlights, res)
	}
	return out, nil
}

// RecentStops returns the latest limit stops, newest first.
func (c *Catalogue) RecentStops(ctx context.Context, limit int) (*Result, error) {
	q := Query{
		Order: []string{desc(schema.StopDate) + " NULLS LAST", desc(schema.StopTime) + " NULLS LAST"},
		Limit: limit,
	}
	for _, col := range schema.Columns {
		q.Select = append(q.Select, Expr{SQL: col.Name, As: col.Name, Type: typeOfKind(col.Kind)})
	}
	sql, args := q.Render(c.table)
	res, err := c.query(ctx, "Recent Stops", q.Columns(), sql, args...)
	if err != nil {
		return nil, err
	}
	res.Slug = "recent-stops"
	return res, nil
}

// KeyStats returns the total number of stops, arrests and searches.
func (c *Catalogue) KeyStats(ctx context.Context) (*KeyStats, error) {
	d := c.store.Dialect()
	q := Query{Select: []Expr{
		count("total_stops"),
		total(d, schema.IsArrested, "total_arrests"),
		total(d, schema.SearchConducted, "total_searches"),
	}}
	sql, args := q.Render(c.table)
	res, err := c.query(ctx, "Key Statistics", q.Columns(), sql, args...)
	if err != nil {
		return nil, err
	}

	stats := &KeyStats{}
	if len(res.Rows) == 0 {
		return stats, nil
	}
	row := res.Rows[0]
	stats.TotalStops = intOrZero(row[0])
	stats.TotalArrests = intOrZero(row[1])
	stats.TotalSearches = intOrZero(row[2])
	return stats, nil
}

// intOrZero reads a coerced integer cell; SUM over no rows is NULL.
func intOrZero(v any) int64 {
	n, _ := v.(int64)
	return n
}

