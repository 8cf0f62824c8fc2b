// Package views composes the transforms into chart-ready, serializable
// series. Every function is pure: the same dataset and selectors always
// produce the same view.
package views

import (
	"time"

	"github.com/jwulff/sensorviz/internal/aggregate"
	"github.com/jwulff/sensorviz/internal/classify"
	"github.com/jwulff/sensorviz/internal/dataset"
	"github.com/jwulff/sensorviz/internal/histogram"
	"github.com/jwulff/sensorviz/internal/lttb"
	"github.com/jwulff/sensorviz/internal/table"
)

// AllColumns selects every numeric column.
const AllColumns = "__all__"

// Columns describes the roles and selectable months of a dataset.
type Columns struct {
	classify.Roles
	Months []aggregate.MonthChoice `json:"months"`
}

// ColumnsOf classifies ds and lists the months its time column covers.
func ColumnsOf(ds *dataset.Dataset, loc *time.Location) Columns {
	roles := classify.Classify(ds, loc)
	var rows []dataset.Record
	if ds != nil {
		rows = ds.Rows
	}
	return Columns{
		Roles:  roles,
		Months: aggregate.MonthChoices(rows, roles.Time, loc),
	}
}

// selectColumns resolves a column selector against the numeric columns.
// Unknown names select nothing.
func selectColumns(roles classify.Roles, column string) []string {
	if column == "" || column == AllColumns {
		return roles.Numeric
	}
	for _, c := range roles.Columns {
		if c == column {
			return []string{column}
		}
	}
	return nil
}

// Trend is a time series view of one or more columns.
type Trend struct {
	TimeColumn  string                   `json:"time_column"`
	Granularity aggregate.Granularity    `json:"granularity"`
	Series      []aggregate.ColumnSeries `json:"series"`
}

// TrendOf aggregates the selected columns over the time column. Ungrouped
// series longer than lttb.DrawLimit are downsampled.
func TrendOf(ds *dataset.Dataset, column string, g aggregate.Granularity, loc *time.Location) Trend {
	roles := classify.Classify(ds, loc)
	trend := Trend{TimeColumn: roles.Time, Granularity: g, Series: []aggregate.ColumnSeries{}}
	if ds == nil || roles.Time == "" {
		return trend
	}
	series := aggregate.AllSeries(ds.Rows, roles.Time, selectColumns(roles, column), g, loc)
	for i := range series {
		if g == aggregate.All {
			series[i].Buckets = capBuckets(series[i].Buckets, lttb.DrawLimit)
		}
	}
	trend.Series = series
	return trend
}

// capBuckets downsamples canonical-time buckets, keeping their keys.
func capBuckets(buckets []aggregate.Bucket, limit int) []aggregate.Bucket {
	if len(buckets) <= limit {
		return buckets
	}
	idx := lttb.Indices(BucketPoints(buckets), limit)
	out := make([]aggregate.Bucket, len(idx))
	for i, j := range idx {
		out[i] = buckets[j]
	}
	return out
}

// BucketPoints turns buckets into plottable points. Canonical timestamp keys
// become Unix milliseconds; calendar keys fall back to their position.
func BucketPoints(buckets []aggregate.Bucket) []lttb.Point {
	points := make([]lttb.Point, len(buckets))
	for i, b := range buckets {
		x := float64(i)
		if at, err := time.Parse(aggregate.CanonicalLayout, b.Key); err == nil {
			x = float64(at.UnixMilli())
		}
		points[i] = lttb.Point{X: x, Y: b.Value}
	}
	return points
}

// Histogram is the distribution of one column.
type Histogram struct {
	Column string          `json:"column"`
	Bins   []histogram.Bin `json:"bins"`
	Total  int             `json:"total"`
}

// Histograms holds one histogram per selected column, optionally restricted
// to a single month.
type Histograms struct {
	Month      string                  `json:"month,omitempty"`
	Months     []aggregate.MonthChoice `json:"months"`
	Histograms []Histogram             `json:"histograms"`
}

// HistogramsOf bins the selected columns. An empty month keeps every row.
func HistogramsOf(ds *dataset.Dataset, column, month string, loc *time.Location) Histograms {
	roles := classify.Classify(ds, loc)
	out := Histograms{Month: month, Months: []aggregate.MonthChoice{}, Histograms: []Histogram{}}
	if ds == nil {
		return out
	}
	out.Months = aggregate.MonthChoices(ds.Rows, roles.Time, loc)
	rows := aggregate.FilterMonth(ds.Rows, roles.Time, month, loc)
	for _, col := range selectColumns(roles, column) {
		bins := histogram.Compute(histogram.Values(rows, col))
		out.Histograms = append(out.Histograms, Histogram{
			Column: col,
			Bins:   bins,
			Total:  histogram.Total(bins),
		})
	}
	return out
}

// Scatter pairs two columns.
type Scatter struct {
	X      string       `json:"x"`
	Y      string       `json:"y"`
	Points []lttb.Point `json:"points"`
}

// ScatterOf builds the bounded scatter series of x against y.
func ScatterOf(ds *dataset.Dataset, x, y string) Scatter {
	s := Scatter{X: x, Y: y, Points: []lttb.Point{}}
	if ds == nil || !ds.Schema.Has(x) || !ds.Schema.Has(y) {
		return s
	}
	s.Points = lttb.Scatter(ds.Rows, x, y)
	return s
}

// Table is one formatted page of rows plus class counts over all rows.
type Table struct {
	Columns     []string           `json:"columns"`
	Headers     []string           `json:"headers"`
	Rows        [][]string         `json:"rows"`
	Page        int                `json:"page"`
	PageSize    int                `json:"page_size"`
	TotalPages  int                `json:"total_pages"`
	RowCount    int                `json:"row_count"`
	Label       string             `json:"label"`
	Stale       bool               `json:"stale,omitempty"`
	ClassColumn string             `json:"class_column,omitempty"`
	Classes     []table.ClassCount `json:"classes"`
}

// TableOf renders the window selected by state. A stale page yields an empty
// window; the caller clamps it before the next request.
func TableOf(ds *dataset.Dataset, state table.State, loc *time.Location) Table {
	roles := classify.Classify(ds, loc)
	var rows []dataset.Record
	var schema dataset.Schema
	if ds != nil {
		rows, schema = ds.Rows, ds.Schema
	}
	w := table.Slice(rows, state)

	headers := make([]string, len(roles.Columns))
	for i, c := range roles.Columns {
		headers[i] = table.Header(c, roles.Time)
	}
	return Table{
		Columns:     roles.Columns,
		Headers:     headers,
		Rows:        table.FormatRows(w.Rows, schema, roles.Columns, loc),
		Page:        w.Page,
		PageSize:    w.PageSize,
		TotalPages:  w.TotalPages,
		RowCount:    w.RowCount,
		Label:       w.Label(),
		Stale:       w.Stale,
		ClassColumn: roles.Categorical,
		Classes:     table.CountClasses(rows, roles.Categorical),
	}
}
