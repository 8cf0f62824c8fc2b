// Package aggregate buckets time-stamped readings into daily, weekly or
// monthly means.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aclements/go-moremath/stats"

	"github.com/jwulff/sensorviz/internal/dataset"
)

// Granularity selects the bucket size.
type Granularity string

const (
	All     Granularity = "all"
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// CanonicalLayout formats per-row timestamps for the unaggregated series.
const CanonicalLayout = "2006-01-02T15:04:05.000Z"

// ParseGranularity maps user input to a Granularity. Unknown or empty input
// yields All and false.
func ParseGranularity(s string) (Granularity, bool) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case All, Daily, Weekly, Monthly:
		return g, true
	default:
		return All, false
	}
}

// Bucket is one point of an aggregated series. Keys sort chronologically.
type Bucket struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// ColumnSeries is the series of one value column.
type ColumnSeries struct {
	Column  string   `json:"column"`
	Buckets []Bucket `json:"buckets"`
}

type observation struct {
	at    time.Time
	value float64
}

// Series aggregates valueCol over timeCol. Rows without a parseable time or a
// finite value are dropped. Calendar keys are computed in loc.
func Series(rows []dataset.Record, timeCol, valueCol string, g Granularity, loc *time.Location) []Bucket {
	if timeCol == "" || valueCol == "" {
		return []Bucket{}
	}
	if loc == nil {
		loc = time.UTC
	}

	obs := make([]observation, 0, len(rows))
	for _, r := range rows {
		at, ok := r.Get(timeCol).TimeIn(loc)
		if !ok {
			continue
		}
		v, ok := r.Get(valueCol).Float()
		if !ok {
			continue
		}
		obs = append(obs, observation{at: at, value: v})
	}
	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].at.Before(obs[j].at)
	})

	keyFn := bucketKey(g)
	if keyFn == nil {
		out := make([]Bucket, len(obs))
		for i, o := range obs {
			out[i] = Bucket{Key: o.at.UTC().Format(CanonicalLayout), Value: o.value}
		}
		return out
	}

	groups := map[string][]float64{}
	var keys []string
	for _, o := range obs {
		k := keyFn(o.at.In(loc))
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], o.value)
	}
	sort.Strings(keys)

	out := make([]Bucket, len(keys))
	for i, k := range keys {
		out[i] = Bucket{Key: k, Value: stats.Mean(groups[k])}
	}
	return out
}

// AllSeries runs Series independently for each column. Columns do not share
// buckets: each uses only its own valid rows.
func AllSeries(rows []dataset.Record, timeCol string, columns []string, g Granularity, loc *time.Location) []ColumnSeries {
	out := make([]ColumnSeries, 0, len(columns))
	for _, col := range columns {
		out = append(out, ColumnSeries{
			Column:  col,
			Buckets: Series(rows, timeCol, col, g, loc),
		})
	}
	return out
}

// bucketKey returns the key function for g, or nil for unaggregated output.
func bucketKey(g Granularity) func(time.Time) string {
	switch g {
	case Daily:
		return func(t time.Time) string { return t.Format("2006-01-02") }
	case Weekly:
		return func(t time.Time) string {
			year, week := t.ISOWeek()
			return fmt.Sprintf("%04d-W%02d", year, week)
		}
	case Monthly:
		return func(t time.Time) string { return t.Format("2006-01") }
	default:
		return nil
	}
}

// MonthChoice is a selectable calendar month.
type MonthChoice struct {
	Value string `json:"value"` // YYYY-MM
	Label string `json:"label"` // January 2024
}

// MonthChoices lists the distinct months present in timeCol, ascending.
func MonthChoices(rows []dataset.Record, timeCol string, loc *time.Location) []MonthChoice {
	choices := []MonthChoice{}
	if timeCol == "" {
		return choices
	}
	if loc == nil {
		loc = time.UTC
	}
	seen := map[string]time.Time{}
	for _, r := range rows {
		at, ok := r.Get(timeCol).TimeIn(loc)
		if !ok {
			continue
		}
		k := at.Format("2006-01")
		if _, ok := seen[k]; !ok {
			seen[k] = at
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		choices = append(choices, MonthChoice{Value: k, Label: seen[k].Format("January 2006")})
	}
	return choices
}

// FilterMonth keeps rows whose time falls in month (YYYY-MM). An empty month
// or time column returns rows unchanged.
func FilterMonth(rows []dataset.Record, timeCol, month string, loc *time.Location) []dataset.Record {
	if timeCol == "" || month == "" {
		return rows
	}
	if loc == nil {
		loc = time.UTC
	}
	out := []dataset.Record{}
	for _, r := range rows {
		at, ok := r.Get(timeCol).TimeIn(loc)
		if ok && at.Format("2006-01") == month {
			out = append(out, r)
		}
	}
	return out
}
