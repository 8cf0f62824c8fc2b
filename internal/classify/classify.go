// Package classify infers the role of each dataset column: time axis,
// numeric measurement or categorical label.
package classify

import (
	"strings"
	"time"

	"github.com/jwulff/sensorviz/internal/dataset"
)

// SampleRows bounds how many leading rows are inspected by sampling fallbacks.
const SampleRows = 200

// TimeParseRatio is the share of sampled values that must parse as a
// date-time for a column to be treated as the time axis.
const TimeParseRatio = 0.6

// TimeCandidates are column names recognised as the time axis.
var TimeCandidates = []string{"time", "timestamp", "datetime", "date", "created_at", "ts"}

// CategoricalCandidates are column names recognised as class labels.
var CategoricalCandidates = []string{"water_class", "class", "class_label"}

// Roles is the classifier's view of a dataset.
type Roles struct {
	Columns     []string `json:"columns"`
	Time        string   `json:"time,omitempty"`
	Numeric     []string `json:"numeric"`
	Categorical string   `json:"categorical,omitempty"`
}

// Classify runs every inference over ds.
func Classify(ds *dataset.Dataset, loc *time.Location) Roles {
	if ds == nil {
		return Roles{Columns: []string{}, Numeric: []string{}}
	}
	timeCol, _ := GuessTimeColumn(ds.Schema, ds.Rows, loc)
	catCol, _ := GuessCategoricalColumn(ds.Schema, nil)
	numeric := NumericColumns(ds.Schema, ds.Rows)
	if numeric == nil {
		numeric = []string{}
	}
	columns := ds.Schema.Visible()
	if columns == nil {
		columns = []string{}
	}
	return Roles{
		Columns:     columns,
		Time:        timeCol,
		Numeric:     numeric,
		Categorical: catCol,
	}
}

// GuessTimeColumn returns the column holding timestamps. A name match wins;
// otherwise the first column where at least 60% of the sampled values parse
// as date-times is chosen.
func GuessTimeColumn(schema dataset.Schema, rows []dataset.Record, loc *time.Location) (string, bool) {
	columns := schema.Visible()
	if name, ok := matchName(columns, TimeCandidates); ok {
		return name, true
	}

	sample := head(rows)
	if len(sample) == 0 {
		return "", false
	}
	threshold := TimeParseRatio * float64(len(sample))
	for _, col := range columns {
		parsed := 0
		for _, r := range sample {
			if _, ok := r.Get(col).TimeIn(loc); ok {
				parsed++
			}
		}
		if float64(parsed) >= threshold {
			return col, true
		}
	}
	return "", false
}

// NumericColumns returns the measurement columns. Declared number columns are
// preferred; when the schema declares none, a column qualifies if any sampled
// value parses as a finite number.
func NumericColumns(schema dataset.Schema, rows []dataset.Record) []string {
	var declared []string
	for _, name := range schema.OfType(dataset.TypeNumber) {
		if !dataset.IsPlaceholder(name) {
			declared = append(declared, name)
		}
	}
	if len(declared) > 0 {
		return declared
	}

	sample := head(rows)
	var found []string
	for _, col := range schema.Visible() {
		for _, r := range sample {
			if _, ok := r.Get(col).Float(); ok {
				found = append(found, col)
				break
			}
		}
	}
	return found
}

// GuessCategoricalColumn matches column names against candidates, ignoring
// case. A nil candidate list uses CategoricalCandidates. There is no sampling
// fallback.
func GuessCategoricalColumn(schema dataset.Schema, candidates []string) (string, bool) {
	if candidates == nil {
		candidates = CategoricalCandidates
	}
	return matchName(schema.Visible(), candidates)
}

func matchName(columns, candidates []string) (string, bool) {
	for _, col := range columns {
		for _, cand := range candidates {
			if strings.EqualFold(col, cand) {
				return col, true
			}
		}
	}
	return "", false
}

func head(rows []dataset.Record) []dataset.Record {
	if len(rows) > SampleRows {
		return rows[:SampleRows]
	}
	return rows
}
