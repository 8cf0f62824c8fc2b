package table

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jwulff/sensorviz/internal/dataset"
)

// UnknownClass labels rows with no class value.
const UnknownClass = "Unknown"

// ClassCount is the number of rows carrying one class label.
type ClassCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CountClasses tallies column over every row, most frequent first. Ties keep
// the order in which labels first appeared.
func CountClasses(rows []dataset.Record, column string) []ClassCount {
	counts := []ClassCount{}
	if column == "" {
		return counts
	}
	index := map[string]int{}
	for _, r := range rows {
		name := UnknownClass
		if v := r.Get(column); !v.IsMissing() {
			name = v.String()
		}
		i, ok := index[name]
		if !ok {
			i = len(counts)
			index[name] = i
			counts = append(counts, ClassCount{Name: name})
		}
		counts[i].Count++
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}

// FormatCell renders a value for display using its declared column type.
func FormatCell(t dataset.ColumnType, v dataset.Value, loc *time.Location) string {
	if v.IsMissing() || (v.Kind() == dataset.KindText && v.String() == "") {
		return "None"
	}
	switch t {
	case dataset.TypeDatetime:
		if at, ok := v.TimeIn(loc); ok {
			return at.Format("2006-01-02 15:04:05")
		}
	case dataset.TypeNumber:
		if f, ok := v.Float(); ok {
			if f >= 1000 || f <= -1000 {
				return strconv.FormatFloat(f, 'f', 0, 64)
			}
			return strconv.FormatFloat(f, 'f', 3, 64)
		}
	}
	return v.String()
}

var wordStart = regexp.MustCompile(`\b\w`)

// Header prettifies a column name: underscores become spaces and words are
// capitalised. The time column is always "Time".
func Header(column, timeColumn string) string {
	if column != "" && column == timeColumn {
		return "Time"
	}
	return wordStart.ReplaceAllStringFunc(strings.ReplaceAll(column, "_", " "), strings.ToUpper)
}

// FormatRows renders rows as display strings in column order.
func FormatRows(rows []dataset.Record, schema dataset.Schema, columns []string, loc *time.Location) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		cells := make([]string, len(columns))
		for j, col := range columns {
			t, _ := schema.Type(col)
			cells[j] = FormatCell(t, r.Get(col), loc)
		}
		out[i] = cells
	}
	return out
}
