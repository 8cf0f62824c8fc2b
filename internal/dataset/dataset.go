// Package dataset defines the typed row model shared by every transform.
package dataset

import "time"

// Record maps column names to cell values.
type Record map[string]Value

// Get returns the value for column, or Missing if absent.
func (r Record) Get(column string) Value {
	if r == nil {
		return Missing()
	}
	return r[column]
}

// Dataset is an immutable snapshot of tabular sensor data. Changes replace the
// whole Dataset; nothing mutates one in place.
type Dataset struct {
	ID         string
	Schema     Schema
	Rows       []Record
	Missing    map[string]int
	OutOfRange map[string]int
	CreatedAt  time.Time
}

// New creates a dataset stamped with the current time.
func New(id string, schema Schema, rows []Record) *Dataset {
	return &Dataset{
		ID:         id,
		Schema:     schema,
		Rows:       rows,
		Missing:    map[string]int{},
		OutOfRange: map[string]int{},
		CreatedAt:  time.Now(),
	}
}

// Len returns the row count.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// WithID returns a shallow copy of d carrying a different id.
func (d *Dataset) WithID(id string) *Dataset {
	cp := *d
	cp.ID = id
	return &cp
}

// Summary is the light-weight description of a dataset returned by lookups.
type Summary struct {
	ID         string         `json:"id"`
	Columns    Schema         `json:"schema"`
	RowCount   int            `json:"row_count"`
	Missing    map[string]int `json:"missing"`
	OutOfRange map[string]int `json:"out_of_range"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Summarize describes d without its rows.
func (d *Dataset) Summarize() Summary {
	return Summary{
		ID:         d.ID,
		Columns:    d.Schema,
		RowCount:   len(d.Rows),
		Missing:    d.Missing,
		OutOfRange: d.OutOfRange,
		CreatedAt:  d.CreatedAt,
	}
}
