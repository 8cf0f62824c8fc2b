package dataset

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/tidwall/gjson"
)

// discoverSampleRows bounds how many rows are scanned for column names when a
// payload carries no schema.
const discoverSampleRows = 200

// ErrInvalidPayload is returned when the ingestion body is not a JSON object.
var ErrInvalidPayload = errors.New("invalid ingestion payload")

// Decode reads the cleaning service's ingestion payload:
//
//	{"schema": {...}, "clean_rows": [...], "missing_report": {...}, "out_of_range_report": {...}}
//
// Column order follows the document. Values are typed using the declared
// column type; naive timestamps are read in loc. A missing or malformed schema
// never fails the decode: columns are then discovered from the rows.
func Decode(data []byte, loc *time.Location) (*Dataset, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidPayload
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, ErrInvalidPayload
	}
	if loc == nil {
		loc = time.UTC
	}

	schemaRes := root.Get("schema")
	if !schemaRes.Exists() {
		schemaRes = root.Get("column_schema")
	}
	schema := decodeSchema(schemaRes)

	rowsRes := root.Get("clean_rows")
	if !rowsRes.Exists() {
		rowsRes = root.Get("rows")
	}
	if len(schema) == 0 {
		schema = discoverColumns(rowsRes)
	}

	types := make(map[string]ColumnType, len(schema))
	for _, c := range schema {
		types[c.Name] = c.Type
	}

	var rows []Record
	if rowsRes.IsArray() {
		rowsRes.ForEach(func(_, row gjson.Result) bool {
			rec := Record{}
			if row.IsObject() {
				row.ForEach(func(key, val gjson.Result) bool {
					name := key.String()
					if t, ok := types[name]; ok {
						rec[name] = decodeValue(val, t, loc)
					}
					return true
				})
			}
			rows = append(rows, rec)
			return true
		})
	}

	ds := New(root.Get("id").String(), schema, rows)
	ds.Missing = decodeCounts(root.Get("missing_report"))
	ds.OutOfRange = decodeCounts(root.Get("out_of_range_report"))
	if created := root.Get("created_at"); created.Exists() {
		if t, err := time.Parse(time.RFC3339Nano, created.String()); err == nil {
			ds.CreatedAt = t
		}
	}
	return ds, nil
}

func decodeSchema(res gjson.Result) Schema {
	if !res.IsObject() {
		return nil
	}
	var schema Schema
	res.ForEach(func(key, val gjson.Result) bool {
		t := TypeUnknown
		if val.Type == gjson.String {
			t = ColumnType(val.String())
		}
		schema = append(schema, Column{Name: key.String(), Type: t})
		return true
	})
	return schema
}

// discoverColumns collects column names in first-seen order.
func discoverColumns(rows gjson.Result) Schema {
	if !rows.IsArray() {
		return nil
	}
	seen := map[string]bool{}
	var schema Schema
	n := 0
	rows.ForEach(func(_, row gjson.Result) bool {
		if n >= discoverSampleRows {
			return false
		}
		n++
		row.ForEach(func(key, _ gjson.Result) bool {
			name := key.String()
			if !seen[name] {
				seen[name] = true
				schema = append(schema, Column{Name: name, Type: TypeUnknown})
			}
			return true
		})
		return true
	})
	return schema
}

func decodeValue(res gjson.Result, t ColumnType, loc *time.Location) Value {
	switch res.Type {
	case gjson.Null:
		return Missing()
	case gjson.Number:
		return Number(res.Float())
	case gjson.String:
		s := res.String()
		switch t {
		case TypeNumber:
			if f, ok := ParseNumber(s); ok {
				return Number(f)
			}
		case TypeDatetime:
			if ts, ok := ParseTime(s, loc); ok {
				return Timestamp(ts)
			}
		}
		return Text(s)
	default:
		return Text(res.Raw)
	}
}

func decodeCounts(res gjson.Result) map[string]int {
	counts := map[string]int{}
	if !res.IsObject() {
		return counts
	}
	res.ForEach(func(key, val gjson.Result) bool {
		counts[key.String()] = int(val.Int())
		return true
	})
	return counts
}

// payload is the wire form written by MarshalJSON and read back by Decode.
type payload struct {
	ID         string         `json:"id,omitempty"`
	Schema     Schema         `json:"schema"`
	Rows       []Record       `json:"clean_rows"`
	Missing    map[string]int `json:"missing_report"`
	OutOfRange map[string]int `json:"out_of_range_report"`
	CreatedAt  string         `json:"created_at,omitempty"`
}

// MarshalJSON encodes d in the ingestion payload shape.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	p := payload{
		ID:         d.ID,
		Schema:     d.Schema,
		Rows:       d.Rows,
		Missing:    d.Missing,
		OutOfRange: d.OutOfRange,
	}
	if p.Schema == nil {
		p.Schema = Schema{}
	}
	if p.Rows == nil {
		p.Rows = []Record{}
	}
	if !d.CreatedAt.IsZero() {
		p.CreatedAt = d.CreatedAt.Format(time.RFC3339Nano)
	}
	return json.Marshal(p)
}
