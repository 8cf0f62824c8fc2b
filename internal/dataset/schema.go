package dataset

import (
	"bytes"
	"encoding/json"
	"regexp"
)

// ColumnType is the declared type tag of a column.
type ColumnType string

const (
	TypeDatetime ColumnType = "datetime"
	TypeNumber   ColumnType = "number"
	TypeString   ColumnType = "string"
	// TypeUnknown marks columns discovered from rows when no schema was sent.
	TypeUnknown ColumnType = ""
)

// placeholderPattern matches index-only columns such as "Unnamed: 0".
var placeholderPattern = regexp.MustCompile(`(?i)^unnamed:\s*\d+`)

// IsPlaceholder reports whether name is a synthetic unnamed column.
func IsPlaceholder(name string) bool {
	return placeholderPattern.MatchString(name)
}

// Column is one schema entry.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Schema is the ordered column → type map. Its key set is authoritative for
// which columns exist.
type Schema []Column

// Names returns all column names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Visible returns the column names that are not placeholders.
func (s Schema) Visible() []string {
	var names []string
	for _, name := range s.Names() {
		if !IsPlaceholder(name) {
			names = append(names, name)
		}
	}
	return names
}

// Type returns the declared type of name.
func (s Schema) Type(name string) (ColumnType, bool) {
	for _, c := range s {
		if c.Name == name {
			return c.Type, true
		}
	}
	return TypeUnknown, false
}

// Has reports whether the schema declares name.
func (s Schema) Has(name string) bool {
	_, ok := s.Type(name)
	return ok
}

// OfType returns the columns declared with t, in order.
func (s Schema) OfType(t ColumnType) []string {
	var names []string
	for _, c := range s {
		if c.Type == t {
			names = append(names, c.Name)
		}
	}
	return names
}

// MarshalJSON encodes the schema as an object, keeping column order.
func (s Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(string(c.Type))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
