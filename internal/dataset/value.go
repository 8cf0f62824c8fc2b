package dataset

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindMissing Kind = iota
	KindNumber
	KindText
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindTimestamp:
		return "timestamp"
	default:
		return "missing"
	}
}

// Value is a single cell. The zero value is Missing.
type Value struct {
	kind Kind
	num  float64
	str  string
	ts   time.Time
}

// Missing returns the missing value.
func Missing() Value { return Value{} }

// Number wraps a float.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Text wraps a string.
func Text(s string) Value { return Value{kind: KindText, str: s} }

// Timestamp wraps a time.
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, ts: t} }

// Kind returns the variant.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether the value is absent.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Float returns the numeric reading of v. Numbers must be finite; text is
// parsed. Timestamps and missing values never read as numbers.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, isFinite(v.num)
	case KindText:
		return ParseNumber(v.str)
	default:
		return 0, false
	}
}

// TimeIn returns the time reading of v in loc. Text is parsed with naive
// layouts interpreted in loc. Numbers are never read as epoch times.
func (v Value) TimeIn(loc *time.Location) (time.Time, bool) {
	switch v.kind {
	case KindTimestamp:
		return v.ts.In(loc), true
	case KindText:
		return ParseTime(v.str, loc)
	default:
		return time.Time{}, false
	}
}

// String renders the value as plain text. Missing renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return v.str
	case KindTimestamp:
		return v.ts.Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// MarshalJSON encodes numbers as JSON numbers, timestamps as RFC 3339 strings
// and missing or non-finite values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if !isFinite(v.num) {
			return []byte("null"), nil
		}
		return []byte(strconv.FormatFloat(v.num, 'g', -1, 64)), nil
	case KindText:
		return json.Marshal(v.str)
	case KindTimestamp:
		return json.Marshal(v.ts.Format(time.RFC3339Nano))
	default:
		return []byte("null"), nil
	}
}

// ParseNumber parses s as a finite float. Blank strings are not numbers.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(f) {
		return 0, false
	}
	return f, true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
