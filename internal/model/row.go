// Package model defines the core data types shared by the ranking, classification
// and export packages.
package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Row is one analytics record (a style, SKU or brand in a time window) as decoded
// from a backend response. Rows have no fixed schema; pages use different field sets.
type Row map[string]any

// Get returns the raw value stored under key. Keys may be dotted paths into nested
// objects, e.g. "best_volume_band.avg_units_per_day".
func (r Row) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	if v, ok := r[key]; ok {
		return v, true
	}
	if !strings.Contains(key, ".") {
		return nil, false
	}

	var cur any = map[string]any(r)
	for _, part := range strings.Split(key, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// IsNull reports whether key is absent or holds nil.
func (r Row) IsNull(key string) bool {
	v, ok := r.Get(key)
	return !ok || v == nil
}

// Number coerces the value under key to a finite float64. Absent, nil, non-numeric
// and non-finite values report false.
func (r Row) Number(key string) (float64, bool) {
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}
	return ToNumber(v)
}

// Count returns Number(key), treating missing values as zero.
func (r Row) Count(key string) float64 {
	n, ok := r.Number(key)
	if !ok {
		return 0
	}
	return n
}

// IsNumber reports whether the stored value is a JSON number, without coercing strings.
func (r Row) IsNumber(key string) bool {
	v, ok := r.Get(key)
	if !ok {
		return false
	}
	switch n := v.(type) {
	case float64:
		return !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32, int, int32, int64, uint, uint32, uint64:
		return true
	case json.Number:
		_, err := n.Float64()
		return err == nil
	default:
		return false
	}
}

// Text renders the value under key as a display string. Missing values are "".
func (r Row) Text(key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	return ToText(v)
}

// Coalesce returns the first value among keys that is present and non-nil.
func (r Row) Coalesce(keys ...string) any {
	for _, k := range keys {
		if v, ok := r.Get(k); ok && v != nil {
			return v
		}
	}
	return nil
}

// Tag returns the server-supplied recommendation tag, if any.
func (r Row) Tag() Tag {
	return Tag(r.Text("tag"))
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// CloneRows returns a new slice holding the same rows.
func CloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	return out
}

// ToNumber coerces a decoded JSON value to a finite float64.
// Numeric strings are trimmed first; an empty string coerces to zero.
func ToNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToText renders a decoded JSON value the way the dashboard prints it.
func ToText(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return formatFloat(s)
	case float32:
		return formatFloat(float64(s))
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	case Tag:
		return string(s)
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Row:
		return m, true
	default:
		return nil, false
	}
}
