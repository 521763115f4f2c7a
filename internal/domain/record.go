package domain

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// Record is one row of a Gateway collection: a student, a teacher, a
// financial entry and so on. Values are whatever the JSON decoder produced
// (string, float64, bool, nil, nested maps or slices).
type Record map[string]any

// ID returns the record identifier as a string, or "" when absent.
func (r Record) ID() string {
	s, _ := r.Text("id")
	return s
}

// Text returns the field as display text. The second return value is false
// when the field is missing, nil, or an empty string.
func (r Record) Text(field string) (string, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return "", false
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case bool:
		s = strconv.FormatBool(t)
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprint(t)
	}
	if s == "" {
		return "", false
	}
	return s, true
}

// String returns the field as text, or "" when absent.
func (r Record) String(field string) string {
	s, _ := r.Text(field)
	return s
}

// Float returns the field as a number. Numeric strings are accepted.
func (r Record) Float(field string) (float64, bool) {
	switch t := r[field].(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Bool returns the field as a boolean. "true"/"false" strings are accepted.
func (r Record) Bool(field string) bool {
	switch t := r[field].(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	default:
		return false
	}
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}
