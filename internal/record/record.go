// Package record holds the source row type that flows from the internal
// database to the FUD tracker, along with value normalization and per-row
// validation.
package record

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const FieldUID = "uid"

var ErrMissingUID = errors.New("missing uid")

// Record is one source row keyed by column (or document field) name.
type Record map[string]any

// New builds a Record from raw driver values, normalizing each one.
func New(values map[string]any) Record {
	rec := make(Record, len(values))
	for k, v := range values {
		rec[k] = Normalize(v)
	}
	return rec
}

// UID returns the trimmed unique identifier, or "" when absent.
func (r Record) UID() string {
	v, ok := r.String(FieldUID)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// String renders field as text. ok is false when the field is absent or null.
func (r Record) String(field string) (string, bool) {
	v, present := r[field]
	if !present || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case time.Time:
		return formatTime(val), true
	default:
		return fmt.Sprint(val), true
	}
}

// Normalize converts driver-specific scalar values into plain Go values
// suitable for JSON encoding and text rendering.
func Normalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case time.Time:
		return formatTime(val)
	case *time.Time:
		if val == nil {
			return nil
		}
		return formatTime(*val)
	case fmt.Stringer:
		return val.String()
	default:
		return v
	}
}

// formatTime renders date-only values as YYYY-MM-DD and anything with a
// time-of-day component as RFC 3339.
func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}
