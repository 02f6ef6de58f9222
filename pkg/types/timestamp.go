package types

import (
	"encoding/json"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp is a lenient RFC3339-style timestamp. Backends occasionally hand
// back malformed or absent creation dates; those decode to the zero time so
// the order sorts first instead of failing the whole payload.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps a time.Time.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp parses value against the accepted layouts, zero on failure.
func ParseTimestamp(value string) Timestamp {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Timestamp{}
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return Timestamp{Time: parsed}
		}
	}
	return Timestamp{}
}

// MarshalJSON renders the timestamp as RFC3339, or null when zero.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts a string timestamp or null; unparsable input maps to
// the zero time rather than an error.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*t = Timestamp{}
		return nil
	}
	*t = ParseTimestamp(raw)
	return nil
}
