package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// timestampLayout matches how JavaScript Dates serialize (ISO-8601, millisecond precision, UTC)
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// localLayouts are ISO-8601 forms without an offset, read as UTC
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Timestamp is a point in time that decodes from either an ISO-8601 string
// or a JSON number of epoch milliseconds.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// FromMillis converts epoch milliseconds to a Timestamp
func FromMillis(ms int64) Timestamp {
	return Timestamp{Time: time.UnixMilli(ms).UTC()}
}

// MarshalJSON encodes the timestamp as an ISO-8601 string, or null when unset
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(timestampLayout))
}

// UnmarshalJSON accepts an ISO-8601 string, epoch milliseconds, or null
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := parseISO(s)
		if err != nil {
			// Some clients send epoch millis as a string
			ms, numErr := strconv.ParseInt(s, 10, 64)
			if numErr != nil {
				return fmt.Errorf("invalid timestamp %q: %w", s, err)
			}
			*t = FromMillis(ms)
			return nil
		}
		t.Time = parsed.UTC()
		return nil
	}

	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	*t = FromMillis(int64(ms))
	return nil
}

func parseISO(s string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return parsed, nil
	}
	for _, layout := range localLayouts {
		if local, localErr := time.ParseInLocation(layout, s, time.UTC); localErr == nil {
			return local, nil
		}
	}
	return time.Time{}, err
}
