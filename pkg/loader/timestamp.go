package loader

import (
	"strconv"
	"strings"
	"time"
)

// Common timestamp layouts ordered by likelihood
var commonLayouts = []string{
	"2006-01-02T15:04:05.000Z07:00",    // ISO 8601 with millis
	"2006-01-02T15:04:05Z07:00",        // ISO 8601
	"2006-01-02T15:04:05.000Z",         // ISO 8601 UTC with millis
	"2006-01-02T15:04:05Z",             // ISO 8601 UTC
	"2006-01-02T15:04:05",              // ISO 8601 local
	"2006-01-02 15:04:05.000",          // Space separator with millis
	"2006-01-02 15:04:05",              // Space separator
	"2006-01-02 15:04:05Z07:00",        // Space separator with zone
	"2006-01-02",                       // Date only
	"2006/01/02 15:04:05",              // YYYY/MM/DD
	time.RFC3339Nano,                   // RFC 3339 with fractional seconds
	"2006-01-02 15:04:05.999999999-07", // SQL TIMESTAMPTZ text
}

// parseTimestamp parses a timestamp to nanoseconds since epoch. The
// preferred layout, when set, is tried first. Bare integers are read as
// Unix seconds, milliseconds or nanoseconds depending on magnitude.
func parseTimestamp(value, preferred string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, ErrInvalidTimestamp
	}

	if preferred != "" {
		if t, err := time.Parse(preferred, value); err == nil {
			return t.UnixNano(), nil
		}
	}
	for _, layout := range commonLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UnixNano(), nil
		}
	}

	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		switch {
		case n > 1e17:
			return n, nil
		case n > 1e11:
			return n * int64(time.Millisecond), nil
		default:
			return n * int64(time.Second), nil
		}
	}

	return 0, ErrInvalidTimestamp
}
