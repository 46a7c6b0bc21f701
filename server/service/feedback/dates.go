package feedback

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// isoLayouts are tried in order. Values without an offset are read as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// parseISOTime parses an ISO-8601 timestamp. A trailing "Z" means UTC.
func parseISOTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("invalid ISO-8601 timestamp %q", value)
}

// lowerBound converts an inclusive start to unix seconds, rounding up sub-second parts.
func lowerBound(t time.Time) int64 {
	sec := t.Unix()
	if t.Nanosecond() > 0 {
		sec++
	}
	return sec
}

// upperBound converts an inclusive end to unix seconds, dropping sub-second parts.
func upperBound(t time.Time) int64 {
	return t.Unix()
}

// parseDateRange parses optional start/end values into inclusive unix bounds.
func parseDateRange(start, end string) (*int64, *int64, error) {
	var after, before *int64
	if start != "" {
		t, err := parseISOTime(start)
		if err != nil {
			return nil, nil, invalidArgumentf("Invalid start_date format. Use ISO format (e.g., 2024-01-01T00:00:00Z).")
		}
		v := lowerBound(t)
		after = &v
	}
	if end != "" {
		t, err := parseISOTime(end)
		if err != nil {
			return nil, nil, invalidArgumentf("Invalid end_date format. Use ISO format (e.g., 2024-01-01T00:00:00Z).")
		}
		v := upperBound(t)
		before = &v
	}
	return after, before, nil
}
