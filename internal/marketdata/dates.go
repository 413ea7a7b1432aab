package marketdata

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// CSV timestamp layouts. Dates are parsed exactly once, here at the loading
// boundary; everything downstream works with time.Time.
const (
	TimestampLayout = "2006-01-02 15:04:05"
	dayLayout       = "2006-01-02"
)

// ErrBadTimestamp is returned for unparseable date fields.
var ErrBadTimestamp = errors.New("unparseable timestamp")

// ParseTimestamp parses a full timestamp, minute-truncated, UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
	}
	return t.Truncate(time.Minute), nil
}

// ParseDate parses either a full timestamp or a bare date. Bare dates
// normalize to midnight; some labeling stages emit day-granularity
// confirm dates.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(TimestampLayout, s, time.UTC); err == nil {
		return t.Truncate(time.Minute), nil
	}
	if t, err := time.ParseInLocation(dayLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
}

// ParseOptionalDate parses a nullable date field. Empty strings map to nil.
func ParseOptionalDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatTimestamp renders a timestamp for the CSV logs.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// FormatOptionalTimestamp renders a nullable timestamp. Nil maps to "".
func FormatOptionalTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatTimestamp(*t)
}
