package engine

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDayKey is returned when a day key is not a real YYYY-MM-DD date.
var ErrInvalidDayKey = errors.New("invalid day key, want YYYY-MM-DD")

const dayKeyLayout = "2006-01-02"

// ParseDayKey validates a YYYY-MM-DD day key and returns its date.
func ParseDayKey(dayKey string) (time.Time, error) {
	if len(dayKey) != len(dayKeyLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDayKey, dayKey)
	}
	t, err := time.Parse(dayKeyLayout, dayKey)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDayKey, dayKey)
	}
	return t, nil
}

// DayKeyOf formats a timestamp as a day key in the given location.
func DayKeyOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayKeyLayout)
}

// AddDays returns the day key n calendar days after dayKey.
// dayKey must already be validated.
func AddDays(dayKey string, n int) string {
	t, _ := time.Parse(dayKeyLayout, dayKey)
	return t.AddDate(0, 0, n).Format(dayKeyLayout)
}

// DaysBetween returns the number of calendar days from a to b (b - a).
// Both keys must already be validated.
func DaysBetween(a, b string) int {
	ta, _ := time.Parse(dayKeyLayout, a)
	tb, _ := time.Parse(dayKeyLayout, b)
	return int(tb.Sub(ta).Hours() / 24)
}

// ISOWeek returns a "year-week" bucket for coverage checks.
func ISOWeek(dayKey string) string {
	t, _ := time.Parse(dayKeyLayout, dayKey)
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-%02d", year, week)
}

// dayBounds returns the [start, end) millisecond range of the local
// calendar day named by dayKey.
func dayBounds(dayKey string, loc *time.Location) (int64, int64, error) {
	t, err := ParseDayKey(dayKey)
	if err != nil {
		return 0, 0, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start.UnixMilli(), end.UnixMilli(), nil
}
