package reconcile

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date key used across the API.
const DateLayout = "2006-01-02"

// afternoonOffset shifts the 1..4 picker hour into 13:00..16:00.
const afternoonOffset = 12

var (
	// Hours offered by the afternoon time picker.
	Hours = []int{1, 2, 3, 4}
	// Minutes offered by the time picker.
	Minutes = []int{0, 10, 20, 30, 40, 50}
)

// ValidHour reports whether hour is one of Hours.
func ValidHour(hour int) bool {
	for _, h := range Hours {
		if h == hour {
			return true
		}
	}
	return false
}

// ValidMinute reports whether minute is one of Minutes.
func ValidMinute(minute int) bool {
	for _, m := range Minutes {
		if m == minute {
			return true
		}
	}
	return false
}

// AfternoonTime places hour:minute (picker values) on day's calendar date.
// Seconds and sub-second fields are always zero.
func AfternoonTime(day time.Time, hour, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour+afternoonOffset, minute, 0, 0, day.Location())
}

// Reschedule keeps the calendar date of ts (in loc) and replaces the time of day.
func Reschedule(ts int64, loc *time.Location, hour, minute int) int64 {
	return AfternoonTime(time.UnixMilli(ts).In(loc), hour, minute).UnixMilli()
}

// DateKey formats t as YYYY-MM-DD in its own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD key as midnight in loc.
func ParseDate(key string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", key, err)
	}
	return day, nil
}

// StartOfDay returns 00:00:00.000 of t's calendar date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's calendar date.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Millisecond)
}

// SameDate reports whether a and b fall on the same calendar date in a's location.
func SameDate(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
