package util

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// Kampala is the fixed business timezone (EAT, UTC+3, no daylight saving)
var Kampala = time.FixedZone("EAT", 3*60*60)

// Date builds a calendar date. Dates are carried as midnight UTC so that
// day arithmetic never crosses a zone offset.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf returns the Kampala calendar date of the given instant
func DateOf(t time.Time) time.Time {
	local := t.In(Kampala)
	return Date(local.Year(), local.Month(), local.Day())
}

// Today returns the current calendar date in Kampala
func Today() time.Time {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// AddMonthsClamped adds months to a date, snapping to the last day of the
// target month when the day-of-month does not exist there (Jan 31 + 1 = Feb 28/29)
func AddMonthsClamped(d time.Time, months int) time.Time {
	first := Date(d.Year(), d.Month(), 1).AddDate(0, months, 0)

	// Day 0 of the following month is the last day of this one
	lastDay := Date(first.Year(), first.Month()+1, 0).Day()

	day := d.Day()
	if day > lastDay {
		day = lastDay
	}
	return Date(first.Year(), first.Month(), day)
}

// AddDays adds whole calendar days
func AddDays(d time.Time, days int) time.Time {
	return d.AddDate(0, 0, days)
}

// DaysBetween returns the number of whole days from a to b (negative if b is before a)
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// MaxDate returns the later of two dates
func MaxDate(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
