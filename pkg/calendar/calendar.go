// Package calendar works with civil dates.
//
// A civil date is represented as a time.Time at 00:00 UTC carrying the
// year/month/day observed in some location. Subtracting two such values always
// yields whole days, regardless of DST transitions in the original location.
package calendar

import "time"

// Day returns the civil date of t as observed in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a civil date from its components.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Normalize strips the time of day from a stored date column, keeping the
// calendar date it was written with.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of civil days from `from` to `to`.
// Both values are normalized first, so callers may pass stored dates directly.
func DaysBetween(from, to time.Time) int {
	f := Normalize(from)
	t := Normalize(to)
	return int(t.Sub(f).Hours() / 24)
}

// AddDays shifts a civil date by n days.
func AddDays(day time.Time, n int) time.Time {
	return Normalize(day).AddDate(0, 0, n)
}

// StartIn returns the instant the civil date begins in loc.
func StartIn(day time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
