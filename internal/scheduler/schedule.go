package scheduler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Schedule fires at a fixed time of day in a timezone, on every day or only on
// the listed weekdays.
type Schedule struct {
	Hour     int
	Minute   int
	Weekdays []time.Weekday
	Location *time.Location
}

// Daily fires every day at hour:minute in loc.
func Daily(hour, minute int, loc *time.Location) Schedule {
	return Schedule{Hour: hour, Minute: minute, Location: loc}
}

// Weekly fires once a week on day at hour:minute in loc.
func Weekly(day time.Weekday, hour, minute int, loc *time.Location) Schedule {
	return Schedule{Hour: hour, Minute: minute, Weekdays: []time.Weekday{day}, Location: loc}
}

func (s Schedule) Validate() error {
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("hour %d out of range", s.Hour)
	}
	if s.Minute < 0 || s.Minute > 59 {
		return fmt.Errorf("minute %d out of range", s.Minute)
	}
	for _, d := range s.Weekdays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("weekday %d out of range", d)
		}
	}
	return nil
}

func (s Schedule) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s Schedule) matches(d time.Weekday) bool {
	return len(s.Weekdays) == 0 || slices.Contains(s.Weekdays, d)
}

// Next returns the first firing time strictly after after.
func (s Schedule) Next(after time.Time) time.Time {
	loc := s.location()
	local := after.In(loc)
	y, m, d := local.Date()
	for i := 0; i <= 7; i++ {
		candidate := time.Date(y, m, d+i, s.Hour, s.Minute, 0, 0, loc)
		if candidate.After(after) && s.matches(candidate.Weekday()) {
			return candidate
		}
	}
	// Unreachable for a valid schedule: some weekday matches within a week.
	return time.Date(y, m, d+8, s.Hour, s.Minute, 0, 0, loc)
}

// Cron renders the schedule as a five-field cron expression.
func (s Schedule) Cron() string {
	days := "*"
	if len(s.Weekdays) > 0 {
		sorted := slices.Clone(s.Weekdays)
		slices.Sort(sorted)
		parts := make([]string, len(sorted))
		for i, d := range sorted {
			parts[i] = strconv.Itoa(int(d))
		}
		days = strings.Join(parts, ",")
	}
	return fmt.Sprintf("%d %d * * %s", s.Minute, s.Hour, days)
}

// Timezone is the IANA name of the schedule's location.
func (s Schedule) Timezone() string {
	return s.location().String()
}

func (s Schedule) String() string {
	return s.Cron() + " " + s.Timezone()
}
