package model

import "time"

// IsNewDay reports whether now falls on a later calendar date than last in loc.
// A missing last login always counts as a new day.
func IsNewDay(last *time.Time, now time.Time, loc *time.Location) bool {
	if last == nil {
		return true
	}
	if loc == nil {
		loc = time.Local
	}
	return DayStart(*last, loc).Before(DayStart(now, loc))
}

// DayStart returns local midnight of t's calendar date in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
