// Package streak derives a user's daily-log streak.
package streak

import "time"

// Day truncates t to midnight in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Compute counts consecutive calendar days with a completed log, walking back
// from today. When today has no completed log yet the walk starts at
// yesterday, so a streak survives until the day is over. Days are compared in
// today's location and duplicates count once.
func Compute(completed []time.Time, today time.Time) int {
	loc := today.Location()
	days := make(map[time.Time]struct{}, len(completed))
	for _, d := range completed {
		days[Day(d, loc)] = struct{}{}
	}

	cursor := Day(today, loc)
	if _, ok := days[cursor]; !ok {
		cursor = cursor.AddDate(0, 0, -1)
	}
	n := 0
	for {
		if _, ok := days[cursor]; !ok {
			return n
		}
		n++
		cursor = cursor.AddDate(0, 0, -1)
	}
}
