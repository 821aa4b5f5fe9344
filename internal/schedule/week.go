package schedule

import "time"

// WeekStart returns Monday 00:00 of t's week, in t's location. This is the
// boundary at which the secondary-channel weekly quota resets.
func WeekStart(t time.Time) time.Time {
	// time.Weekday counts Sunday as 0; shift so Monday is day 0.
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	day := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
}
