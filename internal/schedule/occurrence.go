// Package schedule holds the pure temporal logic of the reminder system:
// turning a weekly recurrence into concrete session instants, deciding when a
// reminder for a session should fire, and the deterministic identifiers used
// to dedup scheduled reminders. Nothing in this package performs I/O.
package schedule

import (
	"time"

	"github.com/course-remind/internal/domain"
)

// DefaultHorizonDays is how far ahead occurrences are computed.
const DefaultHorizonDays = 7

// Occurrences expands a course recurrence into its concrete future sessions
// within horizonDays of now, in ascending chronological order.
//
// The function is total: a malformed time string yields no occurrence for
// that day instead of an error, so one bad course definition can never block
// other courses' reminders. Only sessions strictly after now are emitted.
func Occurrences(rec domain.CourseRecurrence, now time.Time, horizonDays int) []domain.ReminderOccurrence {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	var occs []domain.ReminderOccurrence
	for offset := 0; offset < horizonDays; offset++ {
		day := now.AddDate(0, 0, offset)
		weekday := domain.FromTime(day.Weekday())
		if !rec.HasDay(weekday) {
			continue
		}

		startStr, endStr := rec.DefaultStart, rec.DefaultEnd
		venue := ""
		if ov, ok := rec.Overrides[weekday]; ok {
			startStr, endStr = ov.Start, ov.End
			venue = ov.Venue
		}

		start, ok := atWallClock(day, startStr)
		if !ok {
			continue
		}
		if !start.After(now) {
			continue
		}
		end, ok := atWallClock(day, endStr)
		if !ok {
			end = start
		}

		occs = append(occs, domain.ReminderOccurrence{
			CourseID:     rec.CourseID,
			CourseName:   rec.Name,
			SessionStart: start,
			SessionEnd:   end,
			Venue:        venue,
		})
	}
	return occs
}

// atWallClock pins an "15:04" wall-clock string onto day's date in day's
// location. ok is false when the string does not parse.
func atWallClock(day time.Time, clock string) (time.Time, bool) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), true
}
