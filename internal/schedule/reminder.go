package schedule

import (
	"time"

	"github.com/course-remind/internal/domain"
)

// Status classifies the outcome of planning a reminder for one occurrence.
type Status int

const (
	// Planned: the reminder has a future fire instant and should be scheduled.
	Planned Status = iota
	// Expired: the fire instant is already in the past; never schedule it.
	Expired
	// Disabled: the user's lead time turns reminders off entirely.
	Disabled
)

// Plan applies the reminder rule: fire leadMinutes before the session start.
// A lead of zero or less means the user has disabled reminders, not "fire
// immediately". A fire instant at or before now is Expired — callers must
// never schedule a reminder in the past.
func Plan(occ domain.ReminderOccurrence, leadMinutes int, now time.Time) (time.Time, Status) {
	if leadMinutes <= 0 {
		return time.Time{}, Disabled
	}
	fireAt := occ.SessionStart.Add(-time.Duration(leadMinutes) * time.Minute)
	if !fireAt.After(now) {
		return fireAt, Expired
	}
	return fireAt, Planned
}

// Due reports whether a planned reminder crossed into its fire window during
// the (prev, now] interval. The periodic scan uses this so each fire instant
// is claimed by exactly one tick.
func Due(fireAt, prev, now time.Time) bool {
	return fireAt.After(prev) && !fireAt.After(now)
}
