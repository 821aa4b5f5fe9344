package schedule

import (
	"testing"
	"time"

	"github.com/course-remind/internal/domain"
	"github.com/stretchr/testify/assert"
)

func occAt(start time.Time) domain.ReminderOccurrence {
	return domain.ReminderOccurrence{CourseID: "c1", SessionStart: start}
}

func TestPlan_Scheduled(t *testing.T) {
	// now = Tuesday 09:00, session next Wednesday 10:00, lead 15min.
	now := time.Date(2024, 12, 31, 9, 0, 0, 0, time.UTC)
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	fireAt, status := Plan(occAt(start), 15, now)
	assert.Equal(t, Planned, status)
	assert.Equal(t, time.Date(2025, 1, 1, 9, 45, 0, 0, time.UTC), fireAt)
}

func TestPlan_ExpiredWhenFireInstantPassed(t *testing.T) {
	// now = Wednesday 09:50, session 10:00, lead 15min → fire 09:45 is past.
	now := time.Date(2025, 1, 1, 9, 50, 0, 0, time.UTC)
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	_, status := Plan(occAt(start), 15, now)
	assert.Equal(t, Expired, status)
}

func TestPlan_ExactlyNowIsExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 45, 0, 0, time.UTC)
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	_, status := Plan(occAt(start), 15, now)
	assert.Equal(t, Expired, status)
}

func TestPlan_NonPositiveLeadDisables(t *testing.T) {
	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	_, status := Plan(occAt(start), 0, now)
	assert.Equal(t, Disabled, status)
	_, status = Plan(occAt(start), -5, now)
	assert.Equal(t, Disabled, status)
}

func TestDue_HalfOpenWindow(t *testing.T) {
	prev := time.Date(2025, 1, 1, 9, 40, 0, 0, time.UTC)
	now := prev.Add(5 * time.Minute)

	assert.False(t, Due(prev, prev, now), "fire instant at prev belongs to the previous tick")
	assert.True(t, Due(prev.Add(time.Minute), prev, now))
	assert.True(t, Due(now, prev, now))
	assert.False(t, Due(now.Add(time.Second), prev, now))
}
