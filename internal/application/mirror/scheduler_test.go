package mirror

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/course-remind/internal/domain"
	"github.com/course-remind/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- test doubles ---

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEnrollments struct{ mock.Mock }

func (m *mockEnrollments) ListActiveByUser(ctx context.Context, userID string) ([]domain.Enrollment, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Enrollment), args.Error(1)
}

type mockCourses struct{ mock.Mock }

func (m *mockCourses) Get(ctx context.Context, courseID string) (*domain.CourseRecurrence, error) {
	args := m.Called(ctx, courseID)
	if c, _ := args.Get(0).(*domain.CourseRecurrence); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeQueue stands in for the OS timer queue. Entries can be dropped behind
// the scheduler's back to simulate the OS losing them.
type fakeQueue struct {
	queued map[string]time.Time
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{queued: make(map[string]time.Time)}
}

func (q *fakeQueue) Schedule(identifier string, fireAt time.Time, _ LocalNotification) error {
	q.queued[identifier] = fireAt
	return nil
}

func (q *fakeQueue) Cancel(identifier string) {
	delete(q.queued, identifier)
}

func (q *fakeQueue) Pending() []string {
	ids := make([]string, 0, len(q.queued))
	for id := range q.queued {
		ids = append(ids, id)
	}
	return ids
}

func (q *fakeQueue) drop(identifier string) {
	delete(q.queued, identifier)
}

// --- fixtures ---

// 2025-01-07 is a Tuesday; the course meets Wednesdays at 10:00.
var tuesday9 = time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC)
var wedSession = time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC)

type fixture struct {
	users       *mockUsers
	enrollments *mockEnrollments
	courses     *mockCourses
	store       *MemoryStore
	queue       *fakeQueue
	clock       *quartz.Mock
	scheduler   *Scheduler
}

func newFixture(t *testing.T, at time.Time) *fixture {
	f := &fixture{
		users:       new(mockUsers),
		enrollments: new(mockEnrollments),
		courses:     new(mockCourses),
		store:       NewMemoryStore(),
		queue:       newFakeQueue(),
		clock:       quartz.NewMock(t),
	}
	f.clock.Set(at)
	f.scheduler = NewScheduler("u1", f.users, f.enrollments, f.courses, f.store, f.queue, f.clock, 7)
	return f
}

func (f *fixture) enrolledInWedCourse(lead int) {
	f.users.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID: "u1", Enable: true, NotificationsEnabled: true,
		LeadMinutes: lead, Sound: domain.SoundDefault,
	}, nil)
	f.enrollments.On("ListActiveByUser", mock.Anything, "u1").Return([]domain.Enrollment{
		{EnrollmentID: "e1", UserID: "u1", CourseID: "c1", Active: true},
	}, nil)
	f.courses.On("Get", mock.Anything, "c1").Return(&domain.CourseRecurrence{
		CourseID: "c1", Name: "Databases",
		Days:         []domain.Weekday{domain.Wednesday},
		DefaultStart: "10:00", DefaultEnd: "12:00",
	}, nil)
}

func (f *fixture) identifiers(t *testing.T) []string {
	t.Helper()
	entries, err := f.store.List()
	require.NoError(t, err)
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.Identifier)
	}
	return ids
}

// --- tests ---

func TestSync_SchedulesUpcomingSession(t *testing.T) {
	f := newFixture(t, tuesday9)
	f.enrolledInWedCourse(15)

	require.NoError(t, f.scheduler.Sync(context.Background(), TriggerLogin))

	entries, err := f.store.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, schedule.Identifier("c1", wedSession), e.Identifier)
	assert.Equal(t, wedSession, e.SessionStart)
	assert.Equal(t, wedSession.Add(-15*time.Minute), e.FireAt)
	assert.Contains(t, f.queue.queued, e.Identifier)
}

func TestSync_ExpiredFireInstantIsNotScheduled(t *testing.T) {
	// Wednesday 09:50, lead 15: today's 10:00 session has its fire instant
	// at 09:45, already past, so nothing may be scheduled for it.
	f := newFixture(t, time.Date(2025, 1, 8, 9, 50, 0, 0, time.UTC))
	f.enrolledInWedCourse(15)

	require.NoError(t, f.scheduler.Sync(context.Background(), TriggerForeground))

	assert.Empty(t, f.identifiers(t))
	assert.Empty(t, f.queue.queued)
}

func TestSync_RerunWithoutStateChangeIsIdempotent(t *testing.T) {
	f := newFixture(t, tuesday9)
	f.enrolledInWedCourse(15)

	require.NoError(t, f.scheduler.Sync(context.Background(), TriggerLogin))
	first := f.identifiers(t)

	require.NoError(t, f.scheduler.Sync(context.Background(), TriggerForeground))
	assert.Equal(t, first, f.identifiers(t))
	assert.Len(t, f.queue.queued, len(first))
}

func TestSync_DisabledNotificationsCancelEverything(t *testing.T) {
	f := newFixture(t, tuesday9)
	f.users.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID: "u1", Enable: true, NotificationsEnabled: false, LeadMinutes: 15,
	}, nil)

	stale := Entry{Identifier: schedule.Identifier("c1", wedSession), CourseID: "c1", SessionStart: wedSession, FireAt: wedSession.Add(-15 * time.Minute)}
	require.NoError(t, f.store.Put(stale))
	_ = f.queue.Schedule(stale.Identifier, stale.FireAt, LocalNotification{})

	require.NoError(t, f.scheduler.Sync(context.Background(), TriggerPreferenceChange))

	assert.Empty(t, f.identifiers(t))
	assert.Empty(t, f.queue.queued)
	f.enrollments.AssertNotCalled(t, "ListActiveByUser", mock.Anything, mock.Anything)
}

func TestSync_LeadChangeCancelsEntriesOfDroppedCourses(t *testing.T) {
	f := newFixture(t, tuesday9)
	f.enrolledInWedCourse(30)

	// Entry left over from a course the user is no longer enrolled in. The
	// per-course cancel never visits it; only the lead-change full cancel
	// does.
	orphan := Entry{Identifier: schedule.Identifier("gone", wedSession), CourseID: "gone", SessionStart: wedSession, FireAt: wedSession}
	require.NoError(t, f.store.Put(orphan))
	_ = f.queue.Schedule(orphan.Identifier, orphan.FireAt, LocalNotification{})

	require.NoError(t, f.scheduler.Sync(context.Background(), TriggerLeadChange))

	ids := f.identifiers(t)
	assert.NotContains(t, ids, orphan.Identifier)
	assert.Contains(t, ids, schedule.Identifier("c1", wedSession))
	assert.Equal(t, wedSession.Add(-30*time.Minute), f.queue.queued[schedule.Identifier("c1", wedSession)])
}

func TestSync_SweepDropsPastEntries(t *testing.T) {
	f := newFixture(t, tuesday9)
	f.enrolledInWedCourse(15)

	past := Entry{
		Identifier:   schedule.Identifier("old", tuesday9.Add(-time.Hour)),
		CourseID:     "old",
		SessionStart: tuesday9.Add(-time.Hour),
		FireAt:       tuesday9.Add(-75 * time.Minute),
	}
	require.NoError(t, f.store.Put(past))
	_ = f.queue.Schedule(past.Identifier, past.FireAt, LocalNotification{})

	require.NoError(t, f.scheduler.Sync(context.Background(), TriggerForeground))

	assert.NotContains(t, f.identifiers(t), past.Identifier)
	assert.NotContains(t, f.queue.queued, past.Identifier)
}

func TestReconcile_ResyncsWhenQueueLostAnEntry(t *testing.T) {
	f := newFixture(t, tuesday9)
	f.enrolledInWedCourse(15)

	require.NoError(t, f.scheduler.Sync(context.Background(), TriggerLogin))
	id := schedule.Identifier("c1", wedSession)
	require.Contains(t, f.queue.queued, id)

	// Simulate the OS dropping the timer after an app update.
	f.queue.drop(id)

	require.NoError(t, f.scheduler.Reconcile(context.Background()))
	assert.Contains(t, f.queue.queued, id)
	assert.Contains(t, f.identifiers(t), id)
}

func TestReconcile_ConsistentStateIsNoop(t *testing.T) {
	f := newFixture(t, tuesday9)
	f.enrolledInWedCourse(15)

	require.NoError(t, f.scheduler.Sync(context.Background(), TriggerLogin))
	f.users.Calls = nil
	f.users.ExpectedCalls = nil

	require.NoError(t, f.scheduler.Reconcile(context.Background()))
	f.users.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}
