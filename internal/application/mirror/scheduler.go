package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/course-remind/internal/domain"
	"github.com/course-remind/internal/schedule"
)

// Trigger names the event that caused a sync pass. Most triggers are
// equivalent; a lead-time change is special because every existing timer
// fires at the wrong offset afterwards.
type Trigger int

const (
	TriggerForeground Trigger = iota
	TriggerLogin
	TriggerEnrollmentChange
	TriggerPreferenceChange
	TriggerCourseUpdate
	TriggerLeadChange
)

// LocalNotification is what the OS will display when a timer fires.
type LocalNotification struct {
	Title   string
	Body    string
	Channel string
}

// Notifier abstracts the device's OS-level notification timer queue.
// Scheduling an identifier that is already queued replaces it.
type Notifier interface {
	Schedule(identifier string, fireAt time.Time, n LocalNotification) error
	Cancel(identifier string)
	// Pending returns the identifiers the OS still holds. The OS may have
	// silently dropped some (app update, reinstall, system pressure).
	Pending() []string
}

type userSource interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type enrollmentSource interface {
	ListActiveByUser(ctx context.Context, userID string) ([]domain.Enrollment, error)
}

type courseSource interface {
	Get(ctx context.Context, courseID string) (*domain.CourseRecurrence, error)
}

// Scheduler keeps the store and the OS queue in lockstep for one user on one
// device. All passes are serialised; a sync pass re-run against unchanged
// state is a no-op beyond timestamp churn because identifiers are
// deterministic.
type Scheduler struct {
	mu          sync.Mutex
	userID      string
	users       userSource
	enrollments enrollmentSource
	courses     courseSource
	store       Store
	notifier    Notifier
	clock       quartz.Clock
	horizonDays int
}

func NewScheduler(userID string, users userSource, enrollments enrollmentSource, courses courseSource, store Store, notifier Notifier, clk quartz.Clock, horizonDays int) *Scheduler {
	if clk == nil {
		clk = quartz.NewReal()
	}
	if horizonDays <= 0 {
		horizonDays = schedule.DefaultHorizonDays
	}
	return &Scheduler{
		userID:      userID,
		users:       users,
		enrollments: enrollments,
		courses:     courses,
		store:       store,
		notifier:    notifier,
		clock:       clk,
		horizonDays: horizonDays,
	}
}

// Sync brings the OS queue up to date with the user's current enrollments
// and preferences.
func (s *Scheduler) Sync(ctx context.Context, trigger Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync(ctx, trigger)
}

func (s *Scheduler) sync(ctx context.Context, trigger Trigger) error {
	now := s.clock.Now()

	user, err := s.users.Get(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if !user.Enable || !user.NotificationsEnabled || user.LeadMinutes <= 0 {
		return s.cancelAll()
	}

	if trigger == TriggerLeadChange {
		// Every queued timer fires at the old offset; none can be kept.
		if err := s.cancelAll(); err != nil {
			return err
		}
	}

	enrollments, err := s.enrollments.ListActiveByUser(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("list enrollments: %w", err)
	}
	for _, e := range enrollments {
		if err := s.syncCourse(ctx, user, e.CourseID, now); err != nil {
			// One broken course must not block the rest.
			slog.Error("mirror: sync course", "course_id", e.CourseID, "err", err)
		}
	}

	return s.sweep(now)
}

// syncCourse replaces the course's mirror entries with a freshly computed
// set. Cancel-then-reschedule with deterministic identifiers makes the pass
// idempotent.
func (s *Scheduler) syncCourse(ctx context.Context, user *domain.User, courseID string, now time.Time) error {
	entries, err := s.store.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !schedule.BelongsTo(e.Identifier, courseID) {
			continue
		}
		s.notifier.Cancel(e.Identifier)
		if err := s.store.Delete(e.Identifier); err != nil {
			return err
		}
	}

	course, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return err
	}
	for _, occ := range schedule.Occurrences(*course, now, s.horizonDays) {
		fireAt, status := schedule.Plan(occ, user.LeadMinutes, now)
		if status != schedule.Planned {
			continue
		}
		identifier := schedule.Identifier(occ.CourseID, occ.SessionStart)
		body := fmt.Sprintf("%s starts at %s", occ.CourseName, occ.SessionStart.Format("15:04"))
		if occ.Venue != "" {
			body = fmt.Sprintf("%s in %s", body, occ.Venue)
		}
		err := s.notifier.Schedule(identifier, fireAt, LocalNotification{
			Title:   "Upcoming session",
			Body:    body,
			Channel: schedule.ChannelFor(user.Sound),
		})
		if err != nil {
			return err
		}
		err = s.store.Put(Entry{
			Identifier:   identifier,
			CourseID:     occ.CourseID,
			SessionStart: occ.SessionStart,
			FireAt:       fireAt,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// sweep drops entries whose fire instant already passed, from the record and
// the OS queue both.
func (s *Scheduler) sweep(now time.Time) error {
	entries, err := s.store.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.FireAt.After(now) {
			continue
		}
		s.notifier.Cancel(e.Identifier)
		if err := s.store.Delete(e.Identifier); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) cancelAll() error {
	entries, err := s.store.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		s.notifier.Cancel(e.Identifier)
		if err := s.store.Delete(e.Identifier); err != nil {
			return err
		}
	}
	return nil
}

// Reconcile compares the durable record against what the OS still holds.
// Any expected identifier the OS lost (update, reinstall, eviction) forces a
// full resync.
func (s *Scheduler) Reconcile(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.store.List()
	if err != nil {
		return err
	}
	pending := make(map[string]struct{})
	for _, id := range s.notifier.Pending() {
		pending[id] = struct{}{}
	}

	now := s.clock.Now()
	for _, e := range entries {
		if !e.FireAt.After(now) {
			continue // sweep's problem, not reconcile's
		}
		if _, ok := pending[e.Identifier]; !ok {
			slog.Warn("mirror: queue lost a reminder, resyncing", "identifier", e.Identifier)
			return s.sync(ctx, TriggerForeground)
		}
	}
	return nil
}
