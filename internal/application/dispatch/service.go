// Package dispatch is the server-side gateway that turns due reminders and
// ad-hoc course events into notification deliveries. The periodic scan walks
// active enrollments and fires reminders whose instant fell into the window
// since the previous tick; broadcast fans an authoring event out to every
// current enrollee without consulting the occurrence calculator.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/quartz"
	"github.com/course-remind/internal/domain"
	"github.com/course-remind/internal/infrastructure/sns"
	"github.com/course-remind/internal/pkg/id"
	"github.com/course-remind/internal/pkg/validate"
	"github.com/course-remind/internal/schedule"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// dedupTTL is how long a sent-reminder row is kept before DynamoDB expires
// it. It only has to outlive the occurrence horizon.
const dedupTTL = 14 * 24 * time.Hour

// chunkRetries bounds re-delivery attempts for the transient failures of one
// chunk. Failures that survive the budget are dropped, not carried to the
// next tick.
const chunkRetries = 2

type Service interface {
	// Scan processes one tick of the periodic dispatch: every reminder whose
	// fire instant fell in (prev, now] is delivered to all active devices of
	// its user, at most once per (user, course, session).
	Scan(ctx context.Context, prev, now time.Time) (*ScanStats, error)
	// Broadcast notifies all current enrollees of a course about an ad-hoc
	// event: one in-app record plus a push per active device, with an email
	// fallback for enrollees who have no active device.
	Broadcast(ctx context.Context, req domain.BroadcastRequest) (*domain.BroadcastResult, error)
	// Report describes each enrollee's reminder eligibility for operators.
	Report(ctx context.Context, courseID string) (*CourseReport, error)
}

// ScanStats summarises one scan tick.
type ScanStats struct {
	Users     int `json:"users"`
	Due       int `json:"due"`
	Delivered int `json:"delivered"`
	Skipped   int `json:"skipped"` // already sent (dedup hit)
}

// CourseReport is the operator-facing eligibility report for one course.
type CourseReport struct {
	CourseID   string           `json:"course_id"`
	CourseName string           `json:"course_name"`
	Enrollees  []EnrolleeReport `json:"enrollees"`
}

type EnrolleeReport struct {
	UserID               string `json:"user_id"`
	Name                 string `json:"name"`
	ActiveAccess         bool   `json:"active_access"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	LeadMinutes          int    `json:"lead_minutes"`
	ActiveDevices        int    `json:"active_devices"`
	LegacyTokens         int    `json:"legacy_tokens"`
}

type enrollmentSource interface {
	ScanActive(ctx context.Context) ([]domain.Enrollment, error)
	ListActiveByCourse(ctx context.Context, courseID string) ([]domain.Enrollment, error)
}

type courseSource interface {
	Get(ctx context.Context, courseID string) (*domain.CourseRecurrence, error)
}

type userSource interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type deviceRegistry interface {
	ListActive(ctx context.Context, userID string) ([]domain.DeviceRegistration, error)
	ListAll(ctx context.Context, userID string) ([]domain.DeviceRegistration, error)
	Deactivate(ctx context.Context, token string) error
}

type sentStore interface {
	Exists(ctx context.Context, dedupKey string) (bool, error)
	Put(ctx context.Context, s *domain.SentReminder) error
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
}

type pusher interface {
	Publish(ctx context.Context, endpointARN string, payload sns.PushPayload) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

// smsSender is the quota-guarded secondary channel. Send refuses with
// domain.ErrQuotaExceeded once the user's weekly budget is spent.
type smsSender interface {
	Send(ctx context.Context, userID, msgType, courseID, message string) (*domain.SmsSendLog, error)
}

// Deps holds everything the gateway talks to.
type Deps struct {
	Enrollments   enrollmentSource
	Courses       courseSource
	Users         userSource
	Devices       deviceRegistry
	Sent          sentStore
	Notifications notificationStore
	Pusher        pusher
	Mailer        mailer
	SMS           smsSender
	Clock         quartz.Clock

	HorizonDays int
	ChunkSize   int
	Workers     int
	// PublishPerSecond paces calls to the push transport. Zero disables
	// pacing.
	PublishPerSecond float64
}

type service struct {
	deps     Deps
	limiter  *rate.Limiter
	noPusher sync.Once
}

func NewService(deps Deps) Service {
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}
	if deps.HorizonDays <= 0 {
		deps.HorizonDays = schedule.DefaultHorizonDays
	}
	if deps.ChunkSize <= 0 {
		deps.ChunkSize = 100
	}
	if deps.Workers <= 0 {
		deps.Workers = 8
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if deps.PublishPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(deps.PublishPerSecond), int(deps.PublishPerSecond)+1)
	}
	return &service{deps: deps, limiter: limiter}
}

// ── periodic scan ────────────────────────────────────────────────────────────

func (s *service) Scan(ctx context.Context, prev, now time.Time) (*ScanStats, error) {
	enrollments, err := s.deps.Enrollments.ScanActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan enrollments: %w", err)
	}

	byUser := make(map[string][]string)
	for _, e := range enrollments {
		byUser[e.UserID] = append(byUser[e.UserID], e.CourseID)
	}

	stats := &ScanStats{Users: len(byUser)}
	results := make(chan ScanStats, len(byUser))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.deps.Workers)
	for userID, courseIDs := range byUser {
		g.Go(func() error {
			// One user's failure, panics included, must never stop the
			// others or the host process.
			defer func() {
				if r := recover(); r != nil {
					slog.Error("scan: user worker panicked", "user_id", userID, "panic", r)
				}
			}()
			st := s.scanUser(gctx, userID, courseIDs, prev, now)
			results <- st
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	for st := range results {
		stats.Due += st.Due
		stats.Delivered += st.Delivered
		stats.Skipped += st.Skipped
	}
	return stats, nil
}

func (s *service) scanUser(ctx context.Context, userID string, courseIDs []string, prev, now time.Time) ScanStats {
	var st ScanStats

	user, err := s.deps.Users.Get(ctx, userID)
	if err != nil {
		slog.Error("scan: load user", "user_id", userID, "err", err)
		return st
	}
	if !user.Enable || !user.NotificationsEnabled || user.LeadMinutes <= 0 {
		return st
	}

	for _, courseID := range courseIDs {
		course, err := s.deps.Courses.Get(ctx, courseID)
		if err != nil {
			slog.Error("scan: load course", "course_id", courseID, "err", err)
			continue
		}
		for _, occ := range schedule.Occurrences(*course, now, s.deps.HorizonDays) {
			fireAt, status := schedule.Plan(occ, user.LeadMinutes, prev)
			if status != schedule.Planned || !schedule.Due(fireAt, prev, now) {
				continue
			}
			st.Due++
			delivered, skipped := s.deliverReminder(ctx, user, occ, now)
			if delivered {
				st.Delivered++
			}
			if skipped {
				st.Skipped++
			}
		}
	}
	return st
}

// deliverReminder sends one due (user, occurrence) reminder to every active
// device and records the dedup row. The row is written only after at least
// one delivery attempt succeeded: under partial failure this service prefers
// a duplicate reminder on the next tick over a silent drop.
func (s *service) deliverReminder(ctx context.Context, user *domain.User, occ domain.ReminderOccurrence, now time.Time) (delivered, skipped bool) {
	key := schedule.DedupKey(user.UserID, occ.CourseID, occ.SessionStart)
	exists, err := s.deps.Sent.Exists(ctx, key)
	if err != nil {
		slog.Error("scan: dedup lookup", "key", key, "err", err)
		return false, false
	}
	if exists {
		return false, true
	}

	devices, err := s.deps.Devices.ListActive(ctx, user.UserID)
	if err != nil {
		slog.Error("scan: list devices", "user_id", user.UserID, "err", err)
		return false, false
	}
	if len(devices) == 0 {
		return false, false
	}

	body := fmt.Sprintf("%s starts at %s", occ.CourseName, occ.SessionStart.Format("15:04"))
	if occ.Venue != "" {
		body = fmt.Sprintf("%s in %s", body, occ.Venue)
	}
	payload := sns.PushPayload{
		Title:   "Upcoming session",
		Body:    body,
		Channel: schedule.ChannelFor(user.Sound),
		Data: map[string]string{
			"type":          domain.NotifyReminder,
			"course_id":     occ.CourseID,
			"session_start": occ.SessionStart.Format(time.RFC3339),
		},
	}

	_, succeeded := s.fanOut(ctx, devices, payload)
	if succeeded == 0 {
		// Every attempt failed; leave the dedup row unwritten so the next
		// tick may retry while the fire window logic still allows it.
		return false, false
	}

	err = s.deps.Sent.Put(ctx, &domain.SentReminder{
		DedupKey:  key,
		UserID:    user.UserID,
		CourseID:  occ.CourseID,
		SentAt:    now,
		ExpiresAt: now.Add(dedupTTL).Unix(),
	})
	if err != nil {
		slog.Error("scan: record sent", "key", key, "err", err)
	}
	return true, false
}

// ── broadcast ────────────────────────────────────────────────────────────────

func (s *service) Broadcast(ctx context.Context, req domain.BroadcastRequest) (*domain.BroadcastResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	course, err := s.deps.Courses.Get(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	enrollees, err := s.deps.Enrollments.ListActiveByCourse(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}

	now := s.deps.Clock.Now().UTC()
	result := &domain.BroadcastResult{}
	for _, e := range enrollees {
		user, err := s.deps.Users.Get(ctx, e.UserID)
		if err != nil {
			slog.Error("broadcast: load user", "user_id", e.UserID, "err", err)
			continue
		}

		message := req.Message
		if user.FirstName != "" {
			message = fmt.Sprintf("Hi %s, %s", user.FirstName, req.Message)
		}

		n := &domain.Notification{
			NotificationID: id.New(),
			UserID:         user.UserID,
			CourseID:       course.CourseID,
			Type:           req.Type,
			Title:          req.Title,
			Message:        message,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.deps.Notifications.Put(ctx, n); err != nil {
			slog.Error("broadcast: store notification", "user_id", user.UserID, "err", err)
		} else {
			result.NotificationsCreated++
		}

		if req.Type == domain.NotifySchedule && s.sendScheduleChangeSMS(ctx, user, course.CourseID, message) {
			result.SmsSent++
		}

		devices, err := s.deps.Devices.ListActive(ctx, user.UserID)
		if err != nil {
			slog.Error("broadcast: list devices", "user_id", user.UserID, "err", err)
			continue
		}
		if len(devices) == 0 {
			if s.deps.Mailer != nil && user.Email != "" {
				if err := s.deps.Mailer.SendEmail(user.Email, req.Title, message); err != nil {
					slog.Error("broadcast: fallback email", "user_id", user.UserID, "err", err)
				} else {
					result.EmailsSent++
				}
			}
			continue
		}

		data := map[string]string{"type": req.Type, "course_id": course.CourseID}
		for k, v := range req.Data {
			data[k] = v
		}
		attempted, _ := s.fanOut(ctx, devices, sns.PushPayload{
			Title:   req.Title,
			Body:    message,
			Channel: schedule.ChannelFor(user.Sound),
			Data:    data,
		})
		result.PushesAttempted += attempted
	}
	return result, nil
}

// sendScheduleChangeSMS pushes a schedule change over the secondary channel
// too. The channel is quota guarded; an exhausted budget is an expected
// outcome, not an error.
func (s *service) sendScheduleChangeSMS(ctx context.Context, user *domain.User, courseID, message string) bool {
	if s.deps.SMS == nil || user.Phone == nil || *user.Phone == "" {
		return false
	}
	_, err := s.deps.SMS.Send(ctx, user.UserID, domain.NotifySchedule, courseID, message)
	switch {
	case err == nil:
		return true
	case errors.Is(err, domain.ErrQuotaExceeded):
		slog.Info("broadcast: sms quota spent", "user_id", user.UserID)
	default:
		slog.Error("broadcast: sms", "user_id", user.UserID, "err", err)
	}
	return false
}

// ── diagnostics ──────────────────────────────────────────────────────────────

func (s *service) Report(ctx context.Context, courseID string) (*CourseReport, error) {
	course, err := s.deps.Courses.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	enrollees, err := s.deps.Enrollments.ListActiveByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	report := &CourseReport{CourseID: course.CourseID, CourseName: course.Name}
	for _, e := range enrollees {
		row := EnrolleeReport{UserID: e.UserID}
		user, err := s.deps.Users.Get(ctx, e.UserID)
		if err == nil {
			row.Name = user.FirstName + " " + user.LastName
			row.ActiveAccess = user.Enable
			row.NotificationsEnabled = user.NotificationsEnabled
			row.LeadMinutes = user.LeadMinutes
		}
		devices, err := s.deps.Devices.ListAll(ctx, e.UserID)
		if err == nil {
			for _, d := range devices {
				if d.Legacy() {
					row.LegacyTokens++
				}
				if d.Enable {
					row.ActiveDevices++
				}
			}
		}
		report.Enrollees = append(report.Enrollees, row)
	}
	return report, nil
}

// ── delivery ─────────────────────────────────────────────────────────────────

// fanOut delivers payload to the given devices in bounded chunks. A chunk's
// transient failures are retried within its own backoff budget; an invalid
// token deactivates the device instead of counting as a failure. Returns how
// many publishes were attempted and how many succeeded.
func (s *service) fanOut(ctx context.Context, devices []domain.DeviceRegistration, payload sns.PushPayload) (attempted, succeeded int) {
	if s.deps.Pusher == nil {
		// Endpoints provisioned by an earlier deployment may still be on
		// active rows; without a transport they are all effectively legacy.
		s.noPusher.Do(func() {
			slog.Warn("push transport not configured, skipping device fan-out")
		})
		return 0, 0
	}
	for start := 0; start < len(devices); start += s.deps.ChunkSize {
		end := start + s.deps.ChunkSize
		if end > len(devices) {
			end = len(devices)
		}
		a, n := s.sendChunk(ctx, devices[start:end], payload)
		attempted += a
		succeeded += n
	}
	return attempted, succeeded
}

func (s *service) sendChunk(ctx context.Context, chunk []domain.DeviceRegistration, payload sns.PushPayload) (attempted, succeeded int) {
	pending := chunk
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), chunkRetries)
	for {
		var failed []domain.DeviceRegistration
		for _, d := range pending {
			if d.Legacy() {
				continue
			}
			if err := s.limiter.Wait(ctx); err != nil {
				return attempted, succeeded
			}
			attempted++
			err := s.deps.Pusher.Publish(ctx, d.EndpointARN, payload)
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrInvalidToken):
				slog.Warn("dead destination, deactivating", "token", d.Token, "err", err)
				if derr := s.deps.Devices.Deactivate(ctx, d.Token); derr != nil {
					slog.Error("deactivate device", "token", d.Token, "err", derr)
				}
			default:
				failed = append(failed, d)
			}
		}
		if len(failed) == 0 {
			return attempted, succeeded
		}
		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			slog.Error("chunk delivery exhausted retries", "undelivered", len(failed))
			return attempted, succeeded
		}
		t := s.deps.Clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return attempted, succeeded
		case <-t.C:
		}
		pending = failed
	}
}
