// Package sms guards the secondary delivery channel. Unlike push, every SMS
// has a per-message cost, so sends are metered against a weekly per-user
// quota before they ever reach the transport.
package sms

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/course-remind/internal/domain"
	"github.com/course-remind/internal/pkg/id"
	"github.com/course-remind/internal/schedule"
)

// DefaultWeeklyLimit is the per-user send quota between Monday resets.
const DefaultWeeklyLimit = 5

type Service interface {
	// WeeklyCount returns how many SMS the user has been sent since the start
	// of the current week (Monday 00:00 local).
	WeeklyCount(ctx context.Context, userID string) (int, error)
	// HasExceeded reports whether the user's weekly quota is already spent.
	HasExceeded(ctx context.Context, userID string) (bool, error)
	// Send delivers one SMS to the user's phone and appends a log row. The
	// quota is checked first: an over-quota send is refused before the
	// transport is touched and leaves no log row behind.
	Send(ctx context.Context, userID, msgType, courseID, message string) (*domain.SmsSendLog, error)
}

type userSource interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type sendLog interface {
	Put(ctx context.Context, l *domain.SmsSendLog) error
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
}

type transport interface {
	SendSMS(ctx context.Context, to, message string) error
}

type service struct {
	users  userSource
	log    sendLog
	sender transport
	clock  quartz.Clock
	limit  int
}

func NewService(users userSource, log sendLog, sender transport, clk quartz.Clock, weeklyLimit int) Service {
	if clk == nil {
		clk = quartz.NewReal()
	}
	if weeklyLimit <= 0 {
		weeklyLimit = DefaultWeeklyLimit
	}
	return &service{users: users, log: log, sender: sender, clock: clk, limit: weeklyLimit}
}

func (s *service) WeeklyCount(ctx context.Context, userID string) (int, error) {
	return s.log.CountSince(ctx, userID, schedule.WeekStart(s.clock.Now()))
}

func (s *service) HasExceeded(ctx context.Context, userID string) (bool, error) {
	count, err := s.WeeklyCount(ctx, userID)
	if err != nil {
		return false, err
	}
	return count >= s.limit, nil
}

func (s *service) Send(ctx context.Context, userID, msgType, courseID, message string) (*domain.SmsSendLog, error) {
	if message == "" {
		return nil, fmt.Errorf("empty message: %w", domain.ErrBadRequest)
	}
	if s.sender == nil {
		return nil, fmt.Errorf("sms transport not configured: %w", domain.ErrBadRequest)
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Phone == nil || *user.Phone == "" {
		return nil, fmt.Errorf("user %s has no phone number: %w", userID, domain.ErrBadRequest)
	}

	now := s.clock.Now()
	count, err := s.log.CountSince(ctx, userID, schedule.WeekStart(now))
	if err != nil {
		return nil, fmt.Errorf("count weekly sends: %w", err)
	}
	if count >= s.limit {
		return nil, fmt.Errorf("user %s sent %d of %d this week: %w", userID, count, s.limit, domain.ErrQuotaExceeded)
	}

	if err := s.sender.SendSMS(ctx, *user.Phone, message); err != nil {
		// Failed sends do not count against the quota, so no log row.
		return nil, fmt.Errorf("send sms: %w", err)
	}

	entry := &domain.SmsSendLog{
		SmsID:       id.New(),
		UserID:      userID,
		PhoneNumber: *user.Phone,
		Message:     message,
		Type:        msgType,
		CourseID:    courseID,
		SentAt:      now.UTC(),
	}
	if err := s.log.Put(ctx, entry); err != nil {
		// The SMS already left; surface the bookkeeping failure rather than
		// pretending the send did not happen.
		return entry, fmt.Errorf("record sms log: %w", err)
	}
	return entry, nil
}
