// Package notification serves the in-app feed that broadcast deliveries
// write into.
package notification

import (
	"context"
	"fmt"

	"github.com/course-remind/internal/domain"
)

type Service interface {
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	// MarkAsRead flips the row's readed flag. The row must belong to userID.
	MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error)
}

type notificationStore interface {
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string) error
}

type service struct {
	repo notificationStore
}

func NewService(repo notificationStore) Service {
	return &service{repo: repo}
}

func (s *service) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.repo.ListUnread(ctx, userID)
}

func (s *service) MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, fmt.Errorf("notification belongs to another user: %w", domain.ErrForbidden)
	}
	if err := s.repo.MarkAsRead(ctx, notificationID); err != nil {
		return nil, err
	}
	n.Readed = 1
	return n, nil
}
