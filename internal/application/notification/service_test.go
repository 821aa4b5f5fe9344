package notification

import (
	"context"
	"testing"

	"github.com/course-remind/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct{ mock.Mock }

func (m *mockStore) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Notification), args.Error(1)
}
func (m *mockStore) MarkAsRead(ctx context.Context, notificationID string) error {
	return m.Called(ctx, notificationID).Error(0)
}

func TestMarkAsRead_FlipsFlagForOwner(t *testing.T) {
	store := new(mockStore)
	svc := NewService(store)

	store.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", UserID: "u1"}, nil)
	store.On("MarkAsRead", mock.Anything, "n1").Return(nil)

	n, err := svc.MarkAsRead(context.Background(), "n1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n.Readed)
	store.AssertExpectations(t)
}

func TestMarkAsRead_RejectsForeignNotification(t *testing.T) {
	store := new(mockStore)
	svc := NewService(store)

	store.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", UserID: "someone-else"}, nil)

	_, err := svc.MarkAsRead(context.Background(), "n1", "u1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	store.AssertNotCalled(t, "MarkAsRead", mock.Anything, mock.Anything)
}
