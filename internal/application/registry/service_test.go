package registry

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/course-remind/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockDeviceStore struct{ mock.Mock }

func (m *mockDeviceStore) GetByToken(ctx context.Context, token string) (*domain.DeviceRegistration, error) {
	args := m.Called(ctx, token)
	if d, _ := args.Get(0).(*domain.DeviceRegistration); d != nil {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDeviceStore) PutIfAbsent(ctx context.Context, d *domain.DeviceRegistration) error {
	return m.Called(ctx, d).Error(0)
}
func (m *mockDeviceStore) Update(ctx context.Context, token string, updates map[string]interface{}) error {
	return m.Called(ctx, token, updates).Error(0)
}
func (m *mockDeviceStore) Deactivate(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}
func (m *mockDeviceStore) ListActiveByUser(ctx context.Context, userID string) ([]domain.DeviceRegistration, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.DeviceRegistration), args.Error(1)
}
func (m *mockDeviceStore) ListByUser(ctx context.Context, userID string) ([]domain.DeviceRegistration, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.DeviceRegistration), args.Error(1)
}
func (m *mockDeviceStore) DeleteStale(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

type mockProvisioner struct{ mock.Mock }

func (m *mockProvisioner) CreateEndpoint(ctx context.Context, platform, token string) (string, error) {
	args := m.Called(ctx, platform, token)
	return args.String(0), args.Error(1)
}

// --- helpers ---

const validToken = "fcm-token-abcdef-0123456789"

func validReq() domain.RegisterDeviceRequest {
	return domain.RegisterDeviceRequest{Token: validToken, Platform: "android", AppVersion: "2.1.0"}
}

func fixedClock(t *testing.T, at time.Time) quartz.Clock {
	t.Helper()
	clk := quartz.NewMock(t)
	clk.Set(at)
	return clk
}

// --- tests ---

func TestRegister_CreatesNewRegistration(t *testing.T) {
	store := new(mockDeviceStore)
	prov := new(mockProvisioner)
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	svc := NewService(store, prov, fixedClock(t, now))

	store.On("GetByToken", mock.Anything, validToken).Return(nil, domain.ErrNotFound)
	prov.On("CreateEndpoint", mock.Anything, "android", validToken).Return("arn:aws:sns:endpoint/1", nil)
	store.On("PutIfAbsent", mock.Anything, mock.Anything).Return(nil)

	d, err := svc.Register(context.Background(), "u1", validReq())
	require.NoError(t, err)
	assert.Equal(t, "u1", d.UserID)
	assert.Equal(t, validToken, d.Token)
	assert.Equal(t, "arn:aws:sns:endpoint/1", d.EndpointARN)
	assert.True(t, d.Enable)
	assert.Equal(t, now, d.LastUsedAt)
	store.AssertExpectations(t)
}

func TestRegister_MalformedTokenNeverReachesStore(t *testing.T) {
	store := new(mockDeviceStore)
	svc := NewService(store, nil, quartz.NewMock(t))

	req := validReq()
	req.Token = "short"
	_, err := svc.Register(context.Background(), "u1", req)
	require.ErrorIs(t, err, domain.ErrBadRequest)

	req = validReq()
	req.Platform = "blackberry"
	_, err = svc.Register(context.Background(), "u1", req)
	require.ErrorIs(t, err, domain.ErrBadRequest)

	store.AssertNotCalled(t, "GetByToken", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "PutIfAbsent", mock.Anything, mock.Anything)
}

func TestRegister_ClaimsTokenFromPreviousOwner(t *testing.T) {
	store := new(mockDeviceStore)
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	svc := NewService(store, nil, fixedClock(t, now))

	existing := &domain.DeviceRegistration{
		DeviceID:    "d1",
		UserID:      "old-user",
		Token:       validToken,
		Platform:    "android",
		EndpointARN: "arn:aws:sns:endpoint/1",
		Enable:      false,
	}
	store.On("GetByToken", mock.Anything, validToken).Return(existing, nil)
	store.On("Update", mock.Anything, validToken, mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["user_id"] == "new-user" && u["enable"] == true
	})).Return(nil)

	d, err := svc.Register(context.Background(), "new-user", validReq())
	require.NoError(t, err)
	assert.Equal(t, "new-user", d.UserID)
	assert.Equal(t, "d1", d.DeviceID, "the row itself survives the claim")
	assert.True(t, d.Enable)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "PutIfAbsent", mock.Anything, mock.Anything)
}

func TestRegister_CreateRaceRetriesAsUpdate(t *testing.T) {
	store := new(mockDeviceStore)
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	svc := NewService(store, nil, fixedClock(t, now))

	winner := &domain.DeviceRegistration{DeviceID: "d9", UserID: "other", Token: validToken, EndpointARN: "arn:x"}

	store.On("GetByToken", mock.Anything, validToken).Return(nil, domain.ErrNotFound).Once()
	store.On("PutIfAbsent", mock.Anything, mock.Anything).Return(domain.ErrConflict)
	store.On("GetByToken", mock.Anything, validToken).Return(winner, nil).Once()
	store.On("Update", mock.Anything, validToken, mock.Anything).Return(nil)

	d, err := svc.Register(context.Background(), "u1", validReq())
	require.NoError(t, err)
	assert.Equal(t, "u1", d.UserID)
	store.AssertExpectations(t)
}

func TestDeactivateAll_SkipsAlreadyInactive(t *testing.T) {
	store := new(mockDeviceStore)
	svc := NewService(store, nil, quartz.NewMock(t))

	store.On("ListByUser", mock.Anything, "u1").Return([]domain.DeviceRegistration{
		{Token: "t-active-1", Enable: true},
		{Token: "t-inactive", Enable: false},
		{Token: "t-active-2", Enable: true},
	}, nil)
	store.On("Deactivate", mock.Anything, "t-active-1").Return(nil)
	store.On("Deactivate", mock.Anything, "t-active-2").Return(nil)

	require.NoError(t, svc.DeactivateAll(context.Background(), "u1"))
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Deactivate", mock.Anything, "t-inactive")
}

func TestReclaimStale_UsesRetentionCutoff(t *testing.T) {
	store := new(mockDeviceStore)
	now := time.Date(2025, 3, 31, 6, 0, 0, 0, time.UTC)
	svc := NewService(store, nil, fixedClock(t, now))

	store.On("DeleteStale", mock.Anything, now.AddDate(0, 0, -30)).Return(4, nil)

	n, err := svc.ReclaimStale(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	store.AssertExpectations(t)
}

func TestReclaimStale_RejectsNonPositiveRetention(t *testing.T) {
	store := new(mockDeviceStore)
	svc := NewService(store, nil, quartz.NewMock(t))

	_, err := svc.ReclaimStale(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	store.AssertNotCalled(t, "DeleteStale", mock.Anything, mock.Anything)
}
