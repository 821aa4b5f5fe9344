// Package registry owns the device registration lifecycle: claiming a
// destination token for the authenticated user, listing the active endpoints
// for fan-out, soft-deleting on logout and reclaiming long-inactive rows.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/course-remind/internal/domain"
	"github.com/course-remind/internal/pkg/id"
	"github.com/course-remind/internal/pkg/validate"
)

type Service interface {
	// Register claims the token for userID. Postcondition: exactly one
	// active owner for the token — if another user held it, ownership moves
	// to the new registrant. Calling twice with identical input is a no-op
	// beyond timestamp refresh.
	Register(ctx context.Context, userID string, req domain.RegisterDeviceRequest) (*domain.DeviceRegistration, error)
	ListActive(ctx context.Context, userID string) ([]domain.DeviceRegistration, error)
	ListAll(ctx context.Context, userID string) ([]domain.DeviceRegistration, error)
	Deactivate(ctx context.Context, token string) error
	DeactivateAll(ctx context.Context, userID string) error
	// ReclaimStale hard-deletes registrations inactive for more than
	// olderThanDays. Active rows are never touched regardless of age.
	ReclaimStale(ctx context.Context, olderThanDays int) (int, error)
}

type deviceStore interface {
	GetByToken(ctx context.Context, token string) (*domain.DeviceRegistration, error)
	PutIfAbsent(ctx context.Context, d *domain.DeviceRegistration) error
	Update(ctx context.Context, token string, updates map[string]interface{}) error
	Deactivate(ctx context.Context, token string) error
	ListActiveByUser(ctx context.Context, userID string) ([]domain.DeviceRegistration, error)
	ListByUser(ctx context.Context, userID string) ([]domain.DeviceRegistration, error)
	DeleteStale(ctx context.Context, cutoff time.Time) (int, error)
}

type service struct {
	repo      deviceStore
	endpoints endpointProvisioner
	clock     quartz.Clock
}

// endpointProvisioner creates the push-transport endpoint for a token.
// Provisioning is best effort: a registration without an endpoint is kept as
// a legacy row and surfaces in diagnostics instead of failing the register.
type endpointProvisioner interface {
	CreateEndpoint(ctx context.Context, platform, token string) (string, error)
}

func NewService(repo deviceStore, endpoints endpointProvisioner, clk quartz.Clock) Service {
	if clk == nil {
		clk = quartz.NewReal()
	}
	return &service{repo: repo, endpoints: endpoints, clock: clk}
}

func (s *service) Register(ctx context.Context, userID string, req domain.RegisterDeviceRequest) (*domain.DeviceRegistration, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	req.Platform = strings.ToLower(req.Platform)

	existing, err := s.repo.GetByToken(ctx, req.Token)
	switch {
	case err == nil:
		return s.claim(ctx, userID, req, existing)
	case errors.Is(err, domain.ErrNotFound):
		// fallthrough to create
	default:
		return nil, err
	}

	now := s.clock.Now().UTC()
	d := &domain.DeviceRegistration{
		DeviceID:   id.New(),
		UserID:     userID,
		Token:      req.Token,
		Platform:   req.Platform,
		DeviceUUID: req.DeviceUUID,
		AppVersion: req.AppVersion,
		Enable:     true,
		LastUsedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	d.EndpointARN = s.provision(ctx, req.Platform, req.Token)

	if err := s.repo.PutIfAbsent(ctx, d); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Lost the create race: another registration claimed the token
			// between our read and write. Resolve by updating instead.
			cur, gerr := s.repo.GetByToken(ctx, req.Token)
			if gerr != nil {
				return nil, gerr
			}
			return s.claim(ctx, userID, req, cur)
		}
		return nil, err
	}
	return d, nil
}

// claim reassigns an existing token row to userID and refreshes its
// metadata. The token follows the physical device, so the previous owner —
// if any — simply loses the endpoint.
func (s *service) claim(ctx context.Context, userID string, req domain.RegisterDeviceRequest, existing *domain.DeviceRegistration) (*domain.DeviceRegistration, error) {
	now := s.clock.Now().UTC()
	updates := map[string]interface{}{
		"user_id":      userID,
		"platform":     req.Platform,
		"enable":       true,
		"last_used_at": now.Format(time.RFC3339),
	}
	if req.DeviceUUID != "" {
		updates["device_uuid"] = req.DeviceUUID
	}
	if req.AppVersion != "" {
		updates["app_version"] = req.AppVersion
	}
	if existing.Legacy() {
		if arn := s.provision(ctx, req.Platform, req.Token); arn != "" {
			updates["endpoint_arn"] = arn
			existing.EndpointARN = arn
		}
	}
	if err := s.repo.Update(ctx, req.Token, updates); err != nil {
		return nil, err
	}

	claimed := *existing
	claimed.UserID = userID
	claimed.Platform = req.Platform
	claimed.Enable = true
	claimed.LastUsedAt = now
	claimed.UpdatedAt = now
	if req.DeviceUUID != "" {
		claimed.DeviceUUID = req.DeviceUUID
	}
	if req.AppVersion != "" {
		claimed.AppVersion = req.AppVersion
	}
	return &claimed, nil
}

func (s *service) provision(ctx context.Context, platform, token string) string {
	if s.endpoints == nil {
		return ""
	}
	arn, err := s.endpoints.CreateEndpoint(ctx, platform, token)
	if err != nil {
		slog.Warn("could not provision push endpoint", "platform", platform, "err", err)
		return ""
	}
	return arn
}

func (s *service) ListActive(ctx context.Context, userID string) ([]domain.DeviceRegistration, error) {
	return s.repo.ListActiveByUser(ctx, userID)
}

func (s *service) ListAll(ctx context.Context, userID string) ([]domain.DeviceRegistration, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) Deactivate(ctx context.Context, token string) error {
	return s.repo.Deactivate(ctx, token)
}

func (s *service) DeactivateAll(ctx context.Context, userID string) error {
	devices, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, d := range devices {
		if !d.Enable {
			continue
		}
		if err := s.repo.Deactivate(ctx, d.Token); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) ReclaimStale(ctx context.Context, olderThanDays int) (int, error) {
	if olderThanDays <= 0 {
		return 0, fmt.Errorf("retention must be positive: %w", domain.ErrBadRequest)
	}
	cutoff := s.clock.Now().UTC().AddDate(0, 0, -olderThanDays)
	return s.repo.DeleteStale(ctx, cutoff)
}
