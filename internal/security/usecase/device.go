package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/apex/internal/pkg/device"
	"github.com/shandysiswandi/apex/internal/pkg/goerror"
	"github.com/shandysiswandi/apex/internal/security/entity"
)

func (s *Usecase) deviceHash(ctx context.Context, deviceID string) (string, error) {
	h, err := s.hmac.Hash(deviceID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash device id", "error", err)
		return "", goerror.NewServer(err)
	}

	return string(h), nil
}

// newTrustedDevice returns nil when the request carries no device id.
func (s *Usecase) newTrustedDevice(ctx context.Context, userID int64, info device.Info) (*entity.TrustedDevice, error) {
	if info.ID == "" {
		return nil, nil
	}

	h, err := s.deviceHash(ctx, info.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()

	return &entity.TrustedDevice{
		ID:         s.uid.Generate(),
		UserID:     userID,
		DeviceHash: h,
		Label:      info.Label(),
		LastSeenAt: now,
		CreatedAt:  now,
	}, nil
}

// currentTrustedDevice looks up the caller's device. It returns nil when the
// request has no device id or the device was never trusted.
func (s *Usecase) currentTrustedDevice(ctx context.Context, userID int64) (*entity.TrustedDevice, error) {
	info := device.FromContext(ctx)
	if info.ID == "" {
		return nil, nil
	}

	h, err := s.deviceHash(ctx, info.ID)
	if err != nil {
		return nil, err
	}

	d, err := s.repoDB.GetTrustedDevice(ctx, userID, h)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get trusted device", "user_id", userID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return d, nil
}

// DeviceView is a trusted device as shown on the settings page.
type DeviceView struct {
	ID         int64
	Label      string
	LastSeenAt time.Time
	CreatedAt  time.Time
	Current    bool
	Active     bool
}

func (s *Usecase) deviceViews(ctx context.Context, userID int64) ([]DeviceView, error) {
	devices, err := s.repoDB.ListTrustedDevices(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list trusted devices", "user_id", userID, "error", err)
		return nil, goerror.NewServer(err)
	}

	var currentHash string
	if info := device.FromContext(ctx); info.ID != "" {
		if currentHash, err = s.deviceHash(ctx, info.ID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()

	return lo.Map(devices, func(d entity.TrustedDevice, _ int) DeviceView {
		return DeviceView{
			ID:         d.ID,
			Label:      d.Label,
			LastSeenAt: d.LastSeenAt,
			CreatedAt:  d.CreatedAt,
			Current:    currentHash != "" && d.DeviceHash == currentHash,
			Active:     d.IsActive(now, s.trustedDeviceTTL),
		}
	}), nil
}
