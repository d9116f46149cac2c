package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/apex/internal/pkg/goerror"
	"github.com/shandysiswandi/apex/internal/security/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUsecase_MFADisable(t *testing.T) {
	t.Run("requires session", func(t *testing.T) {
		h := newHarness(t)
		assert.True(t, goerror.HasCode(h.uc.MFADisable(context.Background()), goerror.CodeUnauthorized))
	})

	t.Run("clears enrolment and devices", func(t *testing.T) {
		h := newHarness(t)
		h.db.On("DisableUserMFA", mock.Anything, testUserID).Return(int64(2), nil).Once()
		h.cache.On("Reset", mock.Anything, testUserID).Return(nil).Once()

		require.NoError(t, h.uc.MFADisable(authCtx()))

		events := h.events(t)
		require.Len(t, events, 1)
		assert.Equal(t, entity.EventMFADisabled, events[0].Kind)
		assert.EqualValues(t, 2, events[0].Payload["removed_devices"])
		assert.Equal(t, testUserID, events[0].UserID)
		assert.True(t, events[0].OccurredAt.Equal(testNow))
	})

	t.Run("storage failure", func(t *testing.T) {
		h := newHarness(t)
		h.db.On("DisableUserMFA", mock.Anything, testUserID).Return(int64(0), errors.New("db down")).Once()

		assert.True(t, goerror.HasCode(h.uc.MFADisable(authCtx()), goerror.CodeInternal))
		assert.Empty(t, h.events(t))
	})
}

func TestUsecase_MFAStatus(t *testing.T) {
	h := newHarness(t)
	h.uc.trustedDeviceTTL = 24 * time.Hour

	h.db.On("GetUserMFA", mock.Anything, testUserID).
		Return(&entity.UserMFA{UserID: testUserID, Secret: []byte{1}}, nil).Once()
	h.db.On("ListTrustedDevices", mock.Anything, testUserID).Return([]entity.TrustedDevice{
		{ID: 1, UserID: testUserID, DeviceHash: h.deviceHash(t), Label: "Firefox", LastSeenAt: testNow},
		{ID: 2, UserID: testUserID, DeviceHash: "other", Label: "Phone", LastSeenAt: testNow.Add(-48 * time.Hour)},
	}, nil).Once()

	out, err := h.uc.MFAStatus(deviceCtx())
	require.NoError(t, err)

	assert.False(t, out.Enabled)
	assert.True(t, out.PendingSetup)
	require.Len(t, out.Devices, 2)
	assert.True(t, out.Devices[0].Current)
	assert.True(t, out.Devices[0].Active)
	assert.False(t, out.Devices[1].Current)
	assert.False(t, out.Devices[1].Active)
}

func TestUsecase_TrustedDeviceList(t *testing.T) {
	t.Run("no current device without id", func(t *testing.T) {
		h := newHarness(t)
		h.db.On("ListTrustedDevices", mock.Anything, testUserID).Return([]entity.TrustedDevice{
			{ID: 1, UserID: testUserID, DeviceHash: h.deviceHash(t), LastSeenAt: testNow},
		}, nil).Once()

		devices, err := h.uc.TrustedDeviceList(authCtx())
		require.NoError(t, err)
		require.Len(t, devices, 1)
		assert.False(t, devices[0].Current)
		assert.True(t, devices[0].Active)
	})

	t.Run("storage failure", func(t *testing.T) {
		h := newHarness(t)
		h.db.On("ListTrustedDevices", mock.Anything, testUserID).Return(nil, errors.New("db down")).Once()

		_, err := h.uc.TrustedDeviceList(authCtx())
		assert.True(t, goerror.HasCode(err, goerror.CodeInternal))
	})
}

func TestUsecase_TrustedDeviceRemove(t *testing.T) {
	t.Run("missing id", func(t *testing.T) {
		h := newHarness(t)

		err := h.uc.TrustedDeviceRemove(authCtx(), TrustedDeviceRemoveInput{})
		require.Error(t, err)

		var gerr *goerror.Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, goerror.CodeInvalidInput, gerr.Code())
		assert.Equal(t, map[string]string{"id": "Missing device."}, gerr.Fields())
	})

	t.Run("removes own device", func(t *testing.T) {
		h := newHarness(t)
		h.db.On("DeleteTrustedDevice", mock.Anything, int64(12), testUserID).Return(true, nil).Once()

		require.NoError(t, h.uc.TrustedDeviceRemove(authCtx(), TrustedDeviceRemoveInput{ID: 12}))
		assert.Equal(t, []entity.EventKind{entity.EventTrustedDeviceRemoved}, kinds(h.events(t)))
	})

	t.Run("unknown device is a no-op", func(t *testing.T) {
		h := newHarness(t)
		h.db.On("DeleteTrustedDevice", mock.Anything, int64(12), testUserID).Return(false, nil).Once()

		require.NoError(t, h.uc.TrustedDeviceRemove(authCtx(), TrustedDeviceRemoveInput{ID: 12}))
		assert.Empty(t, h.events(t))
	})
}
