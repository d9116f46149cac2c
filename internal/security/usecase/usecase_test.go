package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shandysiswandi/apex/internal/pkg/clock"
	"github.com/shandysiswandi/apex/internal/pkg/device"
	"github.com/shandysiswandi/apex/internal/pkg/goroutine"
	"github.com/shandysiswandi/apex/internal/pkg/hash"
	"github.com/shandysiswandi/apex/internal/pkg/idempotency"
	"github.com/shandysiswandi/apex/internal/pkg/instrument"
	"github.com/shandysiswandi/apex/internal/pkg/jwt"
	"github.com/shandysiswandi/apex/internal/pkg/mfa"
	"github.com/shandysiswandi/apex/internal/pkg/otp"
	"github.com/shandysiswandi/apex/internal/pkg/validator"
	"github.com/shandysiswandi/apex/internal/security/entity"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testUserID    int64 = 7
	testDeviceID        = "dev-0f3c9a"
	testUserAgent       = "Mozilla/5.0 (Macintosh) Firefox/139.0"
)

var testNow = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

type mockRepoDB struct {
	mock.Mock
}

func (m *mockRepoDB) GetUserMFA(ctx context.Context, userID int64) (*entity.UserMFA, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).(*entity.UserMFA)
	return out, args.Error(1)
}

func (m *mockRepoDB) UpsertUserMFASecret(ctx context.Context, userID int64, secret []byte, keyVersion int16) error {
	return m.Called(ctx, userID, secret, keyVersion).Error(0)
}

func (m *mockRepoDB) EnableUserMFA(ctx context.Context, a entity.MFAActivation) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockRepoDB) DisableUserMFA(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepoDB) GetTrustedDevice(ctx context.Context, userID int64, deviceHash string) (*entity.TrustedDevice, error) {
	args := m.Called(ctx, userID, deviceHash)
	out, _ := args.Get(0).(*entity.TrustedDevice)
	return out, args.Error(1)
}

func (m *mockRepoDB) ListTrustedDevices(ctx context.Context, userID int64) ([]entity.TrustedDevice, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).([]entity.TrustedDevice)
	return out, args.Error(1)
}

func (m *mockRepoDB) UpsertTrustedDevice(ctx context.Context, d entity.TrustedDevice) error {
	return m.Called(ctx, d).Error(0)
}

func (m *mockRepoDB) TouchTrustedDevice(ctx context.Context, id, userID int64, at time.Time) error {
	return m.Called(ctx, id, userID, at).Error(0)
}

func (m *mockRepoDB) DeleteTrustedDevice(ctx context.Context, id, userID int64) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepoDB) CreateAuditEvent(ctx context.Context, ev entity.AuditEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *mockRepoDB) ListAuditEvents(ctx context.Context, userID int64, limit int) ([]entity.AuditEvent, error) {
	args := m.Called(ctx, userID, limit)
	out, _ := args.Get(0).([]entity.AuditEvent)
	return out, args.Error(1)
}

type mockRepoCache struct {
	mock.Mock
}

func (m *mockRepoCache) IsLocked(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepoCache) RecordFailure(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepoCache) Reset(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.AuditEvent
	err    error
}

func (p *recordingPublisher) PublishAuditEvent(_ context.Context, ev entity.AuditEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, ev)
	return p.err
}

// memoryIdempotency mirrors the Redis state tracker in memory.
type memoryIdempotency struct {
	mu         sync.Mutex
	states     map[string]idempotency.State
	acquireErr error
	released   []string
	completed  []string
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{states: map[string]idempotency.State{}}
}

func (m *memoryIdempotency) Acquire(_ context.Context, key string, _ time.Duration) (idempotency.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.acquireErr != nil {
		return "", m.acquireErr
	}
	if st, ok := m.states[key]; ok {
		return st, nil
	}
	m.states[key] = idempotency.StateInProgress

	return idempotency.StateNone, nil
}

func (m *memoryIdempotency) MarkCompleted(_ context.Context, key string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[key] = idempotency.StateCompleted
	m.completed = append(m.completed, key)
	return nil
}

func (m *memoryIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, key)
	m.released = append(m.released, key)
	return nil
}

func (m *memoryIdempotency) Exec(ctx context.Context, key string, fn func(context.Context) error, _ ...idempotency.Option) error {
	state, err := m.Acquire(ctx, key, 0)
	if err != nil {
		return err
	}

	switch state {
	case idempotency.StateInProgress:
		return idempotency.ErrAlreadyInProgress
	case idempotency.StateCompleted:
		return idempotency.ErrAlreadyCompleted
	}

	if err := fn(ctx); err != nil {
		return errors.Join(err, m.Release(ctx, key))
	}

	return m.MarkCompleted(ctx, key, 0)
}

type seqID struct {
	n atomic.Int64
}

func (s *seqID) Generate() int64 { return 1000 + s.n.Add(1) }

type harness struct {
	uc      *Usecase
	db      *mockRepoDB
	cache   *mockRepoCache
	pub     *recordingPublisher
	idemp   *memoryIdempotency
	routine *goroutine.Manager
	totp    *otp.TOTP
	enc     *mfa.AESGCMEncryptor
	hmac    *hash.HMACSHA256
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	h := &harness{
		db:      new(mockRepoDB),
		cache:   new(mockRepoCache),
		pub:     &recordingPublisher{},
		idemp:   newMemoryIdempotency(),
		routine: goroutine.NewManager(16),
		totp:    otp.NewTOTP(otp.Config{Issuer: "Apex Financial"}),
		enc:     mfa.NewAESGCMEncryptor(mfa.StaticKeyProvider{KeyBytes: []byte("0123456789abcdef0123456789abcdef")}),
		hmac:    hash.NewHMACSHA256("device-pepper"),
	}

	h.uc = New(Dependency{
		RepoDB:        h.db,
		RepoCache:     h.cache,
		RepoMessaging: h.pub,
		Idempotency:   h.idemp,
		Validator:     v,
		HMAC:          h.hmac,
		MFAEncryptor:  h.enc,
		UID:           &seqID{},
		Totp:          h.totp,
		Clock:         clock.NewFixed(testNow),
		Instrument:    instrument.NewNoop(),
		Goroutine:     h.routine,
	})

	t.Cleanup(func() {
		h.db.AssertExpectations(t)
		h.cache.AssertExpectations(t)
	})

	return h
}

// events waits for background publishes and returns their kinds in order of
// arrival.
func (h *harness) events(t *testing.T) []entity.AuditEvent {
	t.Helper()

	require.NoError(t, h.routine.Wait())

	h.pub.mu.Lock()
	defer h.pub.mu.Unlock()

	return append([]entity.AuditEvent(nil), h.pub.events...)
}

func kinds(events []entity.AuditEvent) []entity.EventKind {
	out := make([]entity.EventKind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func (h *harness) seal(t *testing.T, secret string) []byte {
	t.Helper()

	sealed, err := h.enc.Encrypt([]byte(secret), mfa.Scope{UserID: testUserID, Purpose: mfa.PurposeTOTPSecret})
	require.NoError(t, err)
	return sealed
}

func (h *harness) code(t *testing.T, secret string) string {
	t.Helper()

	c, err := h.totp.GenerateCode(secret, testNow)
	require.NoError(t, err)
	return c
}

func (h *harness) deviceHash(t *testing.T) string {
	t.Helper()

	b, err := h.hmac.Hash(testDeviceID)
	require.NoError(t, err)
	return string(b)
}

func authCtx() context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{UserID: testUserID, UserEmail: "ana@apex.test"})
}

func deviceCtx() context.Context {
	return device.WithInfo(authCtx(), device.Info{ID: testDeviceID, UserAgent: testUserAgent, IP: "203.0.113.9"})
}

const testSecret = "JBSWY3DPEHPK3PXP"

// wrongCode returns a well-formed code that matches no step in the window.
func (h *harness) wrongCode(t *testing.T, secret string) string {
	t.Helper()

	valid := map[string]bool{}
	for _, at := range []time.Time{testNow.Add(-30 * time.Second), testNow, testNow.Add(30 * time.Second)} {
		c, err := h.totp.GenerateCode(secret, at)
		require.NoError(t, err)
		valid[c] = true
	}

	for _, c := range []string{"000000", "111111", "222222", "333333"} {
		if !valid[c] {
			return c
		}
	}

	t.Fatal("no wrong code available")
	return ""
}
