package security_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/apex/internal/pkg/clock"
	"github.com/shandysiswandi/apex/internal/pkg/config"
	"github.com/shandysiswandi/apex/internal/pkg/goroutine"
	"github.com/shandysiswandi/apex/internal/pkg/hash"
	"github.com/shandysiswandi/apex/internal/pkg/idempotency"
	"github.com/shandysiswandi/apex/internal/pkg/instrument"
	"github.com/shandysiswandi/apex/internal/pkg/jwt"
	"github.com/shandysiswandi/apex/internal/pkg/messaging"
	"github.com/shandysiswandi/apex/internal/pkg/mfa"
	"github.com/shandysiswandi/apex/internal/pkg/otp"
	"github.com/shandysiswandi/apex/internal/pkg/router"
	"github.com/shandysiswandi/apex/internal/pkg/testkit"
	"github.com/shandysiswandi/apex/internal/pkg/uid"
	"github.com/shandysiswandi/apex/internal/pkg/validator"
	"github.com/shandysiswandi/apex/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const moduleConfig = `
mfa:
  totp:
    window: 1
  max_attempts: 3
  lockout_minutes: 15
  trusted_device_ttl_days: 30
  rate_limit:
    per_second: 50
    burst: 50
modules:
  security:
    consumer_names: [security-audit]
    consumer_concurrency: 2
`

type successEnvelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	Message string            `json:"message"`
	Error   map[string]string `json:"error"`
}

// memoryBus is a process-local messaging.Messaging. Each destination is a
// buffered channel so publishes made before a consumer starts are kept.
type memoryBus struct {
	mu     sync.Mutex
	queues map[string]chan []byte
}

type memoryMessage struct{ body []byte }

func (m memoryMessage) Body() []byte               { return m.body }
func (m memoryMessage) Key() []byte                { return nil }
func (m memoryMessage) Header(string) string       { return "" }
func (m memoryMessage) Ack(context.Context) error  { return nil }
func (m memoryMessage) Nack(context.Context) error { return nil }

func (b *memoryBus) queue(name string) chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.queues == nil {
		b.queues = make(map[string]chan []byte)
	}
	q, ok := b.queues[name]
	if !ok {
		q = make(chan []byte, 128)
		b.queues[name] = q
	}

	return q
}

func (b *memoryBus) Publish(ctx context.Context, destination string, msg messaging.OutgoingMessage) error {
	if destination == "" {
		return messaging.ErrDestinationRequired
	}

	select {
	case b.queue(destination) <- msg.Body:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *memoryBus) Consume(ctx context.Context, source string, handler messaging.Handler, _ ...messaging.ConsumeOption) error {
	q := b.queue(source)
	for {
		select {
		case <-ctx.Done():
			return nil
		case body := <-q:
			_ = handler(ctx, memoryMessage{body: body}) //nolint:errcheck // handler logs its own failures
		}
	}
}

func (b *memoryBus) Close() error { return nil }

type testServer struct {
	url   string
	token string
	totp  otp.OTP
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	pool := testkit.Postgres(t)
	rdb := testkit.Redis(t)

	cfg, err := config.NewViperFromBytes("yaml", []byte(moduleConfig))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	snow, err := uid.NewSnowflake(1)
	require.NoError(t, err)

	clk := clock.New()
	uuid := uid.NewUUID()
	ins := instrument.NewNoop()
	totp := otp.NewTOTP(otp.Config{Issuer: "Apex Financial", Window: 1})

	signer, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte("module-test-secret"),
		Issuer:    "apex",
		Audiences: []string{"apex-web"},
		TTL:       15 * time.Minute,
		Clock:     clk,
		UUID:      uuid,
	})
	require.NoError(t, err)

	token, err := signer.Generate(4242, "ayu@apex.test")
	require.NoError(t, err)

	r := router.NewRouter(router.Config{Config: cfg, UUID: uuid, JWT: signer, Instrument: ins})

	ctx, cancel := context.WithCancel(context.Background())
	routine := goroutine.NewManager(32)
	t.Cleanup(func() {
		cancel()
		_ = routine.Wait() //nolint:errcheck // consumers stop on cancel
	})

	err = security.New(security.Dependency{
		Ctx:          ctx,
		DBConn:       pool,
		CacheConn:    rdb,
		Goroutine:    routine,
		Router:       r,
		Idempotency:  idempotency.New(rdb, "idempotency:"),
		Messaging:    &memoryBus{},
		Config:       cfg,
		Instrument:   ins,
		UID:          snow,
		UUID:         uuid,
		HMAC:         hash.NewHMACSHA256("module-test-pepper"),
		MFAEncryptor: mfa.NewAESGCMEncryptor(mfa.StaticKeyProvider{KeyBytes: []byte("0123456789abcdef0123456789abcdef")}),
		Clock:        clk,
		Totp:         totp,
		Validator:    v,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testServer{url: srv.URL, token: token, totp: totp}
}

func (s *testServer) doJSON(t *testing.T, method, path string, payload any, deviceID string) (int, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		require.NoError(t, json.NewEncoder(buf).Encode(payload))
		body = buf
	}

	req, err := http.NewRequest(method, strings.TrimRight(s.url, "/")+path, body)
	require.NoError(t, err)

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 Safari/605.1.15")
	if deviceID != "" {
		req.Header.Set(router.HeaderDeviceID, deviceID)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, raw
}

func decodeSuccess(t *testing.T, body []byte, out any) {
	t.Helper()

	var env successEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
}

func decodeError(t *testing.T, body []byte) errorEnvelope {
	t.Helper()

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func (s *testServer) currentCode(t *testing.T, secret string) string {
	t.Helper()

	code, err := s.totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

func TestSecurityModule_MFALifecycle(t *testing.T) {
	srv := newTestServer(t)

	const laptop = "dev-laptop-01"
	const phone = "dev-phone-02"

	// Requirement before enrolment: nothing to ask for.
	status, body := srv.doJSON(t, http.MethodGet, "/api/v1/security/mfa/requirement", nil, laptop)
	require.Equal(t, http.StatusOK, status, string(body))
	var req struct {
		Required      bool `json:"required"`
		Enabled       bool `json:"enabled"`
		DeviceTrusted bool `json:"device_trusted"`
	}
	decodeSuccess(t, body, &req)
	assert.False(t, req.Required)
	assert.False(t, req.Enabled)

	// Setup
	status, body = srv.doJSON(t, http.MethodPost, "/api/v1/security/mfa/setup", nil, laptop)
	require.Equal(t, http.StatusOK, status, string(body))
	var setup struct {
		Secret string `json:"secret"`
		URI    string `json:"uri"`
	}
	decodeSuccess(t, body, &setup)
	require.NotEmpty(t, setup.Secret)
	assert.True(t, strings.HasPrefix(setup.URI, "otpauth://totp/"))

	status, body = srv.doJSON(t, http.MethodGet, "/api/v1/security/mfa", nil, laptop)
	require.Equal(t, http.StatusOK, status, string(body))
	var st struct {
		Enabled      bool `json:"enabled"`
		PendingSetup bool `json:"pending_setup"`
		Devices      []struct {
			ID      string `json:"id"`
			Label   string `json:"label"`
			Current bool   `json:"current"`
		} `json:"devices"`
	}
	decodeSuccess(t, body, &st)
	assert.False(t, st.Enabled)
	assert.True(t, st.PendingSetup)

	// Confirm with a wrong code is rejected.
	status, body = srv.doJSON(t, http.MethodPost, "/api/v1/security/mfa/confirm", map[string]any{"code": "000000x"}, laptop)
	require.Equal(t, http.StatusUnauthorized, status, string(body))
	assert.Equal(t, "Invalid code.", decodeError(t, body).Message)

	// Confirm trusts the enrolling device.
	status, body = srv.doJSON(t, http.MethodPost, "/api/v1/security/mfa/confirm", map[string]any{
		"code":         srv.currentCode(t, setup.Secret),
		"device_label": "Work laptop",
	}, laptop)
	require.Equal(t, http.StatusOK, status, string(body))
	var confirm struct {
		Enabled       bool `json:"enabled"`
		DeviceTrusted bool `json:"device_trusted"`
	}
	decodeSuccess(t, body, &confirm)
	assert.True(t, confirm.Enabled)
	assert.True(t, confirm.DeviceTrusted)

	// A second setup is refused while enabled.
	status, _ = srv.doJSON(t, http.MethodPost, "/api/v1/security/mfa/setup", nil, laptop)
	assert.Equal(t, http.StatusConflict, status)

	// Trusted laptop skips the challenge, the phone does not.
	status, body = srv.doJSON(t, http.MethodGet, "/api/v1/security/mfa/requirement", nil, laptop)
	require.Equal(t, http.StatusOK, status, string(body))
	decodeSuccess(t, body, &req)
	assert.False(t, req.Required)
	assert.True(t, req.DeviceTrusted)

	status, body = srv.doJSON(t, http.MethodGet, "/api/v1/security/mfa/requirement", nil, phone)
	require.Equal(t, http.StatusOK, status, string(body))
	decodeSuccess(t, body, &req)
	assert.True(t, req.Required)
	assert.False(t, req.DeviceTrusted)

	// Challenge from the phone and remember it.
	status, body = srv.doJSON(t, http.MethodPost, "/api/v1/security/mfa/challenge", map[string]any{
		"code":     srv.currentCode(t, setup.Secret),
		"remember": true,
	}, phone)
	require.Equal(t, http.StatusOK, status, string(body))
	var challenge struct {
		Verified      bool `json:"verified"`
		DeviceTrusted bool `json:"device_trusted"`
	}
	decodeSuccess(t, body, &challenge)
	assert.True(t, challenge.Verified)
	assert.True(t, challenge.DeviceTrusted)

	// Devices
	status, body = srv.doJSON(t, http.MethodGet, "/api/v1/security/devices", nil, phone)
	require.Equal(t, http.StatusOK, status, string(body))
	var devices struct {
		Devices []struct {
			ID      string `json:"id"`
			Label   string `json:"label"`
			Current bool   `json:"current"`
		} `json:"devices"`
	}
	decodeSuccess(t, body, &devices)
	require.Len(t, devices.Devices, 2)

	var laptopID string
	for _, d := range devices.Devices {
		if d.Label == "Work laptop" {
			laptopID = d.ID
			assert.False(t, d.Current)
		}
	}
	require.NotEmpty(t, laptopID)

	status, _ = srv.doJSON(t, http.MethodDelete, "/api/v1/security/devices/"+laptopID, nil, phone)
	require.Equal(t, http.StatusNoContent, status)

	status, body = srv.doJSON(t, http.MethodGet, "/api/v1/security/mfa/requirement", nil, laptop)
	require.Equal(t, http.StatusOK, status, string(body))
	decodeSuccess(t, body, &req)
	assert.True(t, req.Required)

	// Disable forgets everything.
	status, _ = srv.doJSON(t, http.MethodPost, "/api/v1/security/mfa/disable", nil, phone)
	require.Equal(t, http.StatusNoContent, status)

	status, body = srv.doJSON(t, http.MethodGet, "/api/v1/security/mfa", nil, phone)
	require.Equal(t, http.StatusOK, status, string(body))
	decodeSuccess(t, body, &st)
	assert.False(t, st.Enabled)
	assert.False(t, st.PendingSetup)
	assert.Empty(t, st.Devices)

	// Audit trail arrives through the consumer.
	want := []string{
		"mfa_setup_started",
		"mfa_challenge_failed",
		"mfa_enabled",
		"device_trusted",
		"mfa_challenge_passed",
		"device_removed",
		"mfa_disabled",
	}
	assert.Eventually(t, func() bool {
		status, body := srv.doJSON(t, http.MethodGet, "/api/v1/security/events?limit=50", nil, phone)
		if status != http.StatusOK {
			return false
		}

		var events struct {
			Events []struct {
				Kind string `json:"kind"`
			} `json:"events"`
		}
		decodeSuccess(t, body, &events)

		seen := make(map[string]bool, len(events.Events))
		for _, ev := range events.Events {
			seen[ev.Kind] = true
		}
		for _, kind := range want {
			if !seen[kind] {
				return false
			}
		}
		return true
	}, 10*time.Second, 100*time.Millisecond)
}

func TestSecurityModule_Lockout(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.doJSON(t, http.MethodPost, "/api/v1/security/mfa/setup", nil, "")
	require.Equal(t, http.StatusOK, status, string(body))
	var setup struct {
		Secret string `json:"secret"`
	}
	decodeSuccess(t, body, &setup)

	status, body = srv.doJSON(t, http.MethodPost, "/api/v1/security/mfa/confirm", map[string]any{
		"code": srv.currentCode(t, setup.Secret),
	}, "")
	require.Equal(t, http.StatusOK, status, string(body))

	for range 3 {
		status, _ = srv.doJSON(t, http.MethodPost, "/api/v1/security/mfa/challenge", map[string]any{"code": "nope"}, "")
		require.Equal(t, http.StatusUnauthorized, status)
	}

	// The right code no longer helps once locked.
	status, body = srv.doJSON(t, http.MethodPost, "/api/v1/security/mfa/challenge", map[string]any{
		"code": srv.currentCode(t, setup.Secret),
	}, "")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "Too many attempts. Try again later.", decodeError(t, body).Message)
}

func TestSecurityModule_Unauthenticated(t *testing.T) {
	srv := newTestServer(t)
	srv.token = "garbage"

	status, _ := srv.doJSON(t, http.MethodGet, "/api/v1/security/mfa", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}
