package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/apex/internal/pkg/clock"
	"github.com/shandysiswandi/apex/internal/pkg/config"
	"github.com/shandysiswandi/apex/internal/pkg/goerror"
	"github.com/shandysiswandi/apex/internal/pkg/goroutine"
	"github.com/shandysiswandi/apex/internal/pkg/hash"
	"github.com/shandysiswandi/apex/internal/pkg/idempotency"
	"github.com/shandysiswandi/apex/internal/pkg/instrument"
	"github.com/shandysiswandi/apex/internal/pkg/jwt"
	"github.com/shandysiswandi/apex/internal/pkg/mfa"
	"github.com/shandysiswandi/apex/internal/pkg/otp"
	"github.com/shandysiswandi/apex/internal/pkg/uid"
	"github.com/shandysiswandi/apex/internal/pkg/validator"
	"github.com/shandysiswandi/apex/internal/pkg/valueobject"
	"github.com/shandysiswandi/apex/internal/security/entity"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	currentKeyVersion int16 = 1

	defaultSetupLock      = 30 * time.Second
	defaultIdempotencyTTL = 10 * time.Minute

	msgSignIn = "Please sign in again."
)

type repoDB interface {
	GetUserMFA(ctx context.Context, userID int64) (*entity.UserMFA, error)
	UpsertUserMFASecret(ctx context.Context, userID int64, secret []byte, keyVersion int16) error
	EnableUserMFA(ctx context.Context, a entity.MFAActivation) error
	DisableUserMFA(ctx context.Context, userID int64) (removedDevices int64, err error)

	GetTrustedDevice(ctx context.Context, userID int64, deviceHash string) (*entity.TrustedDevice, error)
	ListTrustedDevices(ctx context.Context, userID int64) ([]entity.TrustedDevice, error)
	UpsertTrustedDevice(ctx context.Context, device entity.TrustedDevice) error
	TouchTrustedDevice(ctx context.Context, id, userID int64, at time.Time) error
	DeleteTrustedDevice(ctx context.Context, id, userID int64) (bool, error)

	CreateAuditEvent(ctx context.Context, ev entity.AuditEvent) error
	ListAuditEvents(ctx context.Context, userID int64, limit int) ([]entity.AuditEvent, error)
}

type repoCache interface {
	IsLocked(ctx context.Context, userID int64) (bool, error)
	RecordFailure(ctx context.Context, userID int64) (locked bool, err error)
	Reset(ctx context.Context, userID int64) error
}

type repoMessaging interface {
	PublishAuditEvent(ctx context.Context, ev entity.AuditEvent) error
}

type Usecase struct {
	repoDB        repoDB
	repoCache     repoCache
	repoMessaging repoMessaging
	idemp         idempotency.Idempotency
	validator     validator.Validator
	hmac          hash.Hash
	mfaEncryptor  mfa.Encryptor
	uid           uid.NumberID
	totp          otp.OTP
	clock         clock.Clocker
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager

	verifications    metric.Int64Counter
	trustedDeviceTTL time.Duration
	setupLock        time.Duration
	idempotencyTTL   time.Duration
}

type Dependency struct {
	RepoDB        repoDB
	RepoCache     repoCache
	RepoMessaging repoMessaging
	Idempotency   idempotency.Idempotency
	Validator     validator.Validator
	Config        config.Config
	HMAC          hash.Hash
	MFAEncryptor  mfa.Encryptor
	UID           uid.NumberID
	Totp          otp.OTP
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	uc := &Usecase{
		repoDB:         dep.RepoDB,
		repoCache:      dep.RepoCache,
		repoMessaging:  dep.RepoMessaging,
		idemp:          dep.Idempotency,
		validator:      dep.Validator,
		hmac:           dep.HMAC,
		mfaEncryptor:   dep.MFAEncryptor,
		uid:            dep.UID,
		totp:           dep.Totp,
		clock:          dep.Clock,
		ins:            dep.Instrument,
		goroutine:      dep.Goroutine,
		setupLock:      defaultSetupLock,
		idempotencyTTL: defaultIdempotencyTTL,
	}

	if dep.Config != nil {
		uc.trustedDeviceTTL = dep.Config.GetDay("mfa.trusted_device_ttl_days")
		if d := dep.Config.GetSecond("mfa.setup_lock_seconds"); d > 0 {
			uc.setupLock = d
		}
		if d := dep.Config.GetMinute("mfa.idempotency_ttl_minutes"); d > 0 {
			uc.idempotencyTTL = d
		}
	}

	counter, err := dep.Instrument.Meter("security.usecase").Int64Counter(
		"security.mfa.verifications",
		metric.WithDescription("TOTP verifications by flow and outcome"),
	)
	if err != nil {
		slog.Error("failed to create mfa verification counter", "error", err)
	}
	uc.verifications = counter

	return uc
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("security.usecase").Start(ctx, name)
}

func (s *Usecase) authenticated(ctx context.Context) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil || clm.UserID <= 0 {
		return nil, goerror.NewBusiness(msgSignIn, goerror.CodeUnauthorized)
	}

	return clm, nil
}

// getUserMFA treats a missing row as "never set up".
func (s *Usecase) getUserMFA(ctx context.Context, userID int64) (*entity.UserMFA, error) {
	m, err := s.repoDB.GetUserMFA(ctx, userID)
	if errors.Is(err, goerror.ErrNotFound) {
		return &entity.UserMFA{UserID: userID}, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user mfa", "user_id", userID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return m, nil
}

// emit publishes an audit event in the background. Publishing never fails
// the request that produced the event.
func (s *Usecase) emit(ctx context.Context, userID int64, kind entity.EventKind, payload valueobject.JSONMap) {
	ev := entity.AuditEvent{
		ID:            s.uid.Generate(),
		UserID:        userID,
		Kind:          kind,
		CorrelationID: instrument.GetCorrelationID(ctx),
		Payload:       payload,
		OccurredAt:    s.clock.Now(),
	}

	if err := s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if err := s.repoMessaging.PublishAuditEvent(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "failed to publish audit event", "user_id", userID, "kind", kind, "error", err)
			return err
		}
		return nil
	}); err != nil {
		slog.WarnContext(ctx, "audit event dropped", "user_id", userID, "kind", kind, "error", err)
	}
}
