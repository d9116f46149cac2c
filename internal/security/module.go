package security

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/apex/internal/pkg/clock"
	"github.com/shandysiswandi/apex/internal/pkg/config"
	"github.com/shandysiswandi/apex/internal/pkg/goroutine"
	"github.com/shandysiswandi/apex/internal/pkg/hash"
	"github.com/shandysiswandi/apex/internal/pkg/idempotency"
	"github.com/shandysiswandi/apex/internal/pkg/instrument"
	"github.com/shandysiswandi/apex/internal/pkg/messaging"
	"github.com/shandysiswandi/apex/internal/pkg/mfa"
	"github.com/shandysiswandi/apex/internal/pkg/otp"
	"github.com/shandysiswandi/apex/internal/pkg/router"
	"github.com/shandysiswandi/apex/internal/pkg/uid"
	"github.com/shandysiswandi/apex/internal/pkg/validator"
	"github.com/shandysiswandi/apex/internal/security/inbound"
	"github.com/shandysiswandi/apex/internal/security/outbound/cache"
	"github.com/shandysiswandi/apex/internal/security/outbound/db"
	"github.com/shandysiswandi/apex/internal/security/outbound/mq"
	"github.com/shandysiswandi/apex/internal/security/usecase"
)

type Dependency struct {
	Ctx          context.Context            `validate:"required"`
	DBConn       *pgxpool.Pool              `validate:"required"`
	CacheConn    redis.UniversalClient      `validate:"required"`
	Goroutine    *goroutine.Manager         `validate:"required"`
	Router       *router.Router             `validate:"required"`
	Idempotency  idempotency.Idempotency    `validate:"required"`
	Messaging    messaging.Messaging        `validate:"required"`
	Config       config.Config              `validate:"required"`
	Instrument   instrument.Instrumentation `validate:"required"`
	UID          uid.NumberID               `validate:"required"`
	UUID         uid.StringID               `validate:"required"`
	HMAC         hash.Hash                  `validate:"required"`
	MFAEncryptor mfa.Encryptor              `validate:"required"`
	Clock        clock.Clocker              `validate:"required"`
	Totp         otp.OTP                    `validate:"required"`
	Validator    validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoDB := db.NewDB(dep.DBConn, dep.Instrument)
	repoCache := cache.NewAttemptLimiter(dep.CacheConn, dep.Config, dep.Instrument)
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:        repoDB,
		RepoCache:     repoCache,
		RepoMessaging: repoMsg,
		Idempotency:   dep.Idempotency,
		Validator:     dep.Validator,
		Config:        dep.Config,
		HMAC:          dep.HMAC,
		MFAEncryptor:  dep.MFAEncryptor,
		UID:           dep.UID,
		Totp:          dep.Totp,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, dep.Config, uc)
	inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)

	return nil
}
