// Package cache keeps short-lived security state in Redis.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/apex/internal/pkg/config"
	"github.com/shandysiswandi/apex/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	keyPrefix = "security:mfa_attempts:"

	defaultMaxAttempts = 5
	defaultLockout     = 15 * time.Minute
)

// AttemptLimiter counts failed code submissions per user. The first failure
// opens a window of lockout length; reaching maxAttempts inside it locks the
// user until the window expires.
type AttemptLimiter struct {
	client      redis.UniversalClient
	ins         instrument.Instrumentation
	maxAttempts int64
	lockout     time.Duration
}

func NewAttemptLimiter(client redis.UniversalClient, cfg config.Config, ins instrument.Instrumentation) *AttemptLimiter {
	l := &AttemptLimiter{
		client:      client,
		ins:         ins,
		maxAttempts: defaultMaxAttempts,
		lockout:     defaultLockout,
	}

	if cfg != nil {
		if n := cfg.GetInt64("mfa.max_attempts"); n > 0 {
			l.maxAttempts = n
		}
		if d := cfg.GetMinute("mfa.lockout_minutes"); d > 0 {
			l.lockout = d
		}
	}

	return l
}

func (l *AttemptLimiter) key(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

func (l *AttemptLimiter) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return l.ins.Tracer("security.outbound.cache").Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (l *AttemptLimiter) IsLocked(ctx context.Context, userID int64) (_ bool, err error) {
	ctx, span := l.startSpan(ctx, "IsLocked")
	defer func() { endSpan(span, err) }()

	n, err := l.client.Get(ctx, l.key(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return n >= l.maxAttempts, nil
}

// RecordFailure adds one failure and reports whether the user is now locked.
func (l *AttemptLimiter) RecordFailure(ctx context.Context, userID int64) (_ bool, err error) {
	ctx, span := l.startSpan(ctx, "RecordFailure")
	defer func() { endSpan(span, err) }()

	key := l.key(userID)

	var incr *redis.IntCmd
	_, err = l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.ExpireNX(ctx, key, l.lockout)
		return nil
	})
	if err != nil {
		return false, err
	}

	return incr.Val() >= l.maxAttempts, nil
}

func (l *AttemptLimiter) Reset(ctx context.Context, userID int64) (err error) {
	ctx, span := l.startSpan(ctx, "Reset")
	defer func() { endSpan(span, err) }()

	err = l.client.Del(ctx, l.key(userID)).Err()
	return err
}
