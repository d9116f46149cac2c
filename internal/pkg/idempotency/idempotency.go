// Package idempotency guards operations that must not run twice concurrently,
// such as provisioning a new TOTP secret, with a small state machine in Redis.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrAlreadyInProgress is returned when another caller holds the key.
	ErrAlreadyInProgress = errors.New("idempotency: operation already in progress")
	// ErrAlreadyCompleted is returned when the key finished successfully within its TTL.
	ErrAlreadyCompleted = errors.New("idempotency: operation already completed")
	// ErrInvalidState is returned when the stored value is not a known state.
	ErrInvalidState = errors.New("idempotency: invalid state")
)

// State is the lifecycle of one idempotency key.
type State string

const (
	// StateNone means the caller acquired the key and may proceed.
	StateNone State = "none"
	// StateInProgress means another caller is running the operation.
	StateInProgress State = "in_progress"
	// StateCompleted means the operation already succeeded.
	StateCompleted State = "completed"
)

func (s State) String() string {
	return string(s)
}

// Idempotency runs functions at most once per key.
type Idempotency interface {
	Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error)
	MarkCompleted(ctx context.Context, key string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error
}

const (
	defaultPrefix       = "idempotency:"
	defaultLockDuration = time.Minute
	defaultStateTTL     = time.Minute
)

// StateTracker implements Idempotency on a Redis client.
type StateTracker struct {
	client redis.UniversalClient
	prefix string
}

// New returns a StateTracker storing keys under prefix. An empty prefix uses
// "idempotency:".
func New(client redis.UniversalClient, prefix string) *StateTracker {
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &StateTracker{client: client, prefix: prefix}
}

// Option tunes Exec.
type Option func(*execOptions)

type execOptions struct {
	lockDuration time.Duration
	stateTTL     time.Duration
}

// WithLockDuration bounds how long an in-progress key blocks other callers.
func WithLockDuration(d time.Duration) Option {
	return func(o *execOptions) { o.lockDuration = d }
}

// WithStateTTL sets how long a completed key is remembered.
func WithStateTTL(d time.Duration) Option {
	return func(o *execOptions) { o.stateTTL = d }
}

// Acquire sets key to in-progress if it is free and reports the state found.
func (s *StateTracker) Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error) {
	fk := s.prefix + key

	ok, err := s.client.SetNX(ctx, fk, StateInProgress.String(), lockDuration).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return StateNone, nil
	}

	current, err := s.client.Get(ctx, fk).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; one more attempt
		ok, err = s.client.SetNX(ctx, fk, StateInProgress.String(), lockDuration).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return StateNone, nil
		}
		return StateInProgress, nil
	}
	if err != nil {
		return "", err
	}

	switch State(current) {
	case StateInProgress, StateCompleted:
		return State(current), nil
	default:
		return "", ErrInvalidState
	}
}

// MarkCompleted records success for ttl.
func (s *StateTracker) MarkCompleted(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, StateCompleted.String(), ttl).Err()
}

// Release frees key so the operation can be retried.
func (s *StateTracker) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Exec runs fn if key is free. A failing fn releases the key so the caller
// can retry; a successful one marks it completed.
func (s *StateTracker) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	o := execOptions{lockDuration: defaultLockDuration, stateTTL: defaultStateTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.lockDuration <= 0 {
		o.lockDuration = defaultLockDuration
	}
	if o.stateTTL <= 0 {
		o.stateTTL = defaultStateTTL
	}

	state, err := s.Acquire(ctx, key, o.lockDuration)
	if err != nil {
		return err
	}

	switch state {
	case StateInProgress:
		return ErrAlreadyInProgress
	case StateCompleted:
		return ErrAlreadyCompleted
	}

	if err := fn(ctx); err != nil {
		return errors.Join(err, s.Release(ctx, key))
	}

	return s.MarkCompleted(ctx, key, o.stateTTL)
}
