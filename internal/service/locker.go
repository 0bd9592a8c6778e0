package service

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	customError "github.com/credium/settlement-engine/pkg/errors"
)

// CascadeLocker serializes settlement cascades per installment. Two
// concurrent payments against the same installment would otherwise both read
// the pre-payment total and one recomputation would be lost.
type CascadeLocker interface {
	// Acquire blocks briefly for the installment's lock and returns a release
	// function. Failing to obtain the lock is a consistency conflict: the
	// caller retries once with fresh state.
	Acquire(ctx context.Context, installmentID uuid.UUID) (func(), error)
}

type redisCascadeLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewRedisCascadeLocker builds a Redis-backed locker. The TTL bounds how long
// a crashed cascade can leave an installment locked.
func NewRedisCascadeLocker(rdb *redis.Client, ttl time.Duration) CascadeLocker {
	return &redisCascadeLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
	}
}

func (l *redisCascadeLocker) Acquire(ctx context.Context, installmentID uuid.UUID) (func(), error) {
	lock, err := l.client.Obtain(ctx, "settlement:installment:"+installmentID.String(), l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 3),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, customError.WrapConsistencyConflict(installmentID.String())
	}
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}

	return func() {
		// Release must run even when the request context is already canceled.
		_ = lock.Release(context.WithoutCancel(ctx))
	}, nil
}

// NoopLocker skips locking. Only suitable for single-writer setups such as
// local development without Redis.
type NoopLocker struct{}

func (NoopLocker) Acquire(ctx context.Context, installmentID uuid.UUID) (func(), error) {
	return func() {}, nil
}
