package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
)

const defaultLockTTL = 30 * time.Minute

// Lock keeps a sweep cycle exclusive across replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type leaseObtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// RedisLock holds a single-attempt redislock lease for one sweep cycle.
// Release is a compare-and-delete, so a lease that expired and was taken by
// another replica is left alone.
type RedisLock struct {
	client leaseObtainer
	key    string
	ttl    time.Duration
	lease  *redislock.Lock
}

func NewRedisLock(client leaseObtainer, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("lock client required")
	}
	if key == "" {
		return nil, errors.New("lock key required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	lease, err := l.client.Obtain(ctx, l.key, l.ttl, nil)
	switch {
	case errors.Is(err, redislock.ErrNotObtained):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("acquire sweep lock: %w", err)
	}
	l.lease = lease
	return true, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	lease := l.lease
	if lease == nil {
		return nil
	}
	l.lease = nil
	if err := lease.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return fmt.Errorf("release sweep lock: %w", err)
	}
	return nil
}

// LocalLock serves single-process deployments without Redis.
type LocalLock struct {
	held chan struct{}
}

func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(chan struct{}, 1)}
}

func (l *LocalLock) Acquire(context.Context) (bool, error) {
	select {
	case l.held <- struct{}{}:
		return true, nil
	default:
		return false, nil
	}
}

func (l *LocalLock) Release(context.Context) error {
	select {
	case <-l.held:
	default:
	}
	return nil
}
