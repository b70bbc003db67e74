package drafts

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
)

// ErrLockBusy is returned when another request holds the draft lock.
var ErrLockBusy = errors.New("draft is busy")

// Locker serializes mutations of a single draft.
type Locker interface {
	Lock(ctx context.Context, draftID string) (release func(context.Context) error, err error)
}

type lockObtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
	DraftLockKey(draftID string) string
}

// RedisLocker holds a redislock lease for the duration of one mutation.
type RedisLocker struct {
	client  lockObtainer
	ttl     time.Duration
	retries int
	wait    time.Duration
}

func NewRedisLocker(client lockObtainer, ttl time.Duration, retries int, wait time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, retries: retries, wait: wait}
}

func (l *RedisLocker) Lock(ctx context.Context, draftID string) (func(context.Context) error, error) {
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.wait), l.retries),
	}
	lock, err := l.client.Obtain(ctx, l.client.DraftLockKey(draftID), l.ttl, opts)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrLockBusy
		}
		return nil, err
	}
	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			return nil
		}
		return err
	}, nil
}

// MutexLocker is the in-process Locker used with MemoryStore. Entries live
// only while some request holds or waits for the draft.
type MutexLocker struct {
	mu    sync.Mutex
	locks map[string]*draftMutex
}

type draftMutex struct {
	held chan struct{}
	refs int
}

func NewMutexLocker() *MutexLocker {
	return &MutexLocker{locks: map[string]*draftMutex{}}
}

func (l *MutexLocker) Lock(ctx context.Context, draftID string) (func(context.Context) error, error) {
	l.mu.Lock()
	m, ok := l.locks[draftID]
	if !ok {
		m = &draftMutex{held: make(chan struct{}, 1)}
		l.locks[draftID] = m
	}
	m.refs++
	l.mu.Unlock()

	select {
	case m.held <- struct{}{}:
	case <-ctx.Done():
		l.drop(draftID, m)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-m.held
			l.drop(draftID, m)
		})
		return nil
	}, nil
}

func (l *MutexLocker) drop(draftID string, m *draftMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m.refs--; m.refs == 0 {
		delete(l.locks, draftID)
	}
}
