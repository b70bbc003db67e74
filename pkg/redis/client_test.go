package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fleetshop-backend/pkg/config"
)

// fakeCommands is an in-memory stand-in for the go-redis client.
type fakeCommands struct {
	data      map[string]string
	counters  map[string]int64
	ttls      map[string]time.Duration
	expireErr error
}

func newFake() *fakeCommands {
	return &fakeCommands{data: map[string]string{}, counters: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCommands) Get(_ context.Context, k string) *redis.StringCmd {
	v, ok := f.data[k]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommands) Set(_ context.Context, k string, v any, ttl time.Duration) *redis.StatusCmd {
	f.data[k], f.ttls[k] = fmt.Sprint(v), ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) SetNX(ctx context.Context, k string, v any, ttl time.Duration) *redis.BoolCmd {
	if _, ok := f.data[k]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.Set(ctx, k, v, ttl)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeCommands) Incr(_ context.Context, k string) *redis.IntCmd {
	f.counters[k]++
	return redis.NewIntResult(f.counters[k], nil)
}

func (f *fakeCommands) ExpireNX(_ context.Context, k string, ttl time.Duration) *redis.BoolCmd {
	if f.expireErr != nil {
		return redis.NewBoolResult(false, f.expireErr)
	}
	if _, ok := f.ttls[k]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.ttls[k] = ttl
	return redis.NewBoolResult(true, nil)
}

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	c := &Client{cmd: newFake()}
	k := c.DraftKey("draft-1")

	require.NoError(t, c.Set(ctx, k, "payload", time.Minute))
	got, err := c.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, "payload", got)

	require.NoError(t, c.Del(ctx, k))
	_, err = c.Get(ctx, k)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestSetNXOnlyFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	c := &Client{cmd: newFake()}

	ok, err := c.SetNX(ctx, "k", "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "k", "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	got, _ := c.Get(ctx, "k")
	assert.Equal(t, "first", got)
}

func TestIncrWithTTLKeepsFirstExpiry(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	c := &Client{cmd: fake}

	for want := int64(1); want <= 3; want++ {
		n, err := c.IncrWithTTL(ctx, "hits", time.Duration(want)*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	assert.Equal(t, time.Minute, fake.ttls["hits"])
}

func TestIncrWithTTLSurfacesExpireFailure(t *testing.T) {
	fake := newFake()
	fake.expireErr = errors.New("READONLY")
	c := &Client{cmd: fake}

	n, err := c.IncrWithTTL(context.Background(), "hits", time.Minute)
	assert.Equal(t, int64(1), n)
	assert.ErrorContains(t, err, "READONLY")
}

func TestDisconnectedClient(t *testing.T) {
	ctx := context.Background()
	c := &Client{}

	assert.ErrorIs(t, c.Ping(ctx), errNotConnected)
	assert.ErrorIs(t, c.Set(ctx, "k", "v", 0), errNotConnected)
	_, err := c.IncrWithTTL(ctx, "k", time.Second)
	assert.ErrorIs(t, err, errNotConnected)
	_, err = c.Obtain(ctx, "k", time.Second, nil)
	assert.ErrorIs(t, err, errNotConnected)
	assert.NoError(t, c.Close())
}

func TestKeys(t *testing.T) {
	c := &Client{}
	cases := map[string]string{
		c.IdempotencyKey("scope", "id"): "fs:idempotency:scope:id",
		c.IdempotencyKey("scope", " "):  "fs:idempotency:scope",
		c.AccessSessionKey("jti"):       "fs:session:access:jti",
		c.DraftKey("abc"):               "fs:draft:abc",
		c.DraftLockKey("abc"):           "fs:lock:draft:abc",
		c.SweepLockKey("inventory"):     "fs:lock:sweep:inventory",
	}
	for got, want := range cases {
		assert.Equal(t, want, got)
	}
}

func TestOptions(t *testing.T) {
	opts, err := options(config.RedisConfig{URL: "redis://:pw@cache:6380/2", PoolSize: 7, DialTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)

	opts, err = options(config.RedisConfig{Address: "localhost:6379", DB: 3})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 3, opts.DB)

	_, err = options(config.RedisConfig{})
	assert.Error(t, err)

	_, err = options(config.RedisConfig{URL: "http://nope"})
	assert.Error(t, err)
}
