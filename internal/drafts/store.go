package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("draft session not found")

// SessionStore persists sessions between requests. Expired sessions are
// treated as abandoned.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Load(ctx context.Context, id uuid.UUID) (*Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type redisKV interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	DraftKey(draftID string) string
}

// RedisStore keeps sessions as JSON documents with a sliding TTL.
type RedisStore struct {
	kv  redisKV
	ttl time.Duration
}

func NewRedisStore(kv redisKV, ttl time.Duration) *RedisStore {
	return &RedisStore{kv: kv, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, session *Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.kv.DraftKey(session.ID.String()), payload, s.ttl)
}

func (s *RedisStore) Load(ctx context.Context, id uuid.UUID) (*Session, error) {
	raw, err := s.kv.Get(ctx, s.kv.DraftKey(id.String()))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return decodeSession([]byte(raw))
}

func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.kv.Del(ctx, s.kv.DraftKey(id.String()))
}

func decodeSession(raw []byte) (*Session, error) {
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	if session.Snapshot == nil {
		session.Snapshot = Snapshot{}
	}
	if session.Draft == nil {
		session.Draft = NewDraft(session.VehicleID)
	}
	return &session, nil
}

// MemoryStore is an in-process SessionStore with the same copy and expiry
// semantics as RedisStore.
type MemoryStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]memoryItem
	ttl   time.Duration
	now   func() time.Time
}

type memoryItem struct {
	payload   []byte
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{items: map[uuid.UUID]memoryItem{}, ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Save(ctx context.Context, session *Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	item := memoryItem{payload: payload}
	if s.ttl > 0 {
		item.expiresAt = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	s.items[session.ID] = item
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, id uuid.UUID) (*Session, error) {
	s.mu.Lock()
	item, ok := s.items[id]
	if ok && !item.expiresAt.IsZero() && !s.now().Before(item.expiresAt) {
		delete(s.items, id)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return decodeSession(item.payload)
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}
