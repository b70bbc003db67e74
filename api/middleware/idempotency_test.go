package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
)

// memStore is a map-backed IdempotencyStore.
type memStore struct {
	data   map[string]string
	setErr error
}

func newMemStore() *memStore { return &memStore{data: map[string]string{}} }

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) IdempotencyKey(scope, id string) string { return "idem:" + scope + ":" + id }

type idemCall struct {
	method, path, pattern, key, body, user string
}

// routed builds a request that looks as if chi matched pattern.
func routed(c idemCall) *http.Request {
	method := c.method
	if method == "" {
		method = http.MethodPost
	}
	req := httptest.NewRequest(method, c.path, strings.NewReader(c.body))
	if c.key != "" {
		req.Header.Set(idempotencyHeader, c.key)
	}
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{c.pattern}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	if c.user != "" {
		ctx = WithUserID(ctx, c.user)
	}
	return req.WithContext(ctx)
}

func serveIdem(store *memStore, h http.HandlerFunc, c idemCall) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	Idempotency(store, nil)(h).ServeHTTP(rec, routed(c))
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}

var submitCall = idemCall{path: "/api/v1/drafts/abc/submit", pattern: "/api/v1/drafts/{draftID}/submit", key: "submit-1", body: `{}`}

func TestReplayWindow(t *testing.T) {
	cases := map[string]struct {
		method, pattern string
		want            time.Duration
		ok              bool
	}{
		"draft submit":          {http.MethodPost, "/api/v1/drafts/{draftID}/submit", criticalIdempotencyTTL, true},
		"submit via GET":        {http.MethodGet, "/api/v1/drafts/{draftID}/submit", 0, false},
		"literal id":            {http.MethodPost, "/api/v1/drafts/abc/submit", 0, false},
		"draft open":            {http.MethodPost, "/api/v1/drafts", defaultIdempotencyTTL, true},
		"draft open subrouter":  {http.MethodPost, "/api/v1/drafts/", defaultIdempotencyTTL, true},
		"part create":           {http.MethodPost, "/api/admin/v1/parts", defaultIdempotencyTTL, true},
		"invoice upload":        {http.MethodPost, "/api/admin/v1/parts/{partId}/invoice", defaultIdempotencyTTL, true},
		"reserve part":          {http.MethodPost, "/api/v1/drafts/{draftId}/parts", 0, false},
		"login is not replayed": {http.MethodPost, "/api/v1/auth/login", 0, false},
	}
	for name, tc := range cases {
		ttl, ok := replayWindow(tc.method, tc.pattern)
		assert.Equal(t, tc.ok, ok, name)
		assert.Equal(t, tc.want, ttl, name)
	}
}

func TestIdempotencyPassesThroughUnlistedRoutes(t *testing.T) {
	rec := serveIdem(newMemStore(), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, idemCall{path: "/api/v1/auth/login", pattern: "/api/v1/auth/login"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIdempotencyRequiresKey(t *testing.T) {
	call := submitCall
	call.key = ""
	rec := serveIdem(newMemStore(), func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run without a key")
	}, call)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdempotencyReplaysCompletedResponse(t *testing.T) {
	store := newMemStore()
	calls := 0
	h := func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Location", "/api/v1/drafts/abc")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}
	open := idemCall{path: "/api/v1/drafts", pattern: "/api/v1/drafts/", key: "open-1", body: `{"vehicle_id":"v"}`}

	first := serveIdem(store, h, open)
	second := serveIdem(store, h, open)

	assert.Equal(t, 1, calls)
	for _, rec := range []*httptest.ResponseRecorder{first, second} {
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, "/api/v1/drafts/abc", rec.Header().Get("Location"))
		assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	}
	assert.Empty(t, first.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
}

func TestIdempotencyRejectsChangedBody(t *testing.T) {
	store := newMemStore()
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

	serveIdem(store, ok, submitCall)
	changed := submitCall
	changed.body = `{"notes":"different"}`
	rec := serveIdem(store, ok, changed)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestIdempotencyReleasesKeyAfterServerError(t *testing.T) {
	store := newMemStore()
	status, calls := http.StatusBadGateway, 0
	h := func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}

	serveIdem(store, h, submitCall)
	assert.Empty(t, store.data)

	status = http.StatusOK
	rec := serveIdem(store, h, submitCall)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	store := newMemStore()
	var dup *httptest.ResponseRecorder
	calls := 0
	h := func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			dup = serveIdem(store, func(http.ResponseWriter, *http.Request) { calls++ }, submitCall)
		}
		w.WriteHeader(http.StatusOK)
	}

	serveIdem(store, h, submitCall)

	assert.Equal(t, 1, calls)
	require.NotNil(t, dup)
	assert.Equal(t, http.StatusConflict, dup.Code)
}

func TestIdempotencyScopesKeysPerCaller(t *testing.T) {
	store := newMemStore()
	calls := 0
	h := func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}
	for _, user := range []string{"u1", "u2"} {
		serveIdem(store, h, idemCall{path: "/api/v1/drafts", pattern: "/api/v1/drafts", key: "same", body: `{}`, user: user})
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotencyStoreFailure(t *testing.T) {
	store := newMemStore()
	store.setErr = errors.New("redis down")
	rec := serveIdem(store, func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}, submitCall)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
