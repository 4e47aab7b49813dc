package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"

	apperrors "parkly/pkg/errors"
	"parkly/pkg/logger"
	"parkly/pkg/sealer"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":"ok"}`))
	})
}

func decodeError(t *testing.T, body string) apperrors.ErrorResponse {
	t.Helper()
	var resp apperrors.ErrorResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("error body is not JSON: %q", body)
	}
	return resp
}

func TestRequestLogging_RequestID(t *testing.T) {
	var seen string
	h := RequestLogging(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || w.Header().Get(RequestIDHeader) != seen {
		t.Errorf("generated request id %q not echoed (header %q)", seen, w.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "client-id" {
		t.Errorf("incoming request id not kept, got %q", seen)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeError(t, w.Body.String()); resp.Code != apperrors.CodeInternal {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestContentTypeValidation(t *testing.T) {
	h := ContentTypeValidation(logger.NewNop())(okHandler())

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{"get without header", http.MethodGet, "", "", http.StatusOK},
		{"post json", http.MethodPost, `{}`, "application/json", http.StatusOK},
		{"post json with charset", http.MethodPost, `{}`, "application/json; charset=utf-8", http.StatusOK},
		{"post empty body", http.MethodPost, "", "", http.StatusOK},
		{"post form", http.MethodPost, "a=b", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"put missing header", http.MethodPut, `{}`, "", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	h := MaxRequestSize(8)(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`)))
	if w.Code != http.StatusOK {
		t.Errorf("small body status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"vehicle":"too long"}`)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("large body status = %d", w.Code)
	}
}

func TestRequestTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	RequestTimeout(10*time.Millisecond)(slow).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want %d", w.Code, http.StatusGatewayTimeout)
	}

	w = httptest.NewRecorder()
	RequestTimeout(time.Second)(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || w.Body.String() != `{"data":"ok"}` {
		t.Errorf("fast handler got %d %q", w.Code, w.Body.String())
	}
}

func TestRateLimit_PerSession(t *testing.T) {
	live := map[string]bool{"a": true, "b": true}
	limiter := NewSessionRateLimiter(2, time.Minute, SessionKeyExtractor(func(id string) bool { return live[id] }), logger.NewNop())
	defer limiter.Stop()
	h := RateLimit(limiter)(okHandler())

	send := func(session string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		if session != "" {
			req.Header.Set(SessionHeader, session)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	if send("a") != http.StatusOK || send("a") != http.StatusOK {
		t.Fatal("first two requests should pass")
	}
	if code := send("a"); code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d", code)
	}
	if code := send("b"); code != http.StatusOK {
		t.Errorf("other session limited: %d", code)
	}
}

func TestRateLimit_UnknownSessionIDsShareIPBucket(t *testing.T) {
	tests := []struct {
		name      string
		extractor KeyExtractor
	}{
		{"default extractor", nil},
		{"session extractor", SessionKeyExtractor(func(string) bool { return false })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewSessionRateLimiter(2, time.Minute, tt.extractor, logger.NewNop())
			defer limiter.Stop()
			h := RateLimit(limiter)(okHandler())

			allowed := 0
			for i := 0; i < 20; i++ {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
				req.RemoteAddr = "10.0.0.1:5555"
				req.Header.Set(SessionHeader, fmt.Sprintf("made-up-%d", i))
				w := httptest.NewRecorder()
				h.ServeHTTP(w, req)
				if w.Code == http.StatusOK {
					allowed++
				}
			}
			if allowed != 2 {
				t.Errorf("allowed %d requests, want 2", allowed)
			}

			limiter.mu.Lock()
			buckets := len(limiter.limiters)
			limiter.mu.Unlock()
			if buckets != 1 {
				t.Errorf("buckets = %d, want 1", buckets)
			}
		})
	}
}

func TestKeyExtractors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := DefaultKeyExtractor(req); got != "ip:10.0.0.1" {
		t.Errorf("DefaultKeyExtractor() = %q", got)
	}

	req.Header.Set(SessionHeader, "abc")
	if got := DefaultKeyExtractor(req); got != "ip:10.0.0.1" {
		t.Errorf("DefaultKeyExtractor() with session = %q", got)
	}

	extract := SessionKeyExtractor(func(id string) bool { return id == "abc" })
	if got := extract(req); got != "session:abc" {
		t.Errorf("live session key = %q", got)
	}
	req.Header.Set(SessionHeader, "xyz")
	if got := extract(req); got != "ip:10.0.0.1" {
		t.Errorf("unknown session key = %q", got)
	}
}

func TestSessionRateLimiter_Sweep(t *testing.T) {
	limiter := NewSessionRateLimiter(1, time.Millisecond, nil, logger.NewNop())
	defer limiter.Stop()

	limiter.Allow("x")
	time.Sleep(5 * time.Millisecond)
	limiter.Sweep()

	limiter.mu.Lock()
	n := len(limiter.limiters)
	limiter.mu.Unlock()
	if n != 0 {
		t.Errorf("idle bucket survived sweep")
	}
}

func TestIdempotency_ReplaysSuccess(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls int32
	h := Idempotency(store, "", logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"call":` + string(rune('0'+n)) + `}`))
	}))

	send := func(session, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/locations/Koramangala/slots/5/booking", nil)
		req.Header.Set(SessionHeader, session)
		req.Header.Set(DefaultIdempotencyHeader, key)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	first := send("s1", "k1")
	second := send("s1", "k1")
	if calls != 1 {
		t.Fatalf("handler ran %d times", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Errorf("replay = %d %q", second.Code, second.Body.String())
	}

	send("s2", "k1")
	if calls != 2 {
		t.Errorf("key leaked across sessions")
	}
}

func TestIdempotency_ReplayKeepsOneRequestID(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	h := RequestLogging(logger.NewNop())(Idempotency(store, "", logger.NewNop())(okHandler()))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
		req.Header.Set(DefaultIdempotencyHeader, "k1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	first := send()
	second := send()

	ids := second.Header().Values(RequestIDHeader)
	if len(ids) != 1 {
		t.Fatalf("replayed %s values = %v, want exactly one", RequestIDHeader, ids)
	}
	if ids[0] == first.Header().Get(RequestIDHeader) {
		t.Errorf("replay carried the original request id %q", ids[0])
	}
}

func TestIdempotency_ErrorsNotCached(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls int32
	h := Idempotency(store, "", logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusConflict)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set(DefaultIdempotencyHeader, "k")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Errorf("error response was cached")
	}
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Millisecond)
	defer store.Stop()

	ctx := context.Background()
	store.Set(ctx, "k", &CachedResponse{StatusCode: http.StatusOK})
	time.Sleep(5 * time.Millisecond)
	if _, ok := store.Get(ctx, "k"); ok {
		t.Errorf("expired entry returned")
	}
}

type fakeRedis struct {
	data   map[string][]byte
	getErr error
	ttl    time.Duration
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = value.([]byte)
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisIdempotencyStore(t *testing.T) {
	fake := &fakeRedis{data: map[string][]byte{}}
	store := newRedisIdempotencyStore(fake, time.Hour, logger.NewNop())
	ctx := context.Background()

	if _, ok := store.Get(ctx, "k"); ok {
		t.Fatal("miss reported as hit")
	}

	store.Set(ctx, "k", &CachedResponse{StatusCode: http.StatusCreated, Body: []byte(`{"id":"1"}`)})
	if fake.ttl != time.Hour {
		t.Errorf("ttl = %v", fake.ttl)
	}
	if _, ok := fake.data[redisIdempotencyPrefix+"k"]; !ok {
		t.Errorf("key not prefixed")
	}

	cached, ok := store.Get(ctx, "k")
	if !ok || cached.StatusCode != http.StatusCreated || string(cached.Body) != `{"id":"1"}` {
		t.Errorf("Get() = %+v, %v", cached, ok)
	}

	fake.getErr = errors.New("connection refused")
	if _, ok := store.Get(ctx, "k"); ok {
		t.Errorf("redis failure should read as a miss")
	}
}

type fakeOpener struct {
	email string
	err   error
}

func (f fakeOpener) Open(string) (string, time.Time, error) {
	return f.email, time.Time{}, f.err
}

func TestAdminAuth(t *testing.T) {
	var gotEmail string
	protected := func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gotEmail = AdminEmailFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	tests := []struct {
		name   string
		header string
		opener fakeOpener
		want   int
	}{
		{"missing header", "", fakeOpener{email: "a@b.c"}, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", fakeOpener{email: "a@b.c"}, http.StatusUnauthorized},
		{"empty token", "Bearer ", fakeOpener{email: "a@b.c"}, http.StatusUnauthorized},
		{"invalid token", "Bearer abc", fakeOpener{err: sealer.ErrInvalidToken}, http.StatusUnauthorized},
		{"expired token", "Bearer abc", fakeOpener{err: sealer.ErrExpiredToken}, http.StatusUnauthorized},
		{"valid token", "bearer abc", fakeOpener{email: "admin@parkly.test"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotEmail = ""
			h := AdminAuth(tt.opener, logger.NewNop())(protected)

			req := httptest.NewRequest(http.MethodPut, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h(w, req, nil)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK && gotEmail != "admin@parkly.test" {
				t.Errorf("admin email = %q", gotEmail)
			}
			if tt.want == http.StatusUnauthorized {
				if resp := decodeError(t, w.Body.String()); resp.Code != apperrors.CodeUnauthorized {
					t.Errorf("code = %s", resp.Code)
				}
			}
		})
	}
}
