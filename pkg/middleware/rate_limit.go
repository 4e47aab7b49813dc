package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"parkly/pkg/logger"
)

// SessionHeader identifies the parking session a request belongs to.
const SessionHeader = "X-Session-ID"

type KeyExtractor func(r *http.Request) string

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SessionRateLimiter keeps one token bucket per key, see KeyExtractor. A bucket holds
// `limit` tokens and refills completely once per window.
type SessionRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	window    time.Duration
	extractor KeyExtractor
	log       *logger.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewSessionRateLimiter(requests int, window time.Duration, extractor KeyExtractor, log *logger.Logger) *SessionRateLimiter {
	if extractor == nil {
		extractor = DefaultKeyExtractor
	}

	limiter := &SessionRateLimiter{
		limiters:  make(map[string]*limiterEntry),
		limit:     rate.Every(window / time.Duration(requests)),
		burst:     requests,
		window:    window,
		extractor: extractor,
		log:       log,
		stopCh:    make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *SessionRateLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	rl.mu.Lock()
	entry, ok := rl.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	rl.mu.Unlock()

	return entry.limiter.Allow()
}

// Sweep drops buckets that have been idle for a full window; they are full
// again by then and carry no state.
func (rl *SessionRateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, entry := range rl.limiters {
		if time.Since(entry.lastSeen) > rl.window {
			delete(rl.limiters, key)
		}
	}
}

func (rl *SessionRateLimiter) cleanup() {
	ticker := time.NewTicker(max(rl.window, time.Minute))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.Sweep()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *SessionRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func RateLimit(limiter *SessionRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limiter.extractor(r)

			if !limiter.Allow(key) {
				limiter.log.Warn("Rate limit exceeded",
					"request_id", RequestIDFromContext(r.Context()),
					"key", key,
					"path", r.URL.Path,
				)
				reject(w, rateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// DefaultKeyExtractor buckets by client IP.
func DefaultKeyExtractor(r *http.Request) string {
	return "ip:" + clientIP(r)
}

// SessionKeyExtractor buckets requests of a live session by session ID.
// Requests with a missing or unknown session fall back to the client IP, so
// made-up session IDs share one bucket per caller.
func SessionKeyExtractor(isLive func(id string) bool) KeyExtractor {
	return func(r *http.Request) string {
		if sid := r.Header.Get(SessionHeader); sid != "" && isLive(sid) {
			return "session:" + sid
		}
		return DefaultKeyExtractor(r)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
