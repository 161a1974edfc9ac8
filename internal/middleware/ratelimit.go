package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"sadaka/pkg/logger"

	"github.com/google/uuid"
)

// Counter is a fixed-window hit counter, implemented by cache.RedisCache.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimiter applies a fixed-window rate limit backed by Redis.
type RateLimiter struct {
	counter Counter
	scope   string
	limit   int
	window  time.Duration
	logger  logger.Logger
}

// NewRateLimiter constructs a RateLimiter with the given limit and window.
// scope separates the counters of limiters sharing one store.
func NewRateLimiter(counter Counter, scope string, limit int, window time.Duration, log logger.Logger) *RateLimiter {
	return &RateLimiter{
		counter: counter,
		scope:   scope,
		limit:   limit,
		window:  window,
		logger:  log,
	}
}

// Limit enforces the rate limit, keyed by client IP and, when available, user ID.
// Requests pass through when the counter store is unreachable.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("ratelimit:%s:%s", rl.scope, clientIP(r))
		if userID, ok := UserIDFromContext(r.Context()); ok && userID != uuid.Nil {
			key = fmt.Sprintf("ratelimit:%s:user:%s", rl.scope, userID.String())
		}

		count, err := rl.counter.Incr(r.Context(), key, rl.window)
		if err != nil {
			rl.logger.Warn("Rate limiter unavailable", map[string]interface{}{"error": err})
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.limit))
		if count > int64(rl.limit) {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rl.window.Seconds())))
			jsonError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", rl.limit-int(count)))

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
