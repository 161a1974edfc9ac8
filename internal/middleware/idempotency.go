package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"sadaka/pkg/cache"
	"sadaka/pkg/errors"
	"sadaka/pkg/logger"
)

// IdempotencyStore holds the per-key lock and the captured response.
// cache.RedisCache and cache.Memory implement it.
type IdempotencyStore interface {
	cache.Cache
	SetNX(ctx context.Context, key, value string, expiration time.Duration) (bool, error)
}

// IdempotencyMiddleware enforces Idempotency-Key usage for unsafe methods.
type IdempotencyMiddleware struct {
	store    IdempotencyStore
	ttl      time.Duration
	wait     time.Duration
	interval time.Duration
	logger   logger.Logger
}

// NewIdempotencyMiddleware constructs an IdempotencyMiddleware with a TTL.
func NewIdempotencyMiddleware(store IdempotencyStore, ttl time.Duration, log logger.Logger) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{
		store:    store,
		ttl:      ttl,
		wait:     5 * time.Second,
		interval: 100 * time.Millisecond,
		logger:   log,
	}
}

// Require replays the stored response for a repeated Idempotency-Key. A
// request arriving while the first is still in flight waits for it, then
// gets 409 if it has not finished. Keys are scoped to the caller.
func (m *IdempotencyMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut &&
			r.Method != http.MethodPatch && r.Method != http.MethodDelete {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			jsonError(w, http.StatusBadRequest, "Idempotency-Key header required")
			return
		}
		if len(key) > 255 {
			jsonError(w, http.StatusBadRequest, "Idempotency-Key too long")
			return
		}

		caller := clientIP(r)
		if userID, ok := UserIDFromContext(r.Context()); ok {
			caller = userID.String()
		}
		dataKey := fmt.Sprintf("idempotency:data:%s:%s:%s", caller, r.Method, key)
		lockKey := fmt.Sprintf("idempotency:lock:%s:%s:%s", caller, r.Method, key)

		if m.replayCached(w, r, dataKey) {
			return
		}

		requestID := RequestIDFromContext(r.Context())
		if requestID == "" {
			requestID = "unknown"
		}

		ok, err := m.store.SetNX(r.Context(), lockKey, requestID, m.ttl)
		if err != nil {
			m.logger.Error("Idempotency store unavailable", map[string]interface{}{
				"error": err,
				"key":   key,
			})
			jsonError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		if !ok {
			if m.awaitFirst(w, r, dataKey) {
				return
			}
			m.logger.Warn("Duplicate request still in flight", map[string]interface{}{
				"key":        key,
				"request_id": requestID,
			})
			jsonError(w, http.StatusConflict, errors.ErrDuplicateRequest.Error())
			return
		}
		defer func() {
			// the request context may already be cancelled
			_ = m.store.Delete(context.Background(), lockKey)
		}()

		cw := newCaptureWriter(w, 1<<20)
		next.ServeHTTP(cw, r)

		if err := m.cacheResponse(r.Context(), dataKey, cw); err != nil {
			m.logger.Warn("Failed to store idempotent response", map[string]interface{}{
				"error": err,
				"key":   key,
			})
		}
	})
}

func (m *IdempotencyMiddleware) awaitFirst(w http.ResponseWriter, r *http.Request, dataKey string) bool {
	deadline := time.NewTimer(m.wait)
	defer deadline.Stop()
	tick := time.NewTicker(m.interval)
	defer tick.Stop()

	for {
		select {
		case <-r.Context().Done():
			return false
		case <-deadline.C:
			return false
		case <-tick.C:
			if m.replayCached(w, r, dataKey) {
				return true
			}
		}
	}
}

type capturedResponse struct {
	Status  int               `json:"status"`
	Body    []byte            `json:"body"`
	Headers map[string]string `json:"headers"`
}

func (m *IdempotencyMiddleware) replayCached(w http.ResponseWriter, r *http.Request, dataKey string) bool {
	var cr capturedResponse
	if err := m.store.Get(r.Context(), dataKey, &cr); err != nil {
		return false
	}

	for k, v := range cr.Headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cr.Status)
	_, _ = w.Write(cr.Body)
	return true
}

// cacheResponse stores completed responses. Server errors and truncated
// bodies are not stored so the client can retry.
func (m *IdempotencyMiddleware) cacheResponse(ctx context.Context, dataKey string, cw *captureWriter) error {
	if cw.status == 0 || cw.status >= 500 || cw.truncated {
		return nil
	}
	return m.store.Set(ctx, dataKey, capturedResponse{
		Status:  cw.status,
		Body:    cw.buf,
		Headers: cw.headers,
	}, m.ttl)
}

type captureWriter struct {
	http.ResponseWriter
	buf       []byte
	limit     int
	status    int
	truncated bool
	headers   map[string]string
}

func newCaptureWriter(w http.ResponseWriter, limit int) *captureWriter {
	return &captureWriter{
		ResponseWriter: w,
		buf:            make([]byte, 0, 1024),
		limit:          limit,
		headers:        make(map[string]string),
	}
}

func (w *captureWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	for k, v := range w.ResponseWriter.Header() {
		if len(v) > 0 {
			w.headers[k] = v[0]
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	if space := w.limit - len(w.buf); space < len(p) {
		w.truncated = true
		if space > 0 {
			w.buf = append(w.buf, p[:space]...)
		}
	} else {
		w.buf = append(w.buf, p...)
	}
	return w.ResponseWriter.Write(p)
}
