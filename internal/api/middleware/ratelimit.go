package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter applies per-client sliding-window admission control. Each
// client key keeps the instants of its admitted requests within the trailing
// window; entries older than the window are pruned lazily on each check, and
// a request is recorded only when admitted.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string][]time.Time
}

// NewRateLimiter creates a rate limiter admitting at most limit requests per
// client within the trailing window. A cleanup goroutine tied to ctx removes
// idle clients periodically.
func NewRateLimiter(ctx context.Context, limit int, window time.Duration) *RateLimiter {
	if ctx == nil {
		ctx = context.Background()
	}
	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string][]time.Time),
	}
	go rl.cleanup(ctx)
	return rl
}

// SetClock overrides the time source (for testing).
func (rl *RateLimiter) SetClock(now func() time.Time) {
	rl.now = now
}

// Allow reports whether a request from clientKey is admitted, recording it
// when so.
func (rl *RateLimiter) Allow(clientKey string) bool {
	current := rl.now()
	cutoff := current.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	instants := rl.windows[clientKey]
	pruned := instants[:0]
	for _, t := range instants {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}

	if len(pruned) >= rl.limit {
		rl.windows[clientKey] = pruned
		return false
	}

	rl.windows[clientKey] = append(pruned, current)
	return true
}

// Middleware returns an HTTP middleware that rate-limits requests by client
// IP, answering 429 when the window is full.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(ClientIP(r)) {
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := rl.now().Add(-rl.window)
			rl.mu.Lock()
			for key, instants := range rl.windows {
				if len(instants) == 0 || !instants[len(instants)-1].After(cutoff) {
					delete(rl.windows, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// ClientIP derives the client identity from a request, honoring reverse
// proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
