package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 5, time.Minute)

	for i := 0; i < 5; i++ {
		if !rl.Allow("203.0.113.1") {
			t.Fatalf("request %d rejected, want allowed", i+1)
		}
	}
	if rl.Allow("203.0.113.1") {
		t.Fatal("request over limit allowed")
	}
}

func TestRateLimiter_RejectedRequestNotCounted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 3, time.Minute)

	base := time.Unix(1_700_000_000, 0)
	now := base
	rl.SetClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		rl.Allow("c")
	}
	// Hammering while limited must not extend the window.
	for i := 0; i < 10; i++ {
		if rl.Allow("c") {
			t.Fatal("limited client admitted")
		}
	}

	// Once the original admissions fall outside the window the client is
	// admitted again, regardless of the rejected attempts in between.
	now = base.Add(time.Minute + time.Second)
	if !rl.Allow("c") {
		t.Fatal("client not re-admitted after window elapsed")
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 2, time.Minute)

	base := time.Unix(1_700_000_000, 0)
	now := base
	rl.SetClock(func() time.Time { return now })

	rl.Allow("c")
	now = base.Add(30 * time.Second)
	rl.Allow("c")

	if rl.Allow("c") {
		t.Fatal("third request in window allowed")
	}

	// First admission expires; one slot opens.
	now = base.Add(time.Minute + time.Second)
	if !rl.Allow("c") {
		t.Fatal("slot not freed after oldest admission expired")
	}
	if rl.Allow("c") {
		t.Fatal("second slot should still be held")
	}
}

func TestRateLimiter_ClientsIndependent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 1, time.Minute)

	if !rl.Allow("a") {
		t.Fatal("first client rejected")
	}
	if !rl.Allow("b") {
		t.Fatal("second client rejected")
	}
	if rl.Allow("a") {
		t.Fatal("first client admitted over limit")
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 2, time.Minute)

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.RemoteAddr = "203.0.113.7:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.0.2.1:5000", nil, "192.0.2.1"},
		{"x-forwarded-for", "10.0.0.1:5000", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "203.0.113.9"},
		{"x-forwarded-for with spaces", "10.0.0.1:5000", map[string]string{"X-Forwarded-For": " 203.0.113.9 , 10.0.0.1"}, "203.0.113.9"},
		{"x-real-ip", "10.0.0.1:5000", map[string]string{"X-Real-Ip": "203.0.113.10"}, "203.0.113.10"},
		{"ipv6", "[::1]:5000", nil, "::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
