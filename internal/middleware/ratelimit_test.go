package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(rate float64, burst int) (*RateLimiter, *time.Time) {
	rl := NewRateLimiter(rate, burst)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func hit(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/pokemon/1", http.NoBody)
	req.RemoteAddr = ip + ":5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRateLimiterBurstThenReject(t *testing.T) {
	rl, _ := newTestLimiter(10, 5)
	h := rl.Handler(okHandler)

	for i := range 5 {
		if rec := hit(h, "192.168.1.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := hit(h, "192.168.1.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", rec.Header().Get("Retry-After"))
	}
	if rec.Body.String() != rateLimitedBody {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl, now := newTestLimiter(2, 1)
	h := rl.Handler(okHandler)

	if rec := hit(h, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := hit(h, "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	*now = now.Add(500 * time.Millisecond)
	if rec := hit(h, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after refill, got %d", rec.Code)
	}
}

func TestRateLimiterHeaders(t *testing.T) {
	rl, _ := newTestLimiter(10, 10)
	rec := hit(rl.Handler(okHandler), "192.168.1.1")

	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "9" {
		t.Errorf("X-RateLimit-Remaining = %q, want 9", got)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
		t.Errorf("X-RateLimit-Limit = %q, want 10", got)
	}
}

func TestRateLimiterPerIP(t *testing.T) {
	rl, _ := newTestLimiter(10, 2)
	h := rl.Handler(okHandler)

	hit(h, "1.1.1.1")
	hit(h, "1.1.1.1")
	if rec := hit(h, "1.1.1.1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for first IP, got %d", rec.Code)
	}
	if rec := hit(h, "2.2.2.2"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for second IP, got %d", rec.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl, now := newTestLimiter(10, 2)
	h := rl.Handler(okHandler)

	hit(h, "1.1.1.1")
	*now = now.Add(time.Minute)
	hit(h, "2.2.2.2")

	rl.cleanup(30 * time.Second)
	if rl.Len() != 1 {
		t.Fatalf("Len = %d, want 1", rl.Len())
	}
}

func TestRateLimiterCapacity(t *testing.T) {
	rl, _ := newTestLimiter(10, 2)
	rl.maxClients = 1
	h := rl.Handler(okHandler)

	hit(h, "1.1.1.1")
	if rec := hit(h, "2.2.2.2"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 at capacity, got %d", rec.Code)
	}
}
