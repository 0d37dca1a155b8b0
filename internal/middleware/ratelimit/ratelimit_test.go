package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllowWindow(t *testing.T) {
	rl, now := newTestLimiter(t, 2)

	if !rl.Allow("u1") || !rl.Allow("u1") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("u1") {
		t.Fatal("third request should be limited")
	}
	if !rl.Allow("u2") {
		t.Fatal("keys are independent")
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("u1") {
		t.Fatal("window should reset after a minute")
	}
	if m := rl.GetMetrics(); m.Limited != 1 || m.ClientCount != 2 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, 5)
	rl.Allow("old")
	*now = now.Add(11 * time.Minute)
	rl.Allow("fresh")
	rl.cleanupStaleEntries()
	if rl.GetMetrics().ClientCount != 1 {
		t.Fatalf("stale entry not removed: %+v", rl.GetMetrics())
	}
}

func TestMiddlewareOnlyLimitsWrites(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "k" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/api/transactions", nil))
		return rr
	}

	if do(http.MethodPost).Code != http.StatusNoContent {
		t.Fatal("first write should pass")
	}
	rr := do(http.MethodPost)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("second write = %d, Retry-After %q", rr.Code, rr.Header().Get("Retry-After"))
	}
	if do(http.MethodGet).Code != http.StatusNoContent {
		t.Fatal("reads are never limited")
	}
}
