package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

func newTestRateLimiter(t *testing.T, cfg RateLimiterConfig) *RateLimiter {
	t.Helper()
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Minute
	}
	var buf bytes.Buffer
	rl := NewRateLimiter(cfg, newTestLogger(&buf))
	t.Cleanup(rl.Stop)
	return rl
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/events/get-all", nil)
	req.RemoteAddr = remoteAddr
	return req
}

func TestRateLimitMiddleware_AllowsRequestsWithinBurst(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimiterConfig{GeneralRate: 1, GeneralBurst: 5, FormRate: 1, FormBurst: 1})
	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom("203.0.113.1:5000"))
		if w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
}

func TestRateLimitMiddleware_Returns429WithRetryAfter(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimiterConfig{GeneralRate: 0.5, GeneralBurst: 1, FormRate: 1, FormBurst: 1})
	handler := rl.GeneralMiddleware()(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("203.0.113.2:5000"))
	if w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("203.0.113.2:5001"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retry != 2 {
		t.Errorf("Retry-After = %q, want 2", w.Header().Get("Retry-After"))
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeRateLimited {
		t.Errorf("code = %q", body.Code)
	}
}

func TestRateLimitMiddleware_IsolatesClients(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimiterConfig{GeneralRate: 0.01, GeneralBurst: 1, FormRate: 1, FormBurst: 1})
	handler := rl.GeneralMiddleware()(okHandler())

	for _, addr := range []string{"198.51.100.1:1", "198.51.100.2:1"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom(addr))
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d", addr, w.Code)
		}
	}
	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("GeneralLimiterCount = %d, want 2", rl.GeneralLimiterCount())
	}
}

func TestRateLimitMiddleware_FormLimiterIndependent(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimiterConfig{GeneralRate: 100, GeneralBurst: 100, FormRate: 0.01, FormBurst: 1})
	general := rl.GeneralMiddleware()(okHandler())
	form := rl.FormMiddleware()(okHandler())

	w := httptest.NewRecorder()
	form.ServeHTTP(w, requestFrom("192.0.2.10:1"))
	if w.Code != http.StatusOK {
		t.Fatalf("first form request status = %d", w.Code)
	}
	w = httptest.NewRecorder()
	form.ServeHTTP(w, requestFrom("192.0.2.10:1"))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second form request status = %d, want 429", w.Code)
	}

	w = httptest.NewRecorder()
	general.ServeHTTP(w, requestFrom("192.0.2.10:1"))
	if w.Code != http.StatusOK {
		t.Errorf("general request status = %d, want 200", w.Code)
	}
	if rl.FormLimiterCount() != 1 {
		t.Errorf("FormLimiterCount = %d", rl.FormLimiterCount())
	}
}

func TestRateLimiter_CleanupEvictsIdleClients(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimiterConfig{GeneralRate: 1, GeneralBurst: 1, FormRate: 1, FormBurst: 1, CleanupInterval: time.Minute})
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }

	handler := rl.GeneralMiddleware()(okHandler())
	handler.ServeHTTP(httptest.NewRecorder(), requestFrom("192.0.2.1:1"))

	rl.now = func() time.Time { return base.Add(90 * time.Second) }
	handler.ServeHTTP(httptest.NewRecorder(), requestFrom("192.0.2.2:1"))

	rl.now = func() time.Time { return base.Add(3 * time.Minute) }
	rl.cleanup()

	if got := rl.GeneralLimiterCount(); got != 1 {
		t.Errorf("GeneralLimiterCount = %d, want 1", got)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:4321"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	if got := ClientIP(req, false); got != "10.0.0.1" {
		t.Errorf("ClientIP(untrusted) = %q, want 10.0.0.1", got)
	}
	if got := ClientIP(req, true); got != "203.0.113.7" {
		t.Errorf("ClientIP(trusted) = %q, want 203.0.113.7", got)
	}

	req.RemoteAddr = "not-a-host-port"
	req.Header.Del("X-Forwarded-For")
	if got := ClientIP(req, true); got != "not-a-host-port" {
		t.Errorf("ClientIP(fallback) = %q", got)
	}
}
