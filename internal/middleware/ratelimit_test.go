package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/bearfolio/bearfolio/internal/model"
)

func newTestRateLimiter(burst int) *RateLimiter {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001), // テスト中に補充されない低レート
		GeneralBurst:    burst,
		CleanupInterval: time.Minute,
	})
	return rl
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	rl := newTestRateLimiter(3)
	defer rl.Stop()

	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	rl := newTestRateLimiter(2)
	defer rl.Stop()

	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	var lastCode int
	var retryAfter string
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		lastCode = rec.Code
		retryAfter = rec.Header().Get("Retry-After")
	}

	if lastCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", lastCode)
	}
	if retryAfter == "" {
		t.Error("Retry-Afterヘッダーが設定されていない")
	}
}

func TestRateLimiter_SeparateKeysPerUser(t *testing.T) {
	rl := newTestRateLimiter(1)
	defer rl.Stop()

	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(subject string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(ContextWithPrincipal(req.Context(), &model.Principal{Subject: subject}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("user-1"); code != http.StatusOK {
		t.Errorf("user-1 first request: status = %d, want 200", code)
	}
	if code := send("user-2"); code != http.StatusOK {
		t.Errorf("user-2 first request: status = %d, want 200（別ユーザーは独立）", code)
	}
	if code := send("user-1"); code != http.StatusTooManyRequests {
		t.Errorf("user-1 second request: status = %d, want 429", code)
	}

	if rl.LimiterCount() != 2 {
		t.Errorf("LimiterCount = %d, want 2", rl.LimiterCount())
	}
}
