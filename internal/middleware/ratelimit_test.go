package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/bukuma/internal/model"
)

func newTestRateLimiter(generalBurst, enrichBurst int) *RateLimiter {
	return NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001), // テスト中に補充されない遅いレート
		GeneralBurst:    generalBurst,
		EnrichRate:      rate.Limit(0.001),
		EnrichBurst:     enrichBurst,
		CleanupInterval: time.Minute,
	})
}

func TestRateLimiter_General_AllowsUntilBurst(t *testing.T) {
	rl := newTestRateLimiter(3, 1)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/bookmarks", nil)
		req = req.WithContext(ContextWithIdentity(req.Context(), &model.Identity{UserID: "user-1"}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
	}

	// バースト超過で429
	req := httptest.NewRequest(http.MethodGet, "/bookmarks", nil)
	req = req.WithContext(ContextWithIdentity(req.Context(), &model.Identity{UserID: "user-1"}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header not set")
	}
}

func TestRateLimiter_General_IndependentPerUser(t *testing.T) {
	rl := newTestRateLimiter(1, 1)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(userID string) int {
		req := httptest.NewRequest(http.MethodGet, "/bookmarks", nil)
		req = req.WithContext(ContextWithIdentity(req.Context(), &model.Identity{UserID: userID}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("user-a"); code != http.StatusOK {
		t.Errorf("user-a first request: status = %d, want 200", code)
	}
	if code := send("user-a"); code != http.StatusTooManyRequests {
		t.Errorf("user-a second request: status = %d, want 429", code)
	}
	// 別ユーザーには影響しない
	if code := send("user-b"); code != http.StatusOK {
		t.Errorf("user-b first request: status = %d, want 200", code)
	}
}

func TestRateLimiter_General_UnauthenticatedKeyedByIP(t *testing.T) {
	rl := newTestRateLimiter(1, 1)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// 未認証でも拒否せずIPキーで制限する
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "203.0.113.7:12345"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if rl.GeneralLimiterCount() != 1 {
		t.Errorf("limiter count = %d, want 1", rl.GeneralLimiterCount())
	}
}

func TestRateLimiter_Enrich_IndependentFromGeneral(t *testing.T) {
	rl := newTestRateLimiter(1, 2)
	defer rl.Stop()

	generalHandler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	enrichHandler := rl.EnrichMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(h http.Handler) int {
		req := httptest.NewRequest(http.MethodPost, "/extract-keywords", nil)
		req.RemoteAddr = "203.0.113.7:12345"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	// 全般リミッターを使い切る
	if code := send(generalHandler); code != http.StatusOK {
		t.Fatalf("general: status = %d, want 200", code)
	}
	if code := send(generalHandler); code != http.StatusTooManyRequests {
		t.Fatalf("general: status = %d, want 429", code)
	}

	// 抽出リミッターは独立に動作する
	if code := send(enrichHandler); code != http.StatusOK {
		t.Errorf("enrich: status = %d, want 200", code)
	}
}

func TestRateLimiter_Cleanup_RemovesStaleEntries(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(1),
		GeneralBurst:    1,
		EnrichRate:      rate.Limit(1),
		EnrichBurst:     1,
		CleanupInterval: 10 * time.Millisecond,
	})
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/bookmarks", nil)
	req = req.WithContext(ContextWithIdentity(req.Context(), &model.Identity{UserID: "user-1"}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if rl.GeneralLimiterCount() != 1 {
		t.Fatalf("limiter count = %d, want 1", rl.GeneralLimiterCount())
	}

	// TTL（CleanupInterval*2）経過後にクリーンアップされる
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if rl.GeneralLimiterCount() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("stale limiter entry was not cleaned up")
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		want       string
	}{
		{"ポート付き", "203.0.113.7:12345", "203.0.113.7"},
		{"ポートなし", "203.0.113.7", "203.0.113.7"},
		{"IPv6", "[::1]:8080", "::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
