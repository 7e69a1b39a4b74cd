package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/bukuma/internal/metrics"
	"github.com/hitoshi/bukuma/internal/middleware"
	"github.com/hitoshi/bukuma/internal/model"
)

// routerVerifier はmiddleware.TokenVerifierのモック実装。
type routerVerifier struct {
	verifyFn func(tokenString string) (*model.Identity, error)
}

func (m *routerVerifier) VerifyToken(tokenString string) (*model.Identity, error) {
	return m.verifyFn(tokenString)
}

// mockDBPinger はDBPingerのモック実装。
type mockDBPinger struct {
	pingErr error
}

func (m *mockDBPinger) PingContext(ctx context.Context) error {
	return m.pingErr
}

func validVerifier() *routerVerifier {
	return &routerVerifier{
		verifyFn: func(tokenString string) (*model.Identity, error) {
			if tokenString != "valid-token" {
				return nil, errors.New("token is invalid")
			}
			return &model.Identity{UserID: "user-1", Email: "alice@example.com"}, nil
		},
	}
}

func newTestRouter(t *testing.T, deps *RouterDeps) http.Handler {
	t.Helper()

	limiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(600, 600))
	t.Cleanup(limiter.Stop)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	if deps == nil {
		deps = &RouterDeps{}
	}
	if deps.CORSAllowedOrigin == "" {
		deps.CORSAllowedOrigin = "*"
	}
	if deps.TokenVerifier == nil {
		deps.TokenVerifier = validVerifier()
	}
	deps.RateLimiter = limiter
	if deps.Metrics == nil {
		deps.Metrics = collector
		deps.Gatherer = registry
	}
	if deps.AuthService == nil {
		deps.AuthService = &mockAuthService{
			loginFn: func(ctx context.Context, email, password string) (string, string, error) {
				return "issued-token", email, nil
			},
			signupFn: func(ctx context.Context, email, password string) (string, string, error) {
				return "issued-token", email, nil
			},
		}
	}
	if deps.BookmarkService == nil {
		deps.BookmarkService = &mockBookmarkService{
			addFn: func(ctx context.Context, userID string, input model.BookmarkInput) (*model.Bookmark, error) {
				return &model.Bookmark{ID: "bm-1", UserID: userID, URL: "https://example.com"}, nil
			},
			listFn: func(ctx context.Context, userID string) ([]*model.Bookmark, error) {
				return []*model.Bookmark{}, nil
			},
			deleteFn: func(ctx context.Context, userID, bookmarkID string) error {
				return nil
			},
		}
	}
	if deps.Titles == nil {
		deps.Titles = &mockTitleService{fn: func(ctx context.Context, rawURL string) string { return "タイトル" }}
	}
	if deps.Favicons == nil {
		deps.Favicons = &mockFaviconService{fn: func(ctx context.Context, pageURL string) string { return "" }}
	}
	if deps.Keywords == nil {
		deps.Keywords = &mockKeywordService{fn: func(ctx context.Context, rawURL string) []string { return nil }}
	}
	if deps.Summaries == nil {
		deps.Summaries = &mockSummaryService{fn: func(ctx context.Context, rawURL string) string { return "" }}
	}
	if deps.Coordinator == nil {
		deps.Coordinator = &mockCoordinatorService{fn: func(ctx context.Context, rawURL string) *model.Enrichment {
			return &model.Enrichment{Title: "タイトル"}
		}}
	}

	return NewRouter(deps)
}

func TestRouter_Preflight_Returns200EmptyBody(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/add-bookmark", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// プリフライトは認証・レート制限より前に空ボディの200で応答する
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization" {
		t.Errorf("Allow-Headers = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestRouter_MethodNotAllowed_Returns405(t *testing.T) {
	router := newTestRouter(t, nil)

	// POST専用エンドポイントにGETを送る
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] == nil {
		t.Error("expected unified error body")
	}
	// 405にもCORSヘッダーが付与される
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS headers on 405")
	}
}

func TestRouter_MethodNotAllowed_BeforeAuth(t *testing.T) {
	verifier := &routerVerifier{
		verifyFn: func(tokenString string) (*model.Identity, error) {
			t.Fatal("VerifyToken should not be called for method mismatch")
			return nil, nil
		},
	}
	router := newTestRouter(t, &RouterDeps{TokenVerifier: verifier})

	// 認証ルートでもメソッド不一致は認証より先に405で弾かれる
	req := httptest.NewRequest(http.MethodGet, "/add-bookmark", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestRouter_AddBookmark_WithoutToken_Returns401(t *testing.T) {
	called := false
	svc := &mockBookmarkService{
		addFn: func(ctx context.Context, userID string, input model.BookmarkInput) (*model.Bookmark, error) {
			called = true
			return &model.Bookmark{}, nil
		},
	}
	router := newTestRouter(t, &RouterDeps{BookmarkService: svc})

	req := httptest.NewRequest(http.MethodPost, "/add-bookmark", strings.NewReader(`{"url":"example.com"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if called {
		t.Error("service should not be called without token")
	}
}

func TestRouter_AddBookmark_WithValidToken(t *testing.T) {
	var gotUserID string
	svc := &mockBookmarkService{
		addFn: func(ctx context.Context, userID string, input model.BookmarkInput) (*model.Bookmark, error) {
			gotUserID = userID
			return &model.Bookmark{ID: "bm-1", UserID: userID, URL: "https://example.com"}, nil
		},
	}
	router := newTestRouter(t, &RouterDeps{BookmarkService: svc})

	req := httptest.NewRequest(http.MethodPost, "/add-bookmark", strings.NewReader(`{"url":"example.com"}`))
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if gotUserID != "user-1" {
		t.Errorf("userID = %q, want user-1", gotUserID)
	}
}

func TestRouter_Login_Reachable(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"alice@example.com","password":"secret"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["token"] != "issued-token" {
		t.Errorf("token = %v", body["token"])
	}
}

func TestRouter_EnrichRoutes_Reachable(t *testing.T) {
	router := newTestRouter(t, nil)

	paths := []string{"/get-page-title", "/get-favicon", "/extract-keywords", "/extract-summary", "/enrich"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"url":"https://example.com"}`))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want 200: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestRouter_Healthz(t *testing.T) {
	t.Run("DB疎通あり", func(t *testing.T) {
		router := newTestRouter(t, &RouterDeps{DB: &mockDBPinger{}})

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("DB疎通なし", func(t *testing.T) {
		router := newTestRouter(t, &RouterDeps{DB: &mockDBPinger{pingErr: errors.New("connection refused")}})

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", w.Code)
		}
	})
}

func TestRouter_Metrics_Exposed(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
