package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/bukuma/internal/metrics"
	"github.com/hitoshi/bukuma/internal/middleware"
	"github.com/hitoshi/bukuma/internal/model"
)

// DBPinger はヘルスチェックが必要とするDB疎通確認のインターフェース。
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	TokenVerifier     middleware.TokenVerifier
	RateLimiter       *middleware.RateLimiter

	// サービス
	AuthService     AuthServiceInterface
	BookmarkService BookmarkServiceInterface

	// メタデータ抽出
	Titles      TitleExtractorInterface
	Favicons    FaviconFetcherInterface
	Keywords    KeywordExtractorInterface
	Summaries   SummaryExtractorInterface
	Coordinator EnrichCoordinatorInterface

	// 観測
	Metrics  metrics.MetricsCollector
	Gatherer prometheus.Gatherer

	// ヘルスチェック
	DB DBPinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → CORS → RateLimit(General) → [AuthMiddleware（認証ルートのみ）]
//
// 405はCORSヘッダー付きの統一JSONエラーで応答する（トップレベルミドルウェアは
// MethodNotAllowedにも適用され、インライングループの認証ミドルウェアは適用されない）。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusMethodNotAllowed, model.NewMethodNotAllowedError())
	})

	authHandler := NewAuthHandler(deps.AuthService, deps.Metrics)
	bookmarkHandler := NewBookmarkHandler(deps.BookmarkService, deps.Metrics)
	enrichHandler := NewEnrichHandler(deps.Titles, deps.Favicons, deps.Keywords, deps.Summaries, deps.Coordinator, deps.Metrics)

	// --- 観測用ルート（レート制限の外） ---

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if deps.DB != nil {
			if err := deps.DB.PingContext(req.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 認証不要のルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 認証
		r.Post("/login", authHandler.Login)
		r.Post("/signup", authHandler.Signup)

		// メタデータ抽出（抽出専用レート制限を追加）
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.EnrichMiddleware())

			r.Post("/get-page-title", enrichHandler.GetPageTitle)
			r.Post("/get-favicon", enrichHandler.GetFavicon)
			r.Post("/extract-keywords", enrichHandler.ExtractKeywords)
			r.Post("/extract-summary", enrichHandler.ExtractSummary)
			r.Post("/enrich", enrichHandler.Enrich)
		})
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Post("/add-bookmark", bookmarkHandler.AddBookmark)

		r.Route("/bookmarks", func(r chi.Router) {
			r.Get("/", bookmarkHandler.ListBookmarks)
			r.Delete("/{id}", bookmarkHandler.DeleteBookmark)
		})
	})

	return r
}
