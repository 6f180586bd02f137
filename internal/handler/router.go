package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/hackorsnooze/internal/metrics"
	"github.com/hitoshi/hackorsnooze/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	HTTPMetrics       metrics.HTTPRecorder

	// ヘルスチェック・メトリクス
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// サービス
	AccountService AccountServiceInterface
	CatalogService CatalogServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → Logging → SecurityHeaders → CORS → Metrics → RateLimit(General, Write)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpMetrics := deps.HTTPMetrics
	if httpMetrics == nil {
		httpMetrics = metrics.Nop{}
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewMetricsMiddleware(httpMetrics))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, "エンドポイントが見つかりません。")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusMethodNotAllowed, "許可されていないメソッドです。")
	})

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	storyHandler := NewStoryHandler(deps.CatalogService, deps.AccountService)
	userHandler := NewUserHandler(deps.AccountService, deps.CatalogService)

	// --- API ---
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
			r.Use(deps.RateLimiter.WriteMiddleware())
		}

		r.Post("/signup", userHandler.Signup)
		r.Post("/login", userHandler.Login)

		r.Route("/stories", func(r chi.Router) {
			r.Get("/", storyHandler.ListStories)
			r.Post("/", storyHandler.CreateStory)

			r.Route("/{storyId}", func(r chi.Router) {
				r.Get("/", storyHandler.GetStory)
				r.Delete("/", storyHandler.DeleteStory)
			})
		})

		r.Route("/users/{username}", func(r chi.Router) {
			r.Get("/", userHandler.GetUser)
			r.Post("/favorites/{storyId}", userHandler.AddFavorite)
			r.Delete("/favorites/{storyId}", userHandler.RemoveFavorite)
		})
	})

	return r
}
