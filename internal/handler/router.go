package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/graphql-go/graphql"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bearfolio/bearfolio/internal/graph"
	"github.com/bearfolio/bearfolio/internal/metrics"
	"github.com/bearfolio/bearfolio/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenValidator     middleware.TokenValidator
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter
	Logger             *slog.Logger
	Metrics            middleware.HTTPRecorder

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// GraphQL
	Schema         graphql.Schema
	EnableGraphiQL bool

	// ヘルスチェックとメトリクス
	DB       Pinger
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging → Metrics
//
// GraphQLルートにはさらに Session → RateLimit を適用する。
// セッションは任意（匿名は公開データのみ閲覧可能）なため、
// 認証の強制はリゾルバー側で行う。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	healthHandler := NewHealthHandler(deps.DB)
	graphqlHandler := graph.NewHTTPHandler(deps.Schema, deps.EnableGraphiQL)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", metrics.Handler(deps.Gatherer))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/exchange", authHandler.Exchange)
		r.Post("/logout", authHandler.Logout)

		r.With(middleware.NewSessionMiddleware(deps.TokenValidator)).
			Get("/me", authHandler.Me)
	})

	// 旧クライアント向けの別名。/auth/exchange と同じ処理。
	r.Post("/exchange", authHandler.Exchange)

	// --- GraphQL ---
	// Session → RateLimit。セッションは任意で、資格情報が提示された
	// 場合のみ検証する（不正なトークンは401）。
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.TokenValidator))
		r.Use(deps.RateLimiter.Middleware())

		r.Handle("/graphql", graphqlHandler)
	})

	return r
}
