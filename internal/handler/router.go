package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnhPhix3405/bpsclub-web/internal/middleware"
	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	HealthChecker      HealthChecker
	SessionFinder      middleware.SessionFinder
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter
	CSRFConfig         middleware.CSRFConfig
	HTTPMetrics        middleware.HTTPMetrics
	MetricsHandler     http.Handler // nilの場合 /metrics は公開しない
	EnableHSTS         bool

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	EventService   EventServiceInterface
	BlogService    BlogServiceInterface
	ContactService ContactServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → CORS → RateLimit(General) → CSRF → Session(管理APIのみ)
//
// カウンター加算はCSRF検証の外に置く。フォーム送信とログインには専用のレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.EnableHSTS))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.HTTPMetrics))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	eventHandler := NewEventHandler(deps.EventService, logger)
	blogHandler := NewBlogHandler(deps.BlogService, logger)
	contactHandler := NewContactHandler(deps.ContactService, logger)
	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, logger)
	health := NewHealthHandler(deps.HealthChecker, logger)

	csrf := middleware.NewCSRFMiddleware(deps.CSRFConfig, logger)
	session := middleware.NewSessionMiddleware(deps.SessionFinder, logger)

	// --- 運用エンドポイント ---
	r.Get("/health", health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "NOT_FOUND",
			Message:  "指定されたエンドポイントは存在しません。",
			Category: "system",
			Action:   "URLを確認してください。",
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/health", health)
		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig, logger))

		// --- カウンター加算（CSRF検証なし） ---
		r.Post("/events/{ref}/views", eventHandler.Increment(model.CounterViews))
		r.Post("/events/{ref}/likes", eventHandler.Increment(model.CounterLikes))
		r.Post("/events/{ref}/comments", eventHandler.Increment(model.CounterComments))
		r.Post("/blogs/slug/{slug}/views", blogHandler.IncrementViews)

		r.Group(func(r chi.Router) {
			r.Use(csrf)

			// イベント
			r.Get("/events/get-all", eventHandler.List)
			r.Get("/events/categories", eventHandler.ListCategories)
			r.Get("/events/categories/{id}", eventHandler.GetCategory)
			r.Get("/events/{ref}", eventHandler.Get)

			// ブログ
			r.Get("/blogs/get-all-published", blogHandler.ListPublished)
			r.Get("/blogs/categories", blogHandler.ListCategories)
			r.Get("/blogs/tags", blogHandler.ListTags)
			r.Get("/blogs/rss", blogHandler.RSS)
			r.Get("/blogs/slug/{slug}", blogHandler.GetBySlug)

			// お問い合わせ・入会申込（フォーム専用レート制限を追加）
			r.Get("/blockchain-areas/get-all", contactHandler.ListAreas)
			r.With(deps.RateLimiter.FormMiddleware()).Post("/contacts/create", contactHandler.SubmitContact)
			r.With(deps.RateLimiter.FormMiddleware()).Post("/registrations/create", contactHandler.SubmitRegistration)

			// 認証
			r.Route("/auth", func(r chi.Router) {
				r.With(deps.RateLimiter.FormMiddleware()).Post("/login", authHandler.Login)
				r.Post("/logout", authHandler.Logout)
				r.With(session).Post("/logout-all", authHandler.LogoutAll)
				r.With(session).Get("/me", authHandler.Me)
			})

			// --- 管理API（セッション必須） ---
			r.Route("/admin", func(r chi.Router) {
				r.Use(session)

				r.Route("/events", func(r chi.Router) {
					r.Get("/", eventHandler.AdminList)
					r.Post("/", eventHandler.Create)
					r.Post("/categories", eventHandler.CreateCategory)
					r.Delete("/categories/{id}", eventHandler.DeleteCategory)
					r.Get("/{ref}", eventHandler.AdminGet)
					r.Put("/{ref}", eventHandler.Update)
					r.Delete("/{ref}", eventHandler.Delete)
				})

				r.Route("/blogs", func(r chi.Router) {
					r.Get("/", blogHandler.AdminList)
					r.Post("/", blogHandler.Create)
					r.Get("/{ref}", blogHandler.AdminGet)
					r.Put("/{ref}", blogHandler.Update)
					r.Delete("/{ref}", blogHandler.Delete)
					r.Post("/{ref}/publish", blogHandler.Publish)
				})

				r.Get("/contacts", contactHandler.ListContacts)
				r.Get("/registrations", contactHandler.ListRegistrations)
			})
		})
	})

	return r
}
