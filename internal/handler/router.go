package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/clubdesk/internal/metrics"
	"github.com/hitoshi/clubdesk/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger
	Collector         metrics.MetricsCollector

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 在室台帳
	PresenceService PresenceServiceInterface
	PresenceHistory PresenceHistoryInterface

	// お知らせ
	AnnouncementService AnnouncementServiceInterface

	// イベント・送迎
	EventService EventServiceInterface
	RideService  RideServiceInterface

	// 活動報告・プロジェクト
	ServiceLogService ServiceLogServiceInterface
	ProjectService    ProjectServiceInterface

	// 部員名簿
	MemberService MemberServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → CSRF → [Session → RateLimit(General)]
//
// 認証ルート（/auth/*）はセッションミドルウェアの外に置き、IP単位のレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	presenceHandler := NewPresenceHandler(deps.PresenceService, deps.PresenceHistory)
	announcementHandler := NewAnnouncementHandler(deps.AnnouncementService)
	eventHandler := NewEventHandler(deps.EventService)
	rideHandler := NewRideHandler(deps.RideService)
	serviceLogHandler := NewServiceLogHandler(deps.ServiceLogService)
	projectHandler := NewProjectHandler(deps.ProjectService)
	memberHandler := NewMemberHandler(deps.MemberService)

	// --- 認証不要のルート ---

	r.Get("/health", handleHealth)
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		// 登録・ログインにはIP単位の総当たり対策レート制限を適用
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/register", authHandler.Register)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 在室台帳
		r.Route("/api/presence", func(r chi.Router) {
			r.Post("/checkin", presenceHandler.CheckIn)
			r.Post("/checkout", presenceHandler.CheckOut)
			r.Get("/status", presenceHandler.Status)
			r.Get("/active", presenceHandler.ListActive)
			r.Get("/summary", presenceHandler.Summary)
			r.Get("/history", presenceHandler.History)

			// 管理者専用
			r.Group(func(r chi.Router) {
				r.Use(middleware.NewAdminMiddleware())
				r.Post("/members/{memberID}/checkout", presenceHandler.ForceCheckOut)
				r.Post("/sweep", presenceHandler.Sweep)
			})
		})

		// お知らせ
		r.Route("/api/announcements", func(r chi.Router) {
			r.Get("/", announcementHandler.List)
			r.Get("/{id}", announcementHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.NewAdminMiddleware())
				r.Post("/", announcementHandler.Create)
				r.Put("/{id}", announcementHandler.Update)
				r.Delete("/{id}", announcementHandler.Delete)
			})
		})

		// イベント・参加申込・送迎
		r.Route("/api/events", func(r chi.Router) {
			r.Get("/", eventHandler.ListUpcoming)
			r.Get("/signups/mine", eventHandler.MySignups)

			r.Group(func(r chi.Router) {
				r.Use(middleware.NewAdminMiddleware())
				r.Post("/", eventHandler.Create)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", eventHandler.Get)
				r.Post("/signup", eventHandler.SignUp)
				r.Delete("/signup", eventHandler.CancelSignup)

				r.Route("/rides", func(r chi.Router) {
					r.Post("/requests", rideHandler.RequestRide)
					r.Post("/offers", rideHandler.OfferRide)
					r.Get("/matches", rideHandler.ListMatches)

					r.Group(func(r chi.Router) {
						r.Use(middleware.NewAdminMiddleware())
						r.Get("/candidates", rideHandler.ListCandidates)
						r.Post("/matches", rideHandler.ConfirmMatch)
					})
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.NewAdminMiddleware())
					r.Put("/", eventHandler.Update)
					r.Delete("/", eventHandler.Delete)
				})
			})
		})

		// 月次活動報告
		r.Route("/api/service-logs", func(r chi.Router) {
			r.Post("/", serviceLogHandler.Submit)
			r.Get("/", serviceLogHandler.ListMine)

			r.Group(func(r chi.Router) {
				r.Use(middleware.NewAdminMiddleware())
				r.Get("/pending", serviceLogHandler.ListPending)
				r.Post("/{id}/review", serviceLogHandler.Review)
			})
		})

		// 個人奉仕プロジェクト
		r.Route("/api/projects", func(r chi.Router) {
			r.Post("/", projectHandler.Submit)
			r.Get("/", projectHandler.ListMine)

			r.Group(func(r chi.Router) {
				r.Use(middleware.NewAdminMiddleware())
				r.Get("/pending", projectHandler.ListPending)
				r.Post("/{id}/review", projectHandler.Review)
			})
		})

		// 部員
		r.Route("/api/members", func(r chi.Router) {
			r.Get("/me", authHandler.Me)

			r.Group(func(r chi.Router) {
				r.Use(middleware.NewAdminMiddleware())
				r.Get("/", memberHandler.List)
			})
		})
	})

	return r
}

// handleHealth はヘルスチェックエンドポイント。
// GET /health
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
