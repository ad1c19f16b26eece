package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jgechelper/backend/api/controllers"
	"github.com/jgechelper/backend/api/middleware"
	"github.com/jgechelper/backend/internal/access"
	"github.com/jgechelper/backend/internal/auth"
	"github.com/jgechelper/backend/internal/dashboard"
	"github.com/jgechelper/backend/internal/maintenance"
	"github.com/jgechelper/backend/internal/notices"
	"github.com/jgechelper/backend/internal/resources"
	"github.com/jgechelper/backend/internal/uploads"
	"github.com/jgechelper/backend/internal/users"
	pkgAuth "github.com/jgechelper/backend/pkg/auth"
	"github.com/jgechelper/backend/pkg/auth/session"
	"github.com/jgechelper/backend/pkg/config"
	"github.com/jgechelper/backend/pkg/enums"
	"github.com/jgechelper/backend/pkg/logger"
	"github.com/jgechelper/backend/pkg/metrics"
)

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type maintenanceFeed interface {
	Current() *maintenance.Config
	Subscribe() (<-chan maintenance.Config, func())
}

// Deps carries every service the HTTP surface is built from.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Sessions    session.AccessSessionChecker
	RateLimiter rateLimiter
	Pingers     map[string]controllers.Pinger
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics

	Gate        *access.Gate
	Arrivals    *access.ArrivalStore
	Maintenance maintenanceFeed

	Auth      auth.Service
	Settings  maintenance.Service
	Resources resources.Service
	Notices   notices.Service
	Uploads   uploads.Service
	Users     users.Service
	Dashboard dashboard.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	resetPolicy := middleware.NewAuthRateLimitPolicy(
		"password-reset",
		cfg.AuthRateLimit.ResetWindow,
		cfg.AuthRateLimit.ResetIPLimit,
		cfg.AuthRateLimit.ResetEmailLimit,
	)

	requireAuth := middleware.Auth(cfg.JWT, d.Sessions, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, d.Sessions, logg)
	gate := middleware.Maintenance(middleware.MaintenanceParams{
		Gate:     d.Gate,
		Configs:  d.Maintenance,
		Arrivals: d.Arrivals,
		Metrics:  d.Metrics,
		Logger:   logg,
	})

	accessDeps := controllers.AccessDeps{
		Gate:     d.Gate,
		Configs:  d.Maintenance,
		Arrivals: d.Arrivals,
		Verify: func(ctx context.Context, token string) (*pkgAuth.AccessTokenClaims, error) {
			return middleware.VerifyAccessToken(ctx, cfg.JWT, d.Sessions, token)
		},
		Metrics:  d.Metrics,
		Logger:   logg,
		Upgrader: websocket.Upgrader{CheckOrigin: middleware.OriginChecker(cfg.App.CORSOrigins)},
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, d.Pingers, logg))
	})
	if d.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/session", controllers.AuthSession(d.Auth, logg))
		r.Post("/google", controllers.AuthGoogle(d.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, d.RateLimiter, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, d.RateLimiter, logg)).Post("/register", controllers.AuthRegister(d.Auth, logg))
		r.With(middleware.AuthRateLimit(resetPolicy, d.RateLimiter, logg)).Post("/password-reset", controllers.AuthPasswordReset(d.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
		r.With(requireAuth).Post("/logout", controllers.AuthLogout(d.Auth, logg))
		r.With(requireAuth).Get("/me", controllers.AuthMe(d.Auth, logg))
	})

	r.Route("/api/public/v1", func(r chi.Router) {
		r.Use(optionalAuth)
		r.Get("/access", controllers.AccessDecision(accessDeps))
		r.Get("/access/stream", controllers.AccessStream(accessDeps))
		r.Get("/maintenance", controllers.PublicMaintenance(d.Maintenance, d.Settings, logg))

		r.Group(func(r chi.Router) {
			r.Use(gate)
			r.Get("/resources", controllers.PublicResourceList(d.Resources, logg))
			r.Get("/resources/catalog", controllers.PublicResourceCatalog(d.Resources, logg))
			r.Get("/notices", controllers.PublicNoticeList(d.Notices, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole(enums.RoleAdmin, logg))

		r.Get("/settings", controllers.AdminSettingsGet(d.Settings, logg))
		r.Put("/settings", controllers.AdminSettingsUpdate(d.Settings, logg))

		r.Post("/upload", controllers.AdminUpload(d.Uploads, cfg.Upload.MaxBytes(), logg))

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", controllers.AdminResourceList(d.Resources, logg))
			r.Post("/", controllers.AdminResourceCreate(d.Resources, logg))
			r.Patch("/{resourceId}/visibility", controllers.AdminResourceToggleVisibility(d.Resources, logg))
			r.Delete("/{resourceId}", controllers.AdminResourceDelete(d.Resources, logg))
		})

		r.Route("/notices", func(r chi.Router) {
			r.Get("/", controllers.AdminNoticeList(d.Notices, logg))
			r.Post("/", controllers.AdminNoticeCreate(d.Notices, logg))
			r.Patch("/{noticeId}/visibility", controllers.AdminNoticeToggleVisibility(d.Notices, logg))
			r.Delete("/{noticeId}", controllers.AdminNoticeDelete(d.Notices, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminUserList(d.Users, logg))
			r.Put("/{userId}/status", controllers.AdminUserSetStatus(d.Users, logg))
		})

		r.Get("/dashboard/stats", controllers.AdminDashboardStats(d.Dashboard, logg))
		r.Get("/dashboard/activity", controllers.AdminDashboardActivity(d.Dashboard, logg))
	})

	return r
}
