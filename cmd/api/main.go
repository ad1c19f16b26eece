package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/jgechelper/backend/api/controllers"
	"github.com/jgechelper/backend/api/routes"
	"github.com/jgechelper/backend/internal/access"
	"github.com/jgechelper/backend/internal/auth"
	"github.com/jgechelper/backend/internal/dashboard"
	"github.com/jgechelper/backend/internal/identity"
	"github.com/jgechelper/backend/internal/maintenance"
	"github.com/jgechelper/backend/internal/notices"
	"github.com/jgechelper/backend/internal/resources"
	"github.com/jgechelper/backend/internal/uploads"
	"github.com/jgechelper/backend/internal/users"
	"github.com/jgechelper/backend/pkg/auth/session"
	"github.com/jgechelper/backend/pkg/config"
	"github.com/jgechelper/backend/pkg/db"
	"github.com/jgechelper/backend/pkg/firebase"
	"github.com/jgechelper/backend/pkg/logger"
	"github.com/jgechelper/backend/pkg/metrics"
	"github.com/jgechelper/backend/pkg/migrate"
	"github.com/jgechelper/backend/pkg/redis"
	"github.com/jgechelper/backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

// stores groups the repositories of whichever document backend is configured.
type stores struct {
	users       users.Repository
	resources   resources.Repository
	notices     notices.Repository
	settings    maintenance.Store
	source      maintenance.Source
	notifier    *redis.Client
	storePinger controllers.Pinger
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "jgechelper-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "jgechelper-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.Store.Driver})

	loc, err := cfg.App.Location()
	requireResource(ctx, logg, "timezone", err)

	var closers []func() error
	defer func() {
		var errs error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = multierr.Append(errs, closers[i]())
		}
		if errs != nil {
			logg.Error(context.Background(), "shutdown.close_failed", errs)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	closers = append(closers, redisClient.Close)

	fbApp, err := firebase.New(ctx, cfg.Firebase, !cfg.Store.UsesSQL(), logg)
	requireResource(ctx, logg, "firebase", err)
	closers = append(closers, fbApp.Close)

	st := stores{}
	if cfg.Store.UsesSQL() {
		dbClient, err := db.New(ctx, cfg.Store.Driver, cfg.DB, logg)
		requireResource(ctx, logg, "database", err)
		closers = append(closers, dbClient.Close)
		requireResource(ctx, logg, "migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

		settings := maintenance.NewSQLStore(dbClient)
		st = stores{
			users:       users.NewSQLRepository(dbClient.DB()),
			resources:   resources.NewSQLRepository(dbClient.DB()),
			notices:     notices.NewSQLRepository(dbClient.DB()),
			settings:    settings,
			source:      maintenance.NewNotifyingSource(settings, redisClient, cfg.Maintenance.Channel, cfg.Maintenance.ResyncInterval),
			notifier:    redisClient,
			storePinger: dbClient,
		}
	} else {
		fs := fbApp.Firestore()
		st = stores{
			users:       users.NewFirestoreRepository(fs),
			resources:   resources.NewFirestoreRepository(fs),
			notices:     notices.NewFirestoreRepository(fs),
			settings:    maintenance.NewFirestoreStore(fs),
			source:      maintenance.NewFirestoreSource(fs),
			storePinger: fbApp,
		}
	}

	blobs, err := gcs.NewClient(ctx, fbApp.StorageBucket(), fbApp.ClientOptions(), logg)
	requireResource(ctx, logg, "storage", err)
	closers = append(closers, blobs.Close)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	provider, err := identity.NewFirebaseProvider(ctx, identity.FirebaseParams{
		Auth:       fbApp.Auth(),
		WebAPIKey:  cfg.Firebase.WebAPIKey,
		RequestURI: cfg.Firebase.RequestURI,
	})
	requireResource(ctx, logg, "identity provider", err)

	resolver, err := auth.NewResolver(auth.ResolverParams{
		Users:       st.users,
		Provider:    provider,
		Sessions:    sessions,
		AdminEmails: cfg.Auth.AdminEmails,
		Metrics:     appMetrics,
		Logger:      logg,
	})
	requireResource(ctx, logg, "role resolver", err)

	authService, err := auth.NewService(auth.ServiceParams{
		Provider:       provider,
		Resolver:       resolver,
		Users:          st.users,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		AuthConfig:     cfg.Auth,
		Logger:         logg,
	})
	requireResource(ctx, logg, "auth service", err)

	watcher, err := maintenance.NewWatcher(maintenance.WatcherParams{
		Source:       st.source,
		Location:     loc,
		DefaultEmail: cfg.Maintenance.DefaultContactEmail,
		LoadTimeout:  cfg.Maintenance.LoadTimeout,
		Logger:       logg,
		Metrics:      appMetrics,
	})
	requireResource(ctx, logg, "maintenance watcher", err)
	watcher.Start(ctx)
	closers = append(closers, watcher.Close)

	settingsParams := maintenance.ServiceParams{
		Store:        st.settings,
		Channel:      cfg.Maintenance.Channel,
		Location:     loc,
		DefaultEmail: cfg.Maintenance.DefaultContactEmail,
		Logger:       logg,
	}
	if st.notifier != nil {
		settingsParams.Notifier = st.notifier
	}
	settingsService, err := maintenance.NewService(settingsParams)
	requireResource(ctx, logg, "settings service", err)

	resourceService, err := resources.NewService(resources.ServiceParams{Repo: st.resources, Blobs: blobs, Logger: logg})
	requireResource(ctx, logg, "resources service", err)

	noticeService, err := notices.NewService(notices.ServiceParams{Repo: st.notices, Blobs: blobs, Logger: logg})
	requireResource(ctx, logg, "notices service", err)

	uploadService, err := uploads.NewService(uploads.ServiceParams{
		Store:         blobs,
		MaxBytes:      cfg.Upload.MaxBytes(),
		DefaultFolder: cfg.Upload.DefaultDir,
		Metrics:       appMetrics,
		Logger:        logg,
	})
	requireResource(ctx, logg, "upload service", err)

	userService, err := users.NewService(users.ServiceParams{
		Repo:     st.users,
		Provider: provider,
		Sessions: sessions,
		Logger:   logg,
	})
	requireResource(ctx, logg, "users service", err)

	dashboardService, err := dashboard.NewService(dashboard.ServiceParams{
		Users:     st.users,
		Resources: st.resources,
		Notices:   st.notices,
		Cache:     redisClient,
		CacheTTL:  time.Duration(cfg.FeatureFlags.StatsCacheTTLS) * time.Second,
		Logger:    logg,
	})
	requireResource(ctx, logg, "dashboard service", err)

	handler := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Sessions:    sessions,
		RateLimiter: redisClient,
		Pingers: map[string]controllers.Pinger{
			"store":   st.storePinger,
			"redis":   redisClient,
			"storage": blobs,
		},
		Registry:    registry,
		Metrics:     appMetrics,
		Gate:        access.NewGate(cfg.Auth.SuperAdminEmails, cfg.Auth.LoginRoute),
		Arrivals:    access.NewArrivalStore(cfg.Maintenance.ArrivalCookie, cfg.Maintenance.ArrivalCookieTTL, cfg.App.IsProd()),
		Maintenance: watcher,
		Auth:        authService,
		Settings:    settingsService,
		Resources:   resourceService,
		Notices:     noticeService,
		Uploads:     uploadService,
		Users:       userService,
		Dashboard:   dashboardService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithField(ctx, "addr", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
