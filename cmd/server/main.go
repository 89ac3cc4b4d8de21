package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/otcheredev/clinic-console/internal/apiclient"
	"github.com/otcheredev/clinic-console/internal/cache"
	"github.com/otcheredev/clinic-console/internal/config"
	"github.com/otcheredev/clinic-console/internal/database"
	"github.com/otcheredev/clinic-console/internal/handlers"
	"github.com/otcheredev/clinic-console/internal/labimport"
	"github.com/otcheredev/clinic-console/internal/middleware"
	"github.com/otcheredev/clinic-console/internal/repository"
	"github.com/otcheredev/clinic-console/internal/services"
	"github.com/otcheredev/clinic-console/internal/session"
	"github.com/otcheredev/clinic-console/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("api", cfg.API.BaseURL).Msg("Starting clinic console")

	loc, err := cfg.Server.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid timezone")
	}

	// The database only holds audit entries and import history, so the
	// console can run without it.
	var audit services.AuditRecorder = services.NopAudit{}
	var runs *repository.ImportRunRepository
	if cfg.Database.Enabled {
		dbConfig := database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
			LogLevel: cfg.Database.LogLevel,
		}
		if err := database.Connect(dbConfig); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer database.Close()

		audit = repository.NewAuditRepository(database.DB)
		runs = repository.NewImportRunRepository(database.DB)
	} else {
		log.Warn().Msg("Database disabled, audit entries are not persisted")
	}

	var store cache.Cache
	if cfg.Cache.Enabled && cfg.Cache.Type == "redis" {
		store, err = cache.NewRedisCache(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		log.Info().Str("addr", cfg.Redis.Addr()).Msg("Redis session store initialized")
	} else {
		store = cache.NewMemoryCacheWithSweep(time.Minute)
		log.Info().Msg("Memory session store initialized")
	}
	defer store.Close()

	views, err := handlers.NewRenderer()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse templates")
	}

	opts := labimport.RegistryOptions{
		PreviewRows: cfg.Import.PreviewRows,
		TTL:         cfg.Import.JobTTL,
	}
	var history handlers.ImportHistory
	if runs != nil {
		opts.Recorder = runs
		history = runs
	}
	imports := labimport.NewRegistry(opts)

	deps := handlers.Deps{
		API: apiclient.New(apiclient.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout}),
		Sessions: session.NewManager(store, session.Options{
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
			Secure:     cfg.Session.Secure,
		}),
		Views:     views,
		Audit:     audit,
		Imports:   imports,
		History:   history,
		Store:     store,
		DB:        database.DB,
		MaxUpload: cfg.Import.MaxUpload,
		Location:  loc,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Content-Length", "Content-Type", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	handlers.Register(r, deps)

	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := imports.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Lab imports did not stop in time")
	}

	log.Info().Msg("Server stopped")
}
