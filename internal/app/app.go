package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/quantum-grit/your-sofia/signal-service/internal/config"
	"github.com/quantum-grit/your-sofia/signal-service/internal/delivery/httpd"
	"github.com/quantum-grit/your-sofia/signal-service/internal/middleware"
	"github.com/quantum-grit/your-sofia/signal-service/internal/worker"
	"github.com/rs/zerolog"
)

type App struct {
	server         *http.Server
	logger         zerolog.Logger
	config         *config.Config
	db             *sql.DB
	services       *Services
	progressWorker worker.ProgressWorker
	stopWorker     context.CancelFunc
}

func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	services, err := NewServices(ctx, cfg, log, db)
	if err != nil {
		return nil, err
	}

	a := &App{
		logger:   log,
		config:   cfg,
		db:       db,
		services: services,
	}

	if cfg.Worker.Embedded && services.HasBroker() {
		progressWorker, err := services.NewProgressWorker()
		if err != nil {
			services.Close()
			return nil, err
		}
		a.progressWorker = progressWorker
	}

	handler := httpd.NewHandler(
		services.Signals,
		services.Assignments,
		services.Containers,
		services.Progress,
		services.Postgres,
		cfg.MinIO.MaxUploadSize,
		log,
	)

	a.server = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      NewRouter(cfg, log, handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return a, nil
}

// NewRouter stacks the middleware chain in front of the handler routes.
func NewRouter(cfg *config.Config, log zerolog.Logger, handler *httpd.Handler) chi.Router {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Recovery(log))
	router.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	router.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	router.Use(middleware.Actor)

	handler.RegisterRoutes(router)

	return router
}

// Run starts the embedded worker, if any, and blocks serving HTTP until the
// server is shut down.
func (a *App) Run() error {
	if a.progressWorker != nil {
		ctx, cancel := context.WithCancel(context.Background())
		if err := a.progressWorker.Start(ctx); err != nil {
			cancel()
			a.logger.Error().Err(err).Msg("Failed to start progress worker")
			return err
		}
		a.stopWorker = cancel
	}

	a.logger.Info().Msgf("Starting signal service on %s", a.config.Server.Address)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down signal service...")

	// Teardown continues past failures; the first error is returned.
	var firstErr error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error().Err(err).Msg("Failed to shutdown HTTP server")
			firstErr = err
		}
	}

	if a.progressWorker != nil && a.stopWorker != nil {
		if err := a.progressWorker.Stop(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to stop progress worker")
			if firstErr == nil {
				firstErr = err
			}
		}
		a.stopWorker()
		a.stopWorker = nil
	}

	if a.services != nil {
		a.services.Close()
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	a.logger.Info().Msg("Signal service stopped")
	return firstErr
}
