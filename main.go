package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"selfAPI/handlers"
	"selfAPI/internal/app"
	"selfAPI/internal/config"
	"selfAPI/internal/logging"
	"selfAPI/internal/workers"
	"selfAPI/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to build logger")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	a, err := app.New(ctx, cfg, logger, prometheus.DefaultRegisterer)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer func() {
		logger.Info().Msg("closing store...")
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Error().Err(err).Msg("failed to close store")
		}
	}()

	requireAdmin := mux.MiddlewareFunc(middleware.DisabledAdmin)
	optionalAdmin := mux.MiddlewareFunc(func(next http.Handler) http.Handler { return next })
	if cfg.AdminEnabled() {
		auth := middleware.NewAdminAuth(cfg.AdminEmail, cfg.AdminLoginURL, logger)
		requireAdmin = auth.RequireAdmin
		optionalAdmin = auth.OptionalAdmin
	}

	monitor := middleware.NewMonitor(prometheus.DefaultRegisterer)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.TrustedProxyPrefixes())

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go limiter.Cleanup(bgCtx)

	if cfg.SyncInterval > 0 {
		workers.StartSyncWorker(bgCtx, a.Syncs, cfg.SyncInterval, 2*time.Minute, logger)
	}

	r := mux.NewRouter()
	r.Use(limiter.Middleware)
	r.Use(monitor.Middleware)

	r.Handle("/metrics", middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := a.Store.Ping(ctx); err != nil {
			logger.Error().Err(err).Msg("health check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	}).Methods(http.MethodGet)

	routes := &handlers.Routes{
		Content:       handlers.NewContentHandler(a.Catalog, a.Syncs, logger),
		Stats:         handlers.NewStatsHandler(a.Stats, logger),
		Sync:          handlers.NewSyncHandler(a.Syncs, logger),
		RequireAdmin:  requireAdmin,
		OptionalAdmin: optionalAdmin,
	}
	routes.Register(r)

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(cfg.AllowedOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length", handlers.SyncStatusHeader}),
		gorillaHandlers.AllowCredentials(),
	)

	port := ":" + cfg.Port
	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(gzhttp.GzipHandler(r)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 2*time.Minute + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", port).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("error starting server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}

	logger.Info().Msg("server shutdown complete")
}
