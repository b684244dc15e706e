// Package app assembles the store, services and sync sources shared by the
// API server and syncctl.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"selfAPI/internal/config"
	"selfAPI/internal/feedsync"
	"selfAPI/internal/instagram"
	"selfAPI/internal/notification"
	"selfAPI/internal/stats"
	"selfAPI/internal/store"
	"selfAPI/internal/vercel"
	"selfAPI/internal/youtube"
	"selfAPI/services"
)

type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.Store
	Calendar *stats.Calendar
	Catalog  *services.Catalog
	Stats    *services.StatsService
	Syncs    *services.SyncService
}

// New connects to the configured store, prepares its schema and wires the
// services. Sync and HTTP metrics are registered on reg.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reg prometheus.Registerer) (*App, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("driver", cfg.StorageDriver).Msg("store ready")

	if cfg.AdminEnabled() {
		clerk.SetKey(cfg.ClerkSecretKey)
	} else {
		logger.Warn().Msg("CLERK_SECRET_KEY or ADMIN_EMAIL not set, admin routes are disabled")
	}

	cal := stats.NewCalendar(cfg.Location())
	catalog := services.NewCatalog(st, cal)
	statsSvc := services.NewStatsService(catalog, cal, cfg.CacheSizeMB, int(cfg.CacheTTL/time.Second), logger)
	catalog.OnChange(statsSvc.Invalidate)

	opts := []feedsync.Option{feedsync.WithRegisterer(reg)}
	if notifier := newNotifier(ctx, cfg, logger); notifier != nil {
		opts = append(opts, feedsync.WithNotifier(notifier))
	}
	syncer := feedsync.NewSyncer(st, logger, opts...)

	sources, err := newSources(ctx, cfg)
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}
	syncs := services.NewSyncService(syncer, sources...)
	syncs.SetOnChange(statsSvc.Invalidate)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    st,
		Calendar: cal,
		Catalog:  catalog,
		Stats:    statsSvc,
		Syncs:    syncs,
	}, nil
}

type schemaStore interface {
	store.Store
	EnsureSchema(ctx context.Context) error
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var st schemaStore

	switch cfg.StorageDriver {
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	case config.DriverPostgres:
		pool, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st = store.NewPostgresStore(pool)
	case config.DriverMongo:
		mst, err := store.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		st = mst
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	if err := st.EnsureSchema(ctx); err != nil {
		_ = st.Close(ctx)
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}
	return st, nil
}

func newSources(ctx context.Context, cfg *config.Config) ([]feedsync.Source, error) {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = cfg.SyncHTTPTimeout

	yt, err := youtube.New(ctx, youtube.Config{
		APIKey:     cfg.YouTubeAPIKey,
		ChannelID:  cfg.YouTubeChannelID,
		MaxPages:   cfg.YouTubeMaxPages,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}

	ig := instagram.New(instagram.Config{
		AccessToken: cfg.InstagramAccessToken,
		MaxPages:    cfg.InstagramMaxPages,
		HTTPClient:  httpClient,
	})

	vc := vercel.New(vercel.Config{
		Token:      cfg.VercelToken,
		TeamID:     cfg.VercelTeamID,
		HTTPClient: httpClient,
	})

	return []feedsync.Source{
		feedsync.NewYouTubeSource(yt),
		feedsync.NewInstagramSource(ig),
		feedsync.NewVercelSource(vc),
	}, nil
}

// newNotifier returns nil when push alerts are not configured or the
// Firebase client cannot start; syncs then run without alerts.
func newNotifier(ctx context.Context, cfg *config.Config, logger zerolog.Logger) feedsync.Notifier {
	if !cfg.NotificationsEnabled() {
		return nil
	}

	fcm, err := notification.NewFCMService(ctx, notification.FCMConfig{
		ServiceAccountJSON: cfg.FCMServiceAccountJSON,
		ServiceAccountFile: cfg.FCMServiceAccountFile,
		Topic:              cfg.FCMAdminTopic,
	}, logger)
	if err != nil {
		if !errors.Is(err, notification.ErrNotConfigured) {
			logger.Warn().Err(err).Msg("could not initialize FCM, sync alerts disabled")
		}
		return nil
	}

	logger.Info().Str("topic", cfg.FCMAdminTopic).Msg("FCM sync alerts enabled")
	return fcm
}

func (a *App) Close(ctx context.Context) error {
	return a.Store.Close(ctx)
}
