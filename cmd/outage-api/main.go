package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/outage-alert-service/internal/adapter/geocache"
	"github.com/couchcryptid/outage-alert-service/internal/adapter/googlemaps"
	httpadapter "github.com/couchcryptid/outage-alert-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/outage-alert-service/internal/adapter/kafka"
	"github.com/couchcryptid/outage-alert-service/internal/adapter/mapbox"
	minioadapter "github.com/couchcryptid/outage-alert-service/internal/adapter/minio"
	"github.com/couchcryptid/outage-alert-service/internal/adapter/mongodb"
	"github.com/couchcryptid/outage-alert-service/internal/config"
	"github.com/couchcryptid/outage-alert-service/internal/domain"
	"github.com/couchcryptid/outage-alert-service/internal/observability"
	"github.com/couchcryptid/outage-alert-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDB, logger)
	if err != nil {
		logger.Error("failed to connect to mongodb", "error", err)
		os.Exit(1)
	}

	geocoder, closeCache := newGeocoder(ctx, cfg, metrics, logger)

	opts := []domain.IngesterOption{domain.WithObserver(metrics)}
	var (
		publisher *kafkaadapter.ReportPublisher
		reader    *kafkaadapter.Reader
		writer    *kafkaadapter.AlertWriter
		p         *pipeline.Pipeline
	)
	profiles := domain.NewProfileService(db.Profiles())
	if cfg.AlertsEnabled {
		publisher = kafkaadapter.NewReportPublisher(cfg, logger)
		opts = append(opts, domain.WithPublisher(publisher), domain.WithPublishTimeout(cfg.PublishTimeout))

		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewAlertWriter(cfg, logger)
		p = pipeline.New(reader, profiles, writer, logger, metrics, cfg.BatchSize)
		logger.Info("alert fan-out enabled", "reports_topic", cfg.KafkaReportsTopic, "alerts_topic", cfg.KafkaAlertsTopic)
	} else {
		logger.Info("alert fan-out disabled")
	}

	ingester := domain.NewIngester(db.Users(), geocoder, db.Reports(), logger, opts...)

	svc := httpadapter.Services{
		Reports:  ingester,
		Profiles: profiles,
		Ready:    db,
	}
	if photos := newPhotoStore(ctx, cfg, logger); photos != nil {
		svc.Photos = photos
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, httpadapter.Options{
		CORSOrigins:   cfg.CORSOrigins,
		PhotoMaxBytes: cfg.PhotoMaxBytes,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start alert pipeline.
	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	closeCache()
	if err := db.Close(shutdownCtx); err != nil {
		logger.Error("mongodb disconnect error", "error", err)
	}

	logger.Info("shutdown complete")
}

// newGeocoder builds the configured provider behind a cache. It returns a nil
// geocoder when geocoding is disabled; the returned func releases the cache.
func newGeocoder(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (domain.Geocoder, func()) {
	var inner domain.Geocoder
	switch cfg.GeocoderProvider {
	case config.ProviderGoogle:
		inner = googlemaps.NewClient(cfg.GoogleMapsAPIKey, cfg.GeocoderTimeout, metrics, logger)
	case config.ProviderMapbox:
		inner = mapbox.NewClient(cfg.MapboxToken, cfg.GeocoderTimeout, metrics, logger)
	default:
		metrics.GeocodeEnabled.Set(0)
		logger.Info("geocoding disabled")
		return nil, func() {}
	}
	metrics.GeocodeEnabled.Set(1)

	if cfg.RedisAddr == "" {
		logger.Info("geocoding enabled",
			"provider", cfg.GeocoderProvider,
			"cache", "memory",
			"cache_size", cfg.GeocodeCacheSize,
			"timeout", cfg.GeocoderTimeout,
		)
		return geocache.NewCachedGeocoder(inner, geocache.NewMemoryBackend(cfg.GeocodeCacheSize), metrics, logger), func() {}
	}

	rdb := geocache.NewRedisClient(geocache.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Timeout:  time.Second,
	})
	backend := geocache.NewRedisBackend(rdb, cfg.GeocodeCacheTTL)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := backend.Ping(pingCtx); err != nil {
		// Lookups fall through to the provider while Redis is down.
		logger.Warn("redis geocode cache unreachable", "addr", cfg.RedisAddr, "error", err)
	}
	logger.Info("geocoding enabled",
		"provider", cfg.GeocoderProvider,
		"cache", "redis",
		"cache_ttl", cfg.GeocodeCacheTTL,
		"timeout", cfg.GeocoderTimeout,
	)
	return geocache.NewCachedGeocoder(inner, backend, metrics, logger), func() {
		if err := rdb.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}
}

// newPhotoStore returns nil when photo storage is not configured or the
// bucket cannot be prepared; uploads then answer 503.
func newPhotoStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) *minioadapter.PhotoStore {
	if cfg.MinIOEndpoint == "" {
		logger.Info("photo uploads disabled")
		return nil
	}
	store, err := minioadapter.NewPhotoStore(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseTLS, cfg.MinIOBucket, logger)
	if err != nil {
		logger.Error("photo storage init failed", "error", err)
		return nil
	}
	bctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.EnsureBucket(bctx); err != nil {
		logger.Error("photo bucket not ready, uploads disabled", "bucket", cfg.MinIOBucket, "error", err)
		return nil
	}
	logger.Info("photo uploads enabled", "endpoint", cfg.MinIOEndpoint, "bucket", cfg.MinIOBucket)
	return store
}
