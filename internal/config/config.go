package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Geocoding providers.
const (
	ProviderGoogle = "google"
	ProviderMapbox = "mapbox"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	MongoURI string
	MongoDB  string

	// Geocoding configuration. An empty GeocoderProvider disables geocoding.
	GeocoderProvider string
	GoogleMapsAPIKey string
	MapboxToken      string
	GeocoderTimeout  time.Duration
	GeocodeCacheSize int
	GeocodeCacheTTL  time.Duration

	// Shared geocode cache; empty RedisAddr keeps the cache in process.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Alert fan-out.
	KafkaBrokers       []string
	KafkaReportsTopic  string
	KafkaAlertsTopic   string
	KafkaGroupID       string
	AlertsEnabled      bool
	PublishTimeout     time.Duration
	BatchSize          int
	BatchFlushInterval time.Duration

	// Photo storage; empty MinIOEndpoint disables uploads.
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseTLS    bool
	PhotoMaxBytes  int64
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	geocoderTimeout, err := parsePositiveDuration("GEOCODER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parsePositiveDuration("GEOCODE_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}

	publishTimeout, err := parsePositiveDuration("PUBLISH_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	redisDB, err := parseNonNegativeInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	photoMaxBytes, err := parseNonNegativeInt("PHOTO_MAX_BYTES", 5<<20)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		CORSOrigins:     splitCSV(sharedcfg.EnvOrDefault("CORS_ORIGINS", "http://localhost:3000")),

		MongoURI: sharedcfg.EnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  sharedcfg.EnvOrDefault("MONGO_DB", "outage_alerts"),

		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		MapboxToken:      os.Getenv("MAPBOX_TOKEN"),
		GeocoderTimeout:  geocoderTimeout,
		GeocodeCacheSize: parseCacheSize(),
		GeocodeCacheTTL:  cacheTTL,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaReportsTopic: sharedcfg.EnvOrDefault("KAFKA_REPORTS_TOPIC", "outage-reports"),
		KafkaAlertsTopic:  sharedcfg.EnvOrDefault("KAFKA_ALERTS_TOPIC", "outage-alerts"),
		KafkaGroupID:      sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "outage-alert-service"),
		AlertsEnabled:     os.Getenv("ALERTS_ENABLED") == "true",
		PublishTimeout:    publishTimeout,
		BatchSize:         batchSize,

		BatchFlushInterval: flushInterval,

		MinIOEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:    sharedcfg.EnvOrDefault("MINIO_BUCKET", "outage-photos"),
		MinIOUseTLS:    os.Getenv("MINIO_USE_TLS") == "true",
		PhotoMaxBytes:  int64(photoMaxBytes),
	}

	provider, err := resolveProvider(cfg)
	if err != nil {
		return nil, err
	}
	cfg.GeocoderProvider = provider

	if cfg.MongoDB == "" {
		return nil, errors.New("MONGO_DB is required")
	}
	if cfg.AlertsEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when ALERTS_ENABLED is true")
		}
		if cfg.KafkaReportsTopic == "" || cfg.KafkaAlertsTopic == "" {
			return nil, errors.New("KAFKA_REPORTS_TOPIC and KAFKA_ALERTS_TOPIC are required when ALERTS_ENABLED is true")
		}
	}
	if cfg.MinIOEndpoint != "" && (cfg.MinIOAccessKey == "" || cfg.MinIOSecretKey == "") {
		return nil, errors.New("MINIO_ENDPOINT is set but MINIO_ACCESS_KEY or MINIO_SECRET_KEY is not")
	}

	return cfg, nil
}

// resolveProvider picks the geocoding provider. An explicit GEOCODER_PROVIDER
// must have its credential; otherwise the first configured credential wins.
func resolveProvider(cfg *Config) (string, error) {
	switch p := strings.ToLower(os.Getenv("GEOCODER_PROVIDER")); p {
	case "":
		if cfg.GoogleMapsAPIKey != "" {
			return ProviderGoogle, nil
		}
		if cfg.MapboxToken != "" {
			return ProviderMapbox, nil
		}
		return "", nil
	case "none":
		return "", nil
	case ProviderGoogle:
		if cfg.GoogleMapsAPIKey == "" {
			return "", errors.New("GEOCODER_PROVIDER is google but GOOGLE_MAPS_API_KEY is not set")
		}
		return p, nil
	case ProviderMapbox:
		if cfg.MapboxToken == "" {
			return "", errors.New("GEOCODER_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
		return p, nil
	default:
		return "", fmt.Errorf("invalid GEOCODER_PROVIDER %q", p)
	}
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseCacheSize() int {
	if s := os.Getenv("GEOCODE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
