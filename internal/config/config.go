package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DefaultFDSNBaseURL is the USGS ComCat FDSN event query endpoint.
const DefaultFDSNBaseURL = "https://earthquake.usgs.gov/fdsnws/event/1/query"

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// MaxDocumentBytes bounds a single QuakeML document, both on the HTTP
	// summary endpoint and in Kafka fetches.
	MaxDocumentBytes int64

	// FDSN event service configuration.
	FDSNBaseURL   string
	FDSNTimeout   time.Duration
	FDSNCacheSize int

	// SQLitePath enables the local event archive when non-empty.
	SQLitePath string
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

	fdsnTimeout, err := ParseFDSNTimeout()
	if err != nil {
		return nil, err
	}

	fdsnCacheSize, err := parsePositiveInt("FDSN_CACHE_SIZE", 64)
	if err != nil {
		return nil, err
	}

	maxDocBytes, err := parsePositiveInt("MAX_DOCUMENT_BYTES", 32<<20)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-quakeml-catalogs"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "resolved-quake-events"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "quake-data-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		MaxDocumentBytes:   int64(maxDocBytes),

		FDSNBaseURL:   sharedcfg.EnvOrDefault("FDSN_BASE_URL", DefaultFDSNBaseURL),
		FDSNTimeout:   fdsnTimeout,
		FDSNCacheSize: fdsnCacheSize,

		SQLitePath: os.Getenv("SQLITE_PATH"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if u, err := url.Parse(cfg.FDSNBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("invalid FDSN_BASE_URL: must be an absolute URL")
	}

	return cfg, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

// ParseFDSNTimeout reads FDSN_TIMEOUT, defaulting to 30s.
func ParseFDSNTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault("FDSN_TIMEOUT", "30s"))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid FDSN_TIMEOUT: must be a positive duration")
	}
	return d, nil
}
