package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	InputPath       string
	OutputDir       string
	HTTPAddr        string // empty disables the artifact server
	MetricsTextfile string // empty disables the textfile export
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Model settings.
	Seed          int64
	TestFraction  float64
	Contamination float64

	// Kafka anomaly publishing, enabled when KAFKA_BROKERS is set.
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaAnomalyTopic string

	// MinIO artifact upload, enabled when MINIO_ENDPOINT is set.
	MinioEnabled   bool
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Mapbox geocoding and map tiles.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	seed, err := strconv.ParseInt(sharedcfg.EnvOrDefault("MODEL_SEED", "42"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid MODEL_SEED")
	}

	testFraction, err := parseFraction("TEST_FRACTION", "0.2", 1)
	if err != nil {
		return nil, err
	}
	contamination, err := parseFraction("ANOMALY_CONTAMINATION", "0.05", 0.5)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	brokers := os.Getenv("KAFKA_BROKERS")
	minioEndpoint := os.Getenv("MINIO_ENDPOINT")

	cfg := &Config{
		InputPath:       sharedcfg.EnvOrDefault("INPUT_PATH", "GlobalWeatherRepository.csv"),
		OutputDir:       sharedcfg.EnvOrDefault("OUTPUT_DIR", "output"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		Seed:          seed,
		TestFraction:  testFraction,
		Contamination: contamination,

		KafkaEnabled:      brokers != "",
		KafkaBrokers:      sharedcfg.ParseBrokers(brokers),
		KafkaAnomalyTopic: sharedcfg.EnvOrDefault("KAFKA_ANOMALY_TOPIC", "weather-anomalies"),

		MinioEnabled:   minioEndpoint != "",
		MinioEndpoint:  minioEndpoint,
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    sharedcfg.EnvOrDefault("MINIO_BUCKET", "weather-eda"),
		MinioUseSSL:    os.Getenv("MINIO_USE_SSL") == "true",

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if cfg.InputPath == "" {
		return nil, errors.New("INPUT_PATH is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if cfg.KafkaEnabled && cfg.KafkaAnomalyTopic == "" {
		return nil, errors.New("KAFKA_ANOMALY_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.MinioEnabled && (cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "") {
		return nil, errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// parseFraction reads a value in the open interval (0, upper).
func parseFraction(key, def string, upper float64) (float64, error) {
	v, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, def), 64)
	if err != nil || v <= 0 || v >= upper {
		return 0, fmt.Errorf("invalid %s: must be between 0 and %v", key, upper)
	}
	return v, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
