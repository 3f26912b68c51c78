package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/storm-plots-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Image store.
	ImagesDir      string
	ImagesBucket   string
	ImageCacheSize int
	JPEGQuality    int

	// Upstream feeds.
	HTTPTimeout  time.Duration
	NHCStormsURL string
	ATCFBaseURL  string
	HAFSBaseURL  string
	HAFSModels   []string

	// Batch run.
	PlotKinds       []domain.PlotKind
	BasemapGeoJSON  string
	SnapshotDir     string
	MetricsTextfile string

	// Plot notifications.
	KafkaBrokers []string
	KafkaEnabled bool
	KafkaTopic   string
}

// LoadDotEnv loads a .env file from the working directory if one exists.
// Variables already set in the environment win.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	httpTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("HTTP_TIMEOUT", "30s"))
	if err != nil || httpTimeout <= 0 {
		return nil, errors.New("invalid HTTP_TIMEOUT")
	}

	cacheSize, err := parseNonNegativeInt("IMAGE_CACHE_SIZE", 64)
	if err != nil {
		return nil, err
	}

	quality, err := parseNonNegativeInt("JPEG_QUALITY", 90)
	if err != nil || quality < 1 || quality > 100 {
		return nil, errors.New("invalid JPEG_QUALITY: must be 1-100")
	}

	kinds, err := domain.ParsePlotKinds(sharedcfg.EnvOrDefault("PLOT_KINDS", "all"))
	if err != nil {
		return nil, fmt.Errorf("invalid PLOT_KINDS: %w", err)
	}

	brokers := os.Getenv("KAFKA_BROKERS")
	kafkaEnabled := brokers != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ImagesDir:      sharedcfg.EnvOrDefault("IMAGES_DIR", "images"),
		ImagesBucket:   os.Getenv("IMAGES_BUCKET"),
		ImageCacheSize: cacheSize,
		JPEGQuality:    quality,

		HTTPTimeout:  httpTimeout,
		NHCStormsURL: sharedcfg.EnvOrDefault("NHC_STORMS_URL", "https://www.nhc.noaa.gov/CurrentStorms.json"),
		ATCFBaseURL:  strings.TrimRight(sharedcfg.EnvOrDefault("ATCF_BASE_URL", "https://ftp.nhc.noaa.gov/atcf"), "/"),
		HAFSBaseURL:  strings.TrimRight(sharedcfg.EnvOrDefault("HAFS_BASE_URL", "https://nomads.ncep.noaa.gov/pub/data/nccf/com/hafs/prod"), "/"),
		HAFSModels:   splitList(sharedcfg.EnvOrDefault("HAFS_MODELS", "hfsa,hfsb")),

		PlotKinds:       kinds,
		BasemapGeoJSON:  os.Getenv("BASEMAP_GEOJSON"),
		SnapshotDir:     sharedcfg.EnvOrDefault("SNAPSHOT_DIR", "."),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),

		KafkaEnabled: kafkaEnabled,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "storm-plots"),
	}

	if brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, errors.New("invalid LOG_FORMAT: must be json or text")
	}
	if cfg.ImagesDir == "" && cfg.ImagesBucket == "" {
		return nil, errors.New("IMAGES_DIR or IMAGES_BUCKET is required")
	}
	if len(cfg.HAFSModels) == 0 {
		return nil, errors.New("HAFS_MODELS is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when Kafka is enabled")
	}

	return cfg, nil
}

func parseNonNegativeInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative integer", key)
	}
	return n, nil
}

// splitList splits a comma-separated list, dropping blanks and lower-casing.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
