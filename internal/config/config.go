package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the application.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// MetricsAddr is the listen address for the Prometheus metrics server.
	MetricsAddr string

	// DatabasePath is the SQLite database file path.
	DatabasePath string

	// Cloudinary credentials. Uploads are rejected with 503 when unset.
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	// TTL is how long a post stays live after creation.
	TTL time.Duration

	// TrendingLimit and RandomLimit size the two feed slices.
	TrendingLimit int
	RandomLimit   int

	// ReaperSchedule is the cron spec for the expiry reaper.
	ReaperSchedule string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port, err := intEnv("PORT", 3000)
	if err != nil {
		return nil, err
	}

	ttlHours, err := intEnv("BUBBLE_TTL_HOURS", 24)
	if err != nil {
		return nil, err
	}
	if ttlHours <= 0 {
		return nil, fmt.Errorf("BUBBLE_TTL_HOURS must be positive, got %d", ttlHours)
	}

	trendingLimit, err := intEnv("FEED_TRENDING_LIMIT", 5)
	if err != nil {
		return nil, err
	}

	randomLimit, err := intEnv("FEED_RANDOM_LIMIT", 15)
	if err != nil {
		return nil, err
	}

	// A bad cron spec would otherwise only surface when the reaper starts,
	// leaving expired posts in place until someone notices.
	schedule := stringEnv("REAPER_SCHEDULE", "0 * * * *")
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid REAPER_SCHEDULE %q: %w", schedule, err)
	}

	return &Config{
		Port:                port,
		MetricsAddr:         stringEnv("METRICS_ADDR", ":9090"),
		DatabasePath:        stringEnv("DATABASE_PATH", "bubble.db"),
		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		TTL:                 time.Duration(ttlHours) * time.Hour,
		TrendingLimit:       trendingLimit,
		RandomLimit:         randomLimit,
		ReaperSchedule:      schedule,
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
