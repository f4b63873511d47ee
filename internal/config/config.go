// Package config holds runtime configuration for the checker and its optional
// control-plane sinks, loaded from environment variables with sane defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all configuration for a crdtcheck run.
type Config struct {
	Explorer   ExplorerConfig   `json:"explorer"`
	Report     ReportConfig     `json:"report"`
	Dedup      DedupConfig      `json:"dedup"`
	RunStore   RunStoreConfig   `json:"run_store"`
	Discovery  DiscoveryConfig  `json:"discovery"`
	Dashboard  DashboardConfig  `json:"dashboard"`
	Logging    LoggingConfig    `json:"logging"`
}

// ExplorerConfig controls the exploration harness.
type ExplorerConfig struct {
	Servers  int           `json:"servers" validate:"min=1"`
	Threads  int           `json:"threads" validate:"min=1"`
	MaxDepth int           `json:"max_depth" validate:"min=0"`
	MaxRate  int           `json:"max_rate_per_sec" validate:"min=0"`
	Timeout  time.Duration `json:"timeout"`
}

// ReportConfig controls progress reporting cadence.
type ReportConfig struct {
	Interval time.Duration `json:"interval"`
}

// DedupConfig configures the optional Redis-backed cross-process state dedup cache.
type DedupConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// RunStoreConfig configures optional Postgres persistence of run records.
type RunStoreConfig struct {
	Enabled bool   `json:"enabled"`
	DSN     string `json:"dsn"`
}

// DiscoveryConfig configures optional NATS publication of discoveries.
type DiscoveryConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Subject string `json:"subject"`
}

// DashboardConfig configures the optional read-only HTTP/WS dashboard.
type DashboardConfig struct {
	Enabled   bool   `json:"enabled"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	JWTSecret string `json:"jwt_secret"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string `json:"level"`
}

var validate = validator.New()

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Explorer: ExplorerConfig{
			Servers:  getEnvInt("CRDTCHECK_SERVERS", 2),
			Threads:  getEnvInt("CRDTCHECK_THREADS", 1),
			MaxDepth: getEnvInt("CRDTCHECK_MAX_DEPTH", 0),
			MaxRate:  getEnvInt("CRDTCHECK_MAX_RATE", 0),
			Timeout:  time.Duration(getEnvInt("CRDTCHECK_TIMEOUT_SECONDS", 0)) * time.Second,
		},
		Report: ReportConfig{
			Interval: time.Duration(getEnvInt("CRDTCHECK_REPORT_INTERVAL_SECONDS", 1)) * time.Second,
		},
		Dedup: DedupConfig{
			Enabled:  getEnvBool("CRDTCHECK_DEDUP_ENABLED", false),
			Host:     getEnv("CRDTCHECK_REDIS_HOST", "localhost"),
			Port:     getEnvInt("CRDTCHECK_REDIS_PORT", 6379),
			Password: getEnv("CRDTCHECK_REDIS_PASSWORD", ""),
			DB:       getEnvInt("CRDTCHECK_REDIS_DB", 0),
		},
		RunStore: RunStoreConfig{
			Enabled: getEnvBool("CRDTCHECK_RUNSTORE_ENABLED", false),
			DSN:     getEnv("CRDTCHECK_POSTGRES_DSN", "postgres://localhost/crdtcheck?sslmode=disable"),
		},
		Discovery: DiscoveryConfig{
			Enabled: getEnvBool("CRDTCHECK_DISCOVERY_ENABLED", false),
			URL:     getEnv("CRDTCHECK_NATS_URL", "nats://localhost:4222"),
			Subject: getEnv("CRDTCHECK_NATS_SUBJECT", "crdtcheck.discoveries"),
		},
		Dashboard: DashboardConfig{
			Enabled:   getEnvBool("CRDTCHECK_DASHBOARD_ENABLED", false),
			Host:      getEnv("CRDTCHECK_DASHBOARD_HOST", "127.0.0.1"),
			Port:      getEnvInt("CRDTCHECK_DASHBOARD_PORT", 8080),
			JWTSecret: getEnv("CRDTCHECK_DASHBOARD_JWT_SECRET", "dev-secret"),
		},
		Logging: LoggingConfig{
			Level: getEnv("CRDTCHECK_LOG_LEVEL", "info"),
		},
	}

	if err := validate.Struct(cfg.Explorer); err != nil {
		return nil, fmt.Errorf("invalid explorer config: %w", err)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
