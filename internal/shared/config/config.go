package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Source   SourceConfig
	Sync     SyncConfig
	Notify   NotifyConfig
	Privacy  PrivacyConfig
	Refresh  RefreshConfig
	Database DatabaseConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

// SourceConfig holds configuration for the upstream survey snapshot source.
type SourceConfig struct {
	// URL of the tabular data endpoint (JSON object with "data", bare JSON
	// array, or CSV text)
	URL string
	// FetchTimeout bounds a single snapshot fetch
	FetchTimeout time.Duration
}

// SyncConfig holds configuration for the outbound change push.
type SyncConfig struct {
	// PushURL is the write-back endpoint for changed records
	PushURL string
	// PushTimeout bounds a single outbound push
	PushTimeout time.Duration
	// CacheFile is the persisted row-signature map
	CacheFile string
	// RatePerMinute throttles outbound pushes
	RatePerMinute int
}

// NotifyConfig holds configuration for the follow-up notification ledger.
type NotifyConfig struct {
	// LedgerFile is the persisted worker_subject -> timestamp map
	LedgerFile string
}

// PrivacyConfig holds PII anonymization settings.
type PrivacyConfig struct {
	// Salt is appended before hashing identity values; must stay stable
	// across deployments or hashed identifiers lose their meaning
	Salt string
}

type RefreshConfig struct {
	// Interval between full pipeline runs
	Interval time.Duration
}

// DatabaseConfig configures the optional subject archive.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

type AuthConfig struct {
	JWTSecret string
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Source: SourceConfig{
			URL:          getEnv("SOURCE_URL", ""),
			FetchTimeout: getEnvDuration("SOURCE_FETCH_TIMEOUT", 20*time.Second),
		},
		Sync: SyncConfig{
			PushURL:       getEnv("SYNC_PUSH_URL", ""),
			PushTimeout:   getEnvDuration("SYNC_PUSH_TIMEOUT", 120*time.Second),
			CacheFile:     getEnv("SYNC_CACHE_FILE", "sync_cache.json"),
			RatePerMinute: getEnvInt("SYNC_RATE_PER_MINUTE", 6),
		},
		Notify: NotifyConfig{
			LedgerFile: getEnv("NOTIFY_LEDGER_FILE", "notified_workers.json"),
		},
		Privacy: PrivacyConfig{
			Salt: getEnv("PRIVACY_SALT", "DASHBOARD_2025_SECURE"),
		},
		Refresh: RefreshConfig{
			Interval: getEnvDuration("REFRESH_INTERVAL", 60*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "surveillance"),
			Password: getEnv("DB_PASSWORD", "surveillance"),
			Database: getEnv("DB_NAME", "surveillance"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
