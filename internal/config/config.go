package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the console.
type Config struct {
	App     AppConfig
	Gateway GatewayConfig
	Redis   RedisConfig
	Logger  LoggerConfig
	Session SessionConfig
}

// AppConfig controls console level behavior.
type AppConfig struct {
	Name    string
	Env     string
	Version string
}

// GatewayConfig points at the ticket backend.
type GatewayConfig struct {
	BaseURL               string
	RequestTimeoutSeconds int
}

// RedisConfig holds optional snapshot-cache connection values. An empty
// Addr disables the cache entirely.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	TTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// SessionConfig locates the persisted session credential.
type SessionConfig struct {
	File string
}

// Load reads configuration from environment variables, applying defaults
// where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "ticket-console"),
			Env:     getEnv("APP_ENV", "development"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Gateway: GatewayConfig{
			BaseURL:               getEnv("GATEWAY_BASE_URL", "http://127.0.0.1:8000/api"),
			RequestTimeoutSeconds: getEnvAsInt("GATEWAY_REQUEST_TIMEOUT_SECONDS", 15),
		},
		Redis: RedisConfig{
			Addr:       os.Getenv("REDIS_ADDR"),
			Password:   os.Getenv("REDIS_PASSWORD"),
			DB:         redisDB,
			TTLSeconds: getEnvAsInt("REDIS_SNAPSHOT_TTL_SECONDS", 3600),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Session: SessionConfig{
			File: getEnv("SESSION_FILE", defaultSessionFile()),
		},
	}

	return cfg, nil
}

// RequestTimeout returns the configured gateway timeout duration.
func (g GatewayConfig) RequestTimeout() time.Duration {
	if g.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(g.RequestTimeoutSeconds) * time.Second
}

// TTL returns the snapshot cache expiry.
func (r RedisConfig) TTL() time.Duration {
	if r.TTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(r.TTLSeconds) * time.Second
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ticket-console-session"
	}
	return filepath.Join(home, ".ticket-console", "session.json")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
