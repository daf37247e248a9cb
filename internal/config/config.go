// Package config loads Heron configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/opensource-finance/heron/internal/domain"
)

// Prefix is prepended to every environment variable name.
const Prefix = "HERON_"

// Load reads a .env file when present, picks the tier defaults and applies
// HERON_* overrides.
func Load() (*domain.Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*domain.Config, error) {
	cfg := domain.DefaultConfig()
	if strings.EqualFold(getEnv("TIER", ""), string(domain.TierPro)) {
		cfg = domain.ProConfig()
	}

	cfg.Server.Host = getEnv("HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvAsInt("PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvAsInt("READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvAsInt("WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.MaxBodyBytes = int64(getEnvAsInt("MAX_BODY_BYTES", int(cfg.Server.MaxBodyBytes)))

	cfg.Engine.Workers = getEnvAsInt("WORKERS", cfg.Engine.Workers)
	cfg.Engine.AsyncWorker = getEnvAsBool("ASYNC_WORKER", cfg.Engine.AsyncWorker)

	cfg.Sweep.Enabled = getEnvAsBool("SWEEP_ENABLED", cfg.Sweep.Enabled)
	cfg.Sweep.Spec = getEnv("SWEEP_SPEC", cfg.Sweep.Spec)
	cfg.Sweep.TenantIDs = getEnvAsList("TENANTS", cfg.Sweep.TenantIDs)

	repo := &cfg.Repository
	repo.Driver = getEnv("DB_DRIVER", repo.Driver)
	repo.SQLitePath = getEnv("SQLITE_PATH", repo.SQLitePath)
	repo.PostgresHost = getEnv("POSTGRES_HOST", repo.PostgresHost)
	repo.PostgresPort = getEnvAsInt("POSTGRES_PORT", repo.PostgresPort)
	repo.PostgresUser = getEnv("POSTGRES_USER", repo.PostgresUser)
	repo.PostgresPassword = getEnv("POSTGRES_PASSWORD", repo.PostgresPassword)
	repo.PostgresDB = getEnv("POSTGRES_DB", repo.PostgresDB)
	repo.PostgresSSLMode = getEnv("POSTGRES_SSLMODE", repo.PostgresSSLMode)

	c := &cfg.Cache
	c.Type = getEnv("CACHE_TYPE", c.Type)
	c.LocalMaxSize = getEnvAsInt("CACHE_SIZE", c.LocalMaxSize)
	c.LocalTTL = getEnvAsDuration("CACHE_LOCAL_TTL", c.LocalTTL)
	c.ResultTTL = getEnvAsDuration("CACHE_RESULT_TTL", c.ResultTTL)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvAsInt("REDIS_DB", c.RedisDB)
	c.EnableTwoPhase = getEnvAsBool("CACHE_TWO_PHASE", c.EnableTwoPhase)

	b := &cfg.EventBus
	b.Type = getEnv("BUS_TYPE", b.Type)
	b.NATSUrl = getEnv("NATS_URL", b.NATSUrl)
	b.NATSToken = getEnv("NATS_TOKEN", b.NATSToken)
	b.NATSQueueGroup = getEnv("NATS_QUEUE_GROUP", b.NATSQueueGroup)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)
	cfg.Tracing.Enabled = getEnvAsBool("TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.ServiceName = getEnv("SERVICE_NAME", cfg.Tracing.ServiceName)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func Validate(cfg *domain.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("%sPORT out of range: %d", Prefix, cfg.Server.Port)
	}
	switch cfg.Repository.Driver {
	case "sqlite":
		if cfg.Repository.SQLitePath == "" {
			return fmt.Errorf("%sSQLITE_PATH is required", Prefix)
		}
	case "postgres":
	default:
		return fmt.Errorf("unsupported %sDB_DRIVER: %s", Prefix, cfg.Repository.Driver)
	}
	if cfg.Sweep.Enabled && cfg.Sweep.Spec == "" {
		return fmt.Errorf("%sSWEEP_SPEC is required when sweeps are enabled", Prefix)
	}
	return nil
}

// LogLevel maps the configured level name onto slog.
func LogLevel(cfg domain.LoggingConfig) slog.Level {
	switch strings.ToLower(cfg.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(Prefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(Prefix + key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		slog.Warn("ignoring invalid integer setting", "key", Prefix+key, "value", value)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(Prefix + key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		slog.Warn("ignoring invalid boolean setting", "key", Prefix+key, "value", value)
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(Prefix + key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("ignoring invalid duration setting", "key", Prefix+key, "value", value)
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(Prefix + key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
