// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides the redis/asynq connection settings.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// PipelineConfig provides SLA settings.
type PipelineConfig interface {
	GetSLAWarningDays() int
}

// ImportConfig provides bulk import settings.
type ImportConfig interface {
	GetImportBatchSize() int
	GetImportRequiredFields() []string
	GetPhoneDefaultRegion() string
}

// NotificationConfig provides trigger engine settings.
type NotificationConfig interface {
	PipelineConfig
	GetNotifyInterval() time.Duration
	GetNotifyInitialDelay() time.Duration
	GetNotifyDedupBackend() string
	GetQuietHours() QuietHoursSettings
}

// QuietHoursSettings is the raw quiet-hours window as configured.
// Start and End are "HH:MM" wall-clock values in Location.
type QuietHoursSettings struct {
	Enabled  bool
	Start    string
	End      string
	Location string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                  string
	HTTPAddr             string
	DatabaseURL          string
	MigrationsDir        string
	JWTAccessSecret      string
	CORSAllowAll         bool
	CORSOrigins          []string
	CORSAllowCreds       bool
	RedisURL             string
	RedisTLSInsecure     bool
	AsynqQueueName       string
	AsynqConcurrency     int
	PhoneDefaultRegion   string
	SLAWarningDays       int
	ImportBatchSize      int
	ImportRequiredFields []string
	NotifyInterval       time.Duration
	NotifyInitialDelay   time.Duration
	NotifyDedupBackend   string
	QuietHours           QuietHoursSettings
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) IsSchedulerEnabled() bool  { return c.RedisURL != "" }

// PipelineConfig implementation
func (c *Config) GetSLAWarningDays() int { return c.SLAWarningDays }

// ImportConfig implementation
func (c *Config) GetImportBatchSize() int           { return c.ImportBatchSize }
func (c *Config) GetImportRequiredFields() []string { return c.ImportRequiredFields }
func (c *Config) GetPhoneDefaultRegion() string     { return c.PhoneDefaultRegion }

// NotificationConfig implementation
func (c *Config) GetNotifyInterval() time.Duration     { return c.NotifyInterval }
func (c *Config) GetNotifyInitialDelay() time.Duration { return c.NotifyInitialDelay }
func (c *Config) GetNotifyDedupBackend() string        { return c.NotifyDedupBackend }
func (c *Config) GetQuietHours() QuietHoursSettings    { return c.QuietHours }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		MigrationsDir:        getEnv("MIGRATIONS_DIR", "migrations"),
		JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:         corsAllowAll,
		CORSOrigins:          corsOrigins,
		CORSAllowCreds:       strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:             getEnv("REDIS_URL", ""),
		RedisTLSInsecure:     strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:       getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:     mustInt(getEnv("ASYNQ_CONCURRENCY", "4"), 4),
		PhoneDefaultRegion:   getEnv("PHONE_DEFAULT_REGION", "BR"),
		SLAWarningDays:       mustInt(getEnv("SLA_WARNING_DAYS", "2"), 2),
		ImportBatchSize:      mustInt(getEnv("IMPORT_BATCH_SIZE", "50"), 50),
		ImportRequiredFields: splitCSV(getEnv("IMPORT_REQUIRED_FIELDS", "name")),
		NotifyInterval:       mustDuration(getEnv("NOTIFY_INTERVAL", "5m"), 5*time.Minute),
		NotifyInitialDelay:   mustDuration(getEnv("NOTIFY_INITIAL_DELAY", "10s"), 10*time.Second),
		NotifyDedupBackend:   strings.ToLower(getEnv("NOTIFY_DEDUP_BACKEND", "memory")),
		QuietHours: QuietHoursSettings{
			Enabled:  strings.EqualFold(getEnv("QUIET_HOURS_ENABLED", "false"), "true"),
			Start:    getEnv("QUIET_HOURS_START", "22:00"),
			End:      getEnv("QUIET_HOURS_END", "07:00"),
			Location: getEnv("QUIET_HOURS_TZ", "America/Sao_Paulo"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.NotifyDedupBackend != "memory" && cfg.NotifyDedupBackend != "redis" {
		return nil, fmt.Errorf("NOTIFY_DEDUP_BACKEND must be memory or redis, got %q", cfg.NotifyDedupBackend)
	}
	if cfg.NotifyDedupBackend == "redis" && cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required when NOTIFY_DEDUP_BACKEND is redis")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func mustInt(value string, fallback int) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || result <= 0 {
		return fallback
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
