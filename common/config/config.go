package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Ingest    IngestConfig
	Blob      BlobConfig
	Cache     CacheConfig
	Queue     QueueConfig
	RateLimit RateLimitConfig
	Policy    PolicyConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host         string
	Port         int
	Database     string
	User         string
	Password     string
	MaxConns     int
	MinConns     int
	MaxIdleTime  time.Duration
	MaxLifetime  time.Duration
}

// RedisConfig holds Redis connection settings shared by the
// rate limiter and the stream-backed event queue.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// IngestConfig bounds the upload pipeline
type IngestConfig struct {
	MaxUploadBytes int64
	ParseTimeout   time.Duration
	Workers        int
}

// BlobConfig holds blob access settings
type BlobConfig struct {
	BaseURL          string
	URLSigningSecret string
	URLTTL           time.Duration
	CacheMaxBytes    int64
}

// CacheConfig holds cache settings
type CacheConfig struct {
	Enabled    bool
	SizeMB     int
	DefaultTTL time.Duration
}

// QueueConfig holds event queue settings
type QueueConfig struct {
	Type         string // "memory" or "redis"
	StreamPrefix string
	StreamMaxLen int64
}

// RateLimitConfig holds upload rate limiting settings
type RateLimitConfig struct {
	Enabled       bool
	GlobalLimit   int
	UserLimit     int
	WindowSeconds int
}

// PolicyConfig holds the read-access policy expression
type PolicyConfig struct {
	ReadExpression string
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof    bool
	PprofPort      int
	EnableTracing  bool
	EnableMetrics  bool
	MetricsPort    int
	TracingBackend string
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"), // Default to text for development
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "scorelib"),
			User:        getEnv("POSTGRES_USER", "scorelib"),
			Password:    getEnv("POSTGRES_PASSWORD", "scorelib"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 50),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 10),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Ingest: IngestConfig{
			MaxUploadBytes: getEnvInt64("INGEST_MAX_UPLOAD_BYTES", 10*1024*1024),
			ParseTimeout:   getEnvDuration("INGEST_PARSE_TIMEOUT", 5*time.Second),
			Workers:        getEnvInt("INGEST_WORKERS", 8),
		},
		Blob: BlobConfig{
			BaseURL:          getEnv("BLOB_BASE_URL", "http://localhost:8080"),
			URLSigningSecret: getEnv("BLOB_URL_SIGNING_SECRET", "dev-signing-secret"),
			URLTTL:           getEnvDuration("BLOB_URL_TTL", 15*time.Minute),
			CacheMaxBytes:    getEnvInt64("BLOB_CACHE_MAX_BYTES", 1024*1024),
		},
		Cache: CacheConfig{
			Enabled:    getEnvBool("CACHE_ENABLED", true),
			SizeMB:     getEnvInt("CACHE_SIZE_MB", 256),
			DefaultTTL: getEnvDuration("CACHE_DEFAULT_TTL", 1*time.Hour),
		},
		Queue: QueueConfig{
			Type:         getEnv("QUEUE_TYPE", "memory"),
			StreamPrefix: getEnv("QUEUE_STREAM_PREFIX", "scorelib:"),
			StreamMaxLen: getEnvInt64("QUEUE_STREAM_MAXLEN", 10000),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvBool("RATE_LIMIT_ENABLED", true),
			GlobalLimit:   getEnvInt("RATE_LIMIT_GLOBAL", 1000),
			UserLimit:     getEnvInt("RATE_LIMIT_USER", 30),
			WindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
		Policy: PolicyConfig{
			ReadExpression: getEnv("READ_POLICY_EXPRESSION", "public || owner == caller || in_library"),
		},
		Telemetry: TelemetryConfig{
			EnablePprof:    getEnvBool("ENABLE_PPROF", true),
			PprofPort:      getEnvInt("PPROF_PORT", 6060),
			EnableTracing:  getEnvBool("ENABLE_TRACING", false),
			EnableMetrics:  getEnvBool("ENABLE_METRICS", true),
			MetricsPort:    getEnvInt("METRICS_PORT", 9090),
			TracingBackend: getEnv("TRACING_BACKEND", "stdout"),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	if c.Ingest.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	if c.Ingest.ParseTimeout <= 0 {
		return fmt.Errorf("parse timeout must be positive")
	}

	if c.Ingest.Workers < 1 {
		return fmt.Errorf("ingest workers must be at least 1")
	}

	if c.Service.Environment == "production" && c.Blob.URLSigningSecret == "dev-signing-secret" {
		return fmt.Errorf("blob URL signing secret must be set in production")
	}

	if c.RateLimit.Enabled && (c.RateLimit.GlobalLimit < 1 || c.RateLimit.UserLimit < 1 || c.RateLimit.WindowSeconds < 1) {
		return fmt.Errorf("rate limit values must be positive when enabled")
	}

	if c.Policy.ReadExpression == "" {
		return fmt.Errorf("read policy expression is required")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
