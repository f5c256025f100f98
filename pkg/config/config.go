package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Rules backends.
const (
	RulesBackendSQL   = "sql"
	RulesBackendRedis = "redis"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string

	// Database
	DatabaseDriver   string
	DatabaseURL      string
	SQLitePath       string
	DatabaseMaxConns int

	// Redis
	RedisURL string

	// RabbitMQ
	RabbitMQURL            string
	RabbitMQExchange       string
	RabbitMQRulesQueue     string
	RabbitMQDeadLetters    string
	RabbitMQConfirmTimeout time.Duration

	// Rules
	RulesBackend string

	// Booking
	BookingMaxAttempts    int
	BookingRetryBaseDelay time.Duration
	BookingRetryMaxDelay  time.Duration
	BookingRetryJitter    float64

	// Outbox
	OutboxPollInterval     time.Duration
	OutboxBatchSize        int
	OutboxMaxRetries       int
	OutboxStatsInterval    time.Duration
	OutboxRetentionDays    int
	OutboxCleanupInterval  time.Duration
	OutboxProcessorEnabled bool

	// Worker
	WorkerHealthAddr string

	// Publisher circuit breaker
	PublisherBreakerThreshold   int
	PublisherBreakerTimeout     time.Duration
	PublisherBreakerInterval    time.Duration
	PublisherBreakerMaxRequests int
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	databaseURL := getEnv("DATABASE_URL", "")

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseDriver:   getEnv("DATABASE_DRIVER", detectDriver(databaseURL)),
		DatabaseURL:      databaseURL,
		SQLitePath:       getEnv("SQLITE_PATH", getDefaultSQLitePath()),
		DatabaseMaxConns: getIntEnv("DATABASE_MAX_CONNS", 10),

		RedisURL: getEnv("REDIS_URL", ""),

		RabbitMQURL:            getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange:       getEnv("RABBITMQ_EXCHANGE", "classbook.domain.events"),
		RabbitMQRulesQueue:     getEnv("RABBITMQ_RULES_QUEUE", "classbook.booking.rules"),
		RabbitMQDeadLetters:    getEnv("RABBITMQ_DEAD_LETTER_EXCHANGE", ""),
		RabbitMQConfirmTimeout: getDurationEnv("RABBITMQ_CONFIRM_TIMEOUT", 5*time.Second),

		RulesBackend: strings.ToLower(getEnv("RULES_BACKEND", RulesBackendSQL)),

		BookingMaxAttempts:    getIntEnv("BOOKING_MAX_ATTEMPTS", 5),
		BookingRetryBaseDelay: getDurationEnv("BOOKING_RETRY_BASE_DELAY", 10*time.Millisecond),
		BookingRetryMaxDelay:  getDurationEnv("BOOKING_RETRY_MAX_DELAY", 250*time.Millisecond),
		BookingRetryJitter:    getFloatEnv("BOOKING_RETRY_JITTER", 0.2),

		OutboxPollInterval:     getDurationEnv("OUTBOX_POLL_INTERVAL", 100*time.Millisecond),
		OutboxBatchSize:        getIntEnv("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxRetries:       getIntEnv("OUTBOX_MAX_RETRIES", 5),
		OutboxStatsInterval:    getDurationEnv("OUTBOX_STATS_INTERVAL", 30*time.Second),
		OutboxRetentionDays:    getIntEnv("OUTBOX_RETENTION_DAYS", 14),
		OutboxCleanupInterval:  getDurationEnv("OUTBOX_CLEANUP_INTERVAL", 24*time.Hour),
		OutboxProcessorEnabled: getBoolEnv("OUTBOX_PROCESSOR_ENABLED", true),

		WorkerHealthAddr: getEnv("WORKER_HEALTH_ADDR", "0.0.0.0:8081"),

		PublisherBreakerThreshold:   getIntEnv("PUBLISHER_BREAKER_THRESHOLD", 5),
		PublisherBreakerTimeout:     getDurationEnv("PUBLISHER_BREAKER_TIMEOUT", 30*time.Second),
		PublisherBreakerInterval:    getDurationEnv("PUBLISHER_BREAKER_INTERVAL", time.Minute),
		PublisherBreakerMaxRequests: getIntEnv("PUBLISHER_BREAKER_MAX_REQUESTS", 1),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.RulesBackend {
	case RulesBackendSQL:
	case RulesBackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis rules backend")
		}
	default:
		return fmt.Errorf("unsupported RULES_BACKEND %q", c.RulesBackend)
	}

	if c.BookingMaxAttempts < 1 {
		return fmt.Errorf("BOOKING_MAX_ATTEMPTS must be at least 1")
	}

	for name, d := range map[string]time.Duration{
		"OUTBOX_POLL_INTERVAL":    c.OutboxPollInterval,
		"OUTBOX_STATS_INTERVAL":   c.OutboxStatsInterval,
		"OUTBOX_CLEANUP_INTERVAL": c.OutboxCleanupInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// IsSQLite returns true when the SQLite driver is selected.
func (c *Config) IsSQLite() bool {
	return c.DatabaseDriver == "sqlite"
}

// IsPostgres returns true when the Postgres driver is selected.
func (c *Config) IsPostgres() bool {
	return c.DatabaseDriver == "postgres"
}

// HasBroker returns true when a RabbitMQ URL is configured.
func (c *Config) HasBroker() bool {
	return c.RabbitMQURL != ""
}

func detectDriver(url string) string {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDefaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".classbook", "classbook.db")
	}
	return filepath.Join(home, ".classbook", "classbook.db")
}
