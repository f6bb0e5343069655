package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Logging  LoggingConfig
	Alerting AlertingConfig
	Stream   StreamConfig
	Queue    QueueConfig
	Redis    RedisConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
	FrontendURL     string
	Environment     string
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	JWTSecret         string
	AccessTokenExpiry time.Duration
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// AlertingConfig contains alert delivery configuration
type AlertingConfig struct {
	SendGridAPIKey    string
	SendGridFromEmail string
	SlackWebhookURL   string
	SlackChannel      string
	SLAThreshold      time.Duration
	Parallel          bool
	MetricsCapacity   int // 0 means unbounded history
	HealthyThreshold  float64
	DegradedThreshold float64
}

// StreamConfig contains realtime push stream configuration
type StreamConfig struct {
	AdminKey          string
	HeartbeatInterval time.Duration
}

// QueueConfig contains work queue configuration
type QueueConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
	PollInterval time.Duration
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:3000"),
			Environment:     getEnv("ENVIRONMENT", "development"),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Alerting: AlertingConfig{
			SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
			SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
			SlackWebhookURL:   getEnv("SLACK_WEBHOOK_URL", ""),
			SlackChannel:      getEnv("SLACK_CHANNEL", "#alerts"),
			SLAThreshold:      time.Duration(getEnvAsInt("ALERT_SLA_THRESHOLD", 2000)) * time.Millisecond,
			Parallel:          getEnvAsBool("ALERT_PARALLEL_DELIVERY", false),
			MetricsCapacity:   getEnvAsInt("ALERT_METRICS_CAPACITY", 0),
			HealthyThreshold:  getEnvAsFloat("ALERT_HEALTHY_THRESHOLD", 95),
			DegradedThreshold: getEnvAsFloat("ALERT_DEGRADED_THRESHOLD", 80),
		},
		Stream: StreamConfig{
			AdminKey:          getEnv("ADMIN_STREAM_KEY", "__admin__"),
			HeartbeatInterval: getEnvAsDuration("STREAM_HEARTBEAT_INTERVAL", 30*time.Second),
		},
		Queue: QueueConfig{
			MaxAttempts:  getEnvAsInt("QUEUE_MAX_ATTEMPTS", 3),
			RetryBackoff: getEnvAsDuration("QUEUE_RETRY_BACKOFF", 2*time.Second),
			PollInterval: getEnvAsDuration("QUEUE_POLL_INTERVAL", 500*time.Millisecond),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Alerting.SLAThreshold < 0 {
		return fmt.Errorf("ALERT_SLA_THRESHOLD must not be negative")
	}

	if c.Alerting.MetricsCapacity < 0 {
		return fmt.Errorf("ALERT_METRICS_CAPACITY must not be negative")
	}

	if c.Alerting.DegradedThreshold > c.Alerting.HealthyThreshold {
		return fmt.Errorf("ALERT_DEGRADED_THRESHOLD must not exceed ALERT_HEALTHY_THRESHOLD")
	}

	if c.Queue.MaxAttempts < 1 {
		return fmt.Errorf("QUEUE_MAX_ATTEMPTS must be at least 1")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
