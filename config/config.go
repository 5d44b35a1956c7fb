package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Services  ServicesConfig  `mapstructure:"services"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Outbound  OutboundConfig  `mapstructure:"outbound"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Docs      DocsConfig      `mapstructure:"docs"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds the shared Redis connection configuration. Cache, locks
// and work queues all ride on one client.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ServicesConfig holds the base URLs of the external collaborators.
type ServicesConfig struct {
	UserServiceURL string `mapstructure:"user_service_url"`
	TaskServiceURL string `mapstructure:"task_service_url"`
}

// EngineConfig holds evaluation engine tuning.
type EngineConfig struct {
	LockTTL          time.Duration `mapstructure:"lock_ttl"`
	ConsumerIdle     time.Duration `mapstructure:"consumer_idle"`
	WarmOnStart      bool          `mapstructure:"warm_on_start"`
	WarmConcurrency  int           `mapstructure:"warm_concurrency"`
	SweeperInterval  time.Duration `mapstructure:"sweeper_interval"`
	RetentionDefault time.Duration `mapstructure:"retention_default"`
}

// OutboundConfig holds pacing and retry settings for outbound service calls.
type OutboundConfig struct {
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxRetries        int           `mapstructure:"max_retries"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
}

// RateLimitConfig holds inbound rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// DocsConfig guards the served swagger UI.
type DocsConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

var globalConfig *Config

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// .env is a development convenience and optional.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Warning: .env file not loaded")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("ELIGIBILITY")

	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Database
	v.BindEnv("database.url", "DATABASE_URL")

	// Redis
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.host", "HOST")

	// External collaborators
	v.BindEnv("services.user_service_url", "USER_SERVICE_URL")
	v.BindEnv("services.task_service_url", "TASK_SERVICE_URL")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")

	// Docs
	v.BindEnv("docs.username", "DOCS_USERNAME")
	v.BindEnv("docs.password", "DOCS_PASSWORD")

	// Telemetry
	v.BindEnv("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", 1*time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Collaborator defaults match the local compose setup.
	v.SetDefault("services.user_service_url", "http://localhost:8001")
	v.SetDefault("services.task_service_url", "http://localhost:8002")

	// Engine defaults
	v.SetDefault("engine.lock_ttl", 30*time.Second)
	v.SetDefault("engine.consumer_idle", 1*time.Second)
	v.SetDefault("engine.warm_on_start", true)
	v.SetDefault("engine.warm_concurrency", 8)
	v.SetDefault("engine.sweeper_interval", 30*time.Second)
	v.SetDefault("engine.retention_default", 7*24*time.Hour)

	// Outbound call defaults
	v.SetDefault("outbound.requests_per_second", 50)
	v.SetDefault("outbound.burst", 100)
	v.SetDefault("outbound.max_retries", 3)
	v.SetDefault("outbound.initial_backoff", 100*time.Millisecond)
	v.SetDefault("outbound.max_backoff", 30*time.Second)

	// Inbound rate limit defaults
	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst_size", 100)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "opentelemetry-collector:4317")

	// Docs defaults
	v.SetDefault("docs.username", "docs")
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// GetDatabaseURL returns the database URL from config or environment
func GetDatabaseURL() string {
	if cfg := Get(); cfg != nil && cfg.Database.URL != "" {
		return cfg.Database.URL
	}
	return os.Getenv("DATABASE_URL")
}
