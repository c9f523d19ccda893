package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete service configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	HTTP        HTTPConfig       `mapstructure:"http"`
	GRPC        GRPCConfig       `mapstructure:"grpc"`
	Database    DatabaseConfig   `mapstructure:"database"`
	NATS        NATSConfig       `mapstructure:"nats"`
	ClickHouse  ClickHouseConfig `mapstructure:"clickhouse"`
	Sessions    SessionsConfig   `mapstructure:"sessions"`
	Pricing     PricingConfig    `mapstructure:"pricing"`
	Logging     LoggingConfig    `mapstructure:"logging"`
}

type HTTPConfig struct {
	Port string `mapstructure:"port"`
}

type GRPCConfig struct {
	Port string `mapstructure:"port"`
}

// DatabaseConfig selects the persistence driver
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"` // memory, sqlite or postgres
	SQLiteFile string `mapstructure:"sqlite_file"`
	URL        string `mapstructure:"url"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type ClickHouseConfig struct {
	Addr     string `mapstructure:"addr"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// SessionsConfig selects where in-progress drafts live
type SessionsConfig struct {
	Store         string        `mapstructure:"store"` // memory or redis
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type PricingConfig struct {
	Source       string        `mapstructure:"source"` // mock or clickhouse, empty picks by environment
	SyncInterval time.Duration `mapstructure:"sync_interval"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings keeps the variable names the deployment manifests already use
var envBindings = map[string]string{
	"environment":             "ENVIRONMENT",
	"http.port":               "PORT",
	"grpc.port":               "GRPC_PORT",
	"database.driver":         "DB_DRIVER",
	"database.sqlite_file":    "SQLITE_FILE",
	"database.url":            "DATABASE_URL",
	"nats.url":                "NATS_URL",
	"nats.subject":            "NATS_SUBJECT",
	"clickhouse.addr":         "CLICKHOUSE_ADDR",
	"clickhouse.database":     "CLICKHOUSE_DB",
	"clickhouse.username":     "CLICKHOUSE_USER",
	"clickhouse.password":     "CLICKHOUSE_PASSWORD",
	"sessions.store":          "SESSION_STORE",
	"sessions.redis_addr":     "REDIS_ADDR",
	"sessions.redis_password": "REDIS_PASSWORD",
	"sessions.redis_db":       "REDIS_DB",
	"sessions.ttl":            "SESSION_TTL",
	"pricing.source":          "PRICING_SOURCE",
	"pricing.sync_interval":   "PRICING_SYNC_INTERVAL",
	"logging.level":           "LOG_LEVEL",
	"logging.format":          "LOG_FORMAT",
}

// Load reads configuration from defaults, an optional file and the
// environment, in increasing order of precedence
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("http.port", "3000")
	v.SetDefault("grpc.port", "50051")

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.sqlite_file", "dev.sqlite")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject", "draft.events")

	v.SetDefault("clickhouse.addr", "localhost:9000")
	v.SetDefault("clickhouse.database", "default")
	v.SetDefault("clickhouse.username", "default")

	v.SetDefault("sessions.store", "memory")
	v.SetDefault("sessions.redis_addr", "localhost:6379")
	v.SetDefault("sessions.ttl", "24h")

	v.SetDefault("pricing.sync_interval", "5m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// IsDevelopment reports whether embedded and mock collaborators are used
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || strings.EqualFold(c.Environment, "development")
}

// PricingSource resolves the statistics source, defaulting to the mock in
// development
func (c *Config) PricingSource() string {
	if c.Pricing.Source != "" {
		return strings.ToLower(c.Pricing.Source)
	}
	if c.IsDevelopment() {
		return "mock"
	}
	return "clickhouse"
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.HTTP.Port == "" {
		return fmt.Errorf("http.port is required")
	}
	if c.GRPC.Port == "" {
		return fmt.Errorf("grpc.port is required")
	}

	switch c.Database.Driver {
	case "memory":
	case "sqlite":
		if c.Database.SQLiteFile == "" {
			return fmt.Errorf("database.sqlite_file is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database.driver %q (valid: memory, sqlite, postgres)", c.Database.Driver)
	}

	if c.NATS.Subject == "" {
		return fmt.Errorf("nats.subject is required")
	}
	if !c.IsDevelopment() && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required outside development")
	}

	switch c.Sessions.Store {
	case "memory":
	case "redis":
		if c.Sessions.RedisAddr == "" {
			return fmt.Errorf("sessions.redis_addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown sessions.store %q (valid: memory, redis)", c.Sessions.Store)
	}

	switch c.PricingSource() {
	case "mock":
	case "clickhouse":
		if c.ClickHouse.Addr == "" {
			return fmt.Errorf("clickhouse.addr is required for the clickhouse pricing source")
		}
	default:
		return fmt.Errorf("unknown pricing.source %q (valid: mock, clickhouse)", c.Pricing.Source)
	}
	if c.Pricing.SyncInterval < 10*time.Second {
		return fmt.Errorf("pricing.sync_interval must be at least 10 seconds")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
