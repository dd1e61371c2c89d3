// Package config loads service configuration from the environment, with
// an optional .env file and an optional YAML file for defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the service reads from its environment.
type Config struct {
	// Env is the deployment environment; "production" turns on Secure
	// cookies.
	Env string `yaml:"env"`

	// APIAddr is the REST API listen address.
	APIAddr string `yaml:"api_addr"`

	// OTLPHTTPAddr and OTLPGRPCAddr are the OTLP intake listeners; an
	// empty value disables that receiver.
	OTLPHTTPAddr string `yaml:"otlp_http_addr"`
	OTLPGRPCAddr string `yaml:"otlp_grpc_addr"`

	// Storage backend selection.
	Backend            string `yaml:"backend"`
	DBPath             string `yaml:"db_path"`
	ClickHouseAddr     string `yaml:"clickhouse_addr"`
	ClickHouseDatabase string `yaml:"clickhouse_database"`
	ClickHouseUsername string `yaml:"clickhouse_username"`
	ClickHousePassword string `yaml:"clickhouse_password"`

	// Auth.
	AuthPassword string        `yaml:"auth_password"`
	JWTSecret    string        `yaml:"jwt_secret"`
	CookieName   string        `yaml:"cookie_name"`
	AuthTTL      time.Duration `yaml:"auth_ttl"`
	APIKey       string        `yaml:"api_key"`

	// Drive file storage directory.
	StorageDir string `yaml:"storage_dir"`

	// ClientDist is the built viewer SPA; served when the directory
	// exists.
	ClientDist string `yaml:"client_dist"`

	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// Retention.
	RetentionDays int           `yaml:"retention_days"`
	RetentionCron string        `yaml:"retention_cron"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Load reads configuration. Order: built-in defaults, then the YAML file
// named by CONFIG_PATH (if set), then environment variables, which always
// win. A .env file is loaded first when present (ENV_PATH overrides its
// location).
func Load() (*Config, error) {
	if envPath := os.Getenv("ENV_PATH"); envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{
		APIAddr:            "0.0.0.0:6666",
		OTLPHTTPAddr:       "0.0.0.0:4318",
		OTLPGRPCAddr:       "0.0.0.0:4317",
		Backend:            "sqlite",
		DBPath:             "./data/logs.db",
		ClickHouseAddr:     "localhost:9000",
		ClickHouseDatabase: "default",
		ClickHouseUsername: "default",
		CookieName:         "poslog_auth",
		AuthTTL:            24 * time.Hour,
		StorageDir:         "./storage",
		ClientDist:         "./client-dist",
		MaxBodyBytes:       1_000_000,
		RetentionDays:      30,
		RetentionCron:      "@daily",
	}

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Env, "ENV")
	if port := os.Getenv("PORT"); port != "" {
		cfg.APIAddr = "0.0.0.0:" + port
	}
	setString(&cfg.APIAddr, "API_ADDR")
	setStringAllowEmpty(&cfg.OTLPHTTPAddr, "OTLP_HTTP_ADDR")
	setStringAllowEmpty(&cfg.OTLPGRPCAddr, "OTLP_GRPC_ADDR")

	setString(&cfg.Backend, "STORAGE_BACKEND")
	setString(&cfg.DBPath, "SQLITE_DB")
	setString(&cfg.ClickHouseAddr, "CLICKHOUSE_ADDR")
	setString(&cfg.ClickHouseDatabase, "CLICKHOUSE_DATABASE")
	setString(&cfg.ClickHouseUsername, "CLICKHOUSE_USERNAME")
	setString(&cfg.ClickHousePassword, "CLICKHOUSE_PASSWORD")

	setString(&cfg.AuthPassword, "AUTH_PASSWORD")
	setString(&cfg.AuthPassword, "VIEWER_PASSWORD")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.CookieName, "AUTH_COOKIE_NAME")
	if ttl := os.Getenv("AUTH_TTL_SECONDS"); ttl != "" {
		if seconds, err := strconv.Atoi(ttl); err == nil && seconds > 0 {
			cfg.AuthTTL = time.Duration(seconds) * time.Second
		}
	}
	setString(&cfg.APIKey, "LOG_API_KEY")

	setString(&cfg.StorageDir, "STORAGE_DIR")
	setString(&cfg.ClientDist, "CLIENT_DIST")
	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxBodyBytes = n
		}
	}

	if v := os.Getenv("RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetentionDays = n
		}
	}
	setString(&cfg.RetentionCron, "RETENTION_CRON")
	if v := os.Getenv("RETENTION_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SweepInterval = d
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setStringAllowEmpty lets an explicitly-set empty value through, which
// is how the OTLP receivers are disabled.
func setStringAllowEmpty(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func (c *Config) validate() error {
	if c.AuthPassword == "" {
		return errors.New("AUTH_PASSWORD (or VIEWER_PASSWORD) is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

// Production reports whether Secure cookie flags should be set.
func (c *Config) Production() bool {
	return c.Env == "production"
}
