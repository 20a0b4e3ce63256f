package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
	BackendFile     = "file"
)

type Config struct {
	Environment string `toml:"-"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	PublicDir   string `toml:"public_dir"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// sessions
	RedisHost                   string   `toml:"redis_host"`
	RedisPort                   string   `toml:"redis_port"`
	SessionTTL                  Duration `toml:"session_ttl"`
	SessionCookieName           string   `toml:"session_cookie_name"`
	SessionCookieSecure         bool     `toml:"session_cookie_secure"`
	LoginRateLimitAllowedPerMin int      `toml:"login_rate_limit_allowed_per_min"`
	AllowedOrigins              []string `toml:"allowed_origins"`
	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	// storage
	StorageBackend          string `toml:"storage_backend"`
	SQLitePath              string `toml:"sqlite_path"`
	DataFilePath            string `toml:"data_file_path"`
	BadgerPath              string `toml:"badger_path"`
	PostgresHost            string `toml:"postgres_host"`
	PostgresPort            string `toml:"postgres_port"`
	PostgresDBName          string `toml:"postgres_db_name"`
	SnapshotCacheTTLSeconds int    `toml:"snapshot_cache_ttl_seconds"`
}

// Duration lets TOML values like "24h" decode into a time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

type Toml struct {
	Development *Config `toml:"development"`
	Production  *Config `toml:"production"`
	DockerDev   *Config `toml:"dockerdev"`
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	case "ddev", "dockerdev":
		cfg = t.DockerDev
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	return cfg, nil
}

// Load reads the TOML file, picks the section for env, applies the
// environment overrides and fills in defaults.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.Environment = strings.ToLower(env)

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT env var [%s]: %w", portStr, err)
		}
		cfg.Port = port
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.Host == "" {
		// only reachable locally or through an SSH tunnel
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 3001
	}
	if c.RedisHost == "" {
		c.RedisHost = "localhost"
	}
	if c.RedisPort == "" {
		c.RedisPort = "6379"
	}
	if c.SessionTTL.Duration == 0 {
		c.SessionTTL.Duration = 24 * time.Hour
	}
	if c.SessionCookieName == "" {
		c.SessionCookieName = "connect.sid"
	}
	if c.LoginRateLimitAllowedPerMin == 0 {
		c.LoginRateLimitAllowedPerMin = 15
	}
	if c.PrometheusMetricsHost == "" {
		c.PrometheusMetricsHost = "127.0.0.1"
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "3002"
	}
	if c.StorageBackend == "" {
		c.StorageBackend = BackendSQLite
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "./fitness.db"
	}
	if c.DataFilePath == "" {
		c.DataFilePath = "./data.json"
	}
	if c.BadgerPath == "" {
		c.BadgerPath = "./fitness-badger"
	}
	if c.PostgresPort == "" {
		c.PostgresPort = "5432"
	}
	if c.SnapshotCacheTTLSeconds == 0 {
		c.SnapshotCacheTTLSeconds = 60
	}
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.StorageBackend {
	case BackendSQLite, BackendBadger, BackendFile:
	case BackendPostgres:
		if c.PostgresHost == "" || c.PostgresDBName == "" {
			return errors.New("postgres backend needs postgres_host and postgres_db_name")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.StorageBackend)
	}

	return nil
}
