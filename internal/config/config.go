package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
	"golang.org/x/crypto/bcrypt"
)

// Session store backends.
const (
	StoreMemory   = "memory"
	StoreDatabase = "database"
	StoreRedis    = "redis"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Gateway  GatewayConfig  `koanf:"gateway"`
	Session  SessionConfig  `koanf:"session"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	List     ListConfig     `koanf:"list"`
	Auth     AuthConfig     `koanf:"auth"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host       string          `koanf:"host"`
	Port       int             `koanf:"port"`
	Mode       string          `koanf:"mode"`
	CSRFSecret string          `koanf:"csrf_secret"`
	Timeout    string          `koanf:"timeout"`
	CORS       CORSConfig      `koanf:"cors"`
	RateLimit  RateLimitConfig `koanf:"rate_limit"`
}

// CORSConfig holds CORS settings for the JSON API group.
type CORSConfig struct {
	AllowOrigins     []string `koanf:"allow_origins"`
	AllowMethods     []string `koanf:"allow_methods"`
	AllowHeaders     []string `koanf:"allow_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           string   `koanf:"max_age"`
}

// RateLimitConfig limits login attempts per client IP.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

// GatewayConfig points at the school management API.
type GatewayConfig struct {
	BaseURL string `koanf:"base_url"`
	Timeout string `koanf:"timeout"`
}

// SessionConfig holds session cookie and storage settings.
type SessionConfig struct {
	Store         string `koanf:"store"`
	CookieName    string `koanf:"cookie_name"`
	Secure        bool   `koanf:"secure"`
	TTL           string `koanf:"ttl"`
	ScreenIdleTTL string `koanf:"screen_idle_ttl"`
	SweepSchedule string `koanf:"sweep_schedule"`
}

// DatabaseConfig holds database connection settings. Used only by the
// database session store.
type DatabaseConfig struct {
	Driver   string         `koanf:"driver"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Postgres PostgresConfig `koanf:"postgres"`
	Pool     PoolConfig     `koanf:"pool"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	SSLMode  string `koanf:"sslmode"`
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	ConnMaxLifetime string `koanf:"conn_max_lifetime"`
}

// RedisConfig holds the redis connection used by the redis session store.
type RedisConfig struct {
	URL string `koanf:"url"`
}

// ListConfig tunes list screens.
type ListConfig struct {
	PageSize int `koanf:"page_size"`
}

// AuthConfig holds the bcrypt hash of the secret that confirms deletions.
type AuthConfig struct {
	ConfirmSecretHash string `koanf:"confirm_secret_hash"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// Load reads configuration from a YAML file and overlays environment variables.
// Environment variables use the prefix "APP__" and double-underscore as the
// hierarchy separator, so APP__GATEWAY__BASE_URL overrides gateway.base_url
// and APP__SESSION__SCREEN_IDLE_TTL overrides session.screen_idle_ttl.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	if err := k.Load(env.Provider("APP__", ".", func(s string) string {
		key := strings.TrimPrefix(s, "APP__")
		key = strings.ToLower(key)
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints, normalises values and fills
// defaults.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateGateway(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}

	if c.List.PageSize == 0 {
		c.List.PageSize = 10
	}
	if c.List.PageSize < 1 || c.List.PageSize > 200 {
		return fmt.Errorf("invalid list.page_size %d: must be between 1 and 200", c.List.PageSize)
	}

	hash := strings.TrimSpace(c.Auth.ConfirmSecretHash)
	if hash == "" {
		return fmt.Errorf("auth.confirm_secret_hash is required")
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return fmt.Errorf("invalid auth.confirm_secret_hash: must be a bcrypt hash: %w", err)
	}
	c.Auth.ConfirmSecretHash = hash

	if c.Metrics.Enabled {
		path := strings.TrimSpace(c.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("invalid metrics.path %q: must start with '/'", c.Metrics.Path)
		}
		c.Metrics.Path = path
	}

	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Log.Level = level
	default:
		return fmt.Errorf("invalid log.level %q: must be one of %q, %q, %q, %q", c.Log.Level, "debug", "info", "warn", "error")
	}

	format := strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch format {
	case "text", "json":
		c.Log.Format = format
	default:
		return fmt.Errorf("invalid log.format %q: must be one of %q, %q", c.Log.Format, "text", "json")
	}
	return nil
}

func (c *Config) validateServer() error {
	mode := strings.TrimSpace(c.Server.Mode)
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		c.Server.Mode = mode
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", c.Server.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}

	host := strings.TrimSpace(c.Server.Host)
	if host == "" {
		return fmt.Errorf("server.host is required")
	}
	c.Server.Host = host

	var err error
	if c.Server.Timeout, err = optionalDuration("server.timeout", c.Server.Timeout); err != nil {
		return err
	}
	if c.Server.CORS.MaxAge, err = optionalDuration("server.cors.max_age", c.Server.CORS.MaxAge); err != nil {
		return err
	}

	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.RPS <= 0 {
			return fmt.Errorf("invalid server.rate_limit.rps %v: must be positive when rate limiting is enabled", c.Server.RateLimit.RPS)
		}
		if c.Server.RateLimit.Burst <= 0 {
			return fmt.Errorf("invalid server.rate_limit.burst %d: must be positive when rate limiting is enabled", c.Server.RateLimit.Burst)
		}
	}

	if c.Server.Mode == gin.ReleaseMode {
		secret := strings.TrimSpace(c.Server.CSRFSecret)
		if len(secret) < 32 || CountSecretClasses(secret) < 3 {
			return fmt.Errorf("server.csrf_secret must be at least 32 characters with 3 character classes in release mode")
		}
	}
	return nil
}

func (c *Config) validateGateway() error {
	raw := strings.TrimSpace(c.Gateway.BaseURL)
	if raw == "" {
		return fmt.Errorf("gateway.base_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid gateway.base_url %q: must be an absolute http(s) URL", c.Gateway.BaseURL)
	}
	c.Gateway.BaseURL = raw

	c.Gateway.Timeout, err = optionalDuration("gateway.timeout", c.Gateway.Timeout)
	return err
}

func (c *Config) validateSession() error {
	store := strings.ToLower(strings.TrimSpace(c.Session.Store))
	if store == "" {
		store = StoreMemory
	}
	switch store {
	case StoreMemory:
	case StoreDatabase:
		if err := c.validateDatabase(); err != nil {
			return err
		}
	case StoreRedis:
		raw := strings.TrimSpace(c.Redis.URL)
		if raw == "" {
			return fmt.Errorf("redis.url is required when session.store is redis")
		}
		c.Redis.URL = raw
	default:
		return fmt.Errorf("invalid session.store %q: must be one of %q, %q, %q", c.Session.Store, StoreMemory, StoreDatabase, StoreRedis)
	}
	c.Session.Store = store

	c.Session.CookieName = strings.TrimSpace(c.Session.CookieName)
	if c.Session.CookieName == "" {
		c.Session.CookieName = "escola_session"
	}

	var err error
	if c.Session.TTL, err = optionalDuration("session.ttl", c.Session.TTL); err != nil {
		return err
	}
	if c.Session.ScreenIdleTTL, err = optionalDuration("session.screen_idle_ttl", c.Session.ScreenIdleTTL); err != nil {
		return err
	}
	if c.Session.ScreenIdleTTL == "" {
		c.Session.ScreenIdleTTL = "30m"
	}

	schedule := strings.TrimSpace(c.Session.SweepSchedule)
	if schedule == "" {
		schedule = "@every 5m"
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid session.sweep_schedule %q: %w", c.Session.SweepSchedule, err)
	}
	c.Session.SweepSchedule = schedule
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "sqlite":
		path := strings.TrimSpace(c.Database.SQLite.Path)
		if path == "" {
			return fmt.Errorf("database.sqlite.path is required when driver is sqlite")
		}
		c.Database.SQLite.Path = path
	case "postgres":
		pg := &c.Database.Postgres
		pg.Host = strings.TrimSpace(pg.Host)
		pg.User = strings.TrimSpace(pg.User)
		pg.DBName = strings.TrimSpace(pg.DBName)
		pg.SSLMode = strings.TrimSpace(pg.SSLMode)
		if pg.Host == "" {
			return fmt.Errorf("database.postgres.host is required when driver is postgres")
		}
		if pg.Port < 1 || pg.Port > 65535 {
			return fmt.Errorf("invalid database.postgres.port %d: must be between 1 and 65535", pg.Port)
		}
		if pg.User == "" {
			return fmt.Errorf("database.postgres.user is required when driver is postgres")
		}
		if pg.DBName == "" {
			return fmt.Errorf("database.postgres.dbname is required when driver is postgres")
		}
		switch pg.SSLMode {
		case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		default:
			return fmt.Errorf("invalid database.postgres.sslmode %q", pg.SSLMode)
		}
		if c.Server.Mode == gin.ReleaseMode && pg.SSLMode != "require" && pg.SSLMode != "verify-ca" && pg.SSLMode != "verify-full" {
			return fmt.Errorf("invalid database.postgres.sslmode %q for server.mode %q: TLS is required", pg.SSLMode, gin.ReleaseMode)
		}
	default:
		return fmt.Errorf("invalid database.driver %q: must be one of %q, %q", c.Database.Driver, "sqlite", "postgres")
	}

	var err error
	c.Database.Pool.ConnMaxLifetime, err = optionalDuration("database.pool.conn_max_lifetime", c.Database.Pool.ConnMaxLifetime)
	return err
}

// optionalDuration trims v and, when set, requires a positive Go duration.
func optionalDuration(name, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return "", fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	if d <= 0 {
		return "", fmt.Errorf("invalid %s %q: must be greater than 0", name, v)
	}
	return v, nil
}

// Duration parses a value already checked by Validate. Empty yields zero.
func Duration(v string) time.Duration {
	d, _ := time.ParseDuration(v)
	return d
}

// CountSecretClasses counts how many character classes (lowercase, uppercase,
// digit, symbol) are present in secret.
func CountSecretClasses(secret string) int {
	var lower, upper, digit, symbol int
	for _, r := range secret {
		switch {
		case unicode.IsLower(r):
			lower = 1
		case unicode.IsUpper(r):
			upper = 1
		case unicode.IsDigit(r):
			digit = 1
		default:
			symbol = 1
		}
	}
	return lower + upper + digit + symbol
}
