package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func confirmHash(t *testing.T) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte("diretoria"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(h)
}

// baseYAML renders a valid config; extra adds sections not already present.
func baseYAML(t *testing.T, extra string) string {
	return fmt.Sprintf(`server:
  host: "127.0.0.1"
  port: 3000
  mode: "debug"
  csrf_secret: "dev-csrf"
gateway:
  base_url: "http://api.escola.local/v1"
  timeout: "5s"
auth:
  confirm_secret_hash: %q
log:
  level: "info"
  format: "json"
%s`, confirmHash(t), extra)
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeTestConfig(t, baseYAML(t, "")))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Gateway.BaseURL != "http://api.escola.local/v1" || cfg.Gateway.Timeout != "5s" {
		t.Errorf("Gateway = %+v", cfg.Gateway)
	}
	if cfg.Session.Store != StoreMemory {
		t.Errorf("Session.Store = %q; want %q", cfg.Session.Store, StoreMemory)
	}
	if cfg.Session.CookieName != "escola_session" {
		t.Errorf("Session.CookieName = %q", cfg.Session.CookieName)
	}
	if cfg.Session.ScreenIdleTTL != "30m" || cfg.Session.SweepSchedule != "@every 5m" {
		t.Errorf("Session = %+v", cfg.Session)
	}
	if cfg.List.PageSize != 10 {
		t.Errorf("List.PageSize = %d; want 10", cfg.List.PageSize)
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics enabled by default")
	}
}

func TestLoad_FullYAML(t *testing.T) {
	path := writeTestConfig(t, baseYAML(t, `session:
  store: "database"
  cookie_name: "sid"
  secure: true
  ttl: "8h"
  screen_idle_ttl: "15m"
  sweep_schedule: "*/10 * * * *"
database:
  driver: "sqlite"
  sqlite:
    path: " data/sessions.db "
list:
  page_size: 25
metrics:
  enabled: true
`))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	s := cfg.Session
	if s.Store != StoreDatabase || s.CookieName != "sid" || !s.Secure || s.TTL != "8h" || s.ScreenIdleTTL != "15m" || s.SweepSchedule != "*/10 * * * *" {
		t.Errorf("Session = %+v", s)
	}
	if cfg.Database.SQLite.Path != "data/sessions.db" {
		t.Errorf("SQLite.Path = %q", cfg.Database.SQLite.Path)
	}
	if cfg.List.PageSize != 25 {
		t.Errorf("List.PageSize = %d", cfg.List.PageSize)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q", cfg.Metrics.Path)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeTestConfig(t, baseYAML(t, ""))

	t.Setenv("APP__SERVER__PORT", "9090")
	t.Setenv("APP__GATEWAY__BASE_URL", "https://api.example.com")
	t.Setenv("APP__SESSION__SCREEN_IDLE_TTL", "1h")
	t.Setenv("APP__LIST__PAGE_SIZE", "50")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d; want 9090", cfg.Server.Port)
	}
	if cfg.Gateway.BaseURL != "https://api.example.com" {
		t.Errorf("Gateway.BaseURL = %q", cfg.Gateway.BaseURL)
	}
	if cfg.Session.ScreenIdleTTL != "1h" {
		t.Errorf("Session.ScreenIdleTTL = %q", cfg.Session.ScreenIdleTTL)
	}
	if cfg.List.PageSize != 50 {
		t.Errorf("List.PageSize = %d", cfg.List.PageSize)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q (unchanged)", cfg.Server.Host)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Server:  ServerConfig{Host: "127.0.0.1", Port: 3000, Mode: "debug", CSRFSecret: "dev-csrf"},
		Gateway: GatewayConfig{BaseURL: "http://api.escola.local/v1"},
		Auth:    AuthConfig{ConfirmSecretHash: confirmHash(t)},
		Log:     LogConfig{Level: "info", Format: "json"},
	}
}

func sqliteStore(c *Config) {
	c.Session.Store = StoreDatabase
	c.Database = DatabaseConfig{Driver: "sqlite", SQLite: SQLiteConfig{Path: "s.db"}}
}

func postgresStore(c *Config) {
	c.Session.Store = StoreDatabase
	c.Database = DatabaseConfig{Driver: "postgres", Postgres: PostgresConfig{
		Host: "db", Port: 5432, User: "u", DBName: "d", SSLMode: "require",
	}}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"server mode", func(c *Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"server port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"server host", func(c *Config) { c.Server.Host = "  " }, "server.host"},
		{"server timeout", func(c *Config) { c.Server.Timeout = "-1s" }, "server.timeout"},
		{"cors max age", func(c *Config) { c.Server.CORS.MaxAge = "forever" }, "server.cors.max_age"},
		{"rate limit rps", func(c *Config) { c.Server.RateLimit = RateLimitConfig{Enabled: true, Burst: 5} }, "server.rate_limit.rps"},
		{"rate limit burst", func(c *Config) { c.Server.RateLimit = RateLimitConfig{Enabled: true, RPS: 1} }, "server.rate_limit.burst"},
		{"gateway missing", func(c *Config) { c.Gateway.BaseURL = "" }, "gateway.base_url"},
		{"gateway relative", func(c *Config) { c.Gateway.BaseURL = "/api" }, "gateway.base_url"},
		{"gateway scheme", func(c *Config) { c.Gateway.BaseURL = "ftp://api.local" }, "gateway.base_url"},
		{"gateway timeout", func(c *Config) { c.Gateway.Timeout = "0s" }, "gateway.timeout"},
		{"session store", func(c *Config) { c.Session.Store = "file" }, "session.store"},
		{"session ttl", func(c *Config) { c.Session.TTL = "abc" }, "session.ttl"},
		{"sweep schedule", func(c *Config) { c.Session.SweepSchedule = "every minute" }, "session.sweep_schedule"},
		{"database driver", func(c *Config) { sqliteStore(c); c.Database.Driver = "mysql" }, "database.driver"},
		{"sqlite path", func(c *Config) { sqliteStore(c); c.Database.SQLite.Path = " " }, "database.sqlite.path"},
		{"postgres host", func(c *Config) { postgresStore(c); c.Database.Postgres.Host = "" }, "database.postgres.host"},
		{"postgres port", func(c *Config) { postgresStore(c); c.Database.Postgres.Port = 0 }, "database.postgres.port"},
		{"postgres sslmode", func(c *Config) { postgresStore(c); c.Database.Postgres.SSLMode = "maybe" }, "database.postgres.sslmode"},
		{"pool lifetime", func(c *Config) { sqliteStore(c); c.Database.Pool.ConnMaxLifetime = "-5m" }, "database.pool.conn_max_lifetime"},
		{"redis url", func(c *Config) { c.Session.Store = StoreRedis }, "redis.url"},
		{"page size", func(c *Config) { c.List.PageSize = 500 }, "list.page_size"},
		{"metrics path", func(c *Config) { c.Metrics = MetricsConfig{Enabled: true, Path: "metrics"} }, "metrics.path"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() error = %v; want containing %q", err, tt.want)
			}
		})
	}
}

func TestValidate_Accepts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"memory", func(*Config) {}},
		{"sqlite", sqliteStore},
		{"postgres", postgresStore},
		{"redis", func(c *Config) { c.Session.Store = "REDIS"; c.Redis.URL = " redis://localhost:6379/0 " }},
		{"rate limit", func(c *Config) { c.Server.RateLimit = RateLimitConfig{Enabled: true, RPS: 0.5, Burst: 5} }},
		{"cron spec", func(c *Config) { c.Session.SweepSchedule = "0 * * * *" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
		})
	}
}

func TestValidate_ConfirmSecretHash(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 8080, Mode: "debug"},
		Gateway: GatewayConfig{BaseURL: "http://api.local"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "auth.confirm_secret_hash") {
		t.Fatalf("missing hash: err = %v", err)
	}
	cfg.Auth.ConfirmSecretHash = "plain-text"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "bcrypt") {
		t.Fatalf("plain secret: err = %v", err)
	}
	cfg.Auth.ConfirmSecretHash = "  " + confirmHash(t) + "\n"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid hash: %v", err)
	}
	if strings.TrimSpace(cfg.Auth.ConfirmSecretHash) != cfg.Auth.ConfirmSecretHash {
		t.Error("hash not trimmed")
	}
}

func TestValidate_ReleaseMode(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.Mode = "release"
	cfg.Server.CSRFSecret = "short"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "csrf_secret") {
		t.Fatalf("weak csrf secret: err = %v", err)
	}

	cfg = validConfig(t)
	cfg.Server.Mode = "release"
	cfg.Server.CSRFSecret = "Escola-CSRF-secret-0123456789-abcdef"
	postgresStore(cfg)
	cfg.Database.Postgres.SSLMode = "disable"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "TLS") {
		t.Fatalf("plaintext postgres in release: err = %v", err)
	}
	cfg.Database.Postgres.SSLMode = "verify-full"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("release config: %v", err)
	}
}

func TestDuration(t *testing.T) {
	if Duration("90s").Seconds() != 90 || Duration("") != 0 {
		t.Errorf("Duration parsing mismatch")
	}
}

func TestCountSecretClasses(t *testing.T) {
	tests := []struct {
		secret string
		want   int
	}{
		{"", 0},
		{"abc", 1},
		{"abcDEF", 2},
		{"abcDEF123", 3},
		{"abcDEF123!@#", 4},
		{"ÜBER-straße", 3},
	}
	for _, tt := range tests {
		if got := CountSecretClasses(tt.secret); got != tt.want {
			t.Errorf("CountSecretClasses(%q) = %d; want %d", tt.secret, got, tt.want)
		}
	}
}

func TestSetupRedis_InvalidURL(t *testing.T) {
	if _, err := SetupRedis(context.Background(), &RedisConfig{URL: "mysql://nope"}, nil); err == nil || !strings.Contains(err.Error(), "redis.url") {
		t.Fatalf("err = %v", err)
	}
	if _, err := SetupRedis(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestDefaultConfigYAML_Loads(t *testing.T) {
	path := filepath.Join("..", "..", "configs", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("default config not present: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%s) error: %v", path, err)
	}
	if cfg.Session.Store != StoreMemory {
		t.Errorf("default session store = %q", cfg.Session.Store)
	}
}
