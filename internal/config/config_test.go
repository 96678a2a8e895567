package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o600))
	return dir
}

func TestLoadConfig_FileAndDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	dir := writeConfig(t, `
upstream:
  base_url: http://backend:8000/api/v1/
  breaker_timeout: 45s
scheduling:
  timezone: America/New_York
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://backend:8000/api/v1/", cfg.Upstream.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.Upstream.BreakerTimeout)
	assert.Equal(t, 15, cfg.Scheduling.SlotStep)
	assert.Equal(t, 10.0, cfg.Scheduling.TooltipGap)
	assert.Equal(t, 8.0, cfg.Scheduling.TooltipMargin)
	assert.Equal(t, 5*time.Minute, cfg.Catalog.TTL)
	assert.Equal(t, FeedHTTP, cfg.Feed.Source)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	dir := writeConfig(t, `
upstream:
  base_url: http://backend:8000/
server:
  port: 9000
`)
	t.Setenv("CONSOLE_UPSTREAM_BASE_URL", "http://override:8000/")
	t.Setenv("CONSOLE_SERVER_PORT", "9100")
	t.Setenv("CONSOLE_SCHEDULING_SESSION_IDLE_TTL", "5m")
	t.Setenv("CONSOLE_CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://override:8000/", cfg.Upstream.BaseURL)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Scheduling.SessionIdleTTL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CONSOLE_UPSTREAM_BASE_URL", "http://backend/")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "UTC", cfg.Scheduling.Timezone)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Upstream:   UpstreamConfig{BaseURL: "http://backend/"},
			Scheduling: SchedulingConfig{SlotStep: 15, Timezone: "UTC"},
			Feed:       FeedConfig{Source: FeedHTTP},
		}
	}
	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Upstream.BaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Scheduling.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Feed.Source = FeedPostgres
	assert.Error(t, cfg.Validate())
	cfg.Feed.Database = DatabaseConfig{Host: "db", Name: "booking"}
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Feed.Source = "ftp"
	assert.Error(t, cfg.Validate())
}

func TestConversions(t *testing.T) {
	cfg := &Config{
		Logging:  LoggingConfig{Level: "debug", Format: "console", File: LogFileConfig{Path: "/tmp/console.log", MaxSizeMB: 5}},
		Upstream: UpstreamConfig{BaseURL: "http://backend/", PageSize: 50},
		Redis:    RedisConfig{URL: "redis://localhost:6379/0", PoolSize: 4},
	}

	lc := cfg.LoggerConfig()
	assert.False(t, lc.JSON)
	require.NotNil(t, lc.File)
	assert.Equal(t, 5, lc.File.MaxSizeMB)

	assert.Equal(t, 50, cfg.ClientConfig().PageSize)
	assert.Equal(t, 4, cfg.Redis.ToBrokerConfig().PoolSize)
}
