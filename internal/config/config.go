package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/booking-console/internal/client"
	"github.com/jwalitptl/booking-console/internal/repository/postgres"
	"github.com/jwalitptl/booking-console/pkg/logger"
	"github.com/jwalitptl/booking-console/pkg/messaging/redis"
)

// EnvPrefix prefixes every environment override, e.g. CONSOLE_UPSTREAM_BASE_URL.
const EnvPrefix = "CONSOLE"

const (
	FeedHTTP     = "http"
	FeedPostgres = "postgres"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Upstream   UpstreamConfig   `mapstructure:"upstream"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Feed       FeedConfig       `mapstructure:"feed"`
	Auth       AuthConfig       `mapstructure:"auth"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit" envconfig:"RATE_LIMIT"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" split_words:"true"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" split_words:"true"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" split_words:"true"`
	HSTSMaxAge     int           `mapstructure:"hsts_max_age" envconfig:"HSTS_MAX_AGE"`
}

type LoggingConfig struct {
	Level      string        `mapstructure:"level"`
	Format     string        `mapstructure:"format"`
	TimeFormat string        `mapstructure:"time_format" split_words:"true"`
	File       LogFileConfig `mapstructure:"file"`
}

type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" envconfig:"MAX_SIZE_MB"`
	MaxBackups int    `mapstructure:"max_backups" split_words:"true"`
	MaxAgeDays int    `mapstructure:"max_age_days" envconfig:"MAX_AGE_DAYS"`
	Compress   bool   `mapstructure:"compress"`
}

type UpstreamConfig struct {
	BaseURL         string        `mapstructure:"base_url" envconfig:"BASE_URL"`
	Token           string        `mapstructure:"token"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RatePerSecond   float64       `mapstructure:"rate_per_second" split_words:"true"`
	Burst           int           `mapstructure:"burst"`
	BreakerFailures int           `mapstructure:"breaker_failures" split_words:"true"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout" split_words:"true"`
	PageSize        int           `mapstructure:"page_size" split_words:"true"`
}

type SchedulingConfig struct {
	SlotStep       int           `mapstructure:"slot_step" split_words:"true"`
	Timezone       string        `mapstructure:"timezone"`
	PhoneRegion    string        `mapstructure:"phone_region" split_words:"true"`
	TooltipGap     float64       `mapstructure:"tooltip_gap" split_words:"true"`
	TooltipMargin  float64       `mapstructure:"tooltip_margin" split_words:"true"`
	SessionIdleTTL time.Duration `mapstructure:"session_idle_ttl" envconfig:"SESSION_IDLE_TTL"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval" split_words:"true"`
}

type CatalogConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" split_words:"true"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries" split_words:"true"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" split_words:"true"`
	PoolSize     int           `mapstructure:"pool_size" split_words:"true"`
	MinIdleConns int           `mapstructure:"min_idle_conns" split_words:"true"`
}

type FeedConfig struct {
	Source   string         `mapstructure:"source"`
	Database DatabaseConfig `mapstructure:"database"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" split_words:"true"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" split_words:"true"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" split_words:"true"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" envconfig:"JWT_SECRET"`
	Issuer        string        `mapstructure:"issuer"`
	TokenTTL      time.Duration `mapstructure:"token_ttl" envconfig:"TOKEN_TTL"`
	DefaultTenant string        `mapstructure:"default_tenant" split_words:"true"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" split_words:"true"`
	Burst             int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" split_words:"true"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled" split_words:"true"`
	MetricsPath       string `mapstructure:"metrics_path" split_words:"true"`
	Namespace         string `mapstructure:"namespace"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.time_format", time.RFC3339)
	v.SetDefault("logging.file.max_size_mb", 100)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age_days", 28)

	v.SetDefault("upstream.timeout", "15s")
	v.SetDefault("upstream.burst", 10)
	v.SetDefault("upstream.rate_per_second", 20)
	v.SetDefault("upstream.breaker_failures", 5)
	v.SetDefault("upstream.breaker_timeout", "30s")
	v.SetDefault("upstream.page_size", 100)

	v.SetDefault("scheduling.slot_step", 15)
	v.SetDefault("scheduling.timezone", "UTC")
	v.SetDefault("scheduling.tooltip_gap", 10)
	v.SetDefault("scheduling.tooltip_margin", 8)
	v.SetDefault("scheduling.session_idle_ttl", "30m")
	v.SetDefault("scheduling.sweep_interval", "1m")

	v.SetDefault("catalog.ttl", "5m")
	v.SetDefault("catalog.cleanup_interval", "10m")

	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", "100ms")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("feed.source", FeedHTTP)
	v.SetDefault("feed.database.port", 5432)
	v.SetDefault("feed.database.sslmode", "disable")
	v.SetDefault("feed.database.max_open_conns", 10)
	v.SetDefault("feed.database.max_idle_conns", 5)
	v.SetDefault("feed.database.conn_max_lifetime", "30m")

	v.SetDefault("auth.issuer", "booking-console")
	v.SetDefault("auth.token_ttl", "12h")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("monitoring.prometheus_enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.namespace", "console")
}

// LoadConfig reads config.yml from the given directories, or from the standard locations
// when none are given. A missing file leaves the defaults in place. Environment
// variables prefixed with CONSOLE override both.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/app", "/app/config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return errors.New("upstream.base_url is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.Feed.Source {
	case FeedHTTP:
	case FeedPostgres:
		if c.Feed.Database.Host == "" || c.Feed.Database.Name == "" {
			return errors.New("feed.database host and name are required for the postgres feed")
		}
	default:
		return fmt.Errorf("unknown feed source %q", c.Feed.Source)
	}
	if c.Scheduling.SlotStep <= 0 {
		return errors.New("scheduling.slot_step must be positive")
	}
	return nil
}

// Location is the timezone used for tenants without their own setting.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Scheduling.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduling.timezone %q: %w", c.Scheduling.Timezone, err)
	}
	return loc, nil
}

func (c *Config) LoggerConfig() *logger.Config {
	cfg := &logger.Config{
		Level:      logger.ParseLevel(c.Logging.Level),
		TimeFormat: c.Logging.TimeFormat,
		JSON:       !strings.EqualFold(c.Logging.Format, "console"),
	}
	if c.Logging.File.Path != "" {
		cfg.File = &logger.FileConfig{
			Path:       c.Logging.File.Path,
			MaxSizeMB:  c.Logging.File.MaxSizeMB,
			MaxBackups: c.Logging.File.MaxBackups,
			MaxAgeDays: c.Logging.File.MaxAgeDays,
			Compress:   c.Logging.File.Compress,
		}
	}
	return cfg
}

func (c *Config) ClientConfig() client.Config {
	return client.Config{
		BaseURL:         c.Upstream.BaseURL,
		Token:           c.Upstream.Token,
		Timeout:         c.Upstream.Timeout,
		RatePerSecond:   c.Upstream.RatePerSecond,
		Burst:           c.Upstream.Burst,
		BreakerFailures: c.Upstream.BreakerFailures,
		BreakerTimeout:  c.Upstream.BreakerTimeout,
		PageSize:        c.Upstream.PageSize,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

func (c *DatabaseConfig) ToPostgresConfig() postgres.Config {
	return postgres.Config{
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Name:            c.Name,
		SSLMode:         c.SSLMode,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}
