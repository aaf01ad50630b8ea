package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
)

const (
	MaxHistoryLimit  = 1000
	MaxRetryAttempts = 10
)

// Config holds all configuration for the application
type Config struct {
	Redis   RedisConfig
	Session SessionConfig
	Logging LoggingConfig
	Discord DiscordConfig
}

// RedisConfig holds Redis-specific configuration. URL wins over Addr when set.
type RedisConfig struct {
	URL      string `env:"REDIS_URL"`
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// SessionConfig tunes the sync protocol
type SessionConfig struct {
	HistoryLimit  int           `env:"SESSION_HISTORY_LIMIT" envDefault:"50"`
	PresenceTTL   time.Duration `env:"SESSION_PRESENCE_TTL" envDefault:"2m"`
	RetryAttempts uint64        `env:"SESSION_RETRY_ATTEMPTS" envDefault:"3"`
	// StreamMaxLen approximately caps each session log; 0 keeps everything
	StreamMaxLen int64 `env:"SESSION_STREAM_MAXLEN" envDefault:"10000"`
}

// LoggingConfig selects the zap level and encoder
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"console"`
}

// DiscordConfig holds the optional webhook roll and combat messages are mirrored to
type DiscordConfig struct {
	WebhookURL      string `env:"DISCORD_WEBHOOK_URL"`
	WebhookUsername string `env:"DISCORD_WEBHOOK_USERNAME" envDefault:"Sheet Sync"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom loads configuration from the given variables instead of the process environment
func LoadFrom(environment map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and formats
func (c *Config) Validate() error {
	if c.Redis.URL == "" && c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_URL or REDIS_ADDR is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("REDIS_DB must not be negative")
	}
	if c.Session.HistoryLimit < 1 || c.Session.HistoryLimit > MaxHistoryLimit {
		return fmt.Errorf("SESSION_HISTORY_LIMIT must be between 1 and %d, got %d", MaxHistoryLimit, c.Session.HistoryLimit)
	}
	if c.Session.PresenceTTL < time.Second {
		return fmt.Errorf("SESSION_PRESENCE_TTL must be at least 1s, got %s", c.Session.PresenceTTL)
	}
	if c.Session.RetryAttempts > MaxRetryAttempts {
		return fmt.Errorf("SESSION_RETRY_ATTEMPTS must be at most %d, got %d", MaxRetryAttempts, c.Session.RetryAttempts)
	}
	if c.Session.StreamMaxLen < 0 {
		return fmt.Errorf("SESSION_STREAM_MAXLEN must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}

	if c.Discord.WebhookURL != "" {
		if _, err := url.ParseRequestURI(c.Discord.WebhookURL); err != nil {
			return fmt.Errorf("DISCORD_WEBHOOK_URL is not a valid URL: %w", err)
		}
	}

	return nil
}

// Options builds go-redis options
func (c RedisConfig) Options() (*redis.Options, error) {
	if c.URL != "" {
		opts, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	}, nil
}
