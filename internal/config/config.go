package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Feeds     FeedsConfig     `yaml:"feeds"`
	Notify    NotifyConfig    `yaml:"notify"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// AuthConfig configures admin sessions.
type AuthConfig struct {
	SessionTTL string `yaml:"session_ttl"`
}

// ParseSessionTTL returns the session TTL as time.Duration.
func (a AuthConfig) ParseSessionTTL() time.Duration {
	d, err := time.ParseDuration(a.SessionTTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// RateLimitConfig holds formatted limiter rates ("<limit>-<period>",
// e.g. "10-M" for ten per minute) for the abuse-prone endpoints.
type RateLimitConfig struct {
	Like  string `yaml:"like"`
	Apply string `yaml:"apply"`
}

// FeedsConfig configures announcement feed import.
type FeedsConfig struct {
	Enabled bool       `yaml:"enabled"`
	Sources []FeedItem `yaml:"sources"`
	Author  string     `yaml:"author"`
}

// FeedItem is a single RSS/Atom feed entry.
type FeedItem struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// NotifyConfig configures announcement notification destinations.
type NotifyConfig struct {
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// DiscordConfig for Discord webhook notifications.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook notifications.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ScheduleConfig configures the daemon's periodic jobs.
type ScheduleConfig struct {
	FeedSyncInterval     string `yaml:"feed_sync_interval"`
	SessionPurgeInterval string `yaml:"session_purge_interval"`
}

// ParseFeedSyncInterval returns the feed sync interval as time.Duration.
func (s ScheduleConfig) ParseFeedSyncInterval() time.Duration {
	d, err := time.ParseDuration(s.FeedSyncInterval)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// ParseSessionPurgeInterval returns the session purge interval as time.Duration.
func (s ScheduleConfig) ParseSessionPurgeInterval() time.Duration {
	d, err := time.ParseDuration(s.SessionPurgeInterval)
	if err != nil {
		return time.Hour
	}
	return d
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./ratplace.db"},
		Server:   ServerConfig{Port: 8080},
		Auth:     AuthConfig{SessionTTL: "24h"},
		RateLimit: RateLimitConfig{
			Like:  "10-M",
			Apply: "3-H",
		},
		Feeds: FeedsConfig{
			Enabled: false,
			Author:  "feed",
		},
		Notify: NotifyConfig{},
		Schedule: ScheduleConfig{
			FeedSyncInterval:     "30m",
			SessionPurgeInterval: "1h",
		},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RATPLACE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("RATPLACE_SESSION_TTL"); v != "" {
		cfg.Auth.SessionTTL = v
	}
	if v := os.Getenv("RATPLACE_DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Notify.Discord.WebhookURL = v
		cfg.Notify.Discord.Enabled = true
	}
	if v := os.Getenv("RATPLACE_WEBHOOK_URL"); v != "" {
		cfg.Notify.Webhook.URL = v
		cfg.Notify.Webhook.Enabled = true
	}
	if v := os.Getenv("RATPLACE_WEBHOOK_SECRET"); v != "" {
		cfg.Notify.Webhook.Secret = v
	}
}
