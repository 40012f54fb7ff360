package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "./ratplace.db", cfg.Database.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Auth.ParseSessionTTL())
	assert.Equal(t, "10-M", cfg.RateLimit.Like)
	assert.Equal(t, 30*time.Minute, cfg.Schedule.ParseFeedSyncInterval())
	assert.Equal(t, time.Hour, cfg.Schedule.ParseSessionPurgeInterval())
	assert.False(t, cfg.Feeds.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /var/lib/ratplace/data.db
server:
  port: 9090
auth:
  session_ttl: 2h
feeds:
  enabled: true
  author: blogbot
  sources:
    - name: blog
      url: https://example.com/rss
schedule:
  feed_sync_interval: 5m
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/ratplace/data.db", cfg.Database.Path)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Auth.ParseSessionTTL())
	assert.True(t, cfg.Feeds.Enabled)
	require.Len(t, cfg.Feeds.Sources, 1)
	assert.Equal(t, "blog", cfg.Feeds.Sources[0].Name)
	assert.Equal(t, "blogbot", cfg.Feeds.Author)
	assert.Equal(t, 5*time.Minute, cfg.Schedule.ParseFeedSyncInterval())

	// Unspecified values keep their defaults.
	assert.Equal(t, "3-H", cfg.RateLimit.Apply)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RATPLACE_DB_PATH", "/tmp/override.db")
	t.Setenv("RATPLACE_SESSION_TTL", "1h")
	t.Setenv("RATPLACE_DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/x")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.Equal(t, time.Hour, cfg.Auth.ParseSessionTTL())
	assert.True(t, cfg.Notify.Discord.Enabled)
	assert.Equal(t, "https://discord.com/api/webhooks/x", cfg.Notify.Discord.WebhookURL)
}

func TestBadDurationFallsBack(t *testing.T) {
	cfg := Default()
	cfg.Auth.SessionTTL = "not-a-duration"
	assert.Equal(t, 24*time.Hour, cfg.Auth.ParseSessionTTL())
}
