package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_PartialFileIsNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
listen: 0.0.0.0:9000
document_url: https://example.com/config.json
holiday_feeds:
  - url: https://example.com/in.ics
    name: india
    theme: festival
store:
  driver: sqlite
  path: /tmp/h.db
mqtt:
  broker: tcp://localhost:1883
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "https://example.com/config.json", cfg.DocumentURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 30, cfg.TickSeconds)
	assert.Equal(t, "*/15 * * * *", cfg.RefreshCron)
	require.Len(t, cfg.HolidayFeeds, 1)
	assert.Equal(t, "india", cfg.HolidayFeeds[0].ID)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "customHolidays", cfg.Store.Key)
	assert.Equal(t, "countdown", cfg.MQTT.TopicPrefix)
	assert.Equal(t, "http://0.0.0.0:9000/", cfg.Capture.URL)
	assert.EqualValues(t, 0x57, cfg.Battery.Addr)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestNormalize_UnknownValues(t *testing.T) {
	cfg := &Config{LogLevel: "chatty", LogFormat: "xml", Store: StoreConfig{Driver: "postgres"}, TickSeconds: -5}
	cfg.Normalize()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, 30, cfg.TickSeconds)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("COUNTDOWN_LISTEN", "127.0.0.1:7000")
	t.Setenv("COUNTDOWN_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("COUNTDOWN_TICK_SECONDS", "10")
	t.Setenv("COUNTDOWN_MQTT_BROKER", "tcp://broker:1883")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	assert.Equal(t, "127.0.0.1:7000", cfg.Listen)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Store.RedisURL)
	assert.Equal(t, 10, cfg.TickSeconds)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}
	cfg.HolidayFeeds = []HolidayFeed{{ID: "in", URL: "file:///tmp/in.ics"}}

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
