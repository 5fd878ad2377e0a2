package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// HolidayFeed describes an ICS calendar whose events count as holidays.
type HolidayFeed struct {
	// ID is an internal identifier used for caching and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// URL is the ICS endpoint (http(s), file:// or a local path).
	URL string `yaml:"url" json:"url"`
	// Theme is applied to every holiday produced by this feed.
	Theme string `yaml:"theme,omitempty" json:"theme,omitempty"`
}

// StoreConfig selects where user-added holidays are persisted.
type StoreConfig struct {
	// Driver is one of "file" (default), "redis", "sqlite".
	Driver string `yaml:"driver" json:"driver"`
	// Path is the JSON file (file driver) or database file (sqlite driver).
	Path string `yaml:"path" json:"path"`
	// RedisURL is a redis:// URL for the redis driver.
	RedisURL string `yaml:"redis_url,omitempty" json:"redis_url,omitempty"`
	// Key is the well-known key the list is stored under.
	Key string `yaml:"key" json:"key"`
}

// MQTTConfig enables pushing frames to signage screens. Disabled when
// Broker is empty.
type MQTTConfig struct {
	Broker      string `yaml:"broker" json:"broker"`
	ClientID    string `yaml:"client_id" json:"client_id"`
	TopicPrefix string `yaml:"topic_prefix" json:"topic_prefix"`
}

// CaptureConfig controls the headless-browser PNG preview.
type CaptureConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	URL     string `yaml:"url,omitempty" json:"url,omitempty"`
	Output  string `yaml:"output" json:"output"`
	Width   int    `yaml:"width" json:"width"`
	Height  int    `yaml:"height" json:"height"`
}

// BatteryConfig enables the kiosk battery reader.
type BatteryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Bus     string `yaml:"bus,omitempty" json:"bus,omitempty"`
	Addr    uint16 `yaml:"addr" json:"addr"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level service configuration.
type Config struct {
	// Listen is the HTTP listen address for the viewer and API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogFormat is "json" or "console".
	LogFormat string `yaml:"log_format" json:"log_format"`

	// DocumentURL points at the countdown document (target, holidays,
	// quotes). Empty means the embedded default.
	DocumentURL string `yaml:"document_url" json:"document_url"`
	// ThemesURL points at the themes document. Empty means embedded.
	ThemesURL string `yaml:"themes_url" json:"themes_url"`

	// CacheDir holds the conditional-GET cache for remote documents.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// RefreshCron is the cron schedule for refetching documents and feeds.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// TickSeconds is how often the countdown is recomputed.
	TickSeconds int `yaml:"tick_seconds" json:"tick_seconds"`

	HolidayFeeds []HolidayFeed `yaml:"holiday_feeds" json:"holiday_feeds"`

	Store   StoreConfig   `yaml:"store" json:"store"`
	MQTT    MQTTConfig    `yaml:"mqtt" json:"mqtt"`
	Capture CaptureConfig `yaml:"capture" json:"capture"`
	Battery BatteryConfig `yaml:"battery" json:"battery"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultCacheDir    = "/var/lib/countdown/cache"
	defaultRefreshCron = "*/15 * * * *"
	defaultTickSeconds = 30
	defaultStorePath   = "/var/lib/countdown/holidays.json"
	defaultStoreKey    = "customHolidays"
	defaultTopicPrefix = "countdown"
	defaultCaptureOut  = "/var/lib/countdown/preview.png"
	defaultBatteryAddr = 0x57
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		c.LogFormat = "json"
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.TickSeconds <= 0 {
		c.TickSeconds = defaultTickSeconds
	}
	if c.HolidayFeeds == nil {
		c.HolidayFeeds = []HolidayFeed{}
	}
	for i := range c.HolidayFeeds {
		if c.HolidayFeeds[i].ID == "" {
			if c.HolidayFeeds[i].Name != "" {
				c.HolidayFeeds[i].ID = c.HolidayFeeds[i].Name
			} else {
				c.HolidayFeeds[i].ID = c.HolidayFeeds[i].URL
			}
		}
	}

	switch c.Store.Driver {
	case "file", "redis", "sqlite":
	default:
		c.Store.Driver = "file"
	}
	if c.Store.Path == "" {
		c.Store.Path = defaultStorePath
	}
	if c.Store.Key == "" {
		c.Store.Key = defaultStoreKey
	}

	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = defaultTopicPrefix
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "countdown"
	}

	if c.Capture.Output == "" {
		c.Capture.Output = defaultCaptureOut
	}
	if c.Capture.URL == "" {
		c.Capture.URL = "http://" + c.Listen + "/"
	}

	if c.Battery.Addr == 0 {
		c.Battery.Addr = defaultBatteryAddr
	}
}

// ApplyEnv overrides selected fields from the environment. Call it after
// Load so that .env files and container env win over the YAML file.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("COUNTDOWN_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("COUNTDOWN_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("COUNTDOWN_DOCUMENT_URL"); v != "" {
		c.DocumentURL = v
	}
	if v := os.Getenv("COUNTDOWN_REDIS_URL"); v != "" {
		c.Store.Driver = "redis"
		c.Store.RedisURL = v
	}
	if v := os.Getenv("COUNTDOWN_MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
	}
	if v := os.Getenv("COUNTDOWN_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TickSeconds = n
		}
	}
	c.Normalize()
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (parent directory created as needed) and returned.
//   - Otherwise the YAML is unmarshaled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file in the same directory,
// fsync, chmod 0600, rename).
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, ".countdown-config-*.tmp")
}

// WriteFileAtomic replaces path with data so readers never observe a
// partial file. The parent directory is created with 0700.
func WriteFileAtomic(path string, data []byte, pattern string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
