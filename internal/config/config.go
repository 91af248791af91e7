// Package config handles application configuration
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"todolite/backend"
	"todolite/internal/reminder"
	"todolite/internal/views"
)

//go:embed config.sample.yaml
var sampleConfig string

// GetSampleConfig returns the embedded sample configuration content
func GetSampleConfig() string {
	return sampleConfig
}

// Storage backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config represents the application configuration
type Config struct {
	Storage      StorageConfig  `yaml:"storage"`
	DefaultView  string         `yaml:"default_view"`
	NoPrompt     bool           `yaml:"no_prompt"`
	OutputFormat string         `yaml:"output_format"`
	UI           UIConfig       `yaml:"ui"`
	Reminder     ReminderConfig `yaml:"reminder"`
	Logging      LoggingConfig  `yaml:"logging"`
}

// StorageConfig selects where the task list is kept
type StorageConfig struct {
	Backend string       `yaml:"backend"`
	Key     string       `yaml:"key"` // blob key, default todoLiteTasks
	File    FileConfig   `yaml:"file"`
	SQLite  SQLiteConfig `yaml:"sqlite"`
	Redis   RedisConfig  `yaml:"redis"`
}

// FileConfig holds file backend configuration
type FileConfig struct {
	Dir string `yaml:"dir"`
}

// SQLiteConfig holds SQLite backend configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig holds Redis backend configuration. The password is normally
// kept in the system keyring under Username; Password here is a fallback.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// UIConfig holds user interface settings
type UIConfig struct {
	DefaultSort string `yaml:"default_sort"`
	Locale      string `yaml:"locale"` // BCP 47 tag for name ordering
	ViewsDir    string `yaml:"views_dir"`
}

// ReminderConfig holds due-date notification settings
type ReminderConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Interval        string `yaml:"interval"`
	OSNotification  *bool  `yaml:"os_notification"`
	LogNotification bool   `yaml:"log_notification"`
	LogPath         string `yaml:"log_path"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	BackgroundEnabled *bool  `yaml:"background_enabled"` // log to a file while the TUI runs (default: true)
	BackgroundPath    string `yaml:"background_path"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendFile,
		},
		DefaultView:  "default",
		NoPrompt:     false,
		OutputFormat: "text",
		Reminder: ReminderConfig{
			Interval: "60s",
		},
	}
}

// Load loads configuration from the specified path, or the default XDG path if empty.
// If the config file doesn't exist, it creates one from the sample and returns defaults.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = filepath.Join(GetConfigDir(), "config.yaml")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults for unset fields.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file: %w", err)
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendFile
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "text"
	}
	if cfg.DefaultView == "" {
		cfg.DefaultView = "default"
	}

	cfg.Storage.File.Dir = ExpandPath(cfg.Storage.File.Dir)
	cfg.Storage.SQLite.Path = ExpandPath(cfg.Storage.SQLite.Path)
	cfg.UI.ViewsDir = ExpandPath(cfg.UI.ViewsDir)
	cfg.Reminder.LogPath = ExpandPath(cfg.Reminder.LogPath)
	cfg.Logging.BackgroundPath = ExpandPath(cfg.Logging.BackgroundPath)

	return cfg, nil
}

// save writes the embedded sample configuration to path
func (c *Config) save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.OutputFormat != "text" && c.OutputFormat != "json" {
		return fmt.Errorf("invalid output_format: %q (must be 'text' or 'json')", c.OutputFormat)
	}

	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required when storage.backend is 'redis'")
		}
	default:
		return fmt.Errorf("unknown storage.backend: %q (must be 'file', 'sqlite' or 'redis')", c.Storage.Backend)
	}

	if c.Storage.Key != "" {
		if err := backend.ValidateKey(c.Storage.Key); err != nil {
			return fmt.Errorf("invalid storage.key: %w", err)
		}
	}

	if c.UI.DefaultSort != "" {
		if _, err := views.ParseSortKey(c.UI.DefaultSort); err != nil {
			return fmt.Errorf("invalid ui.default_sort: %q", c.UI.DefaultSort)
		}
	}

	if c.Reminder.Interval != "" {
		d, err := reminder.ParseInterval(c.Reminder.Interval)
		if err != nil {
			return fmt.Errorf("invalid duration for reminder.interval: %q", c.Reminder.Interval)
		}
		if d < time.Second {
			return fmt.Errorf("reminder.interval must be at least 1s, got %q", c.Reminder.Interval)
		}
	}

	return nil
}

// ApplyFlags applies CLI flag overrides to the configuration
func (c *Config) ApplyFlags(noPrompt bool, outputFormat string) {
	if noPrompt {
		c.NoPrompt = true
	}
	if outputFormat != "" {
		c.OutputFormat = outputFormat
	}
}

// GetTasksKey returns the blob key the task list is stored under.
func (c *Config) GetTasksKey() string {
	if c.Storage.Key == "" {
		return backend.DefaultTasksKey
	}
	return c.Storage.Key
}

// GetFileDir returns the directory of the file backend.
func (c *Config) GetFileDir() string {
	if c.Storage.File.Dir == "" {
		return GetDataDir()
	}
	return c.Storage.File.Dir
}

// GetDatabasePath returns the path to the SQLite database
func (c *Config) GetDatabasePath() string {
	if c.Storage.SQLite.Path == "" {
		return filepath.Join(GetDataDir(), "todolite.db")
	}
	return c.Storage.SQLite.Path
}

// GetRedisPrefix returns the key prefix for the Redis backend.
// Returns "todolite:" if not configured.
func (c *Config) GetRedisPrefix() string {
	if c.Storage.Redis.Prefix == "" {
		return "todolite:"
	}
	return c.Storage.Redis.Prefix
}

// GetDefaultSort returns the sort used when none is given.
func (c *Config) GetDefaultSort() views.SortKey {
	key, err := views.ParseSortKey(c.UI.DefaultSort)
	if err != nil {
		return views.SortCreated
	}
	return key
}

// GetViewsDir returns the directory of saved views.
func (c *Config) GetViewsDir() string {
	if c.UI.ViewsDir == "" {
		return filepath.Join(GetConfigDir(), "views")
	}
	return c.UI.ViewsDir
}

// GetReminderInterval returns how often reminders are re-checked.
// Returns 60 seconds if not configured or invalid.
func (c *Config) GetReminderInterval() time.Duration {
	if c.Reminder.Interval == "" {
		return reminder.DefaultInterval
	}
	d, err := reminder.ParseInterval(c.Reminder.Interval)
	if err != nil {
		return reminder.DefaultInterval
	}
	return d
}

// IsOSNotificationEnabled returns true unless desktop notifications are
// explicitly switched off.
func (c *Config) IsOSNotificationEnabled() bool {
	if c.Reminder.OSNotification == nil {
		return true
	}
	return *c.Reminder.OSNotification
}

// GetNotificationLogPath returns the notification log file.
func (c *Config) GetNotificationLogPath() string {
	if c.Reminder.LogPath == "" {
		return filepath.Join(GetDataDir(), "notifications.log")
	}
	return c.Reminder.LogPath
}

// IsBackgroundLoggingEnabled returns true if the TUI should log to a file.
// Returns true (default) if not configured.
func (c *Config) IsBackgroundLoggingEnabled() bool {
	if c.Logging.BackgroundEnabled == nil {
		return true
	}
	return *c.Logging.BackgroundEnabled
}

// GetBackgroundLogPath returns the TUI log file.
func (c *Config) GetBackgroundLogPath() string {
	if c.Logging.BackgroundPath == "" {
		return filepath.Join(GetCacheDir(), "todolite.log")
	}
	return c.Logging.BackgroundPath
}

// getXDGDir returns a directory path following XDG spec.
// envVar is the XDG environment variable (e.g., "XDG_CONFIG_HOME").
// fallbackPath is the relative path from home (e.g., ".config").
func getXDGDir(envVar, fallbackPath string) string {
	if xdgDir := os.Getenv(envVar); xdgDir != "" {
		return filepath.Join(xdgDir, "todolite")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", fallbackPath, "todolite")
	}
	return filepath.Join(home, fallbackPath, "todolite")
}

// GetConfigDir returns the configuration directory following XDG spec
func GetConfigDir() string {
	return getXDGDir("XDG_CONFIG_HOME", ".config")
}

// GetDataDir returns the data directory following XDG spec
func GetDataDir() string {
	return getXDGDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// GetCacheDir returns the cache directory following XDG spec
func GetCacheDir() string {
	return getXDGDir("XDG_CACHE_HOME", ".cache")
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}
