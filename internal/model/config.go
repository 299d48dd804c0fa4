package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DefaultBaseURL is the root of the project-management REST API.
const DefaultBaseURL = "https://app.asana.com/api/1.0"

// APIConfig holds the remote API connection settings.
type APIConfig struct {
	// BaseURL is the root URL of the REST API.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// WorkspaceID scopes projects and tags.
	WorkspaceID string `mapstructure:"workspace_id" yaml:"workspace_id"`

	// TimeoutSec bounds a single HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// MaxRetries is how many times a rate-limited request is retried.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	File  string `mapstructure:"file" yaml:"file"`
	Level string `mapstructure:"level" yaml:"level"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	// CompactWidth is the terminal width below which the sidebar becomes
	// an overlay that closes after a project is picked.
	CompactWidth int `mapstructure:"compact_width" yaml:"compact_width"`

	// ThemePollSec is how often the terminal color scheme is re-read
	// while the user has not chosen a theme.
	ThemePollSec int `mapstructure:"theme_poll_sec" yaml:"theme_poll_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// ErrNoWorkspace is returned by Validate when no workspace is configured.
var ErrNoWorkspace = errors.New("api.workspace_id is not set")

// Validate reports settings the application cannot start without.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.API.WorkspaceID) == "" {
		return ErrNoWorkspace
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is empty")
	}
	return nil
}

// ConfigDir returns ~/.config/taskboard.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "taskboard")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskboard/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultPrefsPath returns the path of the preference database.
func DefaultPrefsPath() string {
	return filepath.Join(ConfigDir(), "prefs.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:    DefaultBaseURL,
			TimeoutSec: 30,
			MaxRetries: 3,
		},
		Log: LogConfig{
			File:  filepath.Join(ConfigDir(), "taskboard.log"),
			Level: "info",
		},
		Display: DisplayConfig{
			CompactWidth: 100,
			ThemePollSec: 5,
		},
	}
}

// newViper builds a Viper instance bound to path with defaults and
// TASKBOARD_* environment overrides.
func newViper(path string) *viper.Viper {
	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("taskboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.workspace_id", "")
	v.SetDefault("api.timeout_sec", def.API.TimeoutSec)
	v.SetDefault("api.max_retries", def.API.MaxRetries)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("display.compact_width", def.Display.CompactWidth)
	v.SetDefault("display.theme_poll_sec", def.Display.ThemePollSec)
	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults (plus environment overrides) are
// returned.
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper(path)
	return readConfig(v, path)
}

func readConfig(v *viper.Viper, path string) (*AppConfig, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.API.TimeoutSec <= 0 {
		cfg.API.TimeoutSec = 30
	}
	if cfg.API.MaxRetries < 0 {
		cfg.API.MaxRetries = 0
	}
	if cfg.Display.ThemePollSec <= 0 {
		cfg.Display.ThemePollSec = 5
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	return cfg, nil
}

// WatchConfig re-reads path whenever it changes on disk and hands the new
// configuration to onChange. Parse failures are passed to onError.
func WatchConfig(path string, onChange func(*AppConfig), onError func(error)) {
	v := newViper(path)
	if _, err := readConfig(v, path); err != nil {
		onError(err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := readConfig(v, path)
		if err != nil {
			onError(err)
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("log", cfg.Log)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
