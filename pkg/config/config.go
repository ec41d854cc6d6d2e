// Package config loads and saves the obsplug configuration file. Every
// setting has a usable default, so a missing file is not an error.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mickfx/obsplug/pkg/bridge"
	"github.com/mickfx/obsplug/pkg/errors"
	"github.com/mickfx/obsplug/pkg/fsutil"
	"github.com/mickfx/obsplug/pkg/poller"
	"github.com/mickfx/obsplug/pkg/tracker"
)

// Config represents the application configuration.
type Config struct {
	Settings Settings `yaml:"settings"`
}

// Settings holds every tunable value.
type Settings struct {
	// OBS installation
	OBSPath        string `yaml:"obs_path,omitempty"`
	ExecutableName string `yaml:"executable_name"`
	PluginSubdir   string `yaml:"plugin_subdir"`

	// Refresh
	PollInterval   time.Duration `yaml:"poll_interval"`
	WatchPluginDir bool          `yaml:"watch_plugin_dir"`

	// Network settings
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	UserAgent   string        `yaml:"user_agent,omitempty"`

	// Paths
	TempDir      string `yaml:"temp_dir,omitempty"`
	DownloadsDir string `yaml:"downloads_dir,omitempty"`
	BridgeAsset  string `yaml:"bridge_asset,omitempty"`
	CatalogFile  string `yaml:"catalog_file,omitempty"`

	// Output settings
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json
}

// Default configuration values.
const (
	// DefaultHTTPTimeout bounds a whole plugin download.
	DefaultHTTPTimeout = 5 * time.Minute

	// BridgeAssetDir is the folder shipped next to the binary that holds the bridge asset.
	BridgeAssetDir = "MickFX Required Sources"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			ExecutableName: tracker.DefaultExecutableName,
			PluginSubdir:   tracker.DefaultPluginSubdir,
			PollInterval:   poller.DefaultInterval,
			WatchPluginDir: true,
			HTTPTimeout:    DefaultHTTPTimeout,
			LogLevel:       "info",
			LogFormat:      "text",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// SaveConfig writes the configuration to path, replacing it atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := fsutil.CreateFilePerm(tempPath, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}
	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	return data, nil
}

// Validate checks if the configuration is valid. Failures wrap ErrConfigValidation.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	s := c.Settings

	if s.ExecutableName == "" || strings.ContainsAny(s.ExecutableName, `/\`) {
		return invalid("executable_name must be a file name, got %q", s.ExecutableName)
	}
	if s.PluginSubdir == "" || filepath.IsAbs(s.PluginSubdir) {
		return invalid("plugin_subdir must be a relative path, got %q", s.PluginSubdir)
	}
	if s.PollInterval < 0 {
		return invalid("poll_interval cannot be negative")
	}
	if s.HTTPTimeout < 0 {
		return invalid("http_timeout cannot be negative")
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(s.LogFormat)] {
		return invalid("invalid log format: %s (must be text or json)", s.LogFormat)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return invalid("invalid log level: %s (must be one of debug, info, warn, error)", s.LogLevel)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errors.ErrConfigValidation, fmt.Sprintf(format, args...))
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := fsutil.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// BridgeAssetPath returns the configured bridge asset, or the asset shipped
// next to the running binary when present. It returns "" when neither exists.
func (c *Config) BridgeAssetPath() string {
	if c.Settings.BridgeAsset != "" {
		return c.Settings.BridgeAsset
	}
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(filepath.Dir(exe), BridgeAssetDir, bridge.AssetName)
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.ExecutableName == "" {
		c.Settings.ExecutableName = defaults.Settings.ExecutableName
	}
	if c.Settings.PluginSubdir == "" {
		c.Settings.PluginSubdir = defaults.Settings.PluginSubdir
	}
	if c.Settings.PollInterval == 0 {
		c.Settings.PollInterval = defaults.Settings.PollInterval
	}
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = defaults.Settings.HTTPTimeout
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
	if c.Settings.LogFormat == "" {
		c.Settings.LogFormat = defaults.Settings.LogFormat
	}
}
