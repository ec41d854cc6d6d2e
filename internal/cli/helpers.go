package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mickfx/obsplug/internal/logger"
	"github.com/mickfx/obsplug/pkg/config"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
	NoColor    *bool
)

// EnvPrefix prefixes environment variables that override settings,
// e.g. OBSPLUG_OBS_PATH for obs_path.
const EnvPrefix = "OBSPLUG"

// overridable lists the settings exposed as global flags. The flag name is
// the key with underscores replaced by dashes.
var overridable = map[string]string{
	"obs_path":      "path to obs64.exe",
	"catalog_file":  "plugin catalog YAML file (default: built-in catalog)",
	"temp_dir":      "directory for temporary downloads",
	"downloads_dir": "destination for the SAMMI bridge asset (default: ~/Downloads)",
	"bridge_asset":  "path to the SAMMI bridge asset",
	"poll_interval": "status refresh interval",
	"log_level":     "log level (debug, info, warn, error)",
	"log_format":    "log format (text, json)",
}

var settings *viper.Viper

// BindSettings registers the setting override flags on cmd and binds them,
// together with OBSPLUG_* environment variables, for loadConfig.
func BindSettings(cmd *cobra.Command) error {
	settings = viper.New()
	settings.SetEnvPrefix(EnvPrefix)
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	flags := cmd.PersistentFlags()
	for _, key := range config.Keys() {
		if usage, ok := overridable[key]; ok {
			flags.String(flagName(key), "", usage)
			if err := settings.BindPFlag(key, flags.Lookup(flagName(key))); err != nil {
				return err
			}
		}
		if err := settings.BindEnv(key); err != nil {
			return err
		}
	}
	return nil
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// loadConfig reads the config file and applies flag and environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if settings != nil {
		for _, key := range config.Keys() {
			if !settings.IsSet(key) {
				continue
			}
			if err := cfg.SetValue(key, settings.GetString(key)); err != nil {
				return nil, fmt.Errorf("invalid override for %s: %w", key, err)
			}
		}
	}

	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.InitLogger(cfg.Settings.LogLevel, logger.ParseFormat(cfg.Settings.LogFormat))
	if NoColor != nil && *NoColor {
		color.NoColor = true
	}
	return cfg, nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}
