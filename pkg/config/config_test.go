package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickfx/obsplug/pkg/errors"
	"github.com/mickfx/obsplug/pkg/fsutil"
	"github.com/mickfx/obsplug/test/testutil"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "obs64.exe", cfg.Settings.ExecutableName)
	assert.Equal(t, "obs-plugins/64bit", cfg.Settings.PluginSubdir)
	assert.Equal(t, 5*time.Second, cfg.Settings.PollInterval)
	assert.Equal(t, DefaultHTTPTimeout, cfg.Settings.HTTPTimeout)
	assert.True(t, cfg.Settings.WatchPluginDir)
	assert.Equal(t, "info", cfg.Settings.LogLevel)
	assert.Equal(t, "text", cfg.Settings.LogFormat)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	configPath := testutil.SetupTestConfig(t, `settings:
  obs_path: C:\Program Files\obs-studio\bin\64bit\obs64.exe
  poll_interval: 2s
  http_timeout: 1m
  downloads_dir: /tmp/downloads
  watch_plugin_dir: false
  log_level: debug
  log_format: json`)

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, `C:\Program Files\obs-studio\bin\64bit\obs64.exe`, cfg.Settings.OBSPath)
	assert.Equal(t, 2*time.Second, cfg.Settings.PollInterval)
	assert.Equal(t, time.Minute, cfg.Settings.HTTPTimeout)
	assert.Equal(t, "/tmp/downloads", cfg.Settings.DownloadsDir)
	assert.False(t, cfg.Settings.WatchPluginDir)
	assert.Equal(t, "debug", cfg.Settings.LogLevel)
	assert.Equal(t, "json", cfg.Settings.LogFormat)

	// Unset keys fall back to defaults.
	assert.Equal(t, "obs64.exe", cfg.Settings.ExecutableName)
	assert.Equal(t, "obs-plugins/64bit", cfg.Settings.PluginSubdir)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig("")
	assert.ErrorIs(t, err, errors.ErrEmptyConfigPath)

	_, err = LoadConfig(testutil.SetupTestConfig(t, "settings: [not, a, map"))
	assert.ErrorIs(t, err, errors.ErrConfigParse)

	_, err = LoadConfig(testutil.SetupTestConfig(t, "settings:\n  log_level: verbose\n"))
	assert.ErrorIs(t, err, errors.ErrConfigValidation)
}

func TestSaveConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.LogLevel = "debug"
	cfg.Settings.OBSPath = "/opt/obs-studio/bin/64bit/obs64.exe"
	cfg.Settings.PollInterval = 10 * time.Second

	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.SaveConfig(configPath))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(fsutil.FileModeDefault), info.Mode().Perm())
	assert.NoFileExists(t, configPath+".tmp")

	loaded, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	assert.ErrorIs(t, cfg.SaveConfig(""), errors.ErrEmptyConfigPath)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		errMsg string
	}{
		{"valid config", func(*Settings) {}, ""},
		{"uppercase level", func(s *Settings) { s.LogLevel = "DEBUG" }, ""},
		{"executable with directory", func(s *Settings) { s.ExecutableName = "bin/obs64.exe" }, "executable_name"},
		{"empty executable", func(s *Settings) { s.ExecutableName = "" }, "executable_name"},
		{"absolute plugin subdir", func(s *Settings) { s.PluginSubdir = "/obs-plugins" }, "plugin_subdir"},
		{"negative poll interval", func(s *Settings) { s.PollInterval = -time.Second }, "poll_interval"},
		{"negative timeout", func(s *Settings) { s.HTTPTimeout = -time.Second }, "http_timeout"},
		{"bad log format", func(s *Settings) { s.LogFormat = "xml" }, "log format"},
		{"bad log level", func(s *Settings) { s.LogLevel = "trace" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg.Settings)
			err := cfg.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, errors.ErrConfigValidation)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	var nilCfg *Config
	assert.ErrorIs(t, nilCfg.Validate(), errors.ErrConfigValidation)
}

func TestGetDefaultConfigPath(t *testing.T) {
	path, err := GetDefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", filepath.Base(path))
	assert.Equal(t, fsutil.AppName, filepath.Base(filepath.Dir(path)))
}

func TestBridgeAssetPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.BridgeAsset = "/srv/assets/MickFX Base.sef"
	assert.Equal(t, "/srv/assets/MickFX Base.sef", cfg.BridgeAssetPath())

	// The test binary has no bundled asset next to it.
	cfg.Settings.BridgeAsset = ""
	assert.Empty(t, cfg.BridgeAssetPath())
}

func TestSetAndGetValue(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.SetValue("obs_path", "/opt/obs/bin/64bit/obs64.exe"))
	require.NoError(t, cfg.SetValue("poll_interval", "30s"))
	require.NoError(t, cfg.SetValue("watch_plugin_dir", "false"))

	assert.Equal(t, "/opt/obs/bin/64bit/obs64.exe", cfg.Settings.OBSPath)
	assert.Equal(t, 30*time.Second, cfg.Settings.PollInterval)
	assert.False(t, cfg.Settings.WatchPluginDir)

	got, err := cfg.GetValue("poll_interval")
	require.NoError(t, err)
	assert.Equal(t, "30s", got)

	assert.Error(t, cfg.SetValue("poll_interval", "soon"))
	assert.Error(t, cfg.SetValue("watch_plugin_dir", "maybe"))
	assert.Error(t, cfg.SetValue("color", "true"))
	_, err = cfg.GetValue("color")
	assert.Error(t, err)
}

func TestToMapAndKeys(t *testing.T) {
	m := DefaultConfig().ToMap()
	keys := Keys()

	assert.Len(t, m, len(keys))
	assert.Equal(t, "obs_path", keys[0])
	assert.Equal(t, "log_format", keys[len(keys)-1])
	assert.Equal(t, "5s", m["poll_interval"])
	assert.Equal(t, "true", m["watch_plugin_dir"])
	for _, k := range keys {
		assert.False(t, strings.Contains(k, ","), k)
	}
}
