package fsutil

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/mickfx/obsplug/pkg/platform"
)

const (
	// AppName is the name of the application used in paths
	AppName = "obsplug"
)

// GetCacheDir returns the platform-specific cache directory for the application
// On Linux: ~/.cache/obsplug/
// On macOS: ~/Library/Caches/obsplug/
// On Windows: %LOCALAPPDATA%\obsplug\
func GetCacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, AppName), nil
}

// GetTempRoot returns the directory under which per-installation working
// directories are created.
func GetTempRoot() (string, error) {
	cacheDir, err := GetCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName), nil
	}
	return filepath.Join(cacheDir, "tmp"), nil
}

// GetConfigDir returns the platform-specific configuration directory.
func GetConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// GetDownloadsDir returns the user's Downloads folder.
// On Windows: %USERPROFILE%\Downloads
// Elsewhere: $XDG_DOWNLOAD_DIR when set, else ~/Downloads
func GetDownloadsDir() (string, error) {
	if !platform.IsWindows(platform.Current()) {
		if xdg := os.Getenv("XDG_DOWNLOAD_DIR"); xdg != "" {
			return xdg, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if home == "" {
		return "", errors.New("home directory is empty")
	}
	return filepath.Join(home, "Downloads"), nil
}
