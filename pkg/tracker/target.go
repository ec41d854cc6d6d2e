package tracker

import (
	"path/filepath"
	"strings"

	"github.com/mickfx/obsplug/pkg/errors"
)

// Defaults for an OBS Studio installation on Windows.
const (
	DefaultExecutableName = "obs64.exe"
	DefaultPluginSubdir   = "obs-plugins/64bit"
)

// Target is a resolved OBS installation.
type Target struct {
	// ExecutablePath is the absolute path to the OBS binary.
	ExecutablePath string
	// ApplicationRoot is three levels above ExecutablePath
	// (<root>/bin/64bit/obs64.exe). Plugin archives extract here.
	ApplicationRoot string
	// PluginDirectory is ApplicationRoot joined with the plugin subdirectory.
	PluginDirectory string
}

// ResolveTarget derives a Target from an executable path. It does not touch
// the filesystem.
func ResolveTarget(path, executableName, pluginSubdir string) (Target, error) {
	if executableName == "" {
		executableName = DefaultExecutableName
	}
	if pluginSubdir == "" {
		pluginSubdir = DefaultPluginSubdir
	}
	if strings.TrimSpace(path) == "" {
		return Target{}, errors.Wrap(errors.ErrInvalidTarget, "empty path")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Target{}, errors.Tagf(errors.ErrInvalidTarget, err, "resolve %s", path)
	}
	if !strings.EqualFold(filepath.Base(abs), executableName) {
		return Target{}, errors.Wrapf(errors.ErrInvalidTarget, "%s is not %s", abs, executableName)
	}

	root := filepath.Dir(filepath.Dir(filepath.Dir(abs)))
	return Target{
		ExecutablePath:  abs,
		ApplicationRoot: root,
		PluginDirectory: filepath.Join(root, filepath.FromSlash(pluginSubdir)),
	}, nil
}
