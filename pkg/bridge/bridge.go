// Package bridge exports the SAMMI bridge extension that accompanies the
// plugin set. The export runs once all required plugins are installed.
package bridge

import (
	"os"
	"path/filepath"

	"github.com/mickfx/obsplug/internal/logger"
	"github.com/mickfx/obsplug/pkg/errors"
	"github.com/mickfx/obsplug/pkg/fsutil"
)

// AssetName is the file name of the bundled bridge extension.
const AssetName = "MickFX Base.sef"

// Instructions tells the operator how to import the exported asset.
const Instructions = `To install in SAMMI:
  1. Open SAMMI
  2. Select SAMMI Bridge on the left
  3. Click 'Import Extension'
  4. Select '` + AssetName + `' from your Downloads folder`

// Exporter copies Source into DestDir, keeping the source's base name.
// An empty DestDir means the user's Downloads directory.
type Exporter struct {
	Source  string
	DestDir string
}

// Enabled reports whether a source asset is configured.
func (e Exporter) Enabled() bool { return e.Source != "" }

// Export copies the asset and returns the destination path. Without a
// configured source it does nothing and returns an empty path. Failures
// wrap ErrFilesystem.
func (e Exporter) Export() (string, error) {
	if !e.Enabled() {
		logger.Debug("No bridge asset configured, skipping export")
		return "", nil
	}

	info, err := os.Stat(e.Source)
	if err != nil {
		return "", errors.Tagf(errors.ErrFilesystem, err, "bridge asset %s", e.Source)
	}
	if info.IsDir() {
		return "", errors.Tagf(errors.ErrFilesystem, nil, "bridge asset %s is a directory", e.Source)
	}

	destDir := e.DestDir
	if destDir == "" {
		if destDir, err = fsutil.GetDownloadsDir(); err != nil {
			return "", errors.Tag(errors.ErrFilesystem, err, "resolve Downloads directory")
		}
	}
	if err := fsutil.EnsureDir(destDir); err != nil {
		return "", errors.Tagf(errors.ErrFilesystem, err, "create %s", destDir)
	}

	dest := filepath.Join(destDir, filepath.Base(e.Source))
	if err := fsutil.CopyFile(e.Source, dest); err != nil {
		return "", errors.Tag(errors.ErrFilesystem, err, "export bridge asset")
	}

	logger.Infof("Copied %s to %s", filepath.Base(e.Source), destDir)
	return dest, nil
}
