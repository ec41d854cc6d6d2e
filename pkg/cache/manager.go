// Package cache inspects and cleans the temporary root that holds the
// installer's per-task working directories. A task removes its own directory
// when it ends; anything left behind belongs to a process that was killed.
package cache

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mickfx/obsplug/internal/logger"
	"github.com/mickfx/obsplug/pkg/errors"
	"github.com/mickfx/obsplug/pkg/fsutil"
)

// ErrCacheDirectory is returned for an empty cache directory.
var ErrCacheDirectory = fmt.Errorf("invalid cache directory")

// WorkDir is a leftover working directory.
type WorkDir struct {
	Path    string
	Size    int64
	Files   int
	ModTime time.Time
}

// Info describes the temporary root.
type Info struct {
	Directory string
	TotalSize int64
	WorkDirs  []WorkDir
}

// CleanOptions selects which working directories are removed.
type CleanOptions struct {
	// OlderThan keeps directories modified more recently than this.
	OlderThan time.Duration
	DryRun    bool
}

// CleanResult lists what was (or would be) removed.
type CleanResult struct {
	Removed    []WorkDir
	TotalFreed int64
}

// Manager works on one temporary root.
type Manager struct {
	directory string
	prefix    string
	now       func() time.Time
	sizeOf    func(dir string) (int64, int, error)
}

// NewManager creates a manager for directory. Only entries whose name starts
// with prefix are considered.
func NewManager(directory, prefix string) *Manager {
	return &Manager{directory: directory, prefix: prefix, now: time.Now, sizeOf: getDirSizeAndFiles}
}

// NewDefaultManager uses the platform temporary root.
func NewDefaultManager(prefix string) (*Manager, error) {
	dir, err := fsutil.GetTempRoot()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get temporary root")
	}
	return NewManager(dir, prefix), nil
}

// GetDirectory returns the temporary root.
func (m *Manager) GetDirectory() string {
	return m.directory
}

// SetDirectory changes the temporary root.
func (m *Manager) SetDirectory(dir string) error {
	if dir == "" {
		return ErrCacheDirectory
	}
	m.directory = dir
	return nil
}

// GetInfo lists leftover working directories. A missing root is empty, and a
// directory removed while it is being measured is left out.
func (m *Manager) GetInfo() (*Info, error) {
	info := &Info{Directory: m.directory}

	entries, err := os.ReadDir(m.directory)
	if os.IsNotExist(err) {
		return info, nil
	}
	if err != nil {
		return nil, errors.Tagf(errors.ErrFilesystem, err, "read %s", m.directory)
	}

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), m.prefix) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		wd := WorkDir{Path: filepath.Join(m.directory, entry.Name()), ModTime: fi.ModTime()}
		wd.Size, wd.Files, err = m.sizeOf(wd.Path)
		if stderrors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, errors.Tagf(errors.ErrFilesystem, err, "error walking directory %s", wd.Path)
		}
		info.TotalSize += wd.Size
		info.WorkDirs = append(info.WorkDirs, wd)
	}
	return info, nil
}

// Clean removes leftover working directories according to options.
func (m *Manager) Clean(options CleanOptions) (*CleanResult, error) {
	info, err := m.GetInfo()
	if err != nil {
		return nil, err
	}

	result := &CleanResult{}
	cutoff := m.now().Add(-options.OlderThan)
	for _, wd := range info.WorkDirs {
		if options.OlderThan > 0 && wd.ModTime.After(cutoff) {
			continue
		}
		if !options.DryRun {
			if err := os.RemoveAll(wd.Path); err != nil {
				return result, errors.Tagf(errors.ErrFilesystem, err, "remove %s", wd.Path)
			}
		}
		logger.Debug("Removed working directory", logger.Fields{"path": wd.Path, "dry_run": options.DryRun})
		result.Removed = append(result.Removed, wd)
		result.TotalFreed += wd.Size
	}
	return result, nil
}

// getDirSizeAndFiles calculates directory size and file count.
func getDirSizeAndFiles(dir string) (size int64, count int, err error) {
	err = filepath.Walk(dir, func(_ string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !info.IsDir() {
			size += info.Size()
			count++
		}
		return nil
	})
	return size, count, err
}
