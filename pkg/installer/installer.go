// Package installer runs one plugin installation at a time: download the
// plugin archive into a private temp directory, extract it over the OBS
// application root, then report a single terminal result.
package installer

import (
	"context"
	stderrors "errors"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/mickfx/obsplug/internal/logger"
	"github.com/mickfx/obsplug/pkg/catalog"
	"github.com/mickfx/obsplug/pkg/download"
	"github.com/mickfx/obsplug/pkg/errors"
	"github.com/mickfx/obsplug/pkg/fsutil"
)

// Installer is a global single-flight installer. The zero value is not usable.
type Installer struct {
	dl       Downloader
	ex       Extractor
	tempRoot string

	mu      sync.Mutex
	state   State
	current catalog.PluginSpec
	wg      sync.WaitGroup
}

// New creates an installer. Archives are staged in per-task directories
// below tempRoot, which is created on demand.
func New(dl Downloader, ex Extractor, tempRoot string) *Installer {
	return &Installer{dl: dl, ex: ex, tempRoot: tempRoot}
}

// State returns the current state and, when in progress, the spec being installed.
func (i *Installer) State() (State, catalog.PluginSpec) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state, i.current
}

// Install starts installing spec into appRoot. It fails with
// ErrInstallationBusy when another task has not reached its terminal event.
// Every other failure is delivered as the task's EventFailure.
func (i *Installer) Install(ctx context.Context, spec catalog.PluginSpec, appRoot string) (*Task, error) {
	i.mu.Lock()
	if i.state != StateIdle {
		busy := i.current.Name
		i.mu.Unlock()
		return nil, errors.Wrapf(errors.ErrInstallationBusy, "cannot install %s while %s is installing", spec.Name, busy)
	}
	i.state = StateInProgress
	i.current = spec
	i.mu.Unlock()

	taskCtx, cancel := context.WithCancel(ctx)
	task := newTask(spec, cancel)

	logger.Debug("Starting installation", logger.Fields{
		"plugin": spec.Name,
		"url":    spec.DownloadURL,
		"root":   appRoot,
	})

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		defer cancel()

		artifact, err := i.run(taskCtx, task, appRoot)
		i.release()
		if err != nil {
			logger.Warnf("Installation of %s failed: %v", spec.Name, err)
		} else {
			logger.Debugf("Installation of %s extracted to %s", spec.Name, artifact.ExtractedTo)
		}
		task.finish(artifact, err)
	}()

	return task, nil
}

// Shutdown waits for the running task, if any, to finish. Its events must
// still be consumed.
func (i *Installer) Shutdown() {
	i.wg.Wait()
}

func (i *Installer) release() {
	i.mu.Lock()
	i.state = StateIdle
	i.current = catalog.PluginSpec{}
	i.mu.Unlock()
}

func (i *Installer) run(ctx context.Context, task *Task, appRoot string) (InstalledArtifact, error) {
	spec := task.Spec()

	if err := fsutil.CheckWritableDir(appRoot); err != nil {
		return InstalledArtifact{}, errors.Tagf(errors.ErrFilesystem, err, "application root %s", appRoot)
	}

	workDir, err := i.makeWorkDir(spec)
	if err != nil {
		return InstalledArtifact{}, err
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			logger.Warnf("Failed to remove temporary directory %s: %v", workDir, rmErr)
		}
	}()

	u, err := url.Parse(spec.DownloadURL)
	if err != nil {
		return InstalledArtifact{}, errors.Tagf(errors.ErrNetwork, err, "invalid download URL for %s", spec.Name)
	}

	archivePath, err := i.dl.Fetch(ctx, download.Item{
		ID:       spec.Name,
		URL:      u,
		Filename: slug(spec.Name) + ".zip",
	}, download.Options{
		Dir: workDir,
		Progress: func(p download.Progress) {
			task.emitProgress(ctx, p)
		},
	})
	if err != nil {
		return InstalledArtifact{}, classify(err, errors.ErrNetwork, "download "+spec.Name)
	}

	if err := i.ex.ExtractAll(ctx, archivePath, appRoot); err != nil {
		return InstalledArtifact{}, classify(err, errors.ErrArchive, "extract "+spec.Name)
	}

	return InstalledArtifact{Spec: spec, ExtractedTo: appRoot}, nil
}

func (i *Installer) makeWorkDir(spec catalog.PluginSpec) (string, error) {
	root := i.tempRoot
	if root == "" {
		var err error
		if root, err = fsutil.GetTempRoot(); err != nil {
			return "", errors.Tag(errors.ErrFilesystem, err, "resolve temporary directory")
		}
	}
	if err := fsutil.EnsureDir(root); err != nil {
		return "", errors.Tagf(errors.ErrFilesystem, err, "create temporary root %s", root)
	}
	dir, err := os.MkdirTemp(root, WorkDirPrefix+slug(spec.Name)+"-*")
	if err != nil {
		return "", errors.Tagf(errors.ErrFilesystem, err, "create temporary directory in %s", root)
	}
	return dir, nil
}

// classify keeps an error that already carries a network, archive or
// filesystem kind and tags anything else with fallback.
func classify(err, fallback error, msg string) error {
	switch errors.KindOf(err) {
	case errors.KindNetwork, errors.KindArchive, errors.KindFilesystem:
		return errors.Wrap(err, msg)
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Tag(errors.ErrNetwork, err, msg)
	}
	return errors.Tag(fallback, err, msg)
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "plugin"
	}
	return s
}
