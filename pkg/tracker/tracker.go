// Package tracker resolves an OBS installation and reports which catalog
// plugins are present in its plugin directory.
package tracker

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/mickfx/obsplug/internal/logger"
	"github.com/mickfx/obsplug/pkg/catalog"
	"github.com/mickfx/obsplug/pkg/errors"
)

// PluginStatus is the installed state of one catalog entry at refresh time.
type PluginStatus struct {
	Spec      catalog.PluginSpec
	Installed bool
}

// Report is the result of one refresh pass. Statuses follow catalog order.
type Report struct {
	Target   Target
	Statuses []PluginStatus
	byName   map[string]int
}

func newReport(target Target, statuses []PluginStatus) Report {
	r := Report{Target: target, Statuses: statuses, byName: make(map[string]int, len(statuses))}
	for i, s := range statuses {
		r.byName[s.Spec.Name] = i
	}
	return r
}

// Status returns the status for a plugin by name.
func (r Report) Status(name string) (PluginStatus, bool) {
	i, ok := r.byName[name]
	if !ok {
		return PluginStatus{}, false
	}
	return r.Statuses[i], true
}

// AllRequiredInstalled reports the milestone for this report.
func (r Report) AllRequiredInstalled() bool {
	return AllRequiredInstalled(r.Statuses)
}

// Missing returns the specs not installed, optionally restricted to required ones.
func (r Report) Missing(requiredOnly bool) []catalog.PluginSpec {
	var out []catalog.PluginSpec
	for _, s := range r.Statuses {
		if s.Installed || (requiredOnly && !s.Spec.Required) {
			continue
		}
		out = append(out, s.Spec)
	}
	return out
}

// AllRequiredInstalled is true iff every required status is installed.
// Optional entries never affect the result.
func AllRequiredInstalled(statuses []PluginStatus) bool {
	for _, s := range statuses {
		if s.Spec.Required && !s.Installed {
			return false
		}
	}
	return true
}

// Options configure a Tracker.
type Options struct {
	// ExecutableName is the expected base name of the OBS binary.
	ExecutableName string
	// PluginSubdir is the plugin directory relative to the application root.
	PluginSubdir string
	// Fs is the filesystem checked for plugin files. Defaults to the OS filesystem.
	Fs afero.Fs
}

// Tracker owns the catalog and the current installation target.
type Tracker struct {
	catalog *catalog.Catalog
	opts    Options

	mu     sync.Mutex
	target *Target
	last   *Report
}

// New creates a Tracker over cat.
func New(cat *catalog.Catalog, opts Options) *Tracker {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.ExecutableName == "" {
		opts.ExecutableName = DefaultExecutableName
	}
	if opts.PluginSubdir == "" {
		opts.PluginSubdir = DefaultPluginSubdir
	}
	return &Tracker{catalog: cat, opts: opts}
}

// Catalog returns the tracked catalog.
func (t *Tracker) Catalog() *catalog.Catalog { return t.catalog }

// SetExecutablePath validates path and stores the derived target. The path
// does not need to exist. Any previous report is discarded.
func (t *Tracker) SetExecutablePath(path string) (Target, error) {
	target, err := ResolveTarget(path, t.opts.ExecutableName, t.opts.PluginSubdir)
	if err != nil {
		return Target{}, err
	}

	t.mu.Lock()
	t.target = &target
	t.last = nil
	t.mu.Unlock()

	logger.Debug("installation target set", logger.Fields{
		"executable": target.ExecutablePath,
		"plugins":    target.PluginDirectory,
	})
	return target, nil
}

// Target returns the current target, if one is set.
func (t *Tracker) Target() (Target, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.target == nil {
		return Target{}, false
	}
	return *t.target, true
}

// RefreshStatus checks the plugin directory for every catalog entry.
func (t *Tracker) RefreshStatus() (Report, error) {
	target, ok := t.Target()
	if !ok {
		return Report{}, errors.ErrTargetNotSet
	}

	info, err := t.opts.Fs.Stat(target.PluginDirectory)
	if err != nil {
		if os.IsNotExist(err) {
			return Report{}, errors.Wrapf(errors.ErrDirectoryNotFound, "%s", target.PluginDirectory)
		}
		return Report{}, errors.Tagf(errors.ErrFilesystem, err, "stat %s", target.PluginDirectory)
	}
	if !info.IsDir() {
		return Report{}, errors.Wrapf(errors.ErrDirectoryNotFound, "%s is not a directory", target.PluginDirectory)
	}

	entries := t.catalog.Entries()
	statuses := make([]PluginStatus, 0, len(entries))
	for _, spec := range entries {
		installed, err := afero.Exists(t.opts.Fs, filepath.Join(target.PluginDirectory, spec.FileName))
		if err != nil {
			return Report{}, errors.Tagf(errors.ErrFilesystem, err, "check %s", spec.FileName)
		}
		statuses = append(statuses, PluginStatus{Spec: spec, Installed: installed})
	}

	report := newReport(target, statuses)
	t.mu.Lock()
	t.last = &report
	t.mu.Unlock()
	return report, nil
}

// Last returns the most recent report since the target was last set.
func (t *Tracker) Last() (Report, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return Report{}, false
	}
	return *t.last, true
}
