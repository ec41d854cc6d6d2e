//go:generate mockgen -destination=./mocks/orchestrator.go . Scheduler,Exporter

package orchestrator

import (
	"context"

	"github.com/mickfx/obsplug/pkg/catalog"
	"github.com/mickfx/obsplug/pkg/download"
	"github.com/mickfx/obsplug/pkg/installer"
	"github.com/mickfx/obsplug/pkg/tracker"
)

// StatusTracker is the subset of the tracker used by the orchestrator.
// It is only ever called from the orchestrator loop.
type StatusTracker interface {
	Catalog() *catalog.Catalog
	SetExecutablePath(path string) (tracker.Target, error)
	Target() (tracker.Target, bool)
	RefreshStatus() (tracker.Report, error)
}

// PluginInstaller starts single-flight installations.
type PluginInstaller interface {
	Install(ctx context.Context, spec catalog.PluginSpec, appRoot string) (*installer.Task, error)
}

// Scheduler is the periodic refresh driver.
type Scheduler interface {
	Start() error
	Stop()
	Suspend()
	Resume()
	Suspended() bool
	Running() bool
}

// Exporter publishes the bridge asset once the milestone is reached.
type Exporter interface {
	Export() (string, error)
}

// DirWatcher notifies about plugin directory changes.
type DirWatcher interface {
	Start() error
	Stop() error
}

// WatcherFactory builds a DirWatcher for dir that calls trigger on change
// and drops changes while paused returns true.
type WatcherFactory func(dir string, trigger func(), paused func() bool) DirWatcher

// Phase names the kind of an Event.
type Phase string

// Event phases, in the order a typical session produces them.
const (
	PhaseTarget      Phase = "target"
	PhaseStatus      Phase = "status"
	PhaseInstalling  Phase = "installing"
	PhaseDownloading Phase = "downloading"
	PhaseInstalled   Phase = "installed"
	PhaseMilestone   Phase = "milestone"
	PhaseExported    Phase = "exported"
	PhaseError       Phase = "error"
)

// Event is a notification delivered to Hooks on the orchestrator loop.
type Event struct {
	Phase    Phase
	ID       string // plugin name, when the event concerns one plugin
	Msg      string
	Report   *tracker.Report   // PhaseStatus
	Progress download.Progress // PhaseDownloading
	Err      error             // PhaseError
}

// Hooks carries callbacks for events. OnEvent runs on the orchestrator loop
// and must not call back into the orchestrator synchronously.
type Hooks struct {
	OnEvent func(Event)
}
