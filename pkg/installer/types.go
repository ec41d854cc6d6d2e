//go:generate mockgen -destination=./mocks/installer.go . Extractor

package installer

import (
	"context"
	"fmt"

	"github.com/mickfx/obsplug/pkg/catalog"
	"github.com/mickfx/obsplug/pkg/download"
)

// WorkDirPrefix prefixes every per-task working directory below the
// temporary root.
const WorkDirPrefix = "install-"

// Downloader fetches a plugin archive. download.Manager satisfies it.
type Downloader interface {
	Fetch(ctx context.Context, item download.Item, opts download.Options) (string, error)
}

// Extractor unpacks a downloaded archive. archive.Manager satisfies it.
type Extractor interface {
	ExtractAll(ctx context.Context, archivePath, destDir string) error
}

// State is the installer's single-flight state.
type State int

// Installer states. An installer leaves StateInProgress only after the
// running task reached its terminal result.
const (
	StateIdle State = iota
	StateInProgress
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInProgress:
		return "in-progress"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// InstalledArtifact is the result of a completed extraction. It does not
// assert that the plugin is now detected; callers refresh status for that.
type InstalledArtifact struct {
	Spec        catalog.PluginSpec
	ExtractedTo string
}

// EventKind tags an Event.
type EventKind int

// Event kinds. A task emits zero or more EventProgress followed by exactly
// one EventSuccess or EventFailure.
const (
	EventProgress EventKind = iota
	EventSuccess
	EventFailure
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventSuccess:
		return "success"
	case EventFailure:
		return "failure"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one notification from a running task.
type Event struct {
	Kind     EventKind
	Spec     catalog.PluginSpec
	Progress download.Progress // EventProgress
	Artifact InstalledArtifact // EventSuccess
	Err      error             // EventFailure
}

// Terminal reports whether e ends its task.
func (e Event) Terminal() bool {
	return e.Kind == EventSuccess || e.Kind == EventFailure
}
