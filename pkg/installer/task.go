package installer

import (
	"context"
	"sync"

	"github.com/mickfx/obsplug/pkg/catalog"
	"github.com/mickfx/obsplug/pkg/download"
)

// Task is one in-flight installation. Consumers must drain Events or call
// Wait; the task does not finish until its terminal event is received.
type Task struct {
	spec   catalog.PluginSpec
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	progress download.Progress
	artifact InstalledArtifact
	err      error
}

func newTask(spec catalog.PluginSpec, cancel context.CancelFunc) *Task {
	return &Task{
		spec:   spec,
		events: make(chan Event, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Spec returns the plugin being installed.
func (t *Task) Spec() catalog.PluginSpec { return t.spec }

// Events delivers progress in non-decreasing byte order, then one terminal
// event. The channel is closed after the terminal event.
func (t *Task) Events() <-chan Event { return t.events }

// Done is closed once the terminal event has been delivered.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel aborts the transfer. The task still ends with a failure event.
func (t *Task) Cancel() { t.cancel() }

// Progress returns the latest progress snapshot.
func (t *Task) Progress() download.Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Wait drains the remaining events and returns the task's result.
func (t *Task) Wait() (InstalledArtifact, error) {
	for range t.events { //nolint:revive // draining
	}
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.artifact, t.err
}

func (t *Task) emitProgress(ctx context.Context, p download.Progress) {
	t.mu.Lock()
	t.progress = p
	t.mu.Unlock()

	select {
	case t.events <- Event{Kind: EventProgress, Spec: t.spec, Progress: p}:
	case <-ctx.Done():
	}
}

func (t *Task) finish(artifact InstalledArtifact, err error) {
	t.mu.Lock()
	t.artifact, t.err = artifact, err
	t.mu.Unlock()

	ev := Event{Kind: EventSuccess, Spec: t.spec, Artifact: artifact}
	if err != nil {
		ev = Event{Kind: EventFailure, Spec: t.spec, Err: err}
	}
	t.events <- ev
	close(t.events)
	close(t.done)
}
