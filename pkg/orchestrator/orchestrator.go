// Package orchestrator owns the plugin session state. A single loop
// goroutine performs every tracker call, reacts to installer events and
// controls the poller; callers talk to it by posting requests.
package orchestrator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mickfx/obsplug/internal/logger"
	"github.com/mickfx/obsplug/pkg/errors"
	"github.com/mickfx/obsplug/pkg/installer"
	"github.com/mickfx/obsplug/pkg/tracker"
)

// ErrStopped is returned by requests made after Run has returned.
var ErrStopped = fmt.Errorf("orchestrator stopped")

// Orchestrator ties the tracker, installer, poller and bridge exporter together.
type Orchestrator struct {
	Tracker    StatusTracker
	Installer  PluginInstaller
	Poller     Scheduler      // optional
	NewWatcher WatcherFactory // optional
	Bridge     Exporter       // optional
	Hooks      Hooks
	// AutoInstall installs missing required plugins one after another,
	// trying each at most once per session.
	AutoInstall bool

	reqs       chan func()
	refreshReq chan struct{}
	done       chan struct{}

	// Owned by the loop.
	ctx       context.Context
	group     *errgroup.Group
	report    *tracker.Report
	milestone bool
	active    string
	attempted map[string]bool
	watcher   DirWatcher
}

// New creates an orchestrator. Optional collaborators are set on the
// returned value before Run.
func New(tr StatusTracker, inst PluginInstaller) *Orchestrator {
	return &Orchestrator{
		Tracker:    tr,
		Installer:  inst,
		reqs:       make(chan func()),
		refreshReq: make(chan struct{}, 1),
		done:       make(chan struct{}),
		attempted:  make(map[string]bool),
	}
}

// Run executes the state-owning loop until ctx is cancelled. It stops the
// poller and watcher, cancels a running installation and waits for its
// terminal event before returning. Run must be called once.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer close(o.done)

	g, gctx := errgroup.WithContext(ctx)
	o.ctx, o.group = gctx, g
	g.Go(func() error {
		o.loop(gctx)
		return nil
	})
	return g.Wait()
}

func (o *Orchestrator) loop(ctx context.Context) {
	for {
		select {
		case fn := <-o.reqs:
			fn()
		case <-o.refreshReq:
			_, _ = o.refresh()
		case <-ctx.Done():
			o.stopBackground()
			return
		}
	}
}

// RequestRefresh asks the loop for a status refresh without waiting.
// Pending requests coalesce. Safe to call from any goroutine.
func (o *Orchestrator) RequestRefresh() {
	select {
	case o.refreshReq <- struct{}{}:
	default:
	}
}

// SelectExecutable sets the OBS executable and refreshes the status.
// A rejected path keeps the previous target.
func (o *Orchestrator) SelectExecutable(ctx context.Context, path string) (tracker.Report, error) {
	var report tracker.Report
	err := o.do(ctx, func() error {
		target, err := o.Tracker.SetExecutablePath(path)
		if err != nil {
			o.emitError("", err)
			return err
		}
		o.report = nil
		o.emit(Event{Phase: PhaseTarget, Msg: target.ExecutablePath})
		o.restartWatcher(target.PluginDirectory)

		report, err = o.refresh()
		return err
	})
	if err != nil {
		return tracker.Report{}, err
	}
	return report, nil
}

// Refresh re-reads the plugin directory.
func (o *Orchestrator) Refresh(ctx context.Context) (tracker.Report, error) {
	var report tracker.Report
	err := o.do(ctx, func() error {
		var err error
		report, err = o.refresh()
		return err
	})
	if err != nil {
		return tracker.Report{}, err
	}
	return report, nil
}

// Report returns the latest successful refresh result.
func (o *Orchestrator) Report(ctx context.Context) (tracker.Report, bool, error) {
	var (
		report tracker.Report
		ok     bool
	)
	err := o.do(ctx, func() error {
		if o.report != nil {
			report, ok = *o.report, true
		}
		return nil
	})
	if err != nil {
		return tracker.Report{}, false, err
	}
	return report, ok, nil
}

// MilestoneReached reports whether the all-required milestone fired in this session.
func (o *Orchestrator) MilestoneReached(ctx context.Context) (bool, error) {
	var reached bool
	err := o.do(ctx, func() error {
		reached = o.milestone
		return nil
	})
	if err != nil {
		return false, err
	}
	return reached, nil
}

// Install starts installing the named plugin. The returned channel receives
// the task's result once the loop has processed it, including the refresh
// that follows. ErrInstallationBusy is returned without any event.
func (o *Orchestrator) Install(ctx context.Context, name string) (<-chan error, error) {
	var result <-chan error
	err := o.do(ctx, func() error {
		var err error
		result, err = o.startInstall(name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// do runs fn on the loop and waits for it. When ctx ends first, fn may still
// be running; callers read values fn writes only after a nil return.
func (o *Orchestrator) do(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	select {
	case o.reqs <- func() { errCh <- fn() }:
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return ErrStopped
	}
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post hands fn to the loop without waiting for it to run. It reports
// false when the loop is gone.
func (o *Orchestrator) post(ctx context.Context, fn func()) bool {
	select {
	case o.reqs <- fn:
		return true
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) refresh() (tracker.Report, error) {
	report, err := o.Tracker.RefreshStatus()
	if err != nil {
		o.emitError("", err)
		return tracker.Report{}, err
	}
	o.report = &report
	o.emit(Event{Phase: PhaseStatus, Report: &report})

	if report.AllRequiredInstalled() {
		o.stopPoller()
		o.reachMilestone()
		return report, nil
	}

	o.startPoller()
	if o.AutoInstall && o.active == "" {
		o.autoInstallNext(report)
	}
	return report, nil
}

func (o *Orchestrator) reachMilestone() {
	if o.milestone {
		return
	}
	o.milestone = true
	logger.Success("All required plugins are installed")
	o.emit(Event{Phase: PhaseMilestone, Msg: "all required plugins installed"})

	if o.Bridge == nil {
		return
	}
	dest, err := o.Bridge.Export()
	if err != nil {
		o.emitError("", err)
		return
	}
	if dest != "" {
		o.emit(Event{Phase: PhaseExported, Msg: dest})
	}
}

func (o *Orchestrator) autoInstallNext(report tracker.Report) {
	for _, spec := range report.Missing(true) {
		if o.attempted[spec.Name] {
			continue
		}
		if _, err := o.startInstall(spec.Name); err != nil {
			logger.Debugf("Auto-install of %s not started: %v", spec.Name, err)
		}
		return
	}
}

func (o *Orchestrator) startInstall(name string) (<-chan error, error) {
	// The installer goes idle before its terminal event reaches the loop;
	// the loop only releases once onTerminal has run.
	if o.active != "" {
		return nil, errors.Wrapf(errors.ErrInstallationBusy, "cannot install %s while %s is installing", name, o.active)
	}
	spec, err := o.Tracker.Catalog().Get(name)
	if err != nil {
		o.emitError(name, err)
		return nil, err
	}
	target, ok := o.Tracker.Target()
	if !ok {
		err := errors.Wrapf(errors.ErrTargetNotSet, "cannot install %s", name)
		o.emitError(name, err)
		return nil, err
	}

	task, err := o.Installer.Install(o.ctx, spec, target.ApplicationRoot)
	if err != nil {
		if !errors.IsSilent(err) {
			o.emitError(name, err)
		}
		return nil, err
	}

	o.active = spec.Name
	o.attempted[spec.Name] = true
	if o.Poller != nil {
		o.Poller.Suspend()
	}
	o.emit(Event{Phase: PhaseInstalling, ID: spec.Name, Msg: spec.DownloadURL})

	result := make(chan error, 1)
	o.group.Go(func() error {
		o.forward(o.ctx, task, result)
		return nil
	})
	return result, nil
}

// forward relays task events to the loop in order. Once the loop is gone
// the remaining events are drained and the result is still delivered.
func (o *Orchestrator) forward(ctx context.Context, task *installer.Task, result chan<- error) {
	for ev := range task.Events() {
		if !ev.Terminal() {
			o.post(ctx, func() { o.onProgress(ev) })
			continue
		}
		if !o.post(ctx, func() {
			o.onTerminal(ev)
			result <- ev.Err
		}) {
			result <- ev.Err
		}
	}
}

func (o *Orchestrator) onProgress(ev installer.Event) {
	o.emit(Event{Phase: PhaseDownloading, ID: ev.Spec.Name, Progress: ev.Progress})
}

func (o *Orchestrator) onTerminal(ev installer.Event) {
	o.active = ""
	if ev.Kind == installer.EventSuccess {
		o.emit(Event{Phase: PhaseInstalled, ID: ev.Spec.Name, Msg: ev.Artifact.ExtractedTo})
	} else {
		o.emitError(ev.Spec.Name, ev.Err)
	}
	if o.Poller != nil {
		o.Poller.Resume()
	}
	_, _ = o.refresh()
}

func (o *Orchestrator) startPoller() {
	if o.Poller == nil || o.Poller.Running() {
		return
	}
	if err := o.Poller.Start(); err != nil {
		logger.Warnf("Failed to start status poller: %v", err)
	}
}

func (o *Orchestrator) stopPoller() {
	if o.Poller != nil && o.Poller.Running() {
		o.Poller.Stop()
	}
}

func (o *Orchestrator) restartWatcher(dir string) {
	if o.NewWatcher == nil {
		return
	}
	if o.watcher != nil {
		_ = o.watcher.Stop()
		o.watcher = nil
	}
	paused := func() bool { return false }
	if o.Poller != nil {
		paused = o.Poller.Suspended
	}
	w := o.NewWatcher(dir, o.RequestRefresh, paused)
	if err := w.Start(); err != nil {
		logger.Debugf("Not watching %s: %v", dir, err)
		return
	}
	o.watcher = w
}

func (o *Orchestrator) stopBackground() {
	o.stopPoller()
	if o.watcher != nil {
		_ = o.watcher.Stop()
		o.watcher = nil
	}
}

func (o *Orchestrator) emit(e Event) {
	if o.Hooks.OnEvent != nil {
		o.Hooks.OnEvent(e)
	}
}

func (o *Orchestrator) emitError(id string, err error) {
	o.emit(Event{Phase: PhaseError, ID: id, Msg: errors.Notification(err), Err: err})
}
