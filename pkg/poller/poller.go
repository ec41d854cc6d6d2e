// Package poller drives periodic status refreshes and watches the plugin
// directory for changes. Neither touches tracker state: both only invoke a
// trigger that posts a refresh request to the state owner.
package poller

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/mickfx/obsplug/internal/logger"
)

// DefaultInterval is the refresh period used when none is configured.
const DefaultInterval = 5 * time.Second

// Poller calls trigger every interval while started and not suspended.
type Poller struct {
	interval time.Duration
	trigger  func()

	mu     sync.Mutex
	sched  *gocron.Scheduler
	paused atomic.Bool
}

// New creates a stopped poller.
func New(interval time.Duration, trigger func()) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{interval: interval, trigger: trigger}
}

// Start schedules the refresh job. The first tick fires immediately.
// Starting a running poller is a no-op.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sched != nil {
		return nil
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(p.interval).Do(p.tick); err != nil {
		return err
	}
	s.StartAsync()
	p.sched = s

	logger.Debugf("Status poller started (every %s)", p.interval)
	return nil
}

// Stop halts the scheduler. A stopped poller can be started again.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sched == nil {
		return
	}
	p.sched.Stop()
	p.sched = nil
	logger.Debug("Status poller stopped")
}

// Suspend makes ticks no-ops until Resume. The schedule keeps running.
func (p *Poller) Suspend() {
	if !p.paused.Swap(true) {
		logger.Debug("Status poller suspended")
	}
}

// Resume re-enables ticks after Suspend.
func (p *Poller) Resume() {
	if p.paused.Swap(false) {
		logger.Debug("Status poller resumed")
	}
}

// Suspended reports whether ticks are currently ignored.
func (p *Poller) Suspended() bool { return p.paused.Load() }

// Running reports whether the scheduler is started.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sched != nil
}

// Interval returns the configured period.
func (p *Poller) Interval() time.Duration { return p.interval }

func (p *Poller) tick() {
	if p.paused.Load() {
		return
	}
	p.trigger()
}
