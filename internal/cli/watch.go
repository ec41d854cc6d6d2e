package cli

import (
	"context"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mickfx/obsplug/internal/logger"
	"github.com/mickfx/obsplug/pkg/orchestrator"
	"github.com/mickfx/obsplug/pkg/tracker"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	var autoInstall bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the plugin status up to date",
		Long: `Poll the OBS plugin directory until every required plugin is installed,
printing status changes. Plugins installed by hand are picked up on the next
poll. With --auto-install, missing required plugins are installed one after
another; a failed plugin is not retried during the same run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, autoInstall)
		},
	}

	cmd.Flags().BoolVar(&autoInstall, "auto-install", false, "Install missing required plugins automatically")

	return cmd
}

func runWatch(cmd *cobra.Command, autoInstall bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	s, err := newSession(cfg, out, sessionOptions{poll: true, autoInstall: autoInstall, bridge: true})
	if err != nil {
		return err
	}

	done := make(chan struct{})
	var once sync.Once
	render := newRenderer(out)
	lastMissing := -1
	s.orch.Hooks.OnEvent = func(e orchestrator.Event) {
		render.OnEvent(e)
		switch e.Phase {
		case orchestrator.PhaseStatus:
			if n := len(e.Report.Missing(true)); n != lastMissing {
				lastMissing = n
				printReport(out, *e.Report)
			}
		case orchestrator.PhaseMilestone:
			once.Do(func() { close(done) })
		}
	}

	return s.run(cmd.Context(), func(ctx context.Context, report tracker.Report) error {
		if report.AllRequiredInstalled() {
			return nil
		}
		logger.Info("Watching for plugin changes, press Ctrl+C to stop")
		select {
		case <-done:
		case <-ctx.Done():
		}
		return nil
	})
}
