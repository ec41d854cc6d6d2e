package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mickfx/obsplug/pkg/tracker"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which catalog plugins are installed",
		Long: `Check the OBS plugin directory and show the installation status of
every plugin in the catalog. Required plugins are listed first.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := newSession(cfg, cmd.ErrOrStderr(), sessionOptions{})
	if err != nil {
		return err
	}

	return s.run(cmd.Context(), func(_ context.Context, report tracker.Report) error {
		printReport(cmd.OutOrStdout(), report)
		return nil
	})
}
