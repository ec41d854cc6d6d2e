package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mickfx/obsplug/pkg/catalog"
	"github.com/mickfx/obsplug/pkg/tracker"
)

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	var (
		required bool
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "install [PLUGIN...]",
		Short: "Install plugins",
		Long: `Download and install plugins into the OBS installation, one at a time.
Name plugins explicitly, or use --required for all missing required plugins
and --all for every missing plugin. Once all required plugins are present the
SAMMI bridge asset is copied to the Downloads folder.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, args, required, all)
		},
	}

	cmd.Flags().BoolVar(&required, "required", false, "Install all missing required plugins")
	cmd.Flags().BoolVar(&all, "all", false, "Install all missing plugins, including optional ones")
	cmd.MarkFlagsMutuallyExclusive("required", "all")

	return cmd
}

func runInstall(cmd *cobra.Command, names []string, required, all bool) error {
	if len(names) == 0 && !required && !all {
		return fmt.Errorf("specify plugin names, --required or --all")
	}
	if len(names) > 0 && (required || all) {
		return fmt.Errorf("plugin names cannot be combined with --required or --all")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := newSession(cfg, cmd.OutOrStdout(), sessionOptions{bridge: true})
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := s.cat.Get(name); err != nil {
			return err
		}
	}

	return s.run(cmd.Context(), func(ctx context.Context, report tracker.Report) error {
		targets := names
		if len(targets) == 0 {
			targets = specNames(report.Missing(required))
		}
		if len(targets) == 0 {
			_, _ = okColor.Fprintln(cmd.OutOrStdout(), "Nothing to install.")
			return nil
		}

		var failed int
		for _, name := range targets {
			result, err := s.orch.Install(ctx, name)
			if err != nil {
				return err
			}
			select {
			case err := <-result:
				if err != nil {
					failed++
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d plugin installation(s) failed", failed, len(targets))
		}
		return nil
	})
}

func specNames(specs []catalog.PluginSpec) []string {
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	return names
}
