package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mickfx/obsplug/pkg/cache"
	"github.com/mickfx/obsplug/pkg/installer"
)

// NewCleanCmd creates the clean command.
func NewCleanCmd() *cobra.Command {
	var (
		olderThan time.Duration
		dryRun    bool
		info      bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove working directories left by interrupted installations",
		Long: `Every installation downloads into its own working directory below the
temporary root and removes it when it finishes. A process that was killed
leaves its directory behind; clean removes those leftovers.

A directory modified within --older-than may belong to an installation that
is still running in another obsplug process, so it is kept. Pass
--older-than 0 to remove every leftover regardless of age.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var mgr *cache.Manager
			if cfg.Settings.TempDir != "" {
				mgr = cache.NewManager(cfg.Settings.TempDir, installer.WorkDirPrefix)
			} else if mgr, err = cache.NewDefaultManager(installer.WorkDirPrefix); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if info {
				inf, err := mgr.GetInfo()
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "Directory: %s\nLeftovers: %d (%s)\n",
					inf.Directory, len(inf.WorkDirs), formatBytes(inf.TotalSize))
				for _, wd := range inf.WorkDirs {
					_, _ = fmt.Fprintf(out, "  %s  %s  %s\n", wd.Path, formatBytes(wd.Size), wd.ModTime.Format(time.RFC3339))
				}
				return nil
			}

			result, err := mgr.Clean(cache.CleanOptions{OlderThan: olderThan, DryRun: dryRun})
			if err != nil {
				return err
			}
			if len(result.Removed) == 0 {
				_, _ = fmt.Fprintln(out, "Nothing to clean.")
				return nil
			}
			verb := "Removed"
			if dryRun {
				verb = "Would remove"
			}
			for _, wd := range result.Removed {
				_, _ = fmt.Fprintf(out, "%s %s\n", verb, wd.Path)
			}
			_, _ = fmt.Fprintln(out, color.GreenString("%s %d director(ies), %s", verb, len(result.Removed), formatBytes(result.TotalFreed)))
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", DefaultCleanGrace, "Only remove directories not modified within this duration")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be removed")
	cmd.Flags().BoolVar(&info, "info", false, "Show leftover directories without removing them")

	return cmd
}
