package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mickfx/obsplug/internal/cli"
	"github.com/mickfx/obsplug/pkg/errors"
)

var (
	configPath string
	verbose    bool
	noColor    bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.IsSilent(err) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", cli.Describe(err))
			if verbose {
				fmt.Fprintf(os.Stderr, "Details: %v\n", err)
			}
		}
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "obsplug",
		Short: "Install the MickFX plugin set into OBS Studio",
		Long: `obsplug checks an OBS Studio installation for the plugins MickFX needs,
downloads and extracts the missing ones into OBS, and exports the SAMMI
bridge extension once every required plugin is present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Set up CLI pkg variables
	cli.ConfigPath = &configPath
	cli.Verbose = &verbose
	cli.NoColor = &noColor
	if err := cli.BindSettings(cmd); err != nil {
		panic(err)
	}

	// Add subcommands
	cmd.AddCommand(
		cli.NewStatusCmd(),
		cli.NewInstallCmd(),
		cli.NewWatchCmd(),
		cli.NewCatalogCmd(),
		cli.NewConfigCmd(),
		cli.NewCleanCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
