package cli

import (
	"github.com/spf13/cobra"
)

// NewCatalogCmd creates the catalog command.
func NewCatalogCmd() *cobra.Command {
	var export bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the plugins obsplug knows about",
		Long: `List the plugin catalog in install order: required plugins first, then
optional ones. Use --export to print the catalog as YAML, suitable as a
starting point for a custom catalog_file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			if export {
				return cat.Encode(cmd.OutOrStdout())
			}
			printCatalog(cmd.OutOrStdout(), cat)
			return nil
		},
	}

	cmd.Flags().BoolVar(&export, "export", false, "Print the catalog as YAML")

	return cmd
}
