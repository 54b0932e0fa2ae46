package cmd

import (
	"github.com/podlift/podlift/internal/catalogcmd"
	"github.com/spf13/cobra"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Blueprint catalog tools",
		Long: `Tools for working with the Printify blueprint catalog offline.

Supports exporting the live catalog to a parquet or jsonl snapshot and
dry-running the blueprint resolution pipeline against a snapshot, which is
useful for tuning override rules before deploying them.`,
	}

	// Add catalog subcommands
	cmd.AddCommand(catalogcmd.NewExportCmd())
	cmd.AddCommand(catalogcmd.NewMatchCmd())

	return cmd
}
