package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "podlift",
		Short: "Print-on-demand listing automation for Printify shops",
		Long: `Podlift turns a listing archive (artwork, mockups and product text) into a
live Printify product. It resolves the right catalog blueprint for the
product type, finds a print provider with an actually purchasable variant,
uploads the artwork and creates the product, streaming progress as it goes.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCatalogCmd())

	return cmd
}
