package catalogcmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/podlift/podlift/internal/printify"
	"github.com/spf13/cobra"
)

// NewExportCmd creates the export command
func NewExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the live blueprint catalog to a snapshot file",
		Long: `Fetches the full blueprint catalog from Printify and writes it to a
parquet or jsonl snapshot, chosen by the output file extension.

Requires PRINTIFY_API_KEY in the environment (or a .env file).`,
		Example: `  # Export to parquet
  podlift catalog export --output catalog.parquet

  # Export to jsonl
  podlift catalog export --output catalog.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			token := os.Getenv("PRINTIFY_API_KEY")
			if token == "" {
				return fmt.Errorf("PRINTIFY_API_KEY environment variable not set")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := printify.NewClient()
			blueprints, err := client.ListBlueprints(ctx, token)
			if err != nil {
				return fmt.Errorf("failed to fetch catalog: %w", err)
			}

			if err := WriteSnapshot(output, toRecords(blueprints)); err != nil {
				return err
			}

			fmt.Printf("Wrote %d blueprints to %s\n", len(blueprints), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "catalog.parquet", "Snapshot file to write (.parquet or .jsonl)")

	return cmd
}
