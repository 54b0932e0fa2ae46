package catalogcmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/podlift/podlift/internal/blueprint"
	"github.com/podlift/podlift/internal/printify"
	"github.com/spf13/cobra"
)

// NewMatchCmd creates the match command
func NewMatchCmd() *cobra.Command {
	var (
		datasetPath   string
		term          string
		productType   string
		overridesFile string
		limit         int
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Dry-run blueprint resolution against a catalog snapshot",
		Long: `Runs the blueprint resolution pipeline (override rules, search term
scoring, safety-net fallback) against an exported snapshot or the live
catalog and prints the scored ranking.

Useful for tuning override rules and verifying what a listing with a given
product type would resolve to, without creating anything.`,
		Example: `  # Score a model number against an exported snapshot
  podlift catalog match --dataset catalog.parquet --term "18500"

  # Full resolution for a product type, with override rules
  podlift catalog match --dataset catalog.parquet --type Hoodie --overrides rules.yaml

  # Against the live catalog (requires PRINTIFY_API_KEY)
  podlift catalog match --term "3001"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if term == "" && productType == "" {
				return fmt.Errorf("either --term or --type is required")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			entries, err := loadEntries(ctx, datasetPath)
			if err != nil {
				return err
			}

			var rules []blueprint.OverrideRule
			if overridesFile != "" {
				rules, err = blueprint.LoadRulesFile(overridesFile)
				if err != nil {
					return err
				}
			}

			scoreTerm := term
			if scoreTerm == "" {
				scoreTerm = blueprint.SafetyTerm(productType)
			}
			printRanking(scoreTerm, entries, limit)

			resolved, err := blueprint.Resolve(productType, term, rules, entries)
			if err != nil {
				return fmt.Errorf("resolution failed: %w", err)
			}

			fmt.Println(strings.Repeat("=", 60))
			fmt.Printf("Resolved: %d  %s (%s)  model=%s\n", resolved.ID, resolved.Title, resolved.Brand, resolved.Model)
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Snapshot file (.parquet or .jsonl); live catalog if omitted")
	cmd.Flags().StringVar(&term, "term", "", "Search term to score (e.g. \"18500\")")
	cmd.Flags().StringVar(&productType, "type", "", "Product-type label to resolve (e.g. \"Hoodie\")")
	cmd.Flags().StringVar(&overridesFile, "overrides", "", "YAML file of override rules")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of ranked entries to print")

	return cmd
}

func loadEntries(ctx context.Context, datasetPath string) ([]printify.Blueprint, error) {
	if datasetPath != "" {
		return LoadSnapshot(datasetPath)
	}

	token := os.Getenv("PRINTIFY_API_KEY")
	if token == "" {
		return nil, fmt.Errorf("no --dataset given and PRINTIFY_API_KEY not set")
	}
	return printify.NewClient().ListBlueprints(ctx, token)
}

func printRanking(term string, entries []printify.Blueprint, limit int) {
	type scored struct {
		bp    printify.Blueprint
		score int
	}

	ranking := make([]scored, 0, len(entries))
	for _, bp := range entries {
		if s := blueprint.Score(term, bp); s > 0 {
			ranking = append(ranking, scored{bp: bp, score: s})
		}
	}
	sort.SliceStable(ranking, func(a, b int) bool {
		return ranking[a].score > ranking[b].score
	})

	fmt.Printf("Top matches for %q (%d candidates scored)\n", term, len(ranking))
	fmt.Println(strings.Repeat("-", 60))
	for i, s := range ranking {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Printf("%4d  %6d  %s (%s)  model=%s\n", s.score, s.bp.ID, s.bp.Title, s.bp.Brand, s.bp.Model)
	}
}
