package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/podlift/podlift/internal/blueprint"
	"github.com/podlift/podlift/internal/gemini"
	"github.com/podlift/podlift/internal/handlers"
	"github.com/podlift/podlift/internal/listing"
	"github.com/podlift/podlift/internal/workflow"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port          string
		strictListing bool
		overridesFile string
		cacheTTL      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the listing automation server",
		Long: `Starts the Podlift upload server on the specified port.

Callers POST a listing archive to /api/upload together with their Printify
credentials and receive a newline-delimited JSON progress stream while the
product is created. /api/catalog serves the cached blueprint catalog.`,
		Example: `  # Start server on default port 3001
  podlift serve

  # Strict listing validation and deployment-wide override rules
  podlift serve --port 8080 --strict --overrides overrides.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := listing.BestEffort
			if strictListing {
				policy = listing.Strict
			}

			var deploymentRules []blueprint.OverrideRule
			if overridesFile != "" {
				rules, err := blueprint.LoadRulesFile(overridesFile)
				if err != nil {
					return err
				}
				deploymentRules = rules
				slog.Info("Loaded override rules", "file", overridesFile, "rules", len(rules))
			}

			var analyzer workflow.Analyzer
			if os.Getenv("GEMINI_API_KEY") != "" {
				analyzer = gemini.New()
				slog.Info("Listing text cleanup enabled")
			}

			handler := handlers.New(handlers.Config{
				Analyzer:  analyzer,
				Policy:    policy,
				Overrides: deploymentRules,
				CacheTTL:  cacheTTL,
			})

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/upload", handler.HandleUpload)
			mux.HandleFunc("/api/catalog", handler.HandleCatalog)
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Podlift upload server available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "3001", "Port to listen on")
	cmd.Flags().BoolVar(&strictListing, "strict", false, "Reject freeform listings missing required fields")
	cmd.Flags().StringVar(&overridesFile, "overrides", "", "YAML file of product-type to blueprint override rules")
	cmd.Flags().DurationVar(&cacheTTL, "cache-ttl", time.Hour, "Blueprint catalog cache freshness window")

	return cmd
}
