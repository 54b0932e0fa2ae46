package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/podlift/podlift/internal/archive"
	"github.com/podlift/podlift/internal/blueprint"
	"github.com/podlift/podlift/internal/catalog"
	"github.com/podlift/podlift/internal/listing"
	"github.com/podlift/podlift/internal/printify"
	"github.com/podlift/podlift/internal/provider"
	"github.com/podlift/podlift/internal/workflow"
)

type Handler struct {
	cache     *catalog.Cache
	runner    *workflow.Runner
	overrides []blueprint.OverrideRule
}

// Config wires the handler's collaborators
type Config struct {
	Client    *printify.Client
	Analyzer  workflow.Analyzer
	Policy    listing.Policy
	Overrides []blueprint.OverrideRule
	CacheTTL  time.Duration
}

// New creates a Handler around a live commerce client
func New(cfg Config) *Handler {
	client := cfg.Client
	if client == nil {
		client = printify.NewClient()
	}

	cache := catalog.New(cfg.CacheTTL, func(ctx context.Context, scope string) ([]printify.Blueprint, error) {
		return client.ListBlueprints(ctx, scope)
	})

	runner := &workflow.Runner{
		Catalog:  cache,
		Client:   client,
		Selector: provider.NewGreedySelector(client),
		Analyzer: cfg.Analyzer,
		Policy:   cfg.Policy,
		Markers:  archive.DefaultMarkers,
	}

	return &Handler{
		cache:     cache,
		runner:    runner,
		overrides: cfg.Overrides,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// File operation helpers
func (h *Handler) ensureUploadsDir() error {
	return os.MkdirAll("uploads", 0755)
}
