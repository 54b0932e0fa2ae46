package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/podlift/podlift/internal/printify"
)

// DefaultPriority biases selection toward historically reliable providers:
// SwiftPOD, Monster Digital, DJ (Printify Choice).
var DefaultPriority = []int{29, 25, 3}

// CatalogAPI is the slice of the commerce API the selector needs
type CatalogAPI interface {
	ListProviders(ctx context.Context, token string, blueprintID int) ([]printify.PrintProvider, error)
	ListVariants(ctx context.Context, token string, blueprintID, providerID int) ([]printify.Variant, error)
}

// Selection is a resolved (provider, variant) pair plus the attempts it
// took to get there.
type Selection struct {
	ProviderID    int
	ProviderTitle string
	VariantID     int
	Attempts      []Attempt
}

// Attempt records one provider probe that did not yield a variant
type Attempt struct {
	ProviderID int
	Err        error
}

// NoVariantError means every provider was exhausted without finding an
// enabled variant.
type NoVariantError struct {
	BlueprintID int
	Attempts    []Attempt
}

func (e *NoVariantError) Error() string {
	return fmt.Sprintf("analyzed %d providers but found no enabled variants for blueprint %d", len(e.Attempts), e.BlueprintID)
}

// Selector picks a purchasable (provider, variant) pair for a blueprint.
// It is an interface so the greedy policy can be swapped for an
// exhaustive one without touching the workflow.
type Selector interface {
	Select(ctx context.Context, token string, blueprintID int) (*Selection, error)
}

// GreedySelector returns the first provider exposing an enabled variant,
// after a stable partial sort that moves priority providers to the front.
// Availability and speed over optimality.
type GreedySelector struct {
	client   CatalogAPI
	priority []int
}

// NewGreedySelector creates a selector with the default priority list
func NewGreedySelector(client CatalogAPI) *GreedySelector {
	return &GreedySelector{client: client, priority: DefaultPriority}
}

// NewGreedySelectorWithPriority creates a selector with a custom allow-list
func NewGreedySelectorWithPriority(client CatalogAPI, priority []int) *GreedySelector {
	return &GreedySelector{client: client, priority: priority}
}

// Select implements Selector
func (s *GreedySelector) Select(ctx context.Context, token string, blueprintID int) (*Selection, error) {
	providers, err := s.client.ListProviders(ctx, token, blueprintID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch providers for blueprint %d: %w", blueprintID, err)
	}
	if len(providers) == 0 {
		return nil, &NoVariantError{BlueprintID: blueprintID}
	}

	ordered := s.order(providers)
	slog.Info("Scanning providers for availability", "blueprint", blueprintID, "providers", len(ordered))

	var attempts []Attempt
	for _, p := range ordered {
		variants, err := s.client.ListVariants(ctx, token, blueprintID, p.ID)
		if err != nil {
			// A provider we cannot query has no usable variant; move on
			attempts = append(attempts, Attempt{ProviderID: p.ID, Err: err})
			continue
		}

		for _, v := range variants {
			if v.IsEnabled {
				slog.Info("Provider locked", "provider", p.ID, "title", p.Title, "variant", v.ID)
				return &Selection{
					ProviderID:    p.ID,
					ProviderTitle: p.Title,
					VariantID:     v.ID,
					Attempts:      attempts,
				}, nil
			}
		}
		attempts = append(attempts, Attempt{ProviderID: p.ID, Err: fmt.Errorf("no enabled variants")})
	}

	return nil, &NoVariantError{BlueprintID: blueprintID, Attempts: attempts}
}

// order places allow-listed providers first in allow-list order; all
// other providers keep their original relative order after them.
func (s *GreedySelector) order(providers []printify.PrintProvider) []printify.PrintProvider {
	rank := func(id int) int {
		for i, p := range s.priority {
			if p == id {
				return i
			}
		}
		return -1
	}

	ordered := make([]printify.PrintProvider, len(providers))
	copy(ordered, providers)

	sort.SliceStable(ordered, func(a, b int) bool {
		ra, rb := rank(ordered[a].ID), rank(ordered[b].ID)
		if ra != -1 && rb != -1 {
			return ra < rb
		}
		if ra != -1 {
			return true
		}
		return false
	})

	return ordered
}
