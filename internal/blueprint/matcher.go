package blueprint

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/podlift/podlift/internal/printify"
)

// ErrNoMatch means no catalog entry cleared the score threshold in any
// resolution stage.
var ErrNoMatch = errors.New("no blueprint matched the listing")

// scoreThreshold is the minimum score for a "good" match
const scoreThreshold = 10

// safetyTerms maps product-type keywords to model numbers with maximum
// provider availability. Checked in order; the generic tee is the
// unconditional default.
var safetyTerms = []struct {
	keyword string
	term    string
}{
	{"hoodie", "18500"},
	{"sweatshirt", "18000"},
	{"mug", "11oz"},
	{"long sleeve", "3501"},
	{"v-neck", "3005"},
	{"tank", "3480"},
}

const defaultSafetyTerm = "3001"

// Score rates how well a catalog entry matches a search term. Exact model
// matches dominate, because model numbers ("3001", "18500") are the most
// reliable proxy for provider availability.
func Score(term string, bp printify.Blueprint) int {
	term = strings.ToLower(term)
	brand := strings.ToLower(bp.Brand)
	title := strings.ToLower(bp.Title)
	model := strings.ToLower(bp.Model)

	score := 0
	if model != "" && model == term {
		score += 50
	} else if model != "" && strings.Contains(term, model) {
		score += 20
	}
	if brand != "" && strings.Contains(term, brand) {
		score += 10
	}
	if title != "" && strings.Contains(term, title) {
		score += 5
	}

	for _, token := range splitTerm(term) {
		if (brand != "" && strings.Contains(brand, token)) ||
			(title != "" && strings.Contains(title, token)) ||
			(model != "" && strings.Contains(model, token)) {
			score += 2
		}
	}

	return score
}

// Match returns the highest-scoring catalog entry for a term, or nil if
// no entry clears the threshold. Ties go to the first entry reaching the
// maximum in catalog order.
func Match(term string, entries []printify.Blueprint) *printify.Blueprint {
	if term == "" {
		return nil
	}

	var best *printify.Blueprint
	bestScore := 0
	for i := range entries {
		if s := Score(term, entries[i]); s > bestScore {
			bestScore = s
			best = &entries[i]
		}
	}

	if bestScore >= scoreThreshold {
		return best
	}
	return nil
}

// Resolve selects exactly one blueprint for a listing. Stages run in
// order and the first non-nil result wins: user override rules, the
// supplied search hint, then the safety-net term derived from the
// product-type label.
func Resolve(productType, searchHint string, rules []OverrideRule, entries []printify.Blueprint) (*printify.Blueprint, error) {
	if bp := resolveOverride(productType, rules, entries); bp != nil {
		return bp, nil
	}

	if searchHint != "" {
		if bp := Match(searchHint, entries); bp != nil {
			slog.Info("Blueprint matched via search hint", "hint", searchHint, "blueprint", bp.ID)
			return bp, nil
		}
	}

	term := SafetyTerm(productType)
	slog.Info("Falling back to safety-net term", "product_type", productType, "term", term)
	if bp := Match(term, entries); bp != nil {
		return bp, nil
	}

	return nil, ErrNoMatch
}

// SafetyTerm derives the fallback model token for a product-type label
func SafetyTerm(productType string) string {
	label := strings.ToLower(productType)
	for _, st := range safetyTerms {
		if strings.Contains(label, st.keyword) {
			return st.term
		}
	}
	return defaultSafetyTerm
}

func resolveOverride(productType string, rules []OverrideRule, entries []printify.Blueprint) *printify.Blueprint {
	if productType == "" {
		return nil
	}
	for _, rule := range rules {
		if !strings.EqualFold(rule.Keyword, productType) {
			continue
		}
		for i := range entries {
			if entries[i].ID == rule.BlueprintID {
				slog.Info("Override rule applied", "keyword", rule.Keyword, "blueprint", rule.BlueprintID)
				return &entries[i]
			}
		}
		// Target id is not in the live catalog; fall through to scoring
		slog.Warn("Override target missing from catalog", "keyword", rule.Keyword, "blueprint", rule.BlueprintID)
	}
	return nil
}

func splitTerm(term string) []string {
	return strings.FieldsFunc(term, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '+'
	})
}
