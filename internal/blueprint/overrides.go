package blueprint

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// OverrideRule forces a product-type keyword to a specific blueprint id,
// bypassing scoring. Keywords match the product-type label exactly,
// case-insensitively.
type OverrideRule struct {
	Keyword     string `json:"keyword" yaml:"keyword"`
	BlueprintID int    `json:"blueprintId" yaml:"blueprintId"`
}

// ParseRules decodes the request's serialized override rules. An empty
// payload means no overrides.
func ParseRules(raw string) ([]OverrideRule, error) {
	if raw == "" {
		return nil, nil
	}
	var rules []OverrideRule
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		return nil, fmt.Errorf("failed to parse override rules: %w", err)
	}
	return rules, nil
}

// LoadRulesFile loads deployment-wide override rules from a YAML file
func LoadRulesFile(path string) ([]OverrideRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides file: %w", err)
	}

	var doc struct {
		Overrides []OverrideRule `yaml:"overrides"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse overrides file %s: %w", path, err)
	}

	return doc.Overrides, nil
}

// MergeRules combines request rules with deployment rules; request rules
// are checked first so a caller can shadow a deployment default.
func MergeRules(request, deployment []OverrideRule) []OverrideRule {
	merged := make([]OverrideRule, 0, len(request)+len(deployment))
	merged = append(merged, request...)
	merged = append(merged, deployment...)
	return merged
}
