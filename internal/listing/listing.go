package listing

import (
	"fmt"
	"strings"
)

// Policy controls how freeform parsing treats missing fields
type Policy int

const (
	// BestEffort accepts whatever fields the listing text provides
	BestEffort Policy = iota
	// Strict fails the request when a required field is absent
	Strict
)

// ProductDetails is the canonical product record for one request
type ProductDetails struct {
	Title       string
	Description string
	Tags        []string
	ProductType string
}

// Analysis is the pre-cleaned metadata bundle produced by the AI
// text-cleanup collaborator (or supplied directly by the caller).
type Analysis struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Tags              []string `json:"tags"`
	CatalogSearchTerm string   `json:"catalogSearchTerm"`
	ProductType       string   `json:"productType"`
}

// IncompleteListingError reports required fields missing from a listing
// under the Strict policy.
type IncompleteListingError struct {
	Missing []string
}

func (e *IncompleteListingError) Error() string {
	return fmt.Sprintf("incomplete listing: missing %s", strings.Join(e.Missing, ", "))
}

// Resolve normalizes request metadata into ProductDetails. A pre-cleaned
// bundle wins over freeform text; with neither, a placeholder record is
// returned so that metadata absence degrades the listing instead of
// failing the request.
func Resolve(pre *Analysis, freeform string, policy Policy) (*ProductDetails, error) {
	if pre != nil && pre.Title != "" {
		details := &ProductDetails{
			Title:       pre.Title,
			Description: pre.Description,
			Tags:        pre.Tags,
			ProductType: pre.ProductType,
		}
		if details.ProductType == "" {
			details.ProductType = "AI Detected"
		}
		return details, nil
	}

	if strings.TrimSpace(freeform) != "" {
		return ParseFreeform(freeform, policy)
	}

	return &ProductDetails{
		Title:       "Untitled",
		Description: "",
		Tags:        []string{},
		ProductType: "",
	}, nil
}

// ParseFreeform parses "key: value" listing text into ProductDetails
func ParseFreeform(text string, policy Policy) (*ProductDetails, error) {
	fields := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		fields[key] = value
	}

	details := &ProductDetails{
		Title:       fields["Title"],
		Description: fields["Description"],
		Tags:        splitTags(fields["Tags"]),
		ProductType: fields["Product_Type"],
	}
	if details.ProductType == "" {
		details.ProductType = fields["Product Type"]
	}

	if policy == Strict {
		var missing []string
		if details.ProductType == "" {
			missing = append(missing, "productType")
		}
		if details.Title == "" {
			missing = append(missing, "title")
		}
		if details.Description == "" {
			missing = append(missing, "description")
		}
		if len(details.Tags) == 0 {
			missing = append(missing, "tags")
		}
		if len(missing) > 0 {
			return nil, &IncompleteListingError{Missing: missing}
		}
	}

	return details, nil
}

func splitTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
