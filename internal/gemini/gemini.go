package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/podlift/podlift/internal/listing"
	"google.golang.org/api/option"
)

const defaultModel = "gemini-2.5-flash"

const analysisPrompt = `You are an expert Print-on-Demand automation assistant.

YOUR GOAL: Analyze the product text and map it to a widely available "Industry Standard" blueprint to ensure upload success.

CRITICAL RULES:
1. IGNORE any specific brand names mentioned in the text (e.g. if text says "Comfort Colors" or "Next Level", IGNORE IT).
2. STRICTLY determine the generic Product Type (T-Shirt, Hoodie, Sweatshirt, Mug, etc.).
3. Map that type to the corresponding "Safe Bet" model number below for 'catalogSearchTerm'. These models have maximum provider availability:
   - T-Shirt / Tee -> "3001"
   - Hoodie / Hooded Sweatshirt -> "18500"
   - Sweatshirt / Crewneck -> "18000"
   - Mug / Coffee Cup -> "11oz Ceramic"
   - Long Sleeve -> "3501"
   - V-Neck -> "3005"
   - Tank Top -> "3480"

Tasks:
1. Extract a clean Title.
2. Extract a Description.
3. Extract Tags.
4. Set 'productType' to the generic type (e.g. "Hoodie").
5. Set 'catalogSearchTerm' to the "Safe Bet" model number defined above (e.g. "18500").

Text to analyze:
%s`

// maxListingText caps how much listing text is sent for analysis
const maxListingText = 3000

// Analyzer cleans noisy listing text into structured product metadata
// using Gemini with a JSON response schema.
type Analyzer struct {
	model string
}

// New returns a new Analyzer
func New() *Analyzer {
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultModel
	}
	return &Analyzer{model: model}
}

// AnalyzeListing extracts a cleaned title/description/tag set, the
// generic product type, and a catalog search term from raw listing text.
func (a *Analyzer) AnalyzeListing(ctx context.Context, rawText string) (*listing.Analysis, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(a.model)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = analysisSchema()

	if len(rawText) > maxListingText {
		rawText = rawText[:maxListingText]
	}

	resp, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf(analysisPrompt, rawText)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("empty content returned from Gemini")
	}

	txt, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected response format from Gemini")
	}

	var analysis listing.Analysis
	if err := json.Unmarshal([]byte(txt), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse analysis JSON: %w", err)
	}

	return &analysis, nil
}

func analysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
			"tags": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"catalogSearchTerm": {
				Type:        genai.TypeString,
				Description: "The Industry Standard Model Number (e.g. 3001, 18500)",
			},
			"productType": {
				Type:        genai.TypeString,
				Description: "Generic type like 'T-Shirt' or 'Hoodie'",
			},
		},
		Required: []string{"title", "description", "tags", "catalogSearchTerm", "productType"},
	}
}
