package printify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.printify.com/v1"

// Client is a Printify REST API client. Credentials are supplied per call
// because every request acts on behalf of a different merchant account.
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

// NewClient creates a new Printify client
func NewClient() *Client {
	return &Client{
		BaseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithBaseURL creates a client against a non-default endpoint,
// used by tests to point at a local fake server.
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.BaseURL = baseURL
	return c
}

// Blueprint is a catalog template for a physical product
type Blueprint struct {
	ID     int      `json:"id"`
	Title  string   `json:"title"`
	Brand  string   `json:"brand"`
	Model  string   `json:"model"`
	Images []string `json:"images"`
}

// PrintProvider is a fulfilment partner able to produce a blueprint
type PrintProvider struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// Variant is a purchasable configuration of a blueprint under a provider
type Variant struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	IsEnabled bool   `json:"is_enabled"`
}

// Product is the remote record returned after product creation
type Product struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ProductPayload is the request body for product creation
type ProductPayload struct {
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Tags            []string       `json:"tags"`
	BlueprintID     int            `json:"blueprint_id"`
	PrintProviderID int            `json:"print_provider_id"`
	Variants        []VariantPrice `json:"variants"`
	PrintAreas      []PrintArea    `json:"print_areas"`
	Images          []GalleryImage `json:"images"`
}

// VariantPrice enables a variant at a price in cents
type VariantPrice struct {
	ID        int  `json:"id"`
	Price     int  `json:"price"`
	IsEnabled bool `json:"is_enabled"`
}

// PrintArea positions artwork on a set of variants
type PrintArea struct {
	VariantIDs   []int         `json:"variant_ids"`
	Placeholders []Placeholder `json:"placeholders"`
}

// Placeholder is a named print position holding placed images
type Placeholder struct {
	Position string        `json:"position"`
	Images   []PlacedImage `json:"images"`
}

// PlacedImage positions an uploaded image within a placeholder
type PlacedImage struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
	Angle float64 `json:"angle"`
}

// GalleryImage attaches an uploaded image to the product gallery
type GalleryImage struct {
	ID string `json:"id"`
}

// UploadError is a failed artwork upload; Body carries the service's error
// payload verbatim for diagnosability.
type UploadError struct {
	FileName string
	Status   int
	Body     string
	Err      error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("image upload failed for %s: %v", e.FileName, e.Err)
	}
	return fmt.Sprintf("image upload failed for %s: status %d: %s", e.FileName, e.Status, e.Body)
}

func (e *UploadError) Unwrap() error { return e.Err }

// CreationError is a failed product creation; Body carries the service's
// error payload verbatim.
type CreationError struct {
	Status int
	Body   string
	Err    error
}

func (e *CreationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("product creation failed: %v", e.Err)
	}
	return fmt.Sprintf("product creation failed: status %d: %s", e.Status, e.Body)
}

func (e *CreationError) Unwrap() error { return e.Err }

// ListBlueprints fetches the full blueprint catalog
func (c *Client) ListBlueprints(ctx context.Context, token string) ([]Blueprint, error) {
	var blueprints []Blueprint
	if err := c.getJSON(ctx, token, "/catalog/blueprints.json", &blueprints); err != nil {
		return nil, fmt.Errorf("failed to list blueprints: %w", err)
	}
	return blueprints, nil
}

// ListProviders fetches the print providers offering a blueprint
func (c *Client) ListProviders(ctx context.Context, token string, blueprintID int) ([]PrintProvider, error) {
	path := fmt.Sprintf("/catalog/blueprints/%d/print_providers.json", blueprintID)
	var providers []PrintProvider
	if err := c.getJSON(ctx, token, path, &providers); err != nil {
		return nil, fmt.Errorf("failed to list providers for blueprint %d: %w", blueprintID, err)
	}
	return providers, nil
}

// ListVariants fetches the variants a provider offers for a blueprint
func (c *Client) ListVariants(ctx context.Context, token string, blueprintID, providerID int) ([]Variant, error) {
	path := fmt.Sprintf("/catalog/blueprints/%d/print_providers/%d/variants.json", blueprintID, providerID)
	var resp struct {
		Variants []Variant `json:"variants"`
	}
	if err := c.getJSON(ctx, token, path, &resp); err != nil {
		return nil, fmt.Errorf("failed to list variants for blueprint %d provider %d: %w", blueprintID, providerID, err)
	}
	return resp.Variants, nil
}

// UploadImage uploads image bytes and returns the opaque image id
func (c *Client) UploadImage(ctx context.Context, token, fileName string, data []byte) (string, error) {
	body := map[string]string{
		"file_name": fileName,
		"contents":  base64.StdEncoding.EncodeToString(data),
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", &UploadError{FileName: fileName, Err: err}
	}

	req, err := c.newRequest(ctx, token, "POST", "/uploads/images.json", jsonData)
	if err != nil {
		return "", &UploadError{FileName: fileName, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UploadError{FileName: fileName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &UploadError{FileName: fileName, Status: resp.StatusCode, Body: string(respBody)}
	}

	var upload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		return "", &UploadError{FileName: fileName, Err: fmt.Errorf("failed to decode upload response: %w", err)}
	}

	return upload.ID, nil
}

// CreateProduct submits a product to the merchant's shop
func (c *Client) CreateProduct(ctx context.Context, token, shopID string, payload ProductPayload) (*Product, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, &CreationError{Err: err}
	}

	path := fmt.Sprintf("/shops/%s/products.json", shopID)
	req, err := c.newRequest(ctx, token, "POST", path, jsonData)
	if err != nil {
		return nil, &CreationError{Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &CreationError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &CreationError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var product Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, &CreationError{Err: fmt.Errorf("failed to decode product response: %w", err)}
	}

	return &product, nil
}

func (c *Client) newRequest(ctx context.Context, token, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func (c *Client) getJSON(ctx context.Context, token, path string, out any) error {
	req, err := c.newRequest(ctx, token, "GET", path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
