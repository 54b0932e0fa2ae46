package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/podlift/podlift/internal/archive"
	"github.com/podlift/podlift/internal/blueprint"
	"github.com/podlift/podlift/internal/catalog"
	"github.com/podlift/podlift/internal/listing"
	"github.com/podlift/podlift/internal/models"
	"github.com/podlift/podlift/internal/printify"
	"github.com/podlift/podlift/internal/provider"
)

// Progress percentages for each workflow state. Transitions are strictly
// forward; no state is revisited.
const (
	pctExtracting         = 10
	pctCatalogLoading     = 20
	pctMetadataResolved   = 30
	pctBlueprintTargeted  = 40
	pctConnectingProvider = 50
	pctArtworkUploading   = 55
	pctMockupsUploading   = 60
	pctProviderLocked     = 65
	pctProductCreating    = 75
	pctDone               = 100
)

// defaultVariantPrice is the listing price in cents for the enabled variant
const defaultVariantPrice = 2900

// EmitFunc receives one event per workflow state transition
type EmitFunc func(models.ProgressEvent)

// CommerceAPI is the slice of the commerce client the workflow calls
type CommerceAPI interface {
	UploadImage(ctx context.Context, token, fileName string, data []byte) (string, error)
	CreateProduct(ctx context.Context, token, shopID string, payload printify.ProductPayload) (*printify.Product, error)
}

// Analyzer is the AI text-cleanup collaborator. A nil result or an error
// means "fall back to freeform parsing", never a fatal failure.
type Analyzer interface {
	AnalyzeListing(ctx context.Context, rawText string) (*listing.Analysis, error)
}

// Runner drives the product creation workflow
type Runner struct {
	Catalog  *catalog.Cache
	Client   CommerceAPI
	Selector provider.Selector
	Analyzer Analyzer
	Policy   listing.Policy
	Markers  archive.Markers
}

// Request is one product creation job
type Request struct {
	Token       string
	ShopID      string
	ArchivePath string
	Precleaned  *listing.Analysis
	Overrides   []blueprint.OverrideRule
}

// Run executes the creation workflow, emitting ordered progress events.
// On success the returned ResultData describes the created listing; any
// error aborts the remaining stages. Remote side effects already
// performed (uploaded images) are not rolled back.
func (r *Runner) Run(ctx context.Context, req Request, emit EmitFunc) (*models.ResultData, error) {
	emit = monotonic(emit)

	emit(models.NewProgress(pctExtracting, "Extracting archive contents..."))
	bundle, err := archive.Open(req.ArchivePath, r.Markers)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	emit(models.NewProgress(pctCatalogLoading, "Fetching blueprint catalog..."))
	snap, err := r.Catalog.Get(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	details, searchHint, err := r.resolveMetadata(ctx, req, bundle)
	if err != nil {
		return nil, err
	}
	emit(models.NewProgress(pctMetadataResolved, fmt.Sprintf("Resolved listing metadata: %s", details.Title)))

	bp, err := blueprint.Resolve(details.ProductType, searchHint, req.Overrides, snap.Entries)
	if err != nil {
		return nil, err
	}
	emit(models.NewProgress(pctBlueprintTargeted, fmt.Sprintf("Targeting: %s (%s)", bp.Title, bp.Brand)))

	emit(models.NewProgress(pctConnectingProvider, fmt.Sprintf("Connecting to commerce API (shop %s)...", req.ShopID)))

	emit(models.NewProgress(pctArtworkUploading, "Uploading main artwork..."))
	mainImageID, err := r.Client.UploadImage(ctx, req.Token, bundle.MainImage.Name, bundle.MainImage.Data)
	if err != nil {
		return nil, err
	}

	emit(models.NewProgress(pctMockupsUploading, fmt.Sprintf("Uploading %d mockups...", len(bundle.Mockups))))
	mockupIDs := r.uploadMockups(ctx, req.Token, bundle.Mockups)

	selection, err := r.Selector.Select(ctx, req.Token, bp.ID)
	if err != nil {
		return nil, err
	}
	for _, attempt := range selection.Attempts {
		slog.Info("Provider skipped", "provider", attempt.ProviderID, "reason", attempt.Err)
	}
	emit(models.NewProgress(pctProviderLocked, fmt.Sprintf("Provider locked: %s", selection.ProviderTitle)))

	emit(models.NewProgress(pctProductCreating, "Creating product..."))
	payload := buildPayload(details, bp, selection, mainImageID, mockupIDs)
	product, err := r.Client.CreateProduct(ctx, req.Token, req.ShopID, payload)
	if err != nil {
		return nil, err
	}
	slog.Info("Product created", "product", product.ID, "blueprint", bp.ID, "provider", selection.ProviderID)

	emit(models.NewProgress(pctDone, "Success!"))

	return &models.ResultData{
		BlueprintID:     bp.ID,
		BlueprintTitle:  bp.Title,
		BlueprintBrand:  bp.Brand,
		ProductType:     details.ProductType,
		ListingTitle:    details.Title,
		MockupsUploaded: len(mockupIDs),
	}, nil
}

// resolveMetadata turns request metadata into ProductDetails plus the
// catalog search hint. Pre-cleaned fields win; otherwise the text-cleanup
// collaborator is consulted on the archive's listing text, and its
// absence or failure degrades to freeform parsing.
func (r *Runner) resolveMetadata(ctx context.Context, req Request, bundle *archive.Bundle) (*listing.ProductDetails, string, error) {
	pre := req.Precleaned

	if pre == nil && r.Analyzer != nil && bundle.ListingText != "" {
		analysis, err := r.Analyzer.AnalyzeListing(ctx, bundle.ListingText)
		if err != nil {
			slog.Warn("Listing analysis failed, falling back to freeform parsing", "err", err)
		} else {
			pre = analysis
		}
	}

	details, err := listing.Resolve(pre, bundle.ListingText, r.Policy)
	if err != nil {
		return nil, "", err
	}

	hint := ""
	if pre != nil {
		hint = pre.CatalogSearchTerm
	}
	return details, hint, nil
}

// uploadMockups uploads each mockup independently; a single failure is
// logged and skipped rather than failing the request.
func (r *Runner) uploadMockups(ctx context.Context, token string, mockups []archive.Entry) []string {
	ids := make([]string, 0, len(mockups))
	for _, m := range mockups {
		id, err := r.Client.UploadImage(ctx, token, m.Name, m.Data)
		if err != nil {
			slog.Warn("Mockup upload failed, skipping", "mockup", m.Name, "err", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func buildPayload(details *listing.ProductDetails, bp *printify.Blueprint, sel *provider.Selection, mainImageID string, mockupIDs []string) printify.ProductPayload {
	gallery := make([]printify.GalleryImage, 0, len(mockupIDs))
	for _, id := range mockupIDs {
		gallery = append(gallery, printify.GalleryImage{ID: id})
	}

	title := details.Title
	if title == "" {
		title = "Untitled"
	}

	return printify.ProductPayload{
		Title:           title,
		Description:     details.Description,
		Tags:            details.Tags,
		BlueprintID:     bp.ID,
		PrintProviderID: sel.ProviderID,
		Variants: []printify.VariantPrice{
			{ID: sel.VariantID, Price: defaultVariantPrice, IsEnabled: true},
		},
		PrintAreas: []printify.PrintArea{
			{
				VariantIDs: []int{sel.VariantID},
				Placeholders: []printify.Placeholder{
					{
						Position: "front",
						Images: []printify.PlacedImage{
							{ID: mainImageID, X: 0.5, Y: 0.5, Scale: 1, Angle: 0},
						},
					},
				},
			},
		},
		Images: gallery,
	}
}

// monotonic clamps emitted percentages so the stream never goes backwards
func monotonic(emit EmitFunc) EmitFunc {
	last := 0
	return func(ev models.ProgressEvent) {
		if ev.Percent < last {
			ev.Percent = last
		}
		last = ev.Percent
		emit(ev)
	}
}
