package handlers

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/podlift/podlift/internal/listing"
	"github.com/podlift/podlift/internal/models"
	"github.com/podlift/podlift/internal/printify"
)

// fakePrintify serves the slice of the commerce API the service calls
type fakePrintify struct {
	mux         *http.ServeMux
	uploadCount int
	failUpload  map[string]bool
	createdBody map[string]any
}

func newFakePrintify(t *testing.T) (*fakePrintify, *httptest.Server) {
	t.Helper()

	f := &fakePrintify{
		mux:        http.NewServeMux(),
		failUpload: map[string]bool{},
	}

	f.mux.HandleFunc("/catalog/blueprints.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode([]printify.Blueprint{
			{ID: 6, Title: "Unisex Jersey Short Sleeve Tee", Brand: "Bella+Canvas", Model: "3001"},
			{ID: 77, Title: "Unisex Heavy Blend Hooded Sweatshirt", Brand: "Gildan", Model: "18500"},
		})
	})

	f.mux.HandleFunc("/catalog/blueprints/77/print_providers.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]printify.PrintProvider{{ID: 29, Title: "SwiftPOD"}})
	})

	f.mux.HandleFunc("/catalog/blueprints/77/print_providers/29/variants.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"variants": []printify.Variant{{ID: 401, IsEnabled: true}},
		})
	})

	f.mux.HandleFunc("/uploads/images.json", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			FileName string `json:"file_name"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if f.failUpload[body.FileName] {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"message":"upstream storage error"}`)
			return
		}
		f.uploadCount++
		fmt.Fprintf(w, `{"id":"img-%d"}`, f.uploadCount)
	})

	f.mux.HandleFunc("/shops/shop-1/products.json", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		f.createdBody = payload
		fmt.Fprint(w, `{"id":"prod-1","title":"created"}`)
	})

	server := httptest.NewServer(f.mux)
	t.Cleanup(server.Close)
	return f, server
}

func newTestHandler(t *testing.T, server *httptest.Server) *Handler {
	t.Helper()
	t.Chdir(t.TempDir())
	return New(Config{
		Client: printify.NewClientWithBaseURL(server.URL),
		Policy: listing.BestEffort,
	})
}

func buildUploadRequest(t *testing.T, fields map[string]string, zipFiles map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if zipFiles != nil {
		var zipBuf bytes.Buffer
		zw := zip.NewWriter(&zipBuf)
		for name, content := range zipFiles {
			fw, err := zw.Create(name)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := fw.Write([]byte(content)); err != nil {
				t.Fatal(err)
			}
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}

		part, err := writer.CreateFormFile("zipFile", "listing.zip")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(zipBuf.Bytes()); err != nil {
			t.Fatal(err)
		}
	}

	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/api/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// decodeStream splits an ndjson body into progress events and the
// terminal envelope, asserting the envelope comes last and only once.
func decodeStream(t *testing.T, body string) ([]models.ProgressEvent, models.ServerResponse) {
	t.Helper()

	var events []models.ProgressEvent
	var terminal models.ServerResponse
	sawTerminal := false

	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		if line == "" {
			continue
		}
		if sawTerminal {
			t.Fatalf("content after terminal envelope: %s", line)
		}

		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(line), &probe); err != nil {
			t.Fatalf("invalid ndjson line %q: %v", line, err)
		}

		if probe.Type == "progress" {
			var ev models.ProgressEvent
			if err := json.Unmarshal([]byte(line), &ev); err != nil {
				t.Fatal(err)
			}
			events = append(events, ev)
			continue
		}

		if err := json.Unmarshal([]byte(line), &terminal); err != nil {
			t.Fatal(err)
		}
		sawTerminal = true
	}

	if !sawTerminal {
		t.Fatalf("stream missing terminal envelope: %s", body)
	}
	return events, terminal
}

func TestHandleUploadHoodieScenario(t *testing.T) {
	_, server := newFakePrintify(t)
	h := newTestHandler(t, server)

	req := buildUploadRequest(t, map[string]string{
		"printifyKey": "test-token",
		"storeId":     "shop-1",
	}, map[string]string{
		"original.png": "artwork",
		"mockup1.jpg":  "mockup",
		"listing.txt":  "Product_Type: Hoodie",
	})

	rec := httptest.NewRecorder()
	h.HandleUpload(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("content type = %q", ct)
	}

	events, terminal := decodeStream(t, rec.Body.String())

	if !terminal.Success {
		t.Fatalf("expected success, got %+v", terminal)
	}
	if terminal.Data == nil {
		t.Fatal("success envelope missing data")
	}
	if terminal.Data.BlueprintID != 77 {
		t.Errorf("blueprintId = %d, want 77", terminal.Data.BlueprintID)
	}
	if terminal.Data.MockupsUploaded != 1 {
		t.Errorf("mockupsUploaded = %d, want 1", terminal.Data.MockupsUploaded)
	}
	if terminal.Data.ProductType != "Hoodie" {
		t.Errorf("productType = %q, want Hoodie", terminal.Data.ProductType)
	}

	last := -1
	for _, ev := range events {
		if ev.Percent < last {
			t.Fatalf("progress regressed: %+v", events)
		}
		last = ev.Percent
	}
	if last != 100 {
		t.Errorf("final progress = %d, want 100", last)
	}
}

func TestHandleUploadMissingCredentials(t *testing.T) {
	_, server := newFakePrintify(t)
	h := newTestHandler(t, server)

	req := buildUploadRequest(t, map[string]string{}, map[string]string{"original.png": "x"})
	rec := httptest.NewRecorder()
	h.HandleUpload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	_, terminal := decodeStream(t, rec.Body.String())
	if terminal.Success {
		t.Errorf("expected failure envelope, got %+v", terminal)
	}
}

func TestHandleUploadOverrideRule(t *testing.T) {
	_, server := newFakePrintify(t)
	h := newTestHandler(t, server)

	req := buildUploadRequest(t, map[string]string{
		"printifyKey":       "test-token",
		"storeId":           "shop-1",
		"blueprintMappings": `[{"keyword":"Hoodie","blueprintId":77}]`,
	}, map[string]string{
		"original.png": "artwork",
		"listing.txt":  "Product_Type: Hoodie",
	})

	rec := httptest.NewRecorder()
	h.HandleUpload(rec, req)

	_, terminal := decodeStream(t, rec.Body.String())
	if !terminal.Success || terminal.Data.BlueprintID != 77 {
		t.Fatalf("override path failed: %+v", terminal)
	}
}

func TestHandleUploadNoArtwork(t *testing.T) {
	_, server := newFakePrintify(t)
	h := newTestHandler(t, server)

	req := buildUploadRequest(t, map[string]string{
		"printifyKey": "test-token",
		"storeId":     "shop-1",
	}, map[string]string{
		"listing.txt": "Product_Type: Hoodie",
	})

	rec := httptest.NewRecorder()
	h.HandleUpload(rec, req)

	_, terminal := decodeStream(t, rec.Body.String())
	if terminal.Success {
		t.Fatalf("expected failure for imageless archive, got %+v", terminal)
	}
	if !strings.Contains(terminal.Message, "image") {
		t.Errorf("message should name the missing artwork: %q", terminal.Message)
	}
}

func TestHandleUploadPrecleanedMetadata(t *testing.T) {
	f, server := newFakePrintify(t)
	h := newTestHandler(t, server)

	req := buildUploadRequest(t, map[string]string{
		"printifyKey":       "test-token",
		"storeId":           "shop-1",
		"geminiTitle":       "Cozy Cat Hoodie",
		"geminiDescription": "A very cozy hoodie.",
		"geminiTags":        "cat, cozy",
		"geminiSearchTerm":  "18500",
		"geminiProductType": "Hoodie",
	}, map[string]string{
		"original.png": "artwork",
	})

	rec := httptest.NewRecorder()
	h.HandleUpload(rec, req)

	_, terminal := decodeStream(t, rec.Body.String())
	if !terminal.Success {
		t.Fatalf("expected success, got %+v", terminal)
	}
	if terminal.Data.ListingTitle != "Cozy Cat Hoodie" {
		t.Errorf("listingTitle = %q", terminal.Data.ListingTitle)
	}
	if f.createdBody["title"] != "Cozy Cat Hoodie" {
		t.Errorf("created payload title = %v", f.createdBody["title"])
	}
}

func TestHandleCatalog(t *testing.T) {
	_, server := newFakePrintify(t)
	h := newTestHandler(t, server)

	// No credential: authorization error
	rec := httptest.NewRecorder()
	h.HandleCatalog(rec, httptest.NewRequest("GET", "/api/catalog", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", rec.Code)
	}

	// With credential: the full snapshot
	req := httptest.NewRequest("GET", "/api/catalog", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec = httptest.NewRecorder()
	h.HandleCatalog(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var entries []printify.Blueprint
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 catalog entries, got %d", len(entries))
	}
}
