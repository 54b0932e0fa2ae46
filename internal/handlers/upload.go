package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/podlift/podlift/internal/blueprint"
	"github.com/podlift/podlift/internal/listing"
	"github.com/podlift/podlift/internal/models"
	"github.com/podlift/podlift/internal/workflow"
)

// maxArchiveSize caps uploaded listing archives at 50MB
const maxArchiveSize = 50 * 1024 * 1024

// HandleUpload accepts a listing archive plus credentials and streams
// newline-delimited progress while the product is created. The stream
// always ends with exactly one terminal envelope.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	slog.Info("Upload request received", "remote", r.RemoteAddr)

	file, header, err := r.FormFile("zipFile")
	if err != nil {
		file, header, err = r.FormFile("file")
	}
	if err != nil {
		h.writeTerminal(w, http.StatusBadRequest, models.ServerResponse{
			Success: false,
			Message: "Missing file or API keys.",
		})
		return
	}
	defer file.Close()

	token := r.FormValue("printifyKey")
	if token == "" {
		h.writeTerminal(w, http.StatusBadRequest, models.ServerResponse{
			Success: false,
			Message: "Missing file or API keys.",
		})
		return
	}

	shopID := r.FormValue("storeId")
	if shopID == "" {
		shopID = os.Getenv("PRINTIFY_SHOP_ID")
	}

	requestRules, err := blueprint.ParseRules(r.FormValue("blueprintMappings"))
	if err != nil {
		h.writeTerminal(w, http.StatusBadRequest, models.ServerResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	archivePath, err := h.saveArchive(file, header.Filename)
	if err != nil {
		h.writeTerminal(w, http.StatusInternalServerError, models.ServerResponse{
			Success: false,
			Message: "Failed to store uploaded archive: " + err.Error(),
		})
		return
	}
	defer func() {
		if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove uploaded archive", "path", archivePath, "err", err)
		}
	}()

	req := workflow.Request{
		Token:       token,
		ShopID:      shopID,
		ArchivePath: archivePath,
		Precleaned:  precleanedFromForm(r),
		Overrides:   blueprint.MergeRules(requestRules, h.overrides),
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	emit := func(ev models.ProgressEvent) {
		if err := enc.Encode(ev); err != nil {
			slog.Error("Unable to write progress event", "err", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	result, err := h.runner.Run(r.Context(), req, emit)
	if err != nil {
		slog.Error("Creation workflow failed", "err", err)
		if encErr := enc.Encode(models.ServerResponse{
			Success: false,
			Message: err.Error(),
		}); encErr != nil {
			slog.Error("Unable to write failure envelope", "err", encErr)
		}
		return
	}

	if err := enc.Encode(models.ServerResponse{
		Success: true,
		Message: "Product Created Successfully.",
		Data:    result,
	}); err != nil {
		slog.Error("Unable to write success envelope", "err", err)
	}
}

// writeTerminal ends a request that failed before streaming started
func (h *Handler) writeTerminal(w http.ResponseWriter, code int, resp models.ServerResponse) {
	slog.Error(resp.Message)
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Unable to write terminal envelope", "err", err)
	}
}

func (h *Handler) saveArchive(file io.Reader, name string) (string, error) {
	if err := h.ensureUploadsDir(); err != nil {
		return "", err
	}

	dst, err := os.CreateTemp("uploads", "listing-*"+filepath.Ext(name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(file, maxArchiveSize)); err != nil {
		os.Remove(dst.Name())
		return "", err
	}

	return dst.Name(), nil
}

// precleanedFromForm reads the caller-supplied AI metadata fields; a
// missing title means no bundle was provided.
func precleanedFromForm(r *http.Request) *listing.Analysis {
	title := r.FormValue("geminiTitle")
	if title == "" {
		return nil
	}

	var tags []string
	if raw := r.FormValue("geminiTags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}

	return &listing.Analysis{
		Title:             title,
		Description:       r.FormValue("geminiDescription"),
		Tags:              tags,
		CatalogSearchTerm: r.FormValue("geminiSearchTerm"),
		ProductType:       r.FormValue("geminiProductType"),
	}
}

