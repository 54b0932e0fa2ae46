package handlers

import (
	"net/http"
	"strings"
)

// HandleCatalog serves the cached blueprint catalog for the caller's
// credential. The snapshot is fetched on first use and refreshed after
// its freshness window expires.
func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := bearerToken(r)
	if token == "" {
		h.writeError(w, "Missing API Key", http.StatusUnauthorized)
		return
	}

	snap, err := h.cache.Get(r.Context(), token)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, snap.Entries)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
