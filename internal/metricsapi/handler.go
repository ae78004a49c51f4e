package metricsapi

import (
	"encoding/json"
	"net/http"
)

// Handler exposes the metrics API integration status.
type Handler struct {
	source Source
}

// NewHandler creates the metrics API status handler.
func NewHandler(source Source) *Handler {
	return &Handler{source: source}
}

// RegisterRoutes registers routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/metrics-api/status", h.handleStatus)
}

// handleStatus reports whether the external metrics API is reachable.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	available := h.source != nil && h.source.CheckAvailability(r.Context())

	url := ""
	if h.source != nil {
		url = h.source.BaseURL()
	}

	message := "Metrics API is unavailable"
	if available {
		message = "Metrics API is available"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"available": available,
		"url":       url,
		"message":   message,
	})
}
