package grafana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/statusforge/statusforge/internal/server"
	"go.uber.org/zap"
)

// Syncer runs one Grafana-driven status sync. Implemented by the reconcile
// engine; declared here so the handler does not import it.
type Syncer interface {
	SyncFromGrafana(ctx context.Context) (updated, failed int, skipped bool, err error)
}

// Guard wraps admin-only handlers with authentication.
type Guard interface {
	Require(next http.HandlerFunc) http.HandlerFunc
}

// Handler exposes the Grafana integration surface: status probe, raw metric
// queries, and the admin-triggered sync.
type Handler struct {
	client *Client
	syncer Syncer
	guard  Guard
	logger *zap.Logger
}

// NewHandler creates the Grafana handler.
func NewHandler(client *Client, syncer Syncer, guard Guard, logger *zap.Logger) *Handler {
	return &Handler{client: client, syncer: syncer, guard: guard, logger: logger}
}

// RegisterRoutes registers routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/grafana/status", h.handleStatus)
	mux.HandleFunc("GET /api/grafana/metrics", h.handleMetrics)
	mux.HandleFunc("POST /api/grafana/sync", h.guard.Require(h.handleSync))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	configured := h.client.IsConfigured()
	message := "Grafana integration is not configured"
	if configured {
		message = "Grafana integration is configured"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"configured": configured,
		"url":        h.client.BaseURL(),
		"message":    message,
	})
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !h.client.IsConfigured() {
		server.BadRequest(w, "Grafana is not configured", r.URL.Path)
		return
	}

	query := r.URL.Query().Get("query")
	samples, err := h.client.FetchMetrics(r.Context(), query)
	if err != nil {
		h.logger.Warn("grafana metrics query failed", zap.Error(err))
		server.InternalError(w, "failed to query Grafana", r.URL.Path)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"metrics": samples,
		"count":   len(samples),
	})
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	if !h.client.IsConfigured() {
		server.BadRequest(w, "Grafana is not configured", r.URL.Path)
		return
	}

	updated, failed, skipped, err := h.syncer.SyncFromGrafana(r.Context())
	if err != nil {
		h.logger.Error("grafana sync failed", zap.Error(err))
		server.InternalError(w, "sync failed", r.URL.Path)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"updated": updated,
		"errors":  failed,
		"skipped": skipped,
		"message": fmt.Sprintf("Synced %d services from Grafana", updated),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
