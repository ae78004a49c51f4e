package report

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/statusforge/statusforge/internal/server"
	"go.uber.org/zap"
)

// Handler exposes report generation.
type Handler struct {
	builder *Builder
	logger  *zap.Logger
}

// NewHandler creates the report handler.
func NewHandler(builder *Builder, logger *zap.Logger) *Handler {
	return &Handler{builder: builder, logger: logger}
}

// RegisterRoutes registers routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/reports/generate-metrics-report", h.handleGenerate)
}

// handleGenerate builds a metrics report for the window given by the
// start_time and end_time query parameters (RFC 3339).
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start_time"))
	if err != nil {
		server.BadRequest(w, "invalid start_time, expected RFC 3339", r.URL.Path)
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end_time"))
	if err != nil {
		server.BadRequest(w, "invalid end_time, expected RFC 3339", r.URL.Path)
		return
	}
	if end.Before(start) {
		server.BadRequest(w, "end_time is before start_time", r.URL.Path)
		return
	}

	rep, err := h.builder.Generate(r.Context(), start, end)
	if err != nil {
		h.logger.Error("report generation failed", zap.Error(err))
		server.InternalError(w, "failed to generate report", r.URL.Path)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"report": rep})
}
