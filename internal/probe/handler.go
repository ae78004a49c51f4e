package probe

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/statusforge/statusforge/internal/server"
)

// Handler exposes the on-demand availability check.
type Handler struct {
	checker *Checker
}

// NewHandler creates the probe handler.
func NewHandler(checker *Checker) *Handler {
	return &Handler{checker: checker}
}

// RegisterRoutes registers routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/check-availability", h.handleCheck)
}

// handleCheck probes the address (and optional port) given as query
// parameters and reports reachability.
func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		server.BadRequest(w, "address is required", r.URL.Path)
		return
	}

	port := 0
	if p := r.URL.Query().Get("port"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			server.BadRequest(w, "port must be an integer between 1 and 65535", r.URL.Path)
			return
		}
	}

	available := h.checker.Check(r.Context(), address, port)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"address":   address,
		"port":      port,
		"available": available,
	})
}
