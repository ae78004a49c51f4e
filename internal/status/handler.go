package status

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/statusforge/statusforge/internal/server"
	"go.uber.org/zap"
)

// ServiceSyncer refreshes the catalog from the external metrics source.
// Implemented by the reconcile engine; the bool result reports whether the
// upstream was reachable.
type ServiceSyncer interface {
	SyncServices(ctx context.Context) ([]Service, bool, error)
}

// Guard wraps admin-only handlers with authentication.
type Guard interface {
	Require(next http.HandlerFunc) http.HandlerFunc
}

// Handler is the REST surface for services, incidents, status history, and
// metrics snapshots.
type Handler struct {
	store  *Store
	syncer ServiceSyncer
	guard  Guard
	logger *zap.Logger
}

// NewHandler creates the status handler. syncer may be nil; the service
// list then always serves straight from the store.
func NewHandler(store *Store, syncer ServiceSyncer, guard Guard, logger *zap.Logger) *Handler {
	return &Handler{store: store, syncer: syncer, guard: guard, logger: logger}
}

// RegisterRoutes registers routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/services", h.handleListServices)
	mux.HandleFunc("POST /api/services", h.guard.Require(h.handleCreateService))
	mux.HandleFunc("GET /api/services/{id}", h.handleGetService)
	mux.HandleFunc("PATCH /api/services/{id}/status", h.guard.Require(h.handleUpdateServiceStatus))

	mux.HandleFunc("GET /api/status-history/{service_id}", h.handleListStatusHistory)

	mux.HandleFunc("GET /api/incidents", h.handleListIncidents)
	mux.HandleFunc("POST /api/incidents", h.guard.Require(h.handleCreateIncident))
	mux.HandleFunc("GET /api/incidents/{id}", h.handleGetIncident)
	mux.HandleFunc("PATCH /api/incidents/{id}", h.guard.Require(h.handleUpdateIncident))

	mux.HandleFunc("GET /api/server-metrics", h.handleListServerMetrics)
	mux.HandleFunc("POST /api/server-metrics", h.handleCreateServerMetrics)

	mux.HandleFunc("POST /api/import-services", h.guard.Require(h.handleImportServices))
	mux.HandleFunc("GET /api/export-services", h.handleExportServices)
}

// -- Services --

// handleListServices refreshes the catalog from the metrics source when one
// is wired, then serves the stored services. An unreachable upstream is not
// an error; stored state is served as-is.
func (h *Handler) handleListServices(w http.ResponseWriter, r *http.Request) {
	if h.syncer != nil {
		services, available, err := h.syncer.SyncServices(r.Context())
		if err != nil {
			h.logger.Error("service sync failed", zap.Error(err))
			server.InternalError(w, "failed to list services", r.URL.Path)
			return
		}
		if !available {
			h.logger.Debug("metrics source unavailable, serving stored services")
		}
		writeJSON(w, http.StatusOK, emptyAsList(services))
		return
	}

	services, err := h.store.ListServices(r.Context())
	if err != nil {
		h.logger.Error("failed to list services", zap.Error(err))
		server.InternalError(w, "failed to list services", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, emptyAsList(services))
}

func (h *Handler) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var ins InsertService
	if err := json.NewDecoder(r.Body).Decode(&ins); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	if ins.Name == "" {
		server.BadRequest(w, "name is required", r.URL.Path)
		return
	}
	if ins.Status != "" && !ins.Status.Valid() {
		server.BadRequest(w, "invalid status", r.URL.Path)
		return
	}

	svc, err := h.store.CreateService(r.Context(), ins)
	if err != nil {
		h.logger.Error("failed to create service", zap.Error(err))
		server.InternalError(w, "failed to create service", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}

func (h *Handler) handleGetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.store.GetService(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Error("failed to get service", zap.Error(err))
		server.InternalError(w, "failed to get service", r.URL.Path)
		return
	}
	if svc == nil {
		server.NotFound(w, "service not found", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (h *Handler) handleUpdateServiceStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status ServiceStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	if !body.Status.Valid() {
		server.BadRequest(w, "invalid status", r.URL.Path)
		return
	}

	svc, err := h.store.UpdateServiceStatus(r.Context(), r.PathValue("id"), body.Status)
	if err != nil {
		h.logger.Error("failed to update service status", zap.Error(err))
		server.InternalError(w, "failed to update service status", r.URL.Path)
		return
	}
	if svc == nil {
		server.NotFound(w, "service not found", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

// -- Status history --

func (h *Handler) handleListStatusHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListStatusHistory(r.Context(), r.PathValue("service_id"))
	if err != nil {
		h.logger.Error("failed to list status history", zap.Error(err))
		server.InternalError(w, "failed to list status history", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, emptyAsList(entries))
}

// -- Incidents --

func (h *Handler) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	incidents, err := h.store.ListIncidents(r.Context())
	if err != nil {
		h.logger.Error("failed to list incidents", zap.Error(err))
		server.InternalError(w, "failed to list incidents", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, emptyAsList(incidents))
}

func (h *Handler) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	inc, err := h.store.GetIncident(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Error("failed to get incident", zap.Error(err))
		server.InternalError(w, "failed to get incident", r.URL.Path)
		return
	}
	if inc == nil {
		server.NotFound(w, "incident not found", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

func (h *Handler) handleCreateIncident(w http.ResponseWriter, r *http.Request) {
	var ins InsertIncident
	if err := json.NewDecoder(r.Body).Decode(&ins); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	if ins.ServiceID == "" || ins.Title == "" {
		server.BadRequest(w, "serviceId and title are required", r.URL.Path)
		return
	}
	if !ins.Status.Valid() {
		server.BadRequest(w, "invalid incident status", r.URL.Path)
		return
	}
	if !ins.Severity.Valid() {
		server.BadRequest(w, "invalid severity", r.URL.Path)
		return
	}

	inc, err := h.store.CreateIncident(r.Context(), ins)
	if err != nil {
		h.logger.Error("failed to create incident", zap.Error(err))
		server.InternalError(w, "failed to create incident", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusCreated, inc)
}

func (h *Handler) handleUpdateIncident(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status     IncidentStatus `json:"status"`
		ResolvedAt *time.Time     `json:"resolvedAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	if !body.Status.Valid() {
		server.BadRequest(w, "invalid incident status", r.URL.Path)
		return
	}

	inc, err := h.store.UpdateIncidentStatus(r.Context(), r.PathValue("id"), body.Status, body.ResolvedAt)
	if err != nil {
		h.logger.Error("failed to update incident", zap.Error(err))
		server.InternalError(w, "failed to update incident", r.URL.Path)
		return
	}
	if inc == nil {
		server.NotFound(w, "incident not found", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

// -- Server metrics --

func (h *Handler) handleListServerMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.store.ListServerMetrics(r.Context(), r.URL.Query().Get("serviceId"))
	if err != nil {
		h.logger.Error("failed to list server metrics", zap.Error(err))
		server.InternalError(w, "failed to list server metrics", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, emptyAsList(metrics))
}

func (h *Handler) handleCreateServerMetrics(w http.ResponseWriter, r *http.Request) {
	var ins InsertServerMetrics
	if err := json.NewDecoder(r.Body).Decode(&ins); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	if ins.ServiceID == "" {
		server.BadRequest(w, "serviceId is required", r.URL.Path)
		return
	}

	m, err := h.store.CreateServerMetrics(r.Context(), ins)
	if err != nil {
		h.logger.Error("failed to create server metrics", zap.Error(err))
		server.InternalError(w, "failed to create server metrics", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// -- Helpers --

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// emptyAsList keeps empty collections encoding as [] instead of null.
func emptyAsList[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
