package status

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/statusforge/statusforge/internal/server"
	"go.uber.org/zap"
)

// csvHeader is the column order for CSV exports.
var csvHeader = []string{
	"id", "name", "description", "category", "region",
	"status", "type", "icon", "address", "port", "updated_at",
}

// typeIcons maps the service type names used in nested import payloads to
// dashboard icons.
var typeIcons = map[string]string{
	"DevTools": "wrench",
	"Backend":  "server",
	"Frontend": "globe",
	"BPMN":     "workflow",
	"PSQL":     "database",
	"Database": "database",
	"Minio":    "database",
	"Redis":    "database",
	"Keycloak": "shield",
	"Grafana":  "chart",
	"Kafka":    "message-square",
	"RabbitMQ": "message-square",
}

// importItem is one service in a nested import payload.
type importItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Address     string `json:"address"`
	Port        int    `json:"port"`
	Status      string `json:"status"`
}

// handleImportServices loads services in bulk. Two payload shapes are
// accepted: a flat array of service records (the export format), and a
// nested map of environment -> category -> items.
func (h *Handler) handleImportServices(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}

	var inserts []InsertService

	var flat []InsertService
	if err := json.Unmarshal(raw, &flat); err == nil {
		inserts = flat
	} else {
		var nested map[string]map[string][]importItem
		if err := json.Unmarshal(raw, &nested); err != nil {
			server.BadRequest(w, "expected a service array or environment map", r.URL.Path)
			return
		}
		for env, categories := range nested {
			for category, items := range categories {
				for _, item := range items {
					st := ServiceStatus(item.Status)
					if !st.Valid() {
						st = StatusOperational
					}
					icon := typeIcons[item.Type]
					if icon == "" {
						icon = "server"
					}
					inserts = append(inserts, InsertService{
						Name:        item.Name,
						Description: item.Description,
						Category:    category,
						Region:      env,
						Status:      st,
						Type:        item.Type,
						Icon:        icon,
						Address:     item.Address,
						Port:        item.Port,
					})
				}
			}
		}
	}

	imported := 0
	for _, ins := range inserts {
		if ins.Name == "" {
			continue
		}
		if _, err := h.store.CreateService(r.Context(), ins); err != nil {
			h.logger.Warn("failed to import service", zap.String("name", ins.Name), zap.Error(err))
			continue
		}
		imported++
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"imported": imported,
	})
}

// handleExportServices dumps the catalog as JSON (default) or CSV.
func (h *Handler) handleExportServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.store.ListServices(r.Context())
	if err != nil {
		h.logger.Error("failed to export services", zap.Error(err))
		server.InternalError(w, "failed to export services", r.URL.Path)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="services.json"`)
		_ = json.NewEncoder(w).Encode(emptyAsList(services))

	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="services.csv"`)
		cw := csv.NewWriter(w)
		_ = cw.Write(csvHeader)
		for _, svc := range services {
			_ = cw.Write([]string{
				svc.ID, svc.Name, svc.Description, svc.Category, svc.Region,
				string(svc.Status), svc.Type, svc.Icon, svc.Address,
				strconv.Itoa(svc.Port), svc.UpdatedAt.Format(timeFormatCSV),
			})
		}
		cw.Flush()

	default:
		server.BadRequest(w, "format must be json or csv", r.URL.Path)
	}
}

// timeFormatCSV is RFC 3339 with second precision for spreadsheet use.
const timeFormatCSV = "2006-01-02T15:04:05Z07:00"
