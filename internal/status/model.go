// Package status holds the service-status domain: models, persistence, and
// the REST surface for services, incidents, status history, and metrics
// snapshots.
package status

import "time"

// ServiceStatus is the operational state of a monitored service.
type ServiceStatus string

const (
	StatusOperational ServiceStatus = "operational"
	StatusDegraded    ServiceStatus = "degraded"
	StatusDown        ServiceStatus = "down"
	StatusMaintenance ServiceStatus = "maintenance"
	StatusLoading     ServiceStatus = "loading"
)

// Valid reports whether s is one of the five known statuses.
func (s ServiceStatus) Valid() bool {
	switch s {
	case StatusOperational, StatusDegraded, StatusDown, StatusMaintenance, StatusLoading:
		return true
	}
	return false
}

// IncidentStatus is the lifecycle state of an incident.
type IncidentStatus string

const (
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentIdentified    IncidentStatus = "identified"
	IncidentMonitoring    IncidentStatus = "monitoring"
	IncidentResolved      IncidentStatus = "resolved"
)

// Valid reports whether s is a known incident status.
func (s IncidentStatus) Valid() bool {
	switch s {
	case IncidentInvestigating, IncidentIdentified, IncidentMonitoring, IncidentResolved:
		return true
	}
	return false
}

// IncidentSeverity grades the impact of an incident.
type IncidentSeverity string

const (
	SeverityMinor    IncidentSeverity = "minor"
	SeverityMajor    IncidentSeverity = "major"
	SeverityCritical IncidentSeverity = "critical"
)

// Valid reports whether s is a known severity.
func (s IncidentSeverity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityMajor, SeverityCritical:
		return true
	}
	return false
}

// Service is a monitored infrastructure entity.
type Service struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Category    string        `json:"category"`
	Region      string        `json:"region"`
	Status      ServiceStatus `json:"status"`
	Type        string        `json:"type,omitempty"`
	Icon        string        `json:"icon,omitempty"`
	Address     string        `json:"address,omitempty"`
	Port        int           `json:"port,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// InsertService is the payload for creating (or upserting) a service.
// If ID is empty, a deterministic id is derived from
// (name, region, category, address, port); an externally assigned id
// (e.g. "srv-gitlab") takes precedence.
type InsertService struct {
	ID          string        `json:"id,omitempty"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Category    string        `json:"category"`
	Region      string        `json:"region"`
	Status      ServiceStatus `json:"status,omitempty"`
	Type        string        `json:"type,omitempty"`
	Icon        string        `json:"icon,omitempty"`
	Address     string        `json:"address,omitempty"`
	Port        int           `json:"port,omitempty"`
}

// StatusHistoryEntry is an append-only audit record of a status change.
type StatusHistoryEntry struct {
	ID        string        `json:"id"`
	ServiceID string        `json:"serviceId"`
	Status    ServiceStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}

// Incident is a reported issue tied to a service.
type Incident struct {
	ID          string           `json:"id"`
	ServiceID   string           `json:"serviceId"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Status      IncidentStatus   `json:"status"`
	Severity    IncidentSeverity `json:"severity"`
	StartedAt   time.Time        `json:"startedAt"`
	ResolvedAt  *time.Time       `json:"resolvedAt,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// InsertIncident is the payload for reporting an incident.
type InsertIncident struct {
	ServiceID   string           `json:"serviceId"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Status      IncidentStatus   `json:"status"`
	Severity    IncidentSeverity `json:"severity"`
	StartedAt   *time.Time       `json:"startedAt,omitempty"`
	ResolvedAt  *time.Time       `json:"resolvedAt,omitempty"`
}

// ServerMetrics is a point-in-time resource reading for a service.
// Rows are immutable once written; the series is the full set of rows
// for a service id.
type ServerMetrics struct {
	ID        string    `json:"id"`
	ServiceID string    `json:"serviceId"`
	CPUUsage  float64   `json:"cpuUsage"`
	RAMUsage  float64   `json:"ramUsage"`
	DiskUsage float64   `json:"diskUsage"`
	Timestamp time.Time `json:"timestamp"`
}

// InsertServerMetrics is the payload for recording a metrics snapshot.
type InsertServerMetrics struct {
	ServiceID string  `json:"serviceId"`
	CPUUsage  float64 `json:"cpuUsage"`
	RAMUsage  float64 `json:"ramUsage"`
	DiskUsage float64 `json:"diskUsage"`
}
