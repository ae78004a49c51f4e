package status

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/statusforge/statusforge/internal/event"
	"github.com/statusforge/statusforge/internal/store"
)

// TopicStatusChanged is published on the event bus for every service
// creation and status write. Payload is *Service.
const TopicStatusChanged = "service.status_changed"

// Store provides database access for services, incidents, status history,
// and metrics snapshots. The bus is optional; when set, status writes are
// published on TopicStatusChanged.
type Store struct {
	db  *sql.DB
	bus *event.Bus
}

// NewStore creates a Store and applies its migrations.
func NewStore(ctx context.Context, db *store.DB, bus *event.Bus) (*Store, error) {
	if err := db.Migrate(ctx, "status", migrations()); err != nil {
		return nil, fmt.Errorf("status migrations: %w", err)
	}
	return &Store{db: db.DB(), bus: bus}, nil
}

// -- Services --

// ListServices returns all known services.
func (s *Store) ListServices(ctx context.Context) ([]Service, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, category, region, status, type, icon, address, port, updated_at
		FROM services ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		var svc Service
		if err := scanService(rows.Scan, &svc); err != nil {
			return nil, fmt.Errorf("scan service row: %w", err)
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

// GetService returns a service by id. Returns nil, nil if not found.
func (s *Store) GetService(ctx context.Context, id string) (*Service, error) {
	var svc Service
	err := scanService(s.db.QueryRowContext(ctx, `
		SELECT id, name, description, category, region, status, type, icon, address, port, updated_at
		FROM services WHERE id = ?`,
		id,
	).Scan, &svc)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get service: %w", err)
	}
	return &svc, nil
}

// CreateService upserts a service keyed by its deterministic id (or the
// externally supplied one) and appends a status history entry. Calling it
// twice with the same identifying tuple updates the single existing row
// instead of creating a duplicate.
func (s *Store) CreateService(ctx context.Context, ins InsertService) (*Service, error) {
	id := ins.ID
	if id == "" {
		id = DeterministicID(ins)
	}
	st := ins.Status
	if st == "" {
		st = StatusOperational
	}

	svc := Service{
		ID:          id,
		Name:        ins.Name,
		Description: ins.Description,
		Category:    ins.Category,
		Region:      ins.Region,
		Status:      st,
		Type:        ins.Type,
		Icon:        ins.Icon,
		Address:     ins.Address,
		Port:        ins.Port,
		UpdatedAt:   time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO services (id, name, description, category, region, status, type, icon, address, port, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category = excluded.category,
			region = excluded.region,
			status = excluded.status,
			type = excluded.type,
			icon = excluded.icon,
			address = excluded.address,
			port = excluded.port,
			updated_at = excluded.updated_at`,
		svc.ID, svc.Name, svc.Description, svc.Category, svc.Region, svc.Status,
		svc.Type, svc.Icon, svc.Address, svc.Port, svc.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}

	if err := s.appendHistory(ctx, svc.ID, svc.Status, svc.UpdatedAt); err != nil {
		return nil, err
	}

	s.publishStatusChanged(ctx, &svc)
	return &svc, nil
}

// UpdateServiceStatus writes a new status for the service and appends a
// status history entry. Returns nil, nil if the id is unknown.
func (s *Store) UpdateServiceStatus(ctx context.Context, id string, status ServiceStatus) (*Service, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE services SET status = ?, updated_at = ? WHERE id = ?`,
		status, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update service status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update service status: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	if err := s.appendHistory(ctx, id, status, now); err != nil {
		return nil, err
	}

	svc, err := s.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishStatusChanged(ctx, svc)
	return svc, nil
}

func scanService(scan func(dest ...any) error, svc *Service) error {
	return scan(
		&svc.ID, &svc.Name, &svc.Description, &svc.Category, &svc.Region,
		&svc.Status, &svc.Type, &svc.Icon, &svc.Address, &svc.Port, &svc.UpdatedAt,
	)
}

func (s *Store) publishStatusChanged(ctx context.Context, svc *Service) {
	if s.bus == nil || svc == nil {
		return
	}
	s.bus.Publish(ctx, event.Event{
		Topic:     TopicStatusChanged,
		Source:    "status",
		Timestamp: time.Now().UTC(),
		Payload:   svc,
	})
}

// -- Status history --

func (s *Store) appendHistory(ctx context.Context, serviceID string, status ServiceStatus, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO status_history (id, service_id, status, timestamp) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), serviceID, status, ts,
	)
	if err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

// ListStatusHistory returns the status history for a service, newest first.
func (s *Store) ListStatusHistory(ctx context.Context, serviceID string) ([]StatusHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service_id, status, timestamp
		FROM status_history WHERE service_id = ? ORDER BY timestamp DESC`,
		serviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	var entries []StatusHistoryEntry
	for rows.Next() {
		var e StatusHistoryEntry
		if err := rows.Scan(&e.ID, &e.ServiceID, &e.Status, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// -- Incidents --

// ListIncidents returns all incidents, newest first.
func (s *Store) ListIncidents(ctx context.Context) ([]Incident, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service_id, title, description, status, severity, started_at, resolved_at, created_at
		FROM incidents ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var incidents []Incident
	for rows.Next() {
		var inc Incident
		var resolvedAt sql.NullTime
		if err := rows.Scan(
			&inc.ID, &inc.ServiceID, &inc.Title, &inc.Description, &inc.Status,
			&inc.Severity, &inc.StartedAt, &resolvedAt, &inc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan incident row: %w", err)
		}
		if resolvedAt.Valid {
			inc.ResolvedAt = &resolvedAt.Time
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// GetIncident returns an incident by id. Returns nil, nil if not found.
func (s *Store) GetIncident(ctx context.Context, id string) (*Incident, error) {
	var inc Incident
	var resolvedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, service_id, title, description, status, severity, started_at, resolved_at, created_at
		FROM incidents WHERE id = ?`,
		id,
	).Scan(
		&inc.ID, &inc.ServiceID, &inc.Title, &inc.Description, &inc.Status,
		&inc.Severity, &inc.StartedAt, &resolvedAt, &inc.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}
	if resolvedAt.Valid {
		inc.ResolvedAt = &resolvedAt.Time
	}
	return &inc, nil
}

// CreateIncident records a new incident. StartedAt defaults to now.
func (s *Store) CreateIncident(ctx context.Context, ins InsertIncident) (*Incident, error) {
	now := time.Now().UTC()
	startedAt := now
	if ins.StartedAt != nil {
		startedAt = *ins.StartedAt
	}

	inc := Incident{
		ID:          uuid.NewString(),
		ServiceID:   ins.ServiceID,
		Title:       ins.Title,
		Description: ins.Description,
		Status:      ins.Status,
		Severity:    ins.Severity,
		StartedAt:   startedAt,
		ResolvedAt:  ins.ResolvedAt,
		CreatedAt:   now,
	}

	var resolvedAt sql.NullTime
	if inc.ResolvedAt != nil {
		resolvedAt = sql.NullTime{Time: *inc.ResolvedAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incidents (id, service_id, title, description, status, severity, started_at, resolved_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inc.ID, inc.ServiceID, inc.Title, inc.Description, inc.Status,
		inc.Severity, inc.StartedAt, resolvedAt, inc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}
	return &inc, nil
}

// UpdateIncidentStatus transitions an incident's lifecycle status.
// Moving to "resolved" stamps resolved_at if no explicit time is given.
// Returns nil, nil if the id is unknown.
func (s *Store) UpdateIncidentStatus(ctx context.Context, id string, status IncidentStatus, resolvedAt *time.Time) (*Incident, error) {
	if status == IncidentResolved && resolvedAt == nil {
		now := time.Now().UTC()
		resolvedAt = &now
	}

	var nullResolved sql.NullTime
	if resolvedAt != nil {
		nullResolved = sql.NullTime{Time: *resolvedAt, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE incidents SET status = ?, resolved_at = ? WHERE id = ?`,
		status, nullResolved, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update incident status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update incident status: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetIncident(ctx, id)
}

// -- Server metrics --

// ListServerMetrics returns metrics snapshots, newest first. With an empty
// serviceID all snapshots are returned.
func (s *Store) ListServerMetrics(ctx context.Context, serviceID string) ([]ServerMetrics, error) {
	var rows *sql.Rows
	var err error
	if serviceID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, service_id, cpu_usage, ram_usage, disk_usage, timestamp
			FROM server_metrics ORDER BY timestamp DESC`,
		)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, service_id, cpu_usage, ram_usage, disk_usage, timestamp
			FROM server_metrics WHERE service_id = ? ORDER BY timestamp DESC`,
			serviceID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list server metrics: %w", err)
	}
	defer rows.Close()

	var metrics []ServerMetrics
	for rows.Next() {
		var m ServerMetrics
		if err := rows.Scan(&m.ID, &m.ServiceID, &m.CPUUsage, &m.RAMUsage, &m.DiskUsage, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan metrics row: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// CreateServerMetrics records one immutable metrics snapshot.
func (s *Store) CreateServerMetrics(ctx context.Context, ins InsertServerMetrics) (*ServerMetrics, error) {
	m := ServerMetrics{
		ID:        uuid.NewString(),
		ServiceID: ins.ServiceID,
		CPUUsage:  ins.CPUUsage,
		RAMUsage:  ins.RAMUsage,
		DiskUsage: ins.DiskUsage,
		Timestamp: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO server_metrics (id, service_id, cpu_usage, ram_usage, disk_usage, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ServiceID, m.CPUUsage, m.RAMUsage, m.DiskUsage, m.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("create server metrics: %w", err)
	}
	return &m, nil
}
