package status

import (
	"database/sql"

	"github.com/statusforge/statusforge/internal/store"
)

func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create service status tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS services (
						id TEXT PRIMARY KEY,
						name TEXT NOT NULL,
						description TEXT NOT NULL DEFAULT '',
						category TEXT NOT NULL,
						region TEXT NOT NULL,
						status TEXT NOT NULL DEFAULT 'operational',
						type TEXT NOT NULL DEFAULT '',
						icon TEXT NOT NULL DEFAULT '',
						address TEXT NOT NULL DEFAULT '',
						port INTEGER NOT NULL DEFAULT 0,
						updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,

					`CREATE TABLE IF NOT EXISTS status_history (
						id TEXT PRIMARY KEY,
						service_id TEXT NOT NULL,
						status TEXT NOT NULL,
						timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_status_history_service_time ON status_history(service_id, timestamp)`,

					`CREATE TABLE IF NOT EXISTS incidents (
						id TEXT PRIMARY KEY,
						service_id TEXT NOT NULL,
						title TEXT NOT NULL,
						description TEXT NOT NULL DEFAULT '',
						status TEXT NOT NULL,
						severity TEXT NOT NULL,
						started_at DATETIME NOT NULL,
						resolved_at DATETIME,
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_incidents_service ON incidents(service_id)`,

					`CREATE TABLE IF NOT EXISTS server_metrics (
						id TEXT PRIMARY KEY,
						service_id TEXT NOT NULL,
						cpu_usage REAL NOT NULL,
						ram_usage REAL NOT NULL,
						disk_usage REAL NOT NULL,
						timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_server_metrics_service_time ON server_metrics(service_id, timestamp)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
