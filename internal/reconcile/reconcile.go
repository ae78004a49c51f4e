// Package reconcile merges external signals (metrics API readings and
// Grafana up-probes) into the persisted service catalog.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/statusforge/statusforge/internal/grafana"
	"github.com/statusforge/statusforge/internal/metricsapi"
	"github.com/statusforge/statusforge/internal/status"
	"go.uber.org/zap"
)

var (
	syncCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusforge_sync_cycles_total",
		Help: "Sync cycles run, by source and outcome.",
	}, []string{"source", "outcome"})

	statusTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "statusforge_status_transitions_total",
		Help: "Service status transitions written by the sync engine.",
	})

	forcedLoading = promauto.NewCounter(prometheus.CounterOpts{
		Name: "statusforge_forced_loading_total",
		Help: "Times a Grafana outage forced all services into loading.",
	})
)

// Engine reconciles upstream signals into the service store.
type Engine struct {
	store   *status.Store
	source  metricsapi.Source
	grafana *grafana.Client
	logger  *zap.Logger
}

// Compile-time interface guards.
var (
	_ grafana.Syncer       = (*Engine)(nil)
	_ status.ServiceSyncer = (*Engine)(nil)
)

// NewEngine creates a reconcile engine. source and grafanaClient may be nil
// or unconfigured; the corresponding sync paths then report unavailability.
func NewEngine(st *status.Store, source metricsapi.Source, grafanaClient *grafana.Client, logger *zap.Logger) *Engine {
	return &Engine{store: st, source: source, grafana: grafanaClient, logger: logger}
}

// GrafanaConfigured reports whether the Grafana sync path can run.
func (e *Engine) GrafanaConfigured() bool {
	return e.grafana != nil && e.grafana.IsConfigured()
}

// SyncServices pulls current readings from the metrics API, upserts the
// corresponding services, and records one metrics snapshot per reading.
// The bool result reports whether the upstream was reachable; when it is
// false the returned slice is the unmodified store contents.
func (e *Engine) SyncServices(ctx context.Context) ([]status.Service, bool, error) {
	if e.source == nil || !e.source.CheckAvailability(ctx) {
		services, err := e.store.ListServices(ctx)
		return services, false, err
	}

	records := e.source.FetchAllServerMetrics(ctx)
	for _, rec := range records {
		if err := e.applyRecord(ctx, rec); err != nil {
			e.logger.Warn("failed to apply metrics record",
				zap.String("server", rec.ServerName), zap.Error(err))
		}
	}

	syncCycles.WithLabelValues("metrics_api", "ok").Inc()
	services, err := e.store.ListServices(ctx)
	return services, true, err
}

// applyRecord upserts one service from a metrics reading and persists the
// reading as a snapshot.
func (e *Engine) applyRecord(ctx context.Context, rec metricsapi.ServerRecord) error {
	id := metricsapi.ServiceIDForServer(rec.ServerName)
	derived := metricsapi.DeriveStatus(rec.CPUUsage, rec.MemoryUsage, rec.DiskUsage)
	category := metricsapi.CategoryForServer(rec.ServerName)

	existing, err := e.store.GetService(ctx, id)
	if err != nil {
		return err
	}

	if existing == nil {
		_, err = e.store.CreateService(ctx, status.InsertService{
			ID:   id,
			Name: rec.ServerName,
			Description: fmt.Sprintf("%s - CPU: %.1f%%, RAM: %.1f%%, Disk: %.1f%%",
				rec.ServerName, rec.CPUUsage, rec.MemoryUsage, rec.DiskUsage),
			Category: category,
			Region:   "Production",
			Status:   derived,
			Type:     "Server",
			Icon:     metricsapi.IconForCategory(category),
		})
		if err != nil {
			return err
		}
		statusTransitions.Inc()
	} else if existing.Status != derived {
		// Unchanged status is a no-op: no row update, no history entry.
		if _, err := e.store.UpdateServiceStatus(ctx, id, derived); err != nil {
			return err
		}
		statusTransitions.Inc()
	}

	_, err = e.store.CreateServerMetrics(ctx, status.InsertServerMetrics{
		ServiceID: id,
		CPUUsage:  rec.CPUUsage,
		RAMUsage:  rec.MemoryUsage,
		DiskUsage: rec.DiskUsage,
	})
	return err
}

// SyncFromGrafana maps up-probe samples onto existing services.
//
// A Grafana fetch failure does not error out: every service is forced to
// "loading" so the dashboard shows the signal loss, and skipped=true is
// returned. On success each sample is matched against the catalog and the
// up value mapped to a status; only changed statuses are written.
func (e *Engine) SyncFromGrafana(ctx context.Context) (updated, failed int, skipped bool, err error) {
	services, err := e.store.ListServices(ctx)
	if err != nil {
		return 0, 0, false, err
	}

	samples, err := e.grafana.FetchMetrics(ctx, grafana.DefaultQuery)
	if err != nil {
		e.logger.Warn("grafana fetch failed, forcing services to loading", zap.Error(err))
		forcedLoading.Inc()
		syncCycles.WithLabelValues("grafana", "forced_loading").Inc()

		count := 0
		for _, svc := range services {
			if svc.Status == status.StatusLoading {
				continue
			}
			if _, uerr := e.store.UpdateServiceStatus(ctx, svc.ID, status.StatusLoading); uerr != nil {
				e.logger.Warn("failed to mark service loading",
					zap.String("service_id", svc.ID), zap.Error(uerr))
				continue
			}
			count++
		}
		return count, 0, true, nil
	}

	for _, sample := range samples {
		next := statusForUpSample(sample)

		// An instance can back several services; every match gets the status.
		for _, svc := range matchServices(services, sample) {
			if svc.Status == next {
				continue
			}

			if _, uerr := e.store.UpdateServiceStatus(ctx, svc.ID, next); uerr != nil {
				e.logger.Warn("failed to update service from grafana sample",
					zap.String("service_id", svc.ID), zap.Error(uerr))
				failed++
				continue
			}
			svc.Status = next
			statusTransitions.Inc()
			updated++
		}
	}

	syncCycles.WithLabelValues("grafana", "ok").Inc()
	return updated, failed, false, nil
}

// statusForUpSample maps a Prometheus up value to a service status.
// 1 is healthy, 0 is down, anything else (or unparsable) is degraded.
func statusForUpSample(sample grafana.Sample) status.ServiceStatus {
	v, err := sample.Value.Float()
	if err != nil {
		return status.StatusDegraded
	}
	switch v {
	case 1:
		return status.StatusOperational
	case 0:
		return status.StatusDown
	default:
		return status.StatusDegraded
	}
}

// RunCycle runs one full periodic sync: metrics API first, then Grafana
// when configured. Errors are logged, never propagated; the scheduler keeps
// ticking regardless.
func (e *Engine) RunCycle(ctx context.Context) {
	start := time.Now()

	if _, available, err := e.SyncServices(ctx); err != nil {
		e.logger.Error("metrics sync cycle failed", zap.Error(err))
	} else if !available {
		e.logger.Debug("metrics API unavailable, skipping metrics sync")
		syncCycles.WithLabelValues("metrics_api", "unavailable").Inc()
	}

	if e.GrafanaConfigured() {
		if _, _, _, err := e.SyncFromGrafana(ctx); err != nil {
			e.logger.Error("grafana sync cycle failed", zap.Error(err))
		}
	}

	e.logger.Debug("sync cycle complete", zap.Duration("elapsed", time.Since(start)))
}
