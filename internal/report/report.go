// Package report aggregates stored metrics snapshots into time-bucketed
// per-service averages.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/statusforge/statusforge/internal/status"
)

// BucketAverages holds the mean resource usage within one day-part bucket.
// A nil field means the bucket had no samples.
type BucketAverages struct {
	CPUUsage  *float64 `json:"cpuUsage"`
	RAMUsage  *float64 `json:"ramUsage"`
	DiskUsage *float64 `json:"diskUsage"`
}

// ServiceReport is one service's aggregated metrics over the window.
type ServiceReport struct {
	ServiceID   string         `json:"serviceId"`
	ServiceName string         `json:"serviceName"`
	Category    string         `json:"category"`
	Morning     BucketAverages `json:"morning"`
	Lunch       BucketAverages `json:"lunch"`
	Evening     BucketAverages `json:"evening"`
	SampleCount int            `json:"sampleCount"`
}

// Builder generates metrics reports from the status store.
type Builder struct {
	store *status.Store
}

// NewBuilder creates a report builder.
func NewBuilder(st *status.Store) *Builder {
	return &Builder{store: st}
}

// bucketAccum accumulates samples for one day-part bucket.
type bucketAccum struct {
	cpu, ram, disk float64
	n              int
}

func (b *bucketAccum) add(m status.ServerMetrics) {
	b.cpu += m.CPUUsage
	b.ram += m.RAMUsage
	b.disk += m.DiskUsage
	b.n++
}

func (b *bucketAccum) averages() BucketAverages {
	if b.n == 0 {
		return BucketAverages{}
	}
	cpu := b.cpu / float64(b.n)
	ram := b.ram / float64(b.n)
	disk := b.disk / float64(b.n)
	return BucketAverages{CPUUsage: &cpu, RAMUsage: &ram, DiskUsage: &disk}
}

// bucketFor assigns an hour of day to a day-part bucket:
// morning [06,12), lunch [12,18), evening [18,24) and [00,06).
func bucketFor(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 18:
		return "lunch"
	default:
		return "evening"
	}
}

// Generate builds the per-service report for snapshots with timestamps in
// [start, end] inclusive. Keys are "<kind>_<serviceID>" where kind is
// "server" for services in the server category and "service" otherwise.
// Services with no samples in the window are omitted.
func (b *Builder) Generate(ctx context.Context, start, end time.Time) (map[string]ServiceReport, error) {
	services, err := b.store.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}

	out := make(map[string]ServiceReport)
	for _, svc := range services {
		metrics, err := b.store.ListServerMetrics(ctx, svc.ID)
		if err != nil {
			return nil, fmt.Errorf("generate report for %s: %w", svc.ID, err)
		}

		var morning, lunch, evening bucketAccum
		total := 0
		for _, m := range metrics {
			if m.Timestamp.Before(start) || m.Timestamp.After(end) {
				continue
			}
			switch bucketFor(m.Timestamp.Hour()) {
			case "morning":
				morning.add(m)
			case "lunch":
				lunch.add(m)
			default:
				evening.add(m)
			}
			total++
		}

		if total == 0 {
			continue
		}

		kind := "service"
		if strings.EqualFold(svc.Category, "server") {
			kind = "server"
		}

		out[kind+"_"+svc.ID] = ServiceReport{
			ServiceID:   svc.ID,
			ServiceName: svc.Name,
			Category:    svc.Category,
			Morning:     morning.averages(),
			Lunch:       lunch.averages(),
			Evening:     evening.averages(),
			SampleCount: total,
		}
	}
	return out, nil
}
