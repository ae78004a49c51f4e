// Package metricsapi adapts the external metrics HTTP API (Prometheus +
// Loki backed) into service candidates for the reconciliation engine.
//
// Two upstream API shapes exist in the field: a bulk endpoint returning all
// servers in one response, and per-metric endpoints that must be merged
// client-side. Both are implementations of Source; the engine does not know
// which is active.
package metricsapi

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ServerRecord is one server's resource reading as reported by the
// upstream API. Timestamp is passed through verbatim (the upstream emits
// bare ISO strings without a zone, so it is not parsed here).
type ServerRecord struct {
	ServerName  string  `json:"server_name"`
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
	DiskUsage   float64 `json:"disk_usage"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

// Source is the metrics-source capability the engine consumes.
//
// Both methods swallow transport errors: CheckAvailability reports false
// and FetchAllServerMetrics returns an empty slice, logging the cause.
// The caller only needs to distinguish "data" from "no data".
type Source interface {
	// BaseURL returns the configured upstream base URL (for status endpoints).
	BaseURL() string
	// CheckAvailability probes the upstream. Any network error or non-200
	// response means unavailable.
	CheckAvailability(ctx context.Context) bool
	// FetchAllServerMetrics returns current readings for every server the
	// upstream knows about. Empty on any error.
	FetchAllServerMetrics(ctx context.Context) []ServerRecord
}

// Upstream API shapes selectable via metrics_api.mode.
const (
	ModeBulk      = "bulk"
	ModePerServer = "perserver"
)

// NewSource builds the Source for the configured mode. An empty mode means
// bulk; anything else is a configuration error.
func NewSource(mode, baseURL string, timeout time.Duration, logger *zap.Logger) (Source, error) {
	switch mode {
	case "", ModeBulk:
		return NewClient(baseURL, timeout, logger), nil
	case ModePerServer:
		return NewSplitClient(baseURL, timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown metrics_api.mode %q: must be %q or %q", mode, ModeBulk, ModePerServer)
	}
}
