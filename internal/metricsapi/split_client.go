package metricsapi

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Compile-time interface guard.
var _ Source = (*SplitClient)(nil)

// SplitClient fetches metrics from upstreams that expose per-metric
// endpoints (/metrics/cpu/usage, /metrics/memory/usage, /metrics/disk/usage)
// instead of the bulk one. Readings are merged by server name; a server
// missing from one endpoint keeps a zero for that metric.
type SplitClient struct {
	inner *Client
}

// NewSplitClient creates a per-metric metrics API client.
func NewSplitClient(baseURL string, timeout time.Duration, logger *zap.Logger) *SplitClient {
	return &SplitClient{inner: NewClient(baseURL, timeout, logger)}
}

// BaseURL implements Source.
func (c *SplitClient) BaseURL() string {
	return c.inner.baseURL
}

// CheckAvailability implements Source.
func (c *SplitClient) CheckAvailability(ctx context.Context) bool {
	return c.inner.CheckAvailability(ctx)
}

// usageEntry is one server's reading from a per-metric endpoint.
type usageEntry struct {
	ServerName string  `json:"server_name"`
	Usage      float64 `json:"usage"`
	Timestamp  string  `json:"timestamp,omitempty"`
}

// usageResponse wraps the per-metric endpoint payload.
type usageResponse struct {
	Data []usageEntry `json:"data"`
}

// FetchAllServerMetrics implements Source.
func (c *SplitClient) FetchAllServerMetrics(ctx context.Context) []ServerRecord {
	cpu := c.fetchUsage(ctx, "/metrics/cpu/usage")
	mem := c.fetchUsage(ctx, "/metrics/memory/usage")
	disk := c.fetchUsage(ctx, "/metrics/disk/usage")

	merged := make(map[string]*ServerRecord)
	order := make([]string, 0, len(cpu))

	ensure := func(e usageEntry) *ServerRecord {
		key := strings.ToLower(e.ServerName)
		rec, ok := merged[key]
		if !ok {
			rec = &ServerRecord{ServerName: e.ServerName, Timestamp: e.Timestamp}
			merged[key] = rec
			order = append(order, key)
		}
		return rec
	}

	for _, e := range cpu {
		ensure(e).CPUUsage = e.Usage
	}
	for _, e := range mem {
		ensure(e).MemoryUsage = e.Usage
	}
	for _, e := range disk {
		ensure(e).DiskUsage = e.Usage
	}

	records := make([]ServerRecord, 0, len(order))
	for _, key := range order {
		records = append(records, *merged[key])
	}
	return records
}

func (c *SplitClient) fetchUsage(ctx context.Context, path string) []usageEntry {
	var resp usageResponse
	if err := c.inner.getJSON(ctx, path, &resp); err != nil {
		c.inner.logger.Warn("failed to fetch usage metrics", zap.String("path", path), zap.Error(err))
		return nil
	}
	return resp.Data
}
