// Package grafana wraps the Grafana datasource proxy for Prometheus-style
// "up" queries.
package grafana

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultQuery is the PromQL query used by the periodic status sync.
const DefaultQuery = `up{job="node_exporter"}`

// ErrNotConfigured is returned when the client is used without both a base
// URL and an API token.
var ErrNotConfigured = fmt.Errorf("grafana is not configured")

// Sample is one Prometheus instant-vector result from a Grafana query.
type Sample struct {
	Metric map[string]string `json:"metric"`
	Value  SampleValue       `json:"value"`
}

// Instance returns the sample's instance label ("" if absent).
func (s Sample) Instance() string {
	return s.Metric["instance"]
}

// SampleValue is the Prometheus [timestamp, "value"] pair.
type SampleValue struct {
	Timestamp float64
	Value     string
}

// UnmarshalJSON decodes the two-element Prometheus value array.
func (v *SampleValue) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("sample value: %w", err)
	}
	if err := json.Unmarshal(raw[0], &v.Timestamp); err != nil {
		return fmt.Errorf("sample timestamp: %w", err)
	}
	if err := json.Unmarshal(raw[1], &v.Value); err != nil {
		return fmt.Errorf("sample value string: %w", err)
	}
	return nil
}

// MarshalJSON encodes the value back into the Prometheus array form.
func (v SampleValue) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{v.Timestamp, v.Value})
}

// Float parses the sample value as a float64.
func (v SampleValue) Float() (float64, error) {
	return strconv.ParseFloat(v.Value, 64)
}

// queryResponse is the Prometheus query API envelope.
type queryResponse struct {
	Status string `json:"status"`
	Data   struct {
		Result []Sample `json:"result"`
	} `json:"data"`
}

// Client queries Prometheus through the Grafana datasource proxy.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a Grafana client. An empty baseURL or token leaves the
// client unconfigured; FetchMetrics then fails with ErrNotConfigured.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

// IsConfigured reports whether both base URL and API token are set.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.token != ""
}

// BaseURL returns the configured Grafana base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchMetrics runs a PromQL instant query through the datasource proxy.
//
// Unlike the metrics API adapter, errors here propagate to the caller: the
// periodic sync needs to distinguish a Grafana outage (forced-loading
// fallback) from a successful query with no matches.
func (c *Client) FetchMetrics(ctx context.Context, query string) ([]Sample, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if query == "" {
		query = DefaultQuery
	}

	endpoint := c.baseURL + "/api/datasources/proxy/1/api/v1/query?query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grafana query: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("grafana API returned %d: %s", resp.StatusCode, string(body))
	}

	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if qr.Status != "success" {
		return nil, fmt.Errorf("grafana query failed: status %q", qr.Status)
	}

	return qr.Data.Result, nil
}
