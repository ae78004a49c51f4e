// Package probe performs on-demand reachability checks.
package probe

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// Checker tests whether a target is reachable. The probe mode is picked
// from the target shape: http(s) URLs get a HEAD request, host+port a TCP
// dial, and a bare host an ICMP ping.
type Checker struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewChecker creates a reachability checker.
func NewChecker(timeout time.Duration, logger *zap.Logger) *Checker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Checker{timeout: timeout, logger: logger}
}

// Check reports whether the target is reachable. Port 0 means no port.
func (c *Checker) Check(ctx context.Context, address string, port int) bool {
	switch {
	case strings.HasPrefix(address, "http://"), strings.HasPrefix(address, "https://"):
		return c.checkHTTP(ctx, address)
	case port != 0:
		return c.checkTCP(ctx, address, port)
	default:
		return c.checkICMP(ctx, address)
	}
}

// checkHTTP issues a HEAD request; any response below 400 counts as up.
func (c *Checker) checkHTTP(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.logger.Debug("http probe failed", zap.String("url", url), zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusBadRequest
}

func (c *Checker) checkTCP(ctx context.Context, host string, port int) bool {
	d := net.Dialer{Timeout: c.timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		c.logger.Debug("tcp probe failed",
			zap.String("host", host), zap.Int("port", port), zap.Error(err))
		return false
	}
	conn.Close()
	return true
}

func (c *Checker) checkICMP(ctx context.Context, host string) bool {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false
	}
	// Unprivileged UDP ping so the binary does not need CAP_NET_RAW.
	pinger.SetPrivileged(false)
	pinger.Count = 1
	pinger.Timeout = c.timeout

	if err := pinger.RunWithContext(ctx); err != nil {
		c.logger.Debug("icmp probe failed", zap.String("host", host), zap.Error(err))
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}
