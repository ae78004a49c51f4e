package metricsapi

import (
	"strings"

	"github.com/statusforge/statusforge/internal/status"
)

// DeriveStatus maps raw resource readings to a coarse service status.
// Rules are evaluated in priority order; first match wins.
func DeriveStatus(cpu, ram, disk float64) status.ServiceStatus {
	// Both cpu and ram at zero means no signal at all: the exporter on the
	// host is not answering.
	if cpu == 0 && ram == 0 {
		return status.StatusDown
	}
	if cpu > 90 || ram > 90 || disk > 90 {
		return status.StatusDegraded
	}
	if cpu > 80 || ram > 80 || disk > 85 {
		return status.StatusMaintenance
	}
	return status.StatusOperational
}

// categoryKeywords maps name substrings to categories, checked in order.
var categoryKeywords = []struct {
	keywords []string
	category string
}{
	{[]string{"database", "db"}, "Database"},
	{[]string{"sso", "auth"}, "Authentication"},
	{[]string{"vpn", "ipsec", "firezone"}, "Network"},
	{[]string{"gitlab", "git"}, "DevTools"},
	{[]string{"siem", "wazuh"}, "Security"},
	{[]string{"ai"}, "Compute"},
	{[]string{"ops"}, "Operations"},
	{[]string{"proxy"}, "Network"},
}

// CategoryForServer derives a service category from the server name.
func CategoryForServer(serverName string) string {
	name := strings.ToLower(serverName)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(name, kw) {
				return entry.category
			}
		}
	}
	return "Infrastructure"
}

var categoryIcons = map[string]string{
	"Database":       "database",
	"Authentication": "shield",
	"Network":        "globe",
	"DevTools":       "git-branch",
	"Security":       "shield",
	"Compute":        "cpu",
	"Operations":     "server",
	"Infrastructure": "server",
}

// IconForCategory returns the dashboard icon name for a category.
func IconForCategory(category string) string {
	if icon, ok := categoryIcons[category]; ok {
		return icon
	}
	return "server"
}

// ServiceIDForServer synthesizes a stable service id when the upstream
// does not assign one.
func ServiceIDForServer(serverName string) string {
	return "srv-" + strings.ReplaceAll(strings.ToLower(serverName), " ", "-")
}
