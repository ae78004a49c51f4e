// Package config loads application configuration and builds the logger.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment variables.
// With an empty configPath it searches for statusforge.yaml in the working
// directory, ./configs, and /etc/statusforge.
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.addr", "0.0.0.0:5000")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "./data/statusforge.db")
	v.SetDefault("admin.username", "root")
	v.SetDefault("admin.password", "")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("metrics_api.url", "")
	v.SetDefault("metrics_api.mode", "bulk")
	v.SetDefault("metrics_api.timeout", "30s")
	v.SetDefault("grafana.url", "")
	v.SetDefault("grafana.token", "")
	v.SetDefault("grafana.timeout", "10s")
	v.SetDefault("sync.interval", "30s")
	v.SetDefault("sync.initial_delay", "5s")
	v.SetDefault("probe.timeout", "5s")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("statusforge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/statusforge")
	}

	// Environment variable support: STATUSFORGE_SERVER_ADDR=:9090.
	// The replacer maps nested keys (server.addr) onto flat env names;
	// without it AutomaticEnv only covers top-level keys.
	v.SetEnvPrefix("STATUSFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
