/*
Package config loads server configuration from a TOML file.

Defaults work out of the box for local development; a config file
overrides them, and command-line flags in cmd/server override both.
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Dimona   DimonaConfig   `toml:"dimona"`
	Geofence GeofenceConfig `toml:"geofence"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

type ServerConfig struct {
	Addr   string `toml:"addr"`
	DBPath string `toml:"db_path"`
}

type DimonaConfig struct {
	// Endpoint of the ONSS collaborator API. Empty switches the engine
	// to the manual-portal fallback.
	Endpoint string `toml:"endpoint"`
	APIKey   string `toml:"api_key"`

	// TimeoutSeconds bounds each declare/cancel call.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

type GeofenceConfig struct {
	// DefaultRadiusMeters applies to locations created without an
	// explicit radius. Zero disables distance checks for them.
	DefaultRadiusMeters float64 `toml:"default_radius_meters"`
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:   ":8080",
			DBPath: "flexi.db",
		},
		Dimona: DimonaConfig{
			TimeoutSeconds: 10,
		},
		Geofence: GeofenceConfig{
			DefaultRadiusMeters: 100,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads a TOML file over the defaults. A missing path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Dimona.TimeoutSeconds <= 0 {
		cfg.Dimona.TimeoutSeconds = 10
	}
	return cfg, nil
}

// DimonaTimeout returns the per-call timeout as a duration.
func (c Config) DimonaTimeout() time.Duration {
	return time.Duration(c.Dimona.TimeoutSeconds) * time.Second
}
