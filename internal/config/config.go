// Package config loads the server configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GameServer holds all configuration for the game server.
type GameServer struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// World
	MaxPlayers   int    `yaml:"max_players"`
	TickInterval string `yaml:"tick_interval"` // duration, e.g. "600ms"
	DataDir      string `yaml:"data_dir"`

	// Logging
	LogLevel string `yaml:"log_level"` // debug, info, warn, error (default: info)

	// Database; empty DSN runs on the in-memory store.
	DatabaseDSN string `yaml:"database_dsn"`

	// Metrics; empty disables the endpoint.
	MetricsAddress string `yaml:"metrics_address"`
}

// Defaults returns the built-in configuration.
func Defaults() GameServer {
	return GameServer{
		BindAddress:  "0.0.0.0",
		Port:         43594,
		MaxPlayers:   2048,
		TickInterval: "600ms",
		DataDir:      "data",
		LogLevel:     "info",
	}
}

// Load reads a GameServer config from a YAML file, applying defaults for
// unset fields. A missing file yields pure defaults.
func Load(path string) (GameServer, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	defaults := Defaults()
	if cfg.BindAddress == "" {
		cfg.BindAddress = defaults.BindAddress
	}
	if cfg.Port == 0 {
		cfg.Port = defaults.Port
	}
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = defaults.MaxPlayers
	}
	if cfg.TickInterval == "" {
		cfg.TickInterval = defaults.TickInterval
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaults.DataDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	return cfg, nil
}

// Tick parses the configured tick interval.
func (c GameServer) Tick() time.Duration {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil || d <= 0 {
		return 600 * time.Millisecond
	}
	return d
}

// MapsDir returns the directory holding m{x}_{z} and l{x}_{z} files.
func (c GameServer) MapsDir() string {
	return c.DataDir + "/maps"
}
