// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Heartbeat holds liveness detection settings.
type Heartbeat struct {
	TimeoutSeconds       int `yaml:"timeout_seconds"`
	CheckIntervalSeconds int `yaml:"check_interval_seconds"`
}

// Greptime holds the optional time-series telemetry sink settings.
type Greptime struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Database string `yaml:"database"`
}

// Config is the root configuration for the mission control backend.
type Config struct {
	AMQPURL      string    `yaml:"amqp_url"`
	DatabaseURL  string    `yaml:"database_url"`
	ListenAddr   string    `yaml:"listen_addr"`
	Heartbeat    Heartbeat `yaml:"heartbeat"`
	Greptime     Greptime  `yaml:"greptime"`
	TelemetryLog string    `yaml:"telemetry_log"`
}

// HeartbeatTimeout returns the configured timeout as a duration.
func (c *Config) HeartbeatTimeout() time.Duration {
	if c.Heartbeat.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Heartbeat.TimeoutSeconds) * time.Second
}

// HeartbeatCheckInterval returns the configured scan interval as a duration.
func (c *Config) HeartbeatCheckInterval() time.Duration {
	if c.Heartbeat.CheckIntervalSeconds <= 0 {
		return time.Second
	}
	return time.Duration(c.Heartbeat.CheckIntervalSeconds) * time.Second
}

// Load loads YAML config and validates it against a CUE schema.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.AMQPURL == "" {
		return nil, fmt.Errorf("amqp_url is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is required")
	}
	return &cfg, nil
}
