// Package config loads and validates the Arcus engine's tunables: queue
// capacities, timeouts, and the listen/connect addresses for the server
// and client roles. Grounded on sadewadee-maboo's internal/config
// package's yaml.v3 + custom Duration pattern.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete Arcus engine configuration.
type Config struct {
	Server  ServerConfig `yaml:"server"`
	Client  ClientConfig `yaml:"client"`
	Queues  QueuesConfig `yaml:"queues"`
	Timing  TimingConfig `yaml:"timing"`
	Logging LogConfig    `yaml:"logging"`
}

// ServerConfig configures the Arcus server role (spec.md C12): the
// listening endpoint the game process binds.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
}

// ClientConfig configures the Arcus client role (spec.md C13): the
// endpoint the management agent connects to.
type ClientConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Address    string   `yaml:"address"`
	Port       int      `yaml:"port"`
	RetryDelay Duration `yaml:"retry_delay"`
}

// QueuesConfig sets the fixed capacities of the Connection's message
// queues (spec.md invariant #4 — push on a full queue is a failure, not
// a block).
type QueuesConfig struct {
	InCapacity  int `yaml:"in_capacity"`
	OutCapacity int `yaml:"out_capacity"`
}

// TimingConfig sets the three time bounds spec.md §5 names: the
// handshake deadline and the health checker's send/receive intervals.
type TimingConfig struct {
	HandshakeTimeout      Duration `yaml:"handshake_timeout"`
	HealthSendInterval    Duration `yaml:"health_send_interval"`
	HealthReceiveInterval Duration `yaml:"health_receive_interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a time.Duration that supports YAML string unmarshaling.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads config from a YAML file, applying defaults for missing
// values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Server.Enabled && (c.Server.Port < 1 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port must be in [1,65535], got %d", c.Server.Port)
	}
	if c.Client.Enabled {
		if c.Client.Address == "" {
			return fmt.Errorf("client.address is required when client is enabled")
		}
		if c.Client.Port < 1 || c.Client.Port > 65535 {
			return fmt.Errorf("client.port must be in [1,65535], got %d", c.Client.Port)
		}
		if c.Client.RetryDelay.Duration() <= 0 {
			return fmt.Errorf("client.retry_delay must be > 0, got %s", c.Client.RetryDelay.Duration())
		}
	}
	if !c.Server.Enabled && !c.Client.Enabled {
		return fmt.Errorf("at least one of server.enabled or client.enabled must be true")
	}
	if c.Queues.InCapacity < 1 {
		return fmt.Errorf("queues.in_capacity must be >= 1, got %d", c.Queues.InCapacity)
	}
	if c.Queues.OutCapacity < 1 {
		return fmt.Errorf("queues.out_capacity must be >= 1, got %d", c.Queues.OutCapacity)
	}
	if c.Timing.HandshakeTimeout.Duration() <= 0 {
		return fmt.Errorf("timing.handshake_timeout must be > 0, got %s", c.Timing.HandshakeTimeout.Duration())
	}
	if c.Timing.HealthSendInterval.Duration() <= 0 {
		return fmt.Errorf("timing.health_send_interval must be > 0, got %s", c.Timing.HealthSendInterval.Duration())
	}
	if c.Timing.HealthReceiveInterval.Duration() <= c.Timing.HealthSendInterval.Duration() {
		return fmt.Errorf("timing.health_receive_interval (%s) must exceed health_send_interval (%s)",
			c.Timing.HealthReceiveInterval.Duration(), c.Timing.HealthSendInterval.Duration())
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", c.Logging.Level)
	}
	return nil
}
