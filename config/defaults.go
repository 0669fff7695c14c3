package config

import (
	"arcus/connection"
	"arcus/health"
)

// DefaultPort is the conventional Arcus listen/connect port.
const DefaultPort = 19002

// Default returns a Config with the defaults named throughout spec.md
// §4.5, §4.9, and §5.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Enabled: true,
			Port:    DefaultPort,
		},
		Client: ClientConfig{
			Enabled:    false,
			Address:    "127.0.0.1",
			Port:       DefaultPort,
			RetryDelay: Duration(connection.DefaultHandshakeTimeout / 4),
		},
		Queues: QueuesConfig{
			InCapacity:  32,
			OutCapacity: 32,
		},
		Timing: TimingConfig{
			HandshakeTimeout:      Duration(connection.DefaultHandshakeTimeout),
			HealthSendInterval:    Duration(health.DefaultSendInterval),
			HealthReceiveInterval: Duration(health.DefaultReceiveInterval),
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// ConnectionConfig derives a connection.Config from the queue and timing
// sections so callers can hand it straight to connection.New, server.New,
// or client.New.
func (c *Config) ConnectionConfig() connection.Config {
	return connection.Config{
		InCapacity:            c.Queues.InCapacity,
		OutCapacity:           c.Queues.OutCapacity,
		HandshakeTimeout:      c.Timing.HandshakeTimeout.Duration(),
		HealthSendInterval:    c.Timing.HealthSendInterval.Duration(),
		HealthReceiveInterval: c.Timing.HealthReceiveInterval.Duration(),
	}
}
