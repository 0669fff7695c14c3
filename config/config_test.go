package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected default port %d, got %d", DefaultPort, cfg.Server.Port)
	}
	if !cfg.Server.Enabled {
		t.Error("expected server enabled by default")
	}
	if cfg.Queues.InCapacity != 32 {
		t.Errorf("expected in_capacity 32, got %d", cfg.Queues.InCapacity)
	}
	if cfg.Timing.HealthSendInterval.Duration() != 5*time.Second {
		t.Errorf("expected health_send_interval 5s, got %s", cfg.Timing.HealthSendInterval.Duration())
	}
	if cfg.Timing.HealthReceiveInterval.Duration() != 20*time.Second {
		t.Errorf("expected health_receive_interval 20s, got %s", cfg.Timing.HealthReceiveInterval.Duration())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestLoadValidConfig(t *testing.T) {
	yamlDoc := `
server:
  enabled: true
  port: 9090
client:
  enabled: true
  address: "agent.internal"
  port: 9091
  retry_delay: "2s"
queues:
  in_capacity: 16
  out_capacity: 16
timing:
  handshake_timeout: "10s"
  health_send_interval: "3s"
  health_receive_interval: "15s"
logging:
  level: "debug"
`
	dir := t.TempDir()
	path := filepath.Join(dir, "arcus.yaml")
	if err := os.WriteFile(path, []byte(yamlDoc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Client.Address != "agent.internal" {
		t.Errorf("expected client address agent.internal, got %s", cfg.Client.Address)
	}
	if cfg.Client.RetryDelay.Duration() != 2*time.Second {
		t.Errorf("expected retry_delay 2s, got %s", cfg.Client.RetryDelay.Duration())
	}
	if cfg.Queues.InCapacity != 16 {
		t.Errorf("expected in_capacity 16, got %d", cfg.Queues.InCapacity)
	}
	if cfg.Timing.HandshakeTimeout.Duration() != 10*time.Second {
		t.Errorf("expected handshake_timeout 10s, got %s", cfg.Timing.HandshakeTimeout.Duration())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/arcus.yaml")
	if err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestValidateRejectsBothRolesDisabled(t *testing.T) {
	cfg := Default()
	cfg.Server.Enabled = false
	cfg.Client.Enabled = false
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error when neither role is enabled")
	}
}

func TestValidateRejectsBadServerPort(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for server.port = 0")
	}
}

func TestValidateRejectsMissingClientAddress(t *testing.T) {
	cfg := Default()
	cfg.Client.Enabled = true
	cfg.Client.Address = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for missing client.address")
	}
}

func TestValidateRejectsReceiveIntervalNotExceedingSend(t *testing.T) {
	cfg := Default()
	cfg.Timing.HealthSendInterval = Duration(10 * time.Second)
	cfg.Timing.HealthReceiveInterval = Duration(5 * time.Second)
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error when receive interval does not exceed send interval")
	}
}

func TestConnectionConfigDerivesFromQueuesAndTiming(t *testing.T) {
	cfg := Default()
	cc := cfg.ConnectionConfig()
	if cc.InCapacity != cfg.Queues.InCapacity {
		t.Errorf("InCapacity = %d, want %d", cc.InCapacity, cfg.Queues.InCapacity)
	}
	if cc.HandshakeTimeout != cfg.Timing.HandshakeTimeout.Duration() {
		t.Errorf("HandshakeTimeout = %s, want %s", cc.HandshakeTimeout, cfg.Timing.HandshakeTimeout.Duration())
	}
}
