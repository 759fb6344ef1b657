package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Monitor.Interval != 3*time.Second {
		t.Fatalf("interval = %s, want 3s", cfg.Monitor.Interval)
	}
	if cfg.Monitor.HistoryCapacity != 60 {
		t.Fatalf("history capacity = %d", cfg.Monitor.HistoryCapacity)
	}
	if cfg.Monitor.LivenessThreshold != time.Second {
		t.Fatalf("liveness = %s", cfg.Monitor.LivenessThreshold)
	}
	if cfg.Monitor.DeepThreshold != 5*time.Second {
		t.Fatalf("deep threshold = %s", cfg.Monitor.DeepThreshold)
	}
	if cfg.Dumps.Threshold != 15*time.Second {
		t.Fatalf("dump threshold = %s", cfg.Dumps.Threshold)
	}
	if cfg.Server.Address != ":8080" || cfg.Server.MetricsAddress != ":2112" {
		t.Fatalf("server defaults = %+v", cfg.Server)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	content := `
monitor:
  interval: 5s
  sessionDuration: 2m
  topN: 8
dumps:
  enabled: false
logging:
  level: debug
  json: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Monitor.Interval != 5*time.Second {
		t.Fatalf("interval = %s", cfg.Monitor.Interval)
	}
	if cfg.Monitor.SessionDuration != 2*time.Minute {
		t.Fatalf("session duration = %s", cfg.Monitor.SessionDuration)
	}
	if cfg.Monitor.TopN != 8 {
		t.Fatalf("topN = %d", cfg.Monitor.TopN)
	}
	if cfg.Dumps.Enabled {
		t.Fatal("dumps should be disabled by file")
	}
	if !cfg.Logging.JSON || cfg.Logging.Level != "debug" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	// Untouched values keep their defaults.
	if cfg.Monitor.HistoryCapacity != 60 {
		t.Fatalf("history capacity = %d", cfg.Monitor.HistoryCapacity)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for explicit missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SENTINEL_AGENT_SERVER_ADDRESS", ":9999")
	t.Setenv("SENTINEL_AGENT_INTERVAL", "10s")
	t.Setenv("SENTINEL_AGENT_DUMPS_ENABLED", "false")
	t.Setenv("SENTINEL_AGENT_LOG_FORMAT", "json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":9999" {
		t.Fatalf("address = %s", cfg.Server.Address)
	}
	if cfg.Monitor.Interval != 10*time.Second {
		t.Fatalf("interval = %s", cfg.Monitor.Interval)
	}
	if cfg.Dumps.Enabled {
		t.Fatal("dumps not disabled by env")
	}
	if !cfg.Logging.JSON {
		t.Fatal("log format not switched by env")
	}
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	content := `
monitor:
  livenessThreshold: 10s
  deepThreshold: 2s
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error when deep threshold is below liveness")
	}
}
