package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sentinelstack/sentinel-agent/internal/models"
)

func writeTipPack(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tips.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write tip pack: %v", err)
	}
	return path
}

func TestTipEngineFirstMatchWins(t *testing.T) {
	path := writeTipPack(t, `tips:
  - id: hang-critical
    match:
      event_type: process.hang
      severity: critical
    tip: "Escalate"
  - id: hang
    match:
      event_type: process.hang
    tip: "Investigate"
`)

	tips, err := NewTipEngine(path, nil)
	if err != nil {
		t.Fatalf("new tip engine: %v", err)
	}

	ev := models.MonitorEvent{EventType: "process.hang", Severity: models.SeverityCritical}
	if got := tips.Resolve(ev); got != "Escalate" {
		t.Fatalf("tip = %q, want first matching rule", got)
	}

	ev.Severity = models.SeverityHigh
	if got := tips.Resolve(ev); got != "Investigate" {
		t.Fatalf("tip = %q, want severity-agnostic rule", got)
	}

	if got := tips.Resolve(models.MonitorEvent{EventType: "disk.queue"}); got != "" {
		t.Fatalf("unmatched event resolved tip %q", got)
	}
}

func TestTipEngineDescriptionContains(t *testing.T) {
	path := writeTipPack(t, `tips:
  - id: pagefile
    match:
      event_type: memory.commit_limit
      description_contains: ["limit"]
    tip: "Grow the page file"
`)

	tips, err := NewTipEngine(path, nil)
	if err != nil {
		t.Fatalf("new tip engine: %v", err)
	}

	ev := models.MonitorEvent{EventType: "memory.commit_limit", Description: "Commit charge 30 GiB of 32 GiB limit"}
	if got := tips.Resolve(ev); got != "Grow the page file" {
		t.Fatalf("tip = %q", got)
	}

	ev.Description = "Commit charge rising"
	if got := tips.Resolve(ev); got != "" {
		t.Fatalf("tip matched without description fragment: %q", got)
	}
}

func TestTipEngineMissingFile(t *testing.T) {
	tips, err := NewTipEngine("does-not-exist.yaml", nil)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if tips != nil {
		t.Fatal("expected nil engine when file missing")
	}

	// A nil engine must still be callable.
	if got := tips.Resolve(models.MonitorEvent{EventType: "process.hang"}); got != "" {
		t.Fatalf("nil engine resolved %q", got)
	}
}
