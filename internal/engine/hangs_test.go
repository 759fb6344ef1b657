package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sentinelstack/sentinel-agent/internal/models"
)

func TestHangTrackerAccumulatesDuration(t *testing.T) {
	inspector := &fakeInspector{responsive: false}
	tracker := newHangTracker(inspector, time.Second)

	start := time.Now()
	candidates := []models.ProcessUsage{{PID: 7, Name: "worker"}}

	// First sighting establishes the baseline; no hang yet.
	if hangs := tracker.update(context.Background(), start, candidates); len(hangs) != 0 {
		t.Fatalf("hang reported on first sighting: %+v", hangs)
	}

	// Three seconds later the process is still unresponsive.
	hangs := tracker.update(context.Background(), start.Add(3*time.Second), candidates)
	if len(hangs) != 1 {
		t.Fatalf("want 1 hang, got %d", len(hangs))
	}
	if hangs[0].HangSeconds < 2.9 || hangs[0].HangSeconds > 3.1 {
		t.Fatalf("hang duration = %.2fs, want ~3s", hangs[0].HangSeconds)
	}
	if hangs[0].Name != "worker" {
		t.Fatalf("hang name = %q", hangs[0].Name)
	}
}

func TestHangTrackerRecovery(t *testing.T) {
	inspector := &fakeInspector{responsive: false}
	tracker := newHangTracker(inspector, time.Second)

	start := time.Now()
	candidates := []models.ProcessUsage{{PID: 7, Name: "worker"}}
	tracker.update(context.Background(), start, candidates)
	tracker.update(context.Background(), start.Add(2*time.Second), candidates)

	// The process answers again: the hang clears and does not re-fire.
	inspector.responsive = true
	if hangs := tracker.update(context.Background(), start.Add(3*time.Second), candidates); len(hangs) != 0 {
		t.Fatalf("hang reported after recovery: %+v", hangs)
	}
	inspector.responsive = false
	if hangs := tracker.update(context.Background(), start.Add(3500*time.Millisecond), candidates); len(hangs) != 0 {
		t.Fatalf("hang re-fired before liveness threshold: %+v", hangs)
	}
}

func TestHangTrackerDropsExitedProcess(t *testing.T) {
	inspector := &fakeInspector{respErr: errors.New("no such process")}
	tracker := newHangTracker(inspector, time.Second)

	start := time.Now()
	candidates := []models.ProcessUsage{{PID: 7, Name: "worker"}}
	if hangs := tracker.update(context.Background(), start, candidates); len(hangs) != 0 {
		t.Fatalf("exited process reported hanging: %+v", hangs)
	}
	if len(tracker.watched) != 0 {
		t.Fatalf("exited process still tracked")
	}
}

func TestHangTrackerKeepsProbingOutsideCandidates(t *testing.T) {
	inspector := &fakeInspector{responsive: false}
	tracker := newHangTracker(inspector, time.Second)

	start := time.Now()
	candidates := []models.ProcessUsage{{PID: 7, Name: "worker"}}
	tracker.update(context.Background(), start, candidates)
	tracker.update(context.Background(), start.Add(2*time.Second), candidates)

	// The process falls out of the top-N lists but is still wedged; its
	// hang keeps accumulating.
	hangs := tracker.update(context.Background(), start.Add(4*time.Second), nil)
	if len(hangs) != 1 {
		t.Fatalf("hang lost when process left candidate set: %+v", hangs)
	}
	if hangs[0].HangSeconds < 3.9 {
		t.Fatalf("hang duration reset: %.2fs", hangs[0].HangSeconds)
	}
}
