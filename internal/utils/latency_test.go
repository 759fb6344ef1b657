package utils

import (
	"testing"
	"time"
)

func TestDurationWindowPercentile(t *testing.T) {
	w := NewDurationWindow(16)
	for _, d := range []time.Duration{
		3 * time.Millisecond,
		9 * time.Millisecond,
		27 * time.Millisecond,
		81 * time.Millisecond,
	} {
		w.Observe(d)
	}

	if got := w.Count(); got != 4 {
		t.Fatalf("Count = %d, want 4", got)
	}
	if got := w.Percentile(0); got != 3*time.Millisecond {
		t.Fatalf("p0 = %v, want 3ms", got)
	}
	if got := w.Percentile(100); got != 81*time.Millisecond {
		t.Fatalf("p100 = %v, want 81ms", got)
	}
	if got := w.Percentile(95); got < 27*time.Millisecond {
		t.Fatalf("p95 = %v, want >= 27ms", got)
	}
}

func TestDurationWindowEmpty(t *testing.T) {
	w := NewDurationWindow(4)
	if got := w.Percentile(95); got != 0 {
		t.Fatalf("empty window p95 = %v, want 0", got)
	}
}

func TestDurationWindowEvictsOldest(t *testing.T) {
	w := NewDurationWindow(3)
	for i := 1; i <= 10; i++ {
		w.Observe(time.Duration(i) * time.Millisecond)
	}

	if got := w.Count(); got != 3 {
		t.Fatalf("Count = %d, want 3", got)
	}
	// Only the three most recent observations survive.
	if got := w.Percentile(0); got != 8*time.Millisecond {
		t.Fatalf("p0 = %v, want 8ms", got)
	}
	if got := w.Percentile(100); got != 10*time.Millisecond {
		t.Fatalf("p100 = %v, want 10ms", got)
	}
}
