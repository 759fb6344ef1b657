package probe

import (
	"context"
	"testing"
	"time"

	gopsnet "github.com/shirou/gopsutil/v3/net"
)

// Rates must be computed against the calling method's own previous sample.
// Running the full collection order (CPU first, as the engine does) must not
// shrink the window the memory and network deltas are divided by.
func TestRateBaselinesArePerCounter(t *testing.T) {
	ctx := context.Background()
	s := NewSystemSource()

	if _, err := s.CPU(ctx); err != nil {
		t.Fatalf("CPU: %v", err)
	}
	if !s.lastFaultAt.IsZero() || !s.lastNetAt.IsZero() {
		t.Fatalf("CPU sampling touched fault/net baselines: faultAt=%v netAt=%v", s.lastFaultAt, s.lastNetAt)
	}

	if _, err := s.Memory(ctx); err != nil {
		t.Fatalf("Memory: %v", err)
	}
	if _, err := s.Network(ctx); err != nil {
		t.Fatalf("Network: %v", err)
	}
	if s.lastFaultAt.IsZero() {
		t.Fatal("Memory did not record its own baseline timestamp")
	}
	if s.lastNetAt.IsZero() {
		t.Fatal("Network did not record its own baseline timestamp")
	}
}

func TestPageFaultRateSpansOwnInterval(t *testing.T) {
	ctx := context.Background()
	s := NewSystemSource()

	// CPU runs first every tick; it must not narrow the fault window.
	if _, err := s.CPU(ctx); err != nil {
		t.Fatalf("CPU: %v", err)
	}

	before, ok := readPageFaults()
	if !ok {
		t.Skip("page fault counter unavailable")
	}
	s.mu.Lock()
	s.lastPageFault = before
	s.lastFaultAt = time.Now().Add(-10 * time.Second)
	s.mu.Unlock()

	stats, err := s.Memory(ctx)
	if err != nil {
		t.Fatalf("Memory: %v", err)
	}
	after, ok := readPageFaults()
	if !ok {
		t.Skip("page fault counter unavailable")
	}

	// The true delta divided by a >=10s window can never exceed the raw
	// delta itself; dividing by a near-zero window would exceed it hugely.
	if limit := float64(after - before); stats.PageFaultRate > limit {
		t.Fatalf("PageFaultRate = %.0f/s, want <= %.0f (delta over a 10s window)", stats.PageFaultRate, limit)
	}
}

func TestNetworkRateSpansOwnInterval(t *testing.T) {
	ctx := context.Background()
	s := NewSystemSource()

	if _, err := s.CPU(ctx); err != nil {
		t.Fatalf("CPU: %v", err)
	}

	counters, err := gopsnet.IOCounters(false)
	if err != nil || len(counters) == 0 {
		t.Skip("network counters unavailable")
	}
	s.mu.Lock()
	s.lastNetRecv = 1
	s.lastNetSent = 1
	s.lastNetAt = time.Now().Add(-10 * time.Second)
	s.mu.Unlock()

	stats, err := s.Network(ctx)
	if err != nil {
		t.Fatalf("Network: %v", err)
	}

	after, err := gopsnet.IOCounters(false)
	if err != nil || len(after) == 0 {
		t.Skip("network counters unavailable")
	}
	if limit := float64(after[0].BytesRecv); stats.RecvBytesPerSec > limit {
		t.Fatalf("RecvBytesPerSec = %.0f, want <= %.0f (delta over a 10s window)", stats.RecvBytesPerSec, limit)
	}
	if limit := float64(after[0].BytesSent); stats.SentBytesPerSec > limit {
		t.Fatalf("SentBytesPerSec = %.0f, want <= %.0f (delta over a 10s window)", stats.SentBytesPerSec, limit)
	}
}
