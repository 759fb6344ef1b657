package models

import (
	"testing"
	"time"
)

func TestBuilderCopiesSlices(t *testing.T) {
	b := NewMonitorSampleBuilder()
	b.CPUPercent = 42
	b.TopByCPU = []ProcessUsage{{PID: 1, Name: "a"}}
	b.Disks = []DiskInstanceStats{{Device: "sda", QueueLength: 2}}

	ts := time.Now()
	sample := b.Build(ts)

	// Mutating the builder after Build must not alias into the sample.
	b.TopByCPU[0].Name = "changed"
	b.Disks[0].QueueLength = 99

	if sample.Timestamp != ts {
		t.Fatalf("timestamp = %s", sample.Timestamp)
	}
	if sample.CPUPercent != 42 {
		t.Fatalf("cpu = %v", sample.CPUPercent)
	}
	if sample.TopByCPU[0].Name != "a" {
		t.Fatalf("sample aliased builder slice: %+v", sample.TopByCPU)
	}
	if sample.Disks[0].QueueLength != 2 {
		t.Fatalf("sample aliased disk slice: %+v", sample.Disks)
	}
}

func TestClampHelpers(t *testing.T) {
	if got := ClampScore(-5); got != 0 {
		t.Fatalf("ClampScore(-5) = %d", got)
	}
	if got := ClampScore(150); got != 100 {
		t.Fatalf("ClampScore(150) = %d", got)
	}
	if got := ClampScore(73); got != 73 {
		t.Fatalf("ClampScore(73) = %d", got)
	}
	if got := ClampConfidence(1.7); got != 1 {
		t.Fatalf("ClampConfidence(1.7) = %v", got)
	}
	if got := ClampConfidence(-0.1); got != 0 {
		t.Fatalf("ClampConfidence(-0.1) = %v", got)
	}
}
