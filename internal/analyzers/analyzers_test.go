package analyzers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sentinelstack/sentinel-agent/internal/models"
	"github.com/sentinelstack/sentinel-agent/internal/probe"
)

// fakeSource returns canned stats per domain; a non-nil err fails every call.
type fakeSource struct {
	cpu     probe.CPUStats
	memory  probe.MemoryStats
	disk    probe.DiskStats
	network probe.NetworkStats
	procs   probe.ProcessStats
	err     error
}

func (f *fakeSource) CPU(context.Context) (probe.CPUStats, error) { return f.cpu, f.err }

func (f *fakeSource) Memory(context.Context) (probe.MemoryStats, error) { return f.memory, f.err }

func (f *fakeSource) Disk(context.Context) (probe.DiskStats, error) { return f.disk, f.err }

func (f *fakeSource) Network(context.Context) (probe.NetworkStats, error) { return f.network, f.err }

func (f *fakeSource) Processes(context.Context, int) (probe.ProcessStats, error) {
	return f.procs, f.err
}

func buildWith(t *testing.T, a Analyzer) models.MonitorSample {
	t.Helper()
	b := models.NewMonitorSampleBuilder()
	a.Collect(context.Background(), b)
	return b.Build(time.Now())
}

func historyOf(samples ...models.MonitorSample) []models.MonitorSample {
	return samples
}

func TestCPUCollectLeavesZerosOnFailure(t *testing.T) {
	a := NewCPUAnalyzer(&fakeSource{err: errors.New("probe down")})
	sample := buildWith(t, a)

	if sample.CPUPercent != 0 || sample.ContextSwitchRate != 0 {
		t.Fatalf("failed collect mutated fields: %+v", sample)
	}

	assessment := a.Analyze(sample, nil)
	if assessment.Score.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0 for unavailable counters", assessment.Score.Confidence)
	}
	if assessment.Score.Domain != "cpu" {
		t.Fatalf("domain = %q", assessment.Score.Domain)
	}
}

func TestCPUSaturationEvent(t *testing.T) {
	src := &fakeSource{cpu: probe.CPUStats{Percent: 97, RunQueueLength: 12}}
	a := NewCPUAnalyzer(src)
	sample := buildWith(t, a)

	assessment := a.Analyze(sample, nil)
	if assessment.Score.Score <= 50 {
		t.Fatalf("score = %d, want high under saturation", assessment.Score.Score)
	}
	if len(assessment.NewEvents) == 0 || assessment.NewEvents[0].EventType != "cpu.saturation" {
		t.Fatalf("saturation event missing: %+v", assessment.NewEvents)
	}
	if assessment.NewEvents[0].Severity != models.SeverityCritical {
		t.Fatalf("severity = %s", assessment.NewEvents[0].Severity)
	}
}

func TestCPUTrendBonus(t *testing.T) {
	a := NewCPUAnalyzer(&fakeSource{})
	current := models.MonitorSample{CPUPercent: 60}

	flat := a.Analyze(current, historyOf(
		models.MonitorSample{CPUPercent: 60},
		models.MonitorSample{CPUPercent: 60},
		models.MonitorSample{CPUPercent: 60},
	))
	rising := a.Analyze(current, historyOf(
		models.MonitorSample{CPUPercent: 20},
		models.MonitorSample{CPUPercent: 25},
		models.MonitorSample{CPUPercent: 30},
	))
	if rising.Score.Score <= flat.Score.Score {
		t.Fatalf("rising trend %d not scored above flat %d", rising.Score.Score, flat.Score.Score)
	}
}

func TestMemoryEventsAtThresholds(t *testing.T) {
	a := NewMemoryAnalyzer(&fakeSource{memory: probe.MemoryStats{
		UsedPercent:      96,
		AvailableBytes:   512 << 20,
		CommitBytes:      31 << 30,
		CommitLimitBytes: 32 << 30,
	}})
	sample := buildWith(t, a)

	assessment := a.Analyze(sample, nil)
	types := map[string]bool{}
	for _, ev := range assessment.NewEvents {
		types[ev.EventType] = true
	}
	if !types["memory.exhaustion"] {
		t.Fatalf("exhaustion event missing: %+v", assessment.NewEvents)
	}
	if !types["memory.commit_limit"] {
		t.Fatalf("commit event missing: %+v", assessment.NewEvents)
	}
	if types["memory.pressure"] {
		t.Fatal("pressure event should be superseded by exhaustion")
	}
}

func TestMemoryConfidenceWithoutCommitAccounting(t *testing.T) {
	a := NewMemoryAnalyzer(&fakeSource{memory: probe.MemoryStats{UsedPercent: 50, AvailableBytes: 8 << 30}})
	sample := buildWith(t, a)

	assessment := a.Analyze(sample, nil)
	if assessment.Score.Confidence >= 0.9 {
		t.Fatalf("confidence = %v, want reduced without commit limit", assessment.Score.Confidence)
	}
}

func TestDiskQueueEvent(t *testing.T) {
	a := NewDiskAnalyzer(&fakeSource{disk: probe.DiskStats{
		QueueLength: 6,
		Instances: []models.DiskInstanceStats{
			{Device: "sda", QueueLength: 5},
			{Device: "sdb", QueueLength: 4},
		},
	}})
	sample := buildWith(t, a)

	assessment := a.Analyze(sample, nil)
	if len(assessment.NewEvents) != 1 {
		t.Fatalf("want exactly one disk event per tick, got %d", len(assessment.NewEvents))
	}
	if assessment.NewEvents[0].EventType != "disk.queue" {
		t.Fatalf("event type = %q", assessment.NewEvents[0].EventType)
	}
}

func TestDiskDegradedWithoutInstances(t *testing.T) {
	a := NewDiskAnalyzer(&fakeSource{err: errors.New("probe down")})
	sample := buildWith(t, a)

	assessment := a.Analyze(sample, nil)
	if assessment.Score.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0", assessment.Score.Confidence)
	}
}

func TestNetworkSaturationScore(t *testing.T) {
	a := NewNetworkAnalyzer(&fakeSource{network: probe.NetworkStats{RecvBytesPerSec: 90, SentBytesPerSec: 10}}, 100)
	sample := buildWith(t, a)

	assessment := a.Analyze(sample, nil)
	if assessment.Score.Score != 90 {
		t.Fatalf("score = %d, want 90 at 90%% of saturation", assessment.Score.Score)
	}
	if len(assessment.NewEvents) != 1 || assessment.NewEvents[0].EventType != "network.saturation" {
		t.Fatalf("saturation event missing: %+v", assessment.NewEvents)
	}

	// Zero saturation disables scoring entirely.
	quiet := NewNetworkAnalyzer(&fakeSource{}, 0)
	if got := quiet.Analyze(sample, nil); got.Score.Score != 0 {
		t.Fatalf("score = %d with saturation disabled", got.Score.Score)
	}
}

func TestProcessHangPressureFromPreviousSample(t *testing.T) {
	a := NewProcessAnalyzer(&fakeSource{}, 5)
	current := models.MonitorSample{HandleCount: 1000}

	prev := models.MonitorSample{
		HandleCount: 1000,
		HangingProcesses: []models.HangingProcessInfo{
			{PID: 1, Name: "a", HangSeconds: 2},
			{PID: 2, Name: "b", HangSeconds: 3},
		},
	}
	withHangs := a.Analyze(current, historyOf(models.MonitorSample{HandleCount: 1000}, prev))
	without := a.Analyze(current, historyOf(models.MonitorSample{HandleCount: 1000}))

	if withHangs.Score.Score <= without.Score.Score {
		t.Fatalf("hang pressure not reflected: with=%d without=%d", withHangs.Score.Score, without.Score.Score)
	}
}

func TestProcessHandleLeakEvent(t *testing.T) {
	a := NewProcessAnalyzer(&fakeSource{}, 5)

	history := make([]models.MonitorSample, 12)
	for i := range history {
		history[i] = models.MonitorSample{HandleCount: 1000}
	}
	assessment := a.Analyze(models.MonitorSample{HandleCount: 1500}, history)

	found := false
	for _, ev := range assessment.NewEvents {
		if ev.EventType == "process.handle_leak" {
			found = true
		}
	}
	if !found {
		t.Fatalf("handle leak event missing: %+v", assessment.NewEvents)
	}

	// Short history must not fire the leak event.
	assessment = a.Analyze(models.MonitorSample{HandleCount: 1500}, history[:4])
	for _, ev := range assessment.NewEvents {
		if ev.EventType == "process.handle_leak" {
			t.Fatal("leak event fired with insufficient history")
		}
	}
}
