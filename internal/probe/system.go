package probe

import (
	"context"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	gopsnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/sentinelstack/sentinel-agent/internal/models"
)

// SystemSource is the gopsutil-backed MetricsSource. Rate fields are computed
// from deltas against the previous call, so the first tick reports zero rates.
type SystemSource struct {
	mu sync.Mutex

	// Each rate keeps its own baseline timestamp so a method's delta always
	// spans its own previous call, not whichever sampler ran last.
	lastCPUTotal  float64
	lastCPUIdle   float64
	lastCPUIRQ    float64
	lastCPUAt     time.Time
	lastCtxt      uint64
	lastPageFault uint64
	lastFaultAt   time.Time
	lastNetRecv   uint64
	lastNetSent   uint64
	lastNetAt     time.Time
}

// NewSystemSource creates a SystemSource with empty rate baselines.
func NewSystemSource() *SystemSource {
	return &SystemSource{}
}

// CPU samples processor utilisation, run queue depth, context-switch rate and
// interrupt servicing time. Fields that cannot be read stay zero.
func (s *SystemSource) CPU(ctx context.Context) (CPUStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats CPUStats
	now := time.Now()
	elapsed := now.Sub(s.lastCPUAt).Seconds()

	times, err := cpu.TimesWithContext(ctx, false)
	if err == nil && len(times) > 0 {
		t := times[0]
		total := t.User + t.Nice + t.System + t.Idle + t.Iowait + t.Irq + t.Softirq + t.Steal
		idle := t.Idle + t.Iowait
		irq := t.Irq + t.Softirq

		if s.lastCPUTotal > 0 {
			totalDelta := total - s.lastCPUTotal
			if totalDelta > 0 {
				stats.Percent = (1 - (idle-s.lastCPUIdle)/totalDelta) * 100
				irqShare := (irq - s.lastCPUIRQ) / totalDelta * 100
				// Softirq time is the closest analogue of deferred
				// procedure call time on this platform.
				stats.DPCTimePercent = irqShare
				stats.InterruptTimePercent = irqShare
			}
		}
		s.lastCPUTotal = total
		s.lastCPUIdle = idle
		s.lastCPUIRQ = irq
	}

	misc, miscErr := load.MiscWithContext(ctx)
	if miscErr == nil {
		stats.RunQueueLength = float64(misc.ProcsRunning)
		if s.lastCtxt > 0 && elapsed > 0 && uint64(misc.Ctxt) > s.lastCtxt {
			stats.ContextSwitchRate = float64(uint64(misc.Ctxt)-s.lastCtxt) / elapsed
		}
		s.lastCtxt = uint64(misc.Ctxt)
	}
	s.lastCPUAt = now

	if err != nil && miscErr != nil {
		return stats, err
	}
	return stats, nil
}

// Memory samples memory pressure counters. Commit and pool figures come from
// the platform's committed-address-space and slab accounting.
func (s *SystemSource) Memory(ctx context.Context) (MemoryStats, error) {
	var stats MemoryStats

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err == nil {
		stats.UsedPercent = vm.UsedPercent
		stats.AvailableBytes = vm.Available
		stats.CommitBytes = vm.CommittedAS
		stats.CommitLimitBytes = vm.CommitLimit
		stats.PoolBytes = vm.Slab
	}

	s.mu.Lock()
	faults, ok := readPageFaults()
	if ok {
		now := time.Now()
		elapsed := now.Sub(s.lastFaultAt).Seconds()
		if s.lastPageFault > 0 && faults > s.lastPageFault && elapsed > 0 {
			stats.PageFaultRate = float64(faults-s.lastPageFault) / elapsed
		}
		s.lastPageFault = faults
		s.lastFaultAt = now
	}
	s.mu.Unlock()

	return stats, err
}

// Disk samples per-device IO counters and derives the aggregate queue length
// from in-flight request counts.
func (s *SystemSource) Disk(ctx context.Context) (DiskStats, error) {
	var stats DiskStats

	counters, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return stats, err
	}

	devices := make([]string, 0, len(counters))
	for dev := range counters {
		devices = append(devices, dev)
	}
	sort.Strings(devices)

	for _, dev := range devices {
		c := counters[dev]
		inst := models.DiskInstanceStats{
			Device:      dev,
			QueueLength: float64(c.IopsInProgress),
			ReadBytes:   c.ReadBytes,
			WriteBytes:  c.WriteBytes,
		}
		stats.Instances = append(stats.Instances, inst)
		stats.QueueLength += inst.QueueLength
	}
	return stats, nil
}

// Network samples aggregate throughput across all interfaces.
func (s *SystemSource) Network(ctx context.Context) (NetworkStats, error) {
	var stats NetworkStats

	counters, err := gopsnet.IOCountersWithContext(ctx, false)
	if err != nil || len(counters) == 0 {
		return stats, err
	}
	c := counters[0]

	s.mu.Lock()
	now := time.Now()
	elapsed := now.Sub(s.lastNetAt).Seconds()
	if elapsed > 0 && s.lastNetRecv > 0 {
		if c.BytesRecv > s.lastNetRecv {
			stats.RecvBytesPerSec = float64(c.BytesRecv-s.lastNetRecv) / elapsed
		}
		if c.BytesSent > s.lastNetSent {
			stats.SentBytesPerSec = float64(c.BytesSent-s.lastNetSent) / elapsed
		}
	}
	s.lastNetRecv = c.BytesRecv
	s.lastNetSent = c.BytesSent
	s.lastNetAt = now
	s.mu.Unlock()

	return stats, nil
}

// Processes enumerates running processes and keeps the top-N consumers per
// resource. Individual processes that vanish or deny access mid-enumeration
// are skipped.
func (s *SystemSource) Processes(ctx context.Context, topN int) (ProcessStats, error) {
	if topN <= 0 {
		topN = 5
	}
	var stats ProcessStats

	stats.HandleCount = readSystemHandles()

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return stats, err
	}

	usage := make([]models.ProcessUsage, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		u := models.ProcessUsage{PID: p.Pid, Name: name}
		if pct, err := p.CPUPercentWithContext(ctx); err == nil {
			u.CPUPercent = pct
		}
		if mi, err := p.MemoryInfoWithContext(ctx); err == nil && mi != nil {
			u.MemoryRSS = mi.RSS
		}
		if io, err := p.IOCountersWithContext(ctx); err == nil && io != nil {
			u.IOBytes = io.ReadBytes + io.WriteBytes
		}
		if threads, err := p.NumThreadsWithContext(ctx); err == nil {
			stats.ThreadCount += int(threads)
		}
		usage = append(usage, u)
	}

	stats.TopByCPU = topBy(usage, topN, func(a, b models.ProcessUsage) bool { return a.CPUPercent > b.CPUPercent })
	stats.TopByMemory = topBy(usage, topN, func(a, b models.ProcessUsage) bool { return a.MemoryRSS > b.MemoryRSS })
	stats.TopByIO = topBy(usage, topN, func(a, b models.ProcessUsage) bool { return a.IOBytes > b.IOBytes })
	return stats, nil
}

func topBy(usage []models.ProcessUsage, n int, less func(a, b models.ProcessUsage) bool) []models.ProcessUsage {
	sorted := append([]models.ProcessUsage(nil), usage...)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// readPageFaults returns the cumulative system page fault count.
func readPageFaults() (uint64, bool) {
	data, err := os.ReadFile("/proc/vmstat")
	if err != nil {
		return 0, false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if rest, ok := strings.CutPrefix(line, "pgfault "); ok {
			v, err := strconv.ParseUint(strings.TrimSpace(rest), 10, 64)
			if err != nil {
				return 0, false
			}
			return v, true
		}
	}
	return 0, false
}

// readSystemHandles returns the system-wide allocated file handle count.
func readSystemHandles() int {
	data, err := os.ReadFile("/proc/sys/fs/file-nr")
	if err != nil {
		return 0
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0
	}
	v, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return v
}
