// Package probe implements the OS-facing collaborators consumed by the
// health engine: counter sampling, top-N process enumeration, and per-thread
// introspection of individual processes.
package probe

import (
	"context"

	"github.com/sentinelstack/sentinel-agent/internal/models"
)

// CPUStats holds scheduler and processor counters for one tick.
type CPUStats struct {
	Percent              float64
	RunQueueLength       float64
	ContextSwitchRate    float64
	DPCTimePercent       float64
	InterruptTimePercent float64
}

// MemoryStats holds memory counters for one tick.
type MemoryStats struct {
	UsedPercent      float64
	AvailableBytes   uint64
	PageFaultRate    float64
	CommitBytes      uint64
	CommitLimitBytes uint64
	PoolBytes        uint64
}

// DiskStats holds aggregate and per-device disk counters for one tick.
type DiskStats struct {
	QueueLength float64
	Instances   []models.DiskInstanceStats
}

// NetworkStats holds throughput rates for one tick.
type NetworkStats struct {
	RecvBytesPerSec float64
	SentBytesPerSec float64
}

// ProcessStats holds process-domain counters and top-N consumer lists.
type ProcessStats struct {
	HandleCount int
	ThreadCount int
	TopByCPU    []models.ProcessUsage
	TopByMemory []models.ProcessUsage
	TopByIO     []models.ProcessUsage
}

// MetricsSource supplies per-domain counters. Implementations return partial
// results with zero-valued fields rather than failing a whole query; an error
// is returned only when nothing in the domain could be read.
type MetricsSource interface {
	CPU(ctx context.Context) (CPUStats, error)
	Memory(ctx context.Context) (MemoryStats, error)
	Disk(ctx context.Context) (DiskStats, error)
	Network(ctx context.Context) (NetworkStats, error)
	Processes(ctx context.Context, topN int) (ProcessStats, error)
}

// ProcessInspector answers responsiveness and thread-level questions about a
// single process.
type ProcessInspector interface {
	// Responsive reports whether the process is currently making progress.
	// A missing process returns an error; callers treat that as "gone",
	// not hanging.
	Responsive(ctx context.Context, pid int32) (bool, error)

	// Threads enumerates live threads with run state and wait reason.
	Threads(ctx context.Context, pid int32) ([]models.ThreadInfo, error)
}
