package models

import "time"

// ProcessUsage identifies one entry in a top-N consumer list.
type ProcessUsage struct {
	PID        int32
	Name       string
	CPUPercent float64
	MemoryRSS  uint64
	IOBytes    uint64
}

// DiskInstanceStats holds per-device counters for a single sampling tick.
type DiskInstanceStats struct {
	Device      string
	QueueLength float64
	ReadBytes   uint64
	WriteBytes  uint64
	BusyPercent float64
}

// HangingProcessInfo records a process observed unresponsive, with the
// accumulated hang duration in seconds.
type HangingProcessInfo struct {
	PID         int32
	Name        string
	HangSeconds float64
}

// MonitorSample is the immutable point-in-time snapshot produced once per
// tick. It is consumed by display and diff logic, appended to the engine
// history, and never mutated after Build.
type MonitorSample struct {
	Timestamp time.Time

	// CPU domain.
	CPUPercent           float64
	ProcessorQueueLength float64
	ContextSwitchRate    float64
	DPCTimePercent       float64
	InterruptTimePercent float64

	// Memory domain.
	MemoryUsedPercent    float64
	MemoryAvailableBytes uint64
	PageFaultRate        float64
	CommitBytes          uint64
	CommitLimitBytes     uint64
	PoolBytes            uint64

	// Disk domain.
	DiskQueueLength float64
	Disks           []DiskInstanceStats

	// Network domain.
	NetworkRecvBytesPerSec float64
	NetworkSentBytesPerSec float64

	// Process domain.
	HandleCount      int
	ThreadCount      int
	TopByCPU         []ProcessUsage
	TopByMemory      []ProcessUsage
	TopByIO          []ProcessUsage
	HangingProcesses []HangingProcessInfo

	// Derived composites, computed by the engine before the sample is exposed.
	MemoryPressureIndex int
	SystemLatencyScore  int

	// Diagnostics attached during the tick.
	Classifications []FreezeClassification
	FreezeReports   []FreezeReport
}

// MonitorSampleBuilder accumulates one tick's data before freezing it into a
// MonitorSample. Each sub-analyzer writes only the fields it owns; fields no
// analyzer touches keep their zero defaults. Construction is single-threaded
// and finalized exactly once per tick.
type MonitorSampleBuilder struct {
	CPUPercent           float64
	ProcessorQueueLength float64
	ContextSwitchRate    float64
	DPCTimePercent       float64
	InterruptTimePercent float64

	MemoryUsedPercent    float64
	MemoryAvailableBytes uint64
	PageFaultRate        float64
	CommitBytes          uint64
	CommitLimitBytes     uint64
	PoolBytes            uint64

	DiskQueueLength float64
	Disks           []DiskInstanceStats

	NetworkRecvBytesPerSec float64
	NetworkSentBytesPerSec float64

	HandleCount int
	ThreadCount int
	TopByCPU    []ProcessUsage
	TopByMemory []ProcessUsage
	TopByIO     []ProcessUsage
}

// NewMonitorSampleBuilder returns an empty builder for one tick.
func NewMonitorSampleBuilder() *MonitorSampleBuilder {
	return &MonitorSampleBuilder{}
}

// Build freezes the accumulated fields into an immutable MonitorSample
// stamped with the supplied tick time. Slices are copied so later builder
// reuse cannot alias the frozen sample.
func (b *MonitorSampleBuilder) Build(ts time.Time) MonitorSample {
	return MonitorSample{
		Timestamp:              ts,
		CPUPercent:             b.CPUPercent,
		ProcessorQueueLength:   b.ProcessorQueueLength,
		ContextSwitchRate:      b.ContextSwitchRate,
		DPCTimePercent:         b.DPCTimePercent,
		InterruptTimePercent:   b.InterruptTimePercent,
		MemoryUsedPercent:      b.MemoryUsedPercent,
		MemoryAvailableBytes:   b.MemoryAvailableBytes,
		PageFaultRate:          b.PageFaultRate,
		CommitBytes:            b.CommitBytes,
		CommitLimitBytes:       b.CommitLimitBytes,
		PoolBytes:              b.PoolBytes,
		DiskQueueLength:        b.DiskQueueLength,
		Disks:                  append([]DiskInstanceStats(nil), b.Disks...),
		NetworkRecvBytesPerSec: b.NetworkRecvBytesPerSec,
		NetworkSentBytesPerSec: b.NetworkSentBytesPerSec,
		HandleCount:            b.HandleCount,
		ThreadCount:            b.ThreadCount,
		TopByCPU:               append([]ProcessUsage(nil), b.TopByCPU...),
		TopByMemory:            append([]ProcessUsage(nil), b.TopByMemory...),
		TopByIO:                append([]ProcessUsage(nil), b.TopByIO...),
	}
}
