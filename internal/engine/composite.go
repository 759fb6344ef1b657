package engine

import "github.com/sentinelstack/sentinel-agent/internal/models"

// Band labels shared by every consumer of the composite scores.
const (
	BandCritical = "Critical"
	BandHigh     = "High"
	BandPressure = "Pressure"
	BandLatency  = "Some latency"
	BandHealthy  = "Healthy"
)

// memoryPressureIndex combines the available-memory ratio, page-fault rate
// and commit-to-limit ratio into a single 0-100 index.
func memoryPressureIndex(s models.MonitorSample) int {
	availPart := 0.0
	if s.MemoryUsedPercent > 0 || s.MemoryAvailableBytes > 0 {
		availPart = s.MemoryUsedPercent / 100
	}

	commitPart := 0.0
	if s.CommitLimitBytes > 0 {
		commitPart = float64(s.CommitBytes) / float64(s.CommitLimitBytes)
	}

	// 2000 faults/s is treated as fully saturated fault pressure.
	faultPart := s.PageFaultRate / 2000
	if faultPart > 1 {
		faultPart = 1
	}

	score := availPart*50 + commitPart*30 + faultPart*20
	return models.ClampScore(int(score))
}

// systemLatencyScore combines run queue depth, DPC/interrupt time and
// context-switch rate into a single 0-100 score.
func systemLatencyScore(s models.MonitorSample) int {
	// A run queue of 10 is treated as fully saturated.
	queuePart := s.ProcessorQueueLength / 10
	if queuePart > 1 {
		queuePart = 1
	}

	// 25% of CPU spent in interrupt servicing is fully saturated.
	dpcPart := s.DPCTimePercent / 25
	if dpcPart > 1 {
		dpcPart = 1
	}

	// 100k context switches per second is fully saturated.
	ctxPart := s.ContextSwitchRate / 100000
	if ctxPart > 1 {
		ctxPart = 1
	}

	score := queuePart*45 + dpcPart*30 + ctxPart*25
	return models.ClampScore(int(score))
}

// PressureBand labels a memory-pressure index.
func PressureBand(score int) string {
	switch {
	case score > 75:
		return BandCritical
	case score > 50:
		return BandHigh
	case score > 25:
		return BandPressure
	default:
		return BandHealthy
	}
}

// LatencyBand labels a system-latency score.
func LatencyBand(score int) string {
	switch {
	case score > 75:
		return BandCritical
	case score > 50:
		return BandHigh
	case score > 25:
		return BandLatency
	default:
		return BandHealthy
	}
}
