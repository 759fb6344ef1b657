package analyzers

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/sentinelstack/sentinel-agent/internal/models"
	"github.com/sentinelstack/sentinel-agent/internal/probe"
)

// MemoryAnalyzer owns the memory fields of the sample.
type MemoryAnalyzer struct {
	source probe.MetricsSource
}

// NewMemoryAnalyzer creates the memory domain analyzer.
func NewMemoryAnalyzer(source probe.MetricsSource) *MemoryAnalyzer {
	return &MemoryAnalyzer{source: source}
}

func (a *MemoryAnalyzer) Domain() string { return "memory" }

func (a *MemoryAnalyzer) Collect(ctx context.Context, b *models.MonitorSampleBuilder) {
	stats, err := a.source.Memory(ctx)
	if err != nil {
		return
	}
	b.MemoryUsedPercent = stats.UsedPercent
	b.MemoryAvailableBytes = stats.AvailableBytes
	b.PageFaultRate = stats.PageFaultRate
	b.CommitBytes = stats.CommitBytes
	b.CommitLimitBytes = stats.CommitLimitBytes
	b.PoolBytes = stats.PoolBytes
}

// Analyze scores memory pressure from used percentage, commit charge and
// fault rate trend.
func (a *MemoryAnalyzer) Analyze(current models.MonitorSample, history []models.MonitorSample) models.HealthAssessment {
	if current.MemoryAvailableBytes == 0 && current.MemoryUsedPercent == 0 {
		return degraded(a.Domain(), "memory counters unavailable this tick")
	}

	commitRatio := 0.0
	if current.CommitLimitBytes > 0 {
		commitRatio = float64(current.CommitBytes) / float64(current.CommitLimitBytes)
	}

	score := int(current.MemoryUsedPercent*0.55 +
		minf(commitRatio*100, 100)*0.3 +
		minf(current.PageFaultRate/100, 100)*0.15)

	if mean, ok := historyMean(history, func(s models.MonitorSample) float64 { return s.PageFaultRate }); ok {
		score += trendBonus(current.PageFaultRate, mean)
	}
	score = models.ClampScore(score)

	confidence := 0.9
	if current.CommitLimitBytes == 0 {
		confidence = 0.7 // commit accounting missing, score leans on used%
	}

	assessment := models.HealthAssessment{
		Score: models.HealthScore{
			Domain:     a.Domain(),
			Score:      score,
			Confidence: confidence,
		},
	}

	if current.MemoryUsedPercent >= 95 {
		assessment.NewEvents = append(assessment.NewEvents, models.MonitorEvent{
			Timestamp: current.Timestamp,
			EventType: "memory.exhaustion",
			Description: fmt.Sprintf("Memory at %.1f%% used, %s available",
				current.MemoryUsedPercent, humanize.IBytes(current.MemoryAvailableBytes)),
			Severity: models.SeverityCritical,
		})
	} else if current.MemoryUsedPercent >= 85 {
		assessment.NewEvents = append(assessment.NewEvents, models.MonitorEvent{
			Timestamp: current.Timestamp,
			EventType: "memory.pressure",
			Description: fmt.Sprintf("Memory at %.1f%% used, %s available",
				current.MemoryUsedPercent, humanize.IBytes(current.MemoryAvailableBytes)),
			Severity: models.SeverityHigh,
		})
	}
	if commitRatio >= 0.9 {
		assessment.NewEvents = append(assessment.NewEvents, models.MonitorEvent{
			Timestamp: current.Timestamp,
			EventType: "memory.commit_limit",
			Description: fmt.Sprintf("Commit charge %s of %s limit",
				humanize.IBytes(current.CommitBytes), humanize.IBytes(current.CommitLimitBytes)),
			Severity: models.SeverityCritical,
		})
	}
	return assessment
}
