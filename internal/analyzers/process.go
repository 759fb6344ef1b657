package analyzers

import (
	"context"
	"fmt"

	"github.com/sentinelstack/sentinel-agent/internal/models"
	"github.com/sentinelstack/sentinel-agent/internal/probe"
)

// ProcessAnalyzer owns the process-domain fields: handle and thread totals
// plus the top-N consumer lists.
type ProcessAnalyzer struct {
	source probe.MetricsSource
	topN   int
}

// NewProcessAnalyzer creates the process domain analyzer keeping topN entries
// per consumer list.
func NewProcessAnalyzer(source probe.MetricsSource, topN int) *ProcessAnalyzer {
	if topN <= 0 {
		topN = 5
	}
	return &ProcessAnalyzer{source: source, topN: topN}
}

func (a *ProcessAnalyzer) Domain() string { return "process" }

func (a *ProcessAnalyzer) Collect(ctx context.Context, b *models.MonitorSampleBuilder) {
	stats, err := a.source.Processes(ctx, a.topN)
	if err != nil {
		return
	}
	b.HandleCount = stats.HandleCount
	b.ThreadCount = stats.ThreadCount
	b.TopByCPU = stats.TopByCPU
	b.TopByMemory = stats.TopByMemory
	b.TopByIO = stats.TopByIO
}

// Analyze scores the process domain from handle growth and hang pressure.
// Handle counts creeping well past the historical mean indicate a leak.
func (a *ProcessAnalyzer) Analyze(current models.MonitorSample, history []models.MonitorSample) models.HealthAssessment {
	if current.HandleCount == 0 && len(current.TopByCPU) == 0 {
		return degraded(a.Domain(), "process enumeration unavailable this tick")
	}

	score := 0
	if mean, ok := historyMean(history, func(s models.MonitorSample) float64 { return float64(s.HandleCount) }); ok && mean > 0 {
		growth := float64(current.HandleCount)/mean - 1
		if growth > 0 {
			score += int(minf(growth*400, 60))
		}
	}
	// Hang tracking runs after analysis within a tick, so hang pressure is
	// visible here through the previous sample only.
	if len(history) > 0 {
		score += len(history[len(history)-1].HangingProcesses) * 20
	}
	score = models.ClampScore(score)

	assessment := models.HealthAssessment{
		Score: models.HealthScore{
			Domain:     a.Domain(),
			Score:      score,
			Confidence: 0.8,
		},
	}

	if mean, ok := historyMean(history, func(s models.MonitorSample) float64 { return float64(s.HandleCount) }); ok &&
		mean > 0 && float64(current.HandleCount) > mean*1.25 && len(history) >= 10 {
		assessment.NewEvents = append(assessment.NewEvents, models.MonitorEvent{
			Timestamp: current.Timestamp,
			EventType: "process.handle_leak",
			Description: fmt.Sprintf("System handle count %d is %.0f%% above the recent mean",
				current.HandleCount, (float64(current.HandleCount)/mean-1)*100),
			Severity: models.SeverityWarning,
		})
	}
	return assessment
}
