package analyzers

import (
	"context"
	"fmt"

	"github.com/sentinelstack/sentinel-agent/internal/models"
	"github.com/sentinelstack/sentinel-agent/internal/probe"
)

// DiskAnalyzer owns the disk fields of the sample.
type DiskAnalyzer struct {
	source probe.MetricsSource
}

// NewDiskAnalyzer creates the disk domain analyzer.
func NewDiskAnalyzer(source probe.MetricsSource) *DiskAnalyzer {
	return &DiskAnalyzer{source: source}
}

func (a *DiskAnalyzer) Domain() string { return "disk" }

func (a *DiskAnalyzer) Collect(ctx context.Context, b *models.MonitorSampleBuilder) {
	stats, err := a.source.Disk(ctx)
	if err != nil {
		return
	}
	b.DiskQueueLength = stats.QueueLength
	b.Disks = stats.Instances
}

// Analyze scores storage pressure from aggregate queue depth, with a trend
// bonus when queues have been growing across the history window.
func (a *DiskAnalyzer) Analyze(current models.MonitorSample, history []models.MonitorSample) models.HealthAssessment {
	if len(current.Disks) == 0 {
		return degraded(a.Domain(), "disk counters unavailable this tick")
	}

	score := int(minf(current.DiskQueueLength*12, 100))
	if mean, ok := historyMean(history, func(s models.MonitorSample) float64 { return s.DiskQueueLength }); ok {
		score += trendBonus(current.DiskQueueLength, mean)
	}
	score = models.ClampScore(score)

	assessment := models.HealthAssessment{
		Score: models.HealthScore{
			Domain:     a.Domain(),
			Score:      score,
			Confidence: 0.85,
		},
	}

	for _, inst := range current.Disks {
		if inst.QueueLength >= 4 {
			assessment.NewEvents = append(assessment.NewEvents, models.MonitorEvent{
				Timestamp:   current.Timestamp,
				EventType:   "disk.queue",
				Description: fmt.Sprintf("Device %s has %.0f requests in flight", inst.Device, inst.QueueLength),
				Severity:    severityForScore(score),
			})
			break // one queue event per tick is enough for consumers
		}
	}
	return assessment
}
