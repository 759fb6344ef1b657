package analyzers

import (
	"context"
	"fmt"

	"github.com/sentinelstack/sentinel-agent/internal/models"
	"github.com/sentinelstack/sentinel-agent/internal/probe"
)

// CPUAnalyzer owns the processor fields of the sample.
type CPUAnalyzer struct {
	source probe.MetricsSource
}

// NewCPUAnalyzer creates the CPU domain analyzer.
func NewCPUAnalyzer(source probe.MetricsSource) *CPUAnalyzer {
	return &CPUAnalyzer{source: source}
}

func (a *CPUAnalyzer) Domain() string { return "cpu" }

// Collect fills the CPU fields. On probe failure the fields stay zero.
func (a *CPUAnalyzer) Collect(ctx context.Context, b *models.MonitorSampleBuilder) {
	stats, err := a.source.CPU(ctx)
	if err != nil {
		return
	}
	b.CPUPercent = stats.Percent
	b.ProcessorQueueLength = stats.RunQueueLength
	b.ContextSwitchRate = stats.ContextSwitchRate
	b.DPCTimePercent = stats.DPCTimePercent
	b.InterruptTimePercent = stats.InterruptTimePercent
}

// Analyze scores processor pressure from utilisation, run queue depth and
// interrupt servicing time, with a trend bonus against history.
func (a *CPUAnalyzer) Analyze(current models.MonitorSample, history []models.MonitorSample) models.HealthAssessment {
	if current.CPUPercent == 0 && current.ProcessorQueueLength == 0 && current.ContextSwitchRate == 0 {
		return degraded(a.Domain(), "cpu counters unavailable this tick")
	}

	score := int(current.CPUPercent*0.6 +
		minf(current.ProcessorQueueLength*5, 100)*0.2 +
		minf(current.DPCTimePercent*4, 100)*0.2)

	if mean, ok := historyMean(history, func(s models.MonitorSample) float64 { return s.CPUPercent }); ok {
		score += trendBonus(current.CPUPercent, mean)
	}
	score = models.ClampScore(score)

	confidence := 0.9
	if len(history) < 3 {
		confidence = 0.6 // not enough history for a stable trend
	}

	assessment := models.HealthAssessment{
		Score: models.HealthScore{
			Domain:     a.Domain(),
			Score:      score,
			Confidence: confidence,
		},
	}

	if current.CPUPercent >= 90 {
		assessment.NewEvents = append(assessment.NewEvents, models.MonitorEvent{
			Timestamp:   current.Timestamp,
			EventType:   "cpu.saturation",
			Description: fmt.Sprintf("CPU utilisation at %.1f%% with run queue %.0f", current.CPUPercent, current.ProcessorQueueLength),
			Severity:    models.SeverityCritical,
		})
	} else if current.ProcessorQueueLength >= 8 {
		assessment.NewEvents = append(assessment.NewEvents, models.MonitorEvent{
			Timestamp:   current.Timestamp,
			EventType:   "cpu.runqueue",
			Description: fmt.Sprintf("Processor queue length %.0f exceeds healthy bounds", current.ProcessorQueueLength),
			Severity:    severityForScore(score),
		})
	}
	if current.DPCTimePercent >= 15 {
		assessment.NewEvents = append(assessment.NewEvents, models.MonitorEvent{
			Timestamp:   current.Timestamp,
			EventType:   "cpu.interrupt_time",
			Description: fmt.Sprintf("Interrupt/DPC time at %.1f%% of CPU", current.DPCTimePercent),
			Severity:    models.SeverityHigh,
		})
	}
	return assessment
}

func minf(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}
