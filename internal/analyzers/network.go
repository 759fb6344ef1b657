package analyzers

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/sentinelstack/sentinel-agent/internal/models"
	"github.com/sentinelstack/sentinel-agent/internal/probe"
)

// NetworkAnalyzer owns the network throughput fields of the sample.
type NetworkAnalyzer struct {
	source probe.MetricsSource

	// saturationBytesPerSec is the throughput treated as full utilisation
	// when scoring. Zero disables saturation scoring.
	saturationBytesPerSec float64
}

// NewNetworkAnalyzer creates the network domain analyzer. saturation is the
// per-direction byte rate considered 100% utilisation.
func NewNetworkAnalyzer(source probe.MetricsSource, saturation float64) *NetworkAnalyzer {
	return &NetworkAnalyzer{source: source, saturationBytesPerSec: saturation}
}

func (a *NetworkAnalyzer) Domain() string { return "network" }

func (a *NetworkAnalyzer) Collect(ctx context.Context, b *models.MonitorSampleBuilder) {
	stats, err := a.source.Network(ctx)
	if err != nil {
		return
	}
	b.NetworkRecvBytesPerSec = stats.RecvBytesPerSec
	b.NetworkSentBytesPerSec = stats.SentBytesPerSec
}

// Analyze scores link utilisation against the configured saturation rate.
// Throughput alone is weak evidence of trouble, so confidence stays moderate.
func (a *NetworkAnalyzer) Analyze(current models.MonitorSample, history []models.MonitorSample) models.HealthAssessment {
	peak := current.NetworkRecvBytesPerSec
	if current.NetworkSentBytesPerSec > peak {
		peak = current.NetworkSentBytesPerSec
	}

	score := 0
	if a.saturationBytesPerSec > 0 {
		score = models.ClampScore(int(peak / a.saturationBytesPerSec * 100))
	}

	assessment := models.HealthAssessment{
		Score: models.HealthScore{
			Domain:     a.Domain(),
			Score:      score,
			Confidence: 0.5,
		},
	}

	if score > 75 {
		assessment.NewEvents = append(assessment.NewEvents, models.MonitorEvent{
			Timestamp: current.Timestamp,
			EventType: "network.saturation",
			Description: fmt.Sprintf("Network throughput %s/s approaching configured capacity",
				humanize.IBytes(uint64(peak))),
			Severity: models.SeverityHigh,
		})
	}
	return assessment
}
