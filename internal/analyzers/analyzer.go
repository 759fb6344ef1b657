// Package analyzers contains the per-domain health analyzers. Each analyzer
// collects the builder fields it owns from the metrics source and scores its
// domain against the rolling sample history.
package analyzers

import (
	"context"

	"github.com/sentinelstack/sentinel-agent/internal/models"
)

// Analyzer is the capability interface implemented by every health domain.
//
// Collect populates only the fields owned by the domain; a failed probe
// leaves zero defaults and is reflected later as low confidence. Analyze is
// pure with respect to its inputs: the same sample and history always produce
// the same assessment, and it never panics outward.
type Analyzer interface {
	Domain() string
	Collect(ctx context.Context, b *models.MonitorSampleBuilder)
	Analyze(current models.MonitorSample, history []models.MonitorSample) models.HealthAssessment
}

// degraded builds the zero-confidence assessment used when a domain's
// collection failed entirely.
func degraded(domain, hint string) models.HealthAssessment {
	return models.HealthAssessment{
		Score: models.HealthScore{
			Domain:        domain,
			Score:         0,
			Confidence:    0,
			RootCauseHint: hint,
		},
	}
}

// historyMean averages one field across the retained history. Returns okable
// zero when the history is empty.
func historyMean(history []models.MonitorSample, field func(models.MonitorSample) float64) (float64, bool) {
	if len(history) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, s := range history {
		sum += field(s)
	}
	return sum / float64(len(history)), true
}

// trendBonus rewards scores for sustained deterioration: a current reading
// well above the historical mean adds up to 15 points.
func trendBonus(current, mean float64) int {
	if mean <= 0 {
		return 0
	}
	ratio := current / mean
	switch {
	case ratio >= 2.0:
		return 15
	case ratio >= 1.5:
		return 10
	case ratio >= 1.2:
		return 5
	}
	return 0
}

func severityForScore(score int) models.Severity {
	switch {
	case score > 75:
		return models.SeverityCritical
	case score > 50:
		return models.SeverityHigh
	case score > 25:
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}
