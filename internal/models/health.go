package models

import "time"

// Severity captures impact levels for monitor events.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// HealthScore rates one domain's current condition. Score is clamped to
// [0,100] and Confidence to [0,1] by the producing analyzer.
type HealthScore struct {
	Domain        string
	Score         int
	Confidence    float64
	RootCauseHint string
}

// MonitorEvent is an append-only record of a notable condition. EventType is
// the domain identity used by consumers for deduplication.
type MonitorEvent struct {
	Timestamp   time.Time
	EventType   string
	Description string
	Severity    Severity
	Tip         string
}

// HealthAssessment is a sub-analyzer's full per-tick output.
type HealthAssessment struct {
	Score     HealthScore
	NewEvents []MonitorEvent
}

// ClampScore bounds a raw score to the [0,100] contract.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ClampConfidence bounds a raw confidence to [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
