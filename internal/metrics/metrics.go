package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels fully healthy ticks and investigations.
	OutcomeSuccess = "success"
	// OutcomeDegraded labels ticks with zero-confidence domains and
	// investigations that yielded no report.
	OutcomeDegraded = "degraded"
	// OutcomeError labels dump captures that failed outright.
	OutcomeError = "error"
)

var (
	ticksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel_agent",
			Name:      "ticks_total",
			Help:      "Total number of sampling ticks, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	tickDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sentinel_agent",
			Name:      "tick_seconds",
			Help:      "Sampling tick latency in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3},
		},
	)

	investigationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel_agent",
			Name:      "investigations_total",
			Help:      "Total number of deep freeze investigations, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	investigationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sentinel_agent",
			Name:      "investigation_seconds",
			Help:      "Deep investigation latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.2, 0.3, 0.5, 1},
		},
	)

	dumpCapturesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel_agent",
			Name:      "dump_captures_total",
			Help:      "Total number of dump capture attempts, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	hangingProcesses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sentinel_agent",
			Name:      "hanging_processes",
			Help:      "Number of processes currently tracked as hanging.",
		},
	)
)

// Register attaches sentinel-agent collectors to the supplied Prometheus
// registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		ticksTotal,
		tickDurationSeconds,
		investigationsTotal,
		investigationDurationSeconds,
		dumpCapturesTotal,
		hangingProcesses,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveTick records one sampling tick.
func ObserveTick(duration time.Duration, outcome string) {
	ticksTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	tickDurationSeconds.Observe(duration.Seconds())
}

// ObserveInvestigation records one deep investigation.
func ObserveInvestigation(duration time.Duration, outcome string) {
	investigationsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	investigationDurationSeconds.Observe(duration.Seconds())
}

// ObserveDumpCapture records one dump capture attempt.
func ObserveDumpCapture(outcome string) {
	dumpCapturesTotal.WithLabelValues(outcome).Inc()
}

// SetHangingProcesses publishes the current hang count.
func SetHangingProcesses(n int) {
	hangingProcesses.Set(float64(n))
}
