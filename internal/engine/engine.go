// Package engine orchestrates the per-tick health pipeline: collection,
// analysis, composite scoring, hang detection and freeze diagnostics.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sentinelstack/sentinel-agent/internal/analyzers"
	"github.com/sentinelstack/sentinel-agent/internal/metrics"
	"github.com/sentinelstack/sentinel-agent/internal/models"
	"github.com/sentinelstack/sentinel-agent/internal/probe"
	"github.com/sentinelstack/sentinel-agent/internal/utils"
)

const (
	defaultHistoryCapacity = 60
	maxRetainedEvents      = 256
	maxRetainedReports     = 32
)

// Settings bounds the engine's history and hang thresholds.
type Settings struct {
	// HistoryCapacity is the sliding-window sample count (default 60).
	HistoryCapacity int
	// LivenessThreshold is how long a process may be unresponsive before it
	// counts as hanging (default 1s).
	LivenessThreshold time.Duration
	// DeepThreshold is the hang duration that triggers deep investigation
	// (default 5s).
	DeepThreshold time.Duration
}

// Engine owns the sample history and runs the full assessment sequence once
// per tick. It is the sole writer of history; observers read copies.
type Engine struct {
	logger       *slog.Logger
	analyzers    []analyzers.Analyzer
	classifier   *Classifier
	investigator *Investigator
	tips         *TipEngine
	hangs        *hangTracker

	historyCap    int
	deepThreshold time.Duration
	tickLatency   *utils.DurationWindow

	mu      sync.RWMutex
	history []models.MonitorSample
	scores  []models.HealthScore
	events  []models.MonitorEvent
	reports []models.FreezeReport
	ticks   int
}

// NewEngine constructs the health engine with a fixed analyzer registration
// list. investigator and tips may be nil; classification is always on.
func NewEngine(
	logger *slog.Logger,
	registered []analyzers.Analyzer,
	inspector probe.ProcessInspector,
	investigator *Investigator,
	tips *TipEngine,
	settings Settings,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.HistoryCapacity <= 0 {
		settings.HistoryCapacity = defaultHistoryCapacity
	}
	if settings.DeepThreshold <= 0 {
		settings.DeepThreshold = 5 * time.Second
	}
	return &Engine{
		logger:        logger,
		analyzers:     registered,
		classifier:    NewClassifier(),
		investigator:  investigator,
		tips:          tips,
		hangs:         newHangTracker(inspector, settings.LivenessThreshold),
		historyCap:    settings.HistoryCapacity,
		deepThreshold: settings.DeepThreshold,
		tickLatency:   utils.NewDurationWindow(512),
	}
}

// Tick runs one full assessment sequence and returns the finished sample.
// A failing analyzer contributes a zero-confidence assessment and the tick
// proceeds; a complete sample is always produced.
func (e *Engine) Tick(ctx context.Context) models.MonitorSample {
	started := time.Now()
	outcome := metrics.OutcomeSuccess

	builder := models.NewMonitorSampleBuilder()
	for _, a := range e.analyzers {
		e.safeCollect(ctx, a, builder)
	}
	sample := builder.Build(started)

	history := e.History()
	scores := make([]models.HealthScore, 0, len(e.analyzers))
	var newEvents []models.MonitorEvent
	for _, a := range e.analyzers {
		assessment := e.safeAnalyze(a, sample, history)
		if assessment.Score.Confidence == 0 {
			outcome = metrics.OutcomeDegraded
		}
		scores = append(scores, assessment.Score)
		newEvents = append(newEvents, assessment.NewEvents...)
	}

	sample.MemoryPressureIndex = memoryPressureIndex(sample)
	sample.SystemLatencyScore = systemLatencyScore(sample)

	newEvents = append(newEvents, e.trackHangs(ctx, started, &sample)...)

	for i := range newEvents {
		if newEvents[i].Tip == "" {
			newEvents[i].Tip = e.tips.Resolve(newEvents[i])
		}
	}

	e.commit(sample, scores, newEvents)

	elapsed := time.Since(started)
	e.tickLatency.Observe(elapsed)
	metrics.ObserveTick(elapsed, outcome)
	if count := e.tickLatency.Count(); count >= 20 && count%20 == 0 {
		e.logger.Info("tick latency", slog.Duration("p95", e.tickLatency.Percentile(95)), slog.Int("samples", count))
	}
	return sample
}

// trackHangs updates responsiveness tracking, classifies every hang and runs
// deep investigation for hangs past the threshold. The sample is still owned
// exclusively by this tick; it becomes immutable when committed.
func (e *Engine) trackHangs(ctx context.Context, now time.Time, sample *models.MonitorSample) []models.MonitorEvent {
	candidates := hangCandidates(*sample)
	sample.HangingProcesses = e.hangs.update(ctx, now, candidates)
	metrics.SetHangingProcesses(len(sample.HangingProcesses))

	var events []models.MonitorEvent
	for _, hang := range sample.HangingProcesses {
		cls := e.classifier.Classify(hang.Name, *sample)
		sample.Classifications = append(sample.Classifications, cls)

		events = append(events, models.MonitorEvent{
			Timestamp: now,
			EventType: "process.hang",
			Description: fmt.Sprintf("Process %s (pid %d) unresponsive for %.1fs: %s",
				hang.Name, hang.PID, hang.HangSeconds, cls.LikelyCause),
			Severity: models.SeverityHigh,
		})

		if hang.HangSeconds < e.deepThreshold.Seconds() || e.investigator == nil {
			continue
		}

		freezeDuration := time.Duration(hang.HangSeconds * float64(time.Second))
		invStart := time.Now()
		report := e.investigator.Investigate(ctx, hang.Name, hang.PID, freezeDuration, *sample)
		if report == nil {
			metrics.ObserveInvestigation(time.Since(invStart), metrics.OutcomeDegraded)
			e.logger.Debug("investigation yielded no report", slog.String("process", hang.Name))
			continue
		}
		metrics.ObserveInvestigation(time.Since(invStart), metrics.OutcomeSuccess)
		if report.MiniDumpPath != "" {
			metrics.ObserveDumpCapture(metrics.OutcomeSuccess)
		}
		sample.FreezeReports = append(sample.FreezeReports, *report)
		e.logger.Warn("freeze investigated",
			slog.String("process", hang.Name),
			slog.Int("pid", int(hang.PID)),
			slog.String("root_cause", report.LikelyRootCause),
			slog.String("dominant_wait", report.DominantWaitReason),
			slog.String("dump", report.MiniDumpPath))
	}
	return events
}

func (e *Engine) safeCollect(ctx context.Context, a analyzers.Analyzer, b *models.MonitorSampleBuilder) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("collect panicked", slog.String("domain", a.Domain()), slog.Any("panic", r))
		}
	}()
	a.Collect(ctx, b)
}

func (e *Engine) safeAnalyze(a analyzers.Analyzer, sample models.MonitorSample, history []models.MonitorSample) models.HealthAssessment {
	var assessment models.HealthAssessment
	func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Warn("analyze panicked", slog.String("domain", a.Domain()), slog.Any("panic", r))
				assessment = models.HealthAssessment{Score: models.HealthScore{
					Domain:        a.Domain(),
					Confidence:    0,
					RootCauseHint: fmt.Sprintf("analyzer failure: %v", r),
				}}
			}
		}()
		assessment = a.Analyze(sample, history)
	}()
	assessment.Score.Score = models.ClampScore(assessment.Score.Score)
	assessment.Score.Confidence = models.ClampConfidence(assessment.Score.Confidence)
	return assessment
}

// commit appends the finished sample to history and publishes the tick's
// scores, events and reports to observers.
func (e *Engine) commit(sample models.MonitorSample, scores []models.HealthScore, events []models.MonitorEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = append(e.history, sample)
	if len(e.history) > e.historyCap {
		e.history = e.history[len(e.history)-e.historyCap:]
	}
	e.scores = scores
	e.events = append(e.events, events...)
	if len(e.events) > maxRetainedEvents {
		e.events = e.events[len(e.events)-maxRetainedEvents:]
	}
	for _, r := range sample.FreezeReports {
		e.reports = append(e.reports, r)
	}
	if len(e.reports) > maxRetainedReports {
		e.reports = e.reports[len(e.reports)-maxRetainedReports:]
	}
	e.ticks++
}

// Latest returns the most recent sample, if any tick has completed.
func (e *Engine) Latest() (models.MonitorSample, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.history) == 0 {
		return models.MonitorSample{}, false
	}
	return e.history[len(e.history)-1], true
}

// History returns a copy of the retained samples, oldest first.
func (e *Engine) History() []models.MonitorSample {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.MonitorSample(nil), e.history...)
}

// Scores returns the per-domain scores from the most recent tick.
func (e *Engine) Scores() []models.HealthScore {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.HealthScore(nil), e.scores...)
}

// RecentEvents returns the retained monitor events, oldest first.
func (e *Engine) RecentEvents() []models.MonitorEvent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.MonitorEvent(nil), e.events...)
}

// RecentReports returns the retained freeze reports, oldest first.
func (e *Engine) RecentReports() []models.FreezeReport {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.FreezeReport(nil), e.reports...)
}

// Ticks returns the number of completed ticks.
func (e *Engine) Ticks() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ticks
}

// hangCandidates collects the distinct processes worth responsiveness checks:
// everything appearing in a top-N consumer list this tick.
func hangCandidates(sample models.MonitorSample) []models.ProcessUsage {
	var out []models.ProcessUsage
	seen := make(map[int32]struct{})
	for _, list := range [][]models.ProcessUsage{sample.TopByCPU, sample.TopByMemory, sample.TopByIO} {
		for _, p := range list {
			if _, ok := seen[p.PID]; ok {
				continue
			}
			seen[p.PID] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
