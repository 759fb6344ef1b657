package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sentinelstack/sentinel-agent/internal/dump"
	"github.com/sentinelstack/sentinel-agent/internal/models"
	"github.com/sentinelstack/sentinel-agent/internal/probe"
)

// Root-cause labels resolved by the ordered rule table. First matching rule
// wins; RootCauseFallback is used when nothing matches.
const (
	RootCauseLockContention  = "Lock contention or synchronization block"
	RootCausePagingPressure  = "Memory or disk paging pressure"
	RootCauseKernelWait      = "Deadlock or kernel object wait"
	RootCauseSchedulerThrash = "Scheduler thrashing"
	RootCauseDriverLatency   = "Driver or interrupt latency issue"
	RootCauseUserOrIO        = "Waiting for user input or I/O completion"
	RootCauseAllocPressure   = "Memory allocation pressure"
	RootCauseVirtualMemory   = "Virtual memory management delay"
	RootCausePoolStarvation  = "Thread pool starvation or async deadlock"
	RootCauseFallback        = "Unclassified wait pattern (no dominant signal)"
)

// Investigator performs the deep, opt-in analysis of a hanging process. It is
// stateless and invoked on demand; every failure path converts to a nil
// report rather than an error.
type Investigator struct {
	logger    *slog.Logger
	inspector probe.ProcessInspector
	dumper    *dump.Capture

	// budget bounds one investigation call.
	budget time.Duration
	// dumpThreshold is the freeze duration beyond which a dump is captured.
	dumpThreshold time.Duration
}

// NewInvestigator constructs an Investigator. dumper may be nil to disable
// capture entirely.
func NewInvestigator(logger *slog.Logger, inspector probe.ProcessInspector, dumper *dump.Capture, budget, dumpThreshold time.Duration) *Investigator {
	if logger == nil {
		logger = slog.Default()
	}
	if budget <= 0 {
		budget = 200 * time.Millisecond
	}
	if dumpThreshold <= 0 {
		dumpThreshold = 15 * time.Second
	}
	return &Investigator{
		logger:        logger,
		inspector:     inspector,
		dumper:        dumper,
		budget:        budget,
		dumpThreshold: dumpThreshold,
	}
}

// Investigate enumerates the target's threads, tabulates wait reasons,
// applies the root-cause rule table and, for freezes past the dump threshold,
// requests a capture. It returns nil on any failure, including the target
// exiting mid-call; a nil report is a valid non-error outcome for callers.
func (inv *Investigator) Investigate(ctx context.Context, processName string, pid int32, freezeDuration time.Duration, sample models.MonitorSample) (report *models.FreezeReport) {
	defer func() {
		if r := recover(); r != nil {
			inv.logger.Warn("investigation aborted", slog.String("process", processName), slog.Any("panic", r))
			report = nil
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, inv.budget)
	defer cancel()

	threads, err := inv.inspector.Threads(ctx, pid)
	if err != nil || len(threads) == 0 {
		inv.logger.Debug("thread enumeration failed", slog.String("process", processName), slog.Any("error", err))
		return nil
	}

	counts := make(map[string]int)
	running := 0
	waiting := 0
	for _, t := range threads {
		switch t.State {
		case models.ThreadStateRunning:
			running++
		case models.ThreadStateWaiting, models.ThreadStateStopped:
			waiting++
		}
		if t.WaitReason != "" {
			counts[t.WaitReason]++
		}
	}

	dominant := dominantWaitReason(counts, len(threads))
	rootCause := resolveRootCause(dominant, len(threads), running, waiting, sample)

	report = &models.FreezeReport{
		ReportID:           uuid.NewString(),
		ProcessName:        processName,
		ProcessID:          pid,
		FreezeDuration:     freezeDuration,
		TotalThreads:       len(threads),
		RunningThreads:     running,
		WaitReasonCounts:   counts,
		DominantWaitReason: dominant,
		LikelyRootCause:    rootCause,
		CreatedAt:          time.Now().UTC(),
	}

	if freezeDuration > inv.dumpThreshold && inv.dumper != nil {
		path, analysis := inv.captureDump(ctx, processName, pid)
		report.MiniDumpPath = path
		report.MiniDumpAnalysis = analysis
	}

	return report
}

// captureDump issues the capture on its own goroutine so slow disk IO never
// holds the sampling loop past the investigation budget; if the capture
// outlives the budget the report simply carries no dump path.
func (inv *Investigator) captureDump(ctx context.Context, processName string, pid int32) (string, *models.MiniDumpAnalysis) {
	type result struct {
		path     string
		analysis *models.MiniDumpAnalysis
	}
	done := make(chan result, 1)

	go func() {
		path, err := inv.dumper.CreateDump(context.Background(), processName, pid)
		if err != nil {
			inv.logger.Warn("dump capture failed", slog.String("process", processName), slog.Any("error", err))
			done <- result{}
			return
		}
		analysis, err := inv.dumper.Analyze(path)
		if err != nil {
			// Analysis is best-effort; the dump itself remains valid.
			inv.logger.Debug("dump analysis failed", slog.String("path", path), slog.Any("error", err))
			analysis = nil
		}
		done <- result{path: path, analysis: analysis}
	}()

	select {
	case r := <-done:
		return r.path, r.analysis
	case <-ctx.Done():
		inv.logger.Debug("dump capture outlived investigation budget", slog.String("process", processName))
		return "", nil
	}
}

// dominantWaitReason returns the reason held by strictly more than 60% of
// sampled threads, or empty when no reason dominates.
func dominantWaitReason(counts map[string]int, total int) string {
	if total == 0 {
		return ""
	}
	for reason, count := range counts {
		if count*5 > total*3 {
			return reason
		}
	}
	return ""
}

// resolveRootCause applies the ordered heuristic table; the first matching
// rule wins.
func resolveRootCause(dominant string, total, running, waiting int, sample models.MonitorSample) string {
	switch {
	case dominant == models.WaitReasonExecutive:
		return RootCauseLockContention
	case dominant == models.WaitReasonPageIn:
		return RootCausePagingPressure
	case waiting == total && sample.CPUPercent < 20:
		return RootCauseKernelWait
	case sample.ContextSwitchRate > 50000 && sample.CPUPercent < 30:
		return RootCauseSchedulerThrash
	case sample.DPCTimePercent > 20:
		return RootCauseDriverLatency
	case dominant == models.WaitReasonUserRequest:
		return RootCauseUserOrIO
	case dominant == models.WaitReasonFreePage:
		return RootCauseAllocPressure
	case dominant == models.WaitReasonVirtualMemory:
		return RootCauseVirtualMemory
	case total > 100 && running < 2:
		return RootCausePoolStarvation
	default:
		return RootCauseFallback
	}
}
