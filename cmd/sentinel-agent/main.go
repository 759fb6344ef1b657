package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentinelstack/sentinel-agent/internal/analyzers"
	"github.com/sentinelstack/sentinel-agent/internal/api"
	"github.com/sentinelstack/sentinel-agent/internal/config"
	"github.com/sentinelstack/sentinel-agent/internal/dump"
	"github.com/sentinelstack/sentinel-agent/internal/engine"
	"github.com/sentinelstack/sentinel-agent/internal/metrics"
	"github.com/sentinelstack/sentinel-agent/internal/models"
	"github.com/sentinelstack/sentinel-agent/internal/probe"
	"github.com/sentinelstack/sentinel-agent/internal/runlog"
	"github.com/sentinelstack/sentinel-agent/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting sentinel-agent",
		slog.String("address", cfg.Server.Address),
		slog.Duration("interval", cfg.Monitor.Interval))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	source := probe.NewSystemSource()
	inspector := probe.NewInspector()

	registered := []analyzers.Analyzer{
		analyzers.NewCPUAnalyzer(source),
		analyzers.NewMemoryAnalyzer(source),
		analyzers.NewDiskAnalyzer(source),
		analyzers.NewNetworkAnalyzer(source, cfg.Monitor.NetworkSaturation),
		analyzers.NewProcessAnalyzer(source, cfg.Monitor.TopN),
	}

	var dumper *dump.Capture
	if cfg.Dumps.Enabled {
		denylist := cfg.Dumps.Denylist
		if len(denylist) == 0 {
			denylist = dump.DefaultDenylist
		}
		dumper, err = dump.NewCapture(cfg.Dumps.Directory, inspector, denylist, cfg.Monitor.Privileged)
		if err != nil {
			logger.Warn("dump capture unavailable", slog.Any("error", err))
		}
	}

	investigator := engine.NewInvestigator(logger, inspector, dumper,
		cfg.Monitor.InvestigationBudget, cfg.Dumps.Threshold)

	tips, err := engine.NewTipEngine(cfg.Tips.Path, logger)
	if err != nil {
		logger.Warn("tip pack unavailable", slog.String("path", cfg.Tips.Path), slog.Any("error", err))
	}

	eng := engine.NewEngine(logger, registered, inspector, investigator, tips, engine.Settings{
		HistoryCapacity:   cfg.Monitor.HistoryCapacity,
		LivenessThreshold: cfg.Monitor.LivenessThreshold,
		DeepThreshold:     cfg.Monitor.DeepThreshold,
	})

	var runStore *runlog.Store
	if cfg.Runlog.Path != "" {
		runStore, err = runlog.Open(cfg.Runlog.Path)
		if err != nil {
			logger.Warn("run history unavailable", slog.String("path", cfg.Runlog.Path), slog.Any("error", err))
		} else {
			defer runStore.Close()
		}
	}

	server := api.NewServer(cfg.Server, eng, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("status API exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	sessionStart := time.Now()
	session := engine.NewSession(logger, eng, cfg.Monitor.Interval, cfg.Monitor.SessionDuration)
	if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("monitoring session failed", slog.Any("error", err))
	}
	stop()

	if runStore != nil {
		recordRun(logger, runStore, eng, sessionStart)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("sentinel-agent stopped")
}

// recordRun persists this session's findings and logs what changed since the
// previous run.
func recordRun(logger *slog.Logger, store *runlog.Store, eng *engine.Engine, startedAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	checks := sessionChecks(eng)
	if len(checks) == 0 {
		logger.Info("no ticks completed, skipping run record")
		return
	}

	runID, err := store.RecordRun(ctx, startedAt, checks)
	if err != nil {
		logger.Warn("failed to record run", slog.Any("error", err))
		return
	}

	prev, hasPrev, err := store.PreviousRun(ctx, runID)
	if err != nil {
		logger.Warn("failed to load previous run", slog.Any("error", err))
		return
	}

	diff := runlog.Diff(prev, hasPrev, runlog.Run{ID: runID, StartedAt: startedAt, Checks: checks})
	logger.Info("run recorded",
		slog.String("run_id", runID),
		slog.Int("checks", len(checks)),
		slog.Int("new_issues", len(diff.New)),
		slog.Int("fixed_issues", len(diff.Fixed)))
	for _, c := range diff.New {
		logger.Warn("new issue since last run",
			slog.String("category", c.Category),
			slog.String("check", c.Check),
			slog.String("severity", c.Severity))
	}
	for _, c := range diff.Fixed {
		logger.Info("issue fixed since last run",
			slog.String("category", c.Category),
			slog.String("check", c.Check))
	}

	runs, err := store.Runs(ctx, 20)
	if err != nil {
		logger.Warn("failed to load run history", slog.Any("error", err))
		return
	}
	for _, issue := range runlog.MineRecurring(runs, 3) {
		logger.Warn("recurring issue",
			slog.String("category", issue.Category),
			slog.String("check", issue.Check),
			slog.Int("occurrences", issue.Occurrences),
			slog.String("worst_severity", issue.WorstSeverity))
	}
}

// sessionChecks flattens the engine's final state into recordable check
// results: one per domain score plus one per distinct event type.
func sessionChecks(eng *engine.Engine) []runlog.CheckResult {
	if eng.Ticks() == 0 {
		return nil
	}

	var checks []runlog.CheckResult
	for _, score := range eng.Scores() {
		checks = append(checks, runlog.CheckResult{
			Category:       score.Domain,
			Check:          "health_score",
			Severity:       checkSeverity(score.Score),
			Recommendation: score.RootCauseHint,
		})
	}

	seen := map[string]int{}
	for _, ev := range eng.RecentEvents() {
		idx, ok := seen[ev.EventType]
		if !ok {
			seen[ev.EventType] = len(checks)
			checks = append(checks, runlog.CheckResult{
				Category:       "events",
				Check:          ev.EventType,
				Severity:       string(ev.Severity),
				Recommendation: ev.Tip,
			})
			continue
		}
		if severityWorse(string(ev.Severity), checks[idx].Severity) {
			checks[idx].Severity = string(ev.Severity)
		}
	}
	return checks
}

func checkSeverity(score int) string {
	switch {
	case score > 75:
		return string(models.SeverityCritical)
	case score > 50:
		return string(models.SeverityHigh)
	case score > 25:
		return string(models.SeverityWarning)
	default:
		return runlog.SeverityOk
	}
}

var severityOrder = map[string]int{
	runlog.SeverityOk:               0,
	string(models.SeverityInfo):     1,
	string(models.SeverityWarning):  2,
	string(models.SeverityHigh):     3,
	string(models.SeverityCritical): 4,
}

func severityWorse(a, b string) bool {
	return severityOrder[a] > severityOrder[b]
}
