package engine

import (
	"context"
	"log/slog"
	"time"
)

// Session drives the engine with a single periodic ticker for a fixed total
// duration. Exactly one tick body runs at a time; when a tick overruns the
// interval the missed ticks are dropped, never queued.
type Session struct {
	logger   *slog.Logger
	engine   *Engine
	interval time.Duration
	duration time.Duration
}

// NewSession creates a monitoring session. interval defaults to 3s; a zero
// duration means the session runs until the context is cancelled.
func NewSession(logger *slog.Logger, engine *Engine, interval, duration time.Duration) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Session{
		logger:   logger,
		engine:   engine,
		interval: interval,
		duration: duration,
	}
}

// Run executes ticks until the session duration elapses or ctx is cancelled.
// A tick already in progress completes and commits normally; no new ticks are
// scheduled afterwards. The caller is expected to run this off the
// coordination goroutine since tick bodies block on OS calls.
func (s *Session) Run(ctx context.Context) error {
	if s.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.duration)
		defer cancel()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("monitoring session started",
		slog.Duration("interval", s.interval),
		slog.Duration("duration", s.duration))

	// First sample immediately so rate baselines are primed.
	s.engine.Tick(context.WithoutCancel(ctx))
	drain(ticker)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("monitoring session finished", slog.Int("ticks", s.engine.Ticks()))
			return nil
		case <-ticker.C:
			if ctx.Err() != nil {
				continue // session expired while the tick fired
			}
			s.engine.Tick(context.WithoutCancel(ctx))
			drain(ticker)
		}
	}
}

// drain discards a tick that fired while a tick body was running. The ticker
// channel buffers one tick, which would otherwise run as an immediate
// catch-up tick after an overrun instead of being skipped.
func drain(ticker *time.Ticker) {
	select {
	case <-ticker.C:
	default:
	}
}
