package engine

import (
	"context"
	"time"

	"github.com/sentinelstack/sentinel-agent/internal/models"
	"github.com/sentinelstack/sentinel-agent/internal/probe"
)

// hangState tracks responsiveness history for one watched process.
type hangState struct {
	name           string
	lastResponsive time.Time
}

// hangTracker maps process identity to last-observed-responsive time and
// derives the hanging-process list each tick. It is owned by the engine and
// accessed from the tick goroutine only.
type hangTracker struct {
	inspector probe.ProcessInspector
	liveness  time.Duration
	watched   map[int32]*hangState
}

func newHangTracker(inspector probe.ProcessInspector, liveness time.Duration) *hangTracker {
	if liveness <= 0 {
		liveness = time.Second
	}
	return &hangTracker{
		inspector: inspector,
		liveness:  liveness,
		watched:   map[int32]*hangState{},
	}
}

// update probes every candidate process and returns the ones that have been
// unresponsive longer than the liveness threshold, with accumulated hang
// duration. Processes that exited are dropped from tracking.
func (t *hangTracker) update(ctx context.Context, now time.Time, candidates []models.ProcessUsage) []models.HangingProcessInfo {
	seen := make(map[int32]struct{}, len(candidates))
	var hanging []models.HangingProcessInfo

	for _, c := range candidates {
		if _, dup := seen[c.PID]; dup {
			continue
		}
		seen[c.PID] = struct{}{}

		state, known := t.watched[c.PID]
		if !known {
			state = &hangState{name: c.Name, lastResponsive: now}
			t.watched[c.PID] = state
		}
		state.name = c.Name

		responsive, err := t.inspector.Responsive(ctx, c.PID)
		if err != nil {
			// Process gone; not a hang.
			delete(t.watched, c.PID)
			continue
		}
		if responsive {
			state.lastResponsive = now
			continue
		}

		hangDur := now.Sub(state.lastResponsive)
		if hangDur >= t.liveness {
			hanging = append(hanging, models.HangingProcessInfo{
				PID:         c.PID,
				Name:        state.name,
				HangSeconds: hangDur.Seconds(),
			})
		}
	}

	// Processes that fell out of the candidate set: forget responsive ones,
	// keep probing unresponsive ones so their hang keeps accumulating.
	for pid, state := range t.watched {
		if _, ok := seen[pid]; ok {
			continue
		}
		if now.Sub(state.lastResponsive) < t.liveness {
			delete(t.watched, pid)
			continue
		}
		responsive, err := t.inspector.Responsive(ctx, pid)
		if err != nil {
			delete(t.watched, pid)
			continue
		}
		if responsive {
			delete(t.watched, pid)
			continue
		}
		hanging = append(hanging, models.HangingProcessInfo{
			PID:         pid,
			Name:        state.name,
			HangSeconds: now.Sub(state.lastResponsive).Seconds(),
		})
	}

	return hanging
}
