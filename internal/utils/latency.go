package utils

import (
	"sort"
	"sync"
	"time"
)

// DurationWindow keeps a fixed-size ring of recent durations (tick bodies,
// freeze investigations) so the engine can log percentiles without unbounded
// growth over long sessions.
type DurationWindow struct {
	mu   sync.Mutex
	ring []time.Duration
	next int
	full bool
}

// NewDurationWindow allocates a window holding the most recent size samples.
func NewDurationWindow(size int) *DurationWindow {
	if size <= 0 {
		size = 512
	}
	return &DurationWindow{ring: make([]time.Duration, size)}
}

// Observe records a duration, evicting the oldest sample once the window
// is full.
func (w *DurationWindow) Observe(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.ring[w.next] = d
	w.next++
	if w.next == len(w.ring) {
		w.next = 0
		w.full = true
	}
}

// Count reports how many samples the window currently holds.
func (w *DurationWindow) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count()
}

func (w *DurationWindow) count() int {
	if w.full {
		return len(w.ring)
	}
	return w.next
}

// Percentile returns the p-th percentile (0-100) of the retained samples,
// or zero when none have been observed.
func (w *DurationWindow) Percentile(p float64) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.count()
	if n == 0 {
		return 0
	}
	sorted := make([]time.Duration, n)
	copy(sorted, w.ring[:n])
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[n-1]
	}
	idx := int(p / 100 * float64(n-1))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}
