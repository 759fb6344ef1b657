package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sentinelstack/sentinel-agent/internal/models"
	"github.com/sentinelstack/sentinel-agent/internal/utils"
)

type handlers struct {
	source StatusSource
	logger *slog.Logger
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"ticks":  h.source.Ticks(),
	})
}

func (h *handlers) sample(w http.ResponseWriter, _ *http.Request) {
	sample, ok := h.source.Latest()
	if !ok {
		respondError(w, http.StatusServiceUnavailable, "no sample committed yet")
		return
	}
	respondJSON(w, http.StatusOK, sample)
}

func (h *handlers) scores(w http.ResponseWriter, _ *http.Request) {
	scores := h.source.Scores()
	if scores == nil {
		scores = []models.HealthScore{}
	}
	respondJSON(w, http.StatusOK, scores)
}

// events supports an optional ?since=RFC3339 filter.
func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	events := h.source.RecentEvents()

	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := utils.ParseRFC3339(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		filtered := make([]models.MonitorEvent, 0, len(events))
		for _, ev := range events {
			if !ev.Timestamp.Before(since) {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}

	if events == nil {
		events = []models.MonitorEvent{}
	}
	respondJSON(w, http.StatusOK, events)
}

func (h *handlers) reports(w http.ResponseWriter, _ *http.Request) {
	reports := h.source.RecentReports()
	if reports == nil {
		reports = []models.FreezeReport{}
	}
	respondJSON(w, http.StatusOK, reports)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
