package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sentinelstack/sentinel-agent/internal/config"
	"github.com/sentinelstack/sentinel-agent/internal/models"
)

// StatusSource exposes the read-side of the monitoring engine to HTTP
// handlers. *engine.Engine satisfies it.
type StatusSource interface {
	Latest() (models.MonitorSample, bool)
	Scores() []models.HealthScore
	RecentEvents() []models.MonitorEvent
	RecentReports() []models.FreezeReport
	Ticks() int
}

// Server serves the read-only status API over HTTP.
type Server struct {
	cfg    config.ServerConfig
	logger *slog.Logger
	http   *http.Server
}

// NewServer wires the router and returns a server ready to Start.
func NewServer(cfg config.ServerConfig, source StatusSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	h := &handlers{source: source, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.healthz)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/sample", h.sample)
		r.Get("/scores", h.scores)
		r.Get("/events", h.events)
		r.Get("/reports", h.reports)
	})

	return &Server{
		cfg:    cfg,
		logger: logger,
		http: &http.Server{
			Addr:         cfg.Address,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Start serves incoming requests until Shutdown is invoked.
func (s *Server) Start() error {
	s.logger.Info("status API listening", "address", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, forcing close when ctx expires.
func (s *Server) Shutdown(ctx context.Context) {
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("status API shutdown forced", "error", err)
		_ = s.http.Close()
	}
}

// GracefulTimeout returns the configured graceful timeout duration.
func (s *Server) GracefulTimeout() time.Duration {
	return s.cfg.GracefulTimeout
}
