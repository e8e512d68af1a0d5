// Package server exposes metrics and the latest rotation results over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/raoulx24/dir-archiver/internal/rotation"
)

// Reports supplies the latest report per target.
type Reports interface {
	Last() map[string]rotation.Report
}

// Schedule supplies the next planned run, nil when none is planned.
type Schedule interface {
	NextRun() *time.Time
}

// Server is the dir-archiver status server.
type Server struct {
	router   chi.Router
	metrics  http.Handler
	reports  Reports
	schedule Schedule
	version  string
	started  time.Time
	log      *slog.Logger
}

// New creates a Server. metrics and schedule may be nil.
func New(metrics http.Handler, reports Reports, schedule Schedule, version string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		metrics:  metrics,
		reports:  reports,
		schedule: schedule,
		version:  version,
		started:  time.Now(),
		log:      log.With("component", "server"),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	s.router = r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("status server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
	})
}

type targetStatus struct {
	rotation.Report
	OK    bool           `json:"ok"`
	Tiers map[string]int `json:"tiers"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	targets := make(map[string]targetStatus)
	if s.reports != nil {
		for name, rep := range s.reports.Last() {
			targets[name] = targetStatus{Report: rep, OK: rep.OK(), Tiers: rep.Tiers()}
		}
	}

	body := map[string]any{"targets": targets}
	if s.schedule != nil {
		if next := s.schedule.NextRun(); next != nil {
			body["next_run"] = next.Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
