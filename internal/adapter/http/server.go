package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/fire-risk-etl/internal/domain"
)

const maxListLimit = 100

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// RunSource exposes the workflow's readiness and its most recent run.
type RunSource interface {
	ReadinessChecker
	LatestReport() (domain.RunReport, bool)
}

// RunHistory looks up recorded runs.
type RunHistory interface {
	Get(ctx context.Context, id string) (domain.RunReport, error)
	Latest(ctx context.Context) (domain.RunReport, error)
	List(ctx context.Context, limit int) ([]domain.RunReport, error)
}

// Server exposes health, readiness, metrics and run report HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	history    RunHistory
}

// Option configures optional Server routes.
type Option func(*http.ServeMux, *Server)

// WithRunHistory adds GET /runs and GET /runs/{id} backed by h. GET
// /runs/latest falls back to h until this process finishes a run.
func WithRunHistory(h RunHistory) Option {
	return func(mux *http.ServeMux, s *Server) {
		s.history = h
		mux.HandleFunc("GET /runs", s.handleListRuns(h))
		mux.HandleFunc("GET /runs/{id}", s.handleGetRun(h))
	}
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /runs/latest routes.
func NewServer(addr string, runs RunSource, logger *slog.Logger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(runs))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /runs/latest", s.handleLatest(runs))
	for _, opt := range opts {
		opt(mux, s)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleLatest(runs RunSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if report, ok := runs.LatestReport(); ok {
			writeJSON(w, http.StatusOK, report)
			return
		}
		if s.history == nil {
			writeError(w, http.StatusNotFound, "no run has finished yet")
			return
		}

		report, err := s.history.Latest(r.Context())
		switch {
		case errors.Is(err, domain.ErrRunNotFound):
			writeError(w, http.StatusNotFound, "no run has finished yet")
		case err != nil:
			s.logger.Error("latest run lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "run lookup failed")
		default:
			writeJSON(w, http.StatusOK, report)
		}
	}
}

func (s *Server) handleGetRun(h RunHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := h.Get(r.Context(), r.PathValue("id"))
		switch {
		case errors.Is(err, domain.ErrRunNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case err != nil:
			s.logger.Error("run lookup failed", "run_id", r.PathValue("id"), "error", err)
			writeError(w, http.StatusInternalServerError, "run lookup failed")
		default:
			writeJSON(w, http.StatusOK, report)
		}
	}
}

func (s *Server) handleListRuns(h RunHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > maxListLimit {
				writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
				return
			}
			limit = n
		}

		runs, err := h.List(r.Context(), limit)
		if err != nil {
			s.logger.Error("run listing failed", "error", err)
			writeError(w, http.StatusInternalServerError, "run listing failed")
			return
		}
		if runs == nil {
			runs = []domain.RunReport{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
