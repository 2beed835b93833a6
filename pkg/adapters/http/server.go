// Package http exposes the engine as a JSON API: session lifecycle,
// turn processing, health and Prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parleyhq/parley"
	"github.com/parleyhq/parley/internal/logging"
	"github.com/parleyhq/parley/pkg/domain"
)

// Engine is the surface the transport needs from the dialogue engine.
type Engine interface {
	StartSession(ctx context.Context, seed map[string]any) (*domain.State, error)
	ProcessTurn(ctx context.Context, sessionID, userText string) (*domain.TurnResult, error)
	EndSession(ctx context.Context, sessionID, reason string) error
}

// Server holds the transport dependencies.
type Server struct {
	engine   Engine
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer exposes a Prometheus registry on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// NewHandler builds the HTTP routes for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.startSession)
		r.Post("/{sessionID}/turns", s.processTurn)
		r.Delete("/{sessionID}", s.endSession)
	})

	return r
}

type startSessionRequest struct {
	Seed map[string]any `json:"seed,omitempty"`
}

type startSessionResponse struct {
	SessionID string `json:"session_id"`
	Node      string `json:"node"`
}

type turnRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var body startSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.logger.Warn("start session: invalid request body", "err", err)
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
	}

	state, err := s.engine.StartSession(r.Context(), body.Seed)
	if err != nil {
		if errors.Is(err, domain.ErrReservedKey) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		s.logger.Error("start session failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to start session"})
		return
	}

	writeJSON(w, http.StatusCreated, startSessionResponse{SessionID: state.ID, Node: state.Node})
}

func (s *Server) processTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body turnRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("process turn: invalid request body", "session_id", sessionID, "err", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := s.engine.ProcessTurn(r.Context(), sessionID, body.Text)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		case errors.Is(err, parley.ErrInputTooLarge), errors.Is(err, parley.ErrInvalidUTF8):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		default:
			s.logger.Error("process turn failed", "session_id", sessionID, "err", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "turn failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "client_request"
	}

	if err := s.engine.EndSession(r.Context(), sessionID, reason); err != nil {
		s.logger.Error("end session failed", "session_id", sessionID, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to end session"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
