// Package web provides the HTTP control and status server for the
// cardio-sensor daemon.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vitalsense/cardio-sensor/internal/logger"
	"github.com/vitalsense/cardio-sensor/internal/session"
	"github.com/vitalsense/cardio-sensor/internal/status"
)

// SessionControl is the subset of the session controller the HTTP
// handlers need.
type SessionControl interface {
	Start(age int) error
	Stop()
	State() session.State
	Result() (session.Result, bool)
}

// Server serves the status page, session control endpoints, and metrics.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	ctrl       SessionControl
	defaultAge int
	log        *slog.Logger
}

// New creates a Server. metricsHandler may be nil to disable /metrics.
func New(addr string, tracker *status.Tracker, ctrl SessionControl, defaultAge int, metricsHandler http.Handler, log *slog.Logger) *Server {
	s := &Server{
		tracker:    tracker,
		ctrl:       ctrl,
		defaultAge: defaultAge,
		log:        log,
	}

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Get("/", s.handleIndex)
	r.Get("/index.html", s.handleIndex)
	r.Get("/index.json", s.handleJSON)
	r.Post("/session/start", s.handleStart)
	r.Post("/session/stop", s.handleStop)
	r.Get("/session/result", s.handleResult)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the route tree. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// startRequest is the optional POST /session/start body.
type startRequest struct {
	Age int `json:"age"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	age := s.defaultAge
	var req startRequest
	// A missing body means "use the defaults". ContentLength is unreliable
	// for chunked requests, so decode and treat EOF as no body.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Age != 0 {
		if req.Age < 1 || req.Age > 120 {
			writeError(w, http.StatusBadRequest, "age out of range")
			return
		}
		age = req.Age
	}

	if err := s.ctrl.Start(age); err != nil {
		switch {
		case errors.Is(err, session.ErrAlreadyRecording):
			writeError(w, http.StatusConflict, "session already recording")
		case errors.Is(err, session.ErrNoSource):
			writeError(w, http.StatusServiceUnavailable, "no signal source attached")
		default:
			s.log.Error("session start failed", "error", err)
			writeError(w, http.StatusInternalServerError, "session start failed")
		}
		return
	}

	s.log.Info("session started", "age", age)
	writeJSON(w, http.StatusAccepted, map[string]any{"state": string(s.ctrl.State())})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"state": string(s.ctrl.State())})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	res, ok := s.ctrl.Result()
	if !ok {
		writeError(w, http.StatusNotFound, "no result available")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
