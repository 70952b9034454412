// Package httpapi exposes the learning core over JSON HTTP endpoints and a
// websocket countdown stream.
package httpapi

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/suraksha-edu/suraksha/internal/account"
	"github.com/suraksha-edu/suraksha/internal/activity"
	"github.com/suraksha-edu/suraksha/internal/assistant"
	"github.com/suraksha-edu/suraksha/internal/catalog"
	"github.com/suraksha-edu/suraksha/internal/dashboard"
	"github.com/suraksha-edu/suraksha/internal/progress"
	"github.com/suraksha-edu/suraksha/internal/quiz"
)

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

// Deps are the services the API is built on. Assistant may be nil when no
// AI provider is configured.
type Deps struct {
	Catalog   *catalog.Catalog
	Progress  *progress.Registry
	Quizzes   *quiz.Manager
	Dashboard *dashboard.Service
	Accounts  *account.Service
	Assistant *assistant.Assistant
	Events    activity.Logger
	// Checks run on /readyz, keyed by dependency name.
	Checks map[string]Checker
}

// Server routes API requests.
type Server struct {
	deps Deps
	mux  *http.ServeMux
}

// New creates a server and registers its routes.
func New(deps Deps) *Server {
	if deps.Events == nil {
		deps.Events = activity.NopLogger{}
	}
	s := &Server{deps: deps, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)

	s.mux.HandleFunc("POST /api/accounts", s.handleRegister)
	s.mux.HandleFunc("POST /api/sessions", s.handleLogin)
	s.mux.Handle("DELETE /api/sessions", s.authed(s.handleLogout))

	s.mux.Handle("GET /api/sections", s.authed(s.handleSections))
	s.mux.Handle("GET /api/sections/{id}", s.authed(s.handleSection))
	s.mux.Handle("POST /api/items/{id}/complete", s.student(s.handleComplete))

	s.mux.Handle("GET /api/quizzes", s.authed(s.handleBanks))
	s.mux.Handle("POST /api/quizzes/{bank}/attempts", s.student(s.handleStartAttempt))
	s.mux.Handle("GET /api/attempts/current", s.student(s.handleCurrentAttempt))
	s.mux.Handle("PUT /api/attempts/current/answers/{position}", s.student(s.handleAnswer))
	s.mux.Handle("POST /api/attempts/current/submit", s.student(s.handleSubmit))
	s.mux.Handle("DELETE /api/attempts/current", s.student(s.handleAbandon))
	s.mux.Handle("GET /api/attempts/current/ws", s.student(s.handleAttemptStream))
	s.mux.Handle("GET /api/results", s.student(s.handleResults))

	s.mux.Handle("GET /api/dashboard", s.student(s.handleDashboard))
	s.mux.Handle("GET /api/teacher/roster", s.teacher(s.handleRoster))
	s.mux.Handle("GET /api/teacher/roster.xlsx", s.teacher(s.handleRosterExport))

	s.mux.Handle("GET /api/assistant/languages", s.authed(s.handleLanguages))
	s.mux.Handle("POST /api/assistant/messages", s.authed(s.handleAssistantMessage))
	s.mux.Handle("POST /api/assistant/translations", s.authed(s.handleTranslate))
}

// ServeHTTP logs each request and dispatches it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rw, r)
	slog.Debug("http request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rw.status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack hands the connection to the websocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.deps.Checks {
		if err := check(ctx); err != nil {
			slog.Warn("readiness check failed", "dependency", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
