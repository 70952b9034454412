package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/suraksha-edu/suraksha/internal/persist"
	"github.com/suraksha-edu/suraksha/internal/quiz"
)

const wsWriteTimeout = 5 * time.Second

type attemptView struct {
	quiz.Attempt
	RemainingSeconds int `json:"remaining_seconds"`
	TimeLimitSeconds int `json:"time_limit_seconds"`
}

func newAttemptView(a quiz.Attempt, remaining time.Duration) attemptView {
	return attemptView{
		Attempt:          a,
		RemainingSeconds: int((remaining + time.Second - 1) / time.Second),
		TimeLimitSeconds: int(a.TimeLimit / time.Second),
	}
}

func (s *Server) session(r *http.Request) *quiz.Session {
	return s.deps.Quizzes.Session(accountFrom(r.Context()).ID)
}

func (s *Server) handleBanks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Catalog.Banks())
}

func (s *Server) handleStartAttempt(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	a, err := sess.Start(r.Context(), r.PathValue("bank"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAttemptView(a, a.TimeLimit))
}

func (s *Server) handleCurrentAttempt(w http.ResponseWriter, r *http.Request) {
	a, remaining, ok := s.session(r).Current()
	if !ok {
		writeError(w, r, quiz.ErrNoAttempt)
		return
	}
	writeJSON(w, http.StatusOK, newAttemptView(a, remaining))
}

type answerRequest struct {
	Option *int `json:"option"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.Atoi(r.PathValue("position"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: position must be an integer", errBadRequest))
		return
	}
	var in answerRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if in.Option == nil {
		writeError(w, r, fmt.Errorf("%w: option is required", errBadRequest))
		return
	}
	if err := s.session(r).Answer(position, *in.Option); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type submitResponse struct {
	Result quiz.AttemptResult `json:"result"`
	Error  string             `json:"error,omitempty"`
}

// handleSubmit grades the attempt. When the result cannot be stored the
// learner still gets the graded result alongside a 503.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	result, err := s.session(r).Submit(r.Context())
	if err != nil {
		if persist.Is(err) {
			writeJSON(w, statusFor(err), submitResponse{Result: result, Error: err.Error()})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Result: result})
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	if err := s.session(r).Abandon(); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", errBadRequest))
			return
		}
		limit = n
	}
	results, err := s.deps.Quizzes.Sink().Recent(r.Context(), accountFrom(r.Context()).ID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if results == nil {
		results = []quiz.AttemptResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// handleAttemptStream upgrades to a websocket and pushes the countdown of
// the current attempt: one tick frame per second and a final result frame,
// after which the server closes the connection.
func (s *Server) handleAttemptStream(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	a, remaining, ok := sess.Current()
	if !ok || a.Status != quiz.StatusInProgress {
		writeError(w, r, quiz.ErrNoAttempt)
		return
	}

	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	// Client frames are ignored; CloseRead cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	first := quiz.Update{Type: quiz.UpdateTick, AttemptID: a.ID, RemainingSeconds: newAttemptView(a, remaining).RemainingSeconds}
	if err := writeFrame(ctx, conn, first); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if u.AttemptID != a.ID {
				_ = conn.Close(websocket.StatusNormalClosure, "attempt replaced")
				return
			}
			if err := writeFrame(ctx, conn, u); err != nil {
				return
			}
			if u.Type == quiz.UpdateResult {
				_ = conn.Close(websocket.StatusNormalClosure, "graded")
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, u quiz.Update) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	err := wsjson.Write(ctx, conn, u)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Debug("websocket write failed", "attempt_id", u.AttemptID, "error", err)
	}
	return err
}
