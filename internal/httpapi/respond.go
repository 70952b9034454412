package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/suraksha-edu/suraksha/internal/account"
	"github.com/suraksha-edu/suraksha/internal/ai"
	"github.com/suraksha-edu/suraksha/internal/assistant"
	"github.com/suraksha-edu/suraksha/internal/persist"
	"github.com/suraksha-edu/suraksha/internal/progress"
	"github.com/suraksha-edu/suraksha/internal/quiz"
)

const maxBodyBytes = 64 << 10

var (
	errNotFound    = errors.New("not found")
	errForbidden   = errors.New("forbidden")
	errBadRequest  = errors.New("bad request")
	errNoAssistant = errors.New("assistant is not configured")
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var ve *account.ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, errBadRequest),
		errors.Is(err, quiz.ErrInvalidPosition),
		errors.Is(err, quiz.ErrInvalidOption),
		errors.Is(err, assistant.ErrEmptyMessage),
		errors.Is(err, assistant.ErrMessageTooLong):
		return http.StatusBadRequest
	case errors.Is(err, account.ErrInvalidCredentials),
		errors.Is(err, account.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, errNotFound),
		errors.Is(err, progress.ErrUnknownItem),
		errors.Is(err, quiz.ErrUnknownBank),
		errors.Is(err, quiz.ErrNoAttempt):
		return http.StatusNotFound
	case errors.Is(err, account.ErrEmailTaken),
		errors.Is(err, progress.ErrItemLocked),
		errors.Is(err, quiz.ErrAttemptClosed):
		return http.StatusConflict
	case errors.Is(err, quiz.ErrInsufficientBankSize):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ai.ErrBudgetExceeded):
		return http.StatusTooManyRequests
	case persist.Is(err), errors.Is(err, errNoAssistant):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
