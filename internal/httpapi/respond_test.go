package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/suraksha-edu/suraksha/internal/account"
	"github.com/suraksha-edu/suraksha/internal/ai"
	"github.com/suraksha-edu/suraksha/internal/persist"
	"github.com/suraksha-edu/suraksha/internal/progress"
	"github.com/suraksha-edu/suraksha/internal/quiz"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"insufficient bank", &quiz.InsufficientBankSizeError{BankID: "b", Requested: 5, Available: 3}, http.StatusUnprocessableEntity},
		{"persist", persist.Wrap("upsert completion", "u1", errors.New("reset")), http.StatusServiceUnavailable},
		{"locked", fmt.Errorf("%w: t2", progress.ErrItemLocked), http.StatusConflict},
		{"closed", quiz.ErrAttemptClosed, http.StatusConflict},
		{"validation", &account.ValidationError{Field: "email", Reason: "bad"}, http.StatusBadRequest},
		{"session", account.ErrInvalidSession, http.StatusUnauthorized},
		{"forbidden", errForbidden, http.StatusForbidden},
		{"budget", ai.ErrBudgetExceeded, http.StatusTooManyRequests},
		{"unknown bank", quiz.ErrUnknownBank, http.StatusNotFound},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("%s: statusFor() = %d, want %d", tt.name, got, tt.want)
		}
	}
}
