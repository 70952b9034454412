package persist_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/suraksha-edu/suraksha/internal/persist"
)

func TestWrap(t *testing.T) {
	if err := persist.Wrap("upsert completion", "u1", nil); err != nil {
		t.Fatalf("Wrap(nil) = %v, want nil", err)
	}

	err := persist.Wrap("record result", "u1", context.DeadlineExceeded)
	if !persist.Is(err) {
		t.Fatalf("Is(%v) = false", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("wrapped error does not unwrap to the cause")
	}
	if want := "persist record result for u1: context deadline exceeded"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"direct", persist.Wrap("op", "u", errors.New("boom")), true},
		{"nested", fmt.Errorf("marking complete: %w", persist.Wrap("op", "u", errors.New("boom"))), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := persist.Is(tt.err); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}
