// Package persist holds the error type shared by every write to an
// external sink (progress store, result sink).
package persist

import (
	"errors"
	"fmt"
)

// Error reports a failed write to a sink. It is recoverable: in-memory
// state stays valid and the caller decides whether to retry or roll back.
type Error struct {
	Op     string // "upsert completion", "record result", ...
	UserID string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("persist %s for %s: %v", e.Op, e.UserID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns nil when err is nil, otherwise an *Error.
func Wrap(op, userID string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, UserID: userID, Err: err}
}

// Is reports whether err carries an *Error anywhere in its chain.
func Is(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}
