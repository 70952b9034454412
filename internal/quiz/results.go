package quiz

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

const dbTimeout = 5 * time.Second

// ResultSink stores graded attempts. It is append-only: every attempt adds
// a row and nothing is overwritten.
type ResultSink interface {
	Record(ctx context.Context, userID string, r AttemptResult) error
	// Recent returns the user's results newest first. limit <= 0 returns
	// every result.
	Recent(ctx context.Context, userID string, limit int) ([]AttemptResult, error)
}

// MemoryResultSink is an in-memory ResultSink.
type MemoryResultSink struct {
	mu      sync.RWMutex
	results map[string][]AttemptResult
}

// NewMemoryResultSink creates an empty in-memory sink.
func NewMemoryResultSink() *MemoryResultSink {
	return &MemoryResultSink{results: make(map[string][]AttemptResult)}
}

func (s *MemoryResultSink) Record(_ context.Context, userID string, r AttemptResult) error {
	if err := validateResult(userID, r); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.results[userID] {
		if existing.AttemptID == r.AttemptID {
			return fmt.Errorf("attempt %s already recorded", r.AttemptID)
		}
	}
	s.results[userID] = append(s.results[userID], r)
	return nil
}

func (s *MemoryResultSink) Recent(_ context.Context, userID string, limit int) ([]AttemptResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.results[userID]
	out := make([]AttemptResult, len(all))
	for i, r := range all {
		out[len(all)-1-i] = r
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func validateResult(userID string, r AttemptResult) error {
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}
	if r.AttemptID == "" {
		return fmt.Errorf("attempt_id is required")
	}
	if r.UserID != "" && r.UserID != userID {
		return fmt.Errorf("result belongs to %s, not %s", r.UserID, userID)
	}
	return nil
}

func completedAt(r AttemptResult) time.Time {
	if r.CompletedAt.IsZero() {
		return time.Now()
	}
	return r.CompletedAt
}
