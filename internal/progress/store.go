package progress

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// CompletionRecord is the single row kept per (user, item). Re-completing
// an item overwrites it.
type CompletionRecord struct {
	UserID      string    `json:"user_id"`
	ItemID      string    `json:"item_id"`
	Completed   bool      `json:"completed"`
	Score       *int      `json:"score,omitempty"` // 0..100, graded items only
	CompletedAt time.Time `json:"completed_at"`
}

// Store persists completion records.
type Store interface {
	// Completions returns the set of item IDs the user has completed.
	Completions(ctx context.Context, userID string) (Set, error)
	// Upsert inserts or overwrites the record for (UserID, ItemID).
	Upsert(ctx context.Context, rec CompletionRecord) error
	// Records returns every record for the user, oldest first.
	Records(ctx context.Context, userID string) ([]CompletionRecord, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]CompletionRecord // user -> item -> record
}

// NewMemoryStore creates a new in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[string]CompletionRecord),
	}
}

func (s *MemoryStore) Completions(_ context.Context, userID string) (Set, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(Set)
	for id, rec := range s.records[userID] {
		if rec.Completed {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (s *MemoryStore) Upsert(_ context.Context, rec CompletionRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byItem, ok := s.records[rec.UserID]
	if !ok {
		byItem = make(map[string]CompletionRecord)
		s.records[rec.UserID] = byItem
	}
	byItem[rec.ItemID] = rec
	return nil
}

func (s *MemoryStore) Records(_ context.Context, userID string) ([]CompletionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]CompletionRecord, 0, len(s.records[userID]))
	for _, rec := range s.records[userID] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.Before(out[j].CompletedAt)
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out, nil
}

func validateRecord(rec CompletionRecord) error {
	if rec.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if rec.ItemID == "" {
		return fmt.Errorf("item_id is required")
	}
	if rec.Score != nil && (*rec.Score < 0 || *rec.Score > 100) {
		return fmt.Errorf("score %d out of range 0..100", *rec.Score)
	}
	return nil
}

// nullableScore maps an absent score to SQL NULL.
func nullableScore(score *int) any {
	if score == nil {
		return nil
	}
	return *score
}
