package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/suraksha-edu/suraksha/internal/catalog"
	"github.com/suraksha-edu/suraksha/internal/persist"
)

// ErrItemLocked is returned by a tracker built WithUnlockCheck when the
// item's predecessor has not been completed.
var ErrItemLocked = errors.New("item is locked")

// ErrUnknownItem is returned by a tracker built WithUnlockCheck for items
// outside the catalog.
var ErrUnknownItem = errors.New("unknown item")

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithUnlockCheck makes MarkComplete refuse items that are not currently
// unlocked. Without it any item may be marked, matching the self-paced
// behaviour learners rely on.
func WithUnlockCheck(c *catalog.Catalog) TrackerOption {
	return func(t *Tracker) { t.catalog = c }
}

// WithClock overrides time.Now for completion timestamps.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// Tracker is one learner's in-memory completion set, kept in step with a
// Store. It is safe for concurrent use.
type Tracker struct {
	userID  string
	store   Store
	catalog *catalog.Catalog
	now     func() time.Time

	mu          sync.Mutex
	done        Set
	unconfirmed Set // added optimistically, store write failed
}

// NewTracker loads userID's completions from store.
func NewTracker(ctx context.Context, userID string, store Store, opts ...TrackerOption) (*Tracker, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	done, err := store.Completions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading completions for %s: %w", userID, err)
	}

	t := &Tracker{
		userID:      userID,
		store:       store,
		now:         time.Now,
		done:        done,
		unconfirmed: make(Set),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// UserID returns the learner this tracker belongs to.
func (t *Tracker) UserID() string { return t.userID }

// Completions returns a snapshot of the completion set.
func (t *Tracker) Completions() Set {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done.Clone()
}

// SectionState derives the view of section from the current set.
func (t *Tracker) SectionState(section catalog.Section) SectionState {
	return ComputeSectionState(section, t.Completions())
}

// MarkComplete adds itemID to the set and persists it. Calling it again
// for the same item leaves the set unchanged and overwrites the stored
// record (score and timestamp).
//
// The set is updated before the store write. If the write fails the error
// is a *persist.Error, the item stays in the set, and the caller decides
// whether to Rollback.
func (t *Tracker) MarkComplete(ctx context.Context, itemID string, score *int) error {
	t.mu.Lock()
	if t.catalog != nil {
		section, ok := t.catalog.SectionOf(itemID)
		if !ok {
			t.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
		}
		if !IsUnlocked(section, itemID, t.done) {
			t.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrItemLocked, itemID)
		}
	}

	wasDone := t.done.Has(itemID)
	t.done[itemID] = struct{}{}
	t.mu.Unlock()

	rec := CompletionRecord{
		UserID:      t.userID,
		ItemID:      itemID,
		Completed:   true,
		Score:       score,
		CompletedAt: t.now(),
	}
	err := t.store.Upsert(ctx, rec)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		if !wasDone {
			t.unconfirmed[itemID] = struct{}{}
		}
		slog.Warn("completion not persisted", "user_id", t.userID, "item_id", itemID, "error", err)
		return persist.Wrap("upsert completion", t.userID, err)
	}
	delete(t.unconfirmed, itemID)
	return nil
}

// Rollback undoes an optimistic MarkComplete whose write failed. It is a
// no-op for items that were persisted or were already complete before.
// It reports whether the item was removed.
func (t *Tracker) Rollback(itemID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.unconfirmed.Has(itemID) {
		return false
	}
	delete(t.unconfirmed, itemID)
	delete(t.done, itemID)
	return true
}

// Registry hands out one Tracker per learner, loading it on first use.
type Registry struct {
	store Store
	opts  []TrackerOption

	mu       sync.Mutex
	trackers map[string]*Tracker
}

// NewRegistry creates a registry whose trackers share store and opts.
func NewRegistry(store Store, opts ...TrackerOption) *Registry {
	return &Registry{
		store:    store,
		opts:     opts,
		trackers: make(map[string]*Tracker),
	}
}

// Store returns the backing store.
func (r *Registry) Store() Store { return r.store }

// Tracker returns the learner's tracker, creating it if needed.
func (r *Registry) Tracker(ctx context.Context, userID string) (*Tracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.trackers[userID]; ok {
		return t, nil
	}
	t, err := NewTracker(ctx, userID, r.store, r.opts...)
	if err != nil {
		return nil, err
	}
	r.trackers[userID] = t
	return t, nil
}
