package ai

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/suraksha-edu/suraksha/internal/platform/cache"
)

// ErrBudgetExceeded is returned when a learner has used up today's tokens.
var ErrBudgetExceeded = errors.New("daily token budget exceeded")

// BudgetChecker checks and records token usage against a daily budget.
// Usage windows roll over at UTC midnight.
type BudgetChecker interface {
	// Check returns true if the user has budget remaining today.
	Check(ctx context.Context, userID string) (bool, error)
	// Record adds token usage for the user to today's window.
	Record(ctx context.Context, userID string, tokens int) error
	// Usage returns today's usage and the limit. A zero limit means unlimited.
	Usage(ctx context.Context, userID string) (used int64, limit int64, err error)
}

func dayKey(t time.Time) string {
	return t.UTC().Format("20060102")
}

// InMemoryBudget is an in-process budget tracker for development and tests.
type InMemoryBudget struct {
	mu        sync.RWMutex
	limit     int64
	overrides map[string]int64 // userID -> limit
	usage     map[string]int64 // userID:day -> tokens used
	now       func() time.Time
}

// NewInMemoryBudget creates a tracker with the given daily limit per user.
// A limit of zero or less disables enforcement.
func NewInMemoryBudget(limit int64) *InMemoryBudget {
	return &InMemoryBudget{
		limit:     limit,
		overrides: make(map[string]int64),
		usage:     make(map[string]int64),
		now:       time.Now,
	}
}

// SetBudget overrides the daily limit for a single user.
func (b *InMemoryBudget) SetBudget(userID string, tokens int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides[userID] = tokens
}

// SetClock replaces the time source. Used by tests to cross day boundaries.
func (b *InMemoryBudget) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

func (b *InMemoryBudget) limitFor(userID string) int64 {
	if l, ok := b.overrides[userID]; ok {
		return l
	}
	return b.limit
}

func (b *InMemoryBudget) Check(_ context.Context, userID string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	limit := b.limitFor(userID)
	if limit <= 0 {
		return true, nil
	}
	return b.usage[userID+":"+dayKey(b.now())] < limit, nil
}

func (b *InMemoryBudget) Record(_ context.Context, userID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage[userID+":"+dayKey(b.now())] += int64(tokens)
	return nil
}

func (b *InMemoryBudget) Usage(_ context.Context, userID string) (int64, int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	limit := b.limitFor(userID)
	if limit < 0 {
		limit = 0
	}
	return b.usage[userID+":"+dayKey(b.now())], limit, nil
}

// BudgetClient is the subset of the go-redis client used by RedisBudget.
type BudgetClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	IncrBy(ctx context.Context, key string, value int64) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisBudget keeps daily usage counters in Redis so every server
// instance enforces the same budget.
type RedisBudget struct {
	client BudgetClient
	limit  int64
	now    func() time.Time
}

// NewRedisBudget creates a Redis-backed budget with the given daily limit.
func NewRedisBudget(client BudgetClient, limit int64) *RedisBudget {
	return &RedisBudget{client: client, limit: limit, now: time.Now}
}

func (b *RedisBudget) key(userID string) string {
	return cache.Key("budget", userID, dayKey(b.now()))
}

func (b *RedisBudget) used(ctx context.Context, userID string) (int64, error) {
	raw, err := b.client.Get(ctx, b.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading budget: %w", err)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing budget counter %q: %w", raw, err)
	}
	return n, nil
}

func (b *RedisBudget) Check(ctx context.Context, userID string) (bool, error) {
	if b.limit <= 0 {
		return true, nil
	}
	used, err := b.used(ctx, userID)
	if err != nil {
		return false, err
	}
	return used < b.limit, nil
}

func (b *RedisBudget) Record(ctx context.Context, userID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}
	key := b.key(userID)
	total, err := b.client.IncrBy(ctx, key, int64(tokens)).Result()
	if err != nil {
		return fmt.Errorf("recording budget: %w", err)
	}
	// First write of the day sets the expiry.
	if total == int64(tokens) {
		if err := b.client.Expire(ctx, key, 25*time.Hour).Err(); err != nil {
			return fmt.Errorf("setting budget expiry: %w", err)
		}
	}
	return nil
}

func (b *RedisBudget) Usage(ctx context.Context, userID string) (int64, int64, error) {
	used, err := b.used(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	limit := b.limit
	if limit < 0 {
		limit = 0
	}
	return used, limit, nil
}
