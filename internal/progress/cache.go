package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/suraksha-edu/suraksha/internal/platform/cache"
)

// CachedStore serves Completions from Redis, falling back to the wrapped
// store on a miss. Writes go to the wrapped store first and then drop the
// cached entry. Redis read failures degrade to uncached reads; a failed
// invalidation is reported because the stale entry would hide the write.
type CachedStore struct {
	next   Store
	client RedisClient
	ttl    time.Duration
}

// RedisClient is the subset of redis.Cmdable used by CachedStore.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// NewCachedStore wraps next with a Redis read-through cache.
func NewCachedStore(next Store, client RedisClient, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedStore{next: next, client: client, ttl: ttl}
}

func completionsKey(userID string) string {
	return cache.Key("completions", userID)
}

func (s *CachedStore) Completions(ctx context.Context, userID string) (Set, error) {
	key := completionsKey(userID)

	ids, found, err := cache.GetJSON[[]string](ctx, s.client, key)
	switch {
	case found:
		return NewSet(ids...), nil
	case errors.Is(err, cache.ErrCorrupt):
		slog.Warn("discarding corrupt cached completions", "user_id", userID)
	case err != nil:
		slog.Warn("completions cache read failed", "user_id", userID, "error", err)
	}

	set, err := s.next.Completions(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids = make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	if err := cache.SetJSON(ctx, s.client, key, ids, s.ttl); err != nil {
		slog.Warn("completions cache write failed", "user_id", userID, "error", err)
	}
	return set, nil
}

func (s *CachedStore) Upsert(ctx context.Context, rec CompletionRecord) error {
	if err := s.next.Upsert(ctx, rec); err != nil {
		return err
	}
	if err := s.client.Del(ctx, completionsKey(rec.UserID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached completions: %w", err)
	}
	return nil
}

func (s *CachedStore) Records(ctx context.Context, userID string) ([]CompletionRecord, error) {
	return s.next.Records(ctx, userID)
}
