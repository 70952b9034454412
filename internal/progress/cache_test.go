package progress_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/suraksha-edu/suraksha/internal/progress"
)

// fakeRedis implements progress.RedisClient over a map.
type fakeRedis struct {
	data    map[string]string
	getErr  error
	delErr  error
	gets    int
	lastTTL time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.gets++
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.lastTTL = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if f.delErr != nil {
		return redis.NewIntResult(0, f.delErr)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

// countingStore counts Completions calls.
type countingStore struct {
	*progress.MemoryStore
	reads int
}

func (s *countingStore) Completions(ctx context.Context, userID string) (progress.Set, error) {
	s.reads++
	return s.MemoryStore.Completions(ctx, userID)
}

func TestCachedStore_ReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: progress.NewMemoryStore()}
	rdb := newFakeRedis()
	store := progress.NewCachedStore(inner, rdb, time.Minute)

	_ = inner.Upsert(ctx, progress.CompletionRecord{UserID: "u1", ItemID: "eq1", Completed: true})

	for range 3 {
		set, err := store.Completions(ctx, "u1")
		if err != nil {
			t.Fatalf("Completions() error = %v", err)
		}
		if !set.Has("eq1") {
			t.Fatalf("Completions() = %v, want eq1", set)
		}
	}
	if inner.reads != 1 {
		t.Errorf("inner reads = %d, want 1 (cached afterwards)", inner.reads)
	}
	if rdb.lastTTL != time.Minute {
		t.Errorf("cache TTL = %v, want 1m", rdb.lastTTL)
	}

	if err := store.Upsert(ctx, progress.CompletionRecord{UserID: "u1", ItemID: "eq2", Completed: true}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	set, _ := store.Completions(ctx, "u1")
	if !set.Has("eq2") {
		t.Error("Completions() served a stale entry after Upsert")
	}
	if inner.reads != 2 {
		t.Errorf("inner reads = %d, want 2", inner.reads)
	}
}

func TestCachedStore_RedisDownFallsBack(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: progress.NewMemoryStore()}
	rdb := newFakeRedis()
	rdb.getErr = errors.New("dial tcp: connection refused")
	store := progress.NewCachedStore(inner, rdb, 0)

	_ = inner.Upsert(ctx, progress.CompletionRecord{UserID: "u1", ItemID: "eq1", Completed: true})
	set, err := store.Completions(ctx, "u1")
	if err != nil {
		t.Fatalf("Completions() error = %v, want fallback", err)
	}
	if !set.Has("eq1") {
		t.Errorf("Completions() = %v, want eq1", set)
	}
}

func TestCachedStore_InvalidationFailureIsReported(t *testing.T) {
	rdb := newFakeRedis()
	rdb.delErr = errors.New("READONLY")
	store := progress.NewCachedStore(progress.NewMemoryStore(), rdb, time.Minute)

	err := store.Upsert(context.Background(), progress.CompletionRecord{UserID: "u1", ItemID: "eq1", Completed: true})
	if err == nil {
		t.Fatal("Upsert() should report a failed invalidation")
	}
}

func TestCachedStore_CorruptEntryIsReplaced(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: progress.NewMemoryStore()}
	rdb := newFakeRedis()
	rdb.data["suraksha:completions:u1"] = "not-json"
	store := progress.NewCachedStore(inner, rdb, time.Minute)

	_ = inner.Upsert(ctx, progress.CompletionRecord{UserID: "u1", ItemID: "eq1", Completed: true})
	set, err := store.Completions(ctx, "u1")
	if err != nil {
		t.Fatalf("Completions() error = %v", err)
	}
	if !set.Has("eq1") {
		t.Errorf("Completions() = %v, want eq1", set)
	}
	if rdb.data["suraksha:completions:u1"] != `["eq1"]` {
		t.Errorf("cached value = %q, want rewritten entry", rdb.data["suraksha:completions:u1"])
	}
}
