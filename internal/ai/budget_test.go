package ai

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestInMemoryBudget_NoLimitIsUnlimited(t *testing.T) {
	ctx := context.Background()
	b := NewInMemoryBudget(0)
	if err := b.Record(ctx, "user1", 1_000_000); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	ok, err := b.Check(ctx, "user1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok {
		t.Error("Check() = false, want true (no limit means unlimited)")
	}
}

func TestInMemoryBudget_Thresholds(t *testing.T) {
	tests := []struct {
		name   string
		record []int
		want   bool
	}{
		{"within", []int{500}, true},
		{"exact", []int{100, 900}, false},
		{"over", []int{1500}, false},
		{"many small", []int{100, 200, 300}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			b := NewInMemoryBudget(1000)
			for _, tokens := range tt.record {
				if err := b.Record(ctx, "user1", tokens); err != nil {
					t.Fatalf("Record() error = %v", err)
				}
			}
			ok, err := b.Check(ctx, "user1")
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if ok != tt.want {
				t.Errorf("Check() = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestInMemoryBudget_UsageAndOverride(t *testing.T) {
	ctx := context.Background()
	b := NewInMemoryBudget(1000)
	b.SetBudget("user2", 200)

	_ = b.Record(ctx, "user1", 600)
	_ = b.Record(ctx, "user2", 50)

	used, limit, err := b.Usage(ctx, "user1")
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if used != 600 || limit != 1000 {
		t.Errorf("user1 usage = %d/%d, want 600/1000", used, limit)
	}
	used, limit, _ = b.Usage(ctx, "user2")
	if used != 50 || limit != 200 {
		t.Errorf("user2 usage = %d/%d, want 50/200", used, limit)
	}
}

func TestInMemoryBudget_ResetsEachDay(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	b := NewInMemoryBudget(100)
	b.SetClock(func() time.Time { return now })

	_ = b.Record(ctx, "user1", 100)
	if ok, _ := b.Check(ctx, "user1"); ok {
		t.Fatal("Check() = true, want false after spending the day's budget")
	}

	now = now.Add(time.Hour)
	if ok, _ := b.Check(ctx, "user1"); !ok {
		t.Error("Check() = false on the next day, want true")
	}
}

func TestInMemoryBudget_NegativeTokens(t *testing.T) {
	b := NewInMemoryBudget(100)
	if err := b.Record(context.Background(), "user1", -10); err == nil {
		t.Fatal("Record() should return error for negative tokens")
	}
}

// fakeCounter implements BudgetClient over a map.
type fakeCounter struct {
	data    map[string]int64
	ttls    map[string]time.Duration
	failAll error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{data: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCounter) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failAll != nil {
		return redis.NewStringResult("", f.failAll)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(strconv.FormatInt(v, 10), nil)
}

func (f *fakeCounter) IncrBy(_ context.Context, key string, value int64) *redis.IntCmd {
	if f.failAll != nil {
		return redis.NewIntResult(0, f.failAll)
	}
	f.data[key] += value
	return redis.NewIntResult(f.data[key], nil)
}

func (f *fakeCounter) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func TestRedisBudget_RecordAndCheck(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeCounter()
	b := NewRedisBudget(rdb, 100)
	b.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	if ok, err := b.Check(ctx, "user1"); err != nil || !ok {
		t.Fatalf("Check() before use = %v, %v; want true, nil", ok, err)
	}
	if err := b.Record(ctx, "user1", 60); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := b.Record(ctx, "user1", 40); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	key := "suraksha:budget:user1:20260301"
	if rdb.data[key] != 100 {
		t.Errorf("counter = %d, want 100", rdb.data[key])
	}
	if rdb.ttls[key] != 25*time.Hour {
		t.Errorf("ttl = %v, want 25h", rdb.ttls[key])
	}
	if ok, _ := b.Check(ctx, "user1"); ok {
		t.Error("Check() = true at the limit, want false")
	}

	used, limit, err := b.Usage(ctx, "user1")
	if err != nil || used != 100 || limit != 100 {
		t.Errorf("Usage() = %d, %d, %v; want 100, 100, nil", used, limit, err)
	}
}

func TestRedisBudget_PropagatesErrors(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeCounter()
	rdb.failAll = errors.New("connection refused")
	b := NewRedisBudget(rdb, 100)

	if _, err := b.Check(ctx, "user1"); err == nil {
		t.Error("Check() should fail when Redis is down")
	}
	if err := b.Record(ctx, "user1", 5); err == nil {
		t.Error("Record() should fail when Redis is down")
	}
}

func TestRedisBudget_UnlimitedSkipsRedis(t *testing.T) {
	rdb := newFakeCounter()
	rdb.failAll = errors.New("connection refused")
	b := NewRedisBudget(rdb, 0)

	ok, err := b.Check(context.Background(), "user1")
	if err != nil || !ok {
		t.Errorf("Check() = %v, %v; want true, nil", ok, err)
	}
}
