package activity_test

import (
	"context"
	"testing"

	"github.com/suraksha-edu/suraksha/internal/activity"
	"github.com/suraksha-edu/suraksha/internal/platform/database/dbtest"
	"github.com/suraksha-edu/suraksha/internal/platform/sqlite"
)

func TestMemoryLogger_LogEvent(t *testing.T) {
	logger := activity.NewMemoryLogger()

	err := logger.LogEvent(context.Background(), activity.Event{
		UserID:    "user-1",
		EventType: activity.ItemCompleted,
		Data: map[string]any{
			"item_id": "eq1",
		},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].EventType != activity.ItemCompleted {
		t.Errorf("EventType = %q, want %s", events[0].EventType, activity.ItemCompleted)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMemoryLogger_RejectsIncompleteEvents(t *testing.T) {
	logger := activity.NewMemoryLogger()
	ctx := context.Background()

	if err := logger.LogEvent(ctx, activity.Event{UserID: "u"}); err == nil {
		t.Error("expected error for missing event type")
	}
	if err := logger.LogEvent(ctx, activity.Event{EventType: activity.AttemptStarted}); err == nil {
		t.Error("expected error for missing user")
	}
}

func TestPostgresLogger_LogEvent_NilPool(t *testing.T) {
	logger := activity.NewPostgresLogger(nil)

	err := logger.LogEvent(context.Background(), activity.Event{
		UserID:    "user-1",
		EventType: activity.AttemptStarted,
	})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestSQLiteLogger_LogEvent(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := activity.NewSQLiteLogger(db)
	if err := logger.LogEvent(ctx, activity.Event{
		UserID:    "user-1",
		EventType: activity.AttemptGraded,
		Data:      map[string]any{"percentage": 72},
	}); err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE event_type = ?`, activity.AttemptGraded).Scan(&n); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if n != 1 {
		t.Errorf("events = %d, want 1", n)
	}
}

func TestPostgresLogger_LogEvent(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()

	logger := activity.NewPostgresLogger(pool)
	if err := logger.LogEvent(ctx, activity.Event{UserID: "user-1", EventType: activity.ItemCompleted}); err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	var data string
	if err := pool.QueryRow(ctx, `SELECT data::text FROM events WHERE user_id = $1`, "user-1").Scan(&data); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if data != "{}" {
		t.Errorf("data = %q, want {}", data)
	}
}

func TestLog_IgnoresFailures(t *testing.T) {
	// Must not panic on a nil logger or a failing one.
	activity.Log(context.Background(), nil, activity.Event{})
	activity.Log(context.Background(), activity.NewPostgresLogger(nil), activity.Event{UserID: "u", EventType: "x"})
}
