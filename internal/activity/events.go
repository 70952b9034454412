// Package activity records learner analytics events.
package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/suraksha-edu/suraksha/internal/platform/sqlite"
)

const dbTimeout = 5 * time.Second

// Event types.
const (
	ItemCompleted  = "item_completed"
	AttemptStarted = "attempt_started"
	AttemptGraded  = "attempt_graded"
)

// Event represents an analytics event persisted to the events table.
type Event struct {
	UserID    string
	EventType string
	Data      map[string]any
	CreatedAt time.Time
}

// Logger defines event logging behavior.
type Logger interface {
	LogEvent(ctx context.Context, event Event) error
}

// NopLogger ignores all events.
type NopLogger struct{}

func (NopLogger) LogEvent(context.Context, Event) error {
	return nil
}

// MemoryLogger stores events in memory for tests.
type MemoryLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{
		events: []Event{},
	}
}

func (l *MemoryLogger) LogEvent(_ context.Context, event Event) error {
	if err := validate(event); err != nil {
		return err
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// PostgresLogger inserts events into the events table.
type PostgresLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresLogger(pool *pgxpool.Pool) *PostgresLogger {
	return &PostgresLogger{pool: pool}
}

func (l *PostgresLogger) LogEvent(ctx context.Context, event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if err := validate(event); err != nil {
		return err
	}
	data, err := marshalData(event.Data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = l.pool.Exec(ctx,
		`INSERT INTO events (user_id, event_type, data, created_at)
		 VALUES ($1, $2, $3::jsonb, $4)`,
		event.UserID,
		event.EventType,
		data,
		createdAt(event),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged", "type", event.EventType, "user_id", event.UserID)
	return nil
}

// SQLiteLogger inserts events into the embedded database.
type SQLiteLogger struct {
	db *sql.DB
}

func NewSQLiteLogger(db *sql.DB) *SQLiteLogger {
	return &SQLiteLogger{db: db}
}

func (l *SQLiteLogger) LogEvent(ctx context.Context, event Event) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("event logger db is nil")
	}
	if err := validate(event); err != nil {
		return err
	}
	data, err := marshalData(event.Data)
	if err != nil {
		return err
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO events (user_id, event_type, data, created_at) VALUES (?, ?, ?, ?)`,
		event.UserID,
		event.EventType,
		data,
		sqlite.FormatTime(createdAt(event)),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged", "type", event.EventType, "user_id", event.UserID)
	return nil
}

// Log records event on l and only warns on failure; analytics never fail
// the request that produced them.
func Log(ctx context.Context, l Logger, event Event) {
	if l == nil {
		return
	}
	if err := l.LogEvent(ctx, event); err != nil {
		slog.Warn("failed to log event", "type", event.EventType, "user_id", event.UserID, "error", err)
	}
}

func validate(event Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	return nil
}

func marshalData(data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal event data: %w", err)
	}
	return string(b), nil
}

func createdAt(event Event) time.Time {
	if event.CreatedAt.IsZero() {
		return time.Now()
	}
	return event.CreatedAt
}
