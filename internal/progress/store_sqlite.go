package progress

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/suraksha-edu/suraksha/internal/platform/sqlite"
)

// SQLiteStore is a Store backed by the embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps a database opened with sqlite.Open.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Completions(ctx context.Context, userID string) (Set, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id FROM completions WHERE user_id = ? AND completed = 1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()

	out := make(Set)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completions: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, rec CompletionRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	completedAt := rec.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO completions (user_id, item_id, completed, score, completed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, item_id) DO UPDATE
		 SET completed = excluded.completed,
		     score = excluded.score,
		     completed_at = excluded.completed_at`,
		rec.UserID,
		rec.ItemID,
		rec.Completed,
		nullableScore(rec.Score),
		sqlite.FormatTime(completedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert completion: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Records(ctx context.Context, userID string) ([]CompletionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, completed, score, completed_at
		 FROM completions
		 WHERE user_id = ?
		 ORDER BY completed_at ASC, item_id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query completion records: %w", err)
	}
	defer rows.Close()

	var out []CompletionRecord
	for rows.Next() {
		rec := CompletionRecord{UserID: userID}
		var score sql.NullInt64
		var completedAt string
		if err := rows.Scan(&rec.ItemID, &rec.Completed, &score, &completedAt); err != nil {
			return nil, fmt.Errorf("scan completion record: %w", err)
		}
		if score.Valid {
			v := int(score.Int64)
			rec.Score = &v
		}
		if rec.CompletedAt, err = sqlite.ParseTime(completedAt); err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completion records: %w", err)
	}
	return out, nil
}
