package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed progress store. The
// completions table must exist (see database.Migrate).
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Completions(ctx context.Context, userID string) (Set, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT item_id FROM completions WHERE user_id = $1 AND completed`,
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

func (s *PostgresStore) Upsert(ctx context.Context, rec CompletionRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	completedAt := rec.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO completions (user_id, item_id, completed, score, completed_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, item_id) DO UPDATE
		 SET completed = EXCLUDED.completed,
		     score = EXCLUDED.score,
		     completed_at = EXCLUDED.completed_at`,
		rec.UserID,
		rec.ItemID,
		rec.Completed,
		nullableScore(rec.Score),
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert completion: %w", err)
	}
	return nil
}

func (s *PostgresStore) Records(ctx context.Context, userID string) ([]CompletionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT item_id, completed, score, completed_at
		 FROM completions
		 WHERE user_id = $1
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
		if err := rows.Scan(&rec.ItemID, &rec.Completed, &rec.Score, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan completion record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completion records: %w", err)
	}
	return out, nil
}
