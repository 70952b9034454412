package quiz

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresResultSink appends results to the attempt_results table.
type PostgresResultSink struct {
	pool *pgxpool.Pool
}

// NewPostgresResultSink creates a PostgreSQL-backed result sink.
func NewPostgresResultSink(pool *pgxpool.Pool) (*PostgresResultSink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresResultSink{pool: pool}, nil
}

func (s *PostgresResultSink) Record(ctx context.Context, userID string, r AttemptResult) error {
	if err := validateResult(userID, r); err != nil {
		return err
	}
	outcomes, err := json.Marshal(r.Outcomes)
	if err != nil {
		return fmt.Errorf("marshal outcomes: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO attempt_results
		   (attempt_id, user_id, bank_id, status, score, max_score, points, max_points,
		    percentage, passed, badge, elapsed_seconds, outcomes, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::jsonb, $14)`,
		r.AttemptID, userID, r.BankID, string(r.Status), r.Score, r.MaxScore, r.Points, r.MaxPoints,
		r.Percentage, r.Passed, string(r.Badge), r.ElapsedSeconds, string(outcomes), completedAt(r),
	)
	if err != nil {
		return fmt.Errorf("insert attempt result: %w", err)
	}
	return nil
}

func (s *PostgresResultSink) Recent(ctx context.Context, userID string, limit int) ([]AttemptResult, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := `SELECT attempt_id, bank_id, status, score, max_score, points, max_points,
	                 percentage, passed, badge, elapsed_seconds, outcomes, completed_at
	          FROM attempt_results
	          WHERE user_id = $1
	          ORDER BY completed_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempt results: %w", err)
	}
	defer rows.Close()

	var out []AttemptResult
	for rows.Next() {
		r := AttemptResult{UserID: userID}
		var status, badge string
		var outcomes []byte
		if err := rows.Scan(
			&r.AttemptID, &r.BankID, &status, &r.Score, &r.MaxScore, &r.Points, &r.MaxPoints,
			&r.Percentage, &r.Passed, &badge, &r.ElapsedSeconds, &outcomes, &r.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attempt result: %w", err)
		}
		r.Status = Status(status)
		r.Badge = Badge(badge)
		if err := json.Unmarshal(outcomes, &r.Outcomes); err != nil {
			return nil, fmt.Errorf("decode outcomes: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempt results: %w", err)
	}
	return out, nil
}
