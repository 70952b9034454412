package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/suraksha-edu/suraksha/internal/platform/sqlite"
)

// SQLiteResultSink appends results to the embedded database.
type SQLiteResultSink struct {
	db *sql.DB
}

// NewSQLiteResultSink wraps a database opened with sqlite.Open.
func NewSQLiteResultSink(db *sql.DB) (*SQLiteResultSink, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &SQLiteResultSink{db: db}, nil
}

func (s *SQLiteResultSink) Record(ctx context.Context, userID string, r AttemptResult) error {
	if err := validateResult(userID, r); err != nil {
		return err
	}
	outcomes, err := json.Marshal(r.Outcomes)
	if err != nil {
		return fmt.Errorf("marshal outcomes: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO attempt_results
		   (attempt_id, user_id, bank_id, status, score, max_score, points, max_points,
		    percentage, passed, badge, elapsed_seconds, outcomes, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.AttemptID, userID, r.BankID, string(r.Status), r.Score, r.MaxScore, r.Points, r.MaxPoints,
		r.Percentage, r.Passed, string(r.Badge), r.ElapsedSeconds, string(outcomes),
		sqlite.FormatTime(completedAt(r)),
	)
	if err != nil {
		return fmt.Errorf("insert attempt result: %w", err)
	}
	return nil
}

func (s *SQLiteResultSink) Recent(ctx context.Context, userID string, limit int) ([]AttemptResult, error) {
	query := `SELECT attempt_id, bank_id, status, score, max_score, points, max_points,
	                 percentage, passed, badge, elapsed_seconds, outcomes, completed_at
	          FROM attempt_results
	          WHERE user_id = ?
	          ORDER BY completed_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempt results: %w", err)
	}
	defer rows.Close()

	var out []AttemptResult
	for rows.Next() {
		r := AttemptResult{UserID: userID}
		var status, badge, outcomes, at string
		if err := rows.Scan(
			&r.AttemptID, &r.BankID, &status, &r.Score, &r.MaxScore, &r.Points, &r.MaxPoints,
			&r.Percentage, &r.Passed, &badge, &r.ElapsedSeconds, &outcomes, &at,
		); err != nil {
			return nil, fmt.Errorf("scan attempt result: %w", err)
		}
		r.Status = Status(status)
		r.Badge = Badge(badge)
		if err := json.Unmarshal([]byte(outcomes), &r.Outcomes); err != nil {
			return nil, fmt.Errorf("decode outcomes: %w", err)
		}
		if r.CompletedAt, err = sqlite.ParseTime(at); err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempt results: %w", err)
	}
	return out, nil
}
