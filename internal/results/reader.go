package results

import (
	"context"
	"database/sql"
)

// Result is one row of a user's session history.
type Result struct {
	SessionID     string `json:"session_id"`
	TestTitle     string `json:"test_title"`
	CorrectCount  int    `json:"correct_count"`
	TotalAnswered int    `json:"total_answered"`
	Status        string `json:"status"`
	StartedAt     int64  `json:"started_at"`
	EndedAt       *int64 `json:"ended_at,omitempty"`
}

// Reader aggregates past sessions per user. Read-only.
type Reader struct {
	db *sql.DB
}

func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// Recent returns the user's sessions, most recent first, joined with the
// test title. limit <= 0 defaults to 5.
func (r *Reader) Recent(ctx context.Context, userID int64, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, t.title, s.correct_count, s.total_answered, s.status, s.started_at, s.ended_at
		 FROM sessions s
		 JOIN tests t ON t.id = s.test_id
		 WHERE s.user_id = $1
		 ORDER BY s.started_at DESC, s.id DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var res Result
		var ended sql.NullInt64
		if err := rows.Scan(&res.SessionID, &res.TestTitle, &res.CorrectCount,
			&res.TotalAnswered, &res.Status, &res.StartedAt, &ended); err != nil {
			return nil, err
		}
		if ended.Valid {
			res.EndedAt = &ended.Int64
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
