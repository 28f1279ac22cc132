package catalog

import (
	"context"
	"database/sql"
	"errors"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// ListTests returns all tests, most recently created first.
func (s *SQLStore) ListTests(ctx context.Context) ([]Test, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, COALESCE(description,''), created_at FROM tests ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Test
	for rows.Next() {
		var t Test
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Questions returns a test's questions ascending by id. This ordering
// defines the canonical question sequence for the test.
func (s *SQLStore) Questions(ctx context.Context, testID int64) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, test_id, text FROM questions WHERE test_id=$1 ORDER BY id ASC`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.TestID, &q.Text); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// QuestionIDs returns a test's question ids in canonical (ascending-id) order.
func (s *SQLStore) QuestionIDs(ctx context.Context, testID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM questions WHERE test_id=$1 ORDER BY id ASC`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Question returns one question by id, or nil if it does not exist.
func (s *SQLStore) Question(ctx context.Context, id int64) (*Question, error) {
	var q Question
	err := s.db.QueryRowContext(ctx,
		`SELECT id, test_id, text FROM questions WHERE id=$1`, id).
		Scan(&q.ID, &q.TestID, &q.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Options returns a question's options ascending by id.
func (s *SQLStore) Options(ctx context.Context, questionID int64) ([]Option, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question_id, text, is_correct FROM options WHERE question_id=$1 ORDER BY id ASC`,
		questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Option
	for rows.Next() {
		var o Option
		var correct int
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &correct); err != nil {
			return nil, err
		}
		o.IsCorrect = correct != 0
		out = append(out, o)
	}
	return out, rows.Err()
}

// IsOptionCorrect reports whether the option is flagged correct.
// A missing option is simply not correct.
func (s *SQLStore) IsOptionCorrect(ctx context.Context, optionID int64) (bool, error) {
	var correct int
	err := s.db.QueryRowContext(ctx,
		`SELECT is_correct FROM options WHERE id=$1`, optionID).Scan(&correct)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return correct != 0, nil
}

// CorrectOption returns the first option flagged correct for the question,
// or nil if none is. Questions with no correct option are a permitted
// degenerate state, not an error.
func (s *SQLStore) CorrectOption(ctx context.Context, questionID int64) (*Option, error) {
	var o Option
	err := s.db.QueryRowContext(ctx,
		`SELECT id, question_id, text FROM options WHERE question_id=$1 AND is_correct=1 ORDER BY id ASC LIMIT 1`,
		questionID).Scan(&o.ID, &o.QuestionID, &o.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.IsCorrect = true
	return &o, nil
}
