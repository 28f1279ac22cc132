package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/savolbot/savolbot/internal/catalog"
)

// ErrNoQuestions is returned by Create when the test has no questions.
var ErrNoQuestions = errors.New("test has no questions")

// Catalog is the slice of the catalog store the engine reads.
type Catalog interface {
	QuestionIDs(ctx context.Context, testID int64) ([]int64, error)
	Question(ctx context.Context, id int64) (*catalog.Question, error)
	IsOptionCorrect(ctx context.Context, optionID int64) (bool, error)
}

// Engine owns the quiz session state machine and its persisted records.
// Absent results (missing session, out-of-range step) are reported as a
// nil value with a nil error; callers use that as the completion signal.
type Engine struct {
	db  *sql.DB
	cat Catalog
}

func NewEngine(db *sql.DB, cat Catalog) *Engine {
	return &Engine{db: db, cat: cat}
}

// Create starts a session for userID on testID. The session's question
// sequence is the first min(requested, total) question ids of the test in
// canonical order; requested <= 0 selects all questions.
//
// Create does not enforce the one-active-session-per-user invariant; the
// caller must stop any existing active session for the user immediately
// before calling it.
func (e *Engine) Create(ctx context.Context, userID, testID int64, requested int) (string, error) {
	ids, err := e.cat.QuestionIDs(ctx, testID)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", ErrNoQuestions
	}
	if requested <= 0 || requested > len(ids) {
		requested = len(ids)
	}
	snapshot := ids[:requested]

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = e.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, test_id, questions_json, limit_count, status, started_at)
		 VALUES ($1,$2,$3,$4,$5,'active',$6)`,
		id, userID, testID, string(payload), len(snapshot), time.Now().Unix())
	if err != nil {
		return "", err
	}
	return id, nil
}

// Get returns a session by id, or nil if it does not exist.
func (e *Engine) Get(ctx context.Context, id string) (*Session, error) {
	return e.scanSession(e.db.QueryRowContext(ctx,
		`SELECT id, user_id, test_id, questions_json, limit_count, current_index,
		        correct_count, total_answered, status, started_at, ended_at
		 FROM sessions WHERE id=$1`, id))
}

// Active returns the user's most recent active session, or nil.
func (e *Engine) Active(ctx context.Context, userID int64) (*Session, error) {
	return e.scanSession(e.db.QueryRowContext(ctx,
		`SELECT id, user_id, test_id, questions_json, limit_count, current_index,
		        correct_count, total_answered, status, started_at, ended_at
		 FROM sessions WHERE user_id=$1 AND status='active'
		 ORDER BY started_at DESC, id DESC LIMIT 1`, userID))
}

// QuestionAt resolves the session's snapshot at index. A missing session or
// an out-of-range index yields (nil, nil): "no such step", which doubles as
// the completion signal when advancing.
func (e *Engine) QuestionAt(ctx context.Context, sessionID string, index int) (*catalog.Question, error) {
	s, err := e.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil || index < 0 || index >= len(s.QuestionIDs) {
		return nil, nil
	}
	return e.cat.Question(ctx, s.QuestionIDs[index])
}

// RecordAnswer appends one answer and advances the session pointer by one.
// It is not idempotent: each call is one forward step, so the caller must
// not re-invoke it for an already-advanced step. The option is trusted to
// belong to the question; the pairing is not cross-validated.
func (e *Engine) RecordAnswer(ctx context.Context, sessionID string, questionID, optionID int64) (bool, error) {
	ok, err := e.cat.IsOptionCorrect(ctx, optionID)
	if err != nil {
		return false, err
	}
	correct := 0
	if ok {
		correct = 1
	}

	// One transaction per step: the answer row and the counter update
	// commit together, so concurrent submissions cannot lose updates.
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO answers (id, session_id, question_id, option_id, is_correct, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		uuid.NewString(), sessionID, questionID, optionID, correct, time.Now().Unix()); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions
		 SET total_answered = total_answered + 1,
		     current_index  = current_index + 1,
		     correct_count  = correct_count + $1
		 WHERE id=$2`,
		correct, sessionID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return ok, nil
}

// FinishIfDone transitions the session to finished once the pointer has
// passed the end of the snapshot, and reports whether the session is done.
// Idempotent; a missing session counts as done. Terminal sessions are
// never reactivated.
func (e *Engine) FinishIfDone(ctx context.Context, sessionID string) (bool, error) {
	s, err := e.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if s == nil || s.Status == StatusFinished {
		return true, nil
	}
	if s.CurrentIndex < len(s.QuestionIDs) {
		return false, nil
	}
	if s.Status == StatusActive {
		if _, err := e.db.ExecContext(ctx,
			`UPDATE sessions SET status='finished', ended_at=$1 WHERE id=$2 AND status='active'`,
			time.Now().Unix(), sessionID); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Stop transitions an active session to stopped regardless of progress.
// Re-stopping is harmless, and a finished session stays finished.
func (e *Engine) Stop(ctx context.Context, sessionID string) error {
	_, err := e.db.ExecContext(ctx,
		`UPDATE sessions SET status='stopped', ended_at=$1 WHERE id=$2 AND status='active'`,
		time.Now().Unix(), sessionID)
	return err
}

func (e *Engine) scanSession(row *sql.Row) (*Session, error) {
	var s Session
	var qjson string
	var ended sql.NullInt64
	err := row.Scan(&s.ID, &s.UserID, &s.TestID, &qjson, &s.LimitCount, &s.CurrentIndex,
		&s.CorrectCount, &s.TotalAnswered, &s.Status, &s.StartedAt, &ended)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(qjson), &s.QuestionIDs); err != nil {
		return nil, err
	}
	if ended.Valid {
		s.EndedAt = &ended.Int64
	}
	return &s, nil
}
