package session

const (
	StatusActive   = "active"
	StatusStopped  = "stopped"
	StatusFinished = "finished"
)

// Session is one user's attempt at a fixed ordered subset of a test's
// questions. QuestionIDs is a snapshot fixed at creation time; later
// catalog edits cannot change an in-progress session.
type Session struct {
	ID            string  `json:"id"`
	UserID        int64   `json:"user_id"`
	TestID        int64   `json:"test_id"`
	QuestionIDs   []int64 `json:"question_ids"`
	LimitCount    int     `json:"limit_count"`
	CurrentIndex  int     `json:"current_index"`
	CorrectCount  int     `json:"correct_count"`
	TotalAnswered int     `json:"total_answered"`
	Status        string  `json:"status"`
	StartedAt     int64   `json:"started_at"`
	EndedAt       *int64  `json:"ended_at,omitempty"`
}

// Terminal reports whether no further transitions are allowed.
func (s *Session) Terminal() bool {
	return s.Status == StatusStopped || s.Status == StatusFinished
}
