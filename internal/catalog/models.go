package catalog

// Test is a named quiz composed of ordered questions.
type Test struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

// Question belongs to exactly one Test. Ascending id is the canonical
// order consumed by session creation.
type Question struct {
	ID     int64  `json:"id"`
	TestID int64  `json:"test_id"`
	Text   string `json:"text"`
}

type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
}
