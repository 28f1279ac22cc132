package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrBadDocument means the top-level shape of an import document is not a
// test list. Malformed entries inside a valid document never raise it;
// they are dropped instead.
var ErrBadDocument = errors.New("invalid tests document")

type rawTest struct {
	Title       string        `json:"title"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Questions   []rawQuestion `json:"questions"`
}

type rawQuestion struct {
	Text         string            `json:"text"`
	Question     string            `json:"question"`
	Options      []json.RawMessage `json:"options"`
	Answers      []json.RawMessage `json:"answers"`
	CorrectIndex *int              `json:"correct_index"`
	Correct      []int             `json:"correct"`
}

type rawOption struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type normOption struct {
	text    string
	correct bool
}

type normQuestion struct {
	text    string
	options []normOption
}

type normTest struct {
	title       string
	description string
	questions   []normQuestion
}

// Import normalizes a heterogeneous tests document and inserts it.
// The document is either a bare JSON array of tests or an object with a
// "tests" array. Tests without a usable title, questions without text and
// options without text are silently skipped. Returns the number of tests
// actually inserted.
func (s *SQLStore) Import(ctx context.Context, doc []byte) (int, error) {
	tests, err := parseDocument(doc)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	count := 0
	for _, t := range tests {
		if t.title == "" {
			continue
		}
		var testID int64
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO tests (title, description, created_at) VALUES ($1,$2,$3) RETURNING id`,
			t.title, nullable(t.description), now).Scan(&testID); err != nil {
			return 0, err
		}
		for _, q := range t.questions {
			if q.text == "" {
				continue
			}
			var questionID int64
			if err := tx.QueryRowContext(ctx,
				`INSERT INTO questions (test_id, text) VALUES ($1,$2) RETURNING id`,
				testID, q.text).Scan(&questionID); err != nil {
				return 0, err
			}
			for _, o := range q.options {
				if o.text == "" {
					continue
				}
				correct := 0
				if o.correct {
					correct = 1
				}
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO options (question_id, text, is_correct) VALUES ($1,$2,$3)`,
					questionID, o.text, correct); err != nil {
					return 0, err
				}
			}
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

func parseDocument(doc []byte) ([]normTest, error) {
	trimmed := bytes.TrimSpace(doc)
	var items []rawTest
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadDocument, err)
		}
	case len(trimmed) > 0 && trimmed[0] == '{':
		var wrapper struct {
			Tests *[]rawTest `json:"tests"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadDocument, err)
		}
		if wrapper.Tests == nil {
			return nil, fmt.Errorf("%w: missing \"tests\" list", ErrBadDocument)
		}
		items = *wrapper.Tests
	default:
		return nil, ErrBadDocument
	}

	out := make([]normTest, 0, len(items))
	for _, t := range items {
		out = append(out, normalizeTest(t))
	}
	return out, nil
}

func normalizeTest(t rawTest) normTest {
	title := t.Title
	if title == "" {
		title = t.Name
	}
	nt := normTest{title: title, description: t.Description}
	for _, q := range t.Questions {
		text := q.Text
		if text == "" {
			text = q.Question
		}
		opts := q.Options
		if len(opts) == 0 {
			opts = q.Answers
		}
		nq := normQuestion{text: text}
		for idx, raw := range opts {
			nq.options = append(nq.options, normalizeOption(raw, idx, q))
		}
		nt.questions = append(nt.questions, nq)
	}
	return nt
}

// normalizeOption handles both option encodings: an object carrying its own
// is_correct flag, or a bare string whose correctness is given positionally
// via correct_index or the correct index set. When both positional forms are
// present, the correct set wins.
func normalizeOption(raw json.RawMessage, idx int, q rawQuestion) normOption {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var o rawOption
		if err := json.Unmarshal(trimmed, &o); err != nil {
			return normOption{}
		}
		return normOption{text: o.Text, correct: o.IsCorrect}
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return normOption{}
	}
	correct := false
	if q.CorrectIndex != nil && idx == *q.CorrectIndex {
		correct = true
	}
	if q.Correct != nil {
		correct = false
		for _, i := range q.Correct {
			if i == idx {
				correct = true
			}
		}
	}
	return normOption{text: text, correct: correct}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
