package catalog_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/savolbot/savolbot/internal/catalog"
	"github.com/savolbot/savolbot/internal/db"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite,
		"file:"+filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	return dbh
}

func TestListTests_NewestFirst(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewSQLStore(newTestDB(t))

	for _, doc := range []string{
		`[{"title":"First","questions":[]}]`,
		`[{"title":"Second","questions":[]}]`,
	} {
		if _, err := store.Import(ctx, []byte(doc)); err != nil {
			t.Fatalf("import: %v", err)
		}
	}

	tests, err := store.ListTests(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tests) != 2 {
		t.Fatalf("got %d tests, want 2", len(tests))
	}
	if tests[0].Title != "Second" || tests[1].Title != "First" {
		t.Errorf("order = [%s, %s], want newest first", tests[0].Title, tests[1].Title)
	}
}

func TestQuestions_AscendingOrder(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewSQLStore(newTestDB(t))

	doc := `[{"title":"T","questions":[
		{"text":"Q1","options":["a","b"]},
		{"text":"Q2","options":["a","b"]},
		{"text":"Q3","options":["a","b"]}]}]`
	if _, err := store.Import(ctx, []byte(doc)); err != nil {
		t.Fatalf("import: %v", err)
	}
	tests, _ := store.ListTests(ctx)

	qs, err := store.Questions(ctx, tests[0].ID)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(qs) != 3 {
		t.Fatalf("got %d questions, want 3", len(qs))
	}
	for i := 1; i < len(qs); i++ {
		if qs[i].ID <= qs[i-1].ID {
			t.Errorf("questions not ascending by id: %v then %v", qs[i-1].ID, qs[i].ID)
		}
	}
	if qs[0].Text != "Q1" || qs[2].Text != "Q3" {
		t.Errorf("unexpected question texts: %q, %q", qs[0].Text, qs[2].Text)
	}

	ids, err := store.QuestionIDs(ctx, tests[0].ID)
	if err != nil {
		t.Fatalf("question ids: %v", err)
	}
	if len(ids) != 3 || ids[0] != qs[0].ID || ids[2] != qs[2].ID {
		t.Errorf("QuestionIDs = %v, want ids of %v", ids, qs)
	}
}

func TestIsOptionCorrect(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewSQLStore(newTestDB(t))

	doc := `[{"title":"T","questions":[{"text":"Q","options":[
		{"text":"right","is_correct":true},{"text":"wrong"}]}]}]`
	if _, err := store.Import(ctx, []byte(doc)); err != nil {
		t.Fatalf("import: %v", err)
	}
	tests, _ := store.ListTests(ctx)
	qs, _ := store.Questions(ctx, tests[0].ID)
	opts, err := store.Options(ctx, qs[0].ID)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if len(opts) != 2 {
		t.Fatalf("got %d options, want 2", len(opts))
	}

	ok, err := store.IsOptionCorrect(ctx, opts[0].ID)
	if err != nil || !ok {
		t.Errorf("IsOptionCorrect(right) = %v, %v; want true, nil", ok, err)
	}
	ok, err = store.IsOptionCorrect(ctx, opts[1].ID)
	if err != nil || ok {
		t.Errorf("IsOptionCorrect(wrong) = %v, %v; want false, nil", ok, err)
	}
	// A missing option is not correct, not an error.
	ok, err = store.IsOptionCorrect(ctx, 99999)
	if err != nil || ok {
		t.Errorf("IsOptionCorrect(missing) = %v, %v; want false, nil", ok, err)
	}
}

func TestCorrectOption(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewSQLStore(newTestDB(t))

	doc := `[{"title":"T","questions":[
		{"text":"Q1","options":[{"text":"no"},{"text":"yes","is_correct":true}]},
		{"text":"Q2","options":[{"text":"a"},{"text":"b"}]}]}]`
	if _, err := store.Import(ctx, []byte(doc)); err != nil {
		t.Fatalf("import: %v", err)
	}
	tests, _ := store.ListTests(ctx)
	qs, _ := store.Questions(ctx, tests[0].ID)

	corr, err := store.CorrectOption(ctx, qs[0].ID)
	if err != nil {
		t.Fatalf("correct option: %v", err)
	}
	if corr == nil || corr.Text != "yes" {
		t.Errorf("CorrectOption(Q1) = %+v, want the option marked correct", corr)
	}

	// Zero correct options is a permitted degenerate state.
	corr, err = store.CorrectOption(ctx, qs[1].ID)
	if err != nil {
		t.Fatalf("correct option: %v", err)
	}
	if corr != nil {
		t.Errorf("CorrectOption(Q2) = %+v, want nil", corr)
	}
}

func TestQuestion_Missing(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewSQLStore(newTestDB(t))

	q, err := store.Question(ctx, 12345)
	if err != nil {
		t.Fatalf("question: %v", err)
	}
	if q != nil {
		t.Errorf("Question(missing) = %+v, want nil", q)
	}
}
