package http_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	api "github.com/savolbot/savolbot/internal/api/http"
	"github.com/savolbot/savolbot/internal/catalog"
	"github.com/savolbot/savolbot/internal/db"
	"github.com/savolbot/savolbot/internal/results"
	"github.com/savolbot/savolbot/internal/session"
	"github.com/savolbot/savolbot/internal/storage"
)

type env struct {
	db      *sql.DB
	store   *catalog.SQLStore
	engine  *session.Engine
	handler http.Handler
}

func newEnv(t *testing.T, adminToken string) *env {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite,
		"file:"+filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })

	store := catalog.NewSQLStore(dbh)
	reader := results.NewReader(dbh)
	arc, err := storage.NewArchive(filepath.Join(t.TempDir(), "imports"))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	return &env{
		db:      dbh,
		store:   store,
		engine:  session.NewEngine(dbh, store),
		handler: api.NewRouter(store, reader, arc, adminToken, []string{"http://localhost:3000"}),
	}
}

func TestImportTests(t *testing.T) {
	e := newEnv(t, "")

	body := `{"tests":[
		{"title":"A","questions":[{"text":"Q","options":["x","y"],"correct_index":0}]},
		{"title":"B","questions":[]}]}`
	req := httptest.NewRequest(http.MethodPost, "/tests", strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["imported"] != 2 {
		t.Errorf("imported = %d, want 2", resp["imported"])
	}
}

func TestImportTests_BadDocument(t *testing.T) {
	e := newEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/tests", strings.NewReader(`{"nope":true}`))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListTests(t *testing.T) {
	e := newEnv(t, "")
	if _, err := e.store.Import(context.Background(),
		[]byte(`[{"title":"Solo","questions":[]}]`)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/tests", nil)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var tests []catalog.Test
	if err := json.NewDecoder(rec.Body).Decode(&tests); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tests) != 1 || tests[0].Title != "Solo" {
		t.Errorf("tests = %+v", tests)
	}
}

func TestUserResults(t *testing.T) {
	e := newEnv(t, "")
	ctx := context.Background()

	doc := `[{"title":"T","questions":[{"text":"Q","options":["a"]}]}]`
	if _, err := e.store.Import(ctx, []byte(doc)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	tests, _ := e.store.ListTests(ctx)
	sid, err := e.engine.Create(ctx, 42, tests[0].ID, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := e.engine.Stop(ctx, sid); err != nil {
		t.Fatalf("stop: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/users/42/results?limit=5", nil)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list []results.Result
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].TestTitle != "T" || list[0].Status != session.StatusStopped {
		t.Errorf("results = %+v", list)
	}

	// Bad user id is a 400.
	req = httptest.NewRequest(http.MethodGet, "/users/notanumber/results", nil)
	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad user id status = %d, want 400", rec.Code)
	}
}

func TestAdminToken(t *testing.T) {
	e := newEnv(t, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/tests", nil)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("missing token status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/tests", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("wrong token status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/tests", nil)
	req.Header.Set("X-Admin-Token", "s3cret")
	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", rec.Code)
	}
}
