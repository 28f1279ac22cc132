package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/savolbot/savolbot/internal/catalog"
	"github.com/savolbot/savolbot/internal/results"
	"github.com/savolbot/savolbot/internal/storage"
)

// POST /tests — import a tests document (array or {"tests": [...]}).
// Malformed entries inside a valid document are dropped; the response
// carries the number of tests actually inserted.
func ImportTestsHandler(store *catalog.SQLStore, arc *storage.Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 10<<20))
		if err != nil {
			http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
			return
		}
		n, err := store.Import(r.Context(), body)
		if errors.Is(err, catalog.ErrBadDocument) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		// Archival is best-effort; the import already committed.
		if _, err := arc.Save("http-import.json", body); err != nil {
			log.Printf("archive import: %v", err)
		}
		writeJSON(w, map[string]int{"imported": n})
	}
}

// GET /tests
func ListTestsHandler(store *catalog.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tests, err := store.ListTests(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if tests == nil {
			tests = []catalog.Test{}
		}
		writeJSON(w, tests)
	}
}

// GET /users/{userID}/results?limit=10
func UserResultsHandler(reader *results.Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
		if err != nil {
			http.Error(w, "bad user id", http.StatusBadRequest)
			return
		}
		limit := parseIntDefault(r.URL.Query().Get("limit"), 10)
		list, err := reader.Recent(r.Context(), userID, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []results.Result{}
		}
		writeJSON(w, list)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
