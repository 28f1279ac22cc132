package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/savolbot/savolbot/internal/catalog"
	"github.com/savolbot/savolbot/internal/results"
	"github.com/savolbot/savolbot/internal/storage"
)

// NewRouter builds the admin API surface. adminToken == "" disables the
// token check (dev only); anything stronger than this static allow-list
// token is deliberately out of scope.
func NewRouter(store *catalog.SQLStore, reader *results.Reader, arc *storage.Archive,
	adminToken string, corsOrigins []string) http.Handler {

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Admin-Token"},
		MaxAge:         300,
	}))

	r.Group(func(pr chi.Router) {
		pr.Use(requireAdminToken(adminToken))
		pr.Post("/tests", ImportTestsHandler(store, arc))
		pr.Get("/tests", ListTestsHandler(store))
		pr.Get("/users/{userID}/results", UserResultsHandler(reader))
	})

	return r
}

func requireAdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && r.Header.Get("X-Admin-Token") != token {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
