// Package router wires the student handlers and shared middleware into
// one http.Handler.
package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aanand-mishra/student-records/internal/http/handlers/student"
	"github.com/aanand-mishra/student-records/internal/http/middleware/logger"
	"github.com/aanand-mishra/student-records/internal/storage"
)

// New builds the API router.
//
// Route table:
//
//	POST   /api/students            → create a student
//	GET    /api/students            → list, optionally filtered by name|email|address
//	DELETE /api/students?ids=...    → batch delete
//	GET    /api/students/analytics  → aggregate statistics
//	GET    /api/students/{id}       → get one student
//	PUT    /api/students/{id}       → update a student
//	DELETE /api/students/{id}       → delete a student
//	GET    /healthz                 → liveness probe
func New(storage storage.Storage, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.New(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/students", func(r chi.Router) {
		r.Post("/", student.New(storage))
		r.Get("/", student.GetList(storage))
		r.Delete("/", student.DeleteBatch(storage))

		// static segment; chi matches it before the {id} pattern
		r.Get("/analytics", student.Analytics(storage))

		r.Get("/{id}", student.GetByID(storage))
		r.Put("/{id}", student.Update(storage))
		r.Delete("/{id}", student.Delete(storage))
	})

	return r
}
