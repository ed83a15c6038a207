// Package student contains all HTTP handlers related to the Student resource.
//
// HANDLER PATTERN USED HERE — THE CLOSURE / FACTORY PATTERN:
// ────────────────────────────────────────────────────────────
// The router expects handler functions with the signature:
//
//	func(http.ResponseWriter, *http.Request)
//
// To inject the storage dependency each handler is built by a factory
// that accepts a storage.Storage and returns a closure over it:
//
//	r.Post("/", student.New(storage))
//	//          ^^^^^^^^^^^^^^^^^^^^
//	//          called ONCE at startup; the returned func runs per request.
//
// Status code conventions:
//
//	404 — the id (or every id in a batch) does not exist
//	204 — the query was valid but matched nothing
package student

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
	"github.com/aanand-mishra/student-records/internal/utils/response"
)

var validate = validator.New()

var (
	errEmptyBody  = errors.New("request body is empty")
	errInvalidID  = errors.New("invalid id: must be an integer")
	errMissingIDs = errors.New("ids query parameter is required")
)

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/students
//
// Request body (JSON); any "id" is ignored:
//
//	{ "name": "Anna", "email": "anna@test.com", "address": "12 Elm Street" }
//
// Success response (201 Created): the stored student including its id.
// ─────────────────────────────────────────────────────────────────────────────
func New(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student")

		student, ok := decodeStudent(w, r)
		if !ok {
			return
		}

		created, err := storage.CreateStudent(r.Context(), student)
		if err != nil {
			internalError(w, "error creating student", err)
			return
		}

		slog.Info("student created", slog.Int64("id", created.ID))
		response.WriteJSON(w, http.StatusCreated, created)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /api/students[?name=|email=|address=]
//
// At most one filter is applied; see filters for the priority order.
// Returns 200 with a JSON array, or 204 with no body when nothing matched.
// ─────────────────────────────────────────────────────────────────────────────
func GetList(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := selectFilter(r.URL.Query())
		slog.Info("getting students", slog.String("filter", f.param))

		students, err := f.find(storage, r.Context(), f.text)
		if err != nil {
			internalError(w, "error getting students", err)
			return
		}

		if len(students) == 0 {
			response.WriteNoContent(w)
			return
		}
		response.WriteJSON(w, http.StatusOK, students)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /api/students/{id}
//
//	200 — the student
//	400 — id is not an integer
//	404 — no student with that id
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("getting a student", slog.Int64("id", id))

		student, ok := lookup(w, r, storage, id)
		if !ok {
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/students/{id}
//
// name, email and address are always overwritten with the payload values,
// even when empty or null. The id in the path wins over any id in the body.
//
//	200 — the updated student
//	400 — bad id or body
//	404 — no student with that id
// ─────────────────────────────────────────────────────────────────────────────
func Update(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("updating a student", slog.Int64("id", id))

		payload, ok := decodeStudent(w, r)
		if !ok {
			return
		}

		existing, ok := lookup(w, r, storage, id)
		if !ok {
			return
		}

		existing.Name = payload.Name
		existing.Email = payload.Email
		existing.Address = payload.Address

		updated, err := storage.UpdateStudent(r.Context(), existing)
		if isNotFound(err) {
			// removed between the lookup and the write
			response.WriteError(w, http.StatusNotFound, notFound(id))
			return
		}
		if err != nil {
			internalError(w, "error updating student", err, slog.Int64("id", id))
			return
		}

		slog.Info("student updated", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/students/{id}
//
//	204 — deleted
//	400 — bad id
//	404 — no student with that id
// ─────────────────────────────────────────────────────────────────────────────
func Delete(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("deleting a student", slog.Int64("id", id))

		if _, ok := lookup(w, r, storage, id); !ok {
			return
		}

		if err := storage.DeleteStudentByID(r.Context(), id); err != nil {
			internalError(w, "error deleting student", err, slog.Int64("id", id))
			return
		}

		slog.Info("student deleted", slog.Int64("id", id))
		response.WriteNoContent(w)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// DeleteBatch handles DELETE /api/students?ids=1&ids=2 (or ?ids=1,2)
//
// If none of the ids exist the response is 404 and nothing changes.
// If at least one exists, every existing id is deleted, missing ids are
// skipped silently, and the response is 204.
// ─────────────────────────────────────────────────────────────────────────────
func DeleteBatch(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := parseIDs(r.URL.Query()["ids"])
		if err != nil {
			response.WriteError(w, http.StatusBadRequest, err)
			return
		}
		slog.Info("batch deleting students", slog.Any("ids", ids))

		found, err := storage.GetStudentsByIDs(r.Context(), ids)
		if err != nil {
			internalError(w, "error looking up students", err)
			return
		}
		if len(found) == 0 {
			response.WriteError(w, http.StatusNotFound, errors.New("none of the students were found"))
			return
		}

		removed, err := storage.DeleteStudentsByIDs(r.Context(), ids)
		if err != nil {
			internalError(w, "error batch deleting students", err)
			return
		}

		slog.Info("students batch deleted",
			slog.Any("requested", ids),
			slog.Any("found", studentIDs(found)),
			slog.Int64("removed", removed))
		response.WriteNoContent(w)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Analytics handles GET /api/students/analytics
//
//	200 — { "totalStudents": 2, "averageNameLength": 2.5,
//	        "studentsWithEmail": 1, "emailPercentage": 50 }
//	204 — there are no students
// ─────────────────────────────────────────────────────────────────────────────
func Analytics(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("computing student analytics")

		students, err := storage.GetStudents(r.Context())
		if err != nil {
			internalError(w, "error getting students", err)
			return
		}

		analytics, ok := computeAnalytics(students)
		if !ok {
			response.WriteNoContent(w)
			return
		}
		response.WriteJSON(w, http.StatusOK, analytics)
	}
}

// decodeStudent reads and validates the JSON body. On failure it has
// already written the 400 response.
func decodeStudent(w http.ResponseWriter, r *http.Request) (types.Student, bool) {
	var student types.Student

	err := json.NewDecoder(r.Body).Decode(&student)
	if errors.Is(err, io.EOF) {
		response.WriteError(w, http.StatusBadRequest, errEmptyBody)
		return types.Student{}, false
	}
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err)
		return types.Student{}, false
	}

	if err := validate.Struct(student); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(verrs))
		} else {
			response.WriteError(w, http.StatusBadRequest, err)
		}
		return types.Student{}, false
	}

	return student, true
}

// pathID parses the {id} segment. On failure it has written the 400.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, errInvalidID)
		return 0, false
	}
	return id, true
}

// lookup fetches a student, writing 404 or 500 itself when it cannot.
func lookup(w http.ResponseWriter, r *http.Request, store storage.Storage, id int64) (types.Student, bool) {
	student, err := store.GetStudentByID(r.Context(), id)
	if isNotFound(err) {
		response.WriteError(w, http.StatusNotFound, notFound(id))
		return types.Student{}, false
	}
	if err != nil {
		internalError(w, "error getting student", err, slog.Int64("id", id))
		return types.Student{}, false
	}
	return student, true
}

// parseIDs accepts both repeated (ids=1&ids=2) and comma separated
// (ids=1,2) forms, and any mix of the two.
func parseIDs(values []string) ([]int64, error) {
	var ids []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid id %q: must be an integer", part)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, errMissingIDs
	}
	return ids, nil
}

func studentIDs(students []types.Student) []int64 {
	ids := make([]int64, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	return ids
}

// isNotFound lives at package level because the handler factories name
// their parameter storage, which hides the package inside them.
func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

func notFound(id int64) error {
	return fmt.Errorf("no student found with id %d", id)
}

func internalError(w http.ResponseWriter, msg string, err error, attrs ...any) {
	slog.Error(msg, append(attrs, slog.String("error", err.Error()))...)
	response.WriteError(w, http.StatusInternalServerError, err)
}
