// Package storage defines the Storage interface — a contract that any
// database backend must satisfy to work with this application.
//
// WHY AN INTERFACE?
// ─────────────────
// Handlers (HTTP layer) should not know or care which database they are
// talking to. By depending only on this interface:
//
//   - Switching databases = set storage.driver in the config file.
//     Zero handler changes.
//
//   - Writing tests = pass the in-memory backend (storage/memory).
//     No real database needed for handler tests.
//
// Three backends live in sub-packages: sqlite (default), postgres (gorm)
// and memory. All of them run the same behavioural suite in storagetest.
package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/aanand-mishra/student-records/internal/types"
)

// ErrNotFound is returned by GetStudentByID when no record has the
// requested id. Callers branch on it with errors.Is.
var ErrNotFound = errors.New("student not found")

// Storage is the database contract.
type Storage interface {
	// CreateStudent inserts a new student, ignoring student.ID, and
	// returns the persisted record carrying its freshly assigned id.
	CreateStudent(ctx context.Context, student types.Student) (types.Student, error)

	// GetStudentByID fetches a single student by primary key.
	// Returns ErrNotFound if no such record exists.
	GetStudentByID(ctx context.Context, id int64) (types.Student, error)

	// GetStudents returns every student. Order is backend-defined;
	// callers must not depend on it.
	GetStudents(ctx context.Context) ([]types.Student, error)

	// GetStudentsByIDs returns the students whose id is in ids.
	// Ids with no matching record are ignored.
	GetStudentsByIDs(ctx context.Context, ids []int64) ([]types.Student, error)

	// GetStudentsByName, GetStudentsByEmail and GetStudentsByAddress do a
	// case-insensitive substring match on the respective field.
	// Wildcard characters in text are matched literally.
	GetStudentsByName(ctx context.Context, text string) ([]types.Student, error)
	GetStudentsByEmail(ctx context.Context, text string) ([]types.Student, error)
	GetStudentsByAddress(ctx context.Context, text string) ([]types.Student, error)

	// UpdateStudent overwrites name, email and address of the record
	// sharing student.ID and returns the stored result.
	// Returns ErrNotFound if no such record exists.
	UpdateStudent(ctx context.Context, student types.Student) (types.Student, error)

	// DeleteStudentByID removes a student. Deleting a missing id is a no-op.
	DeleteStudentByID(ctx context.Context, id int64) error

	// DeleteStudentsByIDs removes every student whose id is in ids and
	// reports how many records were actually removed.
	DeleteStudentsByIDs(ctx context.Context, ids []int64) (int64, error)

	// Close releases the underlying database handle.
	Close() error
}

// ContainsPattern turns text into a LIKE pattern for a lower-cased
// substring match. "%", "_" and "\" are escaped so they match
// themselves; queries must declare ESCAPE '\'.
func ContainsPattern(text string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
