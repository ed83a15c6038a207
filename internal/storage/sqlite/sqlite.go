// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// WHY SQLite?
// ───────────
// SQLite stores everything in a single file on disk. There is no
// network, no separate server process, and no installation beyond the
// driver. It is the default backend (storage.driver: sqlite).
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"

	// Blank import: side-effect only (registers the "sqlite3" driver).
	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Storage.
// It holds a *sql.DB which is a connection pool managed by database/sql.
type SQLite struct {
	Db *sql.DB
}

// Column list shared by every SELECT. The order must match scanStudent.
const selectStudents = "SELECT id, name, email, address FROM students"

// New opens the SQLite database file at path, creates the students table
// if it does not already exist, and returns a ready-to-use *SQLite.
func New(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite.New: storage path is required")
	}

	// _busy_timeout makes concurrent writers wait for the file lock
	// instead of failing immediately with SQLITE_BUSY.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: ping db: %w", err)
	}

	// AUTOINCREMENT (rather than a plain INTEGER PRIMARY KEY) stops SQLite
	// from handing out the id of a deleted row again.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS students (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			name    VARCHAR(255) NOT NULL DEFAULT '',
			email   VARCHAR(255),
			address VARCHAR(255) NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// Close closes the connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateStudent inserts a new row and returns it with the id SQLite
// assigned. Placeholders (?) keep user input out of the SQL text.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) CreateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"INSERT INTO students (name, email, address) VALUES (?, ?, ?)",
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, student.Name, nullString(student.Email), student.Address)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: exec: %w", err)
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: last insert id: %w", err)
	}

	student.ID = lastID
	return student, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// GetStudentByID fetches exactly one student row matched by primary key.
// sql.ErrNoRows is translated into storage.ErrNotFound so handlers can
// tell "absent" apart from a real database failure.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) GetStudentByID(ctx context.Context, id int64) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx, selectStudents+" WHERE id = ? LIMIT 1")
	if err != nil {
		return types.Student{}, fmt.Errorf("GetStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	student, err := scanStudent(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, fmt.Errorf("no student found with id %d: %w", id, storage.ErrNotFound)
		}
		return types.Student{}, fmt.Errorf("GetStudentByID: scan: %w", err)
	}

	return student, nil
}

// GetStudents returns all student rows ordered by id.
func (s *SQLite) GetStudents(ctx context.Context) ([]types.Student, error) {
	return s.queryStudents(ctx, "GetStudents", selectStudents+" ORDER BY id")
}

// GetStudentsByIDs returns the rows whose id is in ids.
func (s *SQLite) GetStudentsByIDs(ctx context.Context, ids []int64) ([]types.Student, error) {
	if len(ids) == 0 {
		return make([]types.Student, 0), nil
	}
	in, args := inClause(ids)
	return s.queryStudents(ctx, "GetStudentsByIDs",
		selectStudents+" WHERE id IN ("+in+") ORDER BY id", args...)
}

func (s *SQLite) GetStudentsByName(ctx context.Context, text string) ([]types.Student, error) {
	return s.searchColumn(ctx, "GetStudentsByName", "name", text)
}

func (s *SQLite) GetStudentsByEmail(ctx context.Context, text string) ([]types.Student, error) {
	return s.searchColumn(ctx, "GetStudentsByEmail", "email", text)
}

func (s *SQLite) GetStudentsByAddress(ctx context.Context, text string) ([]types.Student, error) {
	return s.searchColumn(ctx, "GetStudentsByAddress", "address", text)
}

// ─────────────────────────────────────────────────────────────────────────────
// UpdateStudent replaces name, email and address of the row with
// student.ID and returns the row as stored.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) UpdateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"UPDATE students SET name = ?, email = ?, address = ? WHERE id = ?",
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudent: prepare: %w", err)
	}
	defer stmt.Close()

	// Argument order matches the ? order in the SQL: name, email, address, id
	res, err := stmt.ExecContext(ctx, student.Name, nullString(student.Email), student.Address, student.ID)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudent: exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudent: rows affected: %w", err)
	}
	if n == 0 {
		return types.Student{}, fmt.Errorf("no student found with id %d: %w", student.ID, storage.ErrNotFound)
	}

	return s.GetStudentByID(ctx, student.ID)
}

// DeleteStudentByID removes a student row by primary key.
func (s *SQLite) DeleteStudentByID(ctx context.Context, id int64) error {
	stmt, err := s.Db.PrepareContext(ctx, "DELETE FROM students WHERE id = ?")
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("DeleteStudentByID: exec: %w", err)
	}

	return nil
}

// DeleteStudentsByIDs removes every row whose id is in ids in a single
// statement and returns the number of rows removed.
func (s *SQLite) DeleteStudentsByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	in, args := inClause(ids)
	res, err := s.Db.ExecContext(ctx, "DELETE FROM students WHERE id IN ("+in+")", args...)
	if err != nil {
		return 0, fmt.Errorf("DeleteStudentsByIDs: exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteStudentsByIDs: rows affected: %w", err)
	}
	return n, nil
}

// searchColumn runs a case-insensitive substring match on column.
// column always comes from the fixed set above, never from user input.
func (s *SQLite) searchColumn(ctx context.Context, op, column, text string) ([]types.Student, error) {
	query := fmt.Sprintf(`%s WHERE LOWER(%s) LIKE ? ESCAPE '\' ORDER BY id`, selectStudents, column)
	return s.queryStudents(ctx, op, query, storage.ContainsPattern(text))
}

// ─────────────────────────────────────────────────────────────────────────────
// queryStudents runs a multi-row SELECT and scans every row.
//
// Query returns a cursor (*sql.Rows). rows.Next() advances it; rows.Err()
// reports anything that went wrong during iteration. Always close rows
// to release the connection back to the pool.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) queryStudents(ctx context.Context, op, query string, args ...any) ([]types.Student, error) {
	rows, err := s.Db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	// Non-nil so an empty result encodes as [] rather than null.
	students := make([]types.Student, 0)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration: %w", op, err)
	}

	return students, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (types.Student, error) {
	var (
		student types.Student
		email   sql.NullString
	)
	if err := row.Scan(&student.ID, &student.Name, &email, &student.Address); err != nil {
		return types.Student{}, err
	}
	if email.Valid {
		student.Email = &email.String
	}
	return student, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func inClause(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}
