// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles —
// handlers, storage, and utils can all import types without depending
// on each other.
package types

// Student represents a student record in our system.
//
// Struct tags serve two purposes:
//
//  1. json:"..."  — controls how the field appears when encoded to JSON.
//
//  2. validate:"..." — rules checked by the go-playground/validator
//     package. The only rule is the column width every storage backend
//     declares (VARCHAR(255)); anything else the storage accepts is valid.
//
// Email is a pointer because it is optional: a student without an email
// is encoded as "email": null and stored as NULL.
type Student struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"    validate:"max=255"`
	Email   *string `json:"email"   validate:"omitempty,max=255"`
	Address string  `json:"address" validate:"max=255"`
}

// HasEmail reports whether the student has a non-empty email address.
func (s Student) HasEmail() bool {
	return s.Email != nil && *s.Email != ""
}

// Analytics is the aggregate view over the whole collection returned by
// GET /api/students/analytics.
type Analytics struct {
	TotalStudents     int     `json:"totalStudents"`
	AverageNameLength float64 `json:"averageNameLength"`
	StudentsWithEmail int     `json:"studentsWithEmail"`
	EmailPercentage   float64 `json:"emailPercentage"`
}
