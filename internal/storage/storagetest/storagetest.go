// Package storagetest holds the behavioural suite every storage.Storage
// backend must pass. Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

// OpenFunc returns an empty store. It is called once per subtest and is
// responsible for registering its own cleanup.
type OpenFunc func(t *testing.T) storage.Storage

// Run executes the suite against stores produced by open.
func Run(t *testing.T, open OpenFunc) {
	t.Helper()

	t.Run("CreateThenGetReturnsEqualRecord", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		created, err := s.CreateStudent(ctx, Student("Anna", "anna@example.com", "12 Elm Street"))
		require.NoError(t, err)
		assert.NotZero(t, created.ID)

		got, err := s.GetStudentByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, got)
		assert.Equal(t, "Anna", got.Name)
		require.NotNil(t, got.Email)
		assert.Equal(t, "anna@example.com", *got.Email)
		assert.Equal(t, "12 Elm Street", got.Address)
	})

	t.Run("CreateIgnoresCallerID", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		in := Student("Bob", "", "Oslo")
		in.ID = 4242
		created, err := s.CreateStudent(ctx, in)
		require.NoError(t, err)
		assert.NotEqual(t, int64(4242), created.ID)
	})

	t.Run("NullEmailRoundTrips", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		created, err := s.CreateStudent(ctx, types.Student{Name: "NoMail", Address: "Nowhere"})
		require.NoError(t, err)

		got, err := s.GetStudentByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Email)
	})

	t.Run("GetMissingIDReturnsErrNotFound", func(t *testing.T) {
		s := open(t)

		_, err := s.GetStudentByID(context.Background(), 999)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("GetStudentsOnEmptyStoreIsEmpty", func(t *testing.T) {
		s := open(t)

		got, err := s.GetStudents(context.Background())
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("GetStudentsReturnsEveryRecord", func(t *testing.T) {
		s := open(t)
		ids := Seed(t, s,
			Student("Anna", "", "A"),
			Student("Bob", "", "B"),
			Student("Cleo", "", "C"),
		)

		got, err := s.GetStudents(context.Background())
		require.NoError(t, err)
		assert.ElementsMatch(t, ids, IDs(got))
	})

	t.Run("NameSearchIsCaseInsensitiveSubstring", func(t *testing.T) {
		s := open(t)
		ids := Seed(t, s,
			Student("Anna", "", ""),
			Student("Susan", "", ""),
			Student("Bob", "", ""),
		)

		got, err := s.GetStudentsByName(context.Background(), "an")
		require.NoError(t, err)
		assert.ElementsMatch(t, ids[:2], IDs(got))

		got, err = s.GetStudentsByName(context.Background(), "SUS")
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[1]}, IDs(got))

		got, err = s.GetStudentsByName(context.Background(), "zed")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("EmailSearchSkipsNullEmails", func(t *testing.T) {
		s := open(t)
		ids := Seed(t, s,
			Student("Anna", "Anna@Example.com", ""),
			Student("Bob", "bob@test.org", ""),
			types.Student{Name: "NoMail"},
		)

		got, err := s.GetStudentsByEmail(context.Background(), "example")
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[0]}, IDs(got))

		got, err = s.GetStudentsByEmail(context.Background(), "")
		require.NoError(t, err)
		assert.ElementsMatch(t, ids[:2], IDs(got))
	})

	t.Run("AddressSearchIsCaseInsensitiveSubstring", func(t *testing.T) {
		s := open(t)
		ids := Seed(t, s,
			Student("Anna", "", "12 Main Street"),
			Student("Bob", "", "Harbour Road"),
		)

		got, err := s.GetStudentsByAddress(context.Background(), "main st")
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[0]}, IDs(got))
	})

	t.Run("SearchTreatsWildcardsLiterally", func(t *testing.T) {
		s := open(t)
		ids := Seed(t, s,
			Student("100% Anna", "", ""),
			Student("Bob_Smith", "", ""),
			Student("Cleo", "", ""),
		)

		got, err := s.GetStudentsByName(context.Background(), "%")
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[0]}, IDs(got))

		got, err = s.GetStudentsByName(context.Background(), "_")
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[1]}, IDs(got))
	})

	t.Run("UpdateOverwritesFieldsAndKeepsID", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		ids := Seed(t, s, Student("Anna", "anna@example.com", "Oslo"))

		updated, err := s.UpdateStudent(ctx, types.Student{ID: ids[0], Name: "Anne", Address: ""})
		require.NoError(t, err)
		assert.Equal(t, ids[0], updated.ID)

		got, err := s.GetStudentByID(ctx, ids[0])
		require.NoError(t, err)
		assert.Equal(t, "Anne", got.Name)
		assert.Nil(t, got.Email)
		assert.Equal(t, "", got.Address)
	})

	t.Run("DeleteRemovesRecord", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		ids := Seed(t, s, Student("Anna", "", ""), Student("Bob", "", ""))

		require.NoError(t, s.DeleteStudentByID(ctx, ids[0]))

		_, err := s.GetStudentByID(ctx, ids[0])
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.GetStudentByID(ctx, ids[1])
		assert.NoError(t, err)
	})

	t.Run("DeleteMissingIDIsNoop", func(t *testing.T) {
		s := open(t)

		assert.NoError(t, s.DeleteStudentByID(context.Background(), 999))
	})

	t.Run("DeletedIDsAreNotReused", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		ids := Seed(t, s, Student("Anna", "", ""), Student("Bob", "", ""))

		require.NoError(t, s.DeleteStudentByID(ctx, ids[1]))
		created, err := s.CreateStudent(ctx, Student("Cleo", "", ""))
		require.NoError(t, err)
		assert.Greater(t, created.ID, ids[1])
	})

	t.Run("GetByIDsIgnoresMissingIDs", func(t *testing.T) {
		s := open(t)
		ids := Seed(t, s, Student("Anna", "", ""), Student("Bob", "", ""), Student("Cleo", "", ""))

		got, err := s.GetStudentsByIDs(context.Background(), []int64{ids[0], ids[2], 999})
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{ids[0], ids[2]}, IDs(got))

		got, err = s.GetStudentsByIDs(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("DeleteByIDsRemovesOnlyExistingIDs", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		ids := Seed(t, s, Student("Anna", "", ""), Student("Bob", "", ""), Student("Cleo", "", ""))

		removed, err := s.DeleteStudentsByIDs(ctx, []int64{ids[0], ids[1], 999})
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)

		got, err := s.GetStudents(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[2]}, IDs(got))

		removed, err = s.DeleteStudentsByIDs(ctx, []int64{998, 999})
		require.NoError(t, err)
		assert.Zero(t, removed)
	})
}

// Student builds a record; an empty email means no email at all.
func Student(name, email, address string) types.Student {
	s := types.Student{Name: name, Address: address}
	if email != "" {
		s.Email = &email
	}
	return s
}

// Seed inserts students in order and returns their ids.
func Seed(t *testing.T, s storage.Storage, students ...types.Student) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(students))
	for _, st := range students {
		created, err := s.CreateStudent(context.Background(), st)
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}
	return ids
}

// IDs returns the sorted ids of students.
func IDs(students []types.Student) []int64 {
	ids := make([]int64, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
