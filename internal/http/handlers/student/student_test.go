package student_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-records/internal/http/router"
	"github.com/aanand-mishra/student-records/internal/storage/memory"
	"github.com/aanand-mishra/student-records/internal/storage/storagetest"
	"github.com/aanand-mishra/student-records/internal/types"
	"github.com/aanand-mishra/student-records/internal/utils/response"
)

type fixture struct {
	store   *memory.Memory
	handler http.Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return fixture{store: store, handler: router.New(store, log)}
}

func (f fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/students",
		`{"id":42,"name":"Anna","email":"anna@test.com","address":"12 Elm Street"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	created := decode[types.Student](t, rec)
	assert.NotEqual(t, int64(42), created.ID)
	assert.Equal(t, "Anna", created.Name)
	require.NotNil(t, created.Email)
	assert.Equal(t, "anna@test.com", *created.Email)

	got := f.do(t, http.MethodGet, "/api/students/"+itoa(created.ID), "")
	require.Equal(t, http.StatusOK, got.Code)
	assert.Equal(t, created, decode[types.Student](t, got))
}

func TestCreate_NullEmail(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/students", `{"name":"Bob","email":null,"address":"x"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":null`)
}

func TestCreate_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "empty body", body: "", wantErr: "request body is empty"},
		{name: "malformed json", body: `{"name":`},
		{name: "name too long", body: `{"name":"` + strings.Repeat("a", 256) + `"}`,
			wantErr: "field Name must be at most 255 characters"},
		{name: "email too long", body: `{"name":"a","email":"` + strings.Repeat("e", 256) + `"}`,
			wantErr: "field Email must be at most 255 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			rec := f.do(t, http.MethodPost, "/api/students", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			resp := decode[response.Response](t, rec)
			assert.Equal(t, response.StatusError, resp.Status)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, resp.Error)
			}

			all, err := f.store.GetStudents(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestGetByID(t *testing.T) {
	f := newFixture(t)
	ids := storagetest.Seed(t, f.store, storagetest.Student("Anna", "", "Oslo"))

	t.Run("found", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/students/"+itoa(ids[0]), "")
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[types.Student](t, rec)
		assert.Equal(t, "Anna", got.Name)
		assert.Nil(t, got.Email)
	})

	t.Run("missing", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/students/999", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		resp := decode[response.Response](t, rec)
		assert.Equal(t, "no student found with id 999", resp.Error)
	})

	t.Run("not an integer", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/students/abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetList(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/students", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	storagetest.Seed(t, f.store,
		storagetest.Student("Anna", "anna@test.com", "Oslo"),
		storagetest.Student("Susan", "", "Bergen"),
		storagetest.Student("Bob", "bob@mail.org", "Oslo"),
	)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "all", query: "", want: []string{"Anna", "Susan", "Bob"}},
		{name: "name contains", query: "?name=AN", want: []string{"Anna", "Susan"}},
		{name: "email contains", query: "?email=test", want: []string{"Anna"}},
		{name: "empty email skips nulls", query: "?email=", want: []string{"Anna", "Bob"}},
		{name: "address contains", query: "?address=oslo", want: []string{"Anna", "Bob"}},
		{name: "name wins over email", query: "?name=Bob&email=anna", want: []string{"Bob"}},
		{name: "email wins over address", query: "?address=Bergen&email=mail", want: []string{"Bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/api/students"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, names(decode[[]types.Student](t, rec)))
		})
	}

	t.Run("no match", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/students?name=zzz", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ids := storagetest.Seed(t, f.store, storagetest.Student("Anna", "anna@test.com", "Oslo"))

	rec := f.do(t, http.MethodPut, "/api/students/"+itoa(ids[0]),
		`{"id":777,"name":"Anne","email":null,"address":"Bergen"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	updated := decode[types.Student](t, rec)
	assert.Equal(t, types.Student{ID: ids[0], Name: "Anne", Address: "Bergen"}, updated)

	stored, err := f.store.GetStudentByID(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, updated, stored)
}

func TestUpdate_Errors(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/students/5", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/students/x", `{"name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ids := storagetest.Seed(t, f.store, storagetest.Student("Anna", "", ""))
	rec = f.do(t, http.MethodPut, "/api/students/"+itoa(ids[0]), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ids := storagetest.Seed(t, f.store, storagetest.Student("Anna", "", ""))
	path := "/api/students/" + itoa(ids[0])

	rec := f.do(t, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, path, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, path, "").Code)
}

func TestDeleteBatch(t *testing.T) {
	t.Run("partial match deletes the existing ids", func(t *testing.T) {
		f := newFixture(t)
		ids := storagetest.Seed(t, f.store,
			storagetest.Student("A", "", ""),
			storagetest.Student("B", "", ""),
			storagetest.Student("C", "", ""),
		)

		rec := f.do(t, http.MethodDelete,
			"/api/students?ids="+itoa(ids[0])+"&ids="+itoa(ids[1])+"&ids=999", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)

		left, err := f.store.GetStudents(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[2]}, storagetest.IDs(left))
	})

	t.Run("comma separated", func(t *testing.T) {
		f := newFixture(t)
		ids := storagetest.Seed(t, f.store,
			storagetest.Student("A", "", ""),
			storagetest.Student("B", "", ""),
		)

		rec := f.do(t, http.MethodDelete, "/api/students?ids="+itoa(ids[0])+","+itoa(ids[1]), "")
		assert.Equal(t, http.StatusNoContent, rec.Code)

		left, err := f.store.GetStudents(context.Background())
		require.NoError(t, err)
		assert.Empty(t, left)
	})

	t.Run("none exist", func(t *testing.T) {
		f := newFixture(t)
		storagetest.Seed(t, f.store, storagetest.Student("A", "", ""))

		rec := f.do(t, http.MethodDelete, "/api/students?ids=998&ids=999", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		left, err := f.store.GetStudents(context.Background())
		require.NoError(t, err)
		assert.Len(t, left, 1)
	})

	t.Run("bad ids", func(t *testing.T) {
		f := newFixture(t)
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodDelete, "/api/students", "").Code)
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodDelete, "/api/students?ids=1,x", "").Code)
	})
}

func TestAnalytics(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/students/analytics", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	storagetest.Seed(t, f.store,
		storagetest.Student("Al", "al@test.com", ""),
		storagetest.Student("Bob", "", ""),
	)

	rec = f.do(t, http.MethodGet, "/api/students/analytics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"totalStudents":2,"averageNameLength":2.5,"studentsWithEmail":1,"emailPercentage":50}`,
		rec.Body.String())
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func names(students []types.Student) []string {
	out := make([]string, 0, len(students))
	for _, s := range students {
		out = append(out, s.Name)
	}
	return out
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
