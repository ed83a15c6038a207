package student

import (
	"context"
	"net/url"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

type finder func(storage.Storage, context.Context, string) ([]types.Student, error)

// filters is evaluated top to bottom: the first query parameter present
// in the request selects its finder and the rest are ignored, so
// name=A&email=B searches by name only. A parameter that is present but
// empty still wins and matches every non-null value of its field.
var filters = []struct {
	param string
	find  finder
}{
	{param: "name", find: storage.Storage.GetStudentsByName},
	{param: "email", find: storage.Storage.GetStudentsByEmail},
	{param: "address", find: storage.Storage.GetStudentsByAddress},
}

type selectedFilter struct {
	param string
	text  string
	find  finder
}

func selectFilter(q url.Values) selectedFilter {
	for _, f := range filters {
		if q.Has(f.param) {
			return selectedFilter{param: f.param, text: q.Get(f.param), find: f.find}
		}
	}
	return selectedFilter{
		param: "none",
		find: func(s storage.Storage, ctx context.Context, _ string) ([]types.Student, error) {
			return s.GetStudents(ctx)
		},
	}
}
