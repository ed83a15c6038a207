// Package memory is an in-memory implementation of storage.Storage.
// Records are lost when the process exits; it backs the handler tests
// and the "memory" storage driver.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

// Memory is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	byID   map[int64]types.Student
	lastID int64
}

func New() *Memory {
	return &Memory{
		byID: make(map[int64]types.Student),
	}
}

func (m *Memory) CreateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	if err := ctx.Err(); err != nil {
		return types.Student{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// ids only ever grow, so a deleted id is never handed out again
	m.lastID++
	student.ID = m.lastID
	m.byID[student.ID] = cloneStudent(student)
	return cloneStudent(student), nil
}

func (m *Memory) GetStudentByID(ctx context.Context, id int64) (types.Student, error) {
	if err := ctx.Err(); err != nil {
		return types.Student{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[id]
	if !ok {
		return types.Student{}, storage.ErrNotFound
	}
	return cloneStudent(s), nil
}

func (m *Memory) GetStudents(ctx context.Context) ([]types.Student, error) {
	return m.filter(ctx, func(types.Student) bool { return true })
}

func (m *Memory) GetStudentsByIDs(ctx context.Context, ids []int64) ([]types.Student, error) {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return m.filter(ctx, func(s types.Student) bool {
		_, ok := want[s.ID]
		return ok
	})
}

func (m *Memory) GetStudentsByName(ctx context.Context, text string) ([]types.Student, error) {
	return m.filter(ctx, func(s types.Student) bool { return containsFold(s.Name, text) })
}

func (m *Memory) GetStudentsByEmail(ctx context.Context, text string) ([]types.Student, error) {
	return m.filter(ctx, func(s types.Student) bool {
		return s.Email != nil && containsFold(*s.Email, text)
	})
}

func (m *Memory) GetStudentsByAddress(ctx context.Context, text string) ([]types.Student, error) {
	return m.filter(ctx, func(s types.Student) bool { return containsFold(s.Address, text) })
}

func (m *Memory) UpdateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	if err := ctx.Err(); err != nil {
		return types.Student{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[student.ID]; !ok {
		return types.Student{}, storage.ErrNotFound
	}
	m.byID[student.ID] = cloneStudent(student)
	return cloneStudent(student), nil
}

func (m *Memory) DeleteStudentByID(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *Memory) DeleteStudentsByIDs(ctx context.Context, ids []int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for _, id := range ids {
		if _, ok := m.byID[id]; ok {
			delete(m.byID, id)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) filter(ctx context.Context, keep func(types.Student) bool) ([]types.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Student, 0)
	for _, s := range m.byID {
		if keep(s) {
			out = append(out, cloneStudent(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// containsFold is a lower-cased substring match, the same rule the SQL
// backends apply with LOWER(...) LIKE.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func cloneStudent(s types.Student) types.Student {
	cp := s
	if s.Email != nil {
		e := *s.Email
		cp.Email = &e
	}
	return cp
}
