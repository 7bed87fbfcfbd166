package catalog

import (
	"context"
	"sync"

	"github.com/jonathan/term-sync/internal/types"
)

// MemoryStore is an in-process Store. It is safe for concurrent use and is what tests
// and dry runs drive the sync against.
type MemoryStore struct {
	mu          sync.Mutex
	departments []types.Department
	courses     map[string]*types.Course
	writes      int
}

// NewMemoryStore creates a store seeded with departments and courses.
func NewMemoryStore(departments []types.Department, courses []types.Course) *MemoryStore {
	m := &MemoryStore{
		departments: append([]types.Department(nil), departments...),
		courses:     make(map[string]*types.Course, len(courses)),
	}
	for i := range courses {
		c := courses[i]
		c.TermTags = append([]string(nil), c.TermTags...)
		m.courses[c.Code] = &c
	}
	return m
}

// ListDepartments returns the seeded departments in insertion order.
func (m *MemoryStore) ListDepartments(_ context.Context) ([]types.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Department(nil), m.departments...), nil
}

// FindCourseByCode returns a copy of the stored course, or nil when absent.
func (m *MemoryStore) FindCourseByCode(_ context.Context, code string) (*types.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[code]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.TermTags = append([]string(nil), c.TermTags...)
	return &cp, nil
}

// UpdateCourseTermTags overwrites the term set unconditionally.
func (m *MemoryStore) UpdateCourseTermTags(_ context.Context, code string, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[code]
	if !ok {
		return ErrCourseNotFound
	}
	c.TermTags = append([]string(nil), tags...)
	m.writes++
	return nil
}

// CompareAndSwapTermTags overwrites the term set only if it still equals expected.
func (m *MemoryStore) CompareAndSwapTermTags(_ context.Context, code string, expected, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[code]
	if !ok {
		return ErrCourseNotFound
	}
	if !EqualTermTags(c.TermTags, expected) {
		return ErrTermConflict
	}
	c.TermTags = append([]string(nil), tags...)
	m.writes++
	return nil
}

// Writes returns the number of successful term-set writes.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Snapshot returns a copy of every course keyed by code.
func (m *MemoryStore) Snapshot() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]string, len(m.courses))
	for code, c := range m.courses {
		out[code] = append([]string(nil), c.TermTags...)
	}
	return out
}
