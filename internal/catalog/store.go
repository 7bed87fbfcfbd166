// Package catalog defines the Catalog Store the sync reads departments and courses from,
// together with the term-set rules every store implementation must honour.
package catalog

import (
	"context"
	"errors"

	"github.com/jonathan/term-sync/internal/types"
)

// ErrTermConflict is returned by CompareAndSwapTermTags when the stored term set no longer
// equals the expected value.
var ErrTermConflict = errors.New("term tags changed since read")

// ErrCourseNotFound is returned by updates addressed to a code with no course record.
var ErrCourseNotFound = errors.New("course not found")

// Store is the Catalog Store consumed by the sync.
// FindCourseByCode returns (nil, nil) when no course matches.
type Store interface {
	ListDepartments(ctx context.Context) ([]types.Department, error)
	FindCourseByCode(ctx context.Context, code string) (*types.Course, error)
	UpdateCourseTermTags(ctx context.Context, code string, tags []string) error
	CompareAndSwapTermTags(ctx context.Context, code string, expected, tags []string) error
}

// Prefixes flattens departments into their prefixes in store order, dropping blanks and
// duplicates (a prefix owned by two departments is searched once).
func Prefixes(departments []types.Department) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range departments {
		for _, p := range d.Prefixes {
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
