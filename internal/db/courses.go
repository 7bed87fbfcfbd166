package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/term-sync/internal/catalog"
	"github.com/jonathan/term-sync/internal/types"
)

var _ catalog.Store = (*DB)(nil)

// ListDepartments returns departments in insertion order.
func (db *DB) ListDepartments(ctx context.Context) ([]types.Department, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, COALESCE(prefixes, '{}') FROM departments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var depts []types.Department
	for rows.Next() {
		var d types.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Prefixes); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		depts = append(depts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return depts, nil
}

// FindCourseByCode returns the course with code, or nil when there is none.
func (db *DB) FindCourseByCode(ctx context.Context, code string) (*types.Course, error) {
	var c types.Course
	err := db.pool.QueryRow(ctx,
		`SELECT id, code, name, department_id, COALESCE(term, '{}'), updated_at
		 FROM courses WHERE code = $1`,
		code,
	).Scan(&c.ID, &c.Code, &c.Name, &c.DepartmentID, &c.TermTags, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &c, nil
}

// UpdateCourseTermTags overwrites the course's term set.
func (db *DB) UpdateCourseTermTags(ctx context.Context, code string, tags []string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE courses SET term = $1, updated_at = NOW() WHERE code = $2`,
		termsArg(tags), code,
	)
	if err != nil {
		return fmt.Errorf("failed to update course terms: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrCourseNotFound
	}
	return nil
}

// CompareAndSwapTermTags overwrites the term set only while it still equals expected.
// A NULL term column compares equal to an empty expected set.
func (db *DB) CompareAndSwapTermTags(ctx context.Context, code string, expected, tags []string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE courses SET term = $1, updated_at = NOW()
		 WHERE code = $2 AND COALESCE(term, '{}') = $3::text[]`,
		termsArg(tags), code, termsArg(expected),
	)
	if err != nil {
		return fmt.Errorf("failed to update course terms: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM courses WHERE code = $1)`, code,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check course: %w", err)
	}
	if !exists {
		return catalog.ErrCourseNotFound
	}
	return catalog.ErrTermConflict
}

// termsArg keeps an empty set from being encoded as NULL.
func termsArg(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
